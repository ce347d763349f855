package sim

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/uartcon/pkg/console"
	fx "github.com/robotalks/uartcon/pkg/framework"
	"github.com/robotalks/uartcon/pkg/uart"
)

// BoardConfig configures an emulated board.
type BoardConfig struct {
	// LEDPin is the output driven by the LED commands.
	LEDPin uart.Pin
	// CharTime emulates the transmit time of one byte.
	CharTime time.Duration
	// LineBacklog is the number of bytes buffered on the emulated wire.
	LineBacklog int
	// MonitorInterval is how often receive overflows are checked and logged.
	MonitorInterval time.Duration
	// LineHold makes the emulated line hold bytes while the receive queue
	// is full instead of letting them overflow.
	LineHold bool
}

// DefaultBoardConfig matches the reference board: LED on pin 5, 9600 baud.
var DefaultBoardConfig = BoardConfig{
	LEDPin:          5,
	CharTime:        time.Second * 10 / 9600,
	LineBacklog:     DefaultLineBacklog,
	MonitorInterval: time.Second,
	LineHold:        true,
}

// Board wires the emulated peripheral to the console core.
type Board struct {
	Config  BoardConfig
	USART   *USART
	IRQ     *IRQ
	Pins    *Pins
	Port    *uart.Port
	Console *console.Interpreter
	Output  *Tap
}

// Stats is a snapshot of all counters of the board.
type Stats struct {
	Port     uart.Stats
	Console  console.Stats
	Overruns uint64
	LED      bool
}

// NewBoard creates a Board. Transmitted bytes go to Output.
func NewBoard(conf BoardConfig) *Board {
	b := &Board{
		Config: conf,
		Pins:   &Pins{},
		Output: &Tap{},
	}
	b.USART = NewUSART(b.Output)
	b.USART.CharTime = conf.CharTime
	b.Port = uart.NewPort(b.USART)
	b.IRQ = NewIRQ(b.USART, b.Port.Receiver().HandleInterrupt, conf.LineBacklog)
	if conf.LineHold {
		b.IRQ.Clear = func() bool { return !b.Port.Full() }
	}
	b.Console = console.New(b.Port.Transmitter(), b.Pins, console.DefaultTable(conf.LEDPin))
	return b
}

// Inject puts bytes on the receive line.
func (b *Board) Inject(ctx context.Context, p []byte) error {
	return b.IRQ.Inject(ctx, p)
}

// Stats returns the current counters.
func (b *Board) Stats() Stats {
	return Stats{
		Port:     b.Port.Stats(),
		Console:  b.Console.Stats(),
		Overruns: b.USART.Overruns(),
		LED:      b.Pins.GetOutput(b.Config.LEDPin),
	}
}

// Run implements Runnable. It flushes the port, then runs the interrupt
// context and the main loop until ctx is done.
func (b *Board) Run(ctx context.Context) error {
	b.Port.Init()
	runner := fx.NewRunnerWith(ctx)
	runner.Go(
		fx.NamedRun("irq", b.IRQ),
		fx.NamedRun("console", fx.RunFunc(func(ctx context.Context) error {
			return b.Console.Run(ctx, b.Port.Reader())
		})),
		fx.NamedRun("monitor", fx.RunFunc(b.monitor)),
	)
	return runner.Wait()
}

func (b *Board) monitor(ctx context.Context) error {
	interval := b.Config.MonitorInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var dropped uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			var err error
			if dropped, err = b.Port.Overflowed(dropped); err != nil {
				glog.Warningf("board: %v", err)
			}
		}
	}
}

// Attach adds a writer receiving every transmitted byte.
func (b *Board) Attach(w io.Writer) (detach func()) {
	return b.Output.Attach(w)
}

// Feed puts what is read from r on the receive line, turning line feeds
// into the carriage returns the console expects. The read is not
// interruptible, so it is left behind when ctx is done.
func (b *Board) Feed(ctx context.Context, r io.Reader) error {
	dataCh := make(chan []byte)
	errCh := make(chan error, 1)
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				select {
				case dataCh <- append([]byte(nil), buf[:n]...):
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				errCh <- err
				return
			}
		}
	}()
	var last byte
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case data := <-dataCh:
			var err error
			if data, last = crlf(data, last); len(data) > 0 {
				err = b.Inject(ctx, data)
			}
			if err != nil {
				return err
			}
		}
	}
}

// crlf maps LF to CR and drops the LF of a CRLF pair. last is the byte
// before data.
func crlf(data []byte, last byte) ([]byte, byte) {
	out := data[:0]
	for _, c := range data {
		switch {
		case c == '\n' && last == '\r':
		case c == '\n':
			out = append(out, '\r')
		default:
			out = append(out, c)
		}
		last = c
	}
	return out, last
}
