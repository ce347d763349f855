// Package console implements the line editor and command dispatcher that
// runs in the main loop on top of the serial receive path.
package console

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/uartcon/pkg/uart"
)

// LineCapacity is the size of the line buffer. One slot is reserved, so a
// line holds at most LineCapacity-1 bytes.
const LineCapacity = 32

// Prompt is echoed after every completed line.
const Prompt = "> "

// Banner is echoed by Start before the first prompt.
const Banner = "\r\nUART command console\r\nType HELP for commands\r\n"

const (
	keyCR  byte = '\r'
	keyBS  byte = 0x08
	keyDEL byte = 0x7f

	eraseSeq = "\b \b"
	newLine  = "\r\n"
)

// Action describes what a single Step did.
type Action int

const (
	// ActionAppend means the byte was added to the line and echoed.
	ActionAppend Action = iota
	// ActionErase means an edit key was processed.
	ActionErase
	// ActionDrop means the byte was discarded because the line is full.
	ActionDrop
	// ActionExecute means the line matched a command which was run.
	ActionExecute
	// ActionUnknown means the line matched no command.
	ActionUnknown
	// ActionEmpty means an empty line was entered.
	ActionEmpty
)

// Result is the outcome of one Step.
type Result struct {
	Action Action
	// Line is the completed line, only set when the byte was a terminator.
	Line string
	Err  error
}

// Stats are counters of the interpreter.
type Stats struct {
	Executed  uint64
	Unknown   uint64
	Truncated uint64
}

// Interpreter accumulates a command line and dispatches completed lines.
// Step and Run must only be called from the main loop; Stats may be called
// from anywhere.
type Interpreter struct {
	tx    uart.Transmitter
	gpio  uart.GPIO
	table *Table

	line   [LineCapacity]byte
	length int

	executed  atomic.Uint64
	unknown   atomic.Uint64
	truncated atomic.Uint64
}

// New creates an Interpreter echoing to tx and running table against gpio.
func New(tx uart.Transmitter, gpio uart.GPIO, table *Table) *Interpreter {
	return &Interpreter{tx: tx, gpio: gpio, table: table}
}

// Start echoes the banner and the first prompt.
func (in *Interpreter) Start() {
	in.length = 0
	in.echo(Banner)
	in.echo(Prompt)
}

// Line returns the line being edited.
func (in *Interpreter) Line() string {
	return string(in.line[:in.length])
}

// Stats returns a snapshot of the counters.
func (in *Interpreter) Stats() Stats {
	return Stats{
		Executed:  in.executed.Load(),
		Unknown:   in.unknown.Load(),
		Truncated: in.truncated.Load(),
	}
}

// Step consumes one received byte.
func (in *Interpreter) Step(c byte) Result {
	switch {
	case c == keyCR:
		return in.execute()
	case c == keyDEL || c == keyBS:
		// an empty line echoes nothing.
		if in.length > 0 {
			in.length--
			in.echo(eraseSeq)
		}
		return Result{Action: ActionErase}
	case in.length < LineCapacity-1:
		in.line[in.length] = c
		in.length++
		in.tx.Transmit(c)
		return Result{Action: ActionAppend}
	default:
		in.truncated.Add(1)
		return Result{Action: ActionDrop, Err: ErrInputTruncated}
	}
}

func (in *Interpreter) execute() (r Result) {
	in.echo(newLine)
	r.Line = string(in.line[:in.length])
	in.length = 0
	if cmd, ok := in.table.Lookup(r.Line); ok {
		glog.V(2).Infof("console: execute %q", r.Line)
		in.echo(cmd.Run(in.gpio))
		in.executed.Add(1)
		r.Action = ActionExecute
	} else if r.Line != "" {
		glog.V(1).Infof("console: unknown command %q", r.Line)
		in.echo("Unknown command: " + r.Line + newLine + "Type HELP for commands" + newLine)
		in.unknown.Add(1)
		r.Action, r.Err = ActionUnknown, &UnknownCommandError{Line: r.Line}
	} else {
		r.Action = ActionEmpty
	}
	in.echo(Prompt)
	return
}

func (in *Interpreter) echo(s string) {
	uart.WriteString(in.tx, s)
}

type contextByteReader interface {
	ReadByteContext(context.Context) (byte, error)
}

// Run starts the console and feeds it every byte from r until ctx is done
// or r fails. If r does not support ReadByteContext, cancellation is only
// observed between bytes and a read with no data waits forever.
func (in *Interpreter) Run(ctx context.Context, r io.ByteReader) error {
	glog.V(1).Info("console: started")
	defer glog.V(1).Info("console: stopped")
	in.Start()
	ctxReader, _ := r.(contextByteReader)
	for {
		var b byte
		var err error
		if ctxReader != nil {
			b, err = ctxReader.ReadByteContext(ctx)
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			b, err = r.ReadByte()
		}
		if err != nil {
			return err
		}
		if res := in.Step(b); res.Action == ActionDrop {
			glog.V(3).Infof("console: dropped 0x%02x, line full", b)
		}
	}
}
