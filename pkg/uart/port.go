package uart

import (
	"github.com/golang/glog"

	"github.com/robotalks/uartcon/pkg/ring"
)

// Port owns the receive queue of one serial peripheral together with both
// of its ends. It is created once at startup and lives for the process
// lifetime.
type Port struct {
	hw       Hardware
	queue    ring.Buffer
	receiver *Receiver
	reader   *LineReader
}

// Stats is a snapshot of the receive path counters.
type Stats struct {
	Buffered int
	Dropped  uint64
}

// NewPort creates a Port on hw.
func NewPort(hw Hardware) *Port {
	p := &Port{hw: hw}
	p.receiver = NewReceiver(hw, &p.queue)
	p.reader = NewLineReader(&p.queue)
	return p
}

// Init discards a stale byte latched before the interrupt was enabled.
// It must be called before the interrupt handler is installed.
func (p *Port) Init() {
	if p.hw.RxReady() {
		b := p.hw.ReadData()
		glog.V(2).Infof("uart: flushed stale byte 0x%02x", b)
	}
}

// Receiver returns the interrupt handler side.
func (p *Port) Receiver() *Receiver {
	return p.receiver
}

// Reader returns the main loop side.
func (p *Port) Reader() *LineReader {
	return p.reader
}

// Transmitter returns the blocking transmit primitive.
func (p *Port) Transmitter() Transmitter {
	return p.hw
}

// Stats returns the current counters.
func (p *Port) Stats() Stats {
	return Stats{Buffered: p.queue.Len(), Dropped: p.queue.Dropped()}
}

// Full reports whether a byte received now would be dropped.
func (p *Port) Full() bool {
	return p.queue.IsFull()
}

// Overflowed reports bytes dropped since the counter value seen was
// observed. It returns the current counter value and a *DataLossError if it
// has grown.
func (p *Port) Overflowed(seen uint64) (uint64, error) {
	n := p.queue.Dropped()
	if n > seen {
		return n, &DataLossError{Dropped: n - seen}
	}
	return n, nil
}
