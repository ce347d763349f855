package sim

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// IRQ stands in for the interrupt context of the receive interrupt.
// Bytes written to the line are latched into the USART one at a time and
// the handler runs to completion for each of them on a single goroutine,
// so it is never re-entered. Bytes arrive at most one per USART.CharTime.
type IRQ struct {
	// Clear, if set, is polled before each delivery and the line holds the
	// byte until it reports true, like a sender honoring RTS.
	Clear func() bool

	usart   *USART
	handler func()
	lineCh  chan byte
}

// holdPoll is how often a held line polls Clear.
const holdPoll = 100 * time.Microsecond

// DefaultLineBacklog is the number of bytes that can be in flight on the
// emulated wire.
const DefaultLineBacklog = 256

// NewIRQ creates an IRQ delivering to usart and calling handler per byte.
func NewIRQ(usart *USART, handler func(), backlog int) *IRQ {
	if backlog <= 0 {
		backlog = DefaultLineBacklog
	}
	return &IRQ{
		usart:   usart,
		handler: handler,
		lineCh:  make(chan byte, backlog),
	}
}

// Inject puts p on the wire. It blocks while the wire backlog is full.
func (q *IRQ) Inject(ctx context.Context, p []byte) error {
	for _, b := range p {
		select {
		case q.lineCh <- b:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Run implements Runnable.
func (q *IRQ) Run(ctx context.Context) error {
	var next time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b := <-q.lineCh:
			if err := q.waitLine(ctx, next); err != nil {
				return err
			}
			if q.usart.CharTime > 0 {
				next = time.Now().Add(q.usart.CharTime)
			}
			q.usart.Deliver(b)
			q.handler()
			if q.usart.RxReady() {
				glog.Errorf("irq: handler did not read the data register")
			}
		}
	}
}

// waitLine waits until next and then until Clear reports true.
func (q *IRQ) waitLine(ctx context.Context, next time.Time) error {
	if d := time.Until(next); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if q.Clear == nil || q.Clear() {
		return nil
	}
	ticker := time.NewTicker(holdPoll)
	defer ticker.Stop()
	for !q.Clear() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
