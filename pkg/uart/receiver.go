package uart

import "github.com/robotalks/uartcon/pkg/ring"

// Receiver is the producer side of the receive queue.
type Receiver struct {
	reg   DataRegister
	queue *ring.Buffer
}

// NewReceiver creates a Receiver pushing bytes from reg into queue.
func NewReceiver(reg DataRegister, queue *ring.Buffer) *Receiver {
	return &Receiver{reg: reg, queue: queue}
}

// HandleInterrupt must be called once per "byte ready" event.
// It reads the data register exactly once, which clears the pending flag,
// and queues the byte. It never blocks; a byte arriving while the queue is
// full is counted as dropped by the queue.
func (r *Receiver) HandleInterrupt() {
	b := r.reg.ReadData()
	r.queue.TryPush(b)
}
