package uart

import (
	"context"
	"runtime"

	"github.com/robotalks/uartcon/pkg/ring"
)

// LineReader is the consumer side of the receive queue.
type LineReader struct {
	queue *ring.Buffer
}

// NewLineReader creates a LineReader draining queue.
func NewLineReader(queue *ring.Buffer) *LineReader {
	return &LineReader{queue: queue}
}

// ReadByte polls until a byte is available. There is no timeout: if no byte
// ever arrives the caller waits forever. The returned error is always nil.
func (r *LineReader) ReadByte() (byte, error) {
	for {
		if b, ok := r.queue.TryPop(); ok {
			return b, nil
		}
		runtime.Gosched()
	}
}

// ReadByteContext is like ReadByte but gives up when ctx is done.
func (r *LineReader) ReadByteContext(ctx context.Context) (byte, error) {
	for {
		if b, ok := r.queue.TryPop(); ok {
			return b, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
			runtime.Gosched()
		}
	}
}

// DataAvailable reports whether ReadByte would return immediately.
func (r *LineReader) DataAvailable() bool {
	return !r.queue.IsEmpty()
}
