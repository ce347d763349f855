package mqtt

import (
	"bytes"
	"sync"
)

// outboxLimit forces a flush of long output without line endings.
const outboxLimit = 256

// outbox collects transmitted bytes and hands them out in chunks that end
// at a line ending or a prompt.
type outbox struct {
	lock    sync.Mutex
	buf     bytes.Buffer
	prompt  []byte
	flushFn func([]byte)
}

// Write implements io.Writer.
func (o *outbox) Write(p []byte) (int, error) {
	o.lock.Lock()
	o.buf.Write(p)
	var chunk []byte
	data := o.buf.Bytes()
	if len(data) >= outboxLimit || bytes.HasSuffix(data, []byte("\n")) ||
		(len(o.prompt) > 0 && bytes.HasSuffix(data, o.prompt)) {
		chunk = o.take()
	}
	o.lock.Unlock()
	if chunk != nil {
		o.flushFn(chunk)
	}
	return len(p), nil
}

// Flush hands out whatever is pending.
func (o *outbox) Flush() {
	o.lock.Lock()
	chunk := o.take()
	o.lock.Unlock()
	if chunk != nil {
		o.flushFn(chunk)
	}
}

func (o *outbox) take() []byte {
	if o.buf.Len() == 0 {
		return nil
	}
	chunk := append([]byte(nil), o.buf.Bytes()...)
	o.buf.Reset()
	return chunk
}
