// Package websocket serves the serial console over websocket connections.
package websocket

import (
	"sync"
	"time"

	"golang.org/x/net/websocket"
)

// DefaultWriteTimeout bounds sending one message to a client.
const DefaultWriteTimeout = 5 * time.Second

// ReadWriter exchanges raw serial bytes as websocket messages.
type ReadWriter struct {
	Conn *websocket.Conn
	// WriteTimeout bounds each WritePacket. Zero means no deadline.
	WriteTimeout time.Duration

	sendLock sync.Mutex
}

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return &ReadWriter{Conn: conn, WriteTimeout: DefaultWriteTimeout}
}

// ReadPacket receives the bytes of one message.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive(p.Conn, &pkt)
	return
}

// WritePacket sends pkt as one binary message.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	p.sendLock.Lock()
	defer p.sendLock.Unlock()
	if p.WriteTimeout > 0 {
		if err := p.Conn.SetWriteDeadline(time.Now().Add(p.WriteTimeout)); err != nil {
			return err
		}
	}
	return websocket.Message.Send(p.Conn, pkt)
}

// Write implements io.Writer.
func (p *ReadWriter) Write(b []byte) (int, error) {
	if err := p.WritePacket(b); err != nil {
		return 0, err
	}
	return len(b), nil
}
