package sh

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/uartcon/pkg/console"
)

var (
	// ErrTimeout is returned when the device does not prompt again in time.
	ErrTimeout = errors.New("command timeout")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("connection closed")
)

// DefaultTimeout is how long DoCommand waits for the next prompt.
const DefaultTimeout = time.Second

// Conn drives the console of a device over a line.
type Conn struct {
	Name string

	rw        io.ReadWriteCloser
	dataCh    chan []byte
	err       error
	cmdLock   sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

// NewConn starts receiving from rw.
func NewConn(name string, rw io.ReadWriteCloser) *Conn {
	c := &Conn{
		Name:   name,
		rw:     rw,
		dataCh: make(chan []byte, 64),
		closed: make(chan struct{}),
	}
	go c.receive()
	return c
}

// receive is the only sender on dataCh and closes it when it returns.
func (c *Conn) receive() {
	defer close(c.dataCh)
	buf := make([]byte, 256)
	for {
		select {
		case <-c.closed:
			c.err = ErrClosed
			return
		default:
		}
		n, err := c.rw.Read(buf)
		if n > 0 {
			glog.V(3).Infof("conn %s: recv %q", c.Name, buf[:n])
			select {
			case c.dataCh <- append([]byte(nil), buf[:n]...):
			case <-c.closed:
				c.err = ErrClosed
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				glog.Warningf("conn %s: %v", c.Name, err)
			}
			c.err = err
			return
		}
	}
}

// Close closes the line and stops receiving.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.rw.Close()
	})
	return err
}

// discard drops output received before a command, like the banner.
func (c *Conn) discard() {
	for {
		select {
		case _, ok := <-c.dataCh:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// DoCommand sends line terminated by CR and returns what the device
// printed between the echo of line and the next prompt.
func (c *Conn) DoCommand(line string, timeout time.Duration) (string, error) {
	c.cmdLock.Lock()
	defer c.cmdLock.Unlock()

	c.discard()
	glog.V(2).Infof("conn %s: send %q", c.Name, line)
	if _, err := io.WriteString(c.rw, line+"\r"); err != nil {
		return "", err
	}

	var out bytes.Buffer
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case data, ok := <-c.dataCh:
			if !ok {
				if c.err == nil || c.err == io.EOF {
					return "", io.ErrUnexpectedEOF
				}
				return "", c.err
			}
			out.Write(data)
			if reply, ok := ExtractReply(line, out.String()); ok {
				return reply, nil
			}
		case <-timer.C:
			return out.String(), ErrTimeout
		}
	}
}

// ExtractReply finds the reply to line in raw output. It reports false
// until raw holds the echo of line followed by a complete reply ending
// with the prompt.
func ExtractReply(line, raw string) (string, bool) {
	echo := line + "\r\n"
	pos := strings.Index(raw, echo)
	if pos < 0 {
		return "", false
	}
	reply := raw[pos+len(echo):]
	if !strings.HasSuffix(reply, console.Prompt) {
		return "", false
	}
	return strings.TrimSuffix(reply, console.Prompt), true
}
