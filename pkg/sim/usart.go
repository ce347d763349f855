// Package sim emulates the serial peripheral and GPIO bank of the board so
// that the console core can run on a host.
package sim

import (
	"io"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// USART emulates the data and status registers of a serial peripheral.
//
// The receive side is driven by the interrupt context (see IRQ); the
// transmit side is only used from the main loop.
type USART struct {
	// CharTime is the time the transmitter stays busy after accepting a byte.
	CharTime time.Duration

	out io.Writer

	rxData   atomic.Uint32
	rxne     atomic.Bool
	overruns atomic.Uint64
	txFree   atomic.Int64 // UnixNano when the transmitter becomes ready
}

// NewUSART creates a USART whose transmitted bytes are written to out.
func NewUSART(out io.Writer) *USART {
	return &USART{out: out}
}

// Deliver latches b into the receive data register and raises the ready
// flag. A byte still unread is lost and counted as an overrun.
func (u *USART) Deliver(b byte) {
	if u.rxne.Load() {
		u.overruns.Add(1)
	}
	u.rxData.Store(uint32(b))
	u.rxne.Store(true)
}

// ReadData reads the receive data register and clears the ready flag.
func (u *USART) ReadData() byte {
	b := byte(u.rxData.Load())
	u.rxne.Store(false)
	return b
}

// RxReady reports the receive ready flag.
func (u *USART) RxReady() bool {
	return u.rxne.Load()
}

// Overruns returns the number of bytes lost in the data register.
func (u *USART) Overruns() uint64 {
	return u.overruns.Load()
}

// TxReady reports whether the transmitter accepts a byte.
func (u *USART) TxReady() bool {
	return time.Now().UnixNano() >= u.txFree.Load()
}

// Transmit waits until the transmitter is ready and sends b.
func (u *USART) Transmit(b byte) {
	for !u.TxReady() {
		runtime.Gosched()
	}
	if _, err := u.out.Write([]byte{b}); err != nil {
		glog.Warningf("usart: transmit: %v", err)
	}
	if u.CharTime > 0 {
		u.txFree.Store(time.Now().Add(u.CharTime).UnixNano())
	}
}
