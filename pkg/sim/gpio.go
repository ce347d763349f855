package sim

import (
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/uartcon/pkg/uart"
)

// Pins emulates a bank of output pins.
type Pins struct {
	levels [256]atomic.Bool
}

// SetOutput implements uart.GPIO.
func (p *Pins) SetOutput(pin uart.Pin, level bool) {
	if old := p.levels[pin].Swap(level); old != level {
		glog.V(1).Infof("gpio: pin %d -> %v", pin, level)
	}
}

// GetOutput implements uart.GPIO.
func (p *Pins) GetOutput(pin uart.Pin) bool {
	return p.levels[pin].Load()
}
