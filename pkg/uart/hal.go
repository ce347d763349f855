// Package uart provides the receive path of the serial console: the
// interrupt handler that fills the receive queue and the reader that drains
// it from the main loop.
package uart

// Peripheral bring-up (clocks, pin multiplexing, baud rate) happens outside
// this package. The core only sees the peripheral through the interfaces
// below.

// DataRegister is the receive data register of the peripheral.
// Reading it clears the "byte ready" flag.
type DataRegister interface {
	ReadData() byte
}

// StatusRegister exposes the receive ready flag.
type StatusRegister interface {
	RxReady() bool
}

// Transmitter writes one byte to the outbound line, blocking until the
// peripheral accepts it.
type Transmitter interface {
	Transmit(b byte)
}

// Pin identifies a logical output.
type Pin uint8

// GPIO reads and writes logical outputs.
type GPIO interface {
	SetOutput(pin Pin, level bool)
	GetOutput(pin Pin) bool
}

// Hardware is everything a Port needs from the peripheral.
type Hardware interface {
	DataRegister
	StatusRegister
	Transmitter
}
