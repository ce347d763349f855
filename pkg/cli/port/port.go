// Package port opens the host side of a console line.
package port

import (
	"fmt"
	"io"
	"strings"

	"github.com/golang/glog"
	"go.bug.st/serial"
	"golang.org/x/net/websocket"
)

// DefaultOrigin is the origin sent when dialing a websocket console.
const DefaultOrigin = "http://localhost/"

// IsWebSocket reports whether name is a websocket URL.
func IsWebSocket(name string) bool {
	return strings.HasPrefix(name, "ws://") || strings.HasPrefix(name, "wss://")
}

// Open opens name, which is either a ws:// URL served by uartsim or a
// serial device opened with 8N1 framing at baudRate.
func Open(name string, baudRate int) (io.ReadWriteCloser, error) {
	if name == "" {
		return nil, fmt.Errorf("port not specified")
	}
	if IsWebSocket(name) {
		conn, err := DialWebSocket(name)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	p, err := OpenSerial(name, baudRate)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// OpenSerial opens a serial device.
func OpenSerial(name string, baudRate int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	glog.V(2).Infof("port: open %s at %d baud", name, baudRate)
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", name, err)
	}
	return p, nil
}

// DialWebSocket connects to a websocket console.
func DialWebSocket(url string) (*websocket.Conn, error) {
	glog.V(2).Infof("port: dial %s", url)
	conn, err := websocket.Dial(url, "", DefaultOrigin)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %v", url, err)
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}

// List returns the serial devices present on the host.
func List() ([]string, error) {
	return serial.GetPortsList()
}
