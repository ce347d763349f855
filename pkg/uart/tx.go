package uart

// WriteString transmits s byte by byte.
func WriteString(tx Transmitter, s string) {
	for i := 0; i < len(s); i++ {
		tx.Transmit(s[i])
	}
}

// Writer adapts a Transmitter to io.Writer. Writes never fail.
type Writer struct {
	Tx Transmitter
}

// Write implements io.Writer.
func (w Writer) Write(p []byte) (int, error) {
	for _, b := range p {
		w.Tx.Transmit(b)
	}
	return len(p), nil
}
