package framework

import (
	"context"
	"io"
)

// RunWithCloser runs fn, which blocks on I/O that cannot observe ctx.
// When ctx is done, closer is closed to unblock fn. closer is always closed
// before RunWithCloser returns.
func RunWithCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		closer.Close()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		closer.Close()
		return err
	}
}
