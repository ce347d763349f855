package uart

import (
	"errors"
	"fmt"
)

// ErrDataLoss indicates received bytes were discarded because the receive
// queue was full.
var ErrDataLoss = errors.New("receive overflow")

// DataLossError reports how many bytes were discarded.
type DataLossError struct {
	Dropped uint64
}

// Error implements error.
func (e *DataLossError) Error() string {
	return fmt.Sprintf("receive overflow: %d bytes dropped", e.Dropped)
}

// Is matches ErrDataLoss.
func (e *DataLossError) Is(target error) bool {
	return target == ErrDataLoss
}
