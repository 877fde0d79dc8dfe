package peer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTarget rejects a connect attempt before any network call:
	// the target was empty, of the wrong length or our own id.
	ErrInvalidTarget = errors.New("peer: invalid target")
	// ErrConnection matches every *ConnectionError.
	ErrConnection   = errors.New("peer: connection error")
	ErrNotListening = errors.New("peer: not listening")
	ErrClosed       = errors.New("peer: closed")
)

// ConnectionError reports a failure to create the peer or to connect.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("peer %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }
