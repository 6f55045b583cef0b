package common

import "github.com/go-faster/errors"

var (
	// ErrLockTimeout is returned when a lock request waited out its
	// deadline. The caller is expected to roll the transaction back.
	ErrLockTimeout = errors.New("lock request timed out")

	// ErrNoAvailableBuffers is returned when every pool buffer stayed
	// pinned for the whole wait. Recoverable the same way as a lock
	// timeout.
	ErrNoAvailableBuffers = errors.New("no available buffers")

	// ErrCorruptLogRecord is fatal: recovery cannot proceed past a
	// record it cannot decode.
	ErrCorruptLogRecord = errors.New("corrupt log record")
)
