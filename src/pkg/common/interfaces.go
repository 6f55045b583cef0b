package common

import "go.uber.org/zap"

// WAL is the slice of the log manager the buffer pool needs to enforce
// the write-ahead invariant: a page write must be preceded by a log
// flush through the page's justifying LSN.
type WAL interface {
	Flush(lsn LSN) error
}

type Logger interface {
	Debugf(template string, args ...any)
	Infof(template string, args ...any)
	Warnf(template string, args ...any)
	Errorf(template string, args ...any)
	Sync() error
}

var _ Logger = (*zap.SugaredLogger)(nil)

// NoopLogger is used by tests and by components constructed without an
// explicit logger.
func NoopLogger() Logger {
	return zap.NewNop().Sugar()
}
