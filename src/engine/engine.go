package engine

import (
	"sync/atomic"

	"github.com/go-faster/errors"
	"github.com/spf13/afero"

	"github.com/Blackdeer1524/PageDB/src/bufferpool"
	"github.com/Blackdeer1524/PageDB/src/cfg"
	"github.com/Blackdeer1524/PageDB/src/pkg/common"
	"github.com/Blackdeer1524/PageDB/src/recovery"
	"github.com/Blackdeer1524/PageDB/src/storage/disk"
	"github.com/Blackdeer1524/PageDB/src/transactions"
	"github.com/Blackdeer1524/PageDB/src/txns"
)

// Engine is the single context object owning the shared state of one
// database instance: the disk manager, the log, the buffer pool and
// the lock table. Constructed once; every transaction references it.
type Engine struct {
	cfg cfg.Config
	fs  afero.Fs
	log common.Logger

	disk      *disk.Manager
	wal       *recovery.LogManager
	pool      *bufferpool.Manager
	lockTable *txns.LockTable

	nextTxn atomic.Int32
}

// New wires the engine together and runs crash recovery. No Begin is
// possible before New returns.
func New(c cfg.Config, fs afero.Fs, logger common.Logger) (*Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	d, err := disk.New(fs, c.DataDir, c.BlockSize)
	if err != nil {
		return nil, errors.Wrap(err, "disk manager")
	}

	wal, err := recovery.NewLogManager(d, c.LogFile, logger)
	if err != nil {
		return nil, errors.Wrap(err, "log manager")
	}

	e := &Engine{
		cfg:       c,
		fs:        fs,
		log:       logger,
		disk:      d,
		wal:       wal,
		pool:      bufferpool.New(d, wal, c.PoolSize, c.PinTimeout, logger),
		lockTable: txns.NewLockTable(c.LockTimeout),
	}

	if d.IsNew() {
		logger.Infof("created new database in %s", c.DataDir)
	} else {
		logger.Infof("recovering existing database in %s", c.DataDir)
	}

	tx, err := e.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "recovery transaction")
	}

	if err := tx.Recover(); err != nil {
		// an engine that cannot recover must not serve transactions
		return nil, err
	}

	return e, nil
}

func (e *Engine) Begin() (*transactions.Transaction, error) {
	txnum := common.TxnID(e.nextTxn.Add(1))

	return transactions.New(txnum, e.disk, e.wal, e.pool, e.lockTable, e.log)
}

// LogIterator exposes the reverse log scan for inspection tooling.
func (e *Engine) LogIterator() (*recovery.Iterator, error) {
	return e.wal.Iterator()
}

func (e *Engine) BlockSize() int {
	return e.disk.BlockSize()
}

// Close flushes the log tail and closes the underlying files. Dirty
// data pages of uncommitted transactions are deliberately not forced:
// recovery handles them on the next start.
func (e *Engine) Close() error {
	if err := e.wal.Flush(e.wal.LatestLSN()); err != nil {
		return errors.Wrap(err, "flush log at close")
	}

	return e.disk.Close()
}
