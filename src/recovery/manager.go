package recovery

import (
	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/PageDB/src/bufferpool"
	"github.com/Blackdeer1524/PageDB/src/pkg/common"
)

// Manager is the per-transaction recovery facade. It logs physical
// pre-images ahead of every mutation and implements rollback and crash
// recovery as undo-only backward scans of the log.
type Manager struct {
	lm    *LogManager
	bm    *bufferpool.Manager
	txnum common.TxnID
}

// NewManager appends the transaction's START record as a side effect.
func NewManager(txnum common.TxnID, lm *LogManager, bm *bufferpool.Manager) (*Manager, error) {
	rec, err := NewStartRecord(txnum).MarshalBinary()
	if err != nil {
		return nil, err
	}

	if _, err := lm.Append(rec); err != nil {
		return nil, errors.Wrap(err, "log start")
	}

	return &Manager{
		lm:    lm,
		bm:    bm,
		txnum: txnum,
	}, nil
}

// Commit forces the transaction's dirty pages (force-at-commit policy,
// no redo path exists), then makes the COMMIT record durable. Once it
// returns, the transaction's effects survive any crash.
func (rm *Manager) Commit() error {
	if err := rm.bm.FlushAll(rm.txnum); err != nil {
		return errors.Wrap(err, "flush pages at commit")
	}

	rec, err := NewCommitRecord(rm.txnum).MarshalBinary()
	if err != nil {
		return err
	}

	lsn, err := rm.lm.Append(rec)
	if err != nil {
		return errors.Wrap(err, "log commit")
	}

	return rm.lm.Flush(lsn)
}

// Rollback undoes the transaction's own updates, newest first, then
// logs ROLLBACK.
func (rm *Manager) Rollback(tx UndoTarget) error {
	if err := rm.doRollback(tx); err != nil {
		return err
	}

	if err := rm.bm.FlushAll(rm.txnum); err != nil {
		return errors.Wrap(err, "flush pages at rollback")
	}

	rec, err := NewRollbackRecord(rm.txnum).MarshalBinary()
	if err != nil {
		return err
	}

	lsn, err := rm.lm.Append(rec)
	if err != nil {
		return errors.Wrap(err, "log rollback")
	}

	return rm.lm.Flush(lsn)
}

// Recover undoes every update of every unfinished transaction, then
// writes a quiescent checkpoint. Runs once at engine startup, before
// any transaction is accepted.
func (rm *Manager) Recover(tx UndoTarget) error {
	if err := rm.doRecover(tx); err != nil {
		return err
	}

	if err := rm.bm.FlushDirty(); err != nil {
		return errors.Wrap(err, "flush pages after recovery")
	}

	rec, err := NewCheckpointRecord().MarshalBinary()
	if err != nil {
		return err
	}

	lsn, err := rm.lm.Append(rec)
	if err != nil {
		return errors.Wrap(err, "log checkpoint")
	}

	return rm.lm.Flush(lsn)
}

// SetInt logs the pre-image of an int32 write and returns the record's
// LSN. The caller performs the actual write afterwards and stamps the
// buffer with this LSN.
func (rm *Manager) SetInt(buff *bufferpool.Buffer, offset int) (common.LSN, error) {
	oldVal, err := buff.Contents().GetInt(offset)
	if err != nil {
		return common.NilLSN, err
	}

	blk, ok := buff.Block()
	if !ok {
		return common.NilLSN, errors.New("buffer is not assigned to a block")
	}

	rec, err := NewSetIntRecord(rm.txnum, blk, offset, oldVal).MarshalBinary()
	if err != nil {
		return common.NilLSN, err
	}

	return rm.lm.Append(rec)
}

func (rm *Manager) SetString(buff *bufferpool.Buffer, offset int) (common.LSN, error) {
	oldVal, err := buff.Contents().GetString(offset)
	if err != nil {
		return common.NilLSN, err
	}

	blk, ok := buff.Block()
	if !ok {
		return common.NilLSN, errors.New("buffer is not assigned to a block")
	}

	rec, err := NewSetStringRecord(rm.txnum, blk, offset, oldVal).MarshalBinary()
	if err != nil {
		return common.NilLSN, err
	}

	return rm.lm.Append(rec)
}

func (rm *Manager) doRollback(tx UndoTarget) error {
	iter, err := rm.lm.Iterator()
	if err != nil {
		return err
	}

	for iter.HasNext() {
		raw, err := iter.Next()
		if err != nil {
			return err
		}

		rec, err := ParseLogRecord(raw)
		if err != nil {
			return err
		}

		if rec.TxNum() != rm.txnum {
			continue
		}

		if rec.Op() == TypeStart {
			return nil
		}

		if err := rec.Undo(tx); err != nil {
			return errors.Wrapf(err, "undo %v", rec)
		}
	}

	return nil
}

func (rm *Manager) doRecover(tx UndoTarget) error {
	iter, err := rm.lm.Iterator()
	if err != nil {
		return err
	}

	finished := make(map[common.TxnID]struct{})

	for iter.HasNext() {
		raw, err := iter.Next()
		if err != nil {
			return err
		}

		rec, err := ParseLogRecord(raw)
		if err != nil {
			return err
		}

		switch rec.Op() {
		case TypeCheckpoint:
			// sound bound: checkpoints are written only with zero
			// transactions active
			return nil
		case TypeCommit, TypeRollback:
			finished[rec.TxNum()] = struct{}{}
		default:
			if _, ok := finished[rec.TxNum()]; !ok {
				if err := rec.Undo(tx); err != nil {
					return errors.Wrapf(err, "undo %v", rec)
				}
			}
		}
	}

	return nil
}
