package recovery

import (
	"fmt"

	"github.com/Blackdeer1524/PageDB/src/pkg/common"
)

// RecordType tags the closed set of log record variants. The numeric
// values are part of the on-disk format and fixed for the life of a
// log.
type RecordType int32

const (
	TypeCheckpoint RecordType = iota
	TypeStart
	TypeCommit
	TypeRollback
	TypeSetInt
	TypeSetString
)

// UndoTarget is the slice of a transaction that record undo needs:
// pin the block, put the pre-image back without re-logging, unpin.
type UndoTarget interface {
	Pin(blk common.BlockID) error
	Unpin(blk common.BlockID)
	RestoreInt(blk common.BlockID, offset int, val int32) error
	RestoreString(blk common.BlockID, offset int, val string) error
}

type LogRecord interface {
	fmt.Stringer

	Op() RecordType
	TxNum() common.TxnID
	Undo(tx UndoTarget) error
}

type StartRecord struct {
	txnum common.TxnID
}

func NewStartRecord(txnum common.TxnID) StartRecord {
	return StartRecord{txnum: txnum}
}

func (r StartRecord) Op() RecordType          { return TypeStart }
func (r StartRecord) TxNum() common.TxnID     { return r.txnum }
func (r StartRecord) Undo(_ UndoTarget) error { return nil }

func (r StartRecord) String() string {
	return fmt.Sprintf("<START %d>", r.txnum)
}

type CommitRecord struct {
	txnum common.TxnID
}

func NewCommitRecord(txnum common.TxnID) CommitRecord {
	return CommitRecord{txnum: txnum}
}

func (r CommitRecord) Op() RecordType          { return TypeCommit }
func (r CommitRecord) TxNum() common.TxnID     { return r.txnum }
func (r CommitRecord) Undo(_ UndoTarget) error { return nil }

func (r CommitRecord) String() string {
	return fmt.Sprintf("<COMMIT %d>", r.txnum)
}

type RollbackRecord struct {
	txnum common.TxnID
}

func NewRollbackRecord(txnum common.TxnID) RollbackRecord {
	return RollbackRecord{txnum: txnum}
}

func (r RollbackRecord) Op() RecordType          { return TypeRollback }
func (r RollbackRecord) TxNum() common.TxnID     { return r.txnum }
func (r RollbackRecord) Undo(_ UndoTarget) error { return nil }

func (r RollbackRecord) String() string {
	return fmt.Sprintf("<ROLLBACK %d>", r.txnum)
}

type CheckpointRecord struct{}

func NewCheckpointRecord() CheckpointRecord {
	return CheckpointRecord{}
}

func (r CheckpointRecord) Op() RecordType          { return TypeCheckpoint }
func (r CheckpointRecord) TxNum() common.TxnID     { return common.NilTxnID }
func (r CheckpointRecord) Undo(_ UndoTarget) error { return nil }

func (r CheckpointRecord) String() string {
	return "<CHECKPOINT>"
}

// SetIntRecord stores the pre-image of an int32 write. Undo-only
// logging: the new value never reaches the log.
type SetIntRecord struct {
	txnum  common.TxnID
	blk    common.BlockID
	offset int
	val    int32
}

func NewSetIntRecord(txnum common.TxnID, blk common.BlockID, offset int, oldVal int32) SetIntRecord {
	return SetIntRecord{
		txnum:  txnum,
		blk:    blk,
		offset: offset,
		val:    oldVal,
	}
}

func (r SetIntRecord) Op() RecordType      { return TypeSetInt }
func (r SetIntRecord) TxNum() common.TxnID { return r.txnum }

func (r SetIntRecord) Undo(tx UndoTarget) error {
	if err := tx.Pin(r.blk); err != nil {
		return err
	}
	defer tx.Unpin(r.blk)

	return tx.RestoreInt(r.blk, r.offset, r.val)
}

func (r SetIntRecord) String() string {
	return fmt.Sprintf("<SETINT %d %v %d %d>", r.txnum, r.blk, r.offset, r.val)
}

type SetStringRecord struct {
	txnum  common.TxnID
	blk    common.BlockID
	offset int
	val    string
}

func NewSetStringRecord(txnum common.TxnID, blk common.BlockID, offset int, oldVal string) SetStringRecord {
	return SetStringRecord{
		txnum:  txnum,
		blk:    blk,
		offset: offset,
		val:    oldVal,
	}
}

func (r SetStringRecord) Op() RecordType      { return TypeSetString }
func (r SetStringRecord) TxNum() common.TxnID { return r.txnum }

func (r SetStringRecord) Undo(tx UndoTarget) error {
	if err := tx.Pin(r.blk); err != nil {
		return err
	}
	defer tx.Unpin(r.blk)

	return tx.RestoreString(r.blk, r.offset, r.val)
}

func (r SetStringRecord) String() string {
	return fmt.Sprintf("<SETSTRING %d %v %d %s>", r.txnum, r.blk, r.offset, r.val)
}
