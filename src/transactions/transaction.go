package transactions

import (
	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/PageDB/src/bufferpool"
	"github.com/Blackdeer1524/PageDB/src/pkg/common"
	"github.com/Blackdeer1524/PageDB/src/recovery"
	"github.com/Blackdeer1524/PageDB/src/storage/disk"
	"github.com/Blackdeer1524/PageDB/src/txns"
)

// Transaction is the unit of work exposed to the rest of the engine.
// It acquires a lock before touching a block, has the recovery manager
// log the pre-image, mutates the pinned buffer, and at the end either
// commits (force pages, durable COMMIT) or rolls back (undo by reverse
// log scan). Locks and pins are released only at commit/rollback
// completion.
//
// One goroutine drives one transaction.
type Transaction struct {
	txnum common.TxnID
	log   common.Logger

	fm      *disk.Manager
	bm      *bufferpool.Manager
	rm      *recovery.Manager
	cm      *txns.Manager
	buffers *bufferList
}

var _ recovery.UndoTarget = (*Transaction)(nil)

// New starts a transaction: it is assigned the given id and its START
// record is appended to the log.
func New(
	txnum common.TxnID,
	fm *disk.Manager,
	lm *recovery.LogManager,
	bm *bufferpool.Manager,
	lockTable *txns.LockTable,
	logger common.Logger,
) (*Transaction, error) {
	rm, err := recovery.NewManager(txnum, lm, bm)
	if err != nil {
		return nil, errors.Wrap(err, "start transaction")
	}

	return &Transaction{
		txnum:   txnum,
		log:     logger,
		fm:      fm,
		bm:      bm,
		rm:      rm,
		cm:      txns.NewManager(lockTable),
		buffers: newBufferList(bm),
	}, nil
}

func (t *Transaction) ID() common.TxnID {
	return t.txnum
}

func (t *Transaction) Commit() error {
	if err := t.rm.Commit(); err != nil {
		return errors.Wrapf(err, "commit txn %d", t.txnum)
	}

	t.cm.Release()
	t.buffers.unpinAll()

	t.log.Debugf("transaction %d committed", t.txnum)

	return nil
}

func (t *Transaction) Rollback() error {
	if err := t.rm.Rollback(t); err != nil {
		return errors.Wrapf(err, "rollback txn %d", t.txnum)
	}

	t.cm.Release()
	t.buffers.unpinAll()

	t.log.Debugf("transaction %d rolled back", t.txnum)

	return nil
}

// Recover runs crash recovery. Meant for the engine's startup
// transaction only, before any other transaction exists.
func (t *Transaction) Recover() error {
	if err := t.rm.Recover(t); err != nil {
		return errors.Wrap(err, "recover")
	}

	t.cm.Release()
	t.buffers.unpinAll()

	t.log.Infof("recovery completed")

	return nil
}

func (t *Transaction) Pin(blk common.BlockID) error {
	return t.buffers.pin(blk)
}

func (t *Transaction) Unpin(blk common.BlockID) {
	t.buffers.unpin(blk)
}

func (t *Transaction) GetInt(blk common.BlockID, offset int) (int32, error) {
	if err := t.cm.SLock(blk); err != nil {
		return 0, err
	}

	buff, ok := t.buffers.getBuffer(blk)
	if !ok {
		return 0, errors.Errorf("block %v is not pinned by txn %d", blk, t.txnum)
	}

	return buff.Contents().GetInt(offset)
}

func (t *Transaction) GetString(blk common.BlockID, offset int) (string, error) {
	if err := t.cm.SLock(blk); err != nil {
		return "", err
	}

	buff, ok := t.buffers.getBuffer(blk)
	if !ok {
		return "", errors.Errorf("block %v is not pinned by txn %d", blk, t.txnum)
	}

	return buff.Contents().GetString(offset)
}

func (t *Transaction) SetInt(blk common.BlockID, offset int, val int32) error {
	return t.setInt(blk, offset, val, true)
}

func (t *Transaction) SetString(blk common.BlockID, offset int, val string) error {
	return t.setString(blk, offset, val, true)
}

// RestoreInt writes a pre-image back during undo. Undo writes are not
// re-logged: they are justified by the records already in the log.
func (t *Transaction) RestoreInt(blk common.BlockID, offset int, val int32) error {
	return t.setInt(blk, offset, val, false)
}

func (t *Transaction) RestoreString(blk common.BlockID, offset int, val string) error {
	return t.setString(blk, offset, val, false)
}

func (t *Transaction) setInt(blk common.BlockID, offset int, val int32, okToLog bool) error {
	if err := t.cm.XLock(blk); err != nil {
		return err
	}

	buff, ok := t.buffers.getBuffer(blk)
	if !ok {
		return errors.Errorf("block %v is not pinned by txn %d", blk, t.txnum)
	}

	lsn := common.NilLSN
	if okToLog {
		var err error
		if lsn, err = t.rm.SetInt(buff, offset); err != nil {
			return err
		}
	}

	if err := buff.Contents().SetInt(offset, val); err != nil {
		return err
	}

	buff.SetModified(t.txnum, lsn)

	return nil
}

func (t *Transaction) setString(blk common.BlockID, offset int, val string, okToLog bool) error {
	if err := t.cm.XLock(blk); err != nil {
		return err
	}

	buff, ok := t.buffers.getBuffer(blk)
	if !ok {
		return errors.Errorf("block %v is not pinned by txn %d", blk, t.txnum)
	}

	lsn := common.NilLSN
	if okToLog {
		var err error
		if lsn, err = t.rm.SetString(buff, offset); err != nil {
			return err
		}
	}

	if err := buff.Contents().SetString(offset, val); err != nil {
		return err
	}

	buff.SetModified(t.txnum, lsn)

	return nil
}

// Size reports the block count of a file. Takes a shared lock on the
// file's end-of-file marker so a concurrent Append cannot move it.
func (t *Transaction) Size(filename string) (int32, error) {
	if err := t.cm.SLock(common.EOFBlock(filename)); err != nil {
		return 0, err
	}

	return t.fm.Length(filename)
}

// Append extends the file by one block under an exclusive end-of-file
// lock.
func (t *Transaction) Append(filename string) (common.BlockID, error) {
	if err := t.cm.XLock(common.EOFBlock(filename)); err != nil {
		return common.BlockID{}, err
	}

	return t.fm.Append(filename)
}

func (t *Transaction) BlockSize() int {
	return t.fm.BlockSize()
}

func (t *Transaction) AvailableBuffs() int {
	return t.bm.Available()
}
