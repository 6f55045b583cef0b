package bufferpool

import (
	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/PageDB/src/pkg/common"
	"github.com/Blackdeer1524/PageDB/src/storage/page"
)

// Buffer is one pool slot: a page, the block it currently holds, a pin
// count, and - when dirty - the transaction that modified it together
// with the LSN of the log record justifying the modification.
//
// Buffer metadata is guarded by the pool mutex; page content mutation
// is serialized by the exclusive lock of the writing transaction.
type Buffer struct {
	disk DiskManager
	wal  common.WAL

	contents *page.Page
	blk      *common.BlockID
	pins     int
	txnum    common.TxnID
	lsn      common.LSN
}

func newBuffer(d DiskManager, wal common.WAL) *Buffer {
	return &Buffer{
		disk:     d,
		wal:      wal,
		contents: page.New(d.BlockSize()),
		txnum:    common.NilTxnID,
		lsn:      common.NilLSN,
	}
}

func (b *Buffer) Contents() *page.Page {
	return b.contents
}

func (b *Buffer) Block() (common.BlockID, bool) {
	if b.blk == nil {
		return common.BlockID{}, false
	}

	return *b.blk, true
}

// SetModified must be called after the mutation is logged and before
// any flush can observe the change. A NilLSN leaves the recorded LSN
// untouched (undo writes are not re-logged).
func (b *Buffer) SetModified(txnum common.TxnID, lsn common.LSN) {
	b.txnum = txnum
	if lsn != common.NilLSN {
		b.lsn = lsn
	}
}

func (b *Buffer) IsPinned() bool {
	return b.pins > 0
}

func (b *Buffer) ModifyingTxn() common.TxnID {
	return b.txnum
}

// assignToBlock reuses the buffer for another block: the old contents
// are flushed first (eviction obeys the WAL invariant too).
func (b *Buffer) assignToBlock(blk common.BlockID) error {
	if err := b.flush(); err != nil {
		return err
	}

	if err := b.disk.Read(blk, b.contents); err != nil {
		return errors.Wrapf(err, "load block %v", blk)
	}

	b.blk = &blk
	b.pins = 0

	return nil
}

// flush writes the page to disk if it is dirty. The write-ahead
// invariant lives here: the log is forced through the buffer's LSN
// before the page bytes may become durable.
func (b *Buffer) flush() error {
	if b.txnum == common.NilTxnID {
		return nil
	}

	if b.blk == nil {
		return errors.New("dirty buffer without a block assignment")
	}

	if err := b.wal.Flush(b.lsn); err != nil {
		return errors.Wrap(err, "flush log before page")
	}

	if err := b.disk.Write(*b.blk, b.contents); err != nil {
		return errors.Wrapf(err, "write block %v", *b.blk)
	}

	b.txnum = common.NilTxnID
	b.lsn = common.NilLSN

	return nil
}

func (b *Buffer) pin() {
	b.pins++
}

func (b *Buffer) unpin() {
	b.pins--
}
