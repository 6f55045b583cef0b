package recovery

import (
	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/PageDB/src/pkg/common"
	"github.com/Blackdeer1524/PageDB/src/storage/disk"
	"github.com/Blackdeer1524/PageDB/src/storage/page"
)

// Iterator walks the log in reverse: blocks newest to oldest, and
// records newest-first within each block (records sit right-to-left
// between the boundary offset and the block end).
type Iterator struct {
	disk       *disk.Manager
	blk        common.BlockID
	p          *page.Page
	currentPos int
	boundary   int
}

func newIterator(d *disk.Manager, blk common.BlockID) (*Iterator, error) {
	it := &Iterator{
		disk: d,
		p:    page.New(d.BlockSize()),
	}

	if err := it.moveToBlock(blk); err != nil {
		return nil, err
	}

	return it, nil
}

func (it *Iterator) HasNext() bool {
	return it.currentPos < it.disk.BlockSize() || it.blk.Num > 0
}

// Next returns the raw bytes of the next (older) record.
func (it *Iterator) Next() ([]byte, error) {
	if !it.HasNext() {
		return nil, errors.New("log iterator exhausted")
	}

	if it.currentPos == it.disk.BlockSize() {
		prev := common.BlockID{File: it.blk.File, Num: it.blk.Num - 1}
		if err := it.moveToBlock(prev); err != nil {
			return nil, err
		}
	}

	rec, err := it.p.GetBytes(it.currentPos)
	if err != nil {
		return nil, errors.Wrapf(err, "log record at %v:%d", it.blk, it.currentPos)
	}

	it.currentPos += page.Int32Size + len(rec)

	return rec, nil
}

func (it *Iterator) moveToBlock(blk common.BlockID) error {
	if err := it.disk.Read(blk, it.p); err != nil {
		return errors.Wrapf(err, "read log block %v", blk)
	}

	boundary, err := it.p.GetInt(0)
	if err != nil {
		return err
	}

	if int(boundary) < page.Int32Size || int(boundary) > it.disk.BlockSize() {
		return errors.Wrapf(common.ErrCorruptLogRecord, "bad boundary %d in block %v", boundary, blk)
	}

	it.blk = blk
	it.boundary = int(boundary)
	it.currentPos = it.boundary

	return nil
}
