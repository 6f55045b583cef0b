package recovery

import (
	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/PageDB/src/pkg/common"
	"github.com/Blackdeer1524/PageDB/src/storage/page"
)

// On-disk layouts, all values big-endian:
//
//	CHECKPOINT             type:4
//	START/COMMIT/ROLLBACK  type:4 | txnum:4
//	SETINT                 type:4 | txnum:4 | file:4+n | blknum:4 | offset:4 | oldval:4
//	SETSTRING              type:4 | txnum:4 | file:4+n | blknum:4 | offset:4 | oldval:4+n

const (
	txPos = page.Int32Size
	fPos  = 2 * page.Int32Size
)

func (r StartRecord) MarshalBinary() ([]byte, error) {
	return marshalTxnOnly(TypeStart, r.txnum)
}

func (r CommitRecord) MarshalBinary() ([]byte, error) {
	return marshalTxnOnly(TypeCommit, r.txnum)
}

func (r RollbackRecord) MarshalBinary() ([]byte, error) {
	return marshalTxnOnly(TypeRollback, r.txnum)
}

func (r CheckpointRecord) MarshalBinary() ([]byte, error) {
	p := page.New(page.Int32Size)
	if err := p.SetInt(0, int32(TypeCheckpoint)); err != nil {
		return nil, err
	}

	return p.Contents(), nil
}

func (r SetIntRecord) MarshalBinary() ([]byte, error) {
	p, vpos, err := marshalSetPrefix(TypeSetInt, r.txnum, r.blk, r.offset, page.Int32Size)
	if err != nil {
		return nil, err
	}

	if err := p.SetInt(vpos, r.val); err != nil {
		return nil, err
	}

	return p.Contents(), nil
}

func (r SetStringRecord) MarshalBinary() ([]byte, error) {
	p, vpos, err := marshalSetPrefix(TypeSetString, r.txnum, r.blk, r.offset, page.MaxLength(len(r.val)))
	if err != nil {
		return nil, err
	}

	if err := p.SetString(vpos, r.val); err != nil {
		return nil, err
	}

	return p.Contents(), nil
}

func marshalTxnOnly(t RecordType, txnum common.TxnID) ([]byte, error) {
	p := page.New(2 * page.Int32Size)
	if err := p.SetInt(0, int32(t)); err != nil {
		return nil, err
	}

	if err := p.SetInt(txPos, int32(txnum)); err != nil {
		return nil, err
	}

	return p.Contents(), nil
}

func marshalSetPrefix(
	t RecordType,
	txnum common.TxnID,
	blk common.BlockID,
	offset int,
	valSize int,
) (*page.Page, int, error) {
	bpos := fPos + page.MaxLength(len(blk.File))
	opos := bpos + page.Int32Size
	vpos := opos + page.Int32Size

	p := page.New(vpos + valSize)

	if err := p.SetInt(0, int32(t)); err != nil {
		return nil, 0, err
	}

	if err := p.SetInt(txPos, int32(txnum)); err != nil {
		return nil, 0, err
	}

	if err := p.SetString(fPos, blk.File); err != nil {
		return nil, 0, err
	}

	if err := p.SetInt(bpos, blk.Num); err != nil {
		return nil, 0, err
	}

	//nolint:gosec
	if err := p.SetInt(opos, int32(offset)); err != nil {
		return nil, 0, err
	}

	return p, vpos, nil
}

// ParseLogRecord decodes one raw record. An unknown tag or a truncated
// buffer yields ErrCorruptLogRecord: recovery must not scan past it.
func ParseLogRecord(raw []byte) (LogRecord, error) {
	p := page.FromBytes(raw)

	tag, err := p.GetInt(0)
	if err != nil {
		return nil, errors.Wrap(common.ErrCorruptLogRecord, "missing type tag")
	}

	switch RecordType(tag) {
	case TypeCheckpoint:
		return CheckpointRecord{}, nil
	case TypeStart, TypeCommit, TypeRollback:
		txnum, err := p.GetInt(txPos)
		if err != nil {
			return nil, errors.Wrapf(common.ErrCorruptLogRecord, "truncated record of type %d", tag)
		}

		switch RecordType(tag) {
		case TypeStart:
			return NewStartRecord(common.TxnID(txnum)), nil
		case TypeCommit:
			return NewCommitRecord(common.TxnID(txnum)), nil
		default:
			return NewRollbackRecord(common.TxnID(txnum)), nil
		}
	case TypeSetInt:
		txnum, blk, offset, vpos, err := parseSetPrefix(p)
		if err != nil {
			return nil, err
		}

		val, err := p.GetInt(vpos)
		if err != nil {
			return nil, errors.Wrap(common.ErrCorruptLogRecord, "truncated SETINT value")
		}

		return NewSetIntRecord(txnum, blk, offset, val), nil
	case TypeSetString:
		txnum, blk, offset, vpos, err := parseSetPrefix(p)
		if err != nil {
			return nil, err
		}

		val, err := p.GetString(vpos)
		if err != nil {
			return nil, errors.Wrap(common.ErrCorruptLogRecord, "truncated SETSTRING value")
		}

		return NewSetStringRecord(txnum, blk, offset, val), nil
	default:
		return nil, errors.Wrapf(common.ErrCorruptLogRecord, "unknown record type %d", tag)
	}
}

func parseSetPrefix(p *page.Page) (common.TxnID, common.BlockID, int, int, error) {
	fail := func() (common.TxnID, common.BlockID, int, int, error) {
		return 0, common.BlockID{}, 0, 0, errors.Wrap(common.ErrCorruptLogRecord, "truncated SET record")
	}

	txnum, err := p.GetInt(txPos)
	if err != nil {
		return fail()
	}

	filename, err := p.GetString(fPos)
	if err != nil {
		return fail()
	}

	bpos := fPos + page.MaxLength(len(filename))

	blknum, err := p.GetInt(bpos)
	if err != nil {
		return fail()
	}

	offset, err := p.GetInt(bpos + page.Int32Size)
	if err != nil {
		return fail()
	}

	blk := common.BlockID{File: filename, Num: blknum}
	vpos := bpos + 2*page.Int32Size

	return common.TxnID(txnum), blk, int(offset), vpos, nil
}
