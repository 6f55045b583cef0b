package transactions

import (
	"github.com/Blackdeer1524/PageDB/src/bufferpool"
	"github.com/Blackdeer1524/PageDB/src/pkg/common"
)

// bufferList tracks the buffers a transaction has pinned. Duplicate
// pins of the same block are counted so every Pin needs a matching
// Unpin before the buffer leaves the list.
type bufferList struct {
	bm      *bufferpool.Manager
	buffers map[common.BlockID]*bufferpool.Buffer
	pins    []common.BlockID
}

func newBufferList(bm *bufferpool.Manager) *bufferList {
	return &bufferList{
		bm:      bm,
		buffers: make(map[common.BlockID]*bufferpool.Buffer),
	}
}

func (l *bufferList) getBuffer(blk common.BlockID) (*bufferpool.Buffer, bool) {
	buff, ok := l.buffers[blk]
	return buff, ok
}

func (l *bufferList) pin(blk common.BlockID) error {
	buff, err := l.bm.Pin(blk)
	if err != nil {
		return err
	}

	l.buffers[blk] = buff
	l.pins = append(l.pins, blk)

	return nil
}

func (l *bufferList) unpin(blk common.BlockID) {
	buff, ok := l.buffers[blk]
	if !ok {
		return
	}

	l.bm.Unpin(buff)

	for i, b := range l.pins {
		if b == blk {
			l.pins = append(l.pins[:i], l.pins[i+1:]...)
			break
		}
	}

	if !l.stillPinned(blk) {
		delete(l.buffers, blk)
	}
}

func (l *bufferList) unpinAll() {
	for _, blk := range l.pins {
		if buff, ok := l.buffers[blk]; ok {
			l.bm.Unpin(buff)
		}
	}

	l.buffers = make(map[common.BlockID]*bufferpool.Buffer)
	l.pins = nil
}

func (l *bufferList) stillPinned(blk common.BlockID) bool {
	for _, b := range l.pins {
		if b == blk {
			return true
		}
	}

	return false
}
