package bufferpool

import (
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/PageDB/src/pkg/assert"
	"github.com/Blackdeer1524/PageDB/src/pkg/common"
	"github.com/Blackdeer1524/PageDB/src/storage/page"
)

type DiskManager interface {
	Read(blk common.BlockID, p *page.Page) error
	Write(blk common.BlockID, p *page.Page) error
	BlockSize() int
}

// Manager owns a fixed pool of buffers. Transactions borrow buffers
// through Pin and give them back through Unpin. Replacement is naive:
// any unpinned buffer may be chosen as a victim.
type Manager struct {
	pinTimeout time.Duration
	log        common.Logger

	mu        sync.Mutex
	pool      []*Buffer
	available int
	waiters   []chan struct{}
}

func New(
	d DiskManager,
	wal common.WAL,
	poolSize int,
	pinTimeout time.Duration,
	logger common.Logger,
) *Manager {
	assert.Assert(poolSize > 0, "pool size must be greater than zero")

	pool := make([]*Buffer, poolSize)
	for i := range pool {
		pool[i] = newBuffer(d, wal)
	}

	return &Manager{
		pinTimeout: pinTimeout,
		log:        logger,
		pool:       pool,
		available:  poolSize,
	}
}

func (m *Manager) Available() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.available
}

// Pin returns a buffer holding the block, loading it into a free or
// victim buffer if needed. When every buffer stays pinned for the
// whole wait it gives up with ErrNoAvailableBuffers, which the caller
// must treat as a transaction-abort condition.
func (m *Manager) Pin(blk common.BlockID) (*Buffer, error) {
	deadline := time.Now().Add(m.pinTimeout)

	for {
		m.mu.Lock()

		buff, err := m.tryToPin(blk)
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}

		if buff != nil {
			m.mu.Unlock()
			return buff, nil
		}

		waiter := make(chan struct{})
		m.waiters = append(m.waiters, waiter)
		m.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, errors.Wrapf(common.ErrNoAvailableBuffers, "pin %v", blk)
		}

		select {
		case <-waiter:
		case <-time.After(remaining):
			m.log.Warnf("no buffer freed within %v while pinning %v", m.pinTimeout, blk)
			return nil, errors.Wrapf(common.ErrNoAvailableBuffers, "pin %v", blk)
		}
	}
}

func (m *Manager) Unpin(buff *Buffer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	assert.Assert(buff.IsPinned(), "unpin of an unpinned buffer")

	buff.unpin()

	if !buff.IsPinned() {
		m.available++
		m.notifyWaiters()
	}
}

// FlushAll writes every buffer dirtied by the transaction to disk,
// log first. Called on the commit path.
func (m *Manager) FlushAll(txnum common.TxnID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, buff := range m.pool {
		if buff.ModifyingTxn() == txnum {
			if err := buff.flush(); err != nil {
				return err
			}
		}
	}

	return nil
}

// FlushDirty writes every dirty buffer regardless of owner. Used once
// after recovery, when no transactions are active.
func (m *Manager) FlushDirty() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, buff := range m.pool {
		if buff.ModifyingTxn() != common.NilTxnID {
			if err := buff.flush(); err != nil {
				return err
			}
		}
	}

	return nil
}

// tryToPin is called with m.mu held. A nil buffer with a nil error
// means "all buffers pinned, wait and retry".
func (m *Manager) tryToPin(blk common.BlockID) (*Buffer, error) {
	buff := m.findExistingBuffer(blk)
	if buff == nil {
		buff = m.chooseUnpinnedBuffer()
		if buff == nil {
			return nil, nil
		}

		if err := buff.assignToBlock(blk); err != nil {
			return nil, err
		}
	}

	if !buff.IsPinned() {
		m.available--
	}

	buff.pin()

	return buff, nil
}

func (m *Manager) findExistingBuffer(blk common.BlockID) *Buffer {
	for _, buff := range m.pool {
		if b, ok := buff.Block(); ok && b == blk {
			return buff
		}
	}

	return nil
}

func (m *Manager) chooseUnpinnedBuffer() *Buffer {
	for _, buff := range m.pool {
		if !buff.IsPinned() {
			return buff
		}
	}

	return nil
}

func (m *Manager) notifyWaiters() {
	for _, w := range m.waiters {
		close(w)
	}

	m.waiters = m.waiters[:0]
}
