package txns

import (
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/PageDB/src/pkg/assert"
	"github.com/Blackdeer1524/PageDB/src/pkg/common"
)

// LockTable is the engine-wide table of block-level locks. Per block
// it tracks either a count of shared holders (> 0) or an exclusive
// holder (-1). Requests that cannot be granted wait on a notifier
// channel bounded by a deadline; a wait that runs out fails with
// ErrLockTimeout, the engine's sole deadlock-breaking mechanism.
type LockTable struct {
	timeout time.Duration

	mu      sync.Mutex
	locks   map[common.BlockID]int
	waiters map[common.BlockID][]chan struct{}
}

const xLocked = -1

func NewLockTable(timeout time.Duration) *LockTable {
	return &LockTable{
		timeout: timeout,
		locks:   make(map[common.BlockID]int),
		waiters: make(map[common.BlockID][]chan struct{}),
	}
}

// SLock waits while another transaction holds the block exclusively,
// then joins the shared holders.
func (t *LockTable) SLock(blk common.BlockID) error {
	deadline := time.Now().Add(t.timeout)

	for {
		t.mu.Lock()

		if t.locks[blk] >= 0 {
			t.locks[blk]++
			t.mu.Unlock()

			return nil
		}

		if err := t.wait(blk, deadline); err != nil {
			return errors.Wrapf(err, "slock %v", blk)
		}
	}
}

// XLock upgrades to exclusive. The caller must already be one of the
// shared holders; it waits while any other shared holder remains.
func (t *LockTable) XLock(blk common.BlockID) error {
	deadline := time.Now().Add(t.timeout)

	for {
		t.mu.Lock()

		if t.locks[blk] <= 1 {
			t.locks[blk] = xLocked
			t.mu.Unlock()

			return nil
		}

		if err := t.wait(blk, deadline); err != nil {
			return errors.Wrapf(err, "xlock %v", blk)
		}
	}
}

func (t *LockTable) Unlock(blk common.BlockID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	val, ok := t.locks[blk]
	assert.Assert(ok, "unlock of an unlocked block %v", blk)

	if val > 1 {
		t.locks[blk] = val - 1
	} else {
		delete(t.locks, blk)
	}

	t.notify(blk)
}

// wait is entered with t.mu held and releases it before blocking.
func (t *LockTable) wait(blk common.BlockID, deadline time.Time) error {
	waiter := make(chan struct{})
	t.waiters[blk] = append(t.waiters[blk], waiter)
	t.mu.Unlock()

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return common.ErrLockTimeout
	}

	select {
	case <-waiter:
		return nil
	case <-time.After(remaining):
		return common.ErrLockTimeout
	}
}

func (t *LockTable) notify(blk common.BlockID) {
	for _, w := range t.waiters[blk] {
		close(w)
	}

	delete(t.waiters, blk)
}
