package txns

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Blackdeer1524/PageDB/src/pkg/common"
)

func blk(num int32) common.BlockID {
	return common.BlockID{File: "testfile", Num: num}
}

func TestSharedLocksCoexist(t *testing.T) {
	table := NewLockTable(100 * time.Millisecond)

	require.NoError(t, table.SLock(blk(0)))
	require.NoError(t, table.SLock(blk(0)))

	table.Unlock(blk(0))
	table.Unlock(blk(0))
}

func TestSharedLockBlocksOnExclusive(t *testing.T) {
	table := NewLockTable(50 * time.Millisecond)

	// sole holder upgrades to exclusive
	require.NoError(t, table.SLock(blk(0)))
	require.NoError(t, table.XLock(blk(0)))

	err := table.SLock(blk(0))
	require.ErrorIs(t, err, common.ErrLockTimeout)

	table.Unlock(blk(0))

	require.NoError(t, table.SLock(blk(0)))
	table.Unlock(blk(0))
}

func TestUpgradeWaitsForOtherSharedHolders(t *testing.T) {
	table := NewLockTable(50 * time.Millisecond)

	require.NoError(t, table.SLock(blk(0)))
	require.NoError(t, table.SLock(blk(0)))

	// two shared holders: the upgrade cannot proceed
	err := table.XLock(blk(0))
	require.ErrorIs(t, err, common.ErrLockTimeout)

	table.Unlock(blk(0))

	// sole holder remains: the upgrade goes through
	require.NoError(t, table.XLock(blk(0)))
	table.Unlock(blk(0))
}

func TestUnlockWakesWaiters(t *testing.T) {
	table := NewLockTable(5 * time.Second)

	require.NoError(t, table.SLock(blk(0)))
	require.NoError(t, table.XLock(blk(0)))

	done := make(chan error, 1)
	go func() {
		done <- table.SLock(blk(0))
	}()

	time.Sleep(20 * time.Millisecond)
	table.Unlock(blk(0))

	require.NoError(t, <-done)
}

func TestExclusiveLocksAreMutuallyExclusive(t *testing.T) {
	table := NewLockTable(300 * time.Millisecond)

	var active atomic.Int32
	var g errgroup.Group

	for i := 0; i < 8; i++ {
		g.Go(func() error {
			// one Manager per goroutine, like one per transaction
			m := NewManager(table)

			if err := m.XLock(blk(0)); err != nil {
				// two upgrades collided; the timeout broke the
				// deadlock and this "transaction" aborts
				m.Release()

				if errors.Is(err, common.ErrLockTimeout) {
					return nil
				}

				return err
			}

			if got := active.Add(1); got != 1 {
				t.Errorf("%d exclusive holders at once", got)
			}

			time.Sleep(time.Millisecond)
			active.Add(-1)

			m.Release()

			return nil
		})
	}

	require.NoError(t, g.Wait())
}
