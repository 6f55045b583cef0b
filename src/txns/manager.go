package txns

import "github.com/Blackdeer1524/PageDB/src/pkg/common"

type lockMode byte

const (
	lockShared lockMode = iota
	lockExclusive
)

// Manager is a transaction's private view over the shared lock table.
// It remembers which locks the transaction holds so repeated requests
// are free and the shared→exclusive upgrade stays with the same
// holder. Locks are held until Release - strict two-phase locking.
//
// Not safe for concurrent use: one goroutine per transaction.
type Manager struct {
	table *LockTable
	locks map[common.BlockID]lockMode
}

func NewManager(table *LockTable) *Manager {
	return &Manager{
		table: table,
		locks: make(map[common.BlockID]lockMode),
	}
}

func (m *Manager) SLock(blk common.BlockID) error {
	if _, held := m.locks[blk]; held {
		return nil
	}

	if err := m.table.SLock(blk); err != nil {
		return err
	}

	m.locks[blk] = lockShared

	return nil
}

func (m *Manager) XLock(blk common.BlockID) error {
	if m.hasXLock(blk) {
		return nil
	}

	if err := m.SLock(blk); err != nil {
		return err
	}

	if err := m.table.XLock(blk); err != nil {
		return err
	}

	m.locks[blk] = lockExclusive

	return nil
}

// Release gives back every lock the transaction holds. Called only at
// commit or rollback completion.
func (m *Manager) Release() {
	for blk := range m.locks {
		m.table.Unlock(blk)
	}

	clear(m.locks)
}

func (m *Manager) hasXLock(blk common.BlockID) bool {
	return m.locks[blk] == lockExclusive
}
