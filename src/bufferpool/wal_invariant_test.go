package bufferpool

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Blackdeer1524/PageDB/src/pkg/common"
	"github.com/Blackdeer1524/PageDB/src/storage/page"
)

// eventLog records the order of log flushes and page writes so tests
// can check the write-ahead invariant.
type eventLog struct {
	events []string
}

type spyWAL struct {
	log *eventLog
}

func (w *spyWAL) Flush(lsn common.LSN) error {
	w.log.events = append(w.log.events, fmt.Sprintf("flush-log(%d)", lsn))
	return nil
}

type spyDisk struct {
	log *eventLog
}

func (d *spyDisk) Read(common.BlockID, *page.Page) error { return nil }

func (d *spyDisk) Write(blk common.BlockID, _ *page.Page) error {
	d.log.events = append(d.log.events, fmt.Sprintf("write-page(%v)", blk))
	return nil
}

func (d *spyDisk) BlockSize() int { return 128 }

func TestLogIsFlushedBeforePageOnCommitPath(t *testing.T) {
	events := &eventLog{}
	m := New(&spyDisk{log: events}, &spyWAL{log: events}, 2, time.Second, common.NoopLogger())

	b, err := m.Pin(common.BlockID{File: "testfile", Num: 0})
	require.NoError(t, err)

	require.NoError(t, b.Contents().SetInt(0, 99))
	b.SetModified(1, 5)

	require.NoError(t, m.FlushAll(1))

	require.Equal(t, []string{
		"flush-log(5)",
		"write-page({testfile 0})",
	}, events.events)
}

func TestLogIsFlushedBeforePageOnEvictionPath(t *testing.T) {
	events := &eventLog{}
	m := New(&spyDisk{log: events}, &spyWAL{log: events}, 1, time.Second, common.NoopLogger())

	b, err := m.Pin(common.BlockID{File: "testfile", Num: 0})
	require.NoError(t, err)

	require.NoError(t, b.Contents().SetInt(0, 99))
	b.SetModified(1, 7)
	m.Unpin(b)

	// pinning another block evicts the dirty buffer
	_, err = m.Pin(common.BlockID{File: "testfile", Num: 1})
	require.NoError(t, err)

	require.Equal(t, []string{
		"flush-log(7)",
		"write-page({testfile 0})",
	}, events.events)
}

func TestCleanBufferIsNotWrittenBack(t *testing.T) {
	events := &eventLog{}
	m := New(&spyDisk{log: events}, &spyWAL{log: events}, 1, time.Second, common.NoopLogger())

	b, err := m.Pin(common.BlockID{File: "testfile", Num: 0})
	require.NoError(t, err)
	m.Unpin(b)

	_, err = m.Pin(common.BlockID{File: "testfile", Num: 1})
	require.NoError(t, err)

	require.NoError(t, m.FlushAll(1))
	require.Empty(t, events.events)
}
