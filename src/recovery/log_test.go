package recovery

import (
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/Blackdeer1524/PageDB/src/pkg/common"
	"github.com/Blackdeer1524/PageDB/src/storage/disk"
	"github.com/Blackdeer1524/PageDB/src/storage/page"
)

const testLogFile = "pagedb.log"

func newTestLog(t *testing.T) (*LogManager, *disk.Manager) {
	t.Helper()

	d, err := disk.New(afero.NewMemMapFs(), "logtest", 400)
	require.NoError(t, err)

	lm, err := NewLogManager(d, testLogFile, common.NoopLogger())
	require.NoError(t, err)

	return lm, d
}

// a test record is a string followed by an int, like the book's log
// exercises
func createTestRecord(t *testing.T, s string, n int32) []byte {
	t.Helper()

	npos := page.MaxLength(len(s))
	p := page.New(npos + page.Int32Size)
	require.NoError(t, p.SetString(0, s))
	require.NoError(t, p.SetInt(npos, n))

	return p.Contents()
}

func createTestRecords(t *testing.T, lm *LogManager, start, end int32) {
	t.Helper()

	for i := start; i <= end; i++ {
		rec := createTestRecord(t, fmt.Sprintf("record%d", i), i+100)

		lsn, err := lm.Append(rec)
		require.NoError(t, err)
		require.Equal(t, common.LSN(i), lsn)
	}
}

func assertTestRecords(t *testing.T, lm *LogManager, newest, oldest int32) {
	t.Helper()

	iter, err := lm.Iterator()
	require.NoError(t, err)

	i := newest
	for iter.HasNext() {
		raw, err := iter.Next()
		require.NoError(t, err)

		p := page.FromBytes(raw)

		s, err := p.GetString(0)
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("record%d", i), s)

		n, err := p.GetInt(page.MaxLength(len(s)))
		require.NoError(t, err)
		require.Equal(t, i+100, n)

		i--
	}
	require.Equal(t, oldest, i+1)
}

func TestLogAppendAndIterate(t *testing.T) {
	lm, _ := newTestLog(t)

	createTestRecords(t, lm, 1, 35)
	assertTestRecords(t, lm, 35, 1)

	createTestRecords(t, lm, 36, 70)
	require.NoError(t, lm.Flush(65))
	assertTestRecords(t, lm, 70, 1)
}

func TestLogLSNsAreStrictlyIncreasing(t *testing.T) {
	lm, _ := newTestLog(t)

	prev := common.NilLSN
	for i := 0; i < 50; i++ {
		lsn, err := lm.Append(createTestRecord(t, "r", int32(i)))
		require.NoError(t, err)
		require.Greater(t, lsn, prev)
		prev = lsn
	}
}

func TestLogSurvivesReopen(t *testing.T) {
	lm, d := newTestLog(t)

	createTestRecords(t, lm, 1, 35)

	// the tail page is only durable after a flush
	require.NoError(t, lm.Flush(35))

	reopened, err := NewLogManager(d, testLogFile, common.NoopLogger())
	require.NoError(t, err)

	assertTestRecords(t, reopened, 35, 1)
}

func TestLogFlushIsIdempotent(t *testing.T) {
	lm, _ := newTestLog(t)

	createTestRecords(t, lm, 1, 5)

	require.NoError(t, lm.Flush(5))
	require.NoError(t, lm.Flush(5))
	require.NoError(t, lm.Flush(3))

	assertTestRecords(t, lm, 5, 1)
}

func TestLogRejectsOversizedRecord(t *testing.T) {
	lm, _ := newTestLog(t)

	_, err := lm.Append(make([]byte, 400))
	require.Error(t, err)
}
