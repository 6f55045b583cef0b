package disk

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/Blackdeer1524/PageDB/src/pkg/common"
	"github.com/Blackdeer1524/PageDB/src/storage/page"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := New(afero.NewMemMapFs(), "filetest", 400)
	require.NoError(t, err)

	return m
}

func TestWriteAndRead(t *testing.T) {
	m := newTestManager(t)

	blk := common.BlockID{File: "testfile", Num: 2}

	p1 := page.New(m.BlockSize())
	pos1 := 88
	require.NoError(t, p1.SetString(pos1, "abcdefghijklm"))

	pos2 := pos1 + page.MaxLength(len("abcdefghijklm"))
	require.NoError(t, p1.SetInt(pos2, 345))

	require.NoError(t, m.Write(blk, p1))

	p2 := page.New(m.BlockSize())
	require.NoError(t, m.Read(blk, p2))

	s, err := p2.GetString(pos1)
	require.NoError(t, err)
	require.Equal(t, "abcdefghijklm", s)

	n, err := p2.GetInt(pos2)
	require.NoError(t, err)
	require.Equal(t, int32(345), n)
}

func TestAppendAndLength(t *testing.T) {
	m := newTestManager(t)

	length, err := m.Length("testfile")
	require.NoError(t, err)
	require.Equal(t, int32(0), length)

	blk, err := m.Append("testfile")
	require.NoError(t, err)
	require.Equal(t, int32(0), blk.Num)

	blk, err = m.Append("testfile")
	require.NoError(t, err)
	require.Equal(t, int32(1), blk.Num)

	length, err = m.Length("testfile")
	require.NoError(t, err)
	require.Equal(t, int32(2), length)
}

func TestReadPastEOFReturnsZeroes(t *testing.T) {
	m := newTestManager(t)

	p := page.New(m.BlockSize())
	require.NoError(t, p.SetInt(0, 12345))

	// the file has never been written: the block reads back as zeroes
	require.NoError(t, m.Read(common.BlockID{File: "empty", Num: 5}, p))

	n, err := p.GetInt(0)
	require.NoError(t, err)
	require.Equal(t, int32(0), n)
}

func TestTempFilesRemovedAtStartup(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, fs.MkdirAll("db", 0o700))
	require.NoError(t, afero.WriteFile(fs, "db/temp_scan1", []byte("junk"), 0o600))
	require.NoError(t, afero.WriteFile(fs, "db/table", []byte("keep"), 0o600))

	_, err := New(fs, "db", 400)
	require.NoError(t, err)

	exists, err := afero.Exists(fs, "db/temp_scan1")
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = afero.Exists(fs, "db/table")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestIsNew(t *testing.T) {
	fs := afero.NewMemMapFs()

	m1, err := New(fs, "db", 400)
	require.NoError(t, err)
	require.True(t, m1.IsNew())

	m2, err := New(fs, "db", 400)
	require.NoError(t, err)
	require.False(t, m2.IsNew())
}
