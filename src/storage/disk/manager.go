package disk

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/spf13/afero"

	"github.com/Blackdeer1524/PageDB/src/pkg/common"
	"github.com/Blackdeer1524/PageDB/src/storage/page"
)

// Manager maps (filename, block number) pairs to fixed-size blocks of
// files inside one database directory. The log and all data files go
// through the same block abstraction.
type Manager struct {
	fs        afero.Fs
	dbDir     string
	blockSize int
	isNew     bool

	mu        sync.Mutex
	openFiles map[string]afero.File
}

func New(fs afero.Fs, dbDir string, blockSize int) (*Manager, error) {
	exists, err := afero.DirExists(fs, dbDir)
	if err != nil {
		return nil, errors.Wrap(err, "stat db directory")
	}

	if !exists {
		if err := fs.MkdirAll(dbDir, 0o700); err != nil {
			return nil, errors.Wrap(err, "create db directory")
		}
	}

	// leftover temp files from materialized scans are garbage
	entries, err := afero.ReadDir(fs, dbDir)
	if err != nil {
		return nil, errors.Wrap(err, "read db directory")
	}

	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "temp") {
			if err := fs.Remove(filepath.Join(dbDir, e.Name())); err != nil {
				return nil, errors.Wrapf(err, "remove temp file %s", e.Name())
			}
		}
	}

	return &Manager{
		fs:        fs,
		dbDir:     dbDir,
		blockSize: blockSize,
		isNew:     !exists,
		openFiles: make(map[string]afero.File),
	}, nil
}

func (m *Manager) Read(blk common.BlockID, p *page.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.getFile(blk.File)
	if err != nil {
		return err
	}

	offset := int64(blk.Num) * int64(m.blockSize)

	n, err := f.ReadAt(p.Contents(), offset)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.Wrapf(err, "read block %v", blk)
	}

	// a block past the written tail reads back as zeroes
	buf := p.Contents()
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}

	return nil
}

func (m *Manager) Write(blk common.BlockID, p *page.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.getFile(blk.File)
	if err != nil {
		return err
	}

	offset := int64(blk.Num) * int64(m.blockSize)

	if _, err := f.WriteAt(p.Contents(), offset); err != nil {
		return errors.Wrapf(err, "write block %v", blk)
	}

	return nil
}

// Append extends the file by one zero-filled block and returns its id.
func (m *Manager) Append(filename string) (common.BlockID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	newBlkNum, err := m.length(filename)
	if err != nil {
		return common.BlockID{}, err
	}

	blk := common.BlockID{File: filename, Num: newBlkNum}

	f, err := m.getFile(filename)
	if err != nil {
		return common.BlockID{}, err
	}

	b := make([]byte, m.blockSize)
	offset := int64(blk.Num) * int64(m.blockSize)

	if _, err := f.WriteAt(b, offset); err != nil {
		return common.BlockID{}, errors.Wrapf(err, "append block to %s", filename)
	}

	return blk, nil
}

// Length reports the number of blocks in the file.
func (m *Manager) Length(filename string) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.length(filename)
}

func (m *Manager) length(filename string) (int32, error) {
	if _, err := m.getFile(filename); err != nil {
		return 0, err
	}

	info, err := m.fs.Stat(filepath.Join(m.dbDir, filename))
	if err != nil {
		return 0, errors.Wrapf(err, "stat %s", filename)
	}

	bs := int64(m.blockSize)

	//nolint:gosec
	return int32((info.Size() + bs - 1) / bs), nil
}

func (m *Manager) getFile(filename string) (afero.File, error) {
	if f, ok := m.openFiles[filename]; ok {
		return f, nil
	}

	path := filepath.Join(m.dbDir, filename)

	f, err := m.fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", filename)
	}

	m.openFiles[filename] = f

	return f, nil
}

func (m *Manager) BlockSize() int {
	return m.blockSize
}

func (m *Manager) IsNew() bool {
	return m.isNew
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, f := range m.openFiles {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "close %s", name)
		}
		delete(m.openFiles, name)
	}

	return firstErr
}
