package recovery

import (
	"sync"

	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/PageDB/src/pkg/common"
	"github.com/Blackdeer1524/PageDB/src/storage/disk"
	"github.com/Blackdeer1524/PageDB/src/storage/page"
)

// LogManager is the append-only, block-structured write-ahead log.
//
// The tail block lives in memory. Its first 4 bytes hold the boundary
// offset: records grow from the high end of the block toward the
// boundary, so a block can be scanned newest-record-first by starting
// at the boundary. The block is written to disk only on Flush or when
// it fills up.
type LogManager struct {
	disk    *disk.Manager
	logFile string
	log     common.Logger

	mu           sync.Mutex
	logPage      *page.Page
	currentBlk   common.BlockID
	latestLSN    common.LSN
	lastSavedLSN common.LSN
}

var _ common.WAL = (*LogManager)(nil)

// NewLogManager resumes an existing log at its last block, or creates
// the first block of a fresh log.
func NewLogManager(d *disk.Manager, logFile string, logger common.Logger) (*LogManager, error) {
	lm := &LogManager{
		disk:    d,
		logFile: logFile,
		log:     logger,
		logPage: page.New(d.BlockSize()),
	}

	logSize, err := d.Length(logFile)
	if err != nil {
		return nil, errors.Wrap(err, "log length")
	}

	if logSize == 0 {
		blk, err := lm.appendNewBlock()
		if err != nil {
			return nil, err
		}
		lm.currentBlk = blk

		logger.Debugf("created log file %s", logFile)

		return lm, nil
	}

	lm.currentBlk = common.BlockID{File: logFile, Num: logSize - 1}
	if err := d.Read(lm.currentBlk, lm.logPage); err != nil {
		return nil, errors.Wrap(err, "read log tail")
	}

	logger.Debugf("resumed log file %s at block %d", logFile, lm.currentBlk.Num)

	return lm, nil
}

// Append serializes nothing itself: it places an already-encoded
// record into the tail block and returns its LSN. The record is not
// durable until a Flush covers the returned LSN.
func (lm *LogManager) Append(rec []byte) (common.LSN, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	boundary, err := lm.logPage.GetInt(0)
	if err != nil {
		return common.NilLSN, err
	}

	//nolint:gosec
	bytesNeeded := int32(len(rec)) + page.Int32Size

	if int(bytesNeeded)+page.Int32Size > lm.disk.BlockSize() {
		return common.NilLSN, errors.Errorf(
			"log record of %d bytes does not fit a %d-byte block",
			len(rec), lm.disk.BlockSize(),
		)
	}

	if boundary-bytesNeeded < page.Int32Size {
		// tail block is full
		if err := lm.flushLocked(); err != nil {
			return common.NilLSN, err
		}

		blk, err := lm.appendNewBlock()
		if err != nil {
			return common.NilLSN, err
		}
		lm.currentBlk = blk

		boundary, err = lm.logPage.GetInt(0)
		if err != nil {
			return common.NilLSN, err
		}
	}

	recPos := int(boundary - bytesNeeded)
	if err := lm.logPage.SetBytes(recPos, rec); err != nil {
		return common.NilLSN, err
	}

	//nolint:gosec
	if err := lm.logPage.SetInt(0, int32(recPos)); err != nil {
		return common.NilLSN, err
	}

	lm.latestLSN++

	return lm.latestLSN, nil
}

// Flush forces the log to disk through the given LSN. Idempotent.
func (lm *LogManager) Flush(lsn common.LSN) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lsn > lm.lastSavedLSN {
		return lm.flushLocked()
	}

	return nil
}

func (lm *LogManager) LatestLSN() common.LSN {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	return lm.latestLSN
}

// Iterator flushes the log and returns a reverse (newest first)
// iterator over the raw records. A fresh iterator is needed for every
// rescan.
func (lm *LogManager) Iterator() (*Iterator, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if err := lm.flushLocked(); err != nil {
		return nil, err
	}

	return newIterator(lm.disk, lm.currentBlk)
}

func (lm *LogManager) flushLocked() error {
	if err := lm.disk.Write(lm.currentBlk, lm.logPage); err != nil {
		return errors.Wrap(err, "flush log page")
	}

	lm.lastSavedLSN = lm.latestLSN

	return nil
}

func (lm *LogManager) appendNewBlock() (common.BlockID, error) {
	blk, err := lm.disk.Append(lm.logFile)
	if err != nil {
		return common.BlockID{}, errors.Wrap(err, "append log block")
	}

	//nolint:gosec
	if err := lm.logPage.SetInt(0, int32(lm.disk.BlockSize())); err != nil {
		return common.BlockID{}, err
	}

	if err := lm.disk.Write(blk, lm.logPage); err != nil {
		return common.BlockID{}, errors.Wrap(err, "write fresh log block")
	}

	return blk, nil
}
