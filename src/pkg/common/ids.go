package common

// TxnID identifies a transaction. IDs come from a shared monotonic
// counter, starting at 1. NilTxnID marks a buffer that no transaction
// has modified.
type TxnID int32

const NilTxnID TxnID = 0

// LSN is a log sequence number, assigned at append time and strictly
// increasing from 1. NilLSN marks "no log record".
type LSN uint64

const NilLSN LSN = 0

// BlockID identifies one fixed-size block of a file.
type BlockID struct {
	File string
	Num  int32
}

// EOFBlockNum is the pseudo block number used to serialize Size and
// Append calls on a file. No real block carries it.
const EOFBlockNum int32 = -1

func EOFBlock(filename string) BlockID {
	return BlockID{File: filename, Num: EOFBlockNum}
}
