package page

import (
	"encoding/binary"

	"github.com/go-faster/errors"
)

var ErrOutOfBounds = errors.New("page access out of bounds")

const Int32Size = 4

// Page is one fixed-size block worth of bytes with typed accessors.
// Integers are big-endian int32; byte slices and strings are stored
// with a 4-byte length prefix and no terminator.
type Page struct {
	buf []byte
}

func New(blockSize int) *Page {
	return &Page{buf: make([]byte, blockSize)}
}

// FromBytes wraps an existing record buffer without copying.
func FromBytes(b []byte) *Page {
	return &Page{buf: b}
}

func (p *Page) Contents() []byte {
	return p.buf
}

func (p *Page) Size() int {
	return len(p.buf)
}

// MaxLength is the number of page bytes needed to store an n-byte
// string: the length prefix plus the bytes themselves.
func MaxLength(n int) int {
	return Int32Size + n
}

func (p *Page) GetInt(offset int) (int32, error) {
	if offset < 0 || offset+Int32Size > len(p.buf) {
		return 0, errors.Wrapf(ErrOutOfBounds, "int at %d", offset)
	}

	return int32(binary.BigEndian.Uint32(p.buf[offset:])), nil
}

func (p *Page) SetInt(offset int, val int32) error {
	if offset < 0 || offset+Int32Size > len(p.buf) {
		return errors.Wrapf(ErrOutOfBounds, "int at %d", offset)
	}

	binary.BigEndian.PutUint32(p.buf[offset:], uint32(val))

	return nil
}

func (p *Page) GetBytes(offset int) ([]byte, error) {
	length, err := p.GetInt(offset)
	if err != nil {
		return nil, err
	}

	if length < 0 || offset+Int32Size+int(length) > len(p.buf) {
		return nil, errors.Wrapf(ErrOutOfBounds, "bytes of length %d at %d", length, offset)
	}

	res := make([]byte, length)
	copy(res, p.buf[offset+Int32Size:])

	return res, nil
}

func (p *Page) SetBytes(offset int, b []byte) error {
	if offset < 0 || offset+Int32Size+len(b) > len(p.buf) {
		return errors.Wrapf(ErrOutOfBounds, "bytes of length %d at %d", len(b), offset)
	}

	//nolint:gosec
	if err := p.SetInt(offset, int32(len(b))); err != nil {
		return err
	}

	copy(p.buf[offset+Int32Size:], b)

	return nil
}

func (p *Page) GetString(offset int) (string, error) {
	b, err := p.GetBytes(offset)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func (p *Page) SetString(offset int, s string) error {
	return p.SetBytes(offset, []byte(s))
}
