package disk

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrInvalidBlockSize      = errors.New("invalid block size")
	ErrPageOffsetOutOfBounds = errors.New("page offset out of bounds")
)

const intSize = 4

func NewPage(blockSize int) *Page {
	return &Page{data: make([]byte, blockSize)}
}

// NewPageFrom wraps b without copying it.
func NewPageFrom(b []byte) *Page {
	return &Page{data: b}
}

func (p *Page) GetInt(offset int) (int32, error) {
	if err := p.check(offset, intSize); err != nil {
		return 0, err
	}

	return int32(binary.BigEndian.Uint32(p.data[offset:])), nil
}

func (p *Page) SetInt(offset int, n int32) error {
	if err := p.check(offset, intSize); err != nil {
		return err
	}

	binary.BigEndian.PutUint32(p.data[offset:], uint32(n))
	return nil
}

// GetBytes reads a length prefixed byte slice written by SetBytes.
func (p *Page) GetBytes(offset int) ([]byte, error) {
	n, err := p.GetInt(offset)
	if err != nil {
		return nil, err
	}

	if n < 0 {
		return nil, fmt.Errorf("negative length %d at offset %d: %w", n, offset, ErrPageOffsetOutOfBounds)
	}

	if err := p.check(offset+intSize, int(n)); err != nil {
		return nil, err
	}

	res := make([]byte, n)
	copy(res, p.data[offset+intSize:])

	return res, nil
}

func (p *Page) SetBytes(offset int, b []byte) error {
	if err := p.check(offset, intSize+len(b)); err != nil {
		return err
	}

	binary.BigEndian.PutUint32(p.data[offset:], uint32(len(b)))
	copy(p.data[offset+intSize:], b)

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

// MaxLength is the number of bytes SetString needs for a string of n bytes.
func MaxLength(n int) int {
	return intSize + n
}

func (p *Page) Bytes() []byte {
	return p.data
}

func (p *Page) Size() int {
	return len(p.data)
}

func (p *Page) check(offset, n int) error {
	if offset < 0 || offset+n > len(p.data) {
		return fmt.Errorf("offset %d size %d page %d: %w", offset, n, len(p.data), ErrPageOffsetOutOfBounds)
	}

	return nil
}

// Page is the in-memory image of one block.
type Page struct {
	data []byte
}
