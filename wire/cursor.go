package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/mdzio/go-natnet/model"
	"golang.org/x/text/encoding/charmap"
)

// Cursor tracks the read position in a borrowed buffer. Every read advances
// the position by exactly the number of bytes consumed. A failed read does
// not advance the position.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor creates a Cursor positioned at the start of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the current read position.
func (c *Cursor) Pos() int {
	return c.pos
}

// Len returns the number of unread bytes.
func (c *Cursor) Len() int {
	return len(c.buf) - c.pos
}

// Bytes returns the unread part of the buffer.
func (c *Cursor) Bytes() []byte {
	return c.buf[c.pos:]
}

func (c *Cursor) next(n int) ([]byte, error) {
	if c.Len() < n {
		return nil, fmt.Errorf("%d bytes needed at offset %d, %d available: %w", n, c.pos, c.Len(), ErrTruncated)
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// ReadU16 reads an uint16.
func (c *Cursor) ReadU16() (uint16, error) {
	b, err := c.next(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads an uint32.
func (c *Cursor) ReadU32() (uint32, error) {
	b, err := c.next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadF32 reads an IEEE-754 float32.
func (c *Cursor) ReadF32() (float32, error) {
	b, err := c.next(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// ReadVec3 reads three float32.
func (c *Cursor) ReadVec3() (model.Vec3, error) {
	var v model.Vec3
	b, err := c.next(vec3Size)
	if err != nil {
		return v, err
	}
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// ReadVec4 reads four float32.
func (c *Cursor) ReadVec4() (model.Vec4, error) {
	var v model.Vec4
	b, err := c.next(vec4Size)
	if err != nil {
		return v, err
	}
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// ReadCString reads a null terminated string. The string may be empty. The
// position is moved one past the terminator.
func (c *Cursor) ReadCString() (string, error) {
	idx := bytes.IndexByte(c.buf[c.pos:], 0)
	if idx < 0 {
		return "", fmt.Errorf("No null terminator after offset %d: %w", c.pos, ErrUnterminatedString)
	}
	b := c.buf[c.pos : c.pos+idx]
	c.pos += idx + 1
	return decodeText(b), nil
}

// ReadCount reads an uint32 element count. If minElemSize is greater than
// zero, counts are rejected with ErrTruncated, which need more bytes than
// remain in the buffer. With a minElemSize of zero an oversized count is
// only detected when decoding the elements.
func (c *Cursor) ReadCount(minElemSize int) (int, error) {
	start := c.pos
	n, err := c.ReadU32()
	if err != nil {
		return 0, err
	}
	if minElemSize > 0 && uint64(n)*uint64(minElemSize) > uint64(c.Len()) {
		c.pos = start
		return 0, fmt.Errorf("Count %d at offset %d exceeds the remaining %d bytes: %w", n, start, c.Len()-4, ErrTruncated)
	}
	return int(n), nil
}

// decodeText converts string bytes to a Go string. The server runs on
// Windows, so invalid UTF-8 is read as Windows-1252.
func decodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}
