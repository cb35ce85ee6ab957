// Package wire implements the binary format of the NatNet messages. All
// integers and floats are little-endian.
package wire

import (
	"errors"
	"fmt"

	"github.com/mdzio/go-natnet/model"
)

const (
	// HeaderSize is the size of a message header: message id and payload
	// size, both uint16.
	HeaderSize = 4

	// MaxPayloadSize is the largest payload size, which fits into a header.
	MaxPayloadSize = 0xFFFF

	// minimum encoded sizes, used to reject implausible element counts
	vec3Size           = 12
	vec4Size           = 16
	cstringMinSize     = 1
	markerSetMinSize   = cstringMinSize + 4
	rigidBodyStateSize = 4 + vec3Size + vec4Size + 4 + 2
	datasetMinSize     = 4
)

var (
	// ErrTruncated is returned when the buffer is shorter than a field
	// requires.
	ErrTruncated = errors.New("Truncated")

	// ErrUnterminatedString is returned when no null terminator is found
	// before the end of the buffer.
	ErrUnterminatedString = errors.New("Unterminated string")

	// ErrFrameDecodeFailed matches every *FrameDecodeError with errors.Is.
	ErrFrameDecodeFailed = errors.New("Frame decode failed")
)

// UnknownDatasetTypeError is returned for an unrecognized dataset tag in a
// model definition.
type UnknownDatasetTypeError struct {
	Tag uint32
}

// Error implements the error interface.
func (e *UnknownDatasetTypeError) Error() string {
	return fmt.Sprintf("Unknown dataset type: %d", e.Tag)
}

// FrameDecodeError reports a failed decoding of a frame of data. The frame is
// discarded completely.
type FrameDecodeError struct {
	Err error
}

// Error implements the error interface.
func (e *FrameDecodeError) Error() string {
	return fmt.Sprintf("Decoding of frame failed: %v", e.Err)
}

// Unwrap returns the cause.
func (e *FrameDecodeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrFrameDecodeFailed.
func (e *FrameDecodeError) Is(target error) bool {
	return target == ErrFrameDecodeFailed
}

// Header precedes every message.
type Header struct {
	ID   model.MessageKind
	Size uint16
}

// DecodeHeader reads a message header.
func DecodeHeader(c *Cursor) (Header, error) {
	if c.Len() < HeaderSize {
		return Header{}, fmt.Errorf("Message header needs %d bytes, got %d: %w", HeaderSize, c.Len(), ErrTruncated)
	}
	id, _ := c.ReadU16()
	size, _ := c.ReadU16()
	return Header{ID: model.MessageKind(id), Size: size}, nil
}

// Decode decodes a complete message. The body is a *model.ModelDefinition
// for ModelDef messages, a *model.FrameOfData for FrameOfData messages and
// nil for all other kinds.
func Decode(buf []byte) (Header, interface{}, error) {
	c := NewCursor(buf)
	h, err := DecodeHeader(c)
	if err != nil {
		return h, nil, err
	}
	switch h.ID {
	case model.ModelDef:
		def, err := DecodeModelDefinition(c)
		if err != nil {
			return h, nil, err
		}
		return h, def, nil
	case model.FrameOfDataMessage:
		frame, err := DecodeFrameOfData(c)
		if err != nil {
			return h, nil, err
		}
		return h, frame, nil
	}
	return h, nil, nil
}

// IsDecodeError reports whether err is caused by invalid message content.
func IsDecodeError(err error) bool {
	var ute *UnknownDatasetTypeError
	return errors.Is(err, ErrTruncated) || errors.Is(err, ErrUnterminatedString) ||
		errors.Is(err, ErrFrameDecodeFailed) || errors.As(err, &ute)
}
