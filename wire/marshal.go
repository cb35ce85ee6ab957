package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mdzio/go-natnet/model"
)

// Encoder appends NatNet primitives and records to a byte slice. The first
// encountered error is kept and returned by Err; later writes are ignored.
type Encoder struct {
	buf []byte
	err error
}

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of encoded bytes.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Err returns the first encountered error.
func (e *Encoder) Err() error {
	return e.err
}

// Reset clears the buffer and the error.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
	e.err = nil
}

// PutU16 appends an uint16.
func (e *Encoder) PutU16(v uint16) {
	if e.err != nil {
		return
	}
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

// PutU32 appends an uint32.
func (e *Encoder) PutU32(v uint32) {
	if e.err != nil {
		return
	}
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// PutF32 appends a float32.
func (e *Encoder) PutF32(v float32) {
	e.PutU32(math.Float32bits(v))
}

// PutVec3 appends three float32.
func (e *Encoder) PutVec3(v model.Vec3) {
	for _, f := range v {
		e.PutF32(f)
	}
}

// PutVec4 appends four float32.
func (e *Encoder) PutVec4(v model.Vec4) {
	for _, f := range v {
		e.PutF32(f)
	}
}

// PutCString appends s as UTF-8 followed by a null terminator. Strings
// containing a null byte can not be represented.
func (e *Encoder) PutCString(s string) {
	if e.err != nil {
		return
	}
	if strings.IndexByte(s, 0) >= 0 {
		e.err = fmt.Errorf("String contains a null byte: %q", s)
		return
	}
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
}

// PutCount appends an element count.
func (e *Encoder) PutCount(n int) {
	if e.err != nil {
		return
	}
	if n < 0 || uint64(n) > math.MaxUint32 {
		e.err = fmt.Errorf("Invalid element count: %d", n)
		return
	}
	e.PutU32(uint32(n))
}

// PutFrameOfData appends the body of a FrameOfData message.
func (e *Encoder) PutFrameOfData(f *model.FrameOfData) {
	e.PutU32(f.FrameNumber)
	e.PutCount(len(f.LabelledMarkerSets))
	for _, ms := range f.LabelledMarkerSets {
		e.PutCString(ms.Name)
		e.putVec3s(ms.Markers)
	}
	e.putVec3s(f.UnlabelledMarkers)
	e.PutCount(len(f.RigidBodies))
	for _, rb := range f.RigidBodies {
		e.PutU32(rb.ID)
		e.PutVec3(rb.Position)
		e.PutVec4(rb.Rotation)
		e.PutF32(rb.MeanError)
		var flags uint16
		if rb.TrackingValid {
			flags |= model.TrackingValidFlag
		}
		e.PutU16(flags)
	}
}

func (e *Encoder) putVec3s(vs []model.Vec3) {
	e.PutCount(len(vs))
	for _, v := range vs {
		e.PutVec3(v)
	}
}

func (e *Encoder) putCStrings(ss []string) {
	e.PutCount(len(ss))
	for _, s := range ss {
		e.PutCString(s)
	}
}

// PutModelDefinition appends the body of a ModelDef message.
func (e *Encoder) PutModelDefinition(def *model.ModelDefinition) {
	e.PutCount(len(def.Datasets))
	for _, ds := range def.Datasets {
		e.PutDataset(ds)
	}
}

// PutDataset appends a tagged dataset.
func (e *Encoder) PutDataset(ds model.Dataset) {
	if e.err != nil {
		return
	}
	switch d := ds.(type) {
	case *model.MarkerSetDefinition:
		e.PutU32(uint32(model.MarkerSetDataset))
		e.PutCString(d.Name)
		e.putCStrings(d.MarkerNames)
	case *model.RigidBodyDefinition:
		e.PutU32(uint32(model.RigidBodyDataset))
		e.PutRigidBodyDefinition(d)
	case *model.SkeletonDefinition:
		e.PutU32(uint32(model.SkeletonDataset))
		e.PutCString(d.Name)
		e.PutU32(d.ID)
		e.PutCount(len(d.RigidBodies))
		for _, rb := range d.RigidBodies {
			e.PutRigidBodyDefinition(rb)
		}
	case *model.ForcePlateDefinition:
		e.PutU32(uint32(model.ForcePlateDataset))
		e.PutU32(d.ID)
		e.PutCString(d.Serial)
		e.PutF32(d.Width)
		e.PutF32(d.Length)
		e.PutVec3(d.Origin)
		for _, row := range d.Calibration {
			for _, v := range row {
				e.PutF32(v)
			}
		}
		for _, v := range d.Corners {
			e.PutF32(v)
		}
		e.PutU32(d.PlateType)
		e.PutU32(d.ChannelType)
		e.putCStrings(d.ChannelNames)
	case *model.DeviceDefinition:
		e.PutU32(uint32(model.DeviceDataset))
		e.PutU32(d.ID)
		e.PutCString(d.Name)
		e.PutCString(d.Serial)
		e.PutU32(d.DeviceType)
		e.PutU32(d.DataType)
		e.putCStrings(d.ChannelNames)
	case *model.CameraDefinition:
		e.PutU32(uint32(model.CameraDataset))
		e.PutCString(d.Name)
		e.PutVec3(d.Position)
		e.PutVec4(d.Orientation)
	default:
		e.err = fmt.Errorf("Unsupported dataset: %T", ds)
	}
}

// PutRigidBodyDefinition appends a rigid body definition (without tag).
func (e *Encoder) PutRigidBodyDefinition(rb *model.RigidBodyDefinition) {
	e.PutCString(rb.Name)
	e.PutU32(rb.ID)
	e.PutU32(rb.ParentID)
	e.PutVec3(rb.Offset)
	e.PutCount(len(rb.Markers))
	for _, m := range rb.Markers {
		e.PutVec3(m.Offset)
	}
	for _, m := range rb.Markers {
		e.PutU32(m.Label)
	}
	for _, m := range rb.Markers {
		e.PutCString(m.Name)
	}
}

var errPayloadTooLarge = errors.New("Payload exceeds the maximum message size")

// EncodeMessage prefixes body with a message header.
func EncodeMessage(kind model.MessageKind, body []byte) ([]byte, error) {
	if len(body) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", errPayloadTooLarge, len(body))
	}
	buf := make([]byte, 0, HeaderSize+len(body))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(kind))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(body)))
	return append(buf, body...), nil
}

// EncodeCommand builds a command datagram: opcode, length of the payload
// including the terminator, payload and terminator.
func EncodeCommand(kind model.MessageKind, payload string) ([]byte, error) {
	e := Encoder{}
	e.PutCString(payload)
	if e.Err() != nil {
		return nil, e.Err()
	}
	return EncodeMessage(kind, e.Bytes())
}

// EncodeFrameOfData builds a complete FrameOfData message.
func EncodeFrameOfData(f *model.FrameOfData) ([]byte, error) {
	e := Encoder{}
	e.PutFrameOfData(f)
	if e.Err() != nil {
		return nil, e.Err()
	}
	return EncodeMessage(model.FrameOfDataMessage, e.Bytes())
}

// EncodeModelDefinition builds a complete ModelDef message.
func EncodeModelDefinition(def *model.ModelDefinition) ([]byte, error) {
	e := Encoder{}
	e.PutModelDefinition(def)
	if e.Err() != nil {
		return nil, e.Err()
	}
	return EncodeMessage(model.ModelDef, e.Bytes())
}
