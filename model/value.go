package model

import "fmt"

// Vec3 is a position or offset in meters.
type Vec3 [3]float32

// String implements fmt.Stringer.
func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v[0], v[1], v[2])
}

// Vec4 is a rotation quaternion with the component order x, y, z, w.
type Vec4 [4]float32

// String implements fmt.Stringer.
func (v Vec4) String() string {
	return fmt.Sprintf("(%g, %g, %g, %g)", v[0], v[1], v[2], v[3])
}

// MessageKind identifies the payload of a message.
type MessageKind uint16

// Message kinds. Values between are defined by the protocol but not handled.
const (
	Connect            MessageKind = 0
	ServerInfo         MessageKind = 1
	RequestModelDef    MessageKind = 4
	ModelDef           MessageKind = 5
	FrameOfDataMessage MessageKind = 7
)

var messageKindStr = map[MessageKind]string{
	Connect:            "Connect",
	ServerInfo:         "ServerInfo",
	RequestModelDef:    "RequestModelDef",
	ModelDef:           "ModelDef",
	FrameOfDataMessage: "FrameOfData",
}

// String implements fmt.Stringer.
func (k MessageKind) String() string {
	if s, ok := messageKindStr[k]; ok {
		return s
	}
	return fmt.Sprintf("MessageKind(%d)", uint16(k))
}
