package model

// TrackingValidFlag is the bit of the rigid body flag word, which signals
// valid tracking. All other bits are reserved.
const TrackingValidFlag = 0x0001

// MarkerSet is a named group of labelled markers.
type MarkerSet struct {
	Name    string
	Markers []Vec3
}

// RigidBodyState is the pose of a rigid body in a single frame.
type RigidBodyState struct {
	ID            uint32
	Position      Vec3
	Rotation      Vec4
	MeanError     float32
	TrackingValid bool
}

// FrameOfData is one snapshot of all tracked positions. Each unlabelled
// marker is a single point.
type FrameOfData struct {
	FrameNumber        uint32
	LabelledMarkerSets []MarkerSet
	UnlabelledMarkers  []Vec3
	RigidBodies        []RigidBodyState
}
