package model

import "fmt"

// DatasetKind is the tag of a dataset in a model definition.
type DatasetKind uint32

// Dataset kinds as tagged on the wire.
const (
	MarkerSetDataset DatasetKind = iota
	RigidBodyDataset
	SkeletonDataset
	ForcePlateDataset
	DeviceDataset
	CameraDataset
)

var datasetKindStr = []string{
	MarkerSetDataset:  "MarkerSet",
	RigidBodyDataset:  "RigidBody",
	SkeletonDataset:   "Skeleton",
	ForcePlateDataset: "ForcePlate",
	DeviceDataset:     "Device",
	CameraDataset:     "Camera",
}

// String implements fmt.Stringer.
func (k DatasetKind) String() string {
	if int(k) < len(datasetKindStr) {
		return datasetKindStr[k]
	}
	return fmt.Sprintf("DatasetKind(%d)", uint32(k))
}

// Dataset is one entry of a model definition. The set of implementations is
// closed: *MarkerSetDefinition, *RigidBodyDefinition, *SkeletonDefinition,
// *ForcePlateDefinition, *DeviceDefinition and *CameraDefinition.
type Dataset interface {
	Kind() DatasetKind
	dataset()
}

// MarkerSetDefinition describes a named marker set.
type MarkerSetDefinition struct {
	Name        string
	MarkerNames []string
}

// MarkerDescriptor describes a single marker of a rigid body.
type MarkerDescriptor struct {
	Offset Vec3
	Label  uint32
	Name   string
}

// RigidBodyDefinition describes a rigid body and its markers.
type RigidBodyDefinition struct {
	Name     string
	ID       uint32
	ParentID uint32
	Offset   Vec3
	Markers  []MarkerDescriptor
}

// SkeletonDefinition describes a named collection of rigid bodies.
type SkeletonDefinition struct {
	Name        string
	ID          uint32
	RigidBodies []*RigidBodyDefinition
}

// ForcePlateDefinition describes a force plate. The content is not
// interpreted further.
type ForcePlateDefinition struct {
	ID           uint32
	Serial       string
	Width        float32
	Length       float32
	Origin       Vec3
	Calibration  [12][12]float32
	Corners      [12]float32
	PlateType    uint32
	ChannelType  uint32
	ChannelNames []string
}

// DeviceDefinition describes an auxiliary (non-optical) device.
type DeviceDefinition struct {
	ID           uint32
	Name         string
	Serial       string
	DeviceType   uint32
	DataType     uint32
	ChannelNames []string
}

// CameraDefinition describes the pose of a camera.
type CameraDefinition struct {
	Name        string
	Position    Vec3
	Orientation Vec4
}

// Kind implements Dataset.
func (*MarkerSetDefinition) Kind() DatasetKind { return MarkerSetDataset }

// Kind implements Dataset.
func (*RigidBodyDefinition) Kind() DatasetKind { return RigidBodyDataset }

// Kind implements Dataset.
func (*SkeletonDefinition) Kind() DatasetKind { return SkeletonDataset }

// Kind implements Dataset.
func (*ForcePlateDefinition) Kind() DatasetKind { return ForcePlateDataset }

// Kind implements Dataset.
func (*DeviceDefinition) Kind() DatasetKind { return DeviceDataset }

// Kind implements Dataset.
func (*CameraDefinition) Kind() DatasetKind { return CameraDataset }

func (*MarkerSetDefinition) dataset()  {}
func (*RigidBodyDefinition) dataset()  {}
func (*SkeletonDefinition) dataset()   {}
func (*ForcePlateDefinition) dataset() {}
func (*DeviceDefinition) dataset()     {}
func (*CameraDefinition) dataset()     {}

// ModelDefinition lists all entities known to the server in wire order.
type ModelDefinition struct {
	Datasets []Dataset
}

// RigidBodies returns the top level rigid body definitions. Rigid bodies
// nested in skeletons are not included.
func (m *ModelDefinition) RigidBodies() []*RigidBodyDefinition {
	var r []*RigidBodyDefinition
	for _, ds := range m.Datasets {
		if rb, ok := ds.(*RigidBodyDefinition); ok {
			r = append(r, rb)
		}
	}
	return r
}
