package wire

import (
	"fmt"

	"github.com/mdzio/go-natnet/model"
)

const (
	rigidBodyDefMinSize  = cstringMinSize + 4 + 4 + vec3Size + 4
	rigidBodyMarkerSize  = vec3Size + 4 + cstringMinSize
	calibrationRows      = 12
	calibrationColumns   = 12
	forcePlateCornerSize = 12
)

// DecodeFrameOfData decodes the body of a FrameOfData message. On failure a
// *FrameDecodeError is returned and no part of the frame.
func DecodeFrameOfData(c *Cursor) (*model.FrameOfData, error) {
	f, err := decodeFrameOfData(c)
	if err != nil {
		return nil, &FrameDecodeError{Err: err}
	}
	return f, nil
}

func decodeFrameOfData(c *Cursor) (*model.FrameOfData, error) {
	var err error
	f := &model.FrameOfData{}
	f.FrameNumber, err = c.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("Frame number: %w", err)
	}

	// labelled marker sets
	n, err := c.ReadCount(markerSetMinSize)
	if err != nil {
		return nil, fmt.Errorf("Marker set count: %w", err)
	}
	f.LabelledMarkerSets = make([]model.MarkerSet, n)
	for i := range f.LabelledMarkerSets {
		ms := &f.LabelledMarkerSets[i]
		ms.Name, err = c.ReadCString()
		if err != nil {
			return nil, fmt.Errorf("Name of marker set %d: %w", i, err)
		}
		ms.Markers, err = readVec3s(c)
		if err != nil {
			return nil, fmt.Errorf("Markers of marker set %s: %w", ms.Name, err)
		}
	}

	// unlabelled markers
	f.UnlabelledMarkers, err = readVec3s(c)
	if err != nil {
		return nil, fmt.Errorf("Unlabelled markers: %w", err)
	}

	// rigid bodies
	n, err = c.ReadCount(rigidBodyStateSize)
	if err != nil {
		return nil, fmt.Errorf("Rigid body count: %w", err)
	}
	f.RigidBodies = make([]model.RigidBodyState, n)
	for i := range f.RigidBodies {
		if err := decodeRigidBodyState(c, &f.RigidBodies[i]); err != nil {
			return nil, fmt.Errorf("Rigid body %d: %w", i, err)
		}
	}
	return f, nil
}

func decodeRigidBodyState(c *Cursor, rb *model.RigidBodyState) error {
	var err error
	if rb.ID, err = c.ReadU32(); err != nil {
		return err
	}
	if rb.Position, err = c.ReadVec3(); err != nil {
		return err
	}
	if rb.Rotation, err = c.ReadVec4(); err != nil {
		return err
	}
	if rb.MeanError, err = c.ReadF32(); err != nil {
		return err
	}
	flags, err := c.ReadU16()
	if err != nil {
		return err
	}
	rb.TrackingValid = flags&model.TrackingValidFlag != 0
	return nil
}

// readVec3s reads a counted array of Vec3.
func readVec3s(c *Cursor) ([]model.Vec3, error) {
	n, err := c.ReadCount(vec3Size)
	if err != nil {
		return nil, err
	}
	vs := make([]model.Vec3, n)
	for i := range vs {
		if vs[i], err = c.ReadVec3(); err != nil {
			return nil, err
		}
	}
	return vs, nil
}

// readCStrings reads a counted array of null terminated strings.
func readCStrings(c *Cursor) ([]string, error) {
	n, err := c.ReadCount(cstringMinSize)
	if err != nil {
		return nil, err
	}
	ss := make([]string, n)
	for i := range ss {
		if ss[i], err = c.ReadCString(); err != nil {
			return nil, err
		}
	}
	return ss, nil
}

// DecodeModelDefinition decodes the body of a ModelDef message. The datasets
// are returned in wire order. An unknown dataset tag aborts the decoding with
// an *UnknownDatasetTypeError, since the following datasets can not be
// located without it.
func DecodeModelDefinition(c *Cursor) (*model.ModelDefinition, error) {
	n, err := c.ReadCount(datasetMinSize)
	if err != nil {
		return nil, fmt.Errorf("Decoding of dataset count failed: %w", err)
	}
	def := &model.ModelDefinition{Datasets: make([]model.Dataset, 0, n)}
	for i := 0; i < n; i++ {
		ds, err := DecodeDataset(c)
		if err != nil {
			return nil, fmt.Errorf("Decoding of dataset %d failed: %w", i, err)
		}
		def.Datasets = append(def.Datasets, ds)
	}
	return def, nil
}

// DecodeDataset decodes a tagged dataset of a model definition. On failure
// the returned Dataset is a nil interface, not a nil pointer of a variant.
func DecodeDataset(c *Cursor) (model.Dataset, error) {
	tag, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	ds, err := decodeDatasetBody(c, tag)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func decodeDatasetBody(c *Cursor, tag uint32) (model.Dataset, error) {
	switch model.DatasetKind(tag) {
	case model.MarkerSetDataset:
		return DecodeMarkerSetDefinition(c)
	case model.RigidBodyDataset:
		return DecodeRigidBodyDefinition(c)
	case model.SkeletonDataset:
		return DecodeSkeletonDefinition(c)
	case model.ForcePlateDataset:
		return DecodeForcePlateDefinition(c)
	case model.DeviceDataset:
		return DecodeDeviceDefinition(c)
	case model.CameraDataset:
		return DecodeCameraDefinition(c)
	}
	return nil, &UnknownDatasetTypeError{Tag: tag}
}

// DecodeMarkerSetDefinition decodes a marker set definition (without tag).
func DecodeMarkerSetDefinition(c *Cursor) (*model.MarkerSetDefinition, error) {
	var err error
	ms := &model.MarkerSetDefinition{}
	if ms.Name, err = c.ReadCString(); err != nil {
		return nil, fmt.Errorf("Marker set name: %w", err)
	}
	if ms.MarkerNames, err = readCStrings(c); err != nil {
		return nil, fmt.Errorf("Marker names of marker set %s: %w", ms.Name, err)
	}
	return ms, nil
}

// DecodeRigidBodyDefinition decodes a rigid body definition (without tag).
// The marker offsets, labels and names are stored in three consecutive
// arrays, which are zipped by index.
func DecodeRigidBodyDefinition(c *Cursor) (*model.RigidBodyDefinition, error) {
	var err error
	rb := &model.RigidBodyDefinition{}
	if rb.Name, err = c.ReadCString(); err != nil {
		return nil, fmt.Errorf("Rigid body name: %w", err)
	}
	if rb.ID, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("ID of rigid body %s: %w", rb.Name, err)
	}
	if rb.ParentID, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("Parent ID of rigid body %s: %w", rb.Name, err)
	}
	if rb.Offset, err = c.ReadVec3(); err != nil {
		return nil, fmt.Errorf("Offset of rigid body %s: %w", rb.Name, err)
	}
	n, err := c.ReadCount(rigidBodyMarkerSize)
	if err != nil {
		return nil, fmt.Errorf("Marker count of rigid body %s: %w", rb.Name, err)
	}
	rb.Markers = make([]model.MarkerDescriptor, n)
	for i := range rb.Markers {
		if rb.Markers[i].Offset, err = c.ReadVec3(); err != nil {
			return nil, fmt.Errorf("Marker offset %d of rigid body %s: %w", i, rb.Name, err)
		}
	}
	for i := range rb.Markers {
		if rb.Markers[i].Label, err = c.ReadU32(); err != nil {
			return nil, fmt.Errorf("Marker label %d of rigid body %s: %w", i, rb.Name, err)
		}
	}
	for i := range rb.Markers {
		if rb.Markers[i].Name, err = c.ReadCString(); err != nil {
			return nil, fmt.Errorf("Marker name %d of rigid body %s: %w", i, rb.Name, err)
		}
	}
	return rb, nil
}

// DecodeSkeletonDefinition decodes a skeleton definition (without tag).
func DecodeSkeletonDefinition(c *Cursor) (*model.SkeletonDefinition, error) {
	var err error
	sk := &model.SkeletonDefinition{}
	if sk.Name, err = c.ReadCString(); err != nil {
		return nil, fmt.Errorf("Skeleton name: %w", err)
	}
	if sk.ID, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("ID of skeleton %s: %w", sk.Name, err)
	}
	n, err := c.ReadCount(rigidBodyDefMinSize)
	if err != nil {
		return nil, fmt.Errorf("Rigid body count of skeleton %s: %w", sk.Name, err)
	}
	sk.RigidBodies = make([]*model.RigidBodyDefinition, n)
	for i := range sk.RigidBodies {
		if sk.RigidBodies[i], err = DecodeRigidBodyDefinition(c); err != nil {
			return nil, fmt.Errorf("Skeleton %s: %w", sk.Name, err)
		}
	}
	return sk, nil
}

// DecodeForcePlateDefinition decodes a force plate definition (without tag).
func DecodeForcePlateDefinition(c *Cursor) (*model.ForcePlateDefinition, error) {
	var err error
	fp := &model.ForcePlateDefinition{}
	if fp.ID, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("Force plate ID: %w", err)
	}
	if fp.Serial, err = c.ReadCString(); err != nil {
		return nil, fmt.Errorf("Serial of force plate %d: %w", fp.ID, err)
	}
	if fp.Width, err = c.ReadF32(); err != nil {
		return nil, fmt.Errorf("Width of force plate %d: %w", fp.ID, err)
	}
	if fp.Length, err = c.ReadF32(); err != nil {
		return nil, fmt.Errorf("Length of force plate %d: %w", fp.ID, err)
	}
	if fp.Origin, err = c.ReadVec3(); err != nil {
		return nil, fmt.Errorf("Origin of force plate %d: %w", fp.ID, err)
	}
	for r := 0; r < calibrationRows; r++ {
		for col := 0; col < calibrationColumns; col++ {
			if fp.Calibration[r][col], err = c.ReadF32(); err != nil {
				return nil, fmt.Errorf("Calibration matrix of force plate %d: %w", fp.ID, err)
			}
		}
	}
	for i := 0; i < forcePlateCornerSize; i++ {
		if fp.Corners[i], err = c.ReadF32(); err != nil {
			return nil, fmt.Errorf("Corners of force plate %d: %w", fp.ID, err)
		}
	}
	if fp.PlateType, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("Plate type of force plate %d: %w", fp.ID, err)
	}
	if fp.ChannelType, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("Channel type of force plate %d: %w", fp.ID, err)
	}
	if fp.ChannelNames, err = readCStrings(c); err != nil {
		return nil, fmt.Errorf("Channel names of force plate %d: %w", fp.ID, err)
	}
	return fp, nil
}

// DecodeDeviceDefinition decodes a device definition (without tag).
func DecodeDeviceDefinition(c *Cursor) (*model.DeviceDefinition, error) {
	var err error
	d := &model.DeviceDefinition{}
	if d.ID, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("Device ID: %w", err)
	}
	if d.Name, err = c.ReadCString(); err != nil {
		return nil, fmt.Errorf("Name of device %d: %w", d.ID, err)
	}
	if d.Serial, err = c.ReadCString(); err != nil {
		return nil, fmt.Errorf("Serial of device %s: %w", d.Name, err)
	}
	if d.DeviceType, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("Type of device %s: %w", d.Name, err)
	}
	if d.DataType, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("Data type of device %s: %w", d.Name, err)
	}
	if d.ChannelNames, err = readCStrings(c); err != nil {
		return nil, fmt.Errorf("Channel names of device %s: %w", d.Name, err)
	}
	return d, nil
}

// DecodeCameraDefinition decodes a camera definition (without tag).
func DecodeCameraDefinition(c *Cursor) (*model.CameraDefinition, error) {
	var err error
	cam := &model.CameraDefinition{}
	if cam.Name, err = c.ReadCString(); err != nil {
		return nil, fmt.Errorf("Camera name: %w", err)
	}
	if cam.Position, err = c.ReadVec3(); err != nil {
		return nil, fmt.Errorf("Position of camera %s: %w", cam.Name, err)
	}
	if cam.Orientation, err = c.ReadVec4(); err != nil {
		return nil, fmt.Errorf("Orientation of camera %s: %w", cam.Name, err)
	}
	return cam, nil
}
