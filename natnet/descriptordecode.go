// mocap-recorder - record motion capture streams from NatNet servers
//  Copyright (C) 2026, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package natnet

const (
	calibrationSize   = 12 * 12 * 4
	cornersSize       = 4 * positionSize
	minDescriptorName = 1

	// name + id + parent + position + marker count
	minRigidBodyDescriptionSize = minDescriptorName + 4 + 4 + positionSize + 4
	// name + id + position + size + param
	minMarkerDescriptionSize = minDescriptorName + 4 + positionSize + 4 + 2
)

func readNames(r *Reader) ([]string, error) {
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	return readArray(r, n, minDescriptorName, readCString)
}

func readMarkerSetDescription(r *Reader) (MarkerSetDescription, error) {
	name, err := r.CString()
	if err != nil {
		return MarkerSetDescription{}, err
	}
	names, err := readNames(r)
	if err != nil {
		return MarkerSetDescription{}, err
	}
	return MarkerSetDescription{Name: name, MarkerNames: names}, nil
}

// readRigidBodyDescription decodes the rigid body definition shared by
// both layouts. Marker positions and marker ids are sent as two
// separate arrays.
func readRigidBodyDescription(r *Reader) (RigidBodyDescription, error) {
	var d RigidBodyDescription
	var err error
	if d.Name, err = r.CString(); err != nil {
		return d, err
	}
	if d.ID, err = r.Int32(); err != nil {
		return d, err
	}
	if d.ParentID, err = r.Int32(); err != nil {
		return d, err
	}
	if d.Position, err = readPosition(r); err != nil {
		return d, err
	}
	n, err := r.Count()
	if err != nil {
		return d, err
	}
	positions, err := readPositions(r, n)
	if err != nil {
		return d, err
	}
	ids, err := readFixedArray(r, n, 4, (*Reader).Int32)
	if err != nil {
		return d, err
	}
	d.Markers = make([]RigidBodyMarker, n)
	for i := range d.Markers {
		d.Markers[i] = RigidBodyMarker{ID: ids[i], Position: positions[i]}
	}
	return d, nil
}

// readNamedRigidBodyDescription decodes a rigid body definition followed
// by one name per marker, in marker order.
func readNamedRigidBodyDescription(r *Reader) (RigidBodyDescription, error) {
	d, err := readRigidBodyDescription(r)
	if err != nil {
		return d, err
	}
	for i := range d.Markers {
		if d.Markers[i].Name, err = r.CString(); err != nil {
			return d, err
		}
	}
	return d, nil
}

func (p *Profile) readSkeletonDescription(r *Reader) (SkeletonDescription, error) {
	var d SkeletonDescription
	var err error
	if d.Name, err = r.CString(); err != nil {
		return d, err
	}
	if d.ID, err = r.Int32(); err != nil {
		return d, err
	}
	n, err := r.Count()
	if err != nil {
		return d, err
	}
	d.RigidBodies, err = readArray(r, n, minRigidBodyDescriptionSize, p.readRigidBodyDescription)
	return d, err
}

func readForcePlateDescription(r *Reader) (ForcePlateDescription, error) {
	var d ForcePlateDescription
	var err error
	if d.ID, err = r.Int32(); err != nil {
		return d, err
	}
	if d.SerialNumber, err = r.CString(); err != nil {
		return d, err
	}
	if d.Width, err = r.Float32(); err != nil {
		return d, err
	}
	if d.Length, err = r.Float32(); err != nil {
		return d, err
	}
	if d.Origin, err = readPosition(r); err != nil {
		return d, err
	}
	if r.Remaining() < calibrationSize+cornersSize {
		return d, truncated(r.off, calibrationSize+cornersSize, r.Remaining())
	}
	for i := range d.CalibrationMatrix {
		for j := range d.CalibrationMatrix[i] {
			d.CalibrationMatrix[i][j], _ = r.Float32()
		}
	}
	for i := range d.Corners {
		d.Corners[i], _ = readPosition(r)
	}
	if d.PlateType, err = r.Int32(); err != nil {
		return d, err
	}
	if d.ChannelDataType, err = r.Int32(); err != nil {
		return d, err
	}
	d.ChannelNames, err = readNames(r)
	return d, err
}

func readDeviceDescription(r *Reader) (DeviceDescription, error) {
	var d DeviceDescription
	var err error
	if d.ID, err = r.Int32(); err != nil {
		return d, err
	}
	if d.Name, err = r.CString(); err != nil {
		return d, err
	}
	if d.SerialNumber, err = r.CString(); err != nil {
		return d, err
	}
	if d.DeviceType, err = r.Int32(); err != nil {
		return d, err
	}
	if d.ChannelDataType, err = r.Int32(); err != nil {
		return d, err
	}
	d.ChannelNames, err = readNames(r)
	return d, err
}

func readCameraDescription(r *Reader) (CameraDescription, error) {
	var d CameraDescription
	var err error
	if d.Name, err = r.CString(); err != nil {
		return d, err
	}
	if d.Position, err = readPosition(r); err != nil {
		return d, err
	}
	d.Orientation, err = readQuaternion(r)
	return d, err
}

func readMarkerDescription(r *Reader) (MarkerDescription, error) {
	var d MarkerDescription
	var err error
	if d.Name, err = r.CString(); err != nil {
		return d, err
	}
	if d.ID, err = r.Int32(); err != nil {
		return d, err
	}
	if d.Position, err = readPosition(r); err != nil {
		return d, err
	}
	if d.Size, err = r.Float32(); err != nil {
		return d, err
	}
	d.Param, err = r.Int16()
	return d, err
}

func (p *Profile) readAssetDescription(r *Reader) (AssetDescription, error) {
	var d AssetDescription
	var err error
	if d.Name, err = r.CString(); err != nil {
		return d, err
	}
	if d.Type, err = r.Int32(); err != nil {
		return d, err
	}
	if d.ID, err = r.Int32(); err != nil {
		return d, err
	}
	n, err := r.Count()
	if err != nil {
		return d, err
	}
	if d.RigidBodies, err = readArray(r, n, minRigidBodyDescriptionSize, p.readRigidBodyDescription); err != nil {
		return d, err
	}
	if n, err = r.Count(); err != nil {
		return d, err
	}
	d.Markers, err = readArray(r, n, minMarkerDescriptionSize, readMarkerDescription)
	return d, err
}

// readDescriptor decodes the body of one entry of kind tag into table.
// It reports false without consuming anything when tag is unknown.
func (p *Profile) readDescriptor(r *Reader, tag DescriptorTag, table *Descriptors) (bool, error) {
	switch tag {
	case TagMarkerSet:
		d, err := readMarkerSetDescription(r)
		if err != nil {
			return true, err
		}
		table.MarkerSets[d.Key()] = d
	case TagRigidBody:
		d, err := p.readRigidBodyDescription(r)
		if err != nil {
			return true, err
		}
		table.RigidBodies[d.Key()] = d
	case TagSkeleton:
		d, err := p.readSkeletonDescription(r)
		if err != nil {
			return true, err
		}
		table.Skeletons[d.Key()] = d
	case TagForcePlate:
		d, err := readForcePlateDescription(r)
		if err != nil {
			return true, err
		}
		table.ForcePlates[d.Key()] = d
	case TagDevice:
		d, err := readDeviceDescription(r)
		if err != nil {
			return true, err
		}
		table.Devices[d.Key()] = d
	case TagCamera:
		d, err := readCameraDescription(r)
		if err != nil {
			return true, err
		}
		table.Cameras[d.Key()] = d
	case TagAsset:
		d, err := p.readAssetDescription(r)
		if err != nil {
			return true, err
		}
		table.Assets[d.Key()] = d
	default:
		return false, nil
	}
	return true, nil
}
