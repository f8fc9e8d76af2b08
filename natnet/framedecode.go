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

// Encoded sizes of the fixed width frame records.
const (
	rigidBodySize      = 38
	assetRigidBodySize = 38
	markerSize         = 26
	legacySuffixSize   = 42
	currentSuffixSize  = 50

	// Smallest possible encodings of variable width records, used to
	// bound allocations.
	minMarkerSetSize  = 1 + 4
	minSkeletonSize   = 4 + 4
	minAssetSize      = 4 + 4 + 4
	minChannelSize    = 4
	minChannelSetSize = 4 + 4
)

// Bits of the 16-bit parameter fields.
const (
	rigidBodyTracked     = 0x01
	suffixRecording      = 0x01
	suffixModelsChanged  = 0x02
	legacyResidualFactor = 1000.0
)

// readSectionCount reads the element count of a frame section. When
// sized is set the count is followed by the section's byte size, which
// is consumed and ignored.
func readSectionCount(r *Reader, sized bool) (int, error) {
	n, err := r.Count()
	if err != nil {
		return 0, err
	}
	if sized {
		if _, err := r.Int32(); err != nil {
			return 0, err
		}
	}
	return n, nil
}

func readFramePrefix(r *Reader) (FramePrefix, error) {
	n, err := r.Int32()
	if err != nil {
		return FramePrefix{}, err
	}
	return FramePrefix{FrameNumber: n}, nil
}

func readPositions(r *Reader, n int) ([]Position, error) {
	return readFixedArray(r, n, positionSize, readPosition)
}

func readMarkerSet(r *Reader) (MarkerSet, error) {
	name, err := r.CString()
	if err != nil {
		return MarkerSet{}, err
	}
	n, err := r.Count()
	if err != nil {
		return MarkerSet{}, err
	}
	positions, err := readPositions(r, n)
	if err != nil {
		return MarkerSet{}, err
	}
	return MarkerSet{Name: name, Positions: positions}, nil
}

func readMarkerSets(r *Reader, sized bool) (MarkerSetData, error) {
	n, err := readSectionCount(r, sized)
	if err != nil {
		return MarkerSetData{}, err
	}
	sets, err := readArray(r, n, minMarkerSetSize, readMarkerSet)
	if err != nil {
		return MarkerSetData{}, err
	}
	return MarkerSetData{MarkerSets: sets}, nil
}

func readLegacyMarkers(r *Reader, sized bool) (LegacyMarkerSetData, error) {
	n, err := readSectionCount(r, sized)
	if err != nil {
		return LegacyMarkerSetData{}, err
	}
	positions, err := readPositions(r, n)
	if err != nil {
		return LegacyMarkerSetData{}, err
	}
	return LegacyMarkerSetData{Positions: positions}, nil
}

func readRigidBody(r *Reader) (RigidBody, error) {
	if r.Remaining() < rigidBodySize {
		return RigidBody{}, truncated(r.off, rigidBodySize, r.Remaining())
	}
	var rb RigidBody
	rb.ID, _ = r.Int32()
	rb.Position, _ = readPosition(r)
	rb.Orientation, _ = readQuaternion(r)
	rb.MeanError, _ = r.Float32()
	param, _ := r.Int16()
	rb.Tracked = param&rigidBodyTracked != 0
	return rb, nil
}

func readRigidBodies(r *Reader, sized bool) (RigidBodyData, error) {
	n, err := readSectionCount(r, sized)
	if err != nil {
		return RigidBodyData{}, err
	}
	rbs, err := readFixedArray(r, n, rigidBodySize, readRigidBody)
	if err != nil {
		return RigidBodyData{}, err
	}
	return RigidBodyData{RigidBodies: rbs}, nil
}

func readSkeleton(r *Reader) (Skeleton, error) {
	id, err := r.Int32()
	if err != nil {
		return Skeleton{}, err
	}
	n, err := r.Count()
	if err != nil {
		return Skeleton{}, err
	}
	rbs, err := readFixedArray(r, n, rigidBodySize, readRigidBody)
	if err != nil {
		return Skeleton{}, err
	}
	return Skeleton{ID: id, RigidBodies: rbs}, nil
}

func readSkeletons(r *Reader, sized bool) (SkeletonData, error) {
	n, err := readSectionCount(r, sized)
	if err != nil {
		return SkeletonData{}, err
	}
	skeletons, err := readArray(r, n, minSkeletonSize, readSkeleton)
	if err != nil {
		return SkeletonData{}, err
	}
	return SkeletonData{Skeletons: skeletons}, nil
}

func readAssetRigidBody(r *Reader) (AssetRigidBody, error) {
	if r.Remaining() < assetRigidBodySize {
		return AssetRigidBody{}, truncated(r.off, assetRigidBodySize, r.Remaining())
	}
	var rb AssetRigidBody
	rb.ID, _ = r.Int32()
	rb.Position, _ = readPosition(r)
	rb.Orientation, _ = readQuaternion(r)
	rb.MeanError, _ = r.Float32()
	rb.Param, _ = r.Int16()
	return rb, nil
}

func readAssetMarker(r *Reader) (AssetMarker, error) {
	if r.Remaining() < markerSize {
		return AssetMarker{}, truncated(r.off, markerSize, r.Remaining())
	}
	var m AssetMarker
	m.ID, _ = r.Int32()
	m.Position, _ = readPosition(r)
	m.Size, _ = r.Float32()
	m.Param, _ = r.Int16()
	m.Residual, _ = r.Float32()
	return m, nil
}

func readAsset(r *Reader) (Asset, error) {
	id, err := r.Int32()
	if err != nil {
		return Asset{}, err
	}
	n, err := r.Count()
	if err != nil {
		return Asset{}, err
	}
	rbs, err := readFixedArray(r, n, assetRigidBodySize, readAssetRigidBody)
	if err != nil {
		return Asset{}, err
	}
	n, err = r.Count()
	if err != nil {
		return Asset{}, err
	}
	markers, err := readFixedArray(r, n, markerSize, readAssetMarker)
	if err != nil {
		return Asset{}, err
	}
	return Asset{ID: id, RigidBodies: rbs, Markers: markers}, nil
}

// readAssets decodes the asset section. It only exists in the current
// layout, which always carries a section size.
func readAssets(r *Reader) (*AssetData, error) {
	n, err := readSectionCount(r, true)
	if err != nil {
		return nil, err
	}
	assets, err := readArray(r, n, minAssetSize, readAsset)
	if err != nil {
		return nil, err
	}
	return &AssetData{Assets: assets}, nil
}

// labeledMarkerReader returns a decoder for one labeled marker which
// multiplies the residual by scale.
func labeledMarkerReader(scale float32) func(*Reader) (LabeledMarker, error) {
	return func(r *Reader) (LabeledMarker, error) {
		if r.Remaining() < markerSize {
			return LabeledMarker{}, truncated(r.off, markerSize, r.Remaining())
		}
		var m LabeledMarker
		m.ID, _ = r.Int32()
		m.Position, _ = readPosition(r)
		m.Size, _ = r.Float32()
		m.Param, _ = r.Int16()
		residual, _ := r.Float32()
		m.Residual = residual * scale
		return m, nil
	}
}

func readLabeledMarkers(r *Reader, sized bool, residualScale float32) (LabeledMarkerData, error) {
	n, err := readSectionCount(r, sized)
	if err != nil {
		return LabeledMarkerData{}, err
	}
	markers, err := readFixedArray(r, n, markerSize, labeledMarkerReader(residualScale))
	if err != nil {
		return LabeledMarkerData{}, err
	}
	return LabeledMarkerData{Markers: markers}, nil
}

func readChannel(r *Reader) (Channel, error) {
	n, err := r.Count()
	if err != nil {
		return Channel{}, err
	}
	samples, err := readFixedArray(r, n, 4, readFloat32)
	if err != nil {
		return Channel{}, err
	}
	return Channel{Samples: samples}, nil
}

// readChannels decodes n channel series in index order. Force plates
// and devices share this layout.
func readChannels(r *Reader, n int) ([]Channel, error) {
	return readArray(r, n, minChannelSize, readChannel)
}

// readChannelSet reads the id, channel count and channels shared by
// force plates and devices.
func readChannelSet(r *Reader) (int32, []Channel, error) {
	id, err := r.Int32()
	if err != nil {
		return 0, nil, err
	}
	n, err := r.Count()
	if err != nil {
		return 0, nil, err
	}
	channels, err := readChannels(r, n)
	if err != nil {
		return 0, nil, err
	}
	return id, channels, nil
}

func readForcePlate(r *Reader) (ForcePlate, error) {
	id, channels, err := readChannelSet(r)
	if err != nil {
		return ForcePlate{}, err
	}
	return ForcePlate{ID: id, Channels: channels}, nil
}

func readForcePlates(r *Reader, sized bool) (ForcePlateData, error) {
	n, err := readSectionCount(r, sized)
	if err != nil {
		return ForcePlateData{}, err
	}
	plates, err := readArray(r, n, minChannelSetSize, readForcePlate)
	if err != nil {
		return ForcePlateData{}, err
	}
	return ForcePlateData{ForcePlates: plates}, nil
}

func readDevice(r *Reader) (Device, error) {
	id, channels, err := readChannelSet(r)
	if err != nil {
		return Device{}, err
	}
	return Device{ID: id, Channels: channels}, nil
}

func readDevices(r *Reader, sized bool) (DeviceData, error) {
	n, err := readSectionCount(r, sized)
	if err != nil {
		return DeviceData{}, err
	}
	devices, err := readArray(r, n, minChannelSetSize, readDevice)
	if err != nil {
		return DeviceData{}, err
	}
	return DeviceData{Devices: devices}, nil
}

// readSuffixTimes reads the timing fields common to both suffix
// layouts.
func readSuffixTimes(r *Reader, s *FrameSuffix) {
	s.Timecode, _ = r.Int32()
	s.TimecodeSub, _ = r.Int32()
	s.Timestamp, _ = r.Float64()
	s.CameraMidExposure, _ = r.Int64()
	s.StampData, _ = r.Int64()
	s.StampTransmit, _ = r.Int64()
}

func setSuffixFlags(s *FrameSuffix, param int16) {
	s.Recording = param&suffixRecording != 0
	s.TrackedModelsChanged = param&suffixModelsChanged != 0
}

func readLegacySuffix(r *Reader) (FrameSuffix, error) {
	if r.Remaining() < legacySuffixSize {
		return FrameSuffix{}, truncated(r.off, legacySuffixSize, r.Remaining())
	}
	var s FrameSuffix
	readSuffixTimes(r, &s)
	param, _ := r.Int16()
	setSuffixFlags(&s, param)
	return s, nil
}

func readCurrentSuffix(r *Reader) (FrameSuffix, error) {
	if r.Remaining() < currentSuffixSize {
		return FrameSuffix{}, truncated(r.off, currentSuffixSize, r.Remaining())
	}
	var s FrameSuffix
	readSuffixTimes(r, &s)
	p := new(PrecisionTimestamp)
	p.Seconds, _ = r.Int32()
	p.FracSeconds, _ = r.Int32()
	s.Precision = p
	param, _ := r.Int16()
	setSuffixFlags(&s, param)
	return s, nil
}
