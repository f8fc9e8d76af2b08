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

// Frame is one decoded frame-of-data message. Assets is nil unless the
// frame was decoded with the current profile.
type Frame struct {
	Prefix         FramePrefix
	MarkerSets     MarkerSetData
	LegacyMarkers  LegacyMarkerSetData
	RigidBodies    RigidBodyData
	Skeletons      SkeletonData
	Assets         *AssetData
	LabeledMarkers LabeledMarkerData
	ForcePlates    ForcePlateData
	Devices        DeviceData
	Suffix         FrameSuffix
}

type FramePrefix struct {
	FrameNumber int32
}

// MarkerSet is a named group of marker positions.
type MarkerSet struct {
	Name      string
	Positions []Position
}

type MarkerSetData struct {
	MarkerSets []MarkerSet
}

// ByName indexes the marker sets by name. Later sets win on duplicate
// names.
func (d MarkerSetData) ByName() map[string]MarkerSet {
	m := make(map[string]MarkerSet, len(d.MarkerSets))
	for _, ms := range d.MarkerSets {
		m[ms.Name] = ms
	}
	return m
}

// LegacyMarkerSetData holds the unlabeled "other markers" block.
type LegacyMarkerSetData struct {
	Positions []Position
}

type RigidBody struct {
	ID          int32
	Position    Position
	Orientation Quaternion
	MeanError   float32
	Tracked     bool
}

type RigidBodyData struct {
	RigidBodies []RigidBody
}

func (d RigidBodyData) ByID() map[int32]RigidBody {
	return rigidBodiesByID(d.RigidBodies)
}

// Skeleton rigid body IDs are only unique within the skeleton.
type Skeleton struct {
	ID          int32
	RigidBodies []RigidBody
}

func (s Skeleton) ByID() map[int32]RigidBody {
	return rigidBodiesByID(s.RigidBodies)
}

type SkeletonData struct {
	Skeletons []Skeleton
}

func rigidBodiesByID(rbs []RigidBody) map[int32]RigidBody {
	m := make(map[int32]RigidBody, len(rbs))
	for _, rb := range rbs {
		m[rb.ID] = rb
	}
	return m
}

type AssetRigidBody struct {
	ID          int32
	Position    Position
	Orientation Quaternion
	MeanError   float32
	Param       int16
}

type AssetMarker struct {
	ID       int32
	Position Position
	Size     float32
	Param    int16
	Residual float32
}

type Asset struct {
	ID          int32
	RigidBodies []AssetRigidBody
	Markers     []AssetMarker
}

func (a Asset) RigidBodiesByID() map[int32]AssetRigidBody {
	m := make(map[int32]AssetRigidBody, len(a.RigidBodies))
	for _, rb := range a.RigidBodies {
		m[rb.ID] = rb
	}
	return m
}

func (a Asset) MarkersByID() map[int32]AssetMarker {
	m := make(map[int32]AssetMarker, len(a.Markers))
	for _, mk := range a.Markers {
		m[mk.ID] = mk
	}
	return m
}

type AssetData struct {
	Assets []Asset
}

func (d AssetData) ByID() map[int32]Asset {
	m := make(map[int32]Asset, len(d.Assets))
	for _, a := range d.Assets {
		m[a.ID] = a
	}
	return m
}

// LabeledMarker is a marker the server has identified. Residual is in
// millimetres for both profiles.
type LabeledMarker struct {
	ID       int32
	Position Position
	Size     float32
	Param    int16
	Residual float32
}

// ModelID returns the ID of the model the marker belongs to.
func (m LabeledMarker) ModelID() int32 {
	model, _ := DecodeMarkerID(m.ID)
	return model
}

// MarkerIndex returns the marker's index within its model.
func (m LabeledMarker) MarkerIndex() int32 {
	_, index := DecodeMarkerID(m.ID)
	return index
}

// DecodeMarkerID splits a labeled marker ID into the model ID (high 16
// bits) and marker index (low 16 bits).
func DecodeMarkerID(id int32) (modelID, markerIndex int32) {
	u := uint32(id)
	return int32(u >> 16), int32(u & 0xffff)
}

type LabeledMarkerData struct {
	Markers []LabeledMarker
}

func (d LabeledMarkerData) ByID() map[int32]LabeledMarker {
	m := make(map[int32]LabeledMarker, len(d.Markers))
	for _, mk := range d.Markers {
		m[mk.ID] = mk
	}
	return m
}

// Channel is the series of samples received for one analog channel
// during the frame.
type Channel struct {
	Samples []float32
}

type ForcePlate struct {
	ID       int32
	Channels []Channel
}

type ForcePlateData struct {
	ForcePlates []ForcePlate
}

func (d ForcePlateData) ByID() map[int32]ForcePlate {
	m := make(map[int32]ForcePlate, len(d.ForcePlates))
	for _, fp := range d.ForcePlates {
		m[fp.ID] = fp
	}
	return m
}

type Device struct {
	ID       int32
	Channels []Channel
}

type DeviceData struct {
	Devices []Device
}

func (d DeviceData) ByID() map[int32]Device {
	m := make(map[int32]Device, len(d.Devices))
	for _, dev := range d.Devices {
		m[dev.ID] = dev
	}
	return m
}

// PrecisionTimestamp is the high resolution capture time sent by
// current servers.
type PrecisionTimestamp struct {
	Seconds     int32
	FracSeconds int32
}

type FrameSuffix struct {
	Timecode             int32
	TimecodeSub          int32
	Timestamp            float64
	CameraMidExposure    int64
	StampData            int64
	StampTransmit        int64
	Recording            bool
	TrackedModelsChanged bool

	// Precision is nil for the legacy profile.
	Precision *PrecisionTimestamp
}
