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

import "fmt"

// DescriptorTag identifies the kind of a model definition entry.
type DescriptorTag int32

const (
	TagMarkerSet  DescriptorTag = 0
	TagRigidBody  DescriptorTag = 1
	TagSkeleton   DescriptorTag = 2
	TagForcePlate DescriptorTag = 3
	TagDevice     DescriptorTag = 4
	TagCamera     DescriptorTag = 5
	TagAsset      DescriptorTag = 6
)

var tagNames = map[DescriptorTag]string{
	TagMarkerSet:  "marker set",
	TagRigidBody:  "rigid body",
	TagSkeleton:   "skeleton",
	TagForcePlate: "force plate",
	TagDevice:     "device",
	TagCamera:     "camera",
	TagAsset:      "asset",
}

func (t DescriptorTag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unrecognized(%d)", int32(t))
}

// Known reports whether t is one of the defined descriptor kinds.
func (t DescriptorTag) Known() bool {
	_, ok := tagNames[t]
	return ok
}

type MarkerSetDescription struct {
	Name        string
	MarkerNames []string
}

func (d MarkerSetDescription) Key() string { return d.Name }

// RigidBodyMarker is one marker of a rigid body definition. Name is
// only sent by current servers and is empty otherwise.
type RigidBodyMarker struct {
	Name     string
	ID       int32
	Position Position
}

// RigidBodyDescription defines a rigid body. ParentID is -1 for rigid
// bodies without a parent.
type RigidBodyDescription struct {
	Name     string
	ID       int32
	ParentID int32
	Position Position
	Markers  []RigidBodyMarker
}

func (d RigidBodyDescription) Key() int32 { return d.ID }

func (d RigidBodyDescription) MarkersByID() map[int32]RigidBodyMarker {
	m := make(map[int32]RigidBodyMarker, len(d.Markers))
	for _, mk := range d.Markers {
		m[mk.ID] = mk
	}
	return m
}

type SkeletonDescription struct {
	Name        string
	ID          int32
	RigidBodies []RigidBodyDescription
}

func (d SkeletonDescription) Key() int32 { return d.ID }

func (d SkeletonDescription) RigidBodiesByID() map[int32]RigidBodyDescription {
	return rigidBodyDescriptionsByID(d.RigidBodies)
}

func rigidBodyDescriptionsByID(rbs []RigidBodyDescription) map[int32]RigidBodyDescription {
	m := make(map[int32]RigidBodyDescription, len(rbs))
	for _, rb := range rbs {
		m[rb.ID] = rb
	}
	return m
}

// ForcePlateDescription holds the geometry and calibration of a force
// plate. Corners are in the plate's coordinate system.
type ForcePlateDescription struct {
	ID                int32
	SerialNumber      string
	Width             float32
	Length            float32
	Origin            Position
	CalibrationMatrix [12][12]float32
	Corners           [4]Position
	PlateType         int32
	ChannelDataType   int32
	ChannelNames      []string
}

func (d ForcePlateDescription) Key() string { return d.SerialNumber }

type DeviceDescription struct {
	ID              int32
	Name            string
	SerialNumber    string
	DeviceType      int32
	ChannelDataType int32
	ChannelNames    []string
}

func (d DeviceDescription) Key() string { return d.SerialNumber }

type CameraDescription struct {
	Name        string
	Position    Position
	Orientation Quaternion
}

func (d CameraDescription) Key() string { return d.Name }

// MarkerDescription defines a marker belonging to an asset.
type MarkerDescription struct {
	Name     string
	ID       int32
	Position Position
	Size     float32
	Param    int16
}

type AssetDescription struct {
	Name        string
	Type        int32
	ID          int32
	RigidBodies []RigidBodyDescription
	Markers     []MarkerDescription
}

func (d AssetDescription) Key() int32 { return d.ID }

func (d AssetDescription) RigidBodiesByID() map[int32]RigidBodyDescription {
	return rigidBodyDescriptionsByID(d.RigidBodies)
}

func (d AssetDescription) MarkersByID() map[int32]MarkerDescription {
	m := make(map[int32]MarkerDescription, len(d.Markers))
	for _, mk := range d.Markers {
		m[mk.ID] = mk
	}
	return m
}

// Descriptors is the table built from one model definitions message.
// Entries whose keys collide replace earlier ones.
type Descriptors struct {
	MarkerSets  map[string]MarkerSetDescription
	RigidBodies map[int32]RigidBodyDescription
	Skeletons   map[int32]SkeletonDescription
	ForcePlates map[string]ForcePlateDescription
	Devices     map[string]DeviceDescription
	Cameras     map[string]CameraDescription
	Assets      map[int32]AssetDescription
}

// NewDescriptors returns an empty table.
func NewDescriptors() *Descriptors {
	return &Descriptors{
		MarkerSets:  make(map[string]MarkerSetDescription),
		RigidBodies: make(map[int32]RigidBodyDescription),
		Skeletons:   make(map[int32]SkeletonDescription),
		ForcePlates: make(map[string]ForcePlateDescription),
		Devices:     make(map[string]DeviceDescription),
		Cameras:     make(map[string]CameraDescription),
		Assets:      make(map[int32]AssetDescription),
	}
}

// Len returns the total number of entries across all kinds.
func (d *Descriptors) Len() int {
	return len(d.MarkerSets) + len(d.RigidBodies) + len(d.Skeletons) +
		len(d.ForcePlates) + len(d.Devices) + len(d.Cameras) + len(d.Assets)
}
