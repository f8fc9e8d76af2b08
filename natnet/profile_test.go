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

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileFor(t *testing.T) {
	tests := []struct {
		version Version
		name    string
	}{
		{Version{3, 0}, LegacyProfile},
		{Version{3, 1}, LegacyProfile},
		{Version{4, 0}, LegacyProfile},
		{Version{4, 1}, CurrentProfile},
		{Version{4, 2}, CurrentProfile},
		{Version{5, 0}, CurrentProfile},
	}
	for _, test := range tests {
		p, err := ProfileFor(test.version)
		require.NoError(t, err, test.version.String())
		assert.Equal(t, test.name, p.Name, test.version.String())
	}

	for _, v := range []Version{{2, 9}, {0, 0}, {1, 10}} {
		_, err := ProfileFor(v)
		assert.True(t, errors.Is(err, ErrUnsupportedVersion), v.String())
	}
}

func TestProfileForReturnsCopy(t *testing.T) {
	a, err := ProfileFor(Version{4, 1})
	require.NoError(t, err)
	b, err := ProfileFor(Version{4, 1})
	require.NoError(t, err)
	a.SetLogFunc(nil)
	assert.NotSame(t, a, b)
	assert.NotNil(t, b.logf)
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("4.1.0.0")
	require.NoError(t, err)
	assert.Equal(t, Version{4, 1}, v)

	_, err = ParseVersion("4")
	assert.Error(t, err)
	_, err = ParseVersion("a.b")
	assert.Error(t, err)
}

func testFrame(current bool) *Frame {
	f := &Frame{
		Prefix: FramePrefix{FrameNumber: 1234},
		MarkerSets: MarkerSetData{MarkerSets: []MarkerSet{
			{Name: "wand", Positions: []Position{{1, 2, 3}, {4, 5, 6}}},
			{Name: "all", Positions: []Position{}},
		}},
		LegacyMarkers: LegacyMarkerSetData{Positions: []Position{{0.5, 0.25, 0.125}}},
		RigidBodies: RigidBodyData{RigidBodies: []RigidBody{
			{ID: 1, Position: Position{1, 1, 1}, Orientation: Quaternion{0, 0, 0, 1}, MeanError: 0.001, Tracked: true},
			{ID: 2, Position: Position{2, 2, 2}, Orientation: Quaternion{0.5, 0.5, 0.5, 0.5}, MeanError: 0, Tracked: false},
		}},
		Skeletons: SkeletonData{Skeletons: []Skeleton{
			{ID: 10, RigidBodies: []RigidBody{{ID: 1, Orientation: Quaternion{W: 1}, Tracked: true}}},
		}},
		LabeledMarkers: LabeledMarkerData{Markers: []LabeledMarker{
			{ID: 0x00010005, Position: Position{3, 2, 1}, Size: 0.014, Param: 4, Residual: 0.5},
		}},
		ForcePlates: ForcePlateData{ForcePlates: []ForcePlate{
			{ID: 1, Channels: []Channel{{Samples: []float32{1, 2, 3}}, {Samples: []float32{}}}},
		}},
		Devices: DeviceData{Devices: []Device{
			{ID: 7, Channels: []Channel{{Samples: []float32{9}}}},
		}},
		Suffix: FrameSuffix{
			Timecode:             100,
			TimecodeSub:          2,
			Timestamp:            12.5,
			CameraMidExposure:    1000,
			StampData:            1001,
			StampTransmit:        1002,
			Recording:            true,
			TrackedModelsChanged: false,
		},
	}
	if current {
		f.Assets = &AssetData{Assets: []Asset{{
			ID:          3,
			RigidBodies: []AssetRigidBody{{ID: 1, Orientation: Quaternion{W: 1}, MeanError: 0.5, Param: 1}},
			Markers:     []AssetMarker{{ID: 2, Position: Position{1, 0, 0}, Size: 0.01, Param: 3, Residual: 0.25}},
		}}}
		f.Suffix.Precision = &PrecisionTimestamp{Seconds: 1600000000, FracSeconds: 99}
	}
	return f
}

func TestDecodeFrameRoundTrip(t *testing.T) {
	for _, version := range []Version{{3, 1}, {4, 1}} {
		t.Run(version.String(), func(t *testing.T) {
			p, err := ProfileFor(version)
			require.NoError(t, err)
			current := p.Name == CurrentProfile
			assert.Equal(t, current, p.HasAssets())

			f := testFrame(current)
			data := newEncoder(current).frame(f)

			got, err := p.DecodeFrame(data)
			require.NoError(t, err)

			want := testFrame(current)
			for i := range want.LabeledMarkers.Markers {
				want.LabeledMarkers.Markers[i].Residual *= p.residualScale
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestDecodeFrameIgnoresTrailingBytes(t *testing.T) {
	p, err := ProfileFor(Version{4, 1})
	require.NoError(t, err)
	data := newEncoder(true).frame(testFrame(true))

	got, err := p.DecodeFrame(padded(data))
	require.NoError(t, err)
	assert.Equal(t, int32(1234), got.Prefix.FrameNumber)
}

func TestDecodeFrameTruncated(t *testing.T) {
	for _, version := range []Version{{3, 0}, {4, 1}} {
		p, err := ProfileFor(version)
		require.NoError(t, err)
		data := newEncoder(p.Name == CurrentProfile).frame(testFrame(p.Name == CurrentProfile))

		for n := 0; n < len(data); n++ {
			_, err := p.DecodeFrame(data[:n])
			require.Error(t, err, "%s: length %d", version, n)
			assert.True(t, errors.Is(err, ErrTruncatedFrame), "%s: length %d: %v", version, n, err)
		}

		_, err = p.DecodeFrame(data[:len(data)-1])
		assert.True(t, errors.Is(err, ErrTruncatedFrame))
		assert.True(t, errors.Is(err, ErrTruncatedBuffer))
	}
}

func TestDecodeFrameCutInsideName(t *testing.T) {
	p, err := ProfileFor(Version{4, 1})
	require.NoError(t, err)
	f := &Frame{MarkerSets: MarkerSetData{MarkerSets: []MarkerSet{
		{Name: "a-long-marker-set-name", Positions: []Position{}},
	}}}
	data := newEncoder(true).frame(f)

	// The name follows the prefix, the set count and the section size.
	_, err = p.DecodeFrame(data[:4+4+4+10])
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTruncatedFrame))
	assert.True(t, errors.Is(err, ErrUnterminatedString))
}

func testDescriptors(current bool) *Descriptors {
	name := func(s string) string {
		if current {
			return s
		}
		return ""
	}
	rb := RigidBodyDescription{
		Name:     "body",
		ID:       1,
		ParentID: -1,
		Position: Position{0, 1, 0},
		Markers: []RigidBodyMarker{
			{Name: name("m1"), ID: 11, Position: Position{0.1, 0, 0}},
			{Name: name("m2"), ID: 12, Position: Position{0, 0.1, 0}},
		},
	}
	bone := RigidBodyDescription{
		Name:     "hip",
		ID:       2,
		ParentID: 1,
		Markers:  []RigidBodyMarker{{Name: name("hipmarker"), ID: 21}},
	}
	var plate ForcePlateDescription
	plate.ID = 1
	plate.SerialNumber = "FP-001"
	plate.Width = 0.6
	plate.Length = 0.4
	plate.Origin = Position{0, -0.04, 0}
	for i := range plate.CalibrationMatrix {
		plate.CalibrationMatrix[i][i] = float32(i + 1)
	}
	plate.Corners = [4]Position{{0, 0, 0}, {0.6, 0, 0}, {0.6, 0, 0.4}, {0, 0, 0.4}}
	plate.PlateType = 2
	plate.ChannelDataType = 1
	plate.ChannelNames = []string{"Fx", "Fy", "Fz"}

	d := NewDescriptors()
	d.MarkerSets["wand"] = MarkerSetDescription{Name: "wand", MarkerNames: []string{"a", "b"}}
	d.MarkerSets["empty"] = MarkerSetDescription{Name: "empty", MarkerNames: []string{}}
	d.RigidBodies[rb.ID] = rb
	d.Skeletons[5] = SkeletonDescription{Name: "skel", ID: 5, RigidBodies: []RigidBodyDescription{bone}}
	d.ForcePlates[plate.SerialNumber] = plate
	d.Devices["DEV-9"] = DeviceDescription{ID: 9, Name: "emg", SerialNumber: "DEV-9", DeviceType: 1, ChannelDataType: 2, ChannelNames: []string{"c1"}}
	d.Cameras["cam1"] = CameraDescription{Name: "cam1", Position: Position{1, 2, 3}, Orientation: Quaternion{0, 0, 0, 1}}
	d.Assets[8] = AssetDescription{
		Name:        "asset",
		Type:        1,
		ID:          8,
		RigidBodies: []RigidBodyDescription{bone},
		Markers:     []MarkerDescription{{Name: "am", ID: 1, Position: Position{1, 1, 1}, Size: 0.02, Param: 1}},
	}
	return d
}

func TestDecodeDescriptorsRoundTrip(t *testing.T) {
	for _, version := range []Version{{3, 0}, {4, 1}} {
		t.Run(version.String(), func(t *testing.T) {
			p, err := ProfileFor(version)
			require.NoError(t, err)
			current := p.Name == CurrentProfile

			want := testDescriptors(current)
			data := newEncoder(current).descriptors(tableEntries(want))

			got, err := p.DecodeDescriptors(data)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, 8, got.Len())
			assert.Len(t, got.RigidBodies[1].MarkersByID(), 2)
		})
	}
}

func TestDecodeDescriptorsMarkerNames(t *testing.T) {
	p, err := ProfileFor(Version{4, 1})
	require.NoError(t, err)
	data := newEncoder(true).descriptors(tableEntries(testDescriptors(true)))

	got, err := p.DecodeDescriptors(data)
	require.NoError(t, err)
	assert.Equal(t, "m2", got.RigidBodies[1].MarkersByID()[12].Name)
	assert.Equal(t, "hipmarker", got.Skeletons[5].RigidBodiesByID()[2].Markers[0].Name)
	assert.Equal(t, "hipmarker", got.Assets[8].RigidBodies[0].Markers[0].Name)
}

func TestLegacyUnknownTagIsUnrecoverable(t *testing.T) {
	p, err := ProfileFor(Version{3, 0})
	require.NoError(t, err)
	entries := []descriptorEntry{
		{tag: TagCamera, body: func(e *encoder) { e.cameraDescription(CameraDescription{Name: "first"}) }},
		{tag: DescriptorTag(42), body: func(e *encoder) { e.i32(0) }},
		{tag: TagMarkerSet, body: func(e *encoder) { e.markerSetDescription(MarkerSetDescription{Name: "later", MarkerNames: []string{}}) }},
	}
	data := newEncoder(false).descriptors(entries)

	table, err := p.DecodeDescriptors(data)
	assert.True(t, errors.Is(err, ErrUnrecoverableDescriptor), "%v", err)
	assert.Nil(t, table)
}

func TestCurrentUnknownTagIsSkipped(t *testing.T) {
	p, err := ProfileFor(Version{4, 1})
	require.NoError(t, err)
	var logs []string
	p.SetLogFunc(func(format string, v ...interface{}) {
		logs = append(logs, fmt.Sprintf(format, v...))
	})
	entries := []descriptorEntry{
		{tag: DescriptorTag(42), body: func(e *encoder) { e.WriteString("opaque future record") }},
		{tag: TagMarkerSet, body: func(e *encoder) { e.markerSetDescription(MarkerSetDescription{Name: "wand", MarkerNames: []string{"a"}}) }},
	}
	data := newEncoder(true).descriptors(entries)

	table, err := p.DecodeDescriptors(data)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, []string{"a"}, table.MarkerSets["wand"].MarkerNames)
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0], "42")
}

func TestCurrentDescriptorFollowsDeclaredSize(t *testing.T) {
	p, err := ProfileFor(Version{4, 1})
	require.NoError(t, err)
	p.SetLogFunc(nil)
	entries := []descriptorEntry{
		{tag: TagCamera, body: func(e *encoder) { e.cameraDescription(CameraDescription{Name: "cam"}) }, pad: 9},
		{tag: TagCamera, body: func(e *encoder) { e.cameraDescription(CameraDescription{Name: "cam2"}) }},
	}
	data := newEncoder(true).descriptors(entries)

	table, err := p.DecodeDescriptors(data)
	require.NoError(t, err)
	assert.Len(t, table.Cameras, 2)
	assert.Contains(t, table.Cameras, "cam2")
}

func TestDescriptorKeyCollision(t *testing.T) {
	p, err := ProfileFor(Version{3, 0})
	require.NoError(t, err)
	entries := []descriptorEntry{
		{tag: TagCamera, body: func(e *encoder) { e.cameraDescription(CameraDescription{Name: "cam", Position: Position{X: 1}}) }},
		{tag: TagCamera, body: func(e *encoder) { e.cameraDescription(CameraDescription{Name: "cam", Position: Position{X: 2}}) }},
	}
	data := newEncoder(false).descriptors(entries)

	table, err := p.DecodeDescriptors(data)
	require.NoError(t, err)
	assert.Len(t, table.Cameras, 1)
	assert.Equal(t, float32(2), table.Cameras["cam"].Position.X)
}

func TestDecodeDescriptorsTruncated(t *testing.T) {
	for _, version := range []Version{{3, 0}, {4, 1}} {
		p, err := ProfileFor(version)
		require.NoError(t, err)
		current := p.Name == CurrentProfile
		data := newEncoder(current).descriptors(tableEntries(testDescriptors(current)))

		for n := 0; n < len(data); n++ {
			table, err := p.DecodeDescriptors(data[:n])
			require.Error(t, err, "%s: length %d", version, n)
			assert.Nil(t, table)
		}
		_, err = p.DecodeDescriptors(data[:len(data)-1])
		assert.True(t, errors.Is(err, ErrTruncatedBuffer), "%v", err)
	}
}

func TestDecodeDescriptorsEmpty(t *testing.T) {
	p, err := ProfileFor(Version{4, 1})
	require.NoError(t, err)
	table, err := p.DecodeDescriptors([]byte{0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}
