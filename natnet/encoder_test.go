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
	"bytes"
	"encoding/binary"
	"sort"
)

// encoder writes NatNet payloads for tests. It mirrors the server side
// of the layouts the decoder reads.
type encoder struct {
	bytes.Buffer
	current bool
}

func newEncoder(current bool) *encoder {
	return &encoder{current: current}
}

func (e *encoder) put(v interface{}) {
	if err := binary.Write(&e.Buffer, binary.LittleEndian, v); err != nil {
		panic(err)
	}
}

func (e *encoder) i16(v int16)   { e.put(v) }
func (e *encoder) i32(v int32)   { e.put(v) }
func (e *encoder) i64(v int64)   { e.put(v) }
func (e *encoder) f32(v float32) { e.put(v) }
func (e *encoder) f64(v float64) { e.put(v) }

func (e *encoder) count(n int) { e.i32(int32(n)) }

func (e *encoder) cstring(s string) {
	e.WriteString(s)
	e.WriteByte(0)
}

func (e *encoder) position(p Position) {
	e.f32(p.X)
	e.f32(p.Y)
	e.f32(p.Z)
}

func (e *encoder) quaternion(q Quaternion) {
	e.f32(q.X)
	e.f32(q.Y)
	e.f32(q.Z)
	e.f32(q.W)
}

// section writes a frame section count, its byte size in the current
// layout, then the body.
func (e *encoder) section(n int, body func(*encoder)) {
	sub := newEncoder(e.current)
	body(sub)
	e.count(n)
	if e.current {
		e.count(sub.Len())
	}
	e.Write(sub.Bytes())
}

func boolParam(bits ...bool) int16 {
	var p int16
	for i, b := range bits {
		if b {
			p |= 1 << uint(i)
		}
	}
	return p
}

func (e *encoder) rigidBody(rb RigidBody) {
	e.i32(rb.ID)
	e.position(rb.Position)
	e.quaternion(rb.Orientation)
	e.f32(rb.MeanError)
	e.i16(boolParam(rb.Tracked))
}

func (e *encoder) labeledMarker(m LabeledMarker) {
	e.i32(m.ID)
	e.position(m.Position)
	e.f32(m.Size)
	e.i16(m.Param)
	e.f32(m.Residual)
}

func (e *encoder) channels(chs []Channel) {
	e.count(len(chs))
	for _, ch := range chs {
		e.count(len(ch.Samples))
		for _, s := range ch.Samples {
			e.f32(s)
		}
	}
}

func (e *encoder) suffix(s FrameSuffix) {
	e.i32(s.Timecode)
	e.i32(s.TimecodeSub)
	e.f64(s.Timestamp)
	e.i64(s.CameraMidExposure)
	e.i64(s.StampData)
	e.i64(s.StampTransmit)
	if e.current {
		e.i32(s.Precision.Seconds)
		e.i32(s.Precision.FracSeconds)
	}
	e.i16(boolParam(s.Recording, s.TrackedModelsChanged))
}

// frame encodes f. Labeled marker residuals are written as stored.
func (e *encoder) frame(f *Frame) []byte {
	e.i32(f.Prefix.FrameNumber)
	e.section(len(f.MarkerSets.MarkerSets), func(e *encoder) {
		for _, ms := range f.MarkerSets.MarkerSets {
			e.cstring(ms.Name)
			e.count(len(ms.Positions))
			for _, p := range ms.Positions {
				e.position(p)
			}
		}
	})
	e.section(len(f.LegacyMarkers.Positions), func(e *encoder) {
		for _, p := range f.LegacyMarkers.Positions {
			e.position(p)
		}
	})
	e.section(len(f.RigidBodies.RigidBodies), func(e *encoder) {
		for _, rb := range f.RigidBodies.RigidBodies {
			e.rigidBody(rb)
		}
	})
	e.section(len(f.Skeletons.Skeletons), func(e *encoder) {
		for _, s := range f.Skeletons.Skeletons {
			e.i32(s.ID)
			e.count(len(s.RigidBodies))
			for _, rb := range s.RigidBodies {
				e.rigidBody(rb)
			}
		}
	})
	if e.current {
		e.section(len(f.Assets.Assets), func(e *encoder) {
			for _, a := range f.Assets.Assets {
				e.i32(a.ID)
				e.count(len(a.RigidBodies))
				for _, rb := range a.RigidBodies {
					e.i32(rb.ID)
					e.position(rb.Position)
					e.quaternion(rb.Orientation)
					e.f32(rb.MeanError)
					e.i16(rb.Param)
				}
				e.count(len(a.Markers))
				for _, m := range a.Markers {
					e.i32(m.ID)
					e.position(m.Position)
					e.f32(m.Size)
					e.i16(m.Param)
					e.f32(m.Residual)
				}
			}
		})
	}
	e.section(len(f.LabeledMarkers.Markers), func(e *encoder) {
		for _, m := range f.LabeledMarkers.Markers {
			e.labeledMarker(m)
		}
	})
	e.section(len(f.ForcePlates.ForcePlates), func(e *encoder) {
		for _, fp := range f.ForcePlates.ForcePlates {
			e.i32(fp.ID)
			e.channels(fp.Channels)
		}
	})
	e.section(len(f.Devices.Devices), func(e *encoder) {
		for _, d := range f.Devices.Devices {
			e.i32(d.ID)
			e.channels(d.Channels)
		}
	})
	e.suffix(f.Suffix)
	return e.Bytes()
}

func (e *encoder) names(names []string) {
	e.count(len(names))
	for _, n := range names {
		e.cstring(n)
	}
}

func (e *encoder) rigidBodyDescription(d RigidBodyDescription) {
	e.cstring(d.Name)
	e.i32(d.ID)
	e.i32(d.ParentID)
	e.position(d.Position)
	e.count(len(d.Markers))
	for _, m := range d.Markers {
		e.position(m.Position)
	}
	for _, m := range d.Markers {
		e.i32(m.ID)
	}
	if e.current {
		for _, m := range d.Markers {
			e.cstring(m.Name)
		}
	}
}

func (e *encoder) markerSetDescription(d MarkerSetDescription) {
	e.cstring(d.Name)
	e.names(d.MarkerNames)
}

func (e *encoder) skeletonDescription(d SkeletonDescription) {
	e.cstring(d.Name)
	e.i32(d.ID)
	e.count(len(d.RigidBodies))
	for _, rb := range d.RigidBodies {
		e.rigidBodyDescription(rb)
	}
}

func (e *encoder) forcePlateDescription(d ForcePlateDescription) {
	e.i32(d.ID)
	e.cstring(d.SerialNumber)
	e.f32(d.Width)
	e.f32(d.Length)
	e.position(d.Origin)
	for _, row := range d.CalibrationMatrix {
		for _, v := range row {
			e.f32(v)
		}
	}
	for _, c := range d.Corners {
		e.position(c)
	}
	e.i32(d.PlateType)
	e.i32(d.ChannelDataType)
	e.names(d.ChannelNames)
}

func (e *encoder) deviceDescription(d DeviceDescription) {
	e.i32(d.ID)
	e.cstring(d.Name)
	e.cstring(d.SerialNumber)
	e.i32(d.DeviceType)
	e.i32(d.ChannelDataType)
	e.names(d.ChannelNames)
}

func (e *encoder) cameraDescription(d CameraDescription) {
	e.cstring(d.Name)
	e.position(d.Position)
	e.quaternion(d.Orientation)
}

func (e *encoder) assetDescription(d AssetDescription) {
	e.cstring(d.Name)
	e.i32(d.Type)
	e.i32(d.ID)
	e.count(len(d.RigidBodies))
	for _, rb := range d.RigidBodies {
		e.rigidBodyDescription(rb)
	}
	e.count(len(d.Markers))
	for _, m := range d.Markers {
		e.cstring(m.Name)
		e.i32(m.ID)
		e.position(m.Position)
		e.f32(m.Size)
		e.i16(m.Param)
	}
}

// descriptorEntry is one encoded model definition. pad is appended to
// the body and counted in the declared size.
type descriptorEntry struct {
	tag  DescriptorTag
	body func(*encoder)
	pad  int
}

func (e *encoder) descriptors(entries []descriptorEntry) []byte {
	e.count(len(entries))
	for _, entry := range entries {
		sub := newEncoder(e.current)
		entry.body(sub)
		sub.Write(make([]byte, entry.pad))
		e.i32(int32(entry.tag))
		if e.current {
			e.count(sub.Len())
		}
		e.Write(sub.Bytes())
	}
	return e.Bytes()
}

// tableEntries returns an entry for every description in d, in a fixed
// order.
func tableEntries(d *Descriptors) []descriptorEntry {
	var entries []descriptorEntry
	for _, k := range sortedKeys(d.MarkerSets) {
		v := d.MarkerSets[k]
		entries = append(entries, descriptorEntry{tag: TagMarkerSet, body: func(e *encoder) { e.markerSetDescription(v) }})
	}
	for _, k := range sortedKeys(d.RigidBodies) {
		v := d.RigidBodies[k]
		entries = append(entries, descriptorEntry{tag: TagRigidBody, body: func(e *encoder) { e.rigidBodyDescription(v) }})
	}
	for _, k := range sortedKeys(d.Skeletons) {
		v := d.Skeletons[k]
		entries = append(entries, descriptorEntry{tag: TagSkeleton, body: func(e *encoder) { e.skeletonDescription(v) }})
	}
	for _, k := range sortedKeys(d.ForcePlates) {
		v := d.ForcePlates[k]
		entries = append(entries, descriptorEntry{tag: TagForcePlate, body: func(e *encoder) { e.forcePlateDescription(v) }})
	}
	for _, k := range sortedKeys(d.Devices) {
		v := d.Devices[k]
		entries = append(entries, descriptorEntry{tag: TagDevice, body: func(e *encoder) { e.deviceDescription(v) }})
	}
	for _, k := range sortedKeys(d.Cameras) {
		v := d.Cameras[k]
		entries = append(entries, descriptorEntry{tag: TagCamera, body: func(e *encoder) { e.cameraDescription(v) }})
	}
	for _, k := range sortedKeys(d.Assets) {
		v := d.Assets[k]
		entries = append(entries, descriptorEntry{tag: TagAsset, body: func(e *encoder) { e.assetDescription(v) }})
	}
	return entries
}

func sortedKeys[K int32 | string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
