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


package main

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"

	"github.com/TheCacophonyProject/mocap-recorder/natnet"
)

type totals struct {
	frames         int
	badFrames      int
	descriptors    int
	badDescriptors int
	unknown        int
	firstFrame     int32
	lastFrame      int32
	recording      int
}

func (t *totals) addFrame(f *natnet.Frame) {
	if t.frames == 0 {
		t.firstFrame = f.Prefix.FrameNumber
	}
	t.lastFrame = f.Prefix.FrameNumber
	t.frames++
	if f.Suffix.Recording {
		t.recording++
	}
}

func (t *totals) String() string {
	s := fmt.Sprintf("%d frames", t.frames)
	if t.frames > 0 {
		s += fmt.Sprintf(" (#%d to #%d, %d while recording)", t.firstFrame, t.lastFrame, t.recording)
	}
	s += fmt.Sprintf(", %d model definitions", t.descriptors)
	if n := t.badFrames + t.badDescriptors; n > 0 {
		s += fmt.Sprintf(", %d undecodable", n)
	}
	if t.unknown > 0 {
		s += fmt.Sprintf(", %d unknown", t.unknown)
	}
	return s
}

func summariseFrame(f *natnet.Frame) string {
	tracked := 0
	for _, rb := range f.RigidBodies.RigidBodies {
		if rb.Tracked {
			tracked++
		}
	}
	s := fmt.Sprintf("frame #%d t=%.3fs: %d marker sets, %d rigid bodies (%d tracked), %d skeletons, %d labeled markers, %d force plates, %d devices",
		f.Prefix.FrameNumber, f.Suffix.Timestamp,
		len(f.MarkerSets.MarkerSets), len(f.RigidBodies.RigidBodies), tracked,
		len(f.Skeletons.Skeletons), len(f.LabeledMarkers.Markers),
		len(f.ForcePlates.ForcePlates), len(f.Devices.Devices))
	if f.Assets != nil {
		s += fmt.Sprintf(", %d assets", len(f.Assets.Assets))
	}
	if f.Suffix.Recording {
		s += " [recording]"
	}
	if f.Suffix.TrackedModelsChanged {
		s += " [models changed]"
	}
	return s
}

func summariseDescriptors(d *natnet.Descriptors) string {
	return fmt.Sprintf("model definitions: %d marker sets, %d rigid bodies, %d skeletons, %d force plates, %d devices, %d cameras, %d assets",
		len(d.MarkerSets), len(d.RigidBodies), len(d.Skeletons),
		len(d.ForcePlates), len(d.Devices), len(d.Cameras), len(d.Assets))
}

// rigidBodyPoses describes each rigid body of f by its distance from the
// origin and how far it is rotated from the identity orientation.
func rigidBodyPoses(f *natnet.Frame) []string {
	lines := make([]string, 0, len(f.RigidBodies.RigidBodies))
	for _, rb := range f.RigidBodies.RigidBodies {
		p := rb.Position.Vector()
		line := fmt.Sprintf("rigid body %d: position (%.3f, %.3f, %.3f) distance %.3f",
			rb.ID, p.X, p.Y, p.Z, p.Norm())
		q := rb.Orientation.Number()
		if n := quat.Abs(q); n > 0 {
			line += fmt.Sprintf(" rotation %.1f°", rotationAngle(q, n))
		}
		if !rb.Tracked {
			line += " [untracked]"
		}
		lines = append(lines, line)
	}
	return lines
}

// rotationAngle returns the rotation of q in degrees, where n is |q|.
func rotationAngle(q quat.Number, n float64) float64 {
	w := math.Min(math.Abs(q.Real)/n, 1)
	return 2 * math.Acos(w) * 180 / math.Pi
}
