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
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/mocap-recorder/capture"
	"github.com/TheCacophonyProject/mocap-recorder/natnet"
)

func le32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func emptyFrame(frameNumber int32, current, recording bool) []byte {
	b := le32(frameNumber)
	sections := 7
	suffix := 42
	if current {
		sections = 8
		suffix = 50
	}
	for i := 0; i < sections; i++ {
		b = append(b, le32(0)...)
		if current {
			b = append(b, le32(0)...)
		}
	}
	s := make([]byte, suffix)
	if recording {
		s[suffix-2] = 0x01
	}
	return append(b, s...)
}

func cameraDescriptors(current bool) []byte {
	body := append([]byte("cam"), 0)
	body = append(body, make([]byte, 12+16)...)
	b := le32(1)
	b = append(b, le32(int32(natnet.TagCamera))...)
	if current {
		b = append(b, le32(int32(len(body)))...)
	}
	return append(b, body...)
}

func writeTestCapture(t *testing.T, version natnet.Version) string {
	current := version.AtLeast(4, 1)
	w, err := capture.Create(t.TempDir(), capture.Header{
		DeviceName: "rig",
		DeviceID:   3,
		Version:    version,
		ServerApp:  "Motive 3.1.0.0",
	})
	require.NoError(t, err)

	require.NoError(t, w.WriteDescriptors(cameraDescriptors(current)))
	require.NoError(t, w.WriteFrame(emptyFrame(100, current, false)))
	require.NoError(t, w.WriteFrame(emptyFrame(101, current, true)))
	require.NoError(t, w.WriteFrame([]byte{1, 2}))
	name, err := w.Close()
	require.NoError(t, err)
	return name
}

func TestReplayCurrentCapture(t *testing.T) {
	filename := writeTestCapture(t, natnet.Version{Major: 4, Minor: 1})

	out := new(bytes.Buffer)
	totals, err := replayFile(filename, out, Args{})
	require.NoError(t, err)

	assert.Equal(t, 2, totals.frames)
	assert.Equal(t, 1, totals.badFrames)
	assert.Equal(t, 1, totals.descriptors)
	assert.Equal(t, 1, totals.recording)
	assert.Equal(t, "2 frames (#100 to #101, 1 while recording), 1 model definitions, 1 undecodable", totals.String())

	text := out.String()
	assert.Contains(t, text, `device "rig" (3)`)
	assert.Contains(t, text, "current profile")
	assert.Contains(t, text, "1 cameras")
	assert.Contains(t, text, "frame #100")
	assert.Contains(t, text, "0 assets [recording]")
	assert.Contains(t, text, "bad frame")
}

func TestReplayLegacyCapture(t *testing.T) {
	filename := writeTestCapture(t, natnet.Version{Major: 3, Minor: 1})

	out := new(bytes.Buffer)
	totals, err := replayFile(filename, out, Args{Quiet: true})
	require.NoError(t, err)

	assert.Equal(t, 2, totals.frames)
	assert.Equal(t, 1, totals.descriptors)

	text := out.String()
	assert.Contains(t, text, "legacy profile")
	assert.NotContains(t, text, "frame #100")
}

func TestReplayYAML(t *testing.T) {
	filename := writeTestCapture(t, natnet.Version{Major: 4, Minor: 1})

	out := new(bytes.Buffer)
	_, err := replayFile(filename, out, Args{YAML: true})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "framenumber: 101")
	assert.Contains(t, out.String(), "recording: true")
}

func TestReplayUnsupportedVersion(t *testing.T) {
	filename := writeTestCapture(t, natnet.Version{Major: 2, Minor: 10})

	_, err := replayFile(filename, new(bytes.Buffer), Args{})
	assert.True(t, errors.Is(err, natnet.ErrUnsupportedVersion))
}
