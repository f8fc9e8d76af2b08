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
	"strconv"
	"sync"

	"github.com/TheCacophonyProject/mocap-recorder/client"
	"github.com/TheCacophonyProject/mocap-recorder/natnet"
	"github.com/TheCacophonyProject/mocap-recorder/protocol"
)

// recorderState is what the D-Bus service reports about the current
// connection.
type recorderState struct {
	mu          sync.Mutex
	info        *protocol.ServerInfo
	profile     string
	descriptors *natnet.Descriptors
	frame       *natnet.Frame
	client      *client.Client
	rec         *recording
}

func (s *recorderState) connected(c *client.Client, rec *recording) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = c
	s.rec = rec
	s.info = c.ServerInfo()
	s.profile = c.Profile().Name
	s.frame = nil
}

func (s *recorderState) disconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
	s.rec = nil
}

func (s *recorderState) setDescriptors(d *natnet.Descriptors) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.descriptors = d
}

func (s *recorderState) setFrame(f *natnet.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = f
}

func (s *recorderState) latestFrame() *natnet.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// latestDescriptors prefers the client's table, which is updated when
// the server resends its model definitions.
func (s *recorderState) latestDescriptors() *natnet.Descriptors {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		if d := s.client.Descriptors(); d != nil {
			return d
		}
	}
	return s.descriptors
}

func (s *recorderState) serverInfo() (*protocol.ServerInfo, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info, s.profile
}

func (s *recorderState) status() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := map[string]string{"connected": "false"}
	if s.client == nil {
		return status
	}
	stats := s.client.Stats()
	status["connected"] = "true"
	status["profile"] = s.profile
	status["frames"] = strconv.FormatUint(stats.Frames, 10)
	status["dropped"] = strconv.FormatUint(stats.Dropped, 10)
	status["descriptors"] = strconv.FormatUint(stats.Descriptors, 10)
	if s.rec != nil {
		status["capture"] = s.rec.currentFile()
	}
	return status
}
