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

package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"github.com/TheCacophonyProject/mocap-recorder/natnet"
)

const (
	nameSize = 256

	// name + app version + NatNet version
	serverInfoSize = nameSize + 4 + 4
	// clock frequency + data port + multicast flag + group + port
	connectionInfoSize = 8 + 2 + 1 + 4 + 2
)

var ErrShortServerInfo = errors.New("protocol: server info too short")

// ServerInfo is the server's reply to a connect request.
type ServerInfo struct {
	AppName       string
	AppVersion    [4]uint8
	NatNetVersion [4]uint8

	// The fields below are only valid when HasConnectionInfo is set.
	HasConnectionInfo     bool
	HighResClockFrequency uint64
	DataPort              uint16
	Multicast             bool
	MulticastGroup        net.IP
	MulticastPort         uint16
}

// Version returns the major and minor NatNet version of the server.
func (s *ServerInfo) Version() natnet.Version {
	return natnet.Version{Major: s.NatNetVersion[0], Minor: s.NatNetVersion[1]}
}

// AppVersionString formats the application version as a.b.c.d.
func (s *ServerInfo) AppVersionString() string {
	v := s.AppVersion
	return fmt.Sprintf("%d.%d.%d.%d", v[0], v[1], v[2], v[3])
}

// ParseServerInfo decodes a ServerInfo payload.
func ParseServerInfo(payload []byte) (*ServerInfo, error) {
	if len(payload) < serverInfoSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortServerInfo, len(payload))
	}
	s := &ServerInfo{AppName: paddedString(payload[:nameSize])}
	copy(s.AppVersion[:], payload[nameSize:])
	copy(s.NatNetVersion[:], payload[nameSize+4:])

	rest := payload[serverInfoSize:]
	if len(rest) < connectionInfoSize {
		return s, nil
	}
	s.HasConnectionInfo = true
	s.HighResClockFrequency = binary.LittleEndian.Uint64(rest[0:])
	s.DataPort = binary.LittleEndian.Uint16(rest[8:])
	s.Multicast = rest[10] != 0
	s.MulticastGroup = net.IPv4(rest[11], rest[12], rest[13], rest[14])
	s.MulticastPort = binary.LittleEndian.Uint16(rest[15:])
	return s, nil
}

// Encode serialises the server info as a server sends it.
func (s *ServerInfo) Encode() []byte {
	size := serverInfoSize
	if s.HasConnectionInfo {
		size += connectionInfoSize
	}
	buf := make([]byte, size)
	putPaddedString(buf[:nameSize], s.AppName)
	copy(buf[nameSize:], s.AppVersion[:])
	copy(buf[nameSize+4:], s.NatNetVersion[:])
	if !s.HasConnectionInfo {
		return buf
	}
	rest := buf[serverInfoSize:]
	binary.LittleEndian.PutUint64(rest[0:], s.HighResClockFrequency)
	binary.LittleEndian.PutUint16(rest[8:], s.DataPort)
	if s.Multicast {
		rest[10] = 1
	}
	if ip4 := s.MulticastGroup.To4(); ip4 != nil {
		copy(rest[11:15], ip4)
	}
	binary.LittleEndian.PutUint16(rest[15:], s.MulticastPort)
	return buf
}

// ConnectRequest builds the payload of a Connect message announcing the
// client's name and the NatNet version it speaks.
func ConnectRequest(clientName string, version natnet.Version) []byte {
	buf := make([]byte, serverInfoSize)
	putPaddedString(buf[:nameSize], clientName)
	buf[nameSize+4] = version.Major
	buf[nameSize+5] = version.Minor
	return buf
}

// ParseConnectRequest returns the client name and NatNet version from a
// Connect payload.
func ParseConnectRequest(payload []byte) (string, natnet.Version, error) {
	if len(payload) < serverInfoSize {
		return "", natnet.Version{}, fmt.Errorf("%w: connect request is %d bytes", ErrShortServerInfo, len(payload))
	}
	v := natnet.Version{Major: payload[nameSize+4], Minor: payload[nameSize+5]}
	return paddedString(payload[:nameSize]), v, nil
}

// paddedString returns the text before the first NUL in a fixed size
// field.
func paddedString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// putPaddedString writes s into dst, truncated so that a terminating NUL
// always fits.
func putPaddedString(dst []byte, s string) {
	n := copy(dst[:len(dst)-1], s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}
