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

// Package capture records raw NatNet payloads to disk so a session can
// be decoded again later. Files use the CPTV section and field encoding:
// a gzip stream holding one header section followed by one section per
// payload.
package capture

import (
	"fmt"
	"time"

	cptv "github.com/TheCacophonyProject/go-cptv"
	"github.com/google/uuid"

	"github.com/TheCacophonyProject/mocap-recorder/natnet"
)

const (
	Ext     = ".natcap"
	TempExt = Ext + ".temp"
)

// Field keys. Timestamp, device name, time on and frame size share the
// CPTV keys.
const (
	fieldTimestamp   = cptv.Timestamp
	fieldDeviceName  = cptv.DeviceName
	fieldOffset      = cptv.TimeOn
	fieldPayloadSize = cptv.FrameSize
	fieldDeviceID    = 'I'
	fieldMajor       = 'M'
	fieldMinor       = 'm'
	fieldServerApp   = 'A'
	fieldSession     = 'S'
	fieldKind        = 'k'
)

// Kind is the type of payload held by a record.
type Kind uint8

const (
	KindFrame       Kind = 'F'
	KindDescriptors Kind = 'M'

	// kindEnd marks the end of a complete file. A file without it was
	// cut short.
	kindEnd Kind = 'E'
)

func (k Kind) String() string {
	switch k {
	case KindFrame:
		return "frame"
	case KindDescriptors:
		return "descriptors"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Header describes a capture session.
type Header struct {
	Timestamp  time.Time
	DeviceName string
	DeviceID   uint32
	Version    natnet.Version
	ServerApp  string
	SessionID  uuid.UUID
}

// Record is one raw payload. Offset is the time since the session
// started, with microsecond resolution.
type Record struct {
	Kind    Kind
	Offset  time.Duration
	Payload []byte
}

func (h *Header) fields() (*cptv.FieldWriter, error) {
	f := cptv.NewFieldWriter()
	f.Timestamp(fieldTimestamp, h.Timestamp)
	if err := f.String(fieldDeviceName, h.DeviceName); err != nil {
		return nil, err
	}
	f.Uint32(fieldDeviceID, h.DeviceID)
	f.Uint8(fieldMajor, h.Version.Major)
	f.Uint8(fieldMinor, h.Version.Minor)
	if err := f.String(fieldServerApp, h.ServerApp); err != nil {
		return nil, err
	}
	if err := f.String(fieldSession, h.SessionID.String()); err != nil {
		return nil, err
	}
	return f, nil
}

func parseHeader(fields cptv.Fields) (Header, error) {
	var h Header
	var err error
	if h.Timestamp, err = fields.Timestamp(fieldTimestamp); err != nil {
		return h, fmt.Errorf("timestamp: %w", err)
	}
	if h.DeviceName, err = fields.String(fieldDeviceName); err != nil {
		return h, fmt.Errorf("device name: %w", err)
	}
	if h.DeviceID, err = fields.Uint32(fieldDeviceID); err != nil {
		return h, fmt.Errorf("device id: %w", err)
	}
	if h.Version.Major, err = fields.Uint8(fieldMajor); err != nil {
		return h, fmt.Errorf("version: %w", err)
	}
	if h.Version.Minor, err = fields.Uint8(fieldMinor); err != nil {
		return h, fmt.Errorf("version: %w", err)
	}
	if h.ServerApp, err = fields.String(fieldServerApp); err != nil {
		return h, fmt.Errorf("server app: %w", err)
	}
	session, err := fields.String(fieldSession)
	if err != nil {
		return h, fmt.Errorf("session: %w", err)
	}
	if h.SessionID, err = uuid.Parse(session); err != nil {
		return h, fmt.Errorf("session: %w", err)
	}
	return h, nil
}
