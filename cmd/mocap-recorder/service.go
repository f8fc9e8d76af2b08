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
	"errors"

	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"
	yaml "gopkg.in/yaml.v2"
)

const (
	dbusName = "org.cacophony.mocaprecorder"
	dbusPath = "/org/cacophony/mocaprecorder"
)

type service struct {
	dir   string
	state *recorderState
}

func startService(dir string, state *recorderState) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("name already taken")
	}

	s := &service{
		dir:   dir,
		state: state,
	}
	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")

	return nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
		}},
	}
	return introspect.NewIntrospectable(node)
}

// TakeSnapshot saves the most recent frame as YAML in the output
// directory.
func (s *service) TakeSnapshot() *dbus.Error {
	if err := newSnapshot(s.dir, s.state.latestFrame()); err != nil {
		return makeDbusError("TakeSnapshot", err)
	}
	return nil
}

// ServerInfo returns the server application name, its version, the
// NatNet version and the decoder profile in use.
func (s *service) ServerInfo() (string, string, string, string, *dbus.Error) {
	info, profile := s.state.serverInfo()
	if info == nil {
		return "", "", "", "", makeDbusError("ServerInfo", errors.New("not connected"))
	}
	return info.AppName, info.AppVersionString(), info.Version().String(), profile, nil
}

// Descriptors returns the last model definitions table as YAML.
func (s *service) Descriptors() (string, *dbus.Error) {
	d := s.state.latestDescriptors()
	if d == nil {
		return "", makeDbusError("Descriptors", errors.New("no model definitions yet"))
	}
	out, err := yaml.Marshal(d)
	if err != nil {
		return "", makeDbusError("Descriptors", err)
	}
	return string(out), nil
}

func (s *service) Status() (map[string]string, *dbus.Error) {
	return s.state.status(), nil
}

func makeDbusError(name string, err error) *dbus.Error {
	return &dbus.Error{
		Name: dbusName + "." + name,
		Body: []interface{}{err.Error()},
	}
}
