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

package client

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/TheCacophonyProject/mocap-recorder/natnet"
)

// Config describes how to reach a NatNet server.
type Config struct {
	ServerAddress  string
	LocalAddress   string
	Multicast      bool
	MulticastGroup string
	CommandPort    int
	DataPort       int

	MaxDatagramSize   int
	ConnectionTimeout time.Duration
	// KeepAliveInterval is only used for unicast connections.
	KeepAliveInterval time.Duration
	// IdleTimeout ends a stream when no data arrives for this long. Zero
	// disables it.
	IdleTimeout time.Duration

	ClientName string
	// Version is the NatNet version announced to the server.
	Version natnet.Version
}

// DefaultConfig returns the settings used by a stock NatNet server.
func DefaultConfig() Config {
	return Config{
		ServerAddress:     "127.0.0.1",
		LocalAddress:      "127.0.0.1",
		Multicast:         true,
		MulticastGroup:    "239.255.42.99",
		CommandPort:       1510,
		DataPort:          1511,
		MaxDatagramSize:   64 * 1024,
		ConnectionTimeout: 5 * time.Second,
		KeepAliveInterval: time.Second,
		ClientName:        "mocap-recorder",
		Version:           natnet.Version{Major: 4, Minor: 1},
	}
}

func (c *Config) Validate() error {
	if net.ParseIP(c.ServerAddress) == nil {
		return fmt.Errorf("invalid server address %q", c.ServerAddress)
	}
	if net.ParseIP(c.LocalAddress) == nil {
		return fmt.Errorf("invalid local address %q", c.LocalAddress)
	}
	if c.Multicast {
		group := net.ParseIP(c.MulticastGroup)
		if group == nil || !group.IsMulticast() {
			return fmt.Errorf("invalid multicast group %q", c.MulticastGroup)
		}
	}
	if c.CommandPort <= 0 || c.CommandPort > 0xffff {
		return errors.New("command-port should be in range 1 - 65535")
	}
	if c.DataPort < 0 || c.DataPort > 0xffff {
		return errors.New("data-port should be in range 0 - 65535")
	}
	if c.MaxDatagramSize < 1024 {
		return errors.New("max-datagram-size should be at least 1024")
	}
	if c.ConnectionTimeout <= 0 {
		return errors.New("connection-timeout should be positive")
	}
	if !c.Multicast && c.KeepAliveInterval <= 0 {
		return errors.New("keep-alive-interval should be positive for unicast connections")
	}
	if c.IdleTimeout < 0 {
		return errors.New("idle-timeout can't be negative")
	}
	return nil
}
