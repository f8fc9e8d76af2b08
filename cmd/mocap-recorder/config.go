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
	"fmt"
	"io/ioutil"
	"os"
	"time"

	goconfig "github.com/TheCacophonyProject/go-config"
	yaml "gopkg.in/yaml.v2"

	"github.com/TheCacophonyProject/mocap-recorder/client"
	"github.com/TheCacophonyProject/mocap-recorder/natnet"
	"github.com/TheCacophonyProject/mocap-recorder/throttle"
)

type Config struct {
	DeviceID           int                      `yaml:"-"`
	DeviceName         string                   `yaml:"-"`
	OutputDir          string                   `yaml:"output-dir"`
	MinDiskSpace       uint64                   `yaml:"min-disk-space"`
	MaxCaptureDuration time.Duration            `yaml:"max-capture-duration"`
	FrameRate          int                      `yaml:"frame-rate"`
	ReconnectDelay     time.Duration            `yaml:"reconnect-delay"`
	MaxReconnectDelay  time.Duration            `yaml:"max-reconnect-delay"`
	Server             ServerConfig             `yaml:"server"`
	Throttler          throttle.ThrottlerConfig `yaml:"throttler"`
}

type ServerConfig struct {
	Address           string        `yaml:"address"`
	LocalAddress      string        `yaml:"local-address"`
	Multicast         bool          `yaml:"multicast"`
	MulticastGroup    string        `yaml:"multicast-group"`
	CommandPort       int           `yaml:"command-port"`
	DataPort          int           `yaml:"data-port"`
	MaxDatagramSize   int           `yaml:"max-datagram-size"`
	ConnectionTimeout time.Duration `yaml:"connection-timeout"`
	KeepAliveInterval time.Duration `yaml:"keep-alive-interval"`
	IdleTimeout       time.Duration `yaml:"idle-timeout"`
	ClientName        string        `yaml:"client-name"`
	NatNetVersion     string        `yaml:"natnet-version"`
}

// ClientConfig converts the server section into the client's settings.
func (s *ServerConfig) ClientConfig() (client.Config, error) {
	version, err := natnet.ParseVersion(s.NatNetVersion)
	if err != nil {
		return client.Config{}, fmt.Errorf("natnet-version: %v", err)
	}
	return client.Config{
		ServerAddress:     s.Address,
		LocalAddress:      s.LocalAddress,
		Multicast:         s.Multicast,
		MulticastGroup:    s.MulticastGroup,
		CommandPort:       s.CommandPort,
		DataPort:          s.DataPort,
		MaxDatagramSize:   s.MaxDatagramSize,
		ConnectionTimeout: s.ConnectionTimeout,
		KeepAliveInterval: s.KeepAliveInterval,
		IdleTimeout:       s.IdleTimeout,
		ClientName:        s.ClientName,
		Version:           version,
	}, nil
}

func (conf *Config) Validate() error {
	if conf.OutputDir == "" {
		return errors.New("output-dir must be set")
	}
	if conf.FrameRate <= 0 {
		return errors.New("frame-rate should be positive")
	}
	if conf.MaxCaptureDuration < 0 {
		return errors.New("max-capture-duration can't be negative")
	}
	if conf.ReconnectDelay <= 0 {
		return errors.New("reconnect-delay should be positive")
	}
	if conf.MaxReconnectDelay < conf.ReconnectDelay {
		return errors.New("max-reconnect-delay should be at least reconnect-delay")
	}
	clientConf, err := conf.Server.ClientConfig()
	if err != nil {
		return err
	}
	if err := clientConf.Validate(); err != nil {
		return err
	}
	if err := conf.Throttler.Validate(); err != nil {
		return err
	}
	return nil
}

func defaultServerConfig() ServerConfig {
	c := client.DefaultConfig()
	return ServerConfig{
		Address:           c.ServerAddress,
		LocalAddress:      c.LocalAddress,
		Multicast:         c.Multicast,
		MulticastGroup:    c.MulticastGroup,
		CommandPort:       c.CommandPort,
		DataPort:          c.DataPort,
		MaxDatagramSize:   c.MaxDatagramSize,
		ConnectionTimeout: c.ConnectionTimeout,
		KeepAliveInterval: c.KeepAliveInterval,
		IdleTimeout:       30 * time.Second,
		ClientName:        c.ClientName,
		NatNetVersion:     c.Version.String(),
	}
}

func defaultConfig() Config {
	return Config{
		OutputDir:          "/var/spool/natcap",
		MinDiskSpace:       200,
		MaxCaptureDuration: time.Hour,
		FrameRate:          120,
		ReconnectDelay:     time.Second,
		MaxReconnectDelay:  time.Minute,
		Server:             defaultServerConfig(),
		Throttler:          throttle.DefaultThrottlerConfig(),
	}
}

// ParseConfigFiles reads the recorder's YAML configuration and the
// device identity from the shared Cacophony config directory. A missing
// recorder config file leaves every setting at its default.
func ParseConfigFiles(configFile, configDir string) (*Config, error) {
	buf, err := ioutil.ReadFile(configFile)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	conf, err := ParseConfig(buf)
	if err != nil {
		return nil, err
	}

	configRW, err := goconfig.New(configDir)
	if err != nil {
		return nil, err
	}
	var deviceConfig goconfig.Device
	if err := configRW.Unmarshal(goconfig.DeviceKey, &deviceConfig); err != nil {
		return nil, err
	}
	conf.DeviceID = deviceConfig.ID
	conf.DeviceName = deviceConfig.Name
	return conf, nil
}

func ParseConfig(buf []byte) (*Config, error) {
	conf := defaultConfig()
	if err := yaml.UnmarshalStrict(buf, &conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}
