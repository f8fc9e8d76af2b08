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
	"log"
	"sync"
	"syscall"
	"time"

	"github.com/TheCacophonyProject/mocap-recorder/capture"
	"github.com/TheCacophonyProject/mocap-recorder/loglimiter"
	"github.com/TheCacophonyProject/mocap-recorder/protocol"
	"github.com/TheCacophonyProject/mocap-recorder/throttle"
)

var errNotRecording = errors.New("no capture open")

// reopenInterval is how often a capture which failed to rotate is
// retried.
const reopenInterval = 10 * time.Second

// recording writes the raw payloads of one server connection to
// capture files, starting a new file every MaxCaptureDuration.
type recording struct {
	conf       *Config
	listener   throttle.ThrottledEventListener
	logLimiter *loglimiter.LogLimiter
	nowFunc    func() time.Time
	checkSpace func(dir string, mb uint64) (bool, error)

	mu          sync.Mutex
	active      bool
	header      capture.Header
	target      captureTarget
	throttled   *throttle.ThrottledWriter
	opened      time.Time
	lastOpen    time.Time
	descriptors []byte
}

// captureTarget forwards records to whichever capture file is open so
// the throttle state survives rotation.
type captureTarget struct {
	writer *capture.Writer
}

func (c *captureTarget) WriteFrame(payload []byte) error {
	if c.writer == nil {
		return errNotRecording
	}
	return c.writer.WriteFrame(payload)
}

func (c *captureTarget) WriteDescriptors(payload []byte) error {
	if c.writer == nil {
		return errNotRecording
	}
	return c.writer.WriteDescriptors(payload)
}

func newRecording(conf *Config, listener throttle.ThrottledEventListener) *recording {
	return &recording{
		conf:       conf,
		listener:   listener,
		logLimiter: loglimiter.New(30 * time.Second),
		nowFunc:    time.Now,
		checkSpace: checkDiskSpace,
	}
}

// start opens the first capture file for a server.
func (r *recording) start(info *protocol.ServerInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.header = capture.Header{
		DeviceName: r.conf.DeviceName,
		Version:    info.Version(),
		ServerApp:  fmt.Sprintf("%s %s", info.AppName, info.AppVersionString()),
	}
	if r.conf.DeviceID > 0 {
		r.header.DeviceID = uint32(r.conf.DeviceID)
	}
	r.descriptors = nil
	if err := r.open(); err != nil {
		return err
	}
	r.throttled = throttle.NewThrottledWriter(&r.target, r.conf.Throttler, r.listener)
	r.active = true
	return nil
}

func (r *recording) open() error {
	r.lastOpen = r.nowFunc()
	enoughSpace, err := r.checkSpace(r.conf.OutputDir, r.conf.MinDiskSpace)
	if err != nil {
		return fmt.Errorf("problem with checking disk space: %v", err)
	} else if !enoughSpace {
		return errors.New("not enough free disk space to start capture")
	}

	h := r.header
	h.Timestamp = time.Time{}
	writer, err := capture.Create(r.conf.OutputDir, h)
	if err != nil {
		return err
	}
	log.Printf("capture started: %s", writer.Name())
	r.target.writer = writer
	r.opened = r.nowFunc()
	return nil
}

func (r *recording) close() error {
	writer := r.target.writer
	if writer == nil {
		return nil
	}
	records := writer.Records()
	name, err := writer.Close()
	r.target.writer = nil
	if err != nil {
		return err
	}
	log.Printf("capture stopped: %s (%d records)", name, records)
	return nil
}

// stop closes the current capture file.
func (r *recording) stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	r.throttled = nil
	return r.close()
}

// reopen starts a new file which begins with the most recent model
// definitions.
func (r *recording) reopen() error {
	if err := r.open(); err != nil {
		return err
	}
	if r.descriptors != nil {
		return r.throttled.WriteDescriptors(r.descriptors)
	}
	return nil
}

// rotate replaces the current file with a new one. If the new file
// can't be opened frames are dropped until a later reopen succeeds.
func (r *recording) rotate() error {
	if err := r.close(); err != nil {
		return err
	}
	return r.reopen()
}

func (r *recording) write(id protocol.MessageID, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return errNotRecording
	}
	switch id {
	case protocol.MsgModelDef:
		r.descriptors = append(r.descriptors[:0], payload...)
		if r.target.writer == nil {
			return errNotRecording
		}
		return r.throttled.WriteDescriptors(payload)
	case protocol.MsgFrameOfData:
		now := r.nowFunc()
		if r.target.writer == nil {
			if now.Sub(r.lastOpen) < reopenInterval {
				return errNotRecording
			}
			if err := r.reopen(); err != nil {
				return err
			}
		} else if r.conf.MaxCaptureDuration > 0 && now.Sub(r.opened) >= r.conf.MaxCaptureDuration {
			if err := r.rotate(); err != nil {
				return err
			}
		}
		return r.throttled.WriteFrame(payload)
	}
	return nil
}

// handleRaw is installed as the client's raw payload handler.
func (r *recording) handleRaw(id protocol.MessageID, payload []byte) {
	if err := r.write(id, payload); err != nil && err != errNotRecording {
		r.logLimiter.Printf("capture write failed: %v", err)
	}
}

func (r *recording) currentFile() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.target.writer == nil {
		return ""
	}
	return r.target.writer.Name()
}

func checkDiskSpace(dir string, mb uint64) (bool, error) {
	var fs syscall.Statfs_t
	if err := syscall.Statfs(dir, &fs); err != nil {
		return false, err
	}
	return fs.Bavail*uint64(fs.Bsize)/1024/1024 >= mb, nil
}
