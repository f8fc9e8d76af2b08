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
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goconfig "github.com/TheCacophonyProject/go-config"
	arg "github.com/alexflint/go-arg"
	"github.com/coreos/go-systemd/daemon"

	"github.com/TheCacophonyProject/mocap-recorder/capture"
	"github.com/TheCacophonyProject/mocap-recorder/client"
	"github.com/TheCacophonyProject/mocap-recorder/natnet"
	"github.com/TheCacophonyProject/mocap-recorder/throttle"
)

const (
	frameQueueSize = 64

	// watchdogInterval is how often the watchdog is notified while no
	// frames are arriving.
	watchdogInterval = 5 * time.Second
)

var version = "<not set>"

type Args struct {
	ConfigFile string `arg:"-c,--config" help:"path to configuration file"`
	ConfigDir  string `arg:"-d,--config-dir" help:"path to the device configuration directory"`
	Timestamps bool   `arg:"-t,--timestamps" help:"include timestamps in log output"`
	Verbose    bool   `arg:"-v,--verbose" help:"log skipped model definitions"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	args.ConfigFile = "/etc/mocap-recorder.yaml"
	args.ConfigDir = goconfig.DefaultConfigDir
	arg.MustParse(&args)
	return args
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	args := procArgs()

	if !args.Timestamps {
		log.SetFlags(0) // Removes default timestamp flag
	}

	log.Printf("running version: %s", version)
	conf, err := ParseConfigFiles(args.ConfigFile, args.ConfigDir)
	if err != nil {
		return err
	}
	logConfig(conf)

	clientConf, err := conf.Server.ClientConfig()
	if err != nil {
		return err
	}

	state := new(recorderState)
	log.Println("starting d-bus service")
	if err := startService(conf.OutputDir, state); err != nil {
		return err
	}

	log.Println("deleting temp files")
	if err := capture.DeleteTempFiles(conf.OutputDir); err != nil {
		return err
	}
	deleteSnapshot(conf.OutputDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener := throttle.ThrottledEventRecorder{DeviceName: conf.DeviceName}
	delay := conf.ReconnectDelay
	for {
		frames, err := runSession(ctx, conf, clientConf, state, listener, args.Verbose)
		if ctx.Err() != nil {
			log.Print("shutting down")
			return nil
		}
		log.Printf("server connection ended with: %v", err)

		if frames > 0 {
			delay = conf.ReconnectDelay
		} else {
			delay *= 2
			if delay > conf.MaxReconnectDelay {
				delay = conf.MaxReconnectDelay
			}
		}
		log.Printf("reconnecting in %s", delay)
		if !waitToReconnect(ctx, delay, watchdogInterval, notifyWatchdog) {
			log.Print("shutting down")
			return nil
		}
	}
}

func notifyWatchdog() {
	daemon.SdNotify(false, "WATCHDOG=1")
}

// waitToReconnect waits for delay, calling ping every pingInterval so
// the service watchdog does not expire between connections. It returns
// false if ctx is done first.
func waitToReconnect(ctx context.Context, delay, pingInterval time.Duration, ping func()) bool {
	ping()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-timer.C:
			return true
		case <-ticker.C:
			ping()
		case <-ctx.Done():
			return false
		}
	}
}

// runSession records one server connection until it fails or ctx is
// done. It returns the number of frames received.
func runSession(
	ctx context.Context,
	conf *Config,
	clientConf client.Config,
	state *recorderState,
	listener throttle.ThrottledEventListener,
	verbose bool,
) (int, error) {
	rec := newRecording(conf, listener)

	log.Printf("connecting to %s", clientConf.ServerAddress)
	c, err := client.Dial(ctx, clientConf, client.WithRawHandler(rec.handleRaw))
	if err != nil {
		return 0, err
	}
	defer c.Close()

	info := c.ServerInfo()
	profile := c.Profile()
	if !verbose {
		profile.SetLogFunc(nil)
	}
	log.Printf("connected to %s %s (NatNet %s, %s profile)",
		info.AppName, info.AppVersionString(), info.Version(), profile.Name)

	if err := rec.start(info); err != nil {
		return 0, err
	}
	defer func() {
		if err := rec.stop(); err != nil {
			log.Printf("closing capture failed: %v", err)
		}
	}()

	state.connected(c, rec)
	defer state.disconnected()

	descriptors, err := c.RequestDescriptors(ctx)
	if err != nil {
		return 0, err
	}
	state.setDescriptors(descriptors)
	log.Printf("received %d model definitions", descriptors.Len())

	frames := make(chan *natnet.Frame, frameQueueSize)
	streamErr := make(chan error, 1)
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		streamErr <- c.Stream(streamCtx, frames)
	}()

	frameLogIntervalFirstMin := 15 * conf.FrameRate
	frameLogInterval := 60 * 5 * conf.FrameRate
	framesPerSdNotify := 5 * conf.FrameRate

	totalFrames := 0
	notifyCount := 0
	for {
		select {
		case frame := <-frames:
			totalFrames++
			if totalFrames%frameLogIntervalFirstMin == 0 &&
				totalFrames <= 60*conf.FrameRate || totalFrames%frameLogInterval == 0 {
				stats := c.Stats()
				log.Printf("%d frames for this connection (%d dropped)", totalFrames, stats.Dropped)
			}

			if notifyCount++; notifyCount >= framesPerSdNotify {
				notifyWatchdog()
				notifyCount = 0
			}

			state.setFrame(frame)
		case err := <-streamErr:
			return totalFrames, err
		}
	}
}

func logConfig(conf *Config) {
	log.Printf("device name: %s", conf.DeviceName)
	log.Printf("output dir: %s", conf.OutputDir)
	log.Printf("minimum disk space: %d", conf.MinDiskSpace)
	log.Printf("max capture duration: %s", conf.MaxCaptureDuration)
	log.Printf("server: %+v", conf.Server)
	log.Printf("throttler: %+v", conf.Throttler)
}
