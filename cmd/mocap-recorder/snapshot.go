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
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/TheCacophonyProject/mocap-recorder/natnet"
)

const (
	snapshotName          = "snapshot.yaml"
	allowedSnapshotPeriod = 500 * time.Millisecond
)

var (
	previousSnapshotFrame int32
	previousSnapshotTime  time.Time
	mu                    sync.Mutex
)

func newSnapshot(dir string, f *natnet.Frame) error {
	mu.Lock()
	defer mu.Unlock()

	if time.Since(previousSnapshotTime) < allowedSnapshotPeriod {
		return nil
	}
	if f == nil {
		return errors.New("no frames yet")
	}

	// Check if frame had already been saved
	if !previousSnapshotTime.IsZero() && f.Prefix.FrameNumber == previousSnapshotFrame {
		return nil
	}

	out, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	tempName := filepath.Join(dir, "."+snapshotName)
	if err := os.WriteFile(tempName, out, 0644); err != nil {
		return err
	}
	if err := os.Rename(tempName, filepath.Join(dir, snapshotName)); err != nil {
		return err
	}

	// the time will be changed only if the attempt is successful
	previousSnapshotFrame = f.Prefix.FrameNumber
	previousSnapshotTime = time.Now()
	return nil
}

func deleteSnapshot(dir string) {
	if err := os.Remove(filepath.Join(dir, snapshotName)); err != nil && !os.IsNotExist(err) {
		log.Printf("error deleting snapshot: %v", err)
	}
}
