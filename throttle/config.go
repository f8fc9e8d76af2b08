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


package throttle

import (
	"github.com/pkg/errors"
)

type ThrottlerConfig struct {
	ApplyThrottling bool `yaml:"apply-throttling"`
	// MaxFPS is the sustained number of frames per second written to a
	// capture.
	MaxFPS float64 `yaml:"max-fps"`
	// Burst is the number of frames that may be written above MaxFPS
	// before throttling starts.
	Burst int64 `yaml:"burst"`
	// MinResume is the number of frames that must be available again
	// before writing resumes after being throttled.
	MinResume int64 `yaml:"min-resume"`
}

func DefaultThrottlerConfig() ThrottlerConfig {
	return ThrottlerConfig{
		ApplyThrottling: true,
		MaxFPS:          120,
		Burst:           120 * 60,
		MinResume:       120 * 5,
	}
}

func (c ThrottlerConfig) Validate() error {
	if !c.ApplyThrottling {
		return nil
	}
	if c.MaxFPS <= 0 {
		return errors.Errorf("max-fps must be positive, got %v", c.MaxFPS)
	}
	if c.Burst <= 0 {
		return errors.Errorf("burst must be positive, got %d", c.Burst)
	}
	if c.MinResume < 0 || c.MinResume > c.Burst {
		return errors.Errorf("min-resume must be between 0 and burst (%d), got %d", c.Burst, c.MinResume)
	}
	return nil
}
