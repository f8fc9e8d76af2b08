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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitToReconnectPingsWatchdog(t *testing.T) {
	var pings int32
	ping := func() { atomic.AddInt32(&pings, 1) }

	assert.True(t, waitToReconnect(context.Background(), 100*time.Millisecond, 10*time.Millisecond, ping))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&pings), int32(3))
}

func TestWaitToReconnectStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var pings int32
	ping := func() { atomic.AddInt32(&pings, 1) }

	assert.False(t, waitToReconnect(ctx, time.Hour, time.Hour, ping))
	assert.Equal(t, int32(1), atomic.LoadInt32(&pings))
}
