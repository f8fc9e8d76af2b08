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
	"log"
	"sync"
	"time"

	"github.com/juju/ratelimit"
)

// RecordWriter is the destination for frames and model definitions.
// *capture.Writer satisfies it.
type RecordWriter interface {
	WriteFrame(payload []byte) error
	WriteDescriptors(payload []byte) error
}

type ThrottledEventListener interface {
	WhenThrottled()
}

type nullListener struct{}

func (lis *nullListener) WhenThrottled() {}

func NewThrottledWriter(
	w RecordWriter,
	config ThrottlerConfig,
	listener ThrottledEventListener,
) *ThrottledWriter {
	return NewThrottledWriterWithClock(w, config, listener, new(realClock))
}

func NewThrottledWriterWithClock(
	w RecordWriter,
	config ThrottlerConfig,
	listener ThrottledEventListener,
	clock ratelimit.Clock,
) *ThrottledWriter {
	if listener == nil {
		listener = new(nullListener)
	}
	t := &ThrottledWriter{
		writer:    w,
		listener:  listener,
		minResume: config.MinResume,
	}
	if config.ApplyThrottling {
		// The token bucket tracks the number of frames available for writing.
		t.bucket = ratelimit.NewBucketWithRateAndClock(config.MaxFPS, config.Burst, clock)
	}
	return t
}

// ThrottledWriter wraps a capture so that frames stop being written
// when a server sends them faster than the configured rate for longer
// than the burst allows. Once throttled, writing resumes only when
// MinResume frames are available again. Model definitions always pass
// through.
type ThrottledWriter struct {
	mu        sync.Mutex
	writer    RecordWriter
	listener  ThrottledEventListener
	bucket    *ratelimit.Bucket
	minResume int64
	throttled bool
	dropped   uint64
}

// WriteFrame writes the frame payload unless the writer is throttled.
// Dropped frames are not an error.
func (t *ThrottledWriter) WriteFrame(payload []byte) error {
	if !t.allow() {
		return nil
	}
	return t.writer.WriteFrame(payload)
}

func (t *ThrottledWriter) WriteDescriptors(payload []byte) error {
	return t.writer.WriteDescriptors(payload)
}

func (t *ThrottledWriter) allow() bool {
	if t.bucket == nil {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.throttled {
		if t.bucket.Available() < t.minResume {
			t.dropped++
			return false
		}
		log.Printf("throttling lifted after %d dropped frames", t.dropped)
		t.throttled = false
	}

	if t.bucket.TakeAvailable(1) > 0 {
		return true
	}

	log.Print("capture throttled")
	t.throttled = true
	t.dropped++
	t.listener.WhenThrottled()
	return false
}

// Throttled reports whether frames are currently being dropped.
func (t *ThrottledWriter) Throttled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.throttled
}

// Dropped returns the total number of frames dropped by throttling.
func (t *ThrottledWriter) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// realClock implements ratelimit.Clock in terms of standard time functions.
type realClock struct{}

// Now implements Clock.Now by calling time.Now.
func (realClock) Now() time.Time {
	return time.Now()
}

// Sleep implements Clock.Sleep by calling time.Sleep.
func (realClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
