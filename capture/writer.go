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

package capture

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	cptv "github.com/TheCacophonyProject/go-cptv"
	"github.com/google/uuid"
)

var ErrWriterClosed = errors.New("capture: writer closed")

// Writer records payloads to a temporary file which is renamed to its
// final name on Close. It is safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	file    *os.File
	buf     *bufio.Writer
	builder *cptv.Builder
	name    string
	start   time.Time
	nowFunc func() time.Time
	header  Header
	records int
	closed  bool
}

// Create starts a new capture file in dir. A zero header timestamp is
// set to the current time and a zero session ID gets a new random one.
func Create(dir string, h Header) (*Writer, error) {
	return create(dir, h, time.Now)
}

func create(dir string, h Header, nowFunc func() time.Time) (*Writer, error) {
	now := nowFunc()
	if h.Timestamp.IsZero() {
		h.Timestamp = now
	}
	h.Timestamp = h.Timestamp.Truncate(time.Microsecond)
	if h.SessionID == uuid.Nil {
		h.SessionID = uuid.New()
	}
	fields, err := h.fields()
	if err != nil {
		return nil, err
	}

	name := filepath.Join(dir, newTempName(now))
	file, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(file)
	w := &Writer{
		file:    file,
		buf:     buf,
		builder: cptv.NewBuilder(buf),
		name:    name,
		start:   now,
		nowFunc: nowFunc,
		header:  h,
	}
	if err := w.builder.WriteHeader(fields); err != nil {
		w.Abort()
		return nil, err
	}
	return w, nil
}

// Name returns the file currently being written.
func (w *Writer) Name() string {
	return w.name
}

func (w *Writer) Header() Header {
	return w.header
}

// Records returns the number of records written so far.
func (w *Writer) Records() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

func (w *Writer) WriteFrame(payload []byte) error {
	return w.Write(KindFrame, payload)
}

func (w *Writer) WriteDescriptors(payload []byte) error {
	return w.Write(KindDescriptors, payload)
}

// Write appends one record. The payload is copied into the file before
// Write returns.
func (w *Writer) Write(kind Kind, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	if err := w.writeRecord(kind, payload); err != nil {
		return err
	}
	w.records++
	return nil
}

func (w *Writer) writeRecord(kind Kind, payload []byte) error {
	offset := w.nowFunc().Sub(w.start)
	if offset < 0 {
		offset = 0
	}
	fields := cptv.NewFieldWriter()
	fields.Uint32(fieldPayloadSize, uint32(len(payload)))
	fields.Uint64(fieldOffset, uint64(offset/time.Microsecond))
	fields.Uint8(fieldKind, uint8(kind))
	return w.builder.WriteFrame(fields, payload)
}

func (w *Writer) closeFile() error {
	w.closed = true
	err := w.builder.Close()
	if flushErr := w.buf.Flush(); err == nil {
		err = flushErr
	}
	if closeErr := w.file.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Close finishes the file and renames it to its final name, which is
// returned.
func (w *Writer) Close() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return "", ErrWriterClosed
	}
	err := w.writeRecord(kindEnd, nil)
	if closeErr := w.closeFile(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(w.name)
		return "", err
	}
	finalName := finalName(w.name)
	if err := os.Rename(w.name, finalName); err != nil {
		return "", err
	}
	w.name = finalName
	return finalName, nil
}

// Abort closes and removes the file.
func (w *Writer) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if err := w.closeFile(); err != nil {
		log.Printf("closing %s: %v", w.name, err)
	}
	os.Remove(w.name)
}

func newTempName(t time.Time) string {
	return t.Format("20060102.150405.000000") + TempExt
}

func finalName(tempName string) string {
	return strings.TrimSuffix(tempName, TempExt) + Ext
}

// DeleteTempFiles removes capture files left behind by an unclean
// shutdown.
func DeleteTempFiles(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+TempExt))
	if err != nil {
		return err
	}
	for _, filename := range matches {
		if err := os.Remove(filename); err != nil {
			return fmt.Errorf("removing %s: %w", filename, err)
		}
	}
	return nil
}
