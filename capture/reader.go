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
	"fmt"
	"io"
	"os"
	"time"

	cptv "github.com/TheCacophonyProject/go-cptv"
)

// Reader reads the records of a capture file in order.
type Reader struct {
	parser *cptv.Parser
	header Header
	closer io.Closer
}

// NewReader parses the header of the capture read from r.
func NewReader(r io.Reader) (*Reader, error) {
	parser, err := cptv.NewParser(r)
	if err != nil {
		return nil, err
	}
	fields, err := parser.Header()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	header, err := parseHeader(fields)
	if err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}
	return &Reader{parser: parser, header: header}, nil
}

// Open opens a capture file for reading. Close the returned Reader when
// done.
func Open(filename string) (*Reader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next record, or io.EOF after the last one. A file
// which ends without an end record gives io.ErrUnexpectedEOF.
func (r *Reader) Next() (*Record, error) {
	fields, payloadReader, err := r.parser.Frame()
	if err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, err
	}
	size, err := fields.Uint32(fieldPayloadSize)
	if err != nil {
		return nil, fmt.Errorf("record size: %w", err)
	}
	// The payload must be consumed before the next section can be parsed.
	payload, err := io.ReadAll(payloadReader)
	if err != nil {
		return nil, fmt.Errorf("record payload: %w", err)
	}
	if len(payload) != int(size) {
		return nil, fmt.Errorf("record payload: %w", io.ErrUnexpectedEOF)
	}
	offset, err := fields.Uint64(fieldOffset)
	if err != nil {
		return nil, fmt.Errorf("record offset: %w", err)
	}
	kind, err := fields.Uint8(fieldKind)
	if err != nil {
		return nil, fmt.Errorf("record kind: %w", err)
	}
	if Kind(kind) == kindEnd {
		return nil, io.EOF
	}
	return &Record{
		Kind:    Kind(kind),
		Offset:  time.Duration(offset) * time.Microsecond,
		Payload: payload,
	}, nil
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
