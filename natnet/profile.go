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

package natnet

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Version is a negotiated NatNet protocol version.
type Version struct {
	Major uint8
	Minor uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast reports whether v is major.minor or newer.
func (v Version) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// ParseVersion parses a "major.minor" string. Further components such as
// build numbers are ignored.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	major, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	minor, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return Version{Major: uint8(major), Minor: uint8(minor)}, nil
}

const (
	LegacyProfile  = "legacy"
	CurrentProfile = "current"
)

// Profile decodes payloads using the field layout of one protocol
// revision. Profiles hold no per-call state, so one Profile may decode
// many buffers concurrently.
type Profile struct {
	Name string

	// Counted frame sections are followed by their byte size.
	sizedSections bool
	// Multiplier applied to labeled marker residuals.
	residualScale float32

	readAssets               func(*Reader) (*AssetData, error)
	readSuffix               func(*Reader) (FrameSuffix, error)
	readRigidBodyDescription func(*Reader) (RigidBodyDescription, error)
	readDescriptorEntries    func(*Profile, *Reader, int, *Descriptors) error

	logf func(format string, v ...interface{})
}

var legacy = Profile{
	Name:                     LegacyProfile,
	residualScale:            legacyResidualFactor,
	readSuffix:               readLegacySuffix,
	readRigidBodyDescription: readRigidBodyDescription,
	readDescriptorEntries:    (*Profile).readLegacyEntries,
	logf:                     log.Printf,
}

var current = Profile{
	Name:                     CurrentProfile,
	sizedSections:            true,
	residualScale:            1,
	readAssets:               readAssets,
	readSuffix:               readCurrentSuffix,
	readRigidBodyDescription: readNamedRigidBodyDescription,
	readDescriptorEntries:    (*Profile).readSizedEntries,
	logf:                     log.Printf,
}

// ProfileFor returns the decoder profile for a negotiated version: 4.1
// and newer use the current layout, 3.0 up to 4.0 the legacy layout.
// Each call returns a new Profile.
func ProfileFor(v Version) (*Profile, error) {
	var p Profile
	switch {
	case v.AtLeast(4, 1):
		p = current
	case v.AtLeast(3, 0):
		p = legacy
	default:
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %s", v)
	}
	return &p, nil
}

// SetLogFunc sets where diagnostics about skipped descriptors are
// written. A nil f discards them.
func (p *Profile) SetLogFunc(f func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	p.logf = f
}

// HasAssets reports whether frames decoded by p carry an asset section.
func (p *Profile) HasAssets() bool {
	return p.readAssets != nil
}

type truncatedFrameError struct {
	section string
	cause   error
}

func (e *truncatedFrameError) Error() string {
	return fmt.Sprintf("%v in %s: %v", ErrTruncatedFrame, e.section, e.cause)
}

func (e *truncatedFrameError) Is(target error) bool { return target == ErrTruncatedFrame }

func (e *truncatedFrameError) Unwrap() error { return e.cause }

// frameError attaches the section name to err. Running out of data
// before the suffix is reported as ErrTruncatedFrame. A name with no
// terminator runs to the end of the data, so it is truncation too.
func frameError(section string, err error) error {
	if errors.Is(err, ErrTruncatedBuffer) || errors.Is(err, ErrUnterminatedString) {
		return &truncatedFrameError{section: section, cause: err}
	}
	return errors.WithMessage(err, section)
}

// DecodeFrame decodes a frame-of-data payload. Bytes after the suffix
// are ignored.
func (p *Profile) DecodeFrame(data []byte) (*Frame, error) {
	r := NewReader(data)
	f := new(Frame)
	var err error

	if f.Prefix, err = readFramePrefix(r); err != nil {
		return nil, frameError("prefix", err)
	}
	if f.MarkerSets, err = readMarkerSets(r, p.sizedSections); err != nil {
		return nil, frameError("marker sets", err)
	}
	if f.LegacyMarkers, err = readLegacyMarkers(r, p.sizedSections); err != nil {
		return nil, frameError("legacy markers", err)
	}
	if f.RigidBodies, err = readRigidBodies(r, p.sizedSections); err != nil {
		return nil, frameError("rigid bodies", err)
	}
	if f.Skeletons, err = readSkeletons(r, p.sizedSections); err != nil {
		return nil, frameError("skeletons", err)
	}
	if p.readAssets != nil {
		if f.Assets, err = p.readAssets(r); err != nil {
			return nil, frameError("assets", err)
		}
	}
	if f.LabeledMarkers, err = readLabeledMarkers(r, p.sizedSections, p.residualScale); err != nil {
		return nil, frameError("labeled markers", err)
	}
	if f.ForcePlates, err = readForcePlates(r, p.sizedSections); err != nil {
		return nil, frameError("force plates", err)
	}
	if f.Devices, err = readDevices(r, p.sizedSections); err != nil {
		return nil, frameError("devices", err)
	}
	if f.Suffix, err = p.readSuffix(r); err != nil {
		return nil, frameError("suffix", err)
	}
	return f, nil
}

// DecodeDescriptors decodes a model definitions payload into a new
// table.
func (p *Profile) DecodeDescriptors(data []byte) (*Descriptors, error) {
	r := NewReader(data)
	n, err := r.Count()
	if err != nil {
		return nil, errors.WithMessage(err, "descriptor count")
	}
	table := NewDescriptors()
	if err := p.readDescriptorEntries(p, r, n, table); err != nil {
		return nil, err
	}
	return table, nil
}

// readLegacyEntries reads tag + body entries. Without a size field there
// is no way past an unknown tag, so one aborts the whole table.
func (p *Profile) readLegacyEntries(r *Reader, n int, table *Descriptors) error {
	for i := 0; i < n; i++ {
		start := r.Offset()
		raw, err := r.Int32()
		if err != nil {
			return errors.WithMessagef(err, "descriptor %d", i)
		}
		tag := DescriptorTag(raw)
		known, err := p.readDescriptor(r, tag, table)
		if err != nil {
			return errors.WithMessagef(err, "descriptor %d (%s) at offset %d", i, tag, start)
		}
		if !known {
			return errors.Wrapf(ErrUnrecoverableDescriptor, "descriptor %d has tag %d at offset %d", i, raw, start)
		}
	}
	return nil
}

// readSizedEntries reads tag + size + body entries. Unknown tags are
// skipped and the cursor always moves to the end of the declared size.
func (p *Profile) readSizedEntries(r *Reader, n int, table *Descriptors) error {
	for i := 0; i < n; i++ {
		start := r.Offset()
		raw, err := r.Int32()
		if err != nil {
			return errors.WithMessagef(err, "descriptor %d", i)
		}
		tag := DescriptorTag(raw)
		size, err := r.Count()
		if err != nil {
			return errors.WithMessagef(err, "descriptor %d (%s) size", i, tag)
		}
		body, err := r.take(size)
		if err != nil {
			return errors.WithMessagef(err, "descriptor %d (%s) body", i, tag)
		}
		if !tag.Known() {
			p.logf("skipping descriptor with unrecognized tag %d (%d bytes) at offset %d", raw, size, start)
			continue
		}
		br := NewReader(body)
		if _, err := p.readDescriptor(br, tag, table); err != nil {
			return errors.WithMessagef(err, "descriptor %d (%s) at offset %d", i, tag, start)
		}
		if br.Remaining() > 0 {
			p.logf("descriptor %d (%s) has %d unread bytes", i, tag, br.Remaining())
		}
	}
	return nil
}
