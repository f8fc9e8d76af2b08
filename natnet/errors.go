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

import "github.com/pkg/errors"

// Error kinds returned by the decoder. All of them are terminal for the
// decode call that returned them. Use errors.Is to test for a kind; the
// returned errors carry extra context such as the section and offset.
var (
	ErrTruncatedBuffer         = errors.New("natnet: truncated buffer")
	ErrTruncatedFrame          = errors.New("natnet: truncated frame")
	ErrUnterminatedString      = errors.New("natnet: unterminated string")
	ErrInvalidText             = errors.New("natnet: invalid text")
	ErrInvalidCount            = errors.New("natnet: invalid count")
	ErrUnrecoverableDescriptor = errors.New("natnet: unrecoverable descriptor")
	ErrUnsupportedVersion      = errors.New("natnet: unsupported version")
)

func truncated(offset, need, have int) error {
	return errors.Wrapf(ErrTruncatedBuffer, "need %d bytes at offset %d, have %d", need, offset, have)
}
