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

package protocol

import (
	"encoding/binary"
	"fmt"
)

// Response is the server's reply to a Request message. Commands either
// return a numeric result or a text reply.
type Response struct {
	Code    int32
	Text    string
	HasCode bool
}

func (r Response) String() string {
	if r.HasCode {
		return fmt.Sprintf("%d", r.Code)
	}
	return r.Text
}

// ParseResponse decodes a Response payload. Four byte payloads are a
// little-endian result code; anything else is NUL-terminated text.
func ParseResponse(payload []byte) Response {
	if len(payload) == 4 {
		return Response{Code: int32(binary.LittleEndian.Uint32(payload)), HasCode: true}
	}
	return Response{Text: paddedString(payload)}
}

// EncodeResponse is the server side of ParseResponse.
func EncodeResponse(r Response) []byte {
	if r.HasCode {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(r.Code))
		return buf
	}
	return append([]byte(r.Text), 0)
}

// CommandRequest builds the payload of a Request message.
func CommandRequest(cmd string) []byte {
	return append([]byte(cmd), 0)
}

// ParseCommandRequest returns the command text of a Request payload.
func ParseCommandRequest(payload []byte) string {
	return paddedString(payload)
}
