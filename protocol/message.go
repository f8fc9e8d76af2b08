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

// Package protocol implements the message framing used between NatNet
// servers and clients on the command and data sockets.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MessageID identifies the kind of a NatNet message.
type MessageID uint16

const (
	MsgConnect             MessageID = 0
	MsgServerInfo          MessageID = 1
	MsgRequest             MessageID = 2
	MsgResponse            MessageID = 3
	MsgRequestModelDef     MessageID = 4
	MsgModelDef            MessageID = 5
	MsgRequestFrameOfData  MessageID = 6
	MsgFrameOfData         MessageID = 7
	MsgMessageString       MessageID = 8
	MsgDisconnect          MessageID = 9
	MsgKeepAlive           MessageID = 10
	MsgUnrecognizedRequest MessageID = 100
)

var messageNames = map[MessageID]string{
	MsgConnect:             "Connect",
	MsgServerInfo:          "ServerInfo",
	MsgRequest:             "Request",
	MsgResponse:            "Response",
	MsgRequestModelDef:     "RequestModelDef",
	MsgModelDef:            "ModelDef",
	MsgRequestFrameOfData:  "RequestFrameOfData",
	MsgFrameOfData:         "FrameOfData",
	MsgMessageString:       "MessageString",
	MsgDisconnect:          "Disconnect",
	MsgKeepAlive:           "KeepAlive",
	MsgUnrecognizedRequest: "UnrecognizedRequest",
}

func (id MessageID) String() string {
	if name, ok := messageNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Message(%d)", uint16(id))
}

const (
	// HeaderSize is the size of the id + payload size header.
	HeaderSize = 4
	// MaxPayloadSize is the largest payload the header can describe.
	MaxPayloadSize = 0xffff
)

var (
	ErrShortMessage   = errors.New("protocol: message shorter than header")
	ErrPayloadSize    = errors.New("protocol: payload size does not match message")
	ErrPayloadTooLong = errors.New("protocol: payload too long")
)

// Message is one framed NatNet message.
type Message struct {
	ID      MessageID
	Payload []byte
}

// ParseMessage splits a datagram into its message id and payload. The
// payload aliases datagram. Bytes after the declared payload are
// ignored.
func ParseMessage(datagram []byte) (Message, error) {
	if len(datagram) < HeaderSize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrShortMessage, len(datagram))
	}
	id := MessageID(binary.LittleEndian.Uint16(datagram[0:2]))
	size := int(binary.LittleEndian.Uint16(datagram[2:4]))
	if size > len(datagram)-HeaderSize {
		return Message{}, fmt.Errorf("%w: %s declares %d bytes, have %d", ErrPayloadSize, id, size, len(datagram)-HeaderSize)
	}
	return Message{ID: id, Payload: datagram[HeaderSize : HeaderSize+size]}, nil
}

// EncodeMessage frames payload as a message of kind id.
func EncodeMessage(id MessageID, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLong, len(payload))
	}
	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint16(buf[0:], uint16(id))
	binary.LittleEndian.PutUint16(buf[2:], uint16(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// Encode frames the message.
func (m Message) Encode() ([]byte, error) {
	return EncodeMessage(m.ID, m.Payload)
}
