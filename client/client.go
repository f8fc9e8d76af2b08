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

// Package client connects to a NatNet server, negotiates the protocol
// version and streams decoded frames.
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TheCacophonyProject/mocap-recorder/loglimiter"
	"github.com/TheCacophonyProject/mocap-recorder/natnet"
	"github.com/TheCacophonyProject/mocap-recorder/protocol"
)

const (
	readPollInterval = 500 * time.Millisecond
	replyQueueSize   = 16
	logInterval      = 30 * time.Second
)

var (
	ErrClosed       = errors.New("client: connection closed")
	ErrIdle         = errors.New("client: no data received")
	ErrUnrecognized = errors.New("client: server did not recognise request")
)

// RawHandler receives every frame-of-data and model definitions payload
// read from the server before it is decoded. The payload is only valid
// during the call. Stream and RequestDescriptors may call it from
// different goroutines.
type RawHandler func(id protocol.MessageID, payload []byte)

// Option configures a Client.
type Option func(*Client)

// WithRawHandler installs h as the client's raw payload handler.
func WithRawHandler(h RawHandler) Option {
	return func(c *Client) {
		c.rawHandler = h
	}
}

// Stats counts data socket traffic.
type Stats struct {
	Frames      uint64
	Descriptors uint64
	Dropped     uint64
}

// Client is a connection to one NatNet server.
type Client struct {
	conf       Config
	serverAddr *net.UDPAddr
	cmd        *net.UDPConn
	data       *net.UDPConn
	info       *protocol.ServerInfo
	profile    *natnet.Profile
	rawHandler RawHandler
	logLimiter *loglimiter.LogLimiter

	replies   chan protocol.Message
	requestMu sync.Mutex

	mu          sync.Mutex
	descriptors *natnet.Descriptors

	frames    atomic.Uint64
	descCount atomic.Uint64
	dropped   atomic.Uint64
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Dial connects to the server described by conf. It sends a connect
// request, waits for the server's info to pick the decoder profile and
// then opens the data socket.
func Dial(ctx context.Context, conf Config, opts ...Option) (*Client, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	serverAddr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(conf.ServerAddress, strconv.Itoa(conf.CommandPort)))
	if err != nil {
		return nil, err
	}
	cmd, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP(conf.LocalAddress)})
	if err != nil {
		return nil, fmt.Errorf("opening command socket: %w", err)
	}

	c := &Client{
		conf:       conf,
		serverAddr: serverAddr,
		cmd:        cmd,
		logLimiter: loglimiter.New(logInterval),
		replies:    make(chan protocol.Message, replyQueueSize),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.wg.Add(1)
	go c.readCommands()

	if err := c.connect(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.openData(); err != nil {
		c.Close()
		return nil, err
	}
	if !conf.Multicast {
		c.wg.Add(1)
		go c.keepAlive()
	}
	return c, nil
}

func (c *Client) connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.conf.ConnectionTimeout)
	defer cancel()

	if err := c.send(protocol.MsgConnect, protocol.ConnectRequest(c.conf.ClientName, c.conf.Version)); err != nil {
		return err
	}
	msg, err := c.waitFor(ctx, protocol.MsgServerInfo)
	if err != nil {
		return fmt.Errorf("waiting for server info: %w", err)
	}
	info, err := protocol.ParseServerInfo(msg.Payload)
	if err != nil {
		return err
	}
	profile, err := natnet.ProfileFor(info.Version())
	if err != nil {
		return err
	}
	c.info = info
	c.profile = profile
	log.Printf("connected to %s %s, NatNet %s (%s profile)",
		info.AppName, info.AppVersionString(), info.Version(), profile.Name)
	return nil
}

func (c *Client) openData() error {
	local := net.ParseIP(c.conf.LocalAddress)
	var err error
	if c.conf.Multicast {
		group := &net.UDPAddr{IP: net.ParseIP(c.conf.MulticastGroup), Port: c.conf.DataPort}
		c.data, err = net.ListenMulticastUDP("udp4", interfaceForIP(local), group)
	} else {
		c.data, err = net.ListenUDP("udp4", &net.UDPAddr{IP: local, Port: c.conf.DataPort})
	}
	if err != nil {
		return fmt.Errorf("opening data socket: %w", err)
	}
	if err := c.data.SetReadBuffer(c.conf.MaxDatagramSize * 8); err != nil {
		log.Printf("failed to set data socket read buffer: %v", err)
	}
	return nil
}

// interfaceForIP returns the interface with address ip, or nil to let
// the system choose.
func interfaceForIP(ip net.IP) *net.Interface {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok && ipNet.IP.Equal(ip) {
				return &ifaces[i]
			}
		}
	}
	return nil
}

func (c *Client) send(id protocol.MessageID, payload []byte) error {
	buf, err := protocol.EncodeMessage(id, payload)
	if err != nil {
		return err
	}
	if _, err := c.cmd.WriteToUDP(buf, c.serverAddr); err != nil {
		return fmt.Errorf("sending %s: %w", id, err)
	}
	return nil
}

func (c *Client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// readCommands queues replies read from the command socket until the
// client is closed.
func (c *Client) readCommands() {
	defer c.wg.Done()
	buf := make([]byte, c.conf.MaxDatagramSize)
	for {
		n, _, err := c.cmd.ReadFromUDP(buf)
		if err != nil {
			if !c.isClosed() {
				log.Printf("command socket read failed: %v", err)
			}
			return
		}
		msg, err := protocol.ParseMessage(buf[:n])
		if err != nil {
			c.logLimiter.Printf("bad command reply: %v", err)
			continue
		}
		if msg.ID == protocol.MsgMessageString {
			log.Printf("server message: %s", protocol.ParseResponse(msg.Payload).Text)
			continue
		}
		msg.Payload = append([]byte(nil), msg.Payload...)
		select {
		case c.replies <- msg:
		case <-c.done:
			return
		default:
			c.logLimiter.Printf("reply queue full, dropping %s", msg.ID)
		}
	}
}

// waitFor returns the next queued reply with one of the given ids,
// discarding others.
func (c *Client) waitFor(ctx context.Context, ids ...protocol.MessageID) (protocol.Message, error) {
	for {
		select {
		case msg := <-c.replies:
			for _, id := range ids {
				if msg.ID == id {
					return msg, nil
				}
			}
			log.Printf("ignoring unexpected %s reply", msg.ID)
		case <-ctx.Done():
			return protocol.Message{}, ctx.Err()
		case <-c.done:
			return protocol.Message{}, ErrClosed
		}
	}
}

func (c *Client) request(ctx context.Context, id protocol.MessageID, payload []byte, replies ...protocol.MessageID) (protocol.Message, error) {
	c.requestMu.Lock()
	defer c.requestMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.conf.ConnectionTimeout)
	defer cancel()
	if err := c.send(id, payload); err != nil {
		return protocol.Message{}, err
	}
	return c.waitFor(ctx, replies...)
}

// RequestDescriptors asks the server for its model definitions and
// decodes them with the negotiated profile.
func (c *Client) RequestDescriptors(ctx context.Context) (*natnet.Descriptors, error) {
	msg, err := c.request(ctx, protocol.MsgRequestModelDef, nil, protocol.MsgModelDef)
	if err != nil {
		return nil, fmt.Errorf("requesting model definitions: %w", err)
	}
	return c.handleDescriptors(msg.Payload)
}

// SendCommand sends a text command to the server and returns its reply.
func (c *Client) SendCommand(ctx context.Context, command string) (protocol.Response, error) {
	msg, err := c.request(ctx, protocol.MsgRequest, protocol.CommandRequest(command),
		protocol.MsgResponse, protocol.MsgUnrecognizedRequest)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("command %q: %w", command, err)
	}
	if msg.ID == protocol.MsgUnrecognizedRequest {
		return protocol.Response{}, fmt.Errorf("command %q: %w", command, ErrUnrecognized)
	}
	return protocol.ParseResponse(msg.Payload), nil
}

func (c *Client) handleDescriptors(payload []byte) (*natnet.Descriptors, error) {
	if c.rawHandler != nil {
		c.rawHandler(protocol.MsgModelDef, payload)
	}
	descriptors, err := c.profile.DecodeDescriptors(payload)
	if err != nil {
		return nil, err
	}
	c.descCount.Add(1)
	c.mu.Lock()
	c.descriptors = descriptors
	c.mu.Unlock()
	return descriptors, nil
}

// Stream reads the data socket and sends each decoded frame to out
// until ctx is done or the socket fails. Datagrams that don't decode
// are dropped.
func (c *Client) Stream(ctx context.Context, out chan<- *natnet.Frame) error {
	buf := make([]byte, c.conf.MaxDatagramSize)
	lastData := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.isClosed() {
			return ErrClosed
		}
		if err := c.data.SetReadDeadline(time.Now().Add(readPollInterval)); err != nil {
			return err
		}
		n, _, err := c.data.ReadFromUDP(buf)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				if c.conf.IdleTimeout > 0 && time.Since(lastData) > c.conf.IdleTimeout {
					return fmt.Errorf("%w for %s", ErrIdle, c.conf.IdleTimeout)
				}
				continue
			}
			if c.isClosed() {
				return ErrClosed
			}
			return err
		}
		lastData = time.Now()

		frame := c.handleData(buf[:n])
		if frame == nil {
			continue
		}
		select {
		case out <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleData processes one data socket datagram and returns the frame
// it carried, if any.
func (c *Client) handleData(datagram []byte) *natnet.Frame {
	msg, err := protocol.ParseMessage(datagram)
	if err != nil {
		c.dropped.Add(1)
		c.logLimiter.Printf("dropping datagram: %v", err)
		return nil
	}
	switch msg.ID {
	case protocol.MsgFrameOfData:
		if c.rawHandler != nil {
			c.rawHandler(msg.ID, msg.Payload)
		}
		frame, err := c.profile.DecodeFrame(msg.Payload)
		if err != nil {
			c.dropped.Add(1)
			c.logLimiter.Printf("dropping frame: %v", err)
			return nil
		}
		c.frames.Add(1)
		return frame
	case protocol.MsgModelDef:
		if _, err := c.handleDescriptors(msg.Payload); err != nil {
			c.logLimiter.Printf("bad model definitions: %v", err)
		}
	}
	return nil
}

func (c *Client) keepAlive() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.conf.KeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.send(protocol.MsgKeepAlive, nil); err != nil {
				c.logLimiter.Printf("keep-alive failed: %v", err)
			}
		case <-c.done:
			return
		}
	}
}

// ServerInfo returns the server's connect reply.
func (c *Client) ServerInfo() *protocol.ServerInfo {
	return c.info
}

// Profile returns the decoder profile selected for the server.
func (c *Client) Profile() *natnet.Profile {
	return c.profile
}

// Descriptors returns the most recently received model definitions, or
// nil if none have been received.
func (c *Client) Descriptors() *natnet.Descriptors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.descriptors
}

// DataAddr returns the local address of the data socket.
func (c *Client) DataAddr() *net.UDPAddr {
	return c.data.LocalAddr().(*net.UDPAddr)
}

func (c *Client) Stats() Stats {
	return Stats{
		Frames:      c.frames.Load(),
		Descriptors: c.descCount.Load(),
		Dropped:     c.dropped.Load(),
	}
}

// Close tells the server the client is leaving and closes both sockets.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.info != nil {
			if sendErr := c.send(protocol.MsgDisconnect, nil); sendErr != nil {
				log.Printf("disconnect failed: %v", sendErr)
			}
		}
		close(c.done)
		err = c.cmd.Close()
		if c.data != nil {
			if dataErr := c.data.Close(); err == nil {
				err = dataErr
			}
		}
		c.wg.Wait()
	})
	return err
}
