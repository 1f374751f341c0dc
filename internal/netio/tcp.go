package netio

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rjim/audioreceiver/internal/codec"
	"github.com/rjim/audioreceiver/internal/counters"
	"github.com/rjim/audioreceiver/internal/logging"
)

const (
	tcpAcceptTimeout = 800 * time.Millisecond
	tcpReadTimeout   = 2 * time.Second
	tcpMinFrameLen   = 1
	tcpMaxFrameLen   = 65535
)

// TCPReceiver listens on a TCP port for a single active connection at a
// time, framing each packet with a 2-byte little-endian length prefix.
// Intended for the USB-forwarded localhost tunnel case (spec §4.4).
type TCPReceiver struct {
	counters *counters.Set
	log      logging.Logger
	onFrame  OnFrame

	listener *net.TCPListener

	expectedSamplesPerChannel int
	expectedChannels          int
}

// NewTCPReceiver binds a listening socket with SO_REUSEADDR semantics
// (Go's net package sets this by default on TCPListener). Run applies an
// accept timeout on each Accept so it can observe shutdown promptly.
func NewTCPReceiver(port int, c *counters.Set, log logging.Logger, onFrame OnFrame) (*TCPReceiver, error) {
	addr, err := net.ResolveTCPAddr("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("netio: resolve tcp addr: %w", err)
	}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("netio: listen tcp: %w", err)
	}
	return &TCPReceiver{
		counters: c,
		log:      log,
		onFrame:  onFrame,
		listener: listener,
	}, nil
}

// SetExpectedFormat records the format learned at lazy audio init.
func (t *TCPReceiver) SetExpectedFormat(samplesPerChannel, channels int) {
	t.expectedSamplesPerChannel = samplesPerChannel
	t.expectedChannels = channels
}

// Run accepts connections one at a time until Close is called. Each
// connection is served to completion (close or I/O error) before the
// next Accept; the spec's single-sender model makes this sufficient.
func (t *TCPReceiver) Run() error {
	for {
		if err := t.listener.SetDeadline(time.Now().Add(tcpAcceptTimeout)); err != nil {
			return fmt.Errorf("netio: set accept deadline: %w", err)
		}
		conn, err := t.listener.AcceptTCP()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if isClosedErr(err) {
				return nil
			}
			t.log.Debug("netio: tcp accept error", zapErr(err))
			continue
		}
		t.serve(conn)
	}
}

// serve handles one TCP client connection to completion.
func (t *TCPReceiver) serve(conn *net.TCPConn) {
	defer conn.Close()
	if err := conn.SetNoDelay(true); err != nil {
		t.log.Debug("netio: set nodelay failed", zapErr(err))
	}

	lenBuf := make([]byte, 2)
	scratch := make([]byte, 4096)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(tcpReadTimeout)); err != nil {
			return
		}
		if _, err := io.ReadFull(conn, lenBuf); err != nil {
			return
		}
		frameLen := int(binary.LittleEndian.Uint16(lenBuf))
		if frameLen < tcpMinFrameLen || frameLen > tcpMaxFrameLen {
			t.counters.ParseErr.Add(1)
			return
		}
		if cap(scratch) < frameLen {
			scratch = make([]byte, frameLen)
		}
		buf := scratch[:frameLen]
		if err := conn.SetReadDeadline(time.Now().Add(tcpReadTimeout)); err != nil {
			return
		}
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}

		frame, perr := codec.Parse(buf)
		if perr != nil {
			t.counters.ParseErr.Add(1)
			continue
		}
		if !checkPayload(t.counters, frame, t.expectedSamplesPerChannel, t.expectedChannels) {
			continue
		}

		recordFrame(t.counters, t.log, frame, frameLen+2)
		t.onFrame(frame)
	}
}

// Close unblocks Run and releases the listening socket.
func (t *TCPReceiver) Close() error {
	return t.listener.Close()
}

var _ Receiver = (*TCPReceiver)(nil)
