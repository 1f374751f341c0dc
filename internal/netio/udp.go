package netio

import (
	"fmt"
	"net"
	"time"

	"github.com/rjim/audioreceiver/internal/codec"
	"github.com/rjim/audioreceiver/internal/counters"
	"github.com/rjim/audioreceiver/internal/logging"
)

const (
	udpRecvBufBytes = 256 * 1024
	udpReadTimeout  = 500 * time.Millisecond
	udpPacketBuf    = 8 * 1024
)

// UDPReceiver binds a UDP datagram socket and feeds codec.Parse. It is
// the default transport for LAN delivery (spec §4.4).
type UDPReceiver struct {
	port     int
	counters *counters.Set
	log      logging.Logger
	onFrame  OnFrame

	conn *net.UDPConn

	expectedSamplesPerChannel int
	expectedChannels          int
}

// NewUDPReceiver binds to port and configures the receive buffer and
// timeout spec §4.4 requires. Binding happens here so a fatal bind
// failure surfaces before Run is ever called.
func NewUDPReceiver(port int, c *counters.Set, log logging.Logger, onFrame OnFrame) (*UDPReceiver, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("netio: resolve udp addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("netio: listen udp: %w", err)
	}
	if err := conn.SetReadBuffer(udpRecvBufBytes); err != nil {
		log.Debug("netio: set read buffer failed", zapErr(err))
	}
	return &UDPReceiver{
		port:     port,
		counters: c,
		log:      log,
		onFrame:  onFrame,
		conn:     conn,
	}, nil
}

// SetExpectedFormat records the format learned at lazy audio init so
// subsequent packets are checked for payload-size mismatches.
func (u *UDPReceiver) SetExpectedFormat(samplesPerChannel, channels int) {
	u.expectedSamplesPerChannel = samplesPerChannel
	u.expectedChannels = channels
}

// Run reads datagrams until Close is called. Transient read errors and
// parse rejects are absorbed into counters (spec §7); only an
// unrecoverable socket error after Close terminates the loop with nil.
func (u *UDPReceiver) Run() error {
	buf := make([]byte, udpPacketBuf)
	for {
		if err := u.conn.SetReadDeadline(time.Now().Add(udpReadTimeout)); err != nil {
			return fmt.Errorf("netio: set read deadline: %w", err)
		}
		n, _, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if isClosedErr(err) {
				return nil
			}
			u.counters.ParseErr.Add(1)
			u.log.Debug("netio: udp read error", zapErr(err))
			continue
		}

		frame, perr := codec.Parse(buf[:n])
		if perr != nil {
			u.counters.ParseErr.Add(1)
			continue
		}
		if !checkPayload(u.counters, frame, u.expectedSamplesPerChannel, u.expectedChannels) {
			continue
		}

		recordFrame(u.counters, u.log, frame, n)
		u.onFrame(frame)
	}
}

// Close unblocks Run and releases the socket.
func (u *UDPReceiver) Close() error {
	return u.conn.Close()
}

var _ Receiver = (*UDPReceiver)(nil)
