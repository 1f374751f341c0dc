// Package netio owns the receiver's sockets: a UDP datagram loop or a
// TCP length-prefixed stream loop, both feeding codec.Parse and, on
// success, a sink via OnFrame. Network-age/path/jitter accounting (spec
// §4.6) lives here since it is computed from each valid frame as it
// arrives.
package netio

import (
	"time"

	"github.com/rjim/audioreceiver/internal/codec"
	"github.com/rjim/audioreceiver/internal/counters"
	"github.com/rjim/audioreceiver/internal/logging"
)

// maxPlausibleAgeUS bounds network-age accounting: ages outside
// [0, 5s] are rejected as clock-skew noise rather than folded into the
// running stats (spec §4.6).
const maxPlausibleAgeUS = 5_000_000

// Receiver is satisfied by UDPReceiver and TCPReceiver.
type Receiver interface {
	// Run blocks until the listener is closed or a fatal error occurs.
	// Transient per-packet errors are absorbed into counters, never
	// returned; Run returns nil after Close and an error only if it cannot
	// set a socket deadline. Bind/listen failures are returned earlier, by
	// the receiver's constructor.
	Run() error
	// Close unblocks Run and releases the socket.
	Close() error
}

// OnFrame is called for every successfully parsed frame, after the
// receiver has updated network-age accounting. Once the format learned
// from the first packet has been recorded with SetExpectedFormat, frames
// whose payload size does not match it are counted as payload_err and
// never reach OnFrame (spec §4.4 payload_err check); before that, every
// parsed frame is delivered (the first frame triggers lazy init).
type OnFrame func(f codec.Frame)

// nowUS returns the current unix time in microseconds, matching the
// sender's send_time_us units (spec §3 AudioFrame.send_time_us).
func nowUS() int64 {
	return time.Now().UnixMicro()
}

// recordFrame runs shared per-frame bookkeeping: packet/byte counters and
// network-age accounting. wireBytes is the full on-wire size including
// any framing overhead (TCP length prefix).
func recordFrame(c *counters.Set, log logging.Logger, f codec.Frame, wireBytes int) {
	c.Packets.Add(1)
	c.Bytes.Add(uint64(wireBytes))

	ageUS := nowUS() - int64(f.SendTimeUS)
	if ageUS < 0 || ageUS > maxPlausibleAgeUS {
		return
	}
	c.RecordAge(ageUS)
}

// checkPayload validates the parsed frame's payload size against the
// format learned at lazy init (samplesPerChannel*channels*2 bytes). A
// mismatch increments payload_err and the frame should be dropped by the
// caller; samplesPerChannel==0 means "not yet learned" (first frame is
// exempt, since it defines the format).
func checkPayload(c *counters.Set, f codec.Frame, expectedSamplesPerChannel int, expectedChannels int) bool {
	if expectedSamplesPerChannel == 0 {
		return true
	}
	wantSamples := expectedSamplesPerChannel * expectedChannels
	if len(f.Payload) != wantSamples || int(f.Channels) != expectedChannels {
		c.PayloadErr.Add(1)
		return false
	}
	return true
}
