// Package codec implements the wire format for the receiver's audio
// packets: a fixed 28-byte little-endian header (magic "AUD0", version,
// codec tag, channel count, sample rate, sequence number, sender
// timestamp, frame size) followed by interleaved PCM16LE payload.
//
// Parsing is allocation-light on the hot path: the only allocation per
// accepted packet is the Frame's own sample slice, which the caller owns
// from that point on.
package codec

import (
	"encoding/binary"
	"errors"
)

const (
	headerSize = 28

	version  = 1
	codecPCM = 0
)

var magic = [4]byte{'A', 'U', 'D', '0'}

// Reject reasons. Every one maps to the caller incrementing parse_err;
// these exist so NetReceiver can log which check failed without changing
// the counter semantics.
var (
	ErrShortHeader = errors.New("codec: buffer shorter than header")
	ErrMagic       = errors.New("codec: bad magic")
	ErrVersion     = errors.New("codec: unsupported version")
	ErrCodec       = errors.New("codec: unsupported codec")
	ErrChannels    = errors.New("codec: channels must be 1 or 2")
	ErrPayloadLen  = errors.New("codec: invalid payload length")
	ErrTruncated   = errors.New("codec: payload shorter than declared")
)

// Frame is one successfully parsed packet.
type Frame struct {
	SampleRate         uint32
	Channels           uint8
	Seq                uint32
	SendTimeUS         uint64
	SamplesPerChannel  uint16
	Payload            []int16 // interleaved, len == SamplesPerChannel*Channels
}

// Parse decodes buf into a Frame, or returns the zero Frame and a
// non-nil error identifying why the packet was rejected. Callers must
// increment parse_err on any error.
func Parse(buf []byte) (Frame, error) {
	if len(buf) < headerSize {
		return Frame{}, ErrShortHeader
	}
	if buf[0] != magic[0] || buf[1] != magic[1] || buf[2] != magic[2] || buf[3] != magic[3] {
		return Frame{}, ErrMagic
	}
	if buf[4] != version {
		return Frame{}, ErrVersion
	}
	if buf[5] != codecPCM {
		return Frame{}, ErrCodec
	}
	channels := buf[6]
	if channels != 1 && channels != 2 {
		return Frame{}, ErrChannels
	}
	sampleRate := binary.LittleEndian.Uint32(buf[8:12])
	seq := binary.LittleEndian.Uint32(buf[12:16])
	sendTimeUS := binary.LittleEndian.Uint64(buf[16:24])
	samplesPerChannel := binary.LittleEndian.Uint16(buf[24:26])
	payloadLen := binary.LittleEndian.Uint16(buf[26:28])

	if payloadLen == 0 || payloadLen%2 != 0 {
		return Frame{}, ErrPayloadLen
	}
	if int(payloadLen) != int(samplesPerChannel)*int(channels)*2 {
		return Frame{}, ErrPayloadLen
	}
	if headerSize+int(payloadLen) > len(buf) {
		return Frame{}, ErrTruncated
	}

	samples := make([]int16, payloadLen/2)
	raw := buf[headerSize : headerSize+int(payloadLen)]
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}

	return Frame{
		SampleRate:        sampleRate,
		Channels:          channels,
		Seq:               seq,
		SendTimeUS:        sendTimeUS,
		SamplesPerChannel: samplesPerChannel,
		Payload:           samples,
	}, nil
}

// Encode serializes f into the wire format Parse accepts. Used by the
// bundled sender tooling and by round-trip tests.
func Encode(f Frame) []byte {
	payloadLen := len(f.Payload) * 2
	buf := make([]byte, headerSize+payloadLen)
	copy(buf[0:4], magic[:])
	buf[4] = version
	buf[5] = codecPCM
	buf[6] = f.Channels
	buf[7] = 0 // reserved
	binary.LittleEndian.PutUint32(buf[8:12], f.SampleRate)
	binary.LittleEndian.PutUint32(buf[12:16], f.Seq)
	binary.LittleEndian.PutUint64(buf[16:24], f.SendTimeUS)
	binary.LittleEndian.PutUint16(buf[24:26], f.SamplesPerChannel)
	binary.LittleEndian.PutUint16(buf[26:28], uint16(payloadLen))
	for i, s := range f.Payload {
		binary.LittleEndian.PutUint16(buf[headerSize+i*2:], uint16(s))
	}
	return buf
}

// HeaderSize is exported for callers sizing read buffers or validating
// expected packet sizes against the learned frame format.
const HeaderSize = headerSize
