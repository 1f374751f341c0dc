package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validFrame() Frame {
	return Frame{
		SampleRate:        48000,
		Channels:          1,
		Seq:               42,
		SendTimeUS:        1234567890,
		SamplesPerChannel: 4,
		Payload:           []int16{1, -2, 3, -4},
	}
}

func TestParseRoundTrip(t *testing.T) {
	f := validFrame()
	buf := Encode(f)
	got, err := Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestParseRejectsShortHeader(t *testing.T) {
	_, err := Parse(make([]byte, 27))
	assert.ErrorIs(t, err, ErrShortHeader)
}

func TestParseRejectsExactHeaderZeroPayload(t *testing.T) {
	f := validFrame()
	f.Payload = nil
	f.SamplesPerChannel = 0
	buf := Encode(f)
	assert.Len(t, buf, headerSize)
	_, err := Parse(buf)
	assert.ErrorIs(t, err, ErrPayloadLen)
}

func TestParseRejectsOddPayload(t *testing.T) {
	buf := Encode(validFrame())
	// Overwrite payload_len with an odd value.
	buf[26] = 5
	buf[27] = 0
	_, err := Parse(buf)
	assert.ErrorIs(t, err, ErrPayloadLen)
}

func TestParseRejectsBadMagic(t *testing.T) {
	buf := Encode(validFrame())
	buf[0] = 'X'
	_, err := Parse(buf)
	assert.ErrorIs(t, err, ErrMagic)
}

func TestParseRejectsBadVersion(t *testing.T) {
	buf := Encode(validFrame())
	buf[4] = 2
	_, err := Parse(buf)
	assert.ErrorIs(t, err, ErrVersion)
}

func TestParseRejectsBadCodec(t *testing.T) {
	buf := Encode(validFrame())
	buf[5] = 1
	_, err := Parse(buf)
	assert.ErrorIs(t, err, ErrCodec)
}

func TestParseRejectsBadChannels(t *testing.T) {
	buf := Encode(validFrame())
	buf[6] = 3
	_, err := Parse(buf)
	assert.ErrorIs(t, err, ErrChannels)
}

func TestParseRejectsTruncatedPayload(t *testing.T) {
	buf := Encode(validFrame())
	buf = buf[:len(buf)-2] // drop last sample's worth of bytes but keep declared len
	_, err := Parse(buf)
	assert.ErrorIs(t, err, ErrTruncated)
}

// TestParseNeverPanics exercises the parser against arbitrary byte strings:
// it must either return a valid Frame or a non-nil error, and never panic.
func TestParseNeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		buf := rapid.SliceOfN(rapid.Byte(), 0, 4096).Draw(t, "buf")
		frame, err := Parse(buf)
		if err == nil {
			expectedBytes := int(frame.SamplesPerChannel) * int(frame.Channels) * 2
			assert.Equal(t, expectedBytes, len(frame.Payload)*2)
			assert.True(t, frame.Channels == 1 || frame.Channels == 2)
		}
	})
}

// TestEncodeParseIdentity is the spec's round-trip property: for all valid
// field combinations, encode -> parse is identity.
func TestEncodeParseIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		channels := rapid.SampledFrom([]uint8{1, 2}).Draw(t, "channels")
		samplesPerChannel := rapid.IntRange(1, 960).Draw(t, "samplesPerChannel")
		n := samplesPerChannel * int(channels)
		payload := make([]int16, n)
		for i := range payload {
			payload[i] = int16(rapid.IntRange(-32768, 32767).Draw(t, "sample"))
		}
		f := Frame{
			SampleRate:        uint32(rapid.IntRange(8000, 192000).Draw(t, "sampleRate")),
			Channels:          channels,
			Seq:               uint32(rapid.IntRange(0, int(^uint32(0))).Draw(t, "seq")),
			SendTimeUS:        uint64(rapid.IntRange(0, 1<<40).Draw(t, "sendTimeUS")),
			SamplesPerChannel: uint16(samplesPerChannel),
			Payload:           payload,
		}
		buf := Encode(f)
		got, err := Parse(buf)
		require.NoError(t, err)
		assert.Equal(t, f, got)
	})
}
