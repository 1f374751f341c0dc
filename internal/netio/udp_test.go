package netio

import (
	"net"
	"testing"
	"time"

	"github.com/rjim/audioreceiver/internal/codec"
	"github.com/rjim/audioreceiver/internal/counters"
	"github.com/rjim/audioreceiver/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUDPReceiverParsesValidPacket mirrors the teacher's own UDP
// client/server round-trip test, adapted to the new wire format.
func TestUDPReceiverParsesValidPacket(t *testing.T) {
	c := &counters.Set{}
	c.Reset()
	received := make(chan codec.Frame, 1)

	recv, err := NewUDPReceiver(0, c, logging.Noop(), func(f codec.Frame) {
		received <- f
	})
	require.NoError(t, err)
	defer recv.Close()

	go recv.Run()

	clientConn, err := net.Dial("udp", recv.conn.LocalAddr().String())
	require.NoError(t, err)
	defer clientConn.Close()

	f := codec.Frame{SampleRate: 48000, Channels: 1, Seq: 1, SamplesPerChannel: 2, Payload: []int16{1, 2}}
	_, err = clientConn.Write(codec.Encode(f))
	require.NoError(t, err)

	select {
	case got := <-received:
		assert.Equal(t, f.Seq, got.Seq)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
	assert.Equal(t, uint64(1), c.Packets.Load())
}

func TestUDPReceiverCountsParseErrOnGarbage(t *testing.T) {
	c := &counters.Set{}
	c.Reset()
	recv, err := NewUDPReceiver(0, c, logging.Noop(), func(f codec.Frame) {
		t.Fatal("should not deliver a frame from garbage")
	})
	require.NoError(t, err)
	defer recv.Close()

	go recv.Run()

	clientConn, err := net.Dial("udp", recv.conn.LocalAddr().String())
	require.NoError(t, err)
	defer clientConn.Close()

	_, err = clientConn.Write([]byte("not a valid packet"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return c.ParseErr.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUDPReceiverCloseUnblocksRun(t *testing.T) {
	c := &counters.Set{}
	c.Reset()
	recv, err := NewUDPReceiver(0, c, logging.Noop(), func(f codec.Frame) {})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- recv.Run() }()

	require.NoError(t, recv.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
