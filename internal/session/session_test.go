package session

import (
	"net"
	"testing"
	"time"

	"github.com/rjim/audioreceiver/internal/codec"
	"github.com/rjim/audioreceiver/internal/config"
	"github.com/rjim/audioreceiver/internal/logging"
	"github.com/rjim/audioreceiver/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	require.NoError(t, err)
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).Port
}

func TestSupervisorLazyInitAndStop(t *testing.T) {
	port := freeUDPPort(t)
	sup := New(logging.Noop(), nil, func() sink.Sink { return sink.NewNull() })

	cfg := config.Session{Port: port, JitterMS: 20, Transport: config.TransportUDP}
	require.NoError(t, sup.Start(cfg))
	assert.True(t, sup.Running())

	// Redundant start is ignored.
	require.NoError(t, sup.Start(cfg))

	conn, err := net.Dial("udp", (&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}).String())
	require.NoError(t, err)
	defer conn.Close()

	f := codec.Frame{SampleRate: 48000, Channels: 1, Seq: 1, SamplesPerChannel: 240, Payload: make([]int16, 240)}
	_, err = conn.Write(codec.Encode(f))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return sup.counters.Pushed.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	sup.Stop()
	assert.False(t, sup.Running())

	// Redundant stop is a no-op.
	sup.Stop()
}

func TestSupervisorRejectsInvalidConfig(t *testing.T) {
	sup := New(logging.Noop(), nil, func() sink.Sink { return sink.NewNull() })
	err := sup.Start(config.Session{Port: 0, JitterMS: 20, Transport: config.TransportUDP})
	assert.Error(t, err)
}
