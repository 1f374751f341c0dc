package stats

import (
	"testing"
	"time"

	"github.com/rjim/audioreceiver/internal/adaptive"
	"github.com/rjim/audioreceiver/internal/codec"
	"github.com/rjim/audioreceiver/internal/counters"
	"github.com/rjim/audioreceiver/internal/jitter"
	"github.com/rjim/audioreceiver/internal/logging"
	"github.com/rjim/audioreceiver/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickComputesDeltasAndPublishesSample(t *testing.T) {
	c := &counters.Set{}
	c.Reset()
	buf := jitter.NewFIFO(4, 16, c)
	ctl := adaptive.New(4)
	hub := telemetry.NewHub()
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	s := New(c, buf, ctl, logging.Noop(), hub, 5)

	for i := 0; i < 6; i++ {
		buf.Push(codec.Frame{Seq: uint32(i), SamplesPerChannel: 2, Payload: []int16{1, 2}})
	}
	c.Packets.Store(6)
	c.Bytes.Store(600)

	s.tick()

	select {
	case v := <-sub:
		sample := v.(Sample)
		assert.Equal(t, float64(6), sample.PPS)
		assert.InDelta(t, 4.8, sample.KBPS, 0.01)
	case <-time.After(time.Second):
		t.Fatal("expected a published sample")
	}
}

func TestNewSamplerStartStop(t *testing.T) {
	c := &counters.Set{}
	c.Reset()
	buf := jitter.NewFIFO(4, 16, c)
	ctl := adaptive.New(4)
	s := New(c, buf, ctl, logging.Noop(), nil, 5)
	s.Start()
	s.Stop()
	require.NoError(t, nil)
}
