package player

import (
	"sync"
	"testing"
	"time"

	"github.com/rjim/audioreceiver/internal/codec"
	"github.com/rjim/audioreceiver/internal/counters"
	"github.com/rjim/audioreceiver/internal/jitter"
	"github.com/rjim/audioreceiver/internal/logging"
	"github.com/rjim/audioreceiver/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBuffer is a minimal jitter.Buffer stand-in that serves a scripted
// sequence of Pop results without any timing dependency.
type fakeBuffer struct {
	mu    sync.Mutex
	queue []codec.Frame
}

func (f *fakeBuffer) Push(fr codec.Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fr)
}

func (f *fakeBuffer) Pop(timeoutMS int) (codec.Frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		time.Sleep(time.Duration(timeoutMS) * time.Millisecond)
		return codec.Frame{}, false
	}
	fr := f.queue[0]
	f.queue = f.queue[1:]
	return fr, true
}

func (f *fakeBuffer) SetTargetFrames(n int) {}

func (f *fakeBuffer) Snapshot() jitter.Snapshot { return jitter.Snapshot{} }

var _ jitter.Buffer = (*fakeBuffer)(nil)

func TestPlayerWritesFrameAndCountsUnderrunOnEmpty(t *testing.T) {
	buf := &fakeBuffer{}
	buf.Push(codec.Frame{Seq: 1, SamplesPerChannel: 2, Payload: []int16{10, 20}})

	snk := sink.NewNull()
	c := &counters.Set{}
	c.Reset()
	p := New(buf, snk, c, logging.Noop())
	require.NoError(t, p.Open(sink.Format{SampleRate: 48000, Channels: 1, SamplesPerChannel: 2}, 5))

	p.Start()
	require.Eventually(t, func() bool { return snk.Writes() >= 2 }, time.Second, time.Millisecond)
	p.Stop()

	assert.GreaterOrEqual(t, c.Underrun.Load(), uint64(1))
}

func TestPlayerCountsPayloadErrOnSizeMismatch(t *testing.T) {
	buf := &fakeBuffer{}
	buf.Push(codec.Frame{Seq: 1, SamplesPerChannel: 2, Payload: []int16{1}})

	snk := sink.NewNull()
	c := &counters.Set{}
	c.Reset()
	p := New(buf, snk, c, logging.Noop())
	require.NoError(t, p.Open(sink.Format{SampleRate: 48000, Channels: 1, SamplesPerChannel: 2}, 5))

	p.Start()
	require.Eventually(t, func() bool { return c.PayloadErr.Load() >= 1 }, time.Second, time.Millisecond)
	p.Stop()
}
