// Package player drives the audio output: it pulls frames from the
// jitter buffer at a steady cadence and writes them to the sink,
// substituting silence on underrun or a payload mismatch. The write is
// blocking and is the pipeline's sole pacing mechanism — the receiver
// must never block on it.
package player

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rjim/audioreceiver/internal/counters"
	"github.com/rjim/audioreceiver/internal/jitter"
	"github.com/rjim/audioreceiver/internal/logging"
	"github.com/rjim/audioreceiver/internal/sink"
)

// Player owns one audio sink and one jitter buffer for the lifetime of a
// session. Construct with New, Open once the wire format is known, then
// Start; Stop joins the playout goroutine before returning.
type Player struct {
	buf      jitter.Buffer
	snk      sink.Sink
	counters *counters.Set
	log      logging.Logger

	expectedLen int // samples_per_channel * channels
	silence     []int16
	popTimeout  time.Duration

	running atomic.Bool
	wg      sync.WaitGroup
}

// New constructs a Player bound to buf and snk. Open must be called
// before Start.
func New(buf jitter.Buffer, snk sink.Sink, c *counters.Set, log logging.Logger) *Player {
	return &Player{buf: buf, snk: snk, counters: c, log: log}
}

// Open computes the expected frame length and pop timeout from f and
// the frame duration in milliseconds, and opens the underlying sink.
// frameMS is the duration of one frame (samples_per_channel / sample_rate
// in ms); pop_timeout = max(10, frame_ms*2) ms per spec.
func (p *Player) Open(f sink.Format, frameMS float64) error {
	if err := p.snk.Open(f); err != nil {
		return err
	}
	p.expectedLen = f.SamplesPerChannel * f.Channels
	p.silence = make([]int16, p.expectedLen)

	timeoutMS := frameMS * 2
	if timeoutMS < 10 {
		timeoutMS = 10
	}
	p.popTimeout = time.Duration(timeoutMS) * time.Millisecond
	return nil
}

// Start launches the playout loop in its own goroutine. Safe to call
// once per Player.
func (p *Player) Start() {
	p.running.Store(true)
	p.wg.Add(1)
	go p.run()
}

// Stop signals the playout loop to exit and waits for it to return.
func (p *Player) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	p.wg.Wait()
}

func (p *Player) run() {
	defer p.wg.Done()

	popTimeoutMS := int(p.popTimeout / time.Millisecond)
	for p.running.Load() {
		frame, ok := p.buf.Pop(popTimeoutMS)
		if !ok {
			p.counters.Underrun.Add(1)
			if err := p.snk.Write(p.silence); err != nil {
				p.log.Error("player: write silence failed", err)
			}
			continue
		}
		if len(frame.Payload) != p.expectedLen {
			p.counters.PayloadErr.Add(1)
			if err := p.snk.Write(p.silence); err != nil {
				p.log.Error("player: write silence failed", err)
			}
			continue
		}
		if err := p.snk.Write(frame.Payload); err != nil {
			p.log.Error("player: write frame failed", err)
		}
	}
}
