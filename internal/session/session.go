// Package session implements SessionSupervisor: it owns one session's
// counters, jitter buffer, receiver, player, and stats sampler, wires
// them together via lazy audio init on the first valid frame, and
// guarantees clean teardown on Stop (spec §4.7).
package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rjim/audioreceiver/internal/adaptive"
	"github.com/rjim/audioreceiver/internal/codec"
	"github.com/rjim/audioreceiver/internal/config"
	"github.com/rjim/audioreceiver/internal/counters"
	"github.com/rjim/audioreceiver/internal/jitter"
	"github.com/rjim/audioreceiver/internal/logging"
	"github.com/rjim/audioreceiver/internal/netio"
	"github.com/rjim/audioreceiver/internal/player"
	"github.com/rjim/audioreceiver/internal/sink"
	"github.com/rjim/audioreceiver/internal/stats"
	"github.com/rjim/audioreceiver/internal/telemetry"
)

// waker is implemented by both jitter buffer variants: Stop uses it to
// unblock a Player goroutine parked in Pop.
type waker interface {
	Wake()
}

// SinkFactory constructs a fresh audio sink for a session. Tests pass a
// factory returning sink.NewNull(); the daemon passes sink.NewPortAudio.
type SinkFactory func() sink.Sink

// Supervisor owns the full lifecycle of one streaming session. Zero
// value is not usable; construct with New.
type Supervisor struct {
	baseLog logging.Logger
	hub     *telemetry.Hub
	newSink SinkFactory

	mu        sync.Mutex
	running   bool
	sessionID uuid.UUID
	cfg       config.Session
	log       logging.Logger

	counters *counters.Set
	buf      jitter.Buffer
	receiver netio.Receiver
	recvWG   sync.WaitGroup
	player   *player.Player
	sampler  *stats.Sampler
	snk      sink.Sink

	initDone bool
}

// New constructs a Supervisor. hub may be nil if no telemetry
// subscriber is needed.
func New(log logging.Logger, hub *telemetry.Hub, newSink SinkFactory) *Supervisor {
	return &Supervisor{
		baseLog:  log,
		log:      log,
		hub:      hub,
		newSink:  newSink,
		counters: &counters.Set{},
	}
}

// Start begins a session. Redundant calls while already running are
// ignored (spec §4.7 idempotence).
func (s *Supervisor) Start(cfg config.Session) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if err := cfg.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}

	s.cfg = cfg
	s.sessionID = uuid.New()
	s.counters.Reset()
	s.buf = nil
	s.player = nil
	s.sampler = nil
	s.snk = nil
	s.initDone = false
	s.running = true

	log := s.baseLog.With(zap.String("session", s.sessionID.String()))
	s.log = log

	var receiver netio.Receiver
	var err error
	onFrame := s.makeOnFrame()
	switch cfg.Transport {
	case config.TransportTCP:
		receiver, err = netio.NewTCPReceiver(cfg.Port, s.counters, log, onFrame)
	default:
		receiver, err = netio.NewUDPReceiver(cfg.Port, s.counters, log, onFrame)
	}
	if err != nil {
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("session: start: %w", err)
	}
	s.receiver = receiver
	s.recvWG.Add(1)
	s.mu.Unlock()

	go func() {
		if err := receiver.Run(); err != nil {
			log.Error("session: receiver exited with error", err)
		}
		// Done must fire before Stop, since Stop (called either from
		// here or from an external caller already in flight) joins on
		// recvWG to confirm this goroutine has exited.
		s.recvWG.Done()
		s.Stop()
	}()

	return nil
}

// makeOnFrame returns the callback passed to the receiver. The first
// call performs lazy audio init (spec §4.7); every call pushes the
// frame into the jitter buffer.
func (s *Supervisor) makeOnFrame() netio.OnFrame {
	return func(f codec.Frame) {
		s.mu.Lock()
		if !s.initDone {
			if err := s.lazyInitLocked(f); err != nil {
				receiver := s.receiver
				s.mu.Unlock()
				s.log.Error("session: lazy audio init failed", err)
				// This runs on the receiver goroutine, so it must not join
				// itself via Stop: closing the socket makes Run return, and
				// the receiver goroutine then calls Stop after recvWG.Done.
				receiver.Close()
				return
			}
			s.initDone = true
		}
		buf := s.buf
		s.mu.Unlock()
		// buf.Push owns the Pushed increment; do not also count it here.
		buf.Push(f)
	}
}

// lazyInitLocked computes frame cadence and target framing from the
// first valid frame, constructs the jitter buffer, opens the sink, and
// starts the player and sampler. Caller holds s.mu.
func (s *Supervisor) lazyInitLocked(f codec.Frame) error {
	frameMS := float64(f.SamplesPerChannel) * 1000 / float64(f.SampleRate)
	if frameMS < 1 {
		frameMS = 1
	}

	base := int(float64(s.cfg.JitterMS) / frameMS)
	if base < 2 {
		base = 2
	}
	ctl := adaptive.New(base)
	maxFrames := base + 16
	if alt := ctl.MaxTargetFrames + 4; alt > maxFrames {
		maxFrames = alt
	}

	var buf jitter.Buffer
	if s.cfg.Reorder {
		buf = jitter.NewOrdered(base, maxFrames, s.counters)
	} else {
		buf = jitter.NewFIFO(base, maxFrames, s.counters)
	}
	s.buf = buf

	snk := s.newSink()
	p := player.New(buf, snk, s.counters, s.log)
	format := sink.Format{
		SampleRate:        int(f.SampleRate),
		Channels:          int(f.Channels),
		SamplesPerChannel: int(f.SamplesPerChannel),
	}
	if err := p.Open(format, frameMS); err != nil {
		return fmt.Errorf("session: open sink: %w", err)
	}
	s.snk = snk
	s.player = p
	p.Start()

	switch r := s.receiver.(type) {
	case *netio.UDPReceiver:
		r.SetExpectedFormat(format.SamplesPerChannel, format.Channels)
	case *netio.TCPReceiver:
		r.SetExpectedFormat(format.SamplesPerChannel, format.Channels)
	}

	sampler := stats.New(s.counters, buf, ctl, s.log, s.hub, frameMS)
	s.sampler = sampler
	sampler.Start()

	return nil
}

// Stop ends the session, releasing every resource it acquired.
// Redundant calls are no-ops (spec §4.7 idempotence).
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	receiver := s.receiver
	buf := s.buf
	p := s.player
	sampler := s.sampler
	snk := s.snk
	s.mu.Unlock()

	if receiver != nil {
		receiver.Close()
		s.recvWG.Wait()
	}
	if w, ok := buf.(waker); ok {
		w.Wake()
	}
	if p != nil {
		p.Stop()
	}
	if sampler != nil {
		sampler.Stop()
	}
	if snk != nil {
		snk.Close()
	}
}

// SessionID returns the current (or most recent) session's identifier.
func (s *Supervisor) SessionID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Running reports whether a session is currently active.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
