// Package stats implements StatsSampler: once per second it snapshots
// the session's counters and jitter-buffer occupancy, computes deltas,
// drives AdaptiveController, and emits the three-line telemetry record
// described in spec §6.
package stats

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rjim/audioreceiver/internal/adaptive"
	"github.com/rjim/audioreceiver/internal/counters"
	"github.com/rjim/audioreceiver/internal/jitter"
	"github.com/rjim/audioreceiver/internal/logging"
	"github.com/rjim/audioreceiver/internal/telemetry"
)

// Sample is one window's full telemetry record.
type Sample struct {
	PPS          float64
	KBPS         float64
	NetAgeMS     float64 // 0 with NetAgeValid=false when no frames this window
	NetAgeValid  bool
	BufferedMS   float64
	MissingDelta uint64
	LateDelta    uint64
	OverflowDelta uint64
	UnderrunDelta uint64
	ParseErrDelta uint64
	PayloadErrDelta uint64

	TargetFrames int
	TargetMS     float64
	BaseFrames   int
	BaseMS       float64
	ScoreEMA     float64
	WindowScore  float64
	Reason       string

	NetPathMS   float64
	NetJitterMS float64
	DecodeMS    float64
	PlayoutMS   float64
	E2EMS       float64
}

// Sampler owns the per-session adaptive controller and drives the
// one-second window loop.
type Sampler struct {
	counters   *counters.Set
	buf        jitter.Buffer
	controller *adaptive.Controller
	log        logging.Logger
	hub        *telemetry.Hub
	frameMS    float64

	prev    counters.Snapshot
	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

// New constructs a Sampler. frameMS is the duration of one audio frame
// in milliseconds, used to convert frame counts to milliseconds for
// telemetry.
func New(c *counters.Set, buf jitter.Buffer, ctl *adaptive.Controller, log logging.Logger, hub *telemetry.Hub, frameMS float64) *Sampler {
	return &Sampler{
		counters:   c,
		buf:        buf,
		controller: ctl,
		log:        log,
		hub:        hub,
		frameMS:    frameMS,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the sampler loop in its own goroutine.
func (s *Sampler) Start() {
	s.running.Store(true)
	go s.run()
}

// Stop signals the loop to exit and waits for it to return.
func (s *Sampler) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	close(s.stop)
	<-s.done
}

func (s *Sampler) run() {
	defer close(s.done)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Sampler) tick() {
	cur := s.counters.Snapshot()
	bufSnap := s.buf.Snapshot()
	ageSumUS, ageCount, pathSumUS, pathCount, jitterSumUS, jitterCount, decodeSumUS, decodeCount := s.counters.DrainAgeWindow()

	d := adaptive.Deltas{
		UnderrunDelta:   cur.Underrun - s.prev.Underrun,
		MissingDelta:    cur.Missing - s.prev.Missing,
		OverflowDelta:   cur.Overflow - s.prev.Overflow,
		ParseErrDelta:   cur.ParseErr - s.prev.ParseErr,
		PayloadErrDelta: cur.PayloadErr - s.prev.PayloadErr,
		BufferedFrames:  bufSnap.BufferedFrames,
		TargetFrames:    bufSnap.TargetFrames,
	}
	lateDelta := cur.Late - s.prev.Late
	packetsDelta := cur.Packets - s.prev.Packets
	bytesDelta := cur.Bytes - s.prev.Bytes

	result := s.controller.Evaluate(d)
	if result.Reason != "hold" {
		s.buf.SetTargetFrames(result.NewTarget)
	}

	sample := Sample{
		PPS:             float64(packetsDelta),
		KBPS:            float64(bytesDelta) * 8 / 1000,
		BufferedMS:      float64(bufSnap.BufferedFrames) * s.frameMS,
		MissingDelta:    d.MissingDelta,
		LateDelta:       lateDelta,
		OverflowDelta:   d.OverflowDelta,
		UnderrunDelta:   d.UnderrunDelta,
		ParseErrDelta:   d.ParseErrDelta,
		PayloadErrDelta: d.PayloadErrDelta,
		TargetFrames:    result.NewTarget,
		TargetMS:        float64(result.NewTarget) * s.frameMS,
		BaseFrames:      s.controller.BaseTargetFrames,
		BaseMS:          float64(s.controller.BaseTargetFrames) * s.frameMS,
		ScoreEMA:        result.ScoreEMA,
		WindowScore:     result.Score,
		Reason:          result.Reason,
		PlayoutMS:       float64(bufSnap.BufferedFrames) * s.frameMS,
	}

	if ageCount > 0 {
		sample.NetAgeValid = true
		sample.NetAgeMS = float64(ageSumUS) / float64(ageCount) / 1000
	}
	if pathCount > 0 {
		sample.NetPathMS = float64(pathSumUS) / float64(pathCount) / 1000
	}
	if jitterCount > 0 {
		sample.NetJitterMS = float64(jitterSumUS) / float64(jitterCount) / 1000
	}
	if decodeCount > 0 {
		sample.DecodeMS = float64(decodeSumUS) / float64(decodeCount) / 1000
	}

	e2eBase := sample.NetPathMS
	if pathCount == 0 {
		e2eBase = sample.NetAgeMS
	}
	sample.E2EMS = e2eBase + sample.DecodeMS + sample.BufferedMS

	s.emit(sample)
	s.prev = cur
}

func (s *Sampler) emit(sample Sample) {
	delay := "n/a"
	if sample.NetAgeValid {
		delay = fmt.Sprintf("%.1f", sample.NetAgeMS)
	}
	s.log.Info(fmt.Sprintf(
		"stats rx=%.1f %.1f kbps delay=%s ms buffer=%.1f ms loss=%d late=%d over=%d underrun=%d parseErr=%d payloadErr=%d",
		sample.PPS, sample.KBPS, delay, sample.BufferedMS,
		sample.MissingDelta, sample.LateDelta, sample.OverflowDelta, sample.UnderrunDelta,
		sample.ParseErrDelta, sample.PayloadErrDelta,
	))
	s.log.Info(fmt.Sprintf(
		"autojitter target=%d (%.1fms) base=%d (%.1fms) score=%.1f win=%.1f reason=%s",
		sample.TargetFrames, sample.TargetMS, sample.BaseFrames, sample.BaseMS,
		sample.ScoreEMA, sample.WindowScore, sample.Reason,
	))
	s.log.Info(fmt.Sprintf(
		"perf netAge=%.1f netPath=%.1f netJit=%.1f decode=%.1f playout=%.1f e2e=%.1f",
		sample.NetAgeMS, sample.NetPathMS, sample.NetJitterMS, sample.DecodeMS, sample.PlayoutMS, sample.E2EMS,
	))

	if s.hub != nil {
		s.hub.Publish(sample)
	}
}
