// Package jitter implements the receiver's jitter buffer: a bounded
// reassembly queue that absorbs inter-arrival jitter and hands frames to
// the player at steady cadence.
//
// Two variants are provided. FIFO (the default) plays frames back in
// arrival order with a prime gate and a low-water pre-wait; it is the
// variant the adaptive controller is tuned against. Ordered is an opt-in
// mode for lossy, reordering UDP paths: it reassembles by sequence
// number, detects gaps, and conceals them with a fade-to-zero frame
// instead of drop-oldest/silence. Do not mix the two within a session.
package jitter

import "github.com/rjim/audioreceiver/internal/codec"

// Buffer is the interface both variants satisfy so Player, StatsSampler,
// and AdaptiveController can stay variant-agnostic.
type Buffer interface {
	// Push enqueues a freshly parsed frame.
	Push(f codec.Frame)
	// Pop returns the next frame for playout, waiting up to timeoutMS for
	// priming/low-water/availability as described per variant. Returns
	// false if nothing was available by the deadline.
	Pop(timeoutMS int) (codec.Frame, bool)
	// SetTargetFrames clamps n into [2, maxFrames-1] and applies it.
	SetTargetFrames(n int)
	// Snapshot reports current occupancy and state for telemetry.
	Snapshot() Snapshot
}

// Snapshot is a point-in-time view of buffer occupancy and target used by
// AdaptiveController and StatsSampler.
type Snapshot struct {
	BufferedFrames int
	TargetFrames   int
	MaxFrames      int
	Primed         bool
}
