package jitter

import (
	"sync"
	"time"

	"github.com/rjim/audioreceiver/internal/codec"
	"github.com/rjim/audioreceiver/internal/counters"
)

// FIFO is the default jitter buffer: arrival-order playout, prime gate,
// low-water pre-wait, drop-oldest on overflow. Sequence numbers are
// recorded on each frame but reordering is not performed — see the
// package doc for why this is the specified default.
type FIFO struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue []codec.Frame

	targetFrames int
	maxFrames    int
	primed       bool

	counters *counters.Set
}

// NewFIFO creates a FIFO jitter buffer. targetFrames and maxFrames must
// satisfy 2 <= targetFrames <= maxFrames-1; callers should derive both
// from SessionSupervisor's lazy audio init (spec §4.7).
func NewFIFO(targetFrames, maxFrames int, c *counters.Set) *FIFO {
	f := &FIFO{
		targetFrames: clamp(targetFrames, 2, maxFrames-1),
		maxFrames:    maxFrames,
		counters:     c,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func clamp(n, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// Push enqueues a frame, dropping the oldest on overflow. Wakes any
// waiters in Pop.
func (f *FIFO) Push(frame codec.Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.counters.Pushed.Add(1)

	if len(f.queue) == f.maxFrames {
		f.queue = f.queue[1:]
		f.counters.Overflow.Add(1)
	}
	f.queue = append(f.queue, frame)

	if !f.primed && len(f.queue) >= f.targetFrames {
		f.primed = true
	}
	f.cond.Broadcast()
}

// Pop returns the next frame for playout, or false if nothing was ready
// by the deadline. See package doc and spec §4.2 for the prime/low-water
// wait sequence.
func (f *FIFO) Pop(timeoutMS int) (codec.Frame, bool) {
	deadline := time.Now().Add(time.Duration(timeoutMS) * time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.primed {
		if !f.waitUntilLocked(deadline, func() bool { return f.primed }) {
			return codec.Frame{}, false
		}
	}

	lowWater := f.targetFrames / 2
	if lowWater < 1 {
		lowWater = 1
	}
	if len(f.queue) <= lowWater {
		f.waitUntilLocked(deadline, func() bool { return len(f.queue) > lowWater })
	}

	if len(f.queue) == 0 {
		f.waitUntilLocked(deadline, func() bool { return len(f.queue) > 0 })
	}

	if len(f.queue) == 0 {
		f.counters.Missing.Add(1)
		f.counters.Played.Add(1)
		return codec.Frame{}, false
	}

	frame := f.queue[0]
	f.queue = f.queue[1:]
	f.counters.Played.Add(1)
	return frame, true
}

// waitUntilLocked blocks on f.cond until cond() is true or deadline
// passes. Must be called with f.mu held; returns the final value of
// cond(). Because sync.Cond.Wait has no timeout, a timer goroutine
// broadcasts once the deadline elapses so Wait can re-check and exit.
func (f *FIFO) waitUntilLocked(deadline time.Time, cond func() bool) bool {
	if cond() {
		return true
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return cond()
	}

	timer := time.AfterFunc(remaining, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer timer.Stop()

	for !cond() {
		if !time.Now().Before(deadline) {
			return cond()
		}
		f.cond.Wait()
	}
	return true
}

// SetTargetFrames clamps n into [2, maxFrames-1], applies it, and primes
// the buffer immediately if occupancy already meets the new target.
func (f *FIFO) SetTargetFrames(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.targetFrames = clamp(n, 2, f.maxFrames-1)
	if !f.primed && len(f.queue) >= f.targetFrames {
		f.primed = true
	}
	f.cond.Broadcast()
}

// Snapshot reports current occupancy and target for telemetry.
func (f *FIFO) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		BufferedFrames: len(f.queue),
		TargetFrames:   f.targetFrames,
		MaxFrames:      f.maxFrames,
		Primed:         f.primed,
	}
}

// Wake unblocks any goroutine waiting in Pop, e.g. on session shutdown so
// the player thread can observe running=false promptly.
func (f *FIFO) Wake() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cond.Broadcast()
}

var _ Buffer = (*FIFO)(nil)
