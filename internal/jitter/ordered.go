package jitter

import (
	"sync"
	"time"

	"github.com/rjim/audioreceiver/internal/codec"
	"github.com/rjim/audioreceiver/internal/counters"
)

// concealFade is the per-sample decay applied to the previous frame's
// samples when synthesizing a concealment frame for a gap (spec §9:
// "fade-to-zero (0.92x previous sample) on gaps").
const concealFade = 0.92

// Ordered is the opt-in sequence-keyed jitter buffer variant for lossy
// UDP paths that reorder packets. It reassembles by sequence number,
// detects gaps, trims overflow by recent window (drop the lowest
// sequence number present, not necessarily the most recently pushed),
// and synthesizes a fade-to-zero concealment frame on a gap instead of
// silence.
type Ordered struct {
	mu   sync.Mutex
	cond *sync.Cond

	byseq map[uint32]codec.Frame
	order []uint32 // sequence numbers currently buffered, ascending by push

	nextSeq    uint32
	haveNext   bool
	targetFrames int
	maxFrames    int
	primed       bool

	lastFrame codec.Frame
	haveLast  bool

	counters *counters.Set
}

// NewOrdered creates a sequence-reordering jitter buffer.
func NewOrdered(targetFrames, maxFrames int, c *counters.Set) *Ordered {
	o := &Ordered{
		byseq:        make(map[uint32]codec.Frame),
		targetFrames: clamp(targetFrames, 2, maxFrames-1),
		maxFrames:    maxFrames,
		counters:     c,
	}
	o.cond = sync.NewCond(&o.mu)
	return o
}

// Push inserts a frame keyed by sequence number. Frames are considered
// late (dropped, Late++) only once nextSeq has already advanced past
// them after priming. Overflow trims the lowest buffered sequence number
// (the "recent window" policy) rather than the oldest-by-arrival frame.
func (o *Ordered) Push(frame codec.Frame) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.counters.Pushed.Add(1)

	if o.primed {
		dist := int32(frame.Seq - o.nextSeq)
		if dist < 0 {
			o.counters.Late.Add(1)
			return
		}
	}

	if _, exists := o.byseq[frame.Seq]; !exists {
		o.order = append(o.order, frame.Seq)
	}
	o.byseq[frame.Seq] = frame

	if len(o.byseq) > o.maxFrames {
		o.trimLowestLocked()
	}

	if !o.haveNext {
		o.nextSeq = frame.Seq
		o.haveNext = true
	}

	if !o.primed && len(o.byseq) >= o.targetFrames {
		o.primed = true
	}
	o.cond.Broadcast()
}

// trimLowestLocked drops the lowest sequence number currently buffered.
// Caller must hold o.mu.
func (o *Ordered) trimLowestLocked() {
	if len(o.order) == 0 {
		return
	}
	lowestIdx := 0
	lowest := o.order[0]
	for i, s := range o.order {
		if int32(s-lowest) < 0 {
			lowest = s
			lowestIdx = i
		}
	}
	delete(o.byseq, lowest)
	o.order = append(o.order[:lowestIdx], o.order[lowestIdx+1:]...)
	o.counters.Overflow.Add(1)
}

// Pop returns the frame at nextSeq if present, a fade-to-zero
// concealment frame if it is missing, or false if the buffer is still
// priming/empty at the deadline. Sequence accounting mirrors FIFO's
// prime/low-water/empty wait structure.
func (o *Ordered) Pop(timeoutMS int) (codec.Frame, bool) {
	deadline := time.Now().Add(time.Duration(timeoutMS) * time.Millisecond)

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.primed {
		if !o.waitUntilLocked(deadline, func() bool { return o.primed }) {
			return codec.Frame{}, false
		}
	}

	lowWater := o.targetFrames / 2
	if lowWater < 1 {
		lowWater = 1
	}
	if len(o.byseq) <= lowWater {
		o.waitUntilLocked(deadline, func() bool { return len(o.byseq) > lowWater })
	}
	if len(o.byseq) == 0 {
		o.waitUntilLocked(deadline, func() bool { return len(o.byseq) > 0 })
	}

	if len(o.byseq) == 0 {
		o.counters.Missing.Add(1)
		o.counters.Played.Add(1)
		return codec.Frame{}, false
	}

	frame, ok := o.byseq[o.nextSeq]
	if !ok {
		o.counters.Missing.Add(1)
		o.counters.Played.Add(1)
		o.nextSeq++
		return o.concealLocked(), true
	}

	delete(o.byseq, o.nextSeq)
	o.removeFromOrderLocked(o.nextSeq)
	o.nextSeq++
	o.lastFrame = frame
	o.haveLast = true
	o.counters.Played.Add(1)
	return frame, true
}

func (o *Ordered) removeFromOrderLocked(seq uint32) {
	for i, s := range o.order {
		if s == seq {
			o.order = append(o.order[:i], o.order[i+1:]...)
			return
		}
	}
}

// concealLocked synthesizes a fade-to-zero frame from the last played
// frame. If there is no prior frame (gap before any playout), returns a
// silent frame shaped like a buffered frame; callers treat a concealed
// frame the same as a normal one for counting purposes.
func (o *Ordered) concealLocked() codec.Frame {
	if !o.haveLast {
		for _, f := range o.byseq {
			silent := f
			silent.Payload = make([]int16, len(f.Payload))
			silent.Seq = o.nextSeq - 1
			return silent
		}
		return codec.Frame{}
	}
	payload := make([]int16, len(o.lastFrame.Payload))
	for i, s := range o.lastFrame.Payload {
		payload[i] = int16(float64(s) * concealFade)
	}
	concealed := o.lastFrame
	concealed.Payload = payload
	concealed.Seq = o.nextSeq - 1
	o.lastFrame = concealed
	return concealed
}

func (o *Ordered) waitUntilLocked(deadline time.Time, cond func() bool) bool {
	if cond() {
		return true
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return cond()
	}
	timer := time.AfterFunc(remaining, func() {
		o.mu.Lock()
		o.cond.Broadcast()
		o.mu.Unlock()
	})
	defer timer.Stop()

	for !cond() {
		if !time.Now().Before(deadline) {
			return cond()
		}
		o.cond.Wait()
	}
	return true
}

// SetTargetFrames clamps n into [2, maxFrames-1].
func (o *Ordered) SetTargetFrames(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.targetFrames = clamp(n, 2, o.maxFrames-1)
	if !o.primed && len(o.byseq) >= o.targetFrames {
		o.primed = true
	}
	o.cond.Broadcast()
}

// Snapshot reports current occupancy and target.
func (o *Ordered) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		BufferedFrames: len(o.byseq),
		TargetFrames:   o.targetFrames,
		MaxFrames:      o.maxFrames,
		Primed:         o.primed,
	}
}

// Wake unblocks any goroutine waiting in Pop.
func (o *Ordered) Wake() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cond.Broadcast()
}

var _ Buffer = (*Ordered)(nil)
