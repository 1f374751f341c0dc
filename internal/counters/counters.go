// Package counters holds the atomic counters shared across a session's
// network, jitter-buffer, and playout components. Every field is safe for
// concurrent read/write without an external lock; Snapshot reads them all
// in one pass for telemetry.
package counters

import "sync/atomic"

// Set is the full collection of counters for one session. Call Reset
// before first use: it zeroes every counter and sets MinAgeUS to -1 (no
// baseline yet), which the zero value does not.
type Set struct {
	Packets      atomic.Uint64 // datagrams/frames successfully parsed
	Bytes        atomic.Uint64 // wire bytes received (payload + framing overhead)
	ParseErr     atomic.Uint64 // rejected by codec or malformed framing
	PayloadErr   atomic.Uint64 // size mismatch vs. learned expected payload
	Pushed       atomic.Uint64 // frames pushed into the jitter buffer
	Played       atomic.Uint64 // frames (or nulls) popped for playout
	Missing      atomic.Uint64 // pop() timed out with nothing to play
	Late         atomic.Uint64 // sequence-ordered variant only; else always 0
	Overflow     atomic.Uint64 // drop-oldest / drop-window events on push
	Underrun     atomic.Uint64 // player substituted silence

	// Network age accounting (spec §4.6). Stored as fixed-point microseconds.
	AgeSumUS   atomic.Int64
	AgeCount   atomic.Uint64
	MinAgeUS   atomic.Int64 // session-minimum observed age; baseline for Path
	PathSumUS  atomic.Int64
	PathCount  atomic.Uint64
	JitterSumUS atomic.Int64
	JitterCount atomic.Uint64
	prevAgeUS   atomic.Int64
	havePrev    atomic.Bool

	// DecodeSumUS/DecodeCount reserved for future codec timing; codec here
	// is trivial PCM16 so decode time is effectively zero, but the fields
	// exist so StatsSampler's "avg decode time" field always has a source.
	DecodeSumUS atomic.Int64
	DecodeCount atomic.Uint64
}

// Reset zeroes every counter and clears the MinAgeUS baseline to -1.
// Called at session start.
func (s *Set) Reset() {
	s.Packets.Store(0)
	s.Bytes.Store(0)
	s.ParseErr.Store(0)
	s.PayloadErr.Store(0)
	s.Pushed.Store(0)
	s.Played.Store(0)
	s.Missing.Store(0)
	s.Late.Store(0)
	s.Overflow.Store(0)
	s.Underrun.Store(0)
	s.AgeSumUS.Store(0)
	s.AgeCount.Store(0)
	s.MinAgeUS.Store(-1)
	s.PathSumUS.Store(0)
	s.PathCount.Store(0)
	s.JitterSumUS.Store(0)
	s.JitterCount.Store(0)
	s.prevAgeUS.Store(0)
	s.havePrev.Store(false)
	s.DecodeSumUS.Store(0)
	s.DecodeCount.Store(0)
}

// RecordAge folds one valid frame's network age (microseconds since send)
// into the running sum/count, updates the session-minimum baseline, the
// path-above-baseline running sum, and the inter-arrival jitter sum.
func (s *Set) RecordAge(ageUS int64) {
	s.AgeSumUS.Add(ageUS)
	s.AgeCount.Add(1)

	for {
		cur := s.MinAgeUS.Load()
		if cur >= 0 && ageUS >= cur {
			break
		}
		if s.MinAgeUS.CompareAndSwap(cur, ageUS) {
			break
		}
	}

	minAge := s.MinAgeUS.Load()
	if minAge >= 0 {
		s.PathSumUS.Add(ageUS - minAge)
		s.PathCount.Add(1)
	}

	if s.havePrev.Load() {
		prev := s.prevAgeUS.Load()
		delta := ageUS - prev
		if delta < 0 {
			delta = -delta
		}
		s.JitterSumUS.Add(delta)
		s.JitterCount.Add(1)
	}
	s.prevAgeUS.Store(ageUS)
	s.havePrev.Store(true)
}

// RecordDecode folds one frame's decode duration into the running sum/count.
func (s *Set) RecordDecode(durUS int64) {
	s.DecodeSumUS.Add(durUS)
	s.DecodeCount.Add(1)
}

// Snapshot is a point-in-time copy of every counter, used by StatsSampler
// to compute window deltas.
type Snapshot struct {
	Packets, Bytes, ParseErr, PayloadErr    uint64
	Pushed, Played, Missing, Late, Overflow uint64
	Underrun                                uint64
	AgeSumUS, PathSumUS, JitterSumUS        int64
	AgeCount, PathCount, JitterCount        uint64
	DecodeSumUS                             int64
	DecodeCount                             uint64
	MinAgeUS                                int64
}

// Snapshot reads every counter atomically (field-by-field; the set as a
// whole is not read under a single lock, which is acceptable since
// StatsSampler only needs approximate per-window deltas, not a linearizable
// cross-field view).
func (s *Set) Snapshot() Snapshot {
	return Snapshot{
		Packets:     s.Packets.Load(),
		Bytes:       s.Bytes.Load(),
		ParseErr:    s.ParseErr.Load(),
		PayloadErr:  s.PayloadErr.Load(),
		Pushed:      s.Pushed.Load(),
		Played:      s.Played.Load(),
		Missing:     s.Missing.Load(),
		Late:        s.Late.Load(),
		Overflow:    s.Overflow.Load(),
		Underrun:    s.Underrun.Load(),
		AgeSumUS:    s.AgeSumUS.Load(),
		PathSumUS:   s.PathSumUS.Load(),
		JitterSumUS: s.JitterSumUS.Load(),
		AgeCount:    s.AgeCount.Load(),
		PathCount:   s.PathCount.Load(),
		JitterCount: s.JitterCount.Load(),
		DecodeSumUS: s.DecodeSumUS.Load(),
		DecodeCount: s.DecodeCount.Load(),
		MinAgeUS:    s.MinAgeUS.Load(),
	}
}

// DrainAgeWindow atomically reads and resets the age/path/jitter/decode
// running sums and counts, returning them as this window's totals.
// MinAgeUS is a session baseline and is never reset.
func (s *Set) DrainAgeWindow() (ageSumUS int64, ageCount uint64, pathSumUS int64, pathCount uint64, jitterSumUS int64, jitterCount uint64, decodeSumUS int64, decodeCount uint64) {
	ageSumUS = s.AgeSumUS.Swap(0)
	ageCount = s.AgeCount.Swap(0)
	pathSumUS = s.PathSumUS.Swap(0)
	pathCount = s.PathCount.Swap(0)
	jitterSumUS = s.JitterSumUS.Swap(0)
	jitterCount = s.JitterCount.Swap(0)
	decodeSumUS = s.DecodeSumUS.Swap(0)
	decodeCount = s.DecodeCount.Swap(0)
	return
}
