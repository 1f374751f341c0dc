package adaptive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNewDerivesMinMax(t *testing.T) {
	c := New(4)
	assert.Equal(t, 3, c.MinTargetFrames)
	assert.Equal(t, 12, c.MaxTargetFrames)
}

func TestNewClampsSmallBase(t *testing.T) {
	c := New(2)
	assert.Equal(t, 2, c.MinTargetFrames) // max(2, base-1) = max(2,1) = 2
	assert.Equal(t, 10, c.MaxTargetFrames)
}

func TestNewClampsMaxAt32(t *testing.T) {
	c := New(30)
	assert.Equal(t, 29, c.MinTargetFrames)
	assert.Equal(t, 32, c.MaxTargetFrames)
}

func TestScoreBounds(t *testing.T) {
	d := Deltas{UnderrunDelta: 100, TargetFrames: 4, BufferedFrames: 0}
	assert.Equal(t, 0.0, Score(d))

	d = Deltas{TargetFrames: 4, BufferedFrames: 4}
	assert.Equal(t, 100.0, Score(d))
}

func TestEvaluateRaisesOnBurstLoss(t *testing.T) {
	c := New(4)
	target := 4

	// Window 1: burst loss (missing >= 2) -> severe raise.
	r := c.Evaluate(Deltas{MissingDelta: 5, TargetFrames: target, BufferedFrames: 2})
	assert.Contains(t, []string{"raise", "raise-severe"}, r.Reason)
	assert.Greater(t, r.NewTarget, target)
}

func TestEvaluateLowersAfterGoodStreak(t *testing.T) {
	c := New(4)
	target := 4

	var last Result
	for i := 0; i < 8; i++ {
		last = c.Evaluate(Deltas{TargetFrames: target, BufferedFrames: target})
		if last.Reason != "hold" {
			target = last.NewTarget
		}
	}
	assert.Equal(t, "lower-stable", last.Reason)
	assert.Less(t, last.NewTarget, 4)
}

func TestEvaluateCooldownBlocksImmediateSecondAdjust(t *testing.T) {
	c := New(4)
	target := 4

	r1 := c.Evaluate(Deltas{MissingDelta: 5, TargetFrames: target, BufferedFrames: 0})
	assert.NotEqual(t, "hold", r1.Reason)
	target = r1.NewTarget

	r2 := c.Evaluate(Deltas{MissingDelta: 5, TargetFrames: target, BufferedFrames: 0})
	assert.Equal(t, "hold", r2.Reason, "cooldown should suppress the very next window's adjustment")
}

func TestEvaluateZeroBufferStreakRaisesEvenWithoutLossCounters(t *testing.T) {
	c := New(4)
	target := 4

	c.Evaluate(Deltas{TargetFrames: target, BufferedFrames: 0})
	r := c.Evaluate(Deltas{TargetFrames: target, BufferedFrames: 0})
	assert.NotEqual(t, "hold", r.Reason)
}

// TestTargetAlwaysInRange is the spec's invariant: target_frames is
// always within [min_target, max_target] regardless of the sequence of
// windows fed to Evaluate.
func TestTargetAlwaysInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := rapid.IntRange(2, 30).Draw(t, "base")
		c := New(base)
		target := base

		windows := rapid.IntRange(1, 50).Draw(t, "windows")
		for i := 0; i < windows; i++ {
			d := Deltas{
				UnderrunDelta:   uint64(rapid.IntRange(0, 5).Draw(t, "underrun")),
				MissingDelta:    uint64(rapid.IntRange(0, 5).Draw(t, "missing")),
				OverflowDelta:   uint64(rapid.IntRange(0, 5).Draw(t, "overflow")),
				ParseErrDelta:   uint64(rapid.IntRange(0, 2).Draw(t, "parseErr")),
				PayloadErrDelta: uint64(rapid.IntRange(0, 2).Draw(t, "payloadErr")),
				BufferedFrames:  rapid.IntRange(0, 40).Draw(t, "buffered"),
				TargetFrames:    target,
			}
			r := c.Evaluate(d)
			assert.GreaterOrEqual(t, r.NewTarget, c.MinTargetFrames)
			assert.LessOrEqual(t, r.NewTarget, c.MaxTargetFrames)
			assert.GreaterOrEqual(t, r.ScoreEMA, 0.0)
			assert.LessOrEqual(t, r.ScoreEMA, 100.0)
			target = r.NewTarget
		}
	})
}
