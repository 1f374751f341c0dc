// Package adaptive implements the per-second feedback controller that
// retunes the jitter buffer's target occupancy from observed loss and
// underrun statistics (spec §4.3).
package adaptive

// Deltas carries the per-window counter deltas and current buffer state
// the controller needs to score a window and decide whether to adjust.
type Deltas struct {
	UnderrunDelta   uint64
	MissingDelta    uint64
	OverflowDelta   uint64
	ParseErrDelta   uint64
	PayloadErrDelta uint64
	BufferedFrames  int
	TargetFrames    int
}

// Controller holds the adaptive state for one session. Mutated only from
// StatsSampler's once-per-second window.
type Controller struct {
	BaseTargetFrames int
	MinTargetFrames  int
	MaxTargetFrames  int

	ScoreEMA float64

	badStreak       int
	goodStreak      int
	zeroBufferStreak int
	cooldownSec     int
}

// New seeds a Controller from the base target chosen at audio init
// (spec §4.3 AdaptiveControllerState).
func New(baseTargetFrames int) *Controller {
	min := baseTargetFrames - 1
	if min < 2 {
		min = 2
	}
	max := baseTargetFrames + 8
	if max > 32 {
		max = 32
	}
	if max < min+2 {
		max = min + 2
	}
	return &Controller{
		BaseTargetFrames: baseTargetFrames,
		MinTargetFrames:  min,
		MaxTargetFrames:  max,
		ScoreEMA:         100,
	}
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Score computes the window health score (spec §4.3 formula), in [0,100].
func Score(d Deltas) float64 {
	score := 100.0
	score -= 25 * float64(d.UnderrunDelta)
	score -= 18 * float64(d.MissingDelta)
	score -= 50 * float64(d.ParseErrDelta)
	score -= 40 * float64(d.PayloadErrDelta)
	score -= 2 * float64(d.OverflowDelta)

	halfTarget := d.TargetFrames / 2
	if halfTarget < 1 {
		halfTarget = 1
	}
	deficit := halfTarget - d.BufferedFrames
	if deficit < 0 {
		deficit = 0
	}
	score -= float64(deficit) * 3

	return clampFloat(score, 0, 100)
}

// Result is what Evaluate decides for one window.
type Result struct {
	NewTarget int    // the target to commit, equal to current target if Reason == "hold"
	Reason    string // "raise-severe", "raise", "lower-stable", or "hold"
	Score     float64
	ScoreEMA  float64
}

// Evaluate runs one window of the controller: updates the score EMA and
// streaks from d, then applies the adjustment policy if cooldown has
// elapsed. The caller is responsible for committing NewTarget to the
// jitter buffer via SetTargetFrames when Reason != "hold".
func (c *Controller) Evaluate(d Deltas) Result {
	score := Score(d)
	c.ScoreEMA = clampFloat(0.85*c.ScoreEMA+0.15*score, 0, 100)

	badNow := d.UnderrunDelta > 0 || d.MissingDelta > 0 || d.ParseErrDelta > 0 || d.PayloadErrDelta > 0 || c.ScoreEMA < 90
	halfTarget := d.TargetFrames / 2
	if halfTarget < 1 {
		halfTarget = 1
	}
	goodNow := !badNow && d.OverflowDelta == 0 && c.ScoreEMA > 97 && d.BufferedFrames >= halfTarget && d.BufferedFrames > 0

	if d.BufferedFrames == 0 {
		c.zeroBufferStreak++
	} else {
		c.zeroBufferStreak = 0
	}

	if badNow {
		c.badStreak++
	} else if c.badStreak > 0 {
		c.badStreak--
	}

	if goodNow {
		c.goodStreak++
	} else {
		c.goodStreak = 0
	}

	result := Result{NewTarget: d.TargetFrames, Reason: "hold", Score: score, ScoreEMA: c.ScoreEMA}

	if c.cooldownSec > 0 {
		c.cooldownSec--
		return result
	}

	severe := d.UnderrunDelta >= 2 || d.MissingDelta >= 2 || d.ParseErrDelta > 0 || d.PayloadErrDelta > 0
	raiseByBuffer := c.zeroBufferStreak >= 2

	switch {
	case (c.badStreak >= 1 || raiseByBuffer) && d.TargetFrames < c.MaxTargetFrames:
		step := 1
		if severe || c.zeroBufferStreak >= 3 {
			step = 2
		}
		newTarget := clampInt(d.TargetFrames+step, c.MinTargetFrames, c.MaxTargetFrames)
		reason := "raise"
		if severe || c.zeroBufferStreak >= 3 {
			reason = "raise-severe"
		}
		result.NewTarget = newTarget
		result.Reason = reason
		c.commit()
	case c.goodStreak >= 8 && d.TargetFrames > c.MinTargetFrames:
		step := 1
		if d.TargetFrames > c.BaseTargetFrames+3 {
			step = 2
		}
		newTarget := clampInt(d.TargetFrames-step, c.MinTargetFrames, c.MaxTargetFrames)
		result.NewTarget = newTarget
		result.Reason = "lower-stable"
		c.commit()
	}

	return result
}

// commit resets the streaks and starts the cooldown after an adjustment.
func (c *Controller) commit() {
	c.badStreak = 0
	c.goodStreak = 0
	c.zeroBufferStreak = 0
	c.cooldownSec = 2
}
