package vesting

import (
	"errors"
	"math/big"
)

type Curve string

const (
	CurveLinear      Curve = "linear"
	CurveExponential Curve = "exponential"
)

// Milestone caps the unlocked fraction at Percentage (0-100) once Timestamp
// has passed, independent of the curve.
type Milestone struct {
	Timestamp  int64  `json:"timestamp"`
	Percentage uint32 `json:"percentage"`
}

var (
	ErrOverflow     = errors.New("curve computation overflows int64")
	ErrUnknownCurve = errors.New("unknown curve type")
)

// Unlocked returns the amount released at `now` for a schedule of `total`
// units between start and end, with nothing released before the cliff.
//
// Paused time is excluded: pausedSeconds shifts the effective clock backwards,
// so a D-second pause delays every point of the schedule by exactly D. The
// at-or-after-end case returns total exactly rather than the curve value, so
// cumulative payouts can always sum to total with no rounding dust.
//
// Rounding is floor division throughout: the schedule never releases early.
func Unlocked(total, start, cliff, end, now, pausedSeconds int64, curve Curve, milestones []Milestone) (int64, error) {
	if total <= 0 {
		return 0, nil
	}
	if pausedSeconds < 0 {
		pausedSeconds = 0
	}
	effNow := now - pausedSeconds
	if effNow < cliff {
		return 0, nil
	}
	if effNow >= end {
		return total, nil
	}

	elapsed := effNow - start
	if elapsed < 0 {
		elapsed = 0
	}
	duration := end - start

	var unlocked int64
	var err error
	switch curve {
	case CurveLinear:
		unlocked, err = mulDiv(total, elapsed, duration)
	case CurveExponential:
		unlocked, err = quadratic(total, elapsed, duration)
	default:
		return 0, ErrUnknownCurve
	}
	if err != nil {
		return 0, err
	}

	if capped, ok := milestoneCap(total, now, milestones); ok && capped < unlocked {
		unlocked = capped
	}
	return unlocked, nil
}

// milestoneCap returns the ceiling implied by the highest milestone whose
// timestamp has passed. With milestones present and none passed, the cap is
// zero: milestones gate the curve until the first one unlocks.
func milestoneCap(total, now int64, milestones []Milestone) (int64, bool) {
	if len(milestones) == 0 {
		return 0, false
	}
	var pct uint32
	for _, m := range milestones {
		if m.Timestamp <= now && m.Percentage > pct {
			pct = m.Percentage
		}
	}
	if pct > 100 {
		pct = 100
	}
	capped, err := mulDiv(total, int64(pct), 100)
	if err != nil {
		return total, true
	}
	return capped, true
}

// mulDiv computes a*b/c with a widened intermediate and floor division.
// The result is rejected, never wrapped, if it does not fit an int64.
func mulDiv(a, b, c int64) (int64, error) {
	if c == 0 {
		return 0, ErrOverflow
	}
	n := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	n.Quo(n, big.NewInt(c))
	if !n.IsInt64() {
		return 0, ErrOverflow
	}
	return n.Int64(), nil
}

// quadratic computes total * elapsed^2 / duration^2 for the accelerating
// curve, with the same checked arithmetic as mulDiv.
func quadratic(total, elapsed, duration int64) (int64, error) {
	if duration == 0 {
		return 0, ErrOverflow
	}
	e := big.NewInt(elapsed)
	d := big.NewInt(duration)
	n := new(big.Int).Mul(e, e)
	n.Mul(n, big.NewInt(total))
	den := new(big.Int).Mul(d, d)
	n.Quo(n, den)
	if !n.IsInt64() {
		return 0, ErrOverflow
	}
	return n.Int64(), nil
}
