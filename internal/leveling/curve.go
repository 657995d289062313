// Package leveling maps cumulative XP onto a power-law level curve.
package leveling

import (
	"errors"
	"fmt"
	"math"

	"github.com/verte-zerg/xpradar/internal/model"
)

// ErrDegenerateCurve reports curve parameters under which a level costs no XP.
var ErrDegenerateCurve = errors.New("degenerate leveling curve")

// Curve prices level L at floor(Multiplier * L^Exponent) XP.
type Curve struct {
	Multiplier float64
	Exponent   float64
}

// New returns a validated curve.
func New(multiplier, exponent float64) (Curve, error) {
	c := Curve{Multiplier: multiplier, Exponent: exponent}
	if err := c.Validate(); err != nil {
		return Curve{}, err
	}
	return c, nil
}

// Validate rejects parameters that would make levels free.
func (c Curve) Validate() error {
	if math.IsNaN(c.Multiplier) || math.IsInf(c.Multiplier, 0) || c.Multiplier <= 0 {
		return fmt.Errorf("%w: multiplier must be a positive number, got %v", ErrDegenerateCurve, c.Multiplier)
	}
	if math.IsNaN(c.Exponent) || math.IsInf(c.Exponent, 0) || c.Exponent <= 0 {
		return fmt.Errorf("%w: exponent must be a positive number, got %v", ErrDegenerateCurve, c.Exponent)
	}
	if need := c.NeededForLevel(1); need < 1 {
		return fmt.Errorf("%w: level 1 costs %d xp", ErrDegenerateCurve, need)
	}
	return nil
}

// NeededForLevel returns the XP cost of completing level.
func (c Curve) NeededForLevel(level int) int {
	v := math.Floor(c.Multiplier * math.Pow(float64(level), c.Exponent))
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxInt {
		return math.MaxInt
	}
	return int(v)
}

// FromTotalXP consumes whole level costs from total, starting at level 1.
func (c Curve) FromTotalXP(total int) model.LevelInfo {
	if total <= 0 {
		return model.LevelInfo{Level: 1, XPCurrent: 0, XPNeeded: c.cost(1), Progress: 0}
	}
	level := 1
	remaining := total
	need := c.cost(level)
	for need <= remaining {
		remaining -= need
		level++
		need = c.cost(level)
	}
	return model.LevelInfo{
		Level:     level,
		XPCurrent: remaining,
		XPNeeded:  need,
		Progress:  Progress(remaining, need),
	}
}

// cost never returns less than 1 so level consumption always terminates.
func (c Curve) cost(level int) int {
	if need := c.NeededForLevel(level); need > 0 {
		return need
	}
	return 1
}

// Progress returns round(100 * current / needed). It is not clamped.
func Progress(current, needed int) int {
	if needed <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(current) / float64(needed)))
}
