// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"fmt"
	"math"
)

// Movement classifies a price change.
type Movement string

const (
	MovementNone        Movement = "none"
	MovementDecrease    Movement = "decrease"
	MovementIncrease    Movement = "increase"
	MovementSignificant Movement = "significant"
)

// Thresholds in percent.
const (
	decreaseThreshold    = -5.0
	increaseThreshold    = 10.0
	significantThreshold = 3.0
)

// Change compares two priced observations.
type Change struct {
	Previous float64  `json:"previous" yaml:"previous"`
	Current  float64  `json:"current" yaml:"current"`
	Percent  float64  `json:"percent" yaml:"percent"`
	Movement Movement `json:"movement" yaml:"movement"`
}

// Classify returns the change from prev to cur. A drop of 5% or more is a
// decrease, a rise of 10% or more an increase, any other move of 3% or
// more is significant. A zero previous price yields none.
func Classify(prev, cur float64) Change {
	c := Change{Previous: prev, Current: cur, Movement: MovementNone}
	if prev == 0 {
		return c
	}
	c.Percent = (cur - prev) / prev * 100
	switch {
	case c.Percent <= decreaseThreshold:
		c.Movement = MovementDecrease
	case c.Percent >= increaseThreshold:
		c.Movement = MovementIncrease
	case math.Abs(c.Percent) >= significantThreshold:
		c.Movement = MovementSignificant
	}
	return c
}

// String renders the change for humans, e.g. "$240.00 -> $215.00 (-10.4%, decrease)".
func (c Change) String() string {
	if c.Previous == 0 {
		return fmt.Sprintf("$%.2f (first price)", c.Current)
	}
	return fmt.Sprintf("$%.2f -> $%.2f (%+.1f%%, %s)", c.Previous, c.Current, c.Percent, c.Movement)
}
