// Package pacing provides the randomized delay generators that keep
// automated actions off a mechanically uniform cadence.
package pacing

import (
	"math/rand/v2"
	"time"
)

// DelayFunc yields the pause before the next automated action.
type DelayFunc func() time.Duration

// Uniform returns delays drawn uniformly from [min, max).
func Uniform(min, max time.Duration) DelayFunc {
	if max <= min {
		return func() time.Duration { return min }
	}
	return func() time.Duration {
		return min + rand.N(max-min)
	}
}

// None yields zero delays. Used by tests that need determinism.
func None() DelayFunc {
	return func() time.Duration { return 0 }
}
