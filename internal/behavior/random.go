package behavior

import (
	"math/rand"
	"time"
)

// Rand is the source of randomness the engine draws from.
// *rand.Rand satisfies it; tests substitute scripted sources.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

func newRand() Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// WeightedMood pairs a candidate mood with a probability weight.
type WeightedMood struct {
	Mood   Mood    `yaml:"mood" toml:"mood" json:"mood"`
	Weight float64 `yaml:"weight" toml:"weight" json:"weight"`
}

// WeightedActivity pairs a successor activity with a probability weight.
type WeightedActivity struct {
	Activity Activity `yaml:"activity" toml:"activity" json:"activity"`
	Weight   float64  `yaml:"weight" toml:"weight" json:"weight"`
}

// WeightedChoice draws an index with probability proportional to its weight.
// It draws r in [0, total) and subtracts weights in order until the remainder
// drops to zero or below; float rounding that leaves nothing selected falls
// back to the last index. Returns -1 for an empty slice.
func WeightedChoice(r Rand, weights []float64) int {
	if len(weights) == 0 {
		return -1
	}

	var total float64
	for _, w := range weights {
		total += w
	}

	remaining := r.Float64() * total
	for i, w := range weights {
		remaining -= w
		if remaining <= 0 {
			return i
		}
	}

	return len(weights) - 1
}

func chooseMood(r Rand, candidates []WeightedMood) Mood {
	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		weights[i] = c.Weight
	}
	return candidates[WeightedChoice(r, weights)].Mood
}

func chooseActivity(r Rand, candidates []WeightedActivity) Activity {
	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		weights[i] = c.Weight
	}
	return candidates[WeightedChoice(r, weights)].Activity
}

// Range is a closed interval of seconds a timer threshold is drawn from.
type Range struct {
	Min float64 `yaml:"min" toml:"min" json:"min"`
	Max float64 `yaml:"max" toml:"max" json:"max"`
}

// Enabled reports whether the range is configured. A zero range turns the
// corresponding optional behavior off.
func (r Range) Enabled() bool {
	return r.Max > 0
}

// Roll draws a threshold uniformly from [Min, Max].
func (r Range) Roll(src Rand) float64 {
	return r.Min + src.Float64()*(r.Max-r.Min)
}
