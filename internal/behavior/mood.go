// Package behavior implements the mood and activity state machine that drives
// an animated mascot: timers, weighted transitions, audience attention and
// phrase selection.
package behavior

// Mood is a coarse emotional state. The set of valid moods comes from Config.
type Mood string

// Activity is the current behavior mode (observing, performing, ...).
type Activity string

// Trick is a named performance animation chosen while performing.
type Trick string

// Category keys a list of phrases inside a mood.
type Category string

// FallbackCategory is used when a mood has no phrases for a category.
const FallbackCategory Category = "observing"

// Timer names one of the engine's elapsed-time counters.
type Timer string

const (
	TimerActivity   Timer = "activity"
	TimerSpeak      Timer = "speak"
	TimerBlink      Timer = "blink"
	TimerMoodChange Timer = "moodChange"
	TimerBoundary   Timer = "boundary" // viewport or phase interaction
	TimerTrick      Timer = "performanceTrick"
	TimerFourthWall Timer = "fourthWallBreak"
	TimerEngagement Timer = "audienceEngagement"
)

// Timers lists every timer the engine advances on Update.
var Timers = []Timer{
	TimerActivity,
	TimerSpeak,
	TimerBlink,
	TimerMoodChange,
	TimerBoundary,
	TimerTrick,
	TimerFourthWall,
	TimerEngagement,
}

// State is a point-in-time copy of the engine, safe to hand to renderers
// and to serialize.
type State struct {
	Mood             Mood              `json:"mood"`
	Activity         Activity          `json:"activity"`
	Trick            Trick             `json:"trick,omitempty"`
	Attention        float64           `json:"attention"`
	PerformanceLevel float64           `json:"performance_level"`
	IsPerforming     bool              `json:"is_performing"`
	LastPerformance  Trick             `json:"last_performance,omitempty"`
	Timers           map[Timer]float64 `json:"timers"`
	Elapsed          float64           `json:"elapsed"`
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
