package behavior

import "testing"

// scriptedRand replays fixed values. Once a script runs out the last value
// repeats; Intn reduces its value modulo n.
type scriptedRand struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (s *scriptedRand) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[min(s.fi, len(s.floats)-1)]
	s.fi++
	return v
}

func (s *scriptedRand) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[min(s.ii, len(s.ints)-1)]
	s.ii++
	return v % n
}

// testConfig is a small imp with every feature switched on.
func testConfig() Config {
	return Config{
		Moods:      []Mood{"curious", "mischievous", "playful", "sleepy", "showoff"},
		Activities: []Activity{"observing", "prowling", "performing", "viewport_interaction", "greeting", "fourth_wall", "trick", "engaging"},
		Tricks:     []Trick{"backflip", "juggle", "vanish"},

		InitialMood:     "curious",
		InitialActivity: "observing",

		Timers: TimerRanges{
			MoodChange:     Range{Min: 10, Max: 20},
			ActivityChange: Range{Min: 5, Max: 10},
			Speech:         Range{Min: 4, Max: 8},
			Blink:          Range{Min: 2, Max: 5},
			Boundary:       Range{Min: 20, Max: 35},
			FourthWall:     Range{Min: 30, Max: 60},
			Trick:          Range{Min: 15, Max: 30},
			Engagement:     Range{Min: 15, Max: 15},
		},

		Movement: Movement{DriftRadius: 2, Speed: 0.5, FloatIntensity: 0.1, AlternateFloatIntensity: 0.3},
		MoodProfiles: map[Mood]MoodProfile{
			"mischievous": {Tempo: 0.5, ArmSpeed: 4},
			"playful":     {AlternateFloat: true, ArmSpeed: 5},
			"sleepy":      {Tempo: 2, ArmSpeed: 0.5},
		},
		ActivitySpeeds: map[Activity]float64{"prowling": 1.5},

		MoodTransitions: map[Mood][]WeightedMood{
			"curious": {{Mood: "mischievous", Weight: 0.4}, {Mood: "playful", Weight: 0.4}, {Mood: "sleepy", Weight: 0.2}},
		},
		Successors: map[Activity][]WeightedActivity{
			"observing":            {{Activity: "prowling", Weight: 0.6}, {Activity: "performing", Weight: 0.4}},
			"prowling":             {{Activity: "observing", Weight: 1}},
			"performing":           {{Activity: "observing", Weight: 1}},
			"viewport_interaction": {{Activity: "observing", Weight: 1}},
			"trick":                {{Activity: "performing", Weight: 1}},
		},

		Roles: Roles{
			Observing:  "observing",
			Greeting:   "greeting",
			FourthWall: "fourth_wall",
			Trick:      "trick",
			Engagement: "engaging",
			Boundary:   "viewport_interaction",
			Performing: "performing",
		},
		Showcase: Showcase{
			Mood:       "showoff",
			Chance:     0.7,
			Activities: []Activity{"trick", "fourth_wall", "engaging", "performing"},
		},

		Phrases: PhraseTable{
			"curious": {
				"observing": {"What's that?", "Hmm, interesting."},
				"greeting":  {"Oh, hello there!"},
			},
			"sleepy": {
				"observing": {"*yawn*"},
			},
			"showoff": {
				"observing":  {"Watch this!"},
				"performing": {"Ta-da!", "Applause, please."},
			},
		},
		Cues: CueTable{
			"greeting":             {Category: "greeting", Audio: "speech_excited"},
			"performing":           {Category: "performing", Audio: "performance"},
			"viewport_interaction": {Category: "interaction", Audio: "viewport_tap"},
		},
	}
}

// quietConfig keeps the core timers far away and the optional ones off so a
// test can switch on exactly what it looks at.
func quietConfig() Config {
	cfg := testConfig()
	cfg.Timers = TimerRanges{
		MoodChange:     Range{Min: 1000, Max: 1000},
		ActivityChange: Range{Min: 1000, Max: 1000},
		Speech:         Range{Min: 4, Max: 8},
		Blink:          Range{Min: 2, Max: 5},
	}
	cfg.Showcase = Showcase{}
	return cfg
}

func mustEngine(t *testing.T, cfg Config, opts ...Option) *Engine {
	t.Helper()
	e, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}
