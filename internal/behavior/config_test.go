package behavior

import (
	"errors"
	"testing"
)

func TestValidate_AcceptsTestConfig(t *testing.T) {
	if err := testConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no moods", func(c *Config) { c.Moods = nil }},
		{"no activities", func(c *Config) { c.Activities = nil }},
		{"empty mood name", func(c *Config) { c.Moods = append(c.Moods, "") }},
		{"unknown initial mood", func(c *Config) { c.InitialMood = "furious" }},
		{"unknown default mood", func(c *Config) { c.DefaultMood = "furious" }},
		{"unknown initial activity", func(c *Config) { c.InitialActivity = "dancing" }},
		{"missing speech range", func(c *Config) { c.Timers.Speech = Range{} }},
		{"min above max", func(c *Config) { c.Timers.MoodChange = Range{Min: 30, Max: 10} }},
		{"negative bound", func(c *Config) { c.Timers.Boundary = Range{Min: -1, Max: 10} }},
		{"unknown policy", func(c *Config) { c.ThresholdPolicy = "sometimes" }},
		{"no observing role", func(c *Config) { c.Roles.Observing = "" }},
		{"role outside activities", func(c *Config) { c.Roles.Greeting = "waving" }},
		{"boundary timer without role", func(c *Config) { c.Roles.Boundary = "" }},
		{"trick role without tricks", func(c *Config) { c.Tricks = nil }},
		{"trick timer without role", func(c *Config) {
			c.Roles.Trick = ""
			c.Showcase.Activities = []Activity{"performing"}
		}},
		{"transition to unknown mood", func(c *Config) {
			c.MoodTransitions["curious"] = []WeightedMood{{Mood: "furious", Weight: 1}}
		}},
		{"transition from unknown mood", func(c *Config) {
			c.MoodTransitions["furious"] = []WeightedMood{{Mood: "curious", Weight: 1}}
		}},
		{"negative weight", func(c *Config) {
			c.MoodTransitions["curious"] = []WeightedMood{{Mood: "sleepy", Weight: -1}, {Mood: "playful", Weight: 2}}
		}},
		{"zero weights", func(c *Config) {
			c.Successors["observing"] = []WeightedActivity{{Activity: "prowling", Weight: 0}}
		}},
		{"empty successors", func(c *Config) { c.Successors["observing"] = nil }},
		{"successor to unknown activity", func(c *Config) {
			c.Successors["observing"] = []WeightedActivity{{Activity: "dancing", Weight: 1}}
		}},
		{"showcase chance above one", func(c *Config) { c.Showcase.Chance = 1.5 }},
		{"showcase without activities", func(c *Config) { c.Showcase.Activities = nil }},
		{"showcase unknown mood", func(c *Config) { c.Showcase.Mood = "furious" }},
		{"profile for unknown mood", func(c *Config) { c.MoodProfiles["furious"] = MoodProfile{Tempo: 1} }},
		{"cue for unknown activity", func(c *Config) { c.Cues["dancing"] = Cue{Category: "dancing"} }},
		{"initial attention above 100", func(c *Config) {
			c.Attention = DefaultAttention()
			c.Attention.Initial = 120
		}},
		{"default mood without phrases", func(c *Config) { delete(c.Phrases, "curious") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestWithDefaults(t *testing.T) {
	cfg := testConfig()
	cfg.InitialMood = ""
	cfg.InitialActivity = ""

	got := cfg.withDefaults()

	if got.InitialMood != "curious" {
		t.Errorf("expected first mood, got %s", got.InitialMood)
	}
	if got.InitialActivity != "observing" {
		t.Errorf("expected observing role, got %s", got.InitialActivity)
	}
	if got.DefaultMood != "curious" {
		t.Errorf("expected default mood to follow initial mood, got %s", got.DefaultMood)
	}
	if got.ThresholdPolicy != ThresholdPerCheck {
		t.Errorf("expected per_check, got %s", got.ThresholdPolicy)
	}
	if got.Attention != DefaultAttention() {
		t.Errorf("expected default attention, got %+v", got.Attention)
	}
}
