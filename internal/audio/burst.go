// Package audio synthesizes the mascot's procedural sound cues: bursts of
// staggered sine tones with a short linear envelope, mixed into the speaker.
package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
)

// DefaultAttack is the ramp-up time used when a burst does not set one.
const DefaultAttack = 0.02

// Burst describes one cue: Oscillators sine tones, tone i starting at
// i*Interval seconds with frequency BaseFreq + i*FreqStep plus up to
// RandomRange Hz of jitter. Each tone ramps to Gain over Attack seconds and
// back to silence at Duration.
type Burst struct {
	Oscillators int     `yaml:"oscillators" toml:"oscillators" json:"oscillators"`
	BaseFreq    float64 `yaml:"base_freq" toml:"base_freq" json:"base_freq"`
	FreqStep    float64 `yaml:"freq_step" toml:"freq_step" json:"freq_step"`
	RandomRange float64 `yaml:"random_range" toml:"random_range" json:"random_range"`
	Gain        float64 `yaml:"gain" toml:"gain" json:"gain"`
	Duration    float64 `yaml:"duration" toml:"duration" json:"duration"`
	Interval    float64 `yaml:"interval" toml:"interval" json:"interval"`
	Attack      float64 `yaml:"attack" toml:"attack" json:"attack,omitempty"`
}

// Length is the wall time from the first tone's start to the last tone's end.
func (b Burst) Length() time.Duration {
	if b.Oscillators <= 0 {
		return 0
	}
	secs := float64(b.Oscillators-1)*b.Interval + b.Duration
	return time.Duration(secs * float64(time.Second))
}

// Frequencies returns the tone frequencies for one rendition of the burst.
// jitter supplies values in [0,1) for the random component.
func (b Burst) Frequencies(jitter func() float64) []float64 {
	freqs := make([]float64, 0, max(b.Oscillators, 0))
	for i := 0; i < b.Oscillators; i++ {
		f := b.BaseFreq + float64(i)*b.FreqStep
		if b.RandomRange > 0 && jitter != nil {
			f += jitter() * b.RandomRange
		}
		freqs = append(freqs, f)
	}
	return freqs
}

// NewBurst renders b as a finite stereo streamer.
func NewBurst(b Burst, rate beep.SampleRate, jitter func() float64) beep.Streamer {
	attack := b.Attack
	if attack <= 0 {
		attack = DefaultAttack
	}

	freqs := b.Frequencies(jitter)
	if len(freqs) == 0 {
		return beep.Silence(0)
	}

	voices := make([]beep.Streamer, 0, len(freqs))
	for i, f := range freqs {
		var v beep.Streamer = newTone(f, b.Gain, b.Duration, attack, rate)
		delay := rate.N(seconds(float64(i) * b.Interval))
		if delay > 0 {
			v = beep.Seq(beep.Silence(delay), v)
		}
		voices = append(voices, v)
	}
	return beep.Mix(voices...)
}

// tone is a sine oscillator with a built-in attack/release envelope.
type tone struct {
	freq     float64
	phase    float64
	gain     float64
	rate     beep.SampleRate
	position int
	attack   int
	total    int
}

func newTone(freq, gain, duration, attack float64, rate beep.SampleRate) *tone {
	total := rate.N(seconds(duration))
	att := rate.N(seconds(attack))
	if att > total {
		att = total
	}
	return &tone{freq: freq, gain: gain, rate: rate, attack: att, total: total}
}

func (t *tone) Stream(samples [][2]float64) (n int, ok bool) {
	if t.position >= t.total {
		return 0, false
	}
	for i := range samples {
		if t.position >= t.total {
			return i, true
		}

		val := math.Sin(2*math.Pi*t.phase) * t.gain * t.envelope()
		samples[i][0] = val
		samples[i][1] = val

		t.phase += t.freq / float64(t.rate)
		t.phase -= math.Floor(t.phase)
		t.position++
	}
	return len(samples), true
}

func (t *tone) Err() error { return nil }

// envelope ramps 0 -> 1 over the attack and 1 -> 0 over the rest.
func (t *tone) envelope() float64 {
	if t.position < t.attack {
		return float64(t.position) / float64(t.attack)
	}
	release := t.total - t.attack
	if release <= 0 {
		return 1
	}
	return float64(t.total-t.position) / float64(release)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
