package audio

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
	"github.com/rs/zerolog"
)

// DefaultSampleRate matches common output devices.
const DefaultSampleRate = beep.SampleRate(44100)

// Options configures a Player.
type Options struct {
	Enabled    bool
	Volume     float64 // linear, 0..1
	SampleRate int
	Buffer     time.Duration
}

// Player plays named bursts through the system speaker. A player whose
// speaker failed to open stays usable and silent.
type Player struct {
	mu     sync.Mutex
	cues   map[string]Burst
	opts   Options
	rate   beep.SampleRate
	mixer  *beep.Mixer
	rng    *rand.Rand
	log    zerolog.Logger
	live   bool
	played int
}

// NewPlayer creates a player for the given cue table. Call Init to open the
// speaker.
func NewPlayer(cues map[string]Burst, opts Options, log zerolog.Logger) *Player {
	rate := DefaultSampleRate
	if opts.SampleRate > 0 {
		rate = beep.SampleRate(opts.SampleRate)
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 100 * time.Millisecond
	}
	return &Player{
		cues:  cues,
		opts:  opts,
		rate:  rate,
		mixer: &beep.Mixer{},
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		log:   log,
	}
}

// Init opens the speaker and starts the mixer. Disabled players skip it.
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.opts.Enabled || p.live {
		return nil
	}

	if err := speaker.Init(p.rate, p.rate.N(p.opts.Buffer)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(volume(p.mixer, p.opts.Volume))
	p.live = true
	p.log.Info().Int("sample_rate", int(p.rate)).Int("cues", len(p.cues)).Msg("audio ready")
	return nil
}

// Play starts the named cue. Unknown cues are ignored.
func (p *Player) Play(cue string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.cues[cue]
	if !ok {
		p.log.Debug().Str("cue", cue).Msg("unknown audio cue")
		return
	}
	if !p.live {
		return
	}

	s := NewBurst(b, p.rate, p.rng.Float64)
	speaker.Lock()
	p.mixer.Add(s)
	speaker.Unlock()
	p.played++
}

// Played returns how many cues have been sent to the mixer.
func (p *Player) Played() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played
}

// Close silences anything still playing.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.live {
		return
	}
	speaker.Lock()
	p.mixer.Clear()
	speaker.Unlock()
	p.live = false
}

// volume wraps s in a linear gain; zero or less is silent.
func volume(s beep.Streamer, linear float64) beep.Streamer {
	if linear <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(linear)}
}
