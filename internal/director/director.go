// Package director runs the per-frame host loop around a behavior engine:
// it advances the engine, turns its state into speech, blinks, sound cues
// and spotlight changes, and hands a pose to the renderer every frame.
package director

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alex/mascot/internal/behavior"
	"github.com/alex/mascot/internal/skin"
)

// ErrUnknownTrigger is returned by Trigger for names it does not know.
var ErrUnknownTrigger = errors.New("unknown trigger")

// Trigger names accepted by Director.Trigger.
const (
	TriggerFourthWall = "fourth_wall"
	TriggerTrick      = "trick"
	TriggerEngagement = "engagement"
	TriggerBoundary   = "boundary"
	TriggerMood       = "mood"
	TriggerActivity   = "activity"
)

// Triggers lists every trigger name.
var Triggers = []string{
	TriggerFourthWall,
	TriggerTrick,
	TriggerEngagement,
	TriggerBoundary,
	TriggerMood,
	TriggerActivity,
}

// Pose is what a renderer needs to draw one frame.
type Pose struct {
	State           behavior.State `json:"state"`
	Float           float64        `json:"float"`
	ArmSpeed        float64        `json:"arm_speed"`
	Speed           float64        `json:"speed"`
	LookingAtViewer bool           `json:"looking_at_viewer"`
	AtBoundary      bool           `json:"at_boundary"`
	Spotlight       bool           `json:"spotlight"`
	Clock           float64        `json:"clock"` // animation seconds, frozen while paused
	Paused          bool           `json:"paused"`
}

// Renderer draws the character.
type Renderer interface {
	Draw(p Pose)
	Blink()
	SetSpotlight(on bool)
}

// AudioPlayer plays a named sound cue.
type AudioPlayer interface {
	Play(cue string)
}

// SpeechPresenter shows a line of speech for a while.
type SpeechPresenter interface {
	Say(text string, d time.Duration)
}

// PhraseSource can supply a line instead of the skin's phrase table. ok is
// false when it has nothing ready.
type PhraseSource interface {
	Phrase(mood behavior.Mood, category behavior.Category) (text string, ok bool)
}

// Settings are the presentation parameters that come from the skin.
type Settings struct {
	SpeechDuration  time.Duration
	EntryCue        string
	BoundaryCue     string
	BoundaryChatter float64
}

// FromSkin extracts the director settings from a skin.
func FromSkin(s *skin.Skin) Settings {
	return Settings{
		SpeechDuration:  time.Duration(s.Speech.DisplaySeconds * float64(time.Second)),
		EntryCue:        s.EntryCue,
		BoundaryCue:     s.BoundaryCue,
		BoundaryChatter: s.BoundaryChatter,
	}
}

// Option configures a Director.
type Option func(*Director)

// WithRenderer sets where poses are drawn.
func WithRenderer(r Renderer) Option { return func(d *Director) { d.renderer = r } }

// WithAudio sets the player for cue sounds.
func WithAudio(a AudioPlayer) Option { return func(d *Director) { d.audio = a } }

// WithSpeech sets where spoken lines are shown.
func WithSpeech(s SpeechPresenter) Option { return func(d *Director) { d.speech = s } }

// WithPhrases sets a source consulted before the skin's phrase table.
func WithPhrases(p PhraseSource) Option { return func(d *Director) { d.phrases = p } }

// WithRand sets the randomness used for blinks and speech.
func WithRand(r behavior.Rand) Option { return func(d *Director) { d.rng = r } }

// WithLogger sets the director's logger.
func WithLogger(l zerolog.Logger) Option { return func(d *Director) { d.log = l } }

// WithNow overrides the wall clock.
func WithNow(now func() time.Time) Option { return func(d *Director) { d.now = now } }

// Director owns one engine and its collaborators. All methods are safe for
// concurrent use; engine access is serialized by the director.
type Director struct {
	mu sync.Mutex

	engine   *behavior.Engine
	settings Settings

	renderer Renderer
	audio    AudioPlayer
	speech   SpeechPresenter
	phrases  PhraseSource
	rng      behavior.Rand
	log      zerolog.Logger
	now      func() time.Time

	clock     float64
	spotlight bool
	paused    bool
	started   bool
}

// New wraps an engine. Missing collaborators are replaced by no-ops.
func New(engine *behavior.Engine, settings Settings, opts ...Option) *Director {
	d := &Director{
		engine:   engine,
		settings: settings,
		renderer: nopRenderer{},
		audio:    nopAudio{},
		speech:   nopSpeech{},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start plays the opening: a greeting line, the entry cue and the initial
// spotlight state. Calling it again does nothing.
func (d *Director) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return
	}
	d.started = true

	d.say(d.greetingCategory())
	d.play(d.settings.EntryCue)
	d.spotlight = d.engine.ShouldShowSpotlight()
	d.renderer.SetSpotlight(d.spotlight)
	d.log.Info().
		Str("mood", string(d.engine.Mood())).
		Str("activity", string(d.engine.Activity())).
		Msg("show started")
}

// Tick advances the show by dt seconds and draws a frame. While paused the
// engine is left untouched and the frame is redrawn as is.
func (d *Director) Tick(dt float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.paused {
		d.renderer.Draw(d.pose())
		return
	}

	d.engine.Update(dt)
	if dt > 0 {
		d.clock += dt
	}

	if d.engine.ShouldSpeak() {
		cue := d.engine.Cue()
		d.say(cue.Category)
		d.play(cue.Audio)
		d.engine.ResetSpeechTimer()
	}

	if d.engine.ShouldBlink() {
		d.renderer.Blink()
		d.engine.ResetBlinkTimer()
	}

	if d.engine.IsAtBoundary() && d.rng.Float64() < d.settings.BoundaryChatter {
		d.say(behavior.Category(d.engine.Activity()))
		d.play(d.settings.BoundaryCue)
	}

	if on := d.engine.ShouldShowSpotlight(); on != d.spotlight {
		d.spotlight = on
		d.renderer.SetSpotlight(on)
	}

	d.renderer.Draw(d.pose())
}

// Run ticks at fps frames per second until ctx is done. Each tick is fed the
// wall time since the previous one.
func (d *Director) Run(ctx context.Context, fps int) error {
	if fps <= 0 {
		return fmt.Errorf("fps must be positive, got %d", fps)
	}

	d.Start()

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	last := d.now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := d.now()
			d.Tick(now.Sub(last).Seconds())
			last = now
		}
	}
}

// Pause freezes the show. Triggers still apply.
func (d *Director) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = true
}

// Resume continues after Pause.
func (d *Director) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = false
}

// TogglePause flips the paused state and reports the new one.
func (d *Director) TogglePause() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = !d.paused
	return d.paused
}

// Paused reports whether the show is paused.
func (d *Director) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

// Trigger fires a named behavior immediately.
func (d *Director) Trigger(name string) (behavior.State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch name {
	case TriggerFourthWall:
		d.engine.TriggerFourthWallBreak()
	case TriggerTrick:
		d.engine.TriggerPerformanceTrick()
	case TriggerEngagement:
		d.engine.TriggerAudienceEngagement()
	case TriggerBoundary:
		d.engine.TriggerBoundaryInteraction()
	case TriggerMood:
		d.engine.ChangeMood()
	case TriggerActivity:
		d.engine.ChangeActivity()
	default:
		return behavior.State{}, fmt.Errorf("%w: %q", ErrUnknownTrigger, name)
	}

	d.log.Debug().Str("trigger", name).Str("activity", string(d.engine.Activity())).Msg("manual trigger")
	return d.engine.Snapshot(), nil
}

// Snapshot returns the engine state.
func (d *Director) Snapshot() behavior.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Snapshot()
}

// Pose returns the pose of the current frame.
func (d *Director) Pose() Pose {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pose()
}

func (d *Director) pose() Pose {
	return Pose{
		State:           d.engine.Snapshot(),
		Float:           d.engine.FloatIntensity(),
		ArmSpeed:        d.engine.ArmSpeed(),
		Speed:           d.engine.MovementSpeed(),
		LookingAtViewer: d.engine.IsLookingAtViewer(),
		AtBoundary:      d.engine.IsAtBoundary(),
		Spotlight:       d.spotlight,
		Clock:           d.clock,
		Paused:          d.paused,
	}
}

func (d *Director) greetingCategory() behavior.Category {
	if g := d.engine.Config().Roles.Greeting; g != "" {
		return d.engine.CueFor(g).Category
	}
	return "greeting"
}

func (d *Director) say(category behavior.Category) {
	text := ""
	if d.phrases != nil {
		if line, ok := d.phrases.Phrase(d.engine.Mood(), category); ok {
			text = line
		}
	}
	if text == "" {
		text = d.engine.RandomPhrase(category)
	}
	d.speech.Say(text, d.settings.SpeechDuration)
}

func (d *Director) play(cue string) {
	if cue != "" {
		d.audio.Play(cue)
	}
}

type nopRenderer struct{}

func (nopRenderer) Draw(Pose)         {}
func (nopRenderer) Blink()            {}
func (nopRenderer) SetSpotlight(bool) {}

type nopAudio struct{}

func (nopAudio) Play(string) {}

type nopSpeech struct{}

func (nopSpeech) Say(string, time.Duration) {}
