package behavior

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Engine is the mood/activity state machine for one character session.
// It is not safe for concurrent use: one host loop drives Update and reads
// the query methods between calls.
type Engine struct {
	cfg      Config
	rng      Rand
	log      zerolog.Logger
	listener Listener

	mood            Mood
	activity        Activity
	trick           Trick
	performing      bool
	lastPerformance Trick
	attention       float64
	level           float64
	elapsed         float64

	timers     map[Timer]float64
	thresholds map[Timer]float64 // only used with ThresholdPerReset
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRand replaces the default time-seeded random source.
func WithRand(r Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithLogger sets the logger used for transition and fallback diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithListener registers a listener for engine events.
func WithListener(l Listener) Option {
	return func(e *Engine) { e.listener = l }
}

// New validates cfg and builds an engine in its initial state.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	e := &Engine{
		cfg:        cfg,
		rng:        newRand(),
		log:        zerolog.Nop(),
		mood:       cfg.InitialMood,
		activity:   cfg.InitialActivity,
		attention:  cfg.Attention.Initial,
		level:      minPerformanceLevel,
		timers:     make(map[Timer]float64, len(Timers)),
		thresholds: make(map[Timer]float64, len(Timers)),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.performing = e.activity == cfg.Roles.Performing
	for _, t := range Timers {
		e.timers[t] = 0
		e.rollThreshold(t)
	}
	return e, nil
}

// Config returns the validated configuration with defaults applied.
func (e *Engine) Config() Config {
	return e.cfg
}

// Update advances the engine by dt seconds. Negative dt is treated as zero,
// so a paused host can keep calling it.
func (e *Engine) Update(dt float64) {
	if dt < 0 {
		dt = 0
	}
	e.elapsed += dt

	for t := range e.timers {
		e.timers[t] += dt
	}

	e.attention = clamp(e.attention-dt*e.cfg.Attention.DecayPerSecond, 0, maxAttention)

	if e.timers[TimerMoodChange] > e.threshold(TimerMoodChange) {
		e.ChangeMood()
		e.resetTimer(TimerMoodChange)
	}

	if e.timers[TimerActivity] > e.threshold(TimerActivity)*e.tempo() {
		e.ChangeActivity()
		e.resetTimer(TimerActivity)
	}

	e.updatePerformance()

	if e.attention > e.cfg.Attention.EscalateAbove {
		e.level = clamp(e.level+e.cfg.Attention.EscalateStep, minPerformanceLevel, maxPerformanceLevel)
	}
}

// updatePerformance runs the independent sub-behavior timers. Each one only
// resets its own timer.
func (e *Engine) updatePerformance() {
	ranges := e.cfg.Timers

	if ranges.FourthWall.Enabled() && e.timers[TimerFourthWall] > e.threshold(TimerFourthWall) {
		e.TriggerFourthWallBreak()
		e.resetTimer(TimerFourthWall)
	}

	if ranges.Trick.Enabled() && e.timers[TimerTrick] > e.threshold(TimerTrick) {
		e.TriggerPerformanceTrick()
		e.resetTimer(TimerTrick)
	}

	if ranges.Engagement.Enabled() && e.timers[TimerEngagement] > e.threshold(TimerEngagement) {
		// Only a fading audience needs winning back.
		below := e.cfg.Attention.EngagementBelow
		if below <= 0 || e.attention < below {
			e.TriggerAudienceEngagement()
		}
		e.resetTimer(TimerEngagement)
	}

	if ranges.Boundary.Enabled() && e.timers[TimerBoundary] > e.threshold(TimerBoundary) {
		e.TriggerBoundaryInteraction()
		e.resetTimer(TimerBoundary)
	}
}

func (e *Engine) rangeFor(t Timer) Range {
	switch t {
	case TimerMoodChange:
		return e.cfg.Timers.MoodChange
	case TimerActivity:
		return e.cfg.Timers.ActivityChange
	case TimerSpeak:
		return e.cfg.Timers.Speech
	case TimerBlink:
		return e.cfg.Timers.Blink
	case TimerBoundary:
		return e.cfg.Timers.Boundary
	case TimerFourthWall:
		return e.cfg.Timers.FourthWall
	case TimerTrick:
		return e.cfg.Timers.Trick
	case TimerEngagement:
		return e.cfg.Timers.Engagement
	}
	panic(fmt.Sprintf("behavior: unknown timer %q", t))
}

// threshold returns the comparison threshold for a timer. Under the per-check
// policy every call draws a fresh value, which is what gives the character
// its non-periodic timing.
func (e *Engine) threshold(t Timer) float64 {
	if e.cfg.ThresholdPolicy == ThresholdPerReset {
		return e.thresholds[t]
	}
	return e.rangeFor(t).Roll(e.rng)
}

func (e *Engine) rollThreshold(t Timer) {
	if e.cfg.ThresholdPolicy == ThresholdPerReset {
		e.thresholds[t] = e.rangeFor(t).Roll(e.rng)
	}
}

func (e *Engine) resetTimer(t Timer) {
	e.timers[t] = 0
	e.rollThreshold(t)
}

func (e *Engine) tempo() float64 {
	if p, ok := e.cfg.MoodProfiles[e.mood]; ok && p.Tempo > 0 {
		return p.Tempo
	}
	return 1
}

// ShouldSpeak reports whether the speech timer has passed its threshold.
// The engine does not reset the timer; call ResetSpeechTimer once the line
// has actually been shown.
func (e *Engine) ShouldSpeak() bool {
	return e.timers[TimerSpeak] > e.threshold(TimerSpeak)*e.tempo()
}

// ShouldBlink reports whether the blink timer has passed its threshold.
func (e *Engine) ShouldBlink() bool {
	return e.timers[TimerBlink] > e.threshold(TimerBlink)
}

// ResetSpeechTimer restarts the wait before the next line.
func (e *Engine) ResetSpeechTimer() {
	e.resetTimer(TimerSpeak)
}

// ResetBlinkTimer restarts the wait before the next blink.
func (e *Engine) ResetBlinkTimer() {
	e.resetTimer(TimerBlink)
}

// RandomPhrase picks a line for the current mood and category. It always
// returns a non-empty string.
func (e *Engine) RandomPhrase(category Category) string {
	lines, step := e.cfg.Phrases.lookup(e.mood, e.cfg.DefaultMood, category)
	if step > 0 {
		e.log.Debug().
			Str("mood", string(e.mood)).
			Str("category", string(category)).
			Int("fallback", step).
			Msg("phrase fallback")
	}
	if len(lines) == 0 {
		return lastResortPhrase
	}
	return lines[e.rng.Intn(len(lines))]
}

// Cue returns the speech category and audio cue for the current activity.
func (e *Engine) Cue() Cue {
	return e.CueFor(e.activity)
}

// CueFor returns the cue configured for an activity, defaulting the category
// to FallbackCategory.
func (e *Engine) CueFor(a Activity) Cue {
	cue := e.cfg.Cues[a]
	if cue.Category == "" {
		cue.Category = FallbackCategory
	}
	return cue
}

// Mood returns the active mood.
func (e *Engine) Mood() Mood { return e.mood }

// Activity returns the active activity.
func (e *Engine) Activity() Activity { return e.activity }

// Attention returns audience attention in [0,100].
func (e *Engine) Attention() float64 { return e.attention }

// PerformanceLevel returns the escalation level in [1,5].
func (e *Engine) PerformanceLevel() float64 { return e.level }

// IsPerforming reports the performing flag.
func (e *Engine) IsPerforming() bool { return e.performing }

// Timer returns the elapsed seconds of a timer.
func (e *Engine) Timer(t Timer) float64 { return e.timers[t] }

// CurrentTrick returns the trick in progress, if any.
func (e *Engine) CurrentTrick() (Trick, bool) {
	return e.trick, e.trick != ""
}

// FloatIntensity returns the mood-dependent hover amplitude.
func (e *Engine) FloatIntensity() float64 {
	if p, ok := e.cfg.MoodProfiles[e.mood]; ok && p.AlternateFloat {
		return e.cfg.Movement.AlternateFloatIntensity
	}
	return e.cfg.Movement.FloatIntensity
}

// ArmSpeed returns the mood-dependent gesture speed.
func (e *Engine) ArmSpeed() float64 {
	if p, ok := e.cfg.MoodProfiles[e.mood]; ok && p.ArmSpeed > 0 {
		return p.ArmSpeed
	}
	return DefaultArmSpeed
}

// MovementSpeed returns the activity-dependent travel speed.
func (e *Engine) MovementSpeed() float64 {
	if s, ok := e.cfg.ActivitySpeeds[e.activity]; ok && s > 0 {
		return s
	}
	return e.cfg.Movement.Speed
}

// IsLookingAtViewer is true while the character addresses the audience.
func (e *Engine) IsLookingAtViewer() bool {
	r := e.cfg.Roles
	if e.activity == "" {
		return false
	}
	switch e.activity {
	case r.FourthWall, r.Engagement, r.Greeting:
		return true
	}
	return false
}

// IsAtBoundary is true during a viewport or phase interaction.
func (e *Engine) IsAtBoundary() bool {
	return e.cfg.Roles.Boundary != "" && e.activity == e.cfg.Roles.Boundary
}

// ShouldShowSpotlight is true while performing or doing a trick.
func (e *Engine) ShouldShowSpotlight() bool {
	return e.performing || (e.cfg.Roles.Trick != "" && e.activity == e.cfg.Roles.Trick)
}

// Snapshot copies the observable state.
func (e *Engine) Snapshot() State {
	timers := make(map[Timer]float64, len(e.timers))
	for k, v := range e.timers {
		timers[k] = v
	}
	return State{
		Mood:             e.mood,
		Activity:         e.activity,
		Trick:            e.trick,
		Attention:        e.attention,
		PerformanceLevel: e.level,
		IsPerforming:     e.performing,
		LastPerformance:  e.lastPerformance,
		Timers:           timers,
		Elapsed:          e.elapsed,
	}
}

func (e *Engine) emit(ev Event) {
	ev.Elapsed = e.elapsed
	if e.listener != nil {
		e.listener(ev)
	}
}
