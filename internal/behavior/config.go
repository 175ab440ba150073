package behavior

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every error Config.Validate returns.
var ErrInvalidConfig = errors.New("invalid behavior config")

// DefaultArmSpeed is used for moods without an explicit arm speed.
const DefaultArmSpeed = 2.0

// ThresholdPolicy controls when timer thresholds are drawn.
type ThresholdPolicy string

const (
	// ThresholdPerCheck re-rolls the threshold every time it is compared.
	ThresholdPerCheck ThresholdPolicy = "per_check"
	// ThresholdPerReset rolls once at construction and whenever the timer resets.
	ThresholdPerReset ThresholdPolicy = "per_reset"
)

// TimerRanges holds the threshold range for each timer. The four optional
// performance ranges are disabled when left at zero.
type TimerRanges struct {
	MoodChange     Range `yaml:"mood_change" toml:"mood_change" json:"mood_change"`
	ActivityChange Range `yaml:"activity_change" toml:"activity_change" json:"activity_change"`
	Speech         Range `yaml:"speech" toml:"speech" json:"speech"`
	Blink          Range `yaml:"blink" toml:"blink" json:"blink"`

	Boundary   Range `yaml:"boundary" toml:"boundary" json:"boundary"`
	FourthWall Range `yaml:"fourth_wall" toml:"fourth_wall" json:"fourth_wall"`
	Trick      Range `yaml:"trick" toml:"trick" json:"trick"`
	Engagement Range `yaml:"engagement" toml:"engagement" json:"engagement"`
}

// Movement is passed through to the renderer.
type Movement struct {
	DriftRadius             float64 `yaml:"drift_radius" toml:"drift_radius" json:"drift_radius"`
	Speed                   float64 `yaml:"speed" toml:"speed" json:"speed"`
	FloatIntensity          float64 `yaml:"float_intensity" toml:"float_intensity" json:"float_intensity"`
	AlternateFloatIntensity float64 `yaml:"alternate_float_intensity" toml:"alternate_float_intensity" json:"alternate_float_intensity"`
}

// MoodProfile holds the mood-dependent constants.
type MoodProfile struct {
	// Tempo scales activity and speech thresholds; 0.5 churns twice as fast.
	Tempo float64 `yaml:"tempo" toml:"tempo" json:"tempo"`
	// AlternateFloat selects Movement.AlternateFloatIntensity.
	AlternateFloat bool    `yaml:"alternate_float" toml:"alternate_float" json:"alternate_float"`
	ArmSpeed       float64 `yaml:"arm_speed" toml:"arm_speed" json:"arm_speed"`
}

// Roles maps the engine's semantic activity slots onto a skin's vocabulary.
// Empty roles are unused by that skin.
type Roles struct {
	Observing  Activity `yaml:"observing" toml:"observing" json:"observing"`
	Greeting   Activity `yaml:"greeting" toml:"greeting" json:"greeting"`
	FourthWall Activity `yaml:"fourth_wall" toml:"fourth_wall" json:"fourth_wall"`
	Trick      Activity `yaml:"trick" toml:"trick" json:"trick"`
	Engagement Activity `yaml:"engagement" toml:"engagement" json:"engagement"`
	Boundary   Activity `yaml:"boundary" toml:"boundary" json:"boundary"`
	Performing Activity `yaml:"performing" toml:"performing" json:"performing"`
}

// Showcase is the showoff rule: while in Mood, activity changes route into
// one of Activities with probability Chance, and entering Mood from another
// mood restarts the act with a greeting and full attention.
type Showcase struct {
	Mood       Mood       `yaml:"mood" toml:"mood" json:"mood"`
	Chance     float64    `yaml:"chance" toml:"chance" json:"chance"`
	Activities []Activity `yaml:"activities" toml:"activities" json:"activities"`
}

// Attention configures the audience attention resource and escalation.
type Attention struct {
	Initial         float64 `yaml:"initial" toml:"initial" json:"initial"`
	DecayPerSecond  float64 `yaml:"decay_per_second" toml:"decay_per_second" json:"decay_per_second"`
	FourthWallBoost float64 `yaml:"fourth_wall_boost" toml:"fourth_wall_boost" json:"fourth_wall_boost"`
	TrickBoost      float64 `yaml:"trick_boost" toml:"trick_boost" json:"trick_boost"`
	EngagementBoost float64 `yaml:"engagement_boost" toml:"engagement_boost" json:"engagement_boost"`
	// EngagementBelow gates the engagement trigger; 0 always fires.
	EngagementBelow float64 `yaml:"engagement_below" toml:"engagement_below" json:"engagement_below"`
	EscalateAbove   float64 `yaml:"escalate_above" toml:"escalate_above" json:"escalate_above"`
	EscalateStep    float64 `yaml:"escalate_step" toml:"escalate_step" json:"escalate_step"`
}

// DefaultAttention returns the attention parameters of the original act.
func DefaultAttention() Attention {
	return Attention{
		Initial:         100,
		DecayPerSecond:  2,
		FourthWallBoost: 25,
		TrickBoost:      15,
		EngagementBoost: 20,
		EngagementBelow: 30,
		EscalateAbove:   80,
		EscalateStep:    0.01,
	}
}

const (
	maxAttention        = 100.0
	minPerformanceLevel = 1.0
	maxPerformanceLevel = 5.0
)

// Cue tells the host what to say and play for an activity.
type Cue struct {
	Category Category `yaml:"category" toml:"category" json:"category"`
	Audio    string   `yaml:"audio" toml:"audio" json:"audio,omitempty"`
}

// CueTable maps activities to their speech category and audio cue.
type CueTable map[Activity]Cue

// Config is everything that distinguishes one character from another.
type Config struct {
	Moods      []Mood     `yaml:"moods" toml:"moods" json:"moods"`
	Activities []Activity `yaml:"activities" toml:"activities" json:"activities"`
	Tricks     []Trick    `yaml:"tricks" toml:"tricks" json:"tricks"`

	InitialMood     Mood     `yaml:"initial_mood" toml:"initial_mood" json:"initial_mood"`
	InitialActivity Activity `yaml:"initial_activity" toml:"initial_activity" json:"initial_activity"`
	// DefaultMood supplies the last phrase fallback.
	DefaultMood Mood `yaml:"default_mood" toml:"default_mood" json:"default_mood"`

	Timers          TimerRanges     `yaml:"timers" toml:"timers" json:"timers"`
	ThresholdPolicy ThresholdPolicy `yaml:"threshold_policy" toml:"threshold_policy" json:"threshold_policy"`

	Movement       Movement             `yaml:"movement" toml:"movement" json:"movement"`
	MoodProfiles   map[Mood]MoodProfile `yaml:"mood_profiles" toml:"mood_profiles" json:"mood_profiles"`
	ActivitySpeeds map[Activity]float64 `yaml:"activity_speeds" toml:"activity_speeds" json:"activity_speeds"`

	MoodTransitions    map[Mood][]WeightedMood         `yaml:"mood_transitions" toml:"mood_transitions" json:"mood_transitions"`
	DefaultTransitions []WeightedMood                  `yaml:"default_transitions" toml:"default_transitions" json:"default_transitions"`
	Successors         map[Activity][]WeightedActivity `yaml:"successors" toml:"successors" json:"successors"`

	Roles     Roles     `yaml:"roles" toml:"roles" json:"roles"`
	Showcase  Showcase  `yaml:"showcase" toml:"showcase" json:"showcase"`
	Attention Attention `yaml:"attention" toml:"attention" json:"attention"`

	Phrases PhraseTable `yaml:"phrases" toml:"phrases" json:"phrases"`
	Cues    CueTable    `yaml:"cues" toml:"cues" json:"cues"`
}

// withDefaults fills the fields that have an obvious default.
func (c Config) withDefaults() Config {
	if c.Attention == (Attention{}) {
		c.Attention = DefaultAttention()
	}
	if c.ThresholdPolicy == "" {
		c.ThresholdPolicy = ThresholdPerCheck
	}
	if c.InitialMood == "" && len(c.Moods) > 0 {
		c.InitialMood = c.Moods[0]
	}
	if c.InitialActivity == "" {
		c.InitialActivity = c.Roles.Observing
	}
	if c.DefaultMood == "" {
		c.DefaultMood = c.InitialMood
	}
	return c
}

// Validate rejects configurations that would produce undefined thresholds or
// impossible transitions at runtime.
func (c Config) Validate() error {
	c = c.withDefaults()

	if len(c.Moods) == 0 {
		return invalid("no moods configured")
	}
	if len(c.Activities) == 0 {
		return invalid("no activities configured")
	}

	moods := make(map[Mood]bool, len(c.Moods))
	for _, m := range c.Moods {
		if m == "" {
			return invalid("empty mood name")
		}
		moods[m] = true
	}
	activities := make(map[Activity]bool, len(c.Activities))
	for _, a := range c.Activities {
		if a == "" {
			return invalid("empty activity name")
		}
		activities[a] = true
	}

	if !moods[c.InitialMood] {
		return invalid("initial mood %q is not a configured mood", c.InitialMood)
	}
	if !moods[c.DefaultMood] {
		return invalid("default mood %q is not a configured mood", c.DefaultMood)
	}
	if !activities[c.InitialActivity] {
		return invalid("initial activity %q is not a configured activity", c.InitialActivity)
	}

	required := map[string]Range{
		"mood_change":     c.Timers.MoodChange,
		"activity_change": c.Timers.ActivityChange,
		"speech":          c.Timers.Speech,
		"blink":           c.Timers.Blink,
	}
	for name, r := range required {
		if !r.Enabled() {
			return invalid("timer %s: max must be positive", name)
		}
	}
	all := map[string]Range{
		"boundary":    c.Timers.Boundary,
		"fourth_wall": c.Timers.FourthWall,
		"trick":       c.Timers.Trick,
		"engagement":  c.Timers.Engagement,
	}
	for name, r := range required {
		all[name] = r
	}
	for name, r := range all {
		if r.Min < 0 || r.Max < 0 {
			return invalid("timer %s: negative bound", name)
		}
		if r.Min > r.Max {
			return invalid("timer %s: min %.2f exceeds max %.2f", name, r.Min, r.Max)
		}
	}

	switch c.ThresholdPolicy {
	case ThresholdPerCheck, ThresholdPerReset:
	default:
		return invalid("unknown threshold policy %q", c.ThresholdPolicy)
	}

	roles := map[string]Activity{
		"observing":   c.Roles.Observing,
		"greeting":    c.Roles.Greeting,
		"fourth_wall": c.Roles.FourthWall,
		"trick":       c.Roles.Trick,
		"engagement":  c.Roles.Engagement,
		"boundary":    c.Roles.Boundary,
		"performing":  c.Roles.Performing,
	}
	if c.Roles.Observing == "" {
		return invalid("observing role is required")
	}
	for name, a := range roles {
		if a != "" && !activities[a] {
			return invalid("role %s: unknown activity %q", name, a)
		}
	}
	if c.Timers.Boundary.Enabled() && c.Roles.Boundary == "" {
		return invalid("boundary timer set without a boundary role")
	}
	if c.Timers.FourthWall.Enabled() && c.Roles.FourthWall == "" {
		return invalid("fourth wall timer set without a fourth wall role")
	}
	if c.Timers.Engagement.Enabled() && c.Roles.Engagement == "" {
		return invalid("engagement timer set without an engagement role")
	}
	if c.Roles.Trick != "" && len(c.Tricks) == 0 {
		return invalid("trick role %q has no tricks to perform", c.Roles.Trick)
	}
	if c.Timers.Trick.Enabled() && c.Roles.Trick == "" {
		return invalid("trick timer set without a trick role")
	}

	for from, candidates := range c.MoodTransitions {
		if !moods[from] {
			return invalid("mood transitions: unknown source mood %q", from)
		}
		if err := validateMoodWeights(string(from), candidates, moods); err != nil {
			return err
		}
	}
	if len(c.DefaultTransitions) > 0 {
		if err := validateMoodWeights("default", c.DefaultTransitions, moods); err != nil {
			return err
		}
	}

	for from, candidates := range c.Successors {
		if !activities[from] {
			return invalid("successors: unknown source activity %q", from)
		}
		if len(candidates) == 0 {
			return invalid("successors of %q: empty candidate list", from)
		}
		var total float64
		for _, cand := range candidates {
			if !activities[cand.Activity] {
				return invalid("successors of %q: unknown activity %q", from, cand.Activity)
			}
			if cand.Weight < 0 {
				return invalid("successors of %q: negative weight", from)
			}
			total += cand.Weight
		}
		if total <= 0 {
			return invalid("successors of %q: weights sum to zero", from)
		}
	}

	if c.Showcase.Mood != "" {
		if !moods[c.Showcase.Mood] {
			return invalid("showcase: unknown mood %q", c.Showcase.Mood)
		}
		if c.Showcase.Chance < 0 || c.Showcase.Chance > 1 {
			return invalid("showcase: chance %.2f outside [0,1]", c.Showcase.Chance)
		}
		if c.Showcase.Chance > 0 && len(c.Showcase.Activities) == 0 {
			return invalid("showcase: no activities to route into")
		}
		for _, a := range c.Showcase.Activities {
			if !activities[a] {
				return invalid("showcase: unknown activity %q", a)
			}
		}
	}

	for m := range c.MoodProfiles {
		if !moods[m] {
			return invalid("mood profile for unknown mood %q", m)
		}
	}
	for a := range c.ActivitySpeeds {
		if !activities[a] {
			return invalid("speed for unknown activity %q", a)
		}
	}
	for a := range c.Cues {
		if !activities[a] {
			return invalid("cue for unknown activity %q", a)
		}
	}

	if c.Attention.DecayPerSecond < 0 || c.Attention.EscalateStep < 0 {
		return invalid("attention: negative rate")
	}
	if c.Attention.Initial < 0 || c.Attention.Initial > maxAttention {
		return invalid("attention: initial %.1f outside [0,100]", c.Attention.Initial)
	}

	if len(c.Phrases[c.DefaultMood][FallbackCategory]) == 0 {
		return invalid("default mood %q has no %q phrases", c.DefaultMood, FallbackCategory)
	}

	return nil
}

func validateMoodWeights(from string, candidates []WeightedMood, moods map[Mood]bool) error {
	if len(candidates) == 0 {
		return invalid("mood transitions from %s: empty candidate list", from)
	}
	var total float64
	for _, cand := range candidates {
		if !moods[cand.Mood] {
			return invalid("mood transitions from %s: unknown mood %q", from, cand.Mood)
		}
		if cand.Weight < 0 {
			return invalid("mood transitions from %s: negative weight", from)
		}
		total += cand.Weight
	}
	if total <= 0 {
		return invalid("mood transitions from %s: weights sum to zero", from)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
