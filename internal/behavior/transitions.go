package behavior

// ChangeMood moves to the next mood using the weighted transition table for
// the current mood. Moods without an entry use DefaultTransitions, and with
// no default either, a uniform pick over every mood.
func (e *Engine) ChangeMood() {
	from := e.mood

	candidates, ok := e.cfg.MoodTransitions[from]
	if !ok {
		candidates = e.cfg.DefaultTransitions
	}

	var next Mood
	if len(candidates) > 0 {
		next = chooseMood(e.rng, candidates)
	} else {
		next = e.cfg.Moods[e.rng.Intn(len(e.cfg.Moods))]
	}

	e.mood = next
	if next != from {
		e.log.Debug().Str("from", string(from)).Str("to", string(next)).Msg("mood changed")
		e.emit(Event{Kind: EventMoodChanged, From: string(from), To: string(next)})
	}

	// Stepping into the spotlight restarts the act.
	show := e.cfg.Showcase.Mood
	if show != "" && next == show && from != show {
		if e.cfg.Roles.Greeting != "" {
			e.setActivity(e.cfg.Roles.Greeting)
		}
		e.attention = maxAttention
	}
}

// ChangeActivity advances the activity. In the showcase mood it usually
// jumps straight into a performance activity; otherwise the successor table
// for the current activity decides, falling back to observing.
func (e *Engine) ChangeActivity() {
	sc := e.cfg.Showcase
	if sc.Mood != "" && e.mood == sc.Mood && len(sc.Activities) > 0 {
		if e.rng.Float64() < sc.Chance {
			e.enter(sc.Activities[e.rng.Intn(len(sc.Activities))])
			return
		}
	}

	if candidates := e.cfg.Successors[e.activity]; len(candidates) > 0 {
		e.enter(chooseActivity(e.rng, candidates))
		return
	}

	e.enter(e.cfg.Roles.Observing)
}

// enter switches to an activity, firing the trigger that belongs to it.
func (e *Engine) enter(a Activity) {
	r := e.cfg.Roles
	switch {
	case a == r.FourthWall && r.FourthWall != "":
		e.TriggerFourthWallBreak()
	case a == r.Trick && r.Trick != "":
		e.TriggerPerformanceTrick()
	case a == r.Engagement && r.Engagement != "":
		e.TriggerAudienceEngagement()
	default:
		e.setActivity(a)
	}
}

func (e *Engine) setActivity(a Activity) {
	from := e.activity
	e.activity = a
	if a != e.cfg.Roles.Trick {
		e.trick = ""
	}
	e.performing = a == e.cfg.Roles.Performing || (a == e.cfg.Roles.Trick && e.cfg.Roles.Trick != "")

	if from != a {
		e.log.Debug().Str("from", string(from)).Str("to", string(a)).Msg("activity changed")
		e.emit(Event{Kind: EventActivityChanged, From: string(from), To: string(a)})
	}
}

func (e *Engine) boost(amount float64) {
	e.attention = clamp(e.attention+amount, 0, maxAttention)
}

// TriggerFourthWallBreak turns the character towards the viewer.
func (e *Engine) TriggerFourthWallBreak() {
	if e.cfg.Roles.FourthWall == "" {
		return
	}
	e.setActivity(e.cfg.Roles.FourthWall)
	e.boost(e.cfg.Attention.FourthWallBoost)
	e.emit(Event{Kind: EventFourthWall, To: string(e.activity)})
}

// TriggerPerformanceTrick starts a uniformly chosen trick and returns it.
// Skins without tricks return an empty Trick.
func (e *Engine) TriggerPerformanceTrick() Trick {
	if e.cfg.Roles.Trick == "" || len(e.cfg.Tricks) == 0 {
		return ""
	}
	trick := e.cfg.Tricks[e.rng.Intn(len(e.cfg.Tricks))]
	e.setActivity(e.cfg.Roles.Trick)
	e.trick = trick
	e.lastPerformance = trick
	e.performing = true
	e.boost(e.cfg.Attention.TrickBoost)
	e.emit(Event{Kind: EventTrick, To: string(e.activity), Trick: trick})
	return trick
}

// TriggerAudienceEngagement makes the character court a drifting audience.
func (e *Engine) TriggerAudienceEngagement() {
	if e.cfg.Roles.Engagement == "" {
		return
	}
	e.setActivity(e.cfg.Roles.Engagement)
	e.boost(e.cfg.Attention.EngagementBoost)
	e.emit(Event{Kind: EventEngagement, To: string(e.activity)})
}

// TriggerBoundaryInteraction sends the character to probe the edge of its
// viewport.
func (e *Engine) TriggerBoundaryInteraction() {
	if e.cfg.Roles.Boundary == "" {
		return
	}
	e.setActivity(e.cfg.Roles.Boundary)
	e.emit(Event{Kind: EventBoundary, To: string(e.activity)})
}
