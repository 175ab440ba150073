package behavior

// EventKind identifies what happened inside the engine.
type EventKind string

const (
	EventMoodChanged     EventKind = "mood_changed"
	EventActivityChanged EventKind = "activity_changed"
	EventFourthWall      EventKind = "fourth_wall_break"
	EventTrick           EventKind = "performance_trick"
	EventEngagement      EventKind = "audience_engagement"
	EventBoundary        EventKind = "boundary_interaction"
)

// Event describes a state transition. From and To hold mood or activity
// names depending on Kind.
type Event struct {
	Kind    EventKind `json:"kind"`
	From    string    `json:"from,omitempty"`
	To      string    `json:"to,omitempty"`
	Trick   Trick     `json:"trick,omitempty"`
	Elapsed float64   `json:"elapsed"` // engine seconds since construction
}

// Listener receives engine events synchronously from Update and the trigger
// methods. It must not call back into the engine.
type Listener func(Event)

// Fanout returns a listener that hands each event to every non-nil l in order.
func Fanout(ls ...Listener) Listener {
	return func(ev Event) {
		for _, l := range ls {
			if l != nil {
				l(ev)
			}
		}
	}
}
