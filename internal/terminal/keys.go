package terminal

import (
	"context"

	"github.com/gdamore/tcell/v2"

	"github.com/alex/mascot/internal/behavior"
	"github.com/alex/mascot/internal/director"
)

// Controls is the part of the director the keyboard drives.
type Controls interface {
	Trigger(name string) (behavior.State, error)
	TogglePause() bool
}

var keyTriggers = map[rune]string{
	'f': director.TriggerFourthWall,
	't': director.TriggerTrick,
	'e': director.TriggerEngagement,
	'b': director.TriggerBoundary,
	'm': director.TriggerMood,
	'a': director.TriggerActivity,
}

// roleOf names the activity a trigger key leads into. Mood and activity
// changes always do something and are not listed.
var roleOf = map[string]func(behavior.Roles) behavior.Activity{
	director.TriggerFourthWall: func(r behavior.Roles) behavior.Activity { return r.FourthWall },
	director.TriggerTrick:      func(r behavior.Roles) behavior.Activity { return r.Trick },
	director.TriggerEngagement: func(r behavior.Roles) behavior.Activity { return r.Engagement },
	director.TriggerBoundary:   func(r behavior.Roles) behavior.Activity { return r.Boundary },
}

// trigger fires name and leaves a status note when the key cannot do
// anything for this skin.
func (v *View) trigger(name string, c Controls) {
	if role, ok := roleOf[name]; ok && role(v.skin.Behavior.Roles) == "" {
		v.Note(name + " unavailable")
		return
	}
	if _, err := c.Trigger(name); err != nil {
		v.Note(err.Error())
	}
}

// HandleEvent applies one screen event and returns false when the user
// asked to quit.
func (v *View) HandleEvent(ev tcell.Event, c Controls) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			r := ev.Rune()
			switch r {
			case 'q':
				return false
			case ' ':
				c.TogglePause()
				return true
			}
			if name, ok := keyTriggers[r]; ok {
				v.trigger(name, c)
			}
		}
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return true
}

// Loop reads screen events until the user quits or ctx is done.
func (v *View) Loop(ctx context.Context, c Controls) {
	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if !v.HandleEvent(ev, c) {
				return
			}
		}
	}
}
