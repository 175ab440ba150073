// Package terminal is a tcell host for the director: it draws the skin's
// ascii art, a speech bubble and a status line, and maps keys to triggers.
package terminal

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/alex/mascot/internal/director"
	"github.com/alex/mascot/internal/skin"
)

// BlinkDuration is how long the eyes stay closed after a blink.
const BlinkDuration = 150 * time.Millisecond

// NoteDuration is how long a status note stays on the HUD.
const NoteDuration = 2 * time.Second

// View renders one character on a tcell screen. It implements
// director.Renderer and director.SpeechPresenter.
type View struct {
	mu     sync.Mutex
	screen tcell.Screen
	skin   *skin.Skin
	now    func() time.Time

	body      tcell.Style
	accent    tcell.Style
	spotStyle tcell.Style
	hud       tcell.Style

	blinkUntil  time.Time
	spotlight   bool
	speech      string
	speechUntil time.Time
	note        string
	noteUntil   time.Time
}

// New prepares a view on an initialized screen.
func New(screen tcell.Screen, sk *skin.Skin) *View {
	fg := tcell.GetColor(sk.Appearance.Color)
	accent := tcell.GetColor(sk.Appearance.Accent)
	return &View{
		screen:    screen,
		skin:      sk,
		now:       time.Now,
		body:      tcell.StyleDefault.Foreground(fg),
		accent:    tcell.StyleDefault.Foreground(accent),
		spotStyle: tcell.StyleDefault.Foreground(accent).Background(tcell.ColorDarkSlateGray),
		hud:       tcell.StyleDefault.Reverse(true),
	}
}

// Blink closes the eyes for BlinkDuration.
func (v *View) Blink() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.blinkUntil = v.now().Add(BlinkDuration)
}

// SetSpotlight turns the spotlight band on or off.
func (v *View) SetSpotlight(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.spotlight = on
}

// Say shows text in a bubble for d.
func (v *View) Say(text string, d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.speech = text
	v.speechUntil = v.now().Add(d)
}

// Note shows text on the status line for NoteDuration.
func (v *View) Note(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.note = text
	v.noteUntil = v.now().Add(NoteDuration)
}

// Draw paints a full frame.
func (v *View) Draw(p director.Pose) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	v.screen.Clear()
	w, h := v.screen.Size()

	lines := v.bodyLines(now.Before(v.blinkUntil), p.LookingAtViewer)
	bw := 0
	for _, l := range lines {
		bw = max(bw, len([]rune(l)))
	}

	dx, dy := offset(p)
	x := (w-bw)/2 + dx
	y := (h-len(lines))/2 + dy

	if v.spotlight {
		for row := max(0, y-1); row <= min(h-2, y+len(lines)); row++ {
			for col := max(0, x-2); col < min(w, x+bw+2); col++ {
				v.screen.SetContent(col, row, ' ', nil, v.spotStyle)
			}
		}
	}

	style := v.body
	if v.spotlight {
		style = style.Background(tcell.ColorDarkSlateGray)
	}
	for i, l := range lines {
		v.put(x, y+i, l, style)
	}

	if v.speech != "" && now.Before(v.speechUntil) {
		v.bubble(x+bw/2, y-2, v.speech)
	}

	hud := hudLine(p)
	if v.note != "" && now.Before(v.noteUntil) {
		hud += " | " + v.note
	}
	v.put(0, h-1, padRight(hud, w), v.hud)
	v.screen.Show()
}

func (v *View) bodyLines(blinking, facing bool) []string {
	eyes := v.skin.Appearance.Eyes
	if blinking {
		eyes = v.skin.Appearance.ClosedEyes
	} else if facing {
		eyes = strings.ToUpper(eyes)
	}
	out := make([]string, len(v.skin.Appearance.Body))
	for i, l := range v.skin.Appearance.Body {
		out[i] = strings.ReplaceAll(l, "{eyes}", eyes)
	}
	return out
}

func (v *View) bubble(cx, y int, text string) {
	text = "( " + text + " )"
	x := cx - len([]rune(text))/2
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	v.put(x, y, text, v.accent)
}

func (v *View) put(x, y int, s string, style tcell.Style) {
	for i, r := range []rune(s) {
		v.screen.SetContent(x+i, y, r, nil, style)
	}
}

// offset bobs the body vertically by float intensity and sways it sideways
// while the activity moves.
func offset(p director.Pose) (dx, dy int) {
	if p.Paused {
		return 0, 0
	}
	dy = int(math.Round(math.Sin(p.Clock*p.ArmSpeed) * p.Float * 2))
	dx = int(math.Round(math.Sin(p.Clock*0.5) * p.Speed * 3))
	return dx, dy
}

func hudLine(p director.Pose) string {
	trick := string(p.State.Trick)
	if trick == "" {
		trick = "-"
	}
	line := fmt.Sprintf(" %s | %s | %s | %.2f | %.0f",
		p.State.Mood, p.State.Activity, trick, p.State.PerformanceLevel, p.State.Attention)
	if p.Paused {
		line += " | paused"
	}
	return line
}

func padRight(s string, w int) string {
	if n := w - len([]rune(s)); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
