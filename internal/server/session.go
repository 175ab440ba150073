package server

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/alex/mascot/internal/behavior"
	"github.com/alex/mascot/internal/director"
	"github.com/alex/mascot/internal/skin"
)

// Session is one running character. Its director ticks on its own goroutine
// and streams everything it shows or plays to the session's hub.
type Session struct {
	ID      string
	Skin    string
	Created time.Time

	director *director.Director
	limiter  *rate.Limiter
	hub      *hub
	cancel   context.CancelFunc
	done     chan struct{}
}

// SessionInfo is the JSON view of a session.
type SessionInfo struct {
	ID      string         `json:"id"`
	Skin    string         `json:"skin"`
	Created time.Time      `json:"created_at"`
	Clients int            `json:"clients"`
	Paused  bool           `json:"paused"`
	State   behavior.State `json:"state"`
}

func (s *Server) newSession(sk *skin.Skin, seed int64) (*Session, error) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	id := uuid.NewString()
	log := s.log.With().Str("session", id).Logger()

	sess := &Session{
		ID:      id,
		Skin:    sk.Name,
		Created: time.Now().UTC(),
		limiter: rate.NewLimiter(rate.Limit(s.opts.TriggerRate), s.opts.TriggerBurst),
		hub:     newHub(log),
		done:    make(chan struct{}),
	}

	var listener behavior.Listener = sess.onEvent
	if s.journal != nil {
		listener = behavior.Fanout(s.journal.Listener(id), sess.onEvent)
	}

	cfg := sk.EngineConfig()
	if s.opts.ThresholdPolicy != "" {
		cfg.ThresholdPolicy = s.opts.ThresholdPolicy
	}
	rng := rand.New(rand.NewSource(seed))
	engine, err := behavior.New(cfg,
		behavior.WithRand(rng),
		behavior.WithLogger(log),
		behavior.WithListener(listener),
	)
	if err != nil {
		return nil, err
	}

	sess.director = director.New(engine, director.FromSkin(sk),
		director.WithRenderer(sess),
		director.WithSpeech(sess),
		director.WithAudio(sess),
		director.WithRand(rng),
		director.WithLogger(log),
	)
	return sess, nil
}

func (sess *Session) start(parent context.Context, fps int, log zerolog.Logger) {
	ctx, cancel := context.WithCancel(parent)
	sess.cancel = cancel
	go func() {
		defer close(sess.done)
		if err := sess.director.Run(ctx, fps); err != nil {
			log.Error().Err(err).Str("session", sess.ID).Msg("session loop stopped")
		}
	}()
}

func (sess *Session) stop() {
	sess.cancel()
	<-sess.done
	sess.hub.closeAll()
}

func (sess *Session) info() SessionInfo {
	return SessionInfo{
		ID:      sess.ID,
		Skin:    sess.Skin,
		Created: sess.Created,
		Clients: sess.hub.size(),
		Paused:  sess.director.Paused(),
		State:   sess.director.Snapshot(),
	}
}

func (sess *Session) send(typ string, data any) {
	sess.hub.broadcast(Message{Type: typ, Session: sess.ID, Data: data})
}

// Draw streams the frame.
func (sess *Session) Draw(p director.Pose) { sess.send(MsgFrame, p) }

func (sess *Session) Blink() { sess.send(MsgBlink, nil) }

func (sess *Session) SetSpotlight(on bool) {
	sess.send(MsgSpotlight, map[string]bool{"on": on})
}

func (sess *Session) Say(text string, d time.Duration) {
	sess.send(MsgSpeech, map[string]any{"text": text, "duration_ms": d.Milliseconds()})
}

func (sess *Session) Play(cue string) {
	sess.send(MsgAudio, map[string]string{"cue": cue})
}

func (sess *Session) onEvent(ev behavior.Event) { sess.send(MsgEvent, ev) }
