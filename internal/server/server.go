// Package server hosts mascot sessions over HTTP. Each session runs its own
// engine and streams frames, speech and transitions over a websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/alex/mascot/internal/behavior"
	"github.com/alex/mascot/internal/director"
	"github.com/alex/mascot/internal/journal"
	"github.com/alex/mascot/internal/skin"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrTooManySessions  = errors.New("too many sessions")
	ErrTriggerThrottled = errors.New("trigger rate exceeded")
)

// Options configures the server.
type Options struct {
	Addr            string
	FPS             int
	TriggerRate     float64
	TriggerBurst    int
	MaxSessions     int
	ShutdownTimeout time.Duration
	ThresholdPolicy behavior.ThresholdPolicy
}

// Server manages sessions and their HTTP surface.
type Server struct {
	opts    Options
	journal *journal.Journal
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Session

	upgrader websocket.Upgrader
}

// New creates a server. j may be nil, in which case history is unavailable.
func New(opts Options, j *journal.Journal, log zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		opts:     opts,
		journal:  j,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	api := r.Group("/api")
	{
		api.GET("/skins", s.listSkins)
		api.POST("/sessions", s.createSession)
		api.GET("/sessions", s.listSessions)
		api.GET("/sessions/:id", s.getSession)
		api.DELETE("/sessions/:id", s.deleteSession)
		api.POST("/sessions/:id/triggers/:trigger", s.trigger)
		api.POST("/sessions/:id/pause", s.togglePause)
		api.GET("/sessions/:id/history", s.history)
	}
	r.GET("/ws/:id", s.stream)

	return r
}

// Run serves until ctx is done, then shuts down gracefully and stops every
// session.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.opts.Addr,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn().Err(err).Msg("http shutdown")
		}
	}()

	s.log.Info().Str("addr", s.opts.Addr).Msg("listening")
	err := srv.ListenAndServe()
	s.Close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops every session.
func (s *Server) Close() {
	s.cancel()

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.stop()
	}
}

// CreateSession starts a session for the named built-in skin.
func (s *Server) CreateSession(skinName string, seed int64) (*Session, error) {
	sk, err := skin.Load(skinName)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) >= s.opts.MaxSessions {
		return nil, ErrTooManySessions
	}

	sess, err := s.newSession(sk, seed)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", skinName, err)
	}
	s.sessions[sess.ID] = sess
	sess.start(s.ctx, s.opts.FPS, s.log)

	s.log.Info().Str("session", sess.ID).Str("skin", sk.Name).Msg("session created")
	return sess, nil
}

// Session looks up a running session.
func (s *Server) Session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// DeleteSession stops and forgets a session.
func (s *Server) DeleteSession(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	sess.stop()
	s.log.Info().Str("session", id).Msg("session deleted")
	return nil
}

// Trigger fires a named trigger on a session, subject to its rate limit.
func (s *Server) Trigger(id, name string) (behavior.State, error) {
	sess, err := s.Session(id)
	if err != nil {
		return behavior.State{}, err
	}
	if !slices.Contains(director.Triggers, name) {
		return behavior.State{}, fmt.Errorf("%w: %q", director.ErrUnknownTrigger, name)
	}
	if !sess.limiter.Allow() {
		return behavior.State{}, ErrTriggerThrottled
	}
	return sess.director.Trigger(name)
}

func (s *Server) listSkins(c *gin.Context) {
	type skinSummary struct {
		Name        string `json:"name"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}

	out := make([]skinSummary, 0, len(skin.Names()))
	for _, name := range skin.Names() {
		sk, err := skin.Load(name)
		if err != nil {
			s.fail(c, err)
			return
		}
		out = append(out, skinSummary{Name: sk.Name, Title: sk.Title, Description: sk.Description})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createSession(c *gin.Context) {
	var req struct {
		Skin string `json:"skin"`
		Seed int64  `json:"seed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Skin == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "skin is required"})
		return
	}

	sess, err := s.CreateSession(req.Skin, req.Seed)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess.info())
}

func (s *Server) listSessions(c *gin.Context) {
	s.mu.RLock()
	out := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.info())
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b SessionInfo) int { return a.Created.Compare(b.Created) })
	c.JSON(http.StatusOK, out)
}

func (s *Server) getSession(c *gin.Context) {
	sess, err := s.Session(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.info())
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.DeleteSession(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) trigger(c *gin.Context) {
	state, err := s.Trigger(c.Param("id"), c.Param("trigger"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) togglePause(c *gin.Context) {
	sess, err := s.Session(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": sess.director.TogglePause()})
}

func (s *Server) history(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "journal is disabled"})
		return
	}
	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
			return
		}
		limit = n
	}

	// History outlives the session, so the id is not checked against the
	// live set.
	entries, err := s.journal.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) stream(c *gin.Context) {
	sess, err := s.Session(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	cl := sess.hub.add(conn)
	defer sess.hub.remove(cl)

	conn.SetReadLimit(maxInbound)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var in struct {
			Trigger string `json:"trigger"`
		}
		if err := json.Unmarshal(data, &in); err != nil || in.Trigger == "" {
			continue
		}
		if _, err := s.Trigger(sess.ID, in.Trigger); err != nil {
			sess.send(MsgError, gin.H{"trigger": in.Trigger, "error": err.Error()})
		}
	}
}

// fail maps sentinel errors to status codes.
func (s *Server) fail(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		code = http.StatusNotFound
	case errors.Is(err, skin.ErrUnknownSkin), errors.Is(err, director.ErrUnknownTrigger):
		code = http.StatusBadRequest
	case errors.Is(err, ErrTriggerThrottled):
		code = http.StatusTooManyRequests
	case errors.Is(err, ErrTooManySessions):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}
