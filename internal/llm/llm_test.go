package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex/mascot/internal/skin"
)

func ollama(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Model: "tiny", Timeout: 2 * time.Second})
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{})
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}

func TestGenerateJSON(t *testing.T) {
	c := ollama(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tiny", req.Model)
		assert.Equal(t, "json", req.Format)
		assert.False(t, req.Stream)

		json.NewEncoder(w).Encode(generateResponse{Response: `{"ok":true}`, Done: true})
	})

	out, err := c.GenerateJSON(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
}

func TestGenerate_BadStatus(t *testing.T) {
	c := ollama(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, err := c.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestCheckModel(t *testing.T) {
	c := ollama(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[{"name":"llama3"},{"name":"tiny"}]}`))
	})

	require.NoError(t, c.Ping(context.Background()))

	found, names, err := c.CheckModel(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"llama3", "tiny"}, names)
}

func TestPing_Unreachable(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	assert.Error(t, c.Ping(context.Background()))
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   atomic.Int32
	prompts []string
	reply   string
	err     error
}

func (g *fakeGenerator) GenerateJSON(_ context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

func newImproviser(t *testing.T, g Generator) *Improviser {
	t.Helper()
	sk, err := skin.Load("devil-imp")
	require.NoError(t, err)
	im := NewImproviser(g, sk, zerolog.Nop())
	t.Cleanup(im.Close)
	return im
}

func TestImproviser_MissThenHit(t *testing.T) {
	g := &fakeGenerator{reply: `{"lines": ["Behold!", "  ", "Applause, please."]}`}
	im := newImproviser(t, g)

	_, ok := im.Phrase("showoff", "performing")
	assert.False(t, ok)

	var first string
	require.Eventually(t, func() bool {
		var ok bool
		first, ok = im.Phrase("showoff", "performing")
		return ok
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Behold!", first)

	g.mu.Lock()
	prompt := g.prompts[0]
	g.mu.Unlock()
	assert.Contains(t, prompt, "Devil Imp")
	assert.Contains(t, prompt, "Current mood: showoff")
	assert.Contains(t, prompt, "Situation: performing")
}

func TestImproviser_OneGenerationPerKey(t *testing.T) {
	block := make(chan struct{})
	g := &blockingGenerator{release: block}
	im := newImproviser(t, g)

	for i := 0; i < 10; i++ {
		_, ok := im.Phrase("curious", "observing")
		assert.False(t, ok)
	}
	close(block)

	require.Eventually(t, func() bool {
		_, ok := im.Phrase("curious", "observing")
		return ok
	}, time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, g.calls.Load(), int32(2))
}

type blockingGenerator struct {
	release chan struct{}
	calls   atomic.Int32
}

func (g *blockingGenerator) GenerateJSON(ctx context.Context, _ string) (string, error) {
	g.calls.Add(1)
	select {
	case <-g.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return `{"lines": ["one", "two"]}`, nil
}

func TestImproviser_ExtractsWrappedJSON(t *testing.T) {
	g := &fakeGenerator{reply: "Sure! {\"lines\": [\"Wrapped line\"]} hope that helps"}
	im := newImproviser(t, g)

	im.Phrase("sleepy", "observing")
	require.Eventually(t, func() bool {
		line, ok := im.Phrase("sleepy", "observing")
		return ok && line == "Wrapped line"
	}, time.Second, 5*time.Millisecond)
}

func TestImproviser_FailureRetries(t *testing.T) {
	g := &fakeGenerator{err: errors.New("offline")}
	im := newImproviser(t, g)

	im.Phrase("curious", "greeting")
	require.Eventually(t, func() bool {
		im.Phrase("curious", "greeting")
		return g.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestImproviser_DropsLongLines(t *testing.T) {
	long := strings.Repeat("a", MaxLineLength+1)
	g := &fakeGenerator{reply: `{"lines": ["` + long + `"]}`}
	im := newImproviser(t, g)

	_, err := im.generate(context.Background(), phraseKey{"curious", "observing"})
	assert.Error(t, err)
}

func TestImproviser_ClosedStopsGenerating(t *testing.T) {
	g := &fakeGenerator{reply: `{"lines": ["x"]}`}
	im := newImproviser(t, g)
	im.Close()

	_, ok := im.Phrase("curious", "observing")
	assert.False(t, ok)
	assert.Zero(t, g.calls.Load())
}
