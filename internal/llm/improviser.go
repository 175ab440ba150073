package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/alex/mascot/internal/behavior"
	"github.com/alex/mascot/internal/skin"
)

// MaxLineLength bounds an improvised line in runes; longer ones are dropped.
const MaxLineLength = 80

// Generator produces JSON text for a prompt. *Client implements it.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

type phraseKey struct {
	mood     behavior.Mood
	category behavior.Category
}

// Improviser supplies model-written lines to the director. Phrase never
// blocks: a miss starts one background generation for that mood and
// category and reports nothing, so the caller falls back to the skin's own
// phrase table.
type Improviser struct {
	gen  Generator
	skin *skin.Skin
	log  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	ready   map[phraseKey][]string
	pending map[phraseKey]bool
}

// NewImproviser creates an improviser speaking as sk.
func NewImproviser(gen Generator, sk *skin.Skin, log zerolog.Logger) *Improviser {
	ctx, cancel := context.WithCancel(context.Background())
	return &Improviser{
		gen:     gen,
		skin:    sk,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		ready:   make(map[phraseKey][]string),
		pending: make(map[phraseKey]bool),
	}
}

// Phrase returns a ready line for mood and category, if there is one.
func (im *Improviser) Phrase(mood behavior.Mood, category behavior.Category) (string, bool) {
	key := phraseKey{mood, category}

	im.mu.Lock()
	defer im.mu.Unlock()

	lines := im.ready[key]
	if len(lines) <= 1 && !im.pending[key] && im.ctx.Err() == nil {
		im.pending[key] = true
		im.wg.Add(1)
		go im.fill(key)
	}
	if len(lines) == 0 {
		return "", false
	}
	im.ready[key] = lines[1:]
	return lines[0], true
}

// Close stops outstanding generations and waits for them.
func (im *Improviser) Close() {
	im.mu.Lock()
	im.cancel()
	im.mu.Unlock()
	im.wg.Wait()
}

func (im *Improviser) fill(key phraseKey) {
	defer im.wg.Done()

	lines, err := im.generate(im.ctx, key)

	im.mu.Lock()
	defer im.mu.Unlock()
	delete(im.pending, key)
	if err != nil {
		im.log.Debug().Err(err).
			Str("mood", string(key.mood)).
			Str("category", string(key.category)).
			Msg("improvisation failed")
		return
	}
	im.ready[key] = append(im.ready[key], lines...)
}

type linesResponse struct {
	Lines []string `json:"lines"`
}

func (im *Improviser) generate(ctx context.Context, key phraseKey) ([]string, error) {
	raw, err := im.gen.GenerateJSON(ctx, im.prompt(key))
	if err != nil {
		return nil, fmt.Errorf("generating lines: %w", err)
	}

	var resp linesResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		if err := json.Unmarshal([]byte(extractJSON(raw)), &resp); err != nil {
			return nil, fmt.Errorf("parsing response %q: %w", raw, err)
		}
	}

	var out []string
	for _, l := range resp.Lines {
		l = strings.TrimSpace(l)
		if l == "" || utf8.RuneCountInString(l) > MaxLineLength {
			continue
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable lines in %q", raw)
	}
	return out, nil
}

func (im *Improviser) prompt(key phraseKey) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are %s, an animated character on someone's screen. %s\n\n", im.skin.Title, im.skin.Description)
	sb.WriteString("You are NOT a helpful assistant. You never answer questions. You speak in short, in-character quips.\n\n")
	fmt.Fprintf(&sb, "Current mood: %s\n", key.mood)
	fmt.Fprintf(&sb, "Situation: %s\n", strings.ReplaceAll(string(key.category), "_", " "))

	if examples := im.skin.Behavior.Phrases[key.mood][key.category]; len(examples) > 0 {
		if len(examples) > 3 {
			examples = examples[:3]
		}
		fmt.Fprintf(&sb, "Lines you have said before: %q\n", examples)
	}

	fmt.Fprintf(&sb, "\nWrite 3 new lines, each under %d characters.\n", MaxLineLength)
	sb.WriteString(`Respond with ONLY valid JSON in this exact format: {"lines": ["...", "...", "..."]}`)
	return sb.String()
}

// extractJSON finds the outermost object in s when the model wrapped it in
// other text.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
