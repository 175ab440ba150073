// Package skin loads character skins: the behavior configuration plus the
// appearance, speech timing and sound cues a host needs to present it.
package skin

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/alex/mascot/internal/audio"
	"github.com/alex/mascot/internal/behavior"
)

//go:embed skins/*.yaml
var builtin embed.FS

// ErrUnknownSkin is returned by Load for names that are not built in.
var ErrUnknownSkin = errors.New("unknown skin")

// Appearance is how a terminal host draws the character. Body lines may
// contain "{eyes}", replaced by Eyes or ClosedEyes while blinking.
type Appearance struct {
	Color      string   `yaml:"color" toml:"color" json:"color"`
	Accent     string   `yaml:"accent" toml:"accent" json:"accent"`
	Eyes       string   `yaml:"eyes" toml:"eyes" json:"eyes"`
	ClosedEyes string   `yaml:"closed_eyes" toml:"closed_eyes" json:"closed_eyes"`
	Body       []string `yaml:"body" toml:"body" json:"body"`
}

// Speech controls the speech bubble.
type Speech struct {
	DisplaySeconds float64 `yaml:"display_seconds" toml:"display_seconds" json:"display_seconds"`
}

// Skin is one loadable character.
type Skin struct {
	Name        string `yaml:"name" toml:"name" json:"name"`
	Title       string `yaml:"title" toml:"title" json:"title"`
	Description string `yaml:"description" toml:"description" json:"description"`

	Appearance Appearance `yaml:"appearance" toml:"appearance" json:"appearance"`
	Speech     Speech     `yaml:"speech" toml:"speech" json:"speech"`

	// EntryCue plays with the opening greeting, BoundaryCue with boundary
	// chatter. BoundaryChatter is the per-frame chance of a line while the
	// character is at the boundary.
	EntryCue        string                 `yaml:"entry_cue" toml:"entry_cue" json:"entry_cue"`
	BoundaryCue     string                 `yaml:"boundary_cue" toml:"boundary_cue" json:"boundary_cue"`
	BoundaryChatter float64                `yaml:"boundary_chatter" toml:"boundary_chatter" json:"boundary_chatter"`
	Audio           map[string]audio.Burst `yaml:"audio" toml:"audio" json:"audio"`

	Behavior behavior.Config `yaml:"behavior" toml:"behavior" json:"behavior"`
}

// EngineConfig returns the behavior configuration for behavior.New.
func (s *Skin) EngineConfig() behavior.Config {
	return s.Behavior
}

// Validate checks the skin and its behavior configuration.
func (s *Skin) Validate() error {
	if s.Name == "" {
		return errors.New("skin has no name")
	}
	if err := s.Behavior.Validate(); err != nil {
		return fmt.Errorf("skin %s: %w", s.Name, err)
	}
	if s.Speech.DisplaySeconds <= 0 {
		return fmt.Errorf("skin %s: speech display_seconds must be positive", s.Name)
	}
	if s.BoundaryChatter < 0 || s.BoundaryChatter > 1 {
		return fmt.Errorf("skin %s: boundary_chatter %.3f outside [0,1]", s.Name, s.BoundaryChatter)
	}
	if len(s.Appearance.Body) == 0 {
		return fmt.Errorf("skin %s: appearance has no body", s.Name)
	}

	cues := []string{s.EntryCue, s.BoundaryCue}
	for _, c := range s.Behavior.Cues {
		cues = append(cues, c.Audio)
	}
	for _, c := range cues {
		if c == "" {
			continue
		}
		if _, ok := s.Audio[c]; !ok {
			return fmt.Errorf("skin %s: audio cue %q is not defined", s.Name, c)
		}
	}
	for name, b := range s.Audio {
		if b.Oscillators <= 0 || b.Duration <= 0 || b.Gain < 0 || b.Interval < 0 {
			return fmt.Errorf("skin %s: audio cue %q: bad burst parameters", s.Name, name)
		}
	}
	return nil
}

// Names lists the built-in skins in alphabetical order.
func Names() []string {
	entries, err := fs.ReadDir(builtin, "skins")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Load returns a built-in skin by name.
func Load(name string) (*Skin, error) {
	data, err := builtin.ReadFile("skins/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownSkin, name, strings.Join(Names(), ", "))
	}
	return decode(name+".yaml", data)
}

// LoadFile reads a user skin. The format follows the extension: .yaml, .yml
// or .toml.
func LoadFile(file string) (*Skin, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read skin: %w", err)
	}
	return decode(file, data)
}

// Resolve loads a built-in skin by name, or a skin file when ref looks like a
// path.
func Resolve(ref string) (*Skin, error) {
	switch filepath.Ext(ref) {
	case ".yaml", ".yml", ".toml":
		return LoadFile(ref)
	}
	return Load(ref)
}

func decode(file string, data []byte) (*Skin, error) {
	var s Skin

	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("parse skin %s: %w", file, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &s)
		if err != nil {
			return nil, fmt.Errorf("parse skin %s: %w", file, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse skin %s: unknown key %s", file, undecoded[0])
		}
	default:
		return nil, fmt.Errorf("skin %s: unsupported format %q", file, filepath.Ext(file))
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
