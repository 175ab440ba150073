package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex/mascot/internal/journal"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	chdir(t, t.TempDir())

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "mascot", cmd.Use)
	for _, name := range []string{"config", "log-level", "skin", "seed"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "serve", "simulate", "skins", "version"}, names)
}

func TestRunAndServeFlags(t *testing.T) {
	g := &globals{}

	run := newRunCommand(g)
	for _, name := range []string{"fps", "no-audio", "llm", "journal"} {
		assert.NotNil(t, run.Flags().Lookup(name), name)
	}
	assert.True(t, run.HasExample())

	serve := newServeCommand(g)
	assert.NotNil(t, serve.Flags().Lookup("addr"))
	assert.NotNil(t, serve.Flags().Lookup("journal"))
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mascot dev")
}

func TestSkinsCommand(t *testing.T) {
	out, err := execute(t, "skins")
	require.NoError(t, err)

	assert.Contains(t, out, "classic-imp")
	assert.Contains(t, out, "devil-imp")
	assert.Contains(t, out, "ghost")
	assert.Less(t, strings.Index(out, "classic-imp"), strings.Index(out, "ghost"))
}

func TestSimulate_IsReproducible(t *testing.T) {
	args := []string{"simulate", "--log-level", "error", "--skin", "devil-imp", "--seconds", "90", "--seed", "42"}

	first, err := execute(t, args...)
	require.NoError(t, err)
	second, err := execute(t, args...)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "devil-imp (seed 42): 90s")
	assert.Contains(t, first, "says ")
	assert.Contains(t, first, "summary:")
	assert.Contains(t, first, "lines_spoken")
	assert.Contains(t, first, "final: mood=")
}

func TestSimulate_Quiet(t *testing.T) {
	out, err := execute(t, "simulate", "--log-level", "error", "--skin", "classic-imp", "--seconds", "30", "-q")
	require.NoError(t, err)

	assert.NotContains(t, out, "says ")
	assert.Contains(t, out, "summary:")
}

func TestSimulate_Journal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	out, err := execute(t, "simulate", "--log-level", "error", "--seconds", "60", "-q", "--journal", path)
	require.NoError(t, err)

	var session string
	for _, line := range strings.Split(out, "\n") {
		if s, ok := strings.CutPrefix(line, "journal session "); ok {
			session = s
		}
	}
	require.NotEmpty(t, session)

	j, err := journal.Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer j.Close()

	entries, err := j.History(context.Background(), session, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestSimulate_BadInput(t *testing.T) {
	_, err := execute(t, "simulate", "--log-level", "error", "--dt", "0")
	assert.Error(t, err)

	_, err = execute(t, "simulate", "--log-level", "error", "--skin", "dragon")
	assert.Error(t, err)
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mascot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("skin: ghost\nlog:\n  level: error\n"), 0o644))

	out, err := execute(t, "simulate", "--config", path, "--seconds", "5", "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "ghost (seed 1)")

	out, err = execute(t, "simulate", "--config", path, "--skin", "classic-imp", "--seconds", "5", "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "classic-imp (seed 1)")
}

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
