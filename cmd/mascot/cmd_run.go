package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alex/mascot/internal/audio"
	"github.com/alex/mascot/internal/behavior"
	"github.com/alex/mascot/internal/director"
	"github.com/alex/mascot/internal/journal"
	"github.com/alex/mascot/internal/llm"
	"github.com/alex/mascot/internal/skin"
	"github.com/alex/mascot/internal/terminal"
)

func newRunCommand(g *globals) *cobra.Command {
	var (
		fps     int
		noAudio bool
		useLLM  bool
		history string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Show the character in the terminal",
		Long: `Show the character in the terminal.

Keys: f fourth wall, t trick, e engagement, b boundary, m mood, a activity,
space pause, q or Esc quit.`,
		Example: `mascot run --skin ghost --llm`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("fps") {
				g.cfg.Loop.FPS = fps
			}
			if flags.Changed("no-audio") {
				g.cfg.Audio.Enabled = !noAudio
			}
			if flags.Changed("llm") {
				g.cfg.LLM.Enabled = useLLM
			}
			if flags.Changed("journal") {
				g.cfg.Journal.Path = history
			}
			return runShow(cmd.Context(), g)
		},
	}

	cmd.Flags().IntVar(&fps, "fps", 30, "frames per second")
	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "disable sound cues")
	cmd.Flags().BoolVar(&useLLM, "llm", false, "improvise lines with a local Ollama model")
	cmd.Flags().StringVar(&history, "journal", "", "record transitions to this sqlite file")

	return cmd
}

func runShow(ctx context.Context, g *globals) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The screen owns stdout, so logs only go somewhere when a file is set.
	logger, err := g.logger(io.Discard)
	if err != nil {
		return err
	}
	defer logger.Close()

	var listener behavior.Listener
	if g.cfg.Journal.Path != "" {
		j, err := journal.Open(g.cfg.Journal.Path, logger.Component("journal"))
		if err != nil {
			return err
		}
		defer j.Close()
		listener = j.Listener("run-" + uuid.NewString())
	}

	rng := g.rng()
	sk, engine, err := g.engine(rng,
		behavior.WithLogger(logger.Component("engine")),
		behavior.WithListener(listener),
	)
	if err != nil {
		return err
	}

	player := audio.NewPlayer(sk.Audio, audio.Options{
		Enabled:    g.cfg.Audio.Enabled,
		Volume:     g.cfg.Audio.Volume,
		SampleRate: g.cfg.Audio.SampleRate,
	}, logger.Component("audio"))
	if err := player.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: audio unavailable: %v\n", err)
	}
	defer player.Close()

	var phrases director.PhraseSource
	if g.cfg.LLM.Enabled {
		if im := startImproviser(g, sk, logger.Component("llm")); im != nil {
			defer im.Close()
			phrases = im
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Fini()

	view := terminal.New(screen, sk)
	opts := []director.Option{
		director.WithRenderer(view),
		director.WithSpeech(view),
		director.WithAudio(player),
		director.WithRand(rng),
		director.WithLogger(logger.Component("director")),
	}
	if phrases != nil {
		opts = append(opts, director.WithPhrases(phrases))
	}
	d := director.New(engine, director.FromSkin(sk), opts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, g.cfg.Loop.FPS) }()

	view.Loop(ctx, d)
	cancel()
	return <-done
}

// startImproviser checks that Ollama is up and has the model before handing
// out an improviser; otherwise the skin's phrase table is used alone.
func startImproviser(g *globals, sk *skin.Skin, log zerolog.Logger) *llm.Improviser {
	client := llm.NewClient(llm.Config{
		BaseURL: g.cfg.LLM.BaseURL,
		Model:   g.cfg.LLM.Model,
		Timeout: g.cfg.LLM.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot reach Ollama at %s: %v\n", g.cfg.LLM.BaseURL, err)
		fmt.Fprintln(os.Stderr, "Start Ollama with: ollama serve")
		return nil
	}

	found, available, err := client.CheckModel(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(os.Stderr, "Warning: could not list models: %v\n", err)
		return nil
	case !found:
		fmt.Fprintf(os.Stderr, "Warning: model %q not found, available: %v\n", client.Model(), available)
		fmt.Fprintf(os.Stderr, "Install with: ollama pull %s\n", client.Model())
		return nil
	}

	log.Info().Str("model", client.Model()).Str("skin", sk.Name).Msg("improviser ready")
	return llm.NewImproviser(client, sk, log)
}
