package main

import (
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/alex/mascot/internal/behavior"
	"github.com/alex/mascot/internal/config"
	"github.com/alex/mascot/internal/logging"
	"github.com/alex/mascot/internal/skin"
)

// globals carries the persistent flags and the configuration they resolve to.
type globals struct {
	configFile string
	logLevel   string
	skin       string
	seed       int64

	cfg *config.Config
}

func NewRootCommand() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:           "mascot",
		Short:         "An animated character with moods, tricks and a sense of being watched",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.load(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.configFile, "config", "c", "", "config file (default ./mascot.yaml)")
	pf.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVarP(&g.skin, "skin", "s", "", "built-in skin name or path to a skin file")
	pf.Int64Var(&g.seed, "seed", 0, "random seed, 0 seeds from the clock")

	cmd.AddCommand(
		newRunCommand(g),
		newServeCommand(g),
		newSimulateCommand(g),
		newSkinsCommand(),
		newVersionCommand(),
	)

	return cmd
}

// load reads the config and applies the flags the user actually set.
func (g *globals) load(cmd *cobra.Command) error {
	cfg, err := config.Load(g.configFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if flags.Changed("skin") {
		cfg.Skin = g.skin
	}
	if flags.Changed("seed") {
		cfg.Loop.Seed = g.seed
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	g.cfg = cfg
	return nil
}

// logger builds the root logger. out is used when no log file is configured.
func (g *globals) logger(out io.Writer) (*logging.Logger, error) {
	return logging.New(logging.Options{
		Level:  g.cfg.Log.Level,
		Format: g.cfg.Log.Format,
		File:   g.cfg.Log.File,
		Writer: out,
	})
}

func (g *globals) rng() *rand.Rand {
	seed := g.cfg.Loop.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// engine loads the configured skin and builds its engine.
func (g *globals) engine(rng behavior.Rand, opts ...behavior.Option) (*skin.Skin, *behavior.Engine, error) {
	sk, err := skin.Resolve(g.cfg.Skin)
	if err != nil {
		return nil, nil, err
	}

	cfg := sk.EngineConfig()
	if p := g.cfg.Loop.ThresholdPolicy; p != "" {
		cfg.ThresholdPolicy = behavior.ThresholdPolicy(p)
	}
	opts = append([]behavior.Option{behavior.WithRand(rng)}, opts...)
	e, err := behavior.New(cfg, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("skin %s: %w", sk.Name, err)
	}
	return sk, e, nil
}
