package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alex/mascot/internal/behavior"
	"github.com/alex/mascot/internal/director"
	"github.com/alex/mascot/internal/journal"
)

type simulateOptions struct {
	seconds float64
	dt      float64
	quiet   bool
	journal string
}

func newSimulateCommand(g *globals) *cobra.Command {
	o := simulateOptions{}

	cmd := &cobra.Command{
		Use:     "simulate",
		Aliases: []string{"sim"},
		Short:   "Run the engine headless and print what happens",
		Example: `mascot simulate --skin classic-imp --seconds 300 --seed 42`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("journal") {
				g.cfg.Journal.Path = o.journal
			}
			if g.cfg.Loop.Seed == 0 {
				g.cfg.Loop.Seed = 1
			}
			return simulate(cmd.Context(), cmd.OutOrStdout(), g, o)
		},
	}

	cmd.Flags().Float64Var(&o.seconds, "seconds", 120, "simulated seconds")
	cmd.Flags().Float64Var(&o.dt, "dt", 1.0/30, "seconds per frame")
	cmd.Flags().BoolVarP(&o.quiet, "quiet", "q", false, "print only the summary")
	cmd.Flags().StringVar(&o.journal, "journal", "", "record transitions to this sqlite file")

	return cmd
}

// transcript prints events and speech as the simulation runs.
type transcript struct {
	out    io.Writer
	quiet  bool
	clock  float64
	counts map[behavior.EventKind]int
	lines  int
}

func (t *transcript) event(ev behavior.Event) {
	t.counts[ev.Kind]++
	if t.quiet {
		return
	}
	switch {
	case ev.Trick != "":
		fmt.Fprintf(t.out, "[%8.2fs] %s %s\n", ev.Elapsed, ev.Kind, ev.Trick)
	case ev.From != "" || ev.To != "":
		fmt.Fprintf(t.out, "[%8.2fs] %s %s -> %s\n", ev.Elapsed, ev.Kind, ev.From, ev.To)
	default:
		fmt.Fprintf(t.out, "[%8.2fs] %s\n", ev.Elapsed, ev.Kind)
	}
}

func (t *transcript) Say(text string, _ time.Duration) {
	t.lines++
	if !t.quiet {
		fmt.Fprintf(t.out, "[%8.2fs] says %q\n", t.clock, text)
	}
}

func (t *transcript) Draw(p director.Pose) { t.clock = p.Clock }
func (t *transcript) Blink()               {}
func (t *transcript) SetSpotlight(bool)    {}

func simulate(ctx context.Context, out io.Writer, g *globals, o simulateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if o.seconds <= 0 || o.dt <= 0 || math.IsInf(o.seconds/o.dt, 0) {
		return errors.New("--seconds and --dt must be positive")
	}

	logger, err := g.logger(os.Stderr)
	if err != nil {
		return err
	}
	defer logger.Close()

	t := &transcript{out: out, quiet: o.quiet, counts: make(map[behavior.EventKind]int)}
	listener := behavior.Listener(t.event)

	session := "simulate-" + uuid.NewString()
	if g.cfg.Journal.Path != "" {
		j, err := journal.Open(g.cfg.Journal.Path, logger.Component("journal"))
		if err != nil {
			return err
		}
		defer j.Close()
		listener = behavior.Fanout(j.Listener(session), t.event)
	}

	rng := g.rng()
	sk, engine, err := g.engine(rng,
		behavior.WithLogger(logger.Component("engine")),
		behavior.WithListener(listener),
	)
	if err != nil {
		return err
	}

	d := director.New(engine, director.FromSkin(sk),
		director.WithRenderer(t),
		director.WithSpeech(t),
		director.WithRand(rng),
		director.WithLogger(logger.Component("director")),
	)

	fmt.Fprintf(out, "%s (seed %d): %.0fs at dt %.4f\n", sk.Name, g.cfg.Loop.Seed, o.seconds, o.dt)
	if g.cfg.Journal.Path != "" {
		fmt.Fprintf(out, "journal session %s\n", session)
	}

	d.Start()
	steps := int(math.Ceil(o.seconds / o.dt))
	for i := 0; i < steps; i++ {
		if i%1000 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		d.Tick(o.dt)
	}

	printSummary(out, t, d.Snapshot())
	return nil
}

func printSummary(out io.Writer, t *transcript, s behavior.State) {
	fmt.Fprintln(out, "summary:")

	kinds := make([]behavior.EventKind, 0, len(t.counts))
	for k := range t.counts {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	for _, k := range kinds {
		fmt.Fprintf(out, "  %-22s %d\n", k, t.counts[k])
	}
	fmt.Fprintf(out, "  %-22s %d\n", "lines_spoken", t.lines)

	trick := string(s.LastPerformance)
	if trick == "" {
		trick = "-"
	}
	fmt.Fprintf(out, "final: mood=%s activity=%s attention=%.1f level=%.2f last_trick=%s\n",
		s.Mood, s.Activity, s.Attention, s.PerformanceLevel, trick)
}
