package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alex/mascot/internal/behavior"
	"github.com/alex/mascot/internal/journal"
	"github.com/alex/mascot/internal/server"
)

func newServeCommand(g *globals) *cobra.Command {
	var (
		addr    string
		history string
	)

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Host characters over HTTP and websockets",
		Example: `mascot serve --addr :9000 --journal history.db`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				g.cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("journal") {
				g.cfg.Journal.Path = history
			}
			return serve(cmd.Context(), g)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&history, "journal", "", "record transitions to this sqlite file")

	return cmd
}

func serve(ctx context.Context, g *globals) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := g.logger(os.Stderr)
	if err != nil {
		return err
	}
	defer logger.Close()

	if logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	var j *journal.Journal
	if g.cfg.Journal.Path != "" {
		j, err = journal.Open(g.cfg.Journal.Path, logger.Component("journal"))
		if err != nil {
			return err
		}
		defer j.Close()
	}

	c := g.cfg.Server
	srv := server.New(server.Options{
		Addr:            c.Addr,
		FPS:             c.FPS,
		TriggerRate:     c.TriggerRate,
		TriggerBurst:    c.TriggerBurst,
		MaxSessions:     c.MaxSessions,
		ShutdownTimeout: c.ShutdownTimeout,
		ThresholdPolicy: behavior.ThresholdPolicy(g.cfg.Loop.ThresholdPolicy),
	}, j, logger.Component("server"))

	return srv.Run(ctx)
}
