package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alex/mascot/internal/skin"
)

func newSkinsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "skins",
		Short:   "List built-in skins",
		Example: `mascot skins`,
		Args:    cobra.NoArgs,
		// Listing needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listSkins(cmd.OutOrStdout())
		},
	}

	return cmd
}

func listSkins(out io.Writer) error {
	for _, name := range skin.Names() {
		sk, err := skin.Load(name)
		if err != nil {
			return err
		}
		cfg := sk.EngineConfig()
		fmt.Fprintf(out, "%-12s %-12s %d moods, %d activities, %d tricks\n",
			sk.Name, sk.Title, len(cfg.Moods), len(cfg.Activities), len(cfg.Tricks))
		if sk.Description != "" {
			fmt.Fprintf(out, "             %s\n", sk.Description)
		}
	}
	return nil
}
