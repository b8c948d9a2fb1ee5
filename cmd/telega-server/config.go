package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/flemzord/telega-server/internal/config"
	"github.com/flemzord/telega-server/internal/security"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			app, ids, err := newApp(cfg, logger, security.NewRedactor(), strings.NewReader(""), io.Discard)
			if err != nil {
				return err
			}
			defer app.Stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK (%d modules)\n", len(ids))
			for _, id := range ids {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	})
	return cmd
}
