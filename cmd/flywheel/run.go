// cmd/flywheel/run.go
package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/sol-flywheel/internal/api"
	"github.com/rovshanmuradov/sol-flywheel/internal/app"
	"github.com/rovshanmuradov/sol-flywheel/internal/config"
)

func newRunCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the flywheel once and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath(cmd))
			if err != nil {
				return err
			}
			return runOnce(cmd.Context(), cfg, verbose, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include run id and per-step status")
	return cmd
}

// runOnce печатает тот же JSON, что и HTTP-триггер. Ошибки шагов не меняют код выхода.
func runOnce(parent context.Context, cfg *config.Config, verbose bool, out io.Writer) error {
	a, err := app.New(parent, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	res, err := a.Runner.Trigger(parent)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(api.NewTriggerResponse(res, verbose))
}
