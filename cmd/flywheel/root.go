// cmd/flywheel/root.go
package main

import (
	"github.com/spf13/cobra"
)

const configFlag = "config"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "flywheel",
		Short: "Claim creator fees, buy back the token and burn it",
		Long: `flywheel claims accumulated pump.fun creator fees, swaps spendable SOL
into the configured token through Jupiter and sends the whole token
balance to the incinerator.

Configuration is read from the environment (RPC_URL, SECRET_KEY_B58,
TOKEN_MINT, ...) and optionally from a config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String(configFlag, "", "optional config file (yaml, json, toml)")

	root.AddCommand(newServeCmd(), newRunCmd())
	return root
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString(configFlag)
	return path
}
