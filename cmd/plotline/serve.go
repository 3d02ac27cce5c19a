package main

import (
	"github.com/aretw0/plotline/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts plotline as a JSON API over HTTP. Runs may overlap, so bundles are
named with random tokens unless allocation.strategy says otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := cli.Setup(globalOptions(cmd))
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("addr")
		debug, _ := cmd.Flags().GetBool("debug")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.RunServe(ctx, cfg, cli.ServeOptions{Addr: addr, Debug: debug, Logger: logger})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (overrides server.addr)")
	serveCmd.Flags().Bool("debug", false, "Log every pipeline stage")
}
