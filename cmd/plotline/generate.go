package main

import (
	"os"
	"strings"

	"github.com/aretw0/plotline/internal/cli"
	"github.com/aretw0/plotline/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:     "generate <concept>",
	Aliases: []string{"gen"},
	Short:   "Run the pipeline once for a concept",
	Long: `Expands the concept into a prompt, generates and traces an image, and writes
the raster, SVG and G-code into a new bundle under the storage root.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := cli.Setup(globalOptions(cmd))
		if err != nil {
			return err
		}
		debug, _ := cmd.Flags().GetBool("debug")
		plain, _ := cmd.Flags().GetBool("plain")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		err = cli.RunGenerate(ctx, cfg, cli.GenerateOptions{
			Concept: strings.Join(args, " "),
			Styled:  !plain && tui.IsTerminal(os.Stdout),
			Debug:   debug,
			Out:     cmd.OutOrStdout(),
			Logger:  logger,
		})
		if sig := ctx.Signal(); sig != nil {
			logger.Warn("Run interrupted", "signal", sig.String())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().Bool("debug", false, "Log every pipeline stage")
	generateCmd.Flags().Bool("plain", false, "Print the summary as plain Markdown")
}
