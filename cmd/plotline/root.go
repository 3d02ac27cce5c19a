package main

import (
	"fmt"
	"os"

	"github.com/aretw0/plotline/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "plotline",
	Short: "Plotline turns a concept into a plotter-ready drawing",
	Long: `Plotline expands a short concept into an image prompt, generates a raster image,
traces it into SVG outlines and converts those into G-code for a pen plotter.
Every run writes its artifacts into a fresh bundle directory.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file (default plotline.yaml when present)")
	rootCmd.PersistentFlags().String("root", "", "Directory that receives artifact bundles")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}

func globalOptions(cmd *cobra.Command) cli.GlobalOptions {
	configPath, _ := cmd.Flags().GetString("config")
	root, _ := cmd.Flags().GetString("root")
	level, _ := cmd.Flags().GetString("log-level")
	return cli.GlobalOptions{ConfigPath: configPath, Root: root, LogLevel: level}
}
