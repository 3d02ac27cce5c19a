package main

import (
	"io"
	"os"

	"github.com/aretw0/plotline/internal/cli"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert [file.svg]",
	Short: "Convert an SVG file to G-code",
	Long: `Converts SVG outlines into G-code without calling any remote service.
Reads standard input when no file is given and writes to standard output unless --output is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := cli.Setup(globalOptions(cmd))
		if err != nil {
			return err
		}

		var in io.Reader = cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		var out io.Writer = cmd.OutOrStdout()
		if path, _ := cmd.Flags().GetString("output"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		return cli.RunConvert(cfg, in, out)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringP("output", "o", "", "Write G-code to this file")
}
