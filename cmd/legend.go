package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/london-map/internal/metric"
	"github.com/sells-group/london-map/internal/style"
)

var legendMode string

var legendCmd = &cobra.Command{
	Use:   "legend",
	Short: "Print the legend of a map mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := metric.ParseKind(legendMode)
		if err != nil {
			return err
		}

		palette := style.DefaultPalette()
		if cfg.Style.PalettePath != "" {
			palette, err = style.LoadPalette(cfg.Style.PalettePath)
			if err != nil {
				return err
			}
		}
		return printJSON(cmd.OutOrStdout(), style.Legend(mode, palette))
	},
}

func init() {
	legendCmd.Flags().StringVar(&legendMode, "mode", "price", "map mode (price, crime, central, culture)")
	rootCmd.AddCommand(legendCmd)
}
