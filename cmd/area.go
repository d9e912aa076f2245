package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/london-map/internal/selection"
)

var (
	areaYear     int
	areaDwelling string
	areaSize     string
)

var areaCmd = &cobra.Command{
	Use:   "area <name>",
	Short: "Print the detail of a borough or postcode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := loadSession(cmd.Context())
		if err != nil {
			return err
		}

		var u selection.Update
		if cmd.Flags().Changed("year") {
			u.Year = &areaYear
		}
		if cmd.Flags().Changed("type") {
			u.DwellingType = &areaDwelling
		}
		if cmd.Flags().Changed("size") {
			u.SizeBand = &areaSize
		}
		if _, err := sess.UpdateSelection(u); err != nil {
			return eris.Wrap(err, "area: selection")
		}

		d, err := sess.Detail(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), d)
	},
}

func init() {
	areaCmd.Flags().IntVar(&areaYear, "year", 0, "price year (default latest)")
	areaCmd.Flags().StringVar(&areaDwelling, "type", "all", "dwelling type (flat, house, all)")
	areaCmd.Flags().StringVar(&areaSize, "size", "all", "size band (Q1..Q5, all)")
	rootCmd.AddCommand(areaCmd)
}
