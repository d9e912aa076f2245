package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/london-map/internal/area"
)

var (
	statsLevel string
	statsYear  int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print population thresholds and ranges for every metric",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := area.ParseLevel(statsLevel)
		if err != nil {
			return err
		}

		sess, err := loadSession(cmd.Context())
		if err != nil {
			return err
		}

		year := statsYear
		if year == 0 {
			year = sess.Selection().Year
		}
		return printJSON(cmd.OutOrStdout(), sess.PopulationStats(level, year))
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsLevel, "level", "borough", "area level (borough, postcode)")
	statsCmd.Flags().IntVar(&statsYear, "year", 0, "year for yearly metrics (default latest)")
	rootCmd.AddCommand(statsCmd)
}
