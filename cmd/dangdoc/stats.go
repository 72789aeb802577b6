package dangdoc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dang-doctor/doctor-fe/internal/api"
)

var statsPeriod string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show weekly or monthly nutrition stats from the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(rt *appEnv) error {
			if _, err := requireLogin(rt); err != nil {
				return err
			}
			stats, err := rt.api.NutritionStats(cmd.Context(), statsPeriod)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := json.Indent(&buf, stats.Data, "", "  "); err != nil {
				return fmt.Errorf("format stats: %w", err)
			}
			buf.WriteByte('\n')
			_, err = buf.WriteTo(cmd.OutOrStdout())
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVar(&statsPeriod, "period", api.PeriodWeekly, "weekly or monthly")
}
