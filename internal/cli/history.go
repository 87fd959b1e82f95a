package cli

import (
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent agent runs and beacon events",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		history, err := openHistory(cmd.Context(), rt)
		if err != nil {
			return err
		}
		defer history.Close()

		runs, err := history.RecentRuns(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		events, err := history.RecentEvents(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}

		return printJSON(map[string]any{
			"runs":   runs,
			"events": events,
		})
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries per section")
	rootCmd.AddCommand(historyCmd)
}
