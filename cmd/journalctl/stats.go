package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/internal/services"
)

type statsOutput struct {
	Emotions []models.EmotionCount `json:"emotions"`
	People   []models.PersonStat   `json:"people"`
}

func newStatsCmd() *cobra.Command {
	var (
		userID       string
		asJSON       bool
		since, until string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show emotion and people stats for one user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			var (
				q   models.EntryQuery
				err error
			)
			if q.Since, q.Until, err = models.ParseDateRange(since, until); err != nil {
				return err
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			entries, cleanup := e.entryService(cmd.Context(), false)
			defer cleanup()
			analytics := services.NewAnalytics(entries)

			emotions, err := analytics.EmotionStatsFor(cmd.Context(), userID, q)
			if err != nil {
				return err
			}
			people, err := analytics.PeopleStatsFor(cmd.Context(), userID, q)
			if err != nil {
				return err
			}

			out := statsOutput{Emotions: services.SortedEmotionCounts(emotions), People: people}
			if asJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(out)
			}
			renderStats(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User whose entries are aggregated")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of tables")
	cmd.Flags().StringVar(&since, "since", "", "Only entries created at or after this date")
	cmd.Flags().StringVar(&until, "until", "", "Only entries created at or before this date")
	return cmd
}

func renderStats(w io.Writer, out statsOutput) {
	emotions := table.NewWriter()
	emotions.SetOutputMirror(w)
	emotions.SetStyle(table.StyleLight)
	emotions.SetTitle("Emotions")
	emotions.AppendHeader(table.Row{"Emotion", "Count"})
	for _, c := range out.Emotions {
		emotions.AppendRow(table.Row{c.Emotion, c.Count})
	}
	emotions.Render()

	people := table.NewWriter()
	people.SetOutputMirror(w)
	people.SetStyle(table.StyleLight)
	people.SetTitle("People")
	people.AppendHeader(table.Row{"Name", "Mentions", "Sentiment"})
	for _, p := range out.People {
		people.AppendRow(table.Row{p.Name, p.Count, p.Sentiment})
	}
	people.Render()
}
