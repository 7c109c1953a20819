package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/AnshRaj112/serenify-journal/internal/models"
)

const titleWidth = 40

func newListCmd() *cobra.Command {
	var (
		userID       string
		limit        int
		search       string
		since, until string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one user's entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}

			q := models.EntryQuery{Search: strings.TrimSpace(search), Limit: limit}
			var err error
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

			result, err := entries.List(cmd.Context(), userID, q)
			if err != nil {
				return err
			}
			renderEntries(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User whose entries are listed")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries (0 for all)")
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive text search")
	cmd.Flags().StringVar(&since, "since", "", "Only entries created at or after this date")
	cmd.Flags().StringVar(&until, "until", "", "Only entries created at or before this date")
	return cmd
}

func renderEntries(w io.Writer, entries []models.Entry) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Created", "Title", "Emotions", "Tags", "Images"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.ID,
			e.CreatedAt.Format("2006-01-02 15:04"),
			truncate(e.Title, titleWidth),
			strings.Join(e.Emotions, ", "),
			strings.Join(e.Tags, ", "),
			len(e.Images),
		})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d entries", len(entries))})
	t.Render()
}

func truncate(s string, width int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= width {
		return string(runes)
	}
	return string(runes[:width-1]) + "…"
}
