package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"

	"github.com/AnshRaj112/serenify-journal/internal/models"
)

// seedEntry is one element of a seed file. Dates may be written in any
// format dateparse understands ("July 4, 2025", "2025-07-04 08:30", ...).
type seedEntry struct {
	Title       string            `json:"title"`
	Date        string            `json:"date"`
	ContentHTML string            `json:"contentHtml"`
	Tags        []string          `json:"tags"`
	Categories  []string          `json:"categories"`
	Emotions    []string          `json:"emotions"`
	People      models.People     `json:"people"`
	Song        *models.Song      `json:"song"`
	Challenges  models.Challenges `json:"challenges"`
	MoodScore   *int              `json:"moodScore"`
	Images      []string          `json:"images"`
}

type seedItem struct {
	Fields    models.EntryFields
	CreatedAt time.Time
	Images    []string
}

// parseSeedFile decodes a JSON array of entries. A missing or unreadable
// date falls back to now.
func parseSeedFile(r io.Reader, now time.Time) ([]seedItem, error) {
	var raw []seedEntry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	items := make([]seedItem, 0, len(raw))
	for _, m := range raw {
		createdAt := now
		if d := strings.TrimSpace(m.Date); d != "" {
			if t, err := dateparse.ParseIn(d, time.UTC); err == nil {
				createdAt = t
			}
		}

		fields := models.EntryFields{
			Title:       m.Title,
			ContentHTML: m.ContentHTML,
			Tags:        m.Tags,
			Categories:  m.Categories,
			Emotions:    m.Emotions,
			People:      m.People,
			Song:        m.Song,
			Challenges:  m.Challenges,
			MoodScore:   m.MoodScore,
		}
		items = append(items, seedItem{
			Fields:    fields.Normalized(),
			CreatedAt: createdAt,
			Images:    m.Images,
		})
	}
	return items, nil
}

func newSeedCmd() *cobra.Command {
	var (
		userID string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert entries from a JSON file for one user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				userID = os.Getenv("SEED_USER_ID")
			}
			if userID == "" {
				return fmt.Errorf("--user or SEED_USER_ID is required")
			}

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			items, err := parseSeedFile(f, time.Now().UTC())
			if err != nil {
				return err
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			entries, cleanup := e.entryService(cmd.Context(), true)
			defer cleanup()

			e.logger.Info("Seeding entries", "user", userID, "count", len(items))
			for _, item := range items {
				entry, err := entries.Import(cmd.Context(), userID, item.Fields, item.CreatedAt, item.Images)
				if err != nil {
					return err
				}
				title := entry.Title
				if title == "" {
					title = "Untitled"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Inserted entry %d (%s)\n", entry.ID, title)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✅ Seeding complete.")
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Owner of the seeded entries (default $SEED_USER_ID)")
	cmd.Flags().StringVar(&file, "file", "entries.json", "Seed file: a JSON array of entries")
	return cmd
}
