package models

import (
	"slices"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/AnshRaj112/serenify-journal/pkg/utils"
)

// EntryQuery narrows a listing. The zero value lists everything, newest first.
type EntryQuery struct {
	Search   string
	Category string
	Emotion  string
	Tag      string
	Since    *time.Time
	Until    *time.Time
	Limit    int
	Offset   int
}

// Filtered reports whether the query selects a subset or window other
// than "the first Limit entries".
func (q EntryQuery) Filtered() bool {
	return q.Search != "" || q.Category != "" || q.Emotion != "" || q.Tag != "" ||
		q.Since != nil || q.Until != nil || q.Offset > 0
}

// Matches applies the filters (not Limit/Offset) to a single entry.
func (q EntryQuery) Matches(e Entry) bool {
	if q.Category != "" && !slices.Contains(e.Categories, q.Category) {
		return false
	}
	if q.Emotion != "" && !slices.Contains(e.Emotions, q.Emotion) {
		return false
	}
	if q.Tag != "" && !slices.Contains(e.Tags, q.Tag) {
		return false
	}
	if q.Since != nil && e.CreatedAt.Before(*q.Since) {
		return false
	}
	if q.Until != nil && e.CreatedAt.After(*q.Until) {
		return false
	}
	if q.Search != "" && !matchesSearch(e, strings.ToLower(q.Search)) {
		return false
	}
	return true
}

// Window applies Offset and Limit to an already ordered slice.
func (q EntryQuery) Window(entries []Entry) []Entry {
	if q.Offset > 0 {
		if q.Offset >= len(entries) {
			return []Entry{}
		}
		entries = entries[q.Offset:]
	}
	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}
	return entries
}

func matchesSearch(e Entry, needle string) bool {
	if strings.Contains(strings.ToLower(e.Title), needle) ||
		strings.Contains(strings.ToLower(e.ContentHTML), needle) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	for _, name := range e.People.Names() {
		if strings.Contains(strings.ToLower(name), needle) {
			return true
		}
	}
	return false
}

// ParseDateRange parses optional from/to bounds in any format dateparse
// understands, in UTC. A date without a clock time as the upper bound
// covers that whole day.
func ParseDateRange(from, to string) (since, until *time.Time, err error) {
	if from = strings.TrimSpace(from); from != "" {
		t, err := dateparse.ParseIn(from, time.UTC)
		if err != nil {
			return nil, nil, utils.Invalid("from", "unrecognized date", err)
		}
		since = &t
	}
	if to = strings.TrimSpace(to); to != "" {
		t, err := dateparse.ParseIn(to, time.UTC)
		if err != nil {
			return nil, nil, utils.Invalid("to", "unrecognized date", err)
		}
		if t.Equal(t.Truncate(24 * time.Hour)) {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		until = &t
	}
	if since != nil && until != nil && since.After(*until) {
		return nil, nil, utils.Invalid("from", "must not be after to", nil)
	}
	return since, until, nil
}
