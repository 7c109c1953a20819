package models

import (
	"time"
)

// Entry is one private journal entry. UserID is fixed at creation and every
// read or write is filtered by it.
type Entry struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	ContentHTML string     `json:"content_html"`
	Tags        []string   `json:"tags"`
	Categories  []string   `json:"categories"`
	Emotions    []string   `json:"emotions"`
	People      People     `json:"people"`
	Song        *Song      `json:"song"`
	Challenges  Challenges `json:"challenges"`
	MoodScore   *int       `json:"mood_score"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Images      []Image    `json:"images"`
}

// Image is a stored reference to an uploaded picture; the bytes live in the blob store.
type Image struct {
	ID        int64     `json:"id"`
	EntryID   int64     `json:"entry_id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Song is the "song of the day".
type Song struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Challenges maps a challenge name to a free-text progress note.
type Challenges map[string]string

// EntryFields is every field a caller may submit. Updates replace all of
// them, so a field missing from the submission is reset to its default.
type EntryFields struct {
	Title       string     `json:"title"`
	ContentHTML string     `json:"contentHtml"`
	Tags        []string   `json:"tags"`
	Categories  []string   `json:"categories"`
	Emotions    []string   `json:"emotions"`
	People      People     `json:"people"`
	Song        *Song      `json:"song"`
	Challenges  Challenges `json:"challenges"`
	MoodScore   *int       `json:"moodScore"`
}

// Normalized returns a copy with nil sequences replaced by empty ones.
// Challenges keeps the difference between null and an empty object.
func (f EntryFields) Normalized() EntryFields {
	f.Tags = nonNil(f.Tags)
	f.Categories = nonNil(f.Categories)
	f.Emotions = nonNil(f.Emotions)
	return f
}

// Apply overwrites every submitted field on e.
func (f EntryFields) Apply(e *Entry) {
	f = f.Normalized()
	e.Title = f.Title
	e.ContentHTML = f.ContentHTML
	e.Tags = f.Tags
	e.Categories = f.Categories
	e.Emotions = f.Emotions
	e.People = f.People
	e.Song = f.Song
	e.Challenges = f.Challenges
	e.MoodScore = f.MoodScore
}

// Normalize fixes up values read back from a store or cache.
func (e *Entry) Normalize() {
	e.Tags = nonNil(e.Tags)
	e.Categories = nonNil(e.Categories)
	e.Emotions = nonNil(e.Emotions)
	if e.Images == nil {
		e.Images = []Image{}
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
