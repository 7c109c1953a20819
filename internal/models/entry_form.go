package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/AnshRaj112/serenify-journal/pkg/utils"
)

// Form field names sent by the entry editor. The list and structured fields
// arrive as JSON-encoded strings.
const (
	FieldTitle       = "title"
	FieldContentHTML = "contentHtml"
	FieldTags        = "tags"
	FieldCategories  = "categories"
	FieldEmotions    = "emotions"
	FieldPeople      = "people"
	FieldSong        = "song"
	FieldChallenges  = "challenges"
	FieldMoodScore   = "moodScore"
)

// ParseEntryForm decodes a submitted entry form. Absent fields take their
// defaults; a value that does not parse is a *utils.ValidationError.
func ParseEntryForm(values url.Values) (EntryFields, error) {
	var (
		fields EntryFields
		err    error
	)

	fields.Title = values.Get(FieldTitle)
	fields.ContentHTML = values.Get(FieldContentHTML)

	if fields.Tags, err = parseStringList(FieldTags, values.Get(FieldTags)); err != nil {
		return EntryFields{}, err
	}
	if fields.Categories, err = parseStringList(FieldCategories, values.Get(FieldCategories)); err != nil {
		return EntryFields{}, err
	}
	if fields.Emotions, err = parseStringList(FieldEmotions, values.Get(FieldEmotions)); err != nil {
		return EntryFields{}, err
	}

	if raw := strings.TrimSpace(values.Get(FieldPeople)); raw != "" {
		if err := json.Unmarshal([]byte(raw), &fields.People); err != nil {
			return EntryFields{}, asValidation(FieldPeople, err)
		}
	}

	if raw := strings.TrimSpace(values.Get(FieldSong)); raw != "" {
		if err := json.Unmarshal([]byte(raw), &fields.Song); err != nil {
			return EntryFields{}, asValidation(FieldSong, err)
		}
	}

	if raw := strings.TrimSpace(values.Get(FieldChallenges)); raw != "" {
		if err := json.Unmarshal([]byte(raw), &fields.Challenges); err != nil {
			return EntryFields{}, asValidation(FieldChallenges, err)
		}
	}

	if fields.MoodScore, err = parseMoodScore(values.Get(FieldMoodScore)); err != nil {
		return EntryFields{}, err
	}

	return fields.Normalized(), nil
}

// entryPayload is the JSON body of create and update. Besides the form keys
// it accepts the keys an Entry is rendered with, so an entry read from the
// API can be sent back unchanged. Read-only keys are accepted and ignored;
// any other key is rejected.
type entryPayload struct {
	Title            string     `json:"title"`
	ContentHTML      *string    `json:"contentHtml"`
	ContentHTMLSnake *string    `json:"content_html"`
	Tags             []string   `json:"tags"`
	Categories       []string   `json:"categories"`
	Emotions         []string   `json:"emotions"`
	People           People     `json:"people"`
	Song             *Song      `json:"song"`
	Challenges       Challenges `json:"challenges"`
	MoodScore        *int       `json:"moodScore"`
	MoodScoreSnake   *int       `json:"mood_score"`

	ID        json.RawMessage `json:"id"`
	UserID    json.RawMessage `json:"user_id"`
	UserIDAlt json.RawMessage `json:"userId"`
	CreatedAt json.RawMessage `json:"created_at"`
	UpdatedAt json.RawMessage `json:"updated_at"`
	Images    json.RawMessage `json:"images"`
}

// DecodeEntryJSON decodes a JSON request body holding native JSON values
// under the same keys as the form. The owner in the body is ignored.
func DecodeEntryJSON(data []byte) (EntryFields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var p entryPayload
	if err := dec.Decode(&p); err != nil {
		if field, ok := unknownField(err); ok {
			return EntryFields{}, utils.Invalid(field, "unknown field", err)
		}
		return EntryFields{}, asValidation("body", err)
	}

	fields := EntryFields{
		Title:      p.Title,
		Tags:       p.Tags,
		Categories: p.Categories,
		Emotions:   p.Emotions,
		People:     p.People,
		Song:       p.Song,
		Challenges: p.Challenges,
		MoodScore:  p.MoodScore,
	}
	switch {
	case p.ContentHTML != nil:
		fields.ContentHTML = *p.ContentHTML
	case p.ContentHTMLSnake != nil:
		fields.ContentHTML = *p.ContentHTMLSnake
	}
	if fields.MoodScore == nil {
		fields.MoodScore = p.MoodScoreSnake
	}
	return fields.Normalized(), nil
}

func unknownField(err error) (string, bool) {
	const prefix = "json: unknown field "
	msg := err.Error()
	if !strings.HasPrefix(msg, prefix) {
		return "", false
	}
	return strings.Trim(strings.TrimPrefix(msg, prefix), `"`), true
}

func parseStringList(field, raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, utils.Invalid(field, "must be a JSON array of strings", err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

func parseMoodScore(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	score, err := strconv.Atoi(raw)
	if err != nil {
		return nil, utils.Invalid(FieldMoodScore, "must be an integer", err)
	}
	return &score, nil
}

func asValidation(field string, err error) error {
	var verr *utils.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return utils.Invalid(field, "malformed JSON value", err)
}
