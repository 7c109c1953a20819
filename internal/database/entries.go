package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/AnshRaj112/serenify-journal/internal/models"
)

const entryColumns = `id, user_id, title, content_html, tags, categories, emotions,
	people, song, challenges, mood_score, created_at, updated_at`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// EntryStore persists entries and their images in Postgres. Every method
// that touches an existing row filters on user_id in the same statement.
type EntryStore struct {
	db *sql.DB
}

func NewEntryStore(db *sql.DB) *EntryStore {
	return &EntryStore{db: db}
}

// InsertEntry stores e and sets its ID. CreatedAt and UpdatedAt are taken from e.
func (s *EntryStore) InsertEntry(ctx context.Context, e *models.Entry) error {
	if err := insertEntry(ctx, s.db, e); err != nil {
		return err
	}
	e.Images = []models.Image{}
	return nil
}

// InsertEntryWithImages stores e together with one image row per URL in a
// single transaction. Either everything is stored or nothing is.
func (s *EntryStore) InsertEntryWithImages(ctx context.Context, e *models.Entry, urls []string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertEntry(ctx, tx, e); err != nil {
		return err
	}

	images := make([]models.Image, 0, len(urls))
	for _, url := range urls {
		image := models.Image{EntryID: e.ID, URL: url}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO entry_images (entry_id, url, created_at)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, e.ID, url, e.CreatedAt).Scan(&image.ID, &image.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert image: %w", err)
		}
		images = append(images, image)
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	e.Images = images
	return nil
}

func insertEntry(ctx context.Context, q querier, e *models.Entry) error {
	people, song, challenges, err := encodeStructured(e)
	if err != nil {
		return err
	}

	return q.QueryRowContext(ctx, `
		INSERT INTO entries (user_id, title, content_html, tags, categories, emotions,
			people, song, challenges, mood_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, e.UserID, nullString(e.Title), e.ContentHTML,
		pq.Array(e.Tags), pq.Array(e.Categories), pq.Array(e.Emotions),
		people, song, challenges, nullInt(e.MoodScore), e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

// FindEntry returns (nil, nil) when no entry with id belongs to userID.
func (s *EntryStore) FindEntry(ctx context.Context, userID string, id int64) (*models.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = $1 AND user_id = $2`, id, userID)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	images, err := loadImagesForEntries(ctx, s.db, []int64{entry.ID})
	if err != nil {
		return nil, err
	}
	entry.Images = images[entry.ID]
	entry.Normalize()
	return &entry, nil
}

// ListEntries returns the user's entries newest first, filtered by q.
func (s *EntryStore) ListEntries(ctx context.Context, userID string, q models.EntryQuery) ([]models.Entry, error) {
	query, args := buildListQuery(userID, q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.Entry, 0)
	var entryIDs []int64
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		entryIDs = append(entryIDs, entry.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Load all images in one query instead of N queries
	if len(entryIDs) > 0 {
		images, err := loadImagesForEntries(ctx, s.db, entryIDs)
		if err != nil {
			return nil, err
		}
		for i := range entries {
			entries[i].Images = images[entries[i].ID]
		}
	}
	for i := range entries {
		entries[i].Normalize()
	}

	return entries, nil
}

// UpdateEntry rewrites every mutable column of e when e.ID is owned by
// e.UserID. It reports false, and changes nothing, otherwise. On success
// e.CreatedAt and e.Images are refreshed from the store. The write and the
// image reload share a transaction, so an error means nothing changed.
func (s *EntryStore) UpdateEntry(ctx context.Context, e *models.Entry) (updated bool, err error) {
	people, song, challenges, err := encodeStructured(e)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if !updated {
			_ = tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx, `
		UPDATE entries
		SET title = $3, content_html = $4, tags = $5, categories = $6, emotions = $7,
			people = $8, song = $9, challenges = $10, mood_score = $11, updated_at = $12
		WHERE id = $1 AND user_id = $2
		RETURNING created_at
	`, e.ID, e.UserID, nullString(e.Title), e.ContentHTML,
		pq.Array(e.Tags), pq.Array(e.Categories), pq.Array(e.Emotions),
		people, song, challenges, nullInt(e.MoodScore), e.UpdatedAt,
	).Scan(&e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	images, err := loadImagesForEntries(ctx, tx, []int64{e.ID})
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	e.Images = images[e.ID]
	e.Normalize()
	return true, nil
}

// DeleteEntry removes the entry; entry_images rows go with it through the
// ON DELETE CASCADE foreign key.
func (s *EntryStore) DeleteEntry(ctx context.Context, userID string, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// AddImage attaches url to the entry when userID owns it; (nil, nil) otherwise.
func (s *EntryStore) AddImage(ctx context.Context, userID string, entryID int64, url string, at time.Time) (*models.Image, error) {
	image := models.Image{EntryID: entryID, URL: url}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO entry_images (entry_id, url, created_at)
		SELECT id, $3, $4 FROM entries WHERE id = $1 AND user_id = $2
		RETURNING id, created_at
	`, entryID, userID, url, at).Scan(&image.ID, &image.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &image, nil
}

// DeleteImage removes one image of an entry owned by userID.
func (s *EntryStore) DeleteImage(ctx context.Context, userID string, entryID, imageID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM entry_images i
		USING entries e
		WHERE i.id = $1 AND i.entry_id = $2 AND e.id = i.entry_id AND e.user_id = $3
	`, imageID, entryID, userID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func buildListQuery(userID string, q models.EntryQuery) (string, []interface{}) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Category != "" {
		conditions = append(conditions, arg(q.Category)+" = ANY(categories)")
	}
	if q.Emotion != "" {
		conditions = append(conditions, arg(q.Emotion)+" = ANY(emotions)")
	}
	if q.Tag != "" {
		conditions = append(conditions, arg(q.Tag)+" = ANY(tags)")
	}
	if q.Since != nil {
		conditions = append(conditions, "created_at >= "+arg(*q.Since))
	}
	if q.Until != nil {
		conditions = append(conditions, "created_at <= "+arg(*q.Until))
	}
	if q.Search != "" {
		p := arg("%" + escapeLike(q.Search) + "%")
		conditions = append(conditions, `(
			COALESCE(title, '') ILIKE `+p+`
			OR content_html ILIKE `+p+`
			OR EXISTS (SELECT 1 FROM unnest(tags) AS t(tag) WHERE t.tag ILIKE `+p+`)
			OR CASE jsonb_typeof(people)
				WHEN 'object' THEN EXISTS (SELECT 1 FROM jsonb_object_keys(people) AS k(name) WHERE k.name ILIKE `+p+`)
				WHEN 'array' THEN EXISTS (SELECT 1 FROM jsonb_array_elements(people) AS x(person)
					WHERE COALESCE(x.person->>'name', x.person#>>'{}') ILIKE `+p+`)
				ELSE FALSE
			END
		)`)
	}

	query := "SELECT " + entryColumns + " FROM entries WHERE " +
		strings.Join(conditions, " AND ") + " ORDER BY created_at DESC, id DESC"

	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}
	if q.Offset > 0 {
		query += " OFFSET " + arg(q.Offset)
	}

	return query, args
}

// loadImagesForEntries loads images for multiple entries in a single query
func loadImagesForEntries(ctx context.Context, q querier, entryIDs []int64) (map[int64][]models.Image, error) {
	imageMap := make(map[int64][]models.Image)
	if len(entryIDs) == 0 {
		return imageMap, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, entry_id, url, created_at
		FROM entry_images
		WHERE entry_id = ANY($1)
		ORDER BY entry_id, id
	`, pq.Array(entryIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var image models.Image
		if err := rows.Scan(&image.ID, &image.EntryID, &image.URL, &image.CreatedAt); err != nil {
			return nil, err
		}
		imageMap[image.EntryID] = append(imageMap[image.EntryID], image)
	}

	return imageMap, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (models.Entry, error) {
	var (
		entry                    models.Entry
		title                    sql.NullString
		people, song, challenges []byte
		moodScore                sql.NullInt64
	)

	err := row.Scan(
		&entry.ID, &entry.UserID, &title, &entry.ContentHTML,
		pq.Array(&entry.Tags), pq.Array(&entry.Categories), pq.Array(&entry.Emotions),
		&people, &song, &challenges, &moodScore, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return models.Entry{}, err
	}

	entry.Title = title.String
	if moodScore.Valid {
		score := int(moodScore.Int64)
		entry.MoodScore = &score
	}
	if len(people) > 0 {
		if err := json.Unmarshal(people, &entry.People); err != nil {
			return models.Entry{}, fmt.Errorf("entry %d: decode people: %w", entry.ID, err)
		}
	}
	if len(song) > 0 {
		if err := json.Unmarshal(song, &entry.Song); err != nil {
			return models.Entry{}, fmt.Errorf("entry %d: decode song: %w", entry.ID, err)
		}
	}
	if len(challenges) > 0 {
		if err := json.Unmarshal(challenges, &entry.Challenges); err != nil {
			return models.Entry{}, fmt.Errorf("entry %d: decode challenges: %w", entry.ID, err)
		}
	}

	return entry, nil
}

// encodeStructured renders the JSONB columns. lib/pq would send []byte as
// bytea, so the values are passed as strings; nil becomes SQL NULL.
func encodeStructured(e *models.Entry) (people, song, challenges interface{}, err error) {
	peopleJSON, err := json.Marshal(e.People)
	if err != nil {
		return nil, nil, nil, err
	}
	people = string(peopleJSON)

	if e.Song != nil {
		songJSON, err := json.Marshal(e.Song)
		if err != nil {
			return nil, nil, nil, err
		}
		song = string(songJSON)
	}

	if e.Challenges != nil {
		challengesJSON, err := json.Marshal(e.Challenges)
		if err != nil {
			return nil, nil, nil, err
		}
		challenges = string(challengesJSON)
	}

	return people, song, challenges, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
