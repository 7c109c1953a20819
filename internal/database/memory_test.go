package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/serenify-journal/internal/models"
)

func newMemoryEntry(userID, title string, at time.Time) *models.Entry {
	return &models.Entry{
		UserID:      userID,
		Title:       title,
		ContentHTML: "<p>" + title + "</p>",
		Tags:        []string{"daily"},
		Categories:  []string{},
		Emotions:    []string{"happy"},
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func TestMemoryStoreOwnership(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	entry := newMemoryEntry("alice", "First", now)
	require.NoError(t, store.InsertEntry(ctx, entry))
	require.Equal(t, int64(1), entry.ID)

	found, err := store.FindEntry(ctx, "alice", entry.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "First", found.Title)

	found, err = store.FindEntry(ctx, "bob", entry.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	hijack := *entry
	hijack.UserID = "bob"
	hijack.Title = "Stolen"
	ok, err := store.UpdateEntry(ctx, &hijack)
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := store.DeleteEntry(ctx, "bob", entry.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	found, err = store.FindEntry(ctx, "alice", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "First", found.Title)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	entry := newMemoryEntry("alice", "First", time.Now())
	require.NoError(t, store.InsertEntry(ctx, entry))
	entry.Tags[0] = "mutated"

	found, err := store.FindEntry(ctx, "alice", entry.ID)
	require.NoError(t, err)
	found.Emotions[0] = "sad"

	again, err := store.FindEntry(ctx, "alice", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"daily"}, again.Tags)
	assert.Equal(t, []string{"happy"}, again.Emotions)
}

func TestMemoryStoreListOrderAndFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	older := newMemoryEntry("alice", "Older", base)
	newer := newMemoryEntry("alice", "Newer", base.Add(time.Hour))
	newer.Emotions = []string{"sad"}
	other := newMemoryEntry("bob", "Bob's", base.Add(2*time.Hour))
	for _, e := range []*models.Entry{older, newer, other} {
		require.NoError(t, store.InsertEntry(ctx, e))
	}

	entries, err := store.ListEntries(ctx, "alice", models.EntryQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Newer", entries[0].Title)
	assert.Equal(t, "Older", entries[1].Title)

	entries, err = store.ListEntries(ctx, "alice", models.EntryQuery{Emotion: "sad"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, newer.ID, entries[0].ID)

	entries, err = store.ListEntries(ctx, "alice", models.EntryQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, older.ID, entries[0].ID)

	entries, err = store.ListEntries(ctx, "nobody", models.EntryQuery{})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestMemoryStoreImages(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now().UTC()

	entry := newMemoryEntry("alice", "Photos", now)
	require.NoError(t, store.InsertEntry(ctx, entry))

	image, err := store.AddImage(ctx, "bob", entry.ID, "https://img/1.png", now)
	require.NoError(t, err)
	assert.Nil(t, image)

	image, err = store.AddImage(ctx, "alice", entry.ID, "https://img/1.png", now)
	require.NoError(t, err)
	require.NotNil(t, image)

	found, err := store.FindEntry(ctx, "alice", entry.ID)
	require.NoError(t, err)
	require.Len(t, found.Images, 1)
	assert.Equal(t, "https://img/1.png", found.Images[0].URL)

	// Updates keep the image list.
	found.Title = "Renamed"
	ok, err := store.UpdateEntry(ctx, found)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, found.Images, 1)

	removed, err := store.DeleteImage(ctx, "bob", entry.ID, image.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = store.DeleteImage(ctx, "alice", entry.ID, image.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	found, err = store.FindEntry(ctx, "alice", entry.ID)
	require.NoError(t, err)
	assert.Empty(t, found.Images)
}

func TestMemoryStoreInsertEntryWithImages(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	at := time.Date(2024, 12, 24, 18, 0, 0, 0, time.UTC)

	entry := newMemoryEntry("alice", "Imported", at)
	entry.Challenges = models.Challenges{}
	require.NoError(t, store.InsertEntryWithImages(ctx, entry, []string{"https://img/a.png", "https://img/b.png"}))
	require.NotZero(t, entry.ID)
	require.Len(t, entry.Images, 2)
	assert.NotEqual(t, entry.Images[0].ID, entry.Images[1].ID)
	assert.Equal(t, at, entry.Images[0].CreatedAt)

	found, err := store.FindEntry(ctx, "alice", entry.ID)
	require.NoError(t, err)
	require.Len(t, found.Images, 2)
	assert.Equal(t, "https://img/b.png", found.Images[1].URL)
	require.NotNil(t, found.Challenges)
	assert.Empty(t, found.Challenges)
}

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	user := &models.User{Username: "Quiet_Fox", PasswordHash: "hash"}
	require.NoError(t, store.CreateUser(ctx, user))
	assert.NotEmpty(t, user.ID)

	err := store.CreateUser(ctx, &models.User{Username: "quiet_fox", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	found, err := store.FindUserByUsername(ctx, "QUIET_FOX")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	byID, err := store.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "Quiet_Fox", byID.Username)

	missing, err := store.FindUserByUsername(ctx, "someone")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
