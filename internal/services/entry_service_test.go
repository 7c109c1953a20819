package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/serenify-journal/internal/database"
	"github.com/AnshRaj112/serenify-journal/internal/models"
)

// stepClock advances one minute per call so creation order is unambiguous.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type memoryEventLog struct {
	mu     sync.Mutex
	events []models.EntryEvent
	fail   bool
}

func (l *memoryEventLog) Record(_ context.Context, event models.EntryEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return errors.New("mongo down")
	}
	l.events = append(l.events, event)
	return nil
}

func (l *memoryEventLog) ListEvents(_ context.Context, userID string, entryID int64) ([]models.EntryEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []models.EntryEvent{}
	for _, e := range l.events {
		if e.UserID == userID && e.EntryID == entryID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeBlobStore struct {
	uploads []string
}

func (b *fakeBlobStore) Upload(_ context.Context, filename string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	b.uploads = append(b.uploads, filename)
	return "https://res.cloudinary.test/" + filename, nil
}

// failingStore reports every call as a store fault.
type failingStore struct {
	*database.MemoryStore
}

func (*failingStore) ListEntries(context.Context, string, models.EntryQuery) ([]models.Entry, error) {
	return nil, errors.New("connection refused")
}

func (*failingStore) InsertEntry(context.Context, *models.Entry) error {
	return errors.New("connection refused")
}

func (*failingStore) InsertEntryWithImages(context.Context, *models.Entry, []string) error {
	return errors.New("connection refused")
}

// pausingStore holds its first listing after the snapshot is taken until
// release is closed.
type pausingStore struct {
	*database.MemoryStore
	once    sync.Once
	paused  chan struct{}
	release chan struct{}
}

func (p *pausingStore) ListEntries(ctx context.Context, userID string, q models.EntryQuery) ([]models.Entry, error) {
	entries, err := p.MemoryStore.ListEntries(ctx, userID, q)
	p.once.Do(func() {
		close(p.paused)
		<-p.release
	})
	return entries, err
}

func newTestService(t *testing.T) (*EntryService, *database.MemoryStore, *memoryEventLog) {
	t.Helper()
	store := database.NewMemoryStore()
	events := &memoryEventLog{}
	svc := NewEntryService(store, EntryServiceOptions{
		Events: events,
		Blobs:  &fakeBlobStore{},
		Now:    newStepClock().Now,
	})
	return svc, store, events
}

func fieldsWith(title string, emotions ...string) models.EntryFields {
	return models.EntryFields{Title: title, ContentHTML: "<p>" + title + "</p>", Emotions: emotions}
}

func TestCreateAssignsCallerAsOwner(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, "alice", fieldsWith("Morning"))
	require.NoError(t, err)
	assert.Equal(t, "alice", entry.UserID)
	assert.NotZero(t, entry.ID)
	assert.Equal(t, entry.CreatedAt, entry.UpdatedAt)
	assert.Equal(t, []string{}, entry.Tags)
	assert.Equal(t, []string{}, entry.Categories)
	assert.Equal(t, []models.Image{}, entry.Images)
	assert.Nil(t, entry.Song)
	assert.Nil(t, entry.Challenges)
	assert.Nil(t, entry.MoodScore)
}

func TestCreateRequiresIdentity(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "", fieldsWith("Morning"))
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCrossUserIsolation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, "alice", fieldsWith("Private"))
	require.NoError(t, err)

	_, err = svc.Get(ctx, "bob", entry.ID)
	assert.ErrorIs(t, err, ErrNotFoundOrUnauthorized)

	_, err = svc.Get(ctx, "", entry.ID)
	assert.ErrorIs(t, err, ErrNotFoundOrUnauthorized)

	listed, err := svc.List(ctx, "bob", models.EntryQuery{})
	require.NoError(t, err)
	assert.Empty(t, listed)

	_, err = svc.Update(ctx, "bob", entry.ID, fieldsWith("Hijacked"))
	assert.ErrorIs(t, err, ErrNotFoundOrUnauthorized)

	err = svc.Delete(ctx, "bob", entry.ID)
	assert.ErrorIs(t, err, ErrNotFoundOrUnauthorized)

	_, err = svc.AddImage(ctx, "bob", entry.ID, "https://img.test/x.png")
	assert.ErrorIs(t, err, ErrNotFoundOrUnauthorized)

	_, err = svc.History(ctx, "bob", entry.ID)
	assert.ErrorIs(t, err, ErrNotFoundOrUnauthorized)

	got, err := svc.Get(ctx, "alice", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Private", got.Title)
}

func TestListWithoutIdentityIsEmpty(t *testing.T) {
	svc, _, _ := newTestService(t)

	entries, err := svc.List(context.Background(), "", models.EntryQuery{})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestListLimitReturnsNewest(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		_, err := svc.Create(ctx, "alice", fieldsWith(title))
		require.NoError(t, err)
	}

	entries, err := svc.List(ctx, "alice", models.EntryQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "three", entries[0].Title)
}

func TestTagsRoundTripInOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	fields := fieldsWith("Tagged")
	fields.Tags = []string{"b", "a", "c"}
	entry, err := svc.Create(ctx, "alice", fields)
	require.NoError(t, err)

	got, err := svc.Get(ctx, "alice", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, got.Tags)
}

func TestUpdateReplacesAllFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	score := 7
	fields := fieldsWith("Draft", "happy")
	fields.Tags = []string{"a"}
	fields.Song = &models.Song{Title: "Holocene", Artist: "Bon Iver"}
	fields.Challenges = models.Challenges{"No sugar": "day 3"}
	fields.MoodScore = &score
	entry, err := svc.Create(ctx, "alice", fields)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "alice", entry.ID, models.EntryFields{ContentHTML: "<p>rewritten</p>"})
	require.NoError(t, err)
	assert.Equal(t, "", updated.Title)
	assert.Equal(t, "<p>rewritten</p>", updated.ContentHTML)
	assert.Equal(t, []string{}, updated.Tags)
	assert.Equal(t, []string{}, updated.Emotions)
	assert.Nil(t, updated.Song)
	assert.Nil(t, updated.Challenges)
	assert.Nil(t, updated.MoodScore)
	assert.True(t, updated.UpdatedAt.After(entry.UpdatedAt))
	assert.Equal(t, entry.CreatedAt, updated.CreatedAt)

	got, err := svc.Get(ctx, "alice", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.UpdatedAt, got.UpdatedAt)
	assert.Nil(t, got.Song)
}

func TestFailedUpdateChangesNothing(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, "alice", fieldsWith("Original", "calm"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, "bob", entry.ID, fieldsWith("Changed"))
	require.ErrorIs(t, err, ErrNotFoundOrUnauthorized)

	_, err = svc.Update(ctx, "", entry.ID, fieldsWith("Changed"))
	require.ErrorIs(t, err, ErrUnauthenticated)

	got, err := svc.Get(ctx, "alice", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Title)
	assert.Equal(t, []string{"calm"}, got.Emotions)
	assert.Equal(t, entry.UpdatedAt, got.UpdatedAt)
}

func TestDeleteRemovesImages(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, "alice", fieldsWith("With photos"))
	require.NoError(t, err)
	_, err = svc.AddImage(ctx, "alice", entry.ID, "https://img.test/1.png")
	require.NoError(t, err)
	_, err = svc.AttachImage(ctx, "alice", entry.ID, "2.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	got, err := svc.Get(ctx, "alice", entry.ID)
	require.NoError(t, err)
	require.Len(t, got.Images, 2)

	require.NoError(t, svc.Delete(ctx, "alice", entry.ID))

	_, err = svc.Get(ctx, "alice", entry.ID)
	assert.ErrorIs(t, err, ErrNotFoundOrUnauthorized)

	removed, err := store.DeleteImage(ctx, "alice", entry.ID, got.Images[0].ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestAttachImageChecksOwnershipBeforeUpload(t *testing.T) {
	store := database.NewMemoryStore()
	blobs := &fakeBlobStore{}
	svc := NewEntryService(store, EntryServiceOptions{Blobs: blobs})
	ctx := context.Background()

	entry, err := svc.Create(ctx, "alice", fieldsWith("Mine"))
	require.NoError(t, err)

	_, err = svc.AttachImage(ctx, "bob", entry.ID, "x.png", strings.NewReader("bytes"))
	assert.ErrorIs(t, err, ErrNotFoundOrUnauthorized)
	assert.Empty(t, blobs.uploads)

	image, err := svc.AttachImage(ctx, "alice", entry.ID, "x.png", strings.NewReader("bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.test/x.png", image.URL)
	assert.Equal(t, []string{"x.png"}, blobs.uploads)
}

func TestAttachImageWithoutBlobStore(t *testing.T) {
	svc := NewEntryService(database.NewMemoryStore(), EntryServiceOptions{})
	ctx := context.Background()

	entry, err := svc.Create(ctx, "alice", fieldsWith("Mine"))
	require.NoError(t, err)

	assert.False(t, svc.UploadsEnabled())
	_, err = svc.AttachImage(ctx, "alice", entry.ID, "x.png", strings.NewReader("bytes"))
	assert.ErrorIs(t, err, ErrUploadsDisabled)
}

func TestRemoveImage(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, "alice", fieldsWith("Photo"))
	require.NoError(t, err)
	image, err := svc.AddImage(ctx, "alice", entry.ID, "https://img.test/1.png")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.RemoveImage(ctx, "bob", entry.ID, image.ID), ErrNotFoundOrUnauthorized)
	require.NoError(t, svc.RemoveImage(ctx, "alice", entry.ID, image.ID))
	assert.ErrorIs(t, svc.RemoveImage(ctx, "alice", entry.ID, image.ID), ErrNotFoundOrUnauthorized)

	_, err = svc.AddImage(ctx, "alice", entry.ID, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestHistoryRecordsMutations(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, "alice", fieldsWith("Tracked"))
	require.NoError(t, err)
	_, err = svc.Update(ctx, "alice", entry.ID, fieldsWith("Tracked again"))
	require.NoError(t, err)
	image, err := svc.AddImage(ctx, "alice", entry.ID, "https://img.test/1.png")
	require.NoError(t, err)
	require.NoError(t, svc.RemoveImage(ctx, "alice", entry.ID, image.ID))

	events, err := svc.History(ctx, "alice", entry.ID)
	require.NoError(t, err)

	var types []models.EntryEventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []models.EntryEventType{
		models.EntryCreated, models.EntryUpdated, models.EntryImageAdded, models.EntryImageRemoved,
	}, types)
	assert.Equal(t, "https://img.test/1.png", events[2].Detail)
}

func TestHistoryFailuresDoNotFailMutations(t *testing.T) {
	store := database.NewMemoryStore()
	svc := NewEntryService(store, EntryServiceOptions{Events: &memoryEventLog{fail: true}})

	entry, err := svc.Create(context.Background(), "alice", fieldsWith("Still saved"))
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
}

func TestStoreFaultsAreWrapped(t *testing.T) {
	svc := NewEntryService(&failingStore{MemoryStore: database.NewMemoryStore()}, EntryServiceOptions{})
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", fieldsWith("x"))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "connection refused")

	_, err = svc.List(ctx, "alice", models.EntryQuery{})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestListUsesCacheAndInvalidates(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := database.NewMemoryStore()
	svc := NewEntryService(store, EntryServiceOptions{
		Cache: NewEntryListCache(client, time.Minute),
		Now:   newStepClock().Now,
	})
	ctx := context.Background()

	first, err := svc.Create(ctx, "alice", fieldsWith("first"))
	require.NoError(t, err)

	entries, err := svc.List(ctx, "alice", models.EntryQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, mr.Exists("cache:entries:alice"))

	// A write straight to the store is invisible until the cache is invalidated.
	now := time.Now().UTC()
	require.NoError(t, store.InsertEntry(ctx, &models.Entry{UserID: "alice", Title: "sneaky", CreatedAt: now, UpdatedAt: now}))
	entries, err = svc.List(ctx, "alice", models.EntryQuery{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// Filtered listings bypass the cache.
	entries, err = svc.List(ctx, "alice", models.EntryQuery{Search: "sneaky"})
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = svc.Update(ctx, "alice", first.ID, fieldsWith("first, edited"))
	require.NoError(t, err)
	assert.False(t, mr.Exists("cache:entries:alice"))

	entries, err = svc.List(ctx, "alice", models.EntryQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sneaky", entries[0].Title)

	entries, err = svc.List(ctx, "alice", models.EntryQuery{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestListDoesNotCacheSnapshotOlderThanMutation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &pausingStore{
		MemoryStore: database.NewMemoryStore(),
		paused:      make(chan struct{}),
		release:     make(chan struct{}),
	}
	svc := NewEntryService(store, EntryServiceOptions{Cache: NewEntryListCache(client, time.Minute)})
	ctx := context.Background()

	type listResult struct {
		entries []models.Entry
		err     error
	}
	done := make(chan listResult, 1)
	go func() {
		entries, err := svc.List(ctx, "alice", models.EntryQuery{})
		done <- listResult{entries, err}
	}()

	<-store.paused
	_, err := svc.Create(ctx, "alice", fieldsWith("written mid-read"))
	require.NoError(t, err)
	close(store.release)

	slow := <-done
	require.NoError(t, slow.err)
	assert.Empty(t, slow.entries)
	assert.False(t, mr.Exists("cache:entries:alice"))

	entries, err := svc.List(ctx, "alice", models.EntryQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "written mid-read", entries[0].Title)
	assert.True(t, mr.Exists("cache:entries:alice"))
}

func TestListFallsBackWhenCacheIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	store := database.NewMemoryStore()
	svc := NewEntryService(store, EntryServiceOptions{Cache: NewEntryListCache(client, time.Minute)})
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", fieldsWith("one"))
	require.NoError(t, err)

	mr.Close()

	entries, err := svc.List(ctx, "alice", models.EntryQuery{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestImportKeepsCreatedAtAndImages(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	createdAt := time.Date(2024, 12, 24, 18, 30, 0, 0, time.UTC)

	entry, err := svc.Import(ctx, "alice", fieldsWith("Christmas Eve", "happy"), createdAt,
		[]string{"https://img.test/tree.jpg", "", "https://img.test/dinner.jpg"})
	require.NoError(t, err)
	assert.Equal(t, createdAt, entry.CreatedAt)
	require.Len(t, entry.Images, 2)

	got, err := svc.Get(ctx, "alice", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, createdAt, got.CreatedAt)
	assert.Len(t, got.Images, 2)

	_, err = svc.Import(ctx, "", fieldsWith("x"), createdAt, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestImportStoreFaultLeavesNothingBehind(t *testing.T) {
	store := &failingStore{MemoryStore: database.NewMemoryStore()}
	events := &memoryEventLog{}
	svc := NewEntryService(store, EntryServiceOptions{Events: events})
	ctx := context.Background()

	_, err := svc.Import(ctx, "alice", fieldsWith("half written"), time.Now().UTC(),
		[]string{"https://img.test/a.jpg"})
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	entries, err := store.MemoryStore.ListEntries(ctx, "alice", models.EntryQuery{})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, events.events)
}
