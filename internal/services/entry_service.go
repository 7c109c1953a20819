package services

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/pkg/utils"
)

// EntryStore is the persistence the entry service needs. Every method that
// addresses an existing entry must apply the ownership filter itself and
// report a miss (nil or false) for entries the user does not own.
type EntryStore interface {
	InsertEntry(ctx context.Context, e *models.Entry) error
	InsertEntryWithImages(ctx context.Context, e *models.Entry, urls []string) error
	FindEntry(ctx context.Context, userID string, id int64) (*models.Entry, error)
	ListEntries(ctx context.Context, userID string, q models.EntryQuery) ([]models.Entry, error)
	UpdateEntry(ctx context.Context, e *models.Entry) (bool, error)
	DeleteEntry(ctx context.Context, userID string, id int64) (bool, error)
	AddImage(ctx context.Context, userID string, entryID int64, url string, at time.Time) (*models.Image, error)
	DeleteImage(ctx context.Context, userID string, entryID, imageID int64) (bool, error)
}

// ListCache holds a user's complete, unfiltered listing.
type ListCache interface {
	GetEntries(ctx context.Context, userID string) ([]models.Entry, bool, error)
	Generation(ctx context.Context, userID string) (int64, error)
	SetEntries(ctx context.Context, userID string, generation int64, entries []models.Entry) error
	Invalidate(ctx context.Context, userID string) error
}

// EventLog records entry mutations.
type EventLog interface {
	Record(ctx context.Context, event models.EntryEvent) error
	ListEvents(ctx context.Context, userID string, entryID int64) ([]models.EntryEvent, error)
}

// BlobStore uploads image bytes and returns a public URL.
type BlobStore interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// EntryServiceOptions are the optional collaborators; nil fields disable the feature.
type EntryServiceOptions struct {
	Cache  ListCache
	Events EventLog
	Blobs  BlobStore
	Logger *log.Logger
	Now    func() time.Time
}

// EntryService is the entry repository: CRUD scoped to the caller's user id.
type EntryService struct {
	store  EntryStore
	cache  ListCache
	events EventLog
	blobs  BlobStore
	logger *log.Logger
	now    func() time.Time
}

func NewEntryService(store EntryStore, opts EntryServiceOptions) *EntryService {
	s := &EntryService{
		store:  store,
		cache:  opts.Cache,
		events: opts.Events,
		blobs:  opts.Blobs,
		logger: opts.Logger,
		now:    opts.Now,
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// UploadsEnabled reports whether AttachImage has a blob store to write to.
func (s *EntryService) UploadsEnabled() bool {
	return s.blobs != nil
}

// Create stores a new entry owned by userID.
func (s *EntryService) Create(ctx context.Context, userID string, fields models.EntryFields) (*models.Entry, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	now := s.now().UTC()
	entry := &models.Entry{UserID: userID, CreatedAt: now, UpdatedAt: now}
	fields.Apply(entry)

	if err := s.store.InsertEntry(ctx, entry); err != nil {
		return nil, storeFailure("create entry", err)
	}
	entry.Normalize()

	s.invalidate(ctx, userID)
	s.record(ctx, userID, entry.ID, models.EntryCreated, "")
	return entry, nil
}

// Get returns the entry with its images. A missing identity, a missing
// entry and someone else's entry all yield ErrNotFoundOrUnauthorized.
func (s *EntryService) Get(ctx context.Context, userID string, id int64) (*models.Entry, error) {
	if userID == "" {
		return nil, ErrNotFoundOrUnauthorized
	}

	entry, err := s.store.FindEntry(ctx, userID, id)
	if err != nil {
		return nil, storeFailure("get entry", err)
	}
	if entry == nil {
		return nil, ErrNotFoundOrUnauthorized
	}
	return entry, nil
}

// List returns the caller's entries newest first. Without an identity the
// result is empty rather than an error.
func (s *EntryService) List(ctx context.Context, userID string, q models.EntryQuery) ([]models.Entry, error) {
	if userID == "" {
		return []models.Entry{}, nil
	}

	if s.cache == nil || q.Filtered() {
		entries, err := s.store.ListEntries(ctx, userID, q)
		if err != nil {
			return nil, storeFailure("list entries", err)
		}
		return entries, nil
	}

	entries, hit, err := s.cache.GetEntries(ctx, userID)
	if err != nil {
		s.logger.Warn("listing cache read failed", "user", userID, "err", err)
	}
	if !hit {
		// The generation is read before the store so a mutation racing this
		// read keeps the snapshot out of the cache.
		generation, genErr := s.cache.Generation(ctx, userID)
		entries, err = s.store.ListEntries(ctx, userID, models.EntryQuery{})
		if err != nil {
			return nil, storeFailure("list entries", err)
		}
		if genErr != nil {
			s.logger.Warn("listing cache generation read failed", "user", userID, "err", genErr)
		} else if err := s.cache.SetEntries(ctx, userID, generation, entries); err != nil {
			s.logger.Warn("listing cache write failed", "user", userID, "err", err)
		}
	}
	return q.Window(entries), nil
}

// Update replaces every submitted field of an owned entry and bumps
// UpdatedAt. The ownership check and the write are one store call.
func (s *EntryService) Update(ctx context.Context, userID string, id int64, fields models.EntryFields) (*models.Entry, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	entry := &models.Entry{ID: id, UserID: userID, UpdatedAt: s.now().UTC()}
	fields.Apply(entry)

	ok, err := s.store.UpdateEntry(ctx, entry)
	if err != nil {
		return nil, storeFailure("update entry", err)
	}
	if !ok {
		return nil, ErrNotFoundOrUnauthorized
	}
	entry.Normalize()

	s.invalidate(ctx, userID)
	s.record(ctx, userID, id, models.EntryUpdated, "")
	return entry, nil
}

// Delete removes an owned entry together with its images.
func (s *EntryService) Delete(ctx context.Context, userID string, id int64) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	ok, err := s.store.DeleteEntry(ctx, userID, id)
	if err != nil {
		return storeFailure("delete entry", err)
	}
	if !ok {
		return ErrNotFoundOrUnauthorized
	}

	s.invalidate(ctx, userID)
	s.record(ctx, userID, id, models.EntryDeleted, "")
	return nil
}

// AttachImage uploads r to the blob store and records the resulting URL on
// an owned entry. Ownership is checked before any bytes are uploaded.
func (s *EntryService) AttachImage(ctx context.Context, userID string, entryID int64, filename string, r io.Reader) (*models.Image, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if s.blobs == nil {
		return nil, ErrUploadsDisabled
	}

	if _, err := s.Get(ctx, userID, entryID); err != nil {
		return nil, err
	}

	url, err := s.blobs.Upload(ctx, filename, r)
	if err != nil {
		return nil, storeFailure("upload image", err)
	}

	image, err := s.AddImage(ctx, userID, entryID, url)
	if err != nil {
		s.logger.Warn("uploaded image was not attached", "entry", entryID, "url", url, "err", err)
		return nil, err
	}
	return image, nil
}

// AddImage records an already hosted image URL on an owned entry.
func (s *EntryService) AddImage(ctx context.Context, userID string, entryID int64, url string) (*models.Image, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if url == "" {
		return nil, utils.Invalid("url", "image url is required", nil)
	}

	image, err := s.store.AddImage(ctx, userID, entryID, url, s.now().UTC())
	if err != nil {
		return nil, storeFailure("add image", err)
	}
	if image == nil {
		return nil, ErrNotFoundOrUnauthorized
	}

	s.invalidate(ctx, userID)
	s.record(ctx, userID, entryID, models.EntryImageAdded, url)
	return image, nil
}

// RemoveImage deletes one image row of an owned entry. The blob itself is left in place.
func (s *EntryService) RemoveImage(ctx context.Context, userID string, entryID, imageID int64) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	ok, err := s.store.DeleteImage(ctx, userID, entryID, imageID)
	if err != nil {
		return storeFailure("remove image", err)
	}
	if !ok {
		return ErrNotFoundOrUnauthorized
	}

	s.invalidate(ctx, userID)
	s.record(ctx, userID, entryID, models.EntryImageRemoved, "")
	return nil
}

// History returns the mutation events of an owned entry, oldest first.
func (s *EntryService) History(ctx context.Context, userID string, entryID int64) ([]models.EntryEvent, error) {
	if _, err := s.Get(ctx, userID, entryID); err != nil {
		return nil, err
	}
	if s.events == nil {
		return []models.EntryEvent{}, nil
	}

	events, err := s.events.ListEvents(ctx, userID, entryID)
	if err != nil {
		return nil, storeFailure("load history", err)
	}
	return events, nil
}

func (s *EntryService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("listing cache invalidation failed", "user", userID, "err", err)
	}
}

func (s *EntryService) record(ctx context.Context, userID string, entryID int64, eventType models.EntryEventType, detail string) {
	if s.events == nil {
		return
	}
	event := models.EntryEvent{
		EntryID:   entryID,
		UserID:    userID,
		Type:      eventType,
		Detail:    detail,
		CreatedAt: s.now().UTC(),
	}
	if err := s.events.Record(ctx, event); err != nil {
		s.logger.Warn("failed to record entry event", "entry", entryID, "type", eventType, "err", err)
	}
}

// Import stores an entry with a caller-chosen creation time and already
// hosted image URLs. It backs the seed command; HTTP callers use Create.
func (s *EntryService) Import(ctx context.Context, userID string, fields models.EntryFields, createdAt time.Time, imageURLs []string) (*models.Entry, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	createdAt = createdAt.UTC()
	entry := &models.Entry{UserID: userID, CreatedAt: createdAt, UpdatedAt: createdAt}
	fields.Apply(entry)

	urls := make([]string, 0, len(imageURLs))
	for _, url := range imageURLs {
		if url = strings.TrimSpace(url); url != "" {
			urls = append(urls, url)
		}
	}

	if err := s.store.InsertEntryWithImages(ctx, entry, urls); err != nil {
		return nil, storeFailure("import entry", err)
	}
	entry.Normalize()

	s.invalidate(ctx, userID)
	s.record(ctx, userID, entry.ID, models.EntryCreated, "imported")
	return entry, nil
}
