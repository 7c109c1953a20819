package database

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/serenify-journal/internal/models"
)

// MemoryStore keeps entries and users in process. It has the same method set
// as EntryStore and UserStore and is used for STORE_DRIVER=memory and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	nextEntryID int64
	nextImageID int64
	entries     map[int64]models.Entry
	users       map[string]models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[int64]models.Entry),
		users:   make(map[string]models.User),
	}
}

func (m *MemoryStore) InsertEntry(_ context.Context, e *models.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextEntryID++
	e.ID = m.nextEntryID
	e.Images = []models.Image{}
	m.entries[e.ID] = cloneEntry(*e)
	return nil
}

// InsertEntryWithImages stores e and its images under one lock.
func (m *MemoryStore) InsertEntryWithImages(_ context.Context, e *models.Entry, urls []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextEntryID++
	e.ID = m.nextEntryID
	e.Images = make([]models.Image, 0, len(urls))
	for _, url := range urls {
		m.nextImageID++
		e.Images = append(e.Images, models.Image{ID: m.nextImageID, EntryID: e.ID, URL: url, CreatedAt: e.CreatedAt})
	}
	m.entries[e.ID] = cloneEntry(*e)
	return nil
}

func (m *MemoryStore) FindEntry(_ context.Context, userID string, id int64) (*models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.entries[id]
	if !ok || stored.UserID != userID {
		return nil, nil
	}
	entry := cloneEntry(stored)
	return &entry, nil
}

func (m *MemoryStore) ListEntries(_ context.Context, userID string, q models.EntryQuery) ([]models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]models.Entry, 0)
	for _, stored := range m.entries {
		if stored.UserID == userID && q.Matches(stored) {
			entries = append(entries, cloneEntry(stored))
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID > entries[j].ID
	})
	return q.Window(entries), nil
}

func (m *MemoryStore) UpdateEntry(_ context.Context, e *models.Entry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.entries[e.ID]
	if !ok || stored.UserID != e.UserID {
		return false, nil
	}

	e.CreatedAt = stored.CreatedAt
	e.Images = cloneImages(stored.Images)
	m.entries[e.ID] = cloneEntry(*e)
	return true, nil
}

func (m *MemoryStore) DeleteEntry(_ context.Context, userID string, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.entries[id]
	if !ok || stored.UserID != userID {
		return false, nil
	}
	delete(m.entries, id)
	return true, nil
}

func (m *MemoryStore) AddImage(_ context.Context, userID string, entryID int64, url string, at time.Time) (*models.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.entries[entryID]
	if !ok || stored.UserID != userID {
		return nil, nil
	}

	m.nextImageID++
	image := models.Image{ID: m.nextImageID, EntryID: entryID, URL: url, CreatedAt: at}
	stored.Images = append(cloneImages(stored.Images), image)
	m.entries[entryID] = stored
	return &image, nil
}

func (m *MemoryStore) DeleteImage(_ context.Context, userID string, entryID, imageID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.entries[entryID]
	if !ok || stored.UserID != userID {
		return false, nil
	}

	idx := slices.IndexFunc(stored.Images, func(img models.Image) bool { return img.ID == imageID })
	if idx == -1 {
		return false, nil
	}
	stored.Images = slices.Delete(cloneImages(stored.Images), idx, idx+1)
	m.entries[entryID] = stored
	return true, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(u.Username)
	if _, ok := m.users[key]; ok {
		return ErrUsernameTaken
	}

	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	u.IsActive = true
	m.users[key] = *u
	return nil
}

func (m *MemoryStore) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[strings.ToLower(username)]
	if !ok || !user.IsActive {
		return nil, nil
	}
	return &user, nil
}

func (m *MemoryStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.ID == id && user.IsActive {
			return &user, nil
		}
	}
	return nil, nil
}

// cloneEntry copies every reference field so callers cannot mutate stored state.
func cloneEntry(e models.Entry) models.Entry {
	e.Tags = slices.Clone(e.Tags)
	e.Categories = slices.Clone(e.Categories)
	e.Emotions = slices.Clone(e.Emotions)
	e.Challenges = maps.Clone(e.Challenges)
	e.Images = cloneImages(e.Images)
	if e.Song != nil {
		song := *e.Song
		e.Song = &song
	}
	if e.MoodScore != nil {
		score := *e.MoodScore
		e.MoodScore = &score
	}
	e.People = clonePeople(e.People)
	e.Normalize()
	return e
}

func cloneImages(images []models.Image) []models.Image {
	if images == nil {
		return []models.Image{}
	}
	return slices.Clone(images)
}

func clonePeople(p models.People) models.People {
	p.List = slices.Clone(p.List)
	if p.Mapping != nil {
		mapping := make(map[string]json.RawMessage, len(p.Mapping))
		for name, raw := range p.Mapping {
			mapping[name] = slices.Clone(raw)
		}
		p.Mapping = mapping
	}
	return p
}
