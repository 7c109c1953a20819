package handlers

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/serenify-journal/internal/middleware"
	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/internal/services"
	"github.com/AnshRaj112/serenify-journal/pkg/utils"
)

const (
	maxEntryBodyBytes  = 2 << 20
	maxImageUploadSize = 10 << 20
	maxListLimit       = 200
)

type EntryResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Entry   *models.Entry `json:"entry,omitempty"`
}

type EntriesResponse struct {
	Success bool           `json:"success"`
	Entries []models.Entry `json:"entries"`
	Total   int            `json:"total"`
}

type ImageResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Image   *models.Image `json:"image,omitempty"`
}

type HistoryResponse struct {
	Success bool                `json:"success"`
	Events  []models.EntryEvent `json:"events"`
}

type addImageRequest struct {
	URL string `json:"url"`
}

// EntryHandler serves /api/entries. The caller's identity comes from the
// request context; handlers never read an owner from the payload.
type EntryHandler struct {
	entries *services.EntryService
	logger  *log.Logger
}

func NewEntryHandler(entries *services.EntryService, logger *log.Logger) *EntryHandler {
	return &EntryHandler{entries: entries, logger: logger}
}

// List returns the caller's entries, newest first.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	entries, err := h.entries.List(r.Context(), middleware.UserID(r.Context()), q)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, EntriesResponse{Success: true, Entries: entries, Total: len(entries)})
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeEntryFields(w, r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	entry, err := h.entries.Create(r.Context(), middleware.UserID(r.Context()), fields)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, EntryResponse{Success: true, Message: "Entry created", Entry: entry})
}

func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, services.ErrNotFoundOrUnauthorized)
		return
	}

	entry, err := h.entries.Get(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, EntryResponse{Success: true, Entry: entry})
}

// Update replaces every mutable field; fields left out of the payload reset
// to their defaults.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeServiceError(w, h.logger, services.ErrUnauthenticated)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, services.ErrNotFoundOrUnauthorized)
		return
	}
	fields, err := decodeEntryFields(w, r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	entry, err := h.entries.Update(r.Context(), userID, id, fields)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, EntryResponse{Success: true, Message: "Entry updated", Entry: entry})
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeServiceError(w, h.logger, services.ErrUnauthenticated)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, services.ErrNotFoundOrUnauthorized)
		return
	}

	if err := h.entries.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, EntryResponse{Success: true, Message: "Entry deleted"})
}

// AddImage accepts either a multipart "file" upload, which goes to the blob
// store, or a JSON {"url": ...} body for an image hosted elsewhere.
func (h *EntryHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeServiceError(w, h.logger, services.ErrUnauthenticated)
		return
	}
	entryID, ok := pathID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, services.ErrNotFoundOrUnauthorized)
		return
	}

	var (
		image *models.Image
		err   error
	)
	if mediaType(r) == "multipart/form-data" {
		image, err = h.uploadImage(w, r, userID, entryID)
	} else {
		var req addImageRequest
		body, readErr := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEntryBodyBytes))
		if readErr != nil {
			writeServiceError(w, h.logger, utils.Invalid("url", "request body too large", readErr))
			return
		}
		if err := json.Unmarshal(body, &req); err != nil {
			writeServiceError(w, h.logger, utils.Invalid("url", "invalid request body", err))
			return
		}
		image, err = h.entries.AddImage(r.Context(), userID, entryID, strings.TrimSpace(req.URL))
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, ImageResponse{Success: true, Message: "Image added", Image: image})
}

func (h *EntryHandler) uploadImage(w http.ResponseWriter, r *http.Request, userID string, entryID int64) (*models.Image, error) {
	if !h.entries.UploadsEnabled() {
		return nil, services.ErrUploadsDisabled
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageUploadSize+1<<20)
	if err := r.ParseMultipartForm(maxImageUploadSize); err != nil {
		return nil, utils.Invalid("file", "failed to parse upload", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, utils.Invalid("file", "no file provided", err)
	}
	defer file.Close()

	// Sniff the first bytes rather than trusting the client's Content-Type.
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, utils.Invalid("file", "unreadable upload", err)
	}
	if !strings.HasPrefix(http.DetectContentType(head[:n]), "image/") {
		return nil, utils.Invalid("file", "must be an image", nil)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, utils.Invalid("file", "unreadable upload", err)
	}

	return h.entries.AttachImage(r.Context(), userID, entryID, header.Filename, file)
}

func (h *EntryHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeServiceError(w, h.logger, services.ErrUnauthenticated)
		return
	}
	entryID, ok := pathID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, services.ErrNotFoundOrUnauthorized)
		return
	}
	imageID, ok := pathID(r, "imageID")
	if !ok {
		writeServiceError(w, h.logger, services.ErrNotFoundOrUnauthorized)
		return
	}

	if err := h.entries.RemoveImage(r.Context(), userID, entryID, imageID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ImageResponse{Success: true, Message: "Image removed"})
}

// History lists the recorded mutations of one entry, oldest first.
func (h *EntryHandler) History(w http.ResponseWriter, r *http.Request) {
	entryID, ok := pathID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, services.ErrNotFoundOrUnauthorized)
		return
	}

	events, err := h.entries.History(r.Context(), middleware.UserID(r.Context()), entryID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Success: true, Events: events})
}

// decodeEntryFields reads the entry payload in whichever encoding the
// client used: a JSON document, a multipart form or a urlencoded form.
func decodeEntryFields(w http.ResponseWriter, r *http.Request) (models.EntryFields, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEntryBodyBytes)

	switch mediaType(r) {
	case "application/json":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return models.EntryFields{}, utils.Invalid("body", "request body too large", err)
		}
		return models.DecodeEntryJSON(body)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxEntryBodyBytes); err != nil {
			return models.EntryFields{}, utils.Invalid("body", "invalid form", err)
		}
	default:
		if err := r.ParseForm(); err != nil {
			return models.EntryFields{}, utils.Invalid("body", "invalid form", err)
		}
	}
	return models.ParseEntryForm(r.PostForm)
}

func listQuery(r *http.Request) (models.EntryQuery, error) {
	values := r.URL.Query()

	search := values.Get("search")
	if search == "" {
		search = values.Get("q")
	}
	q := models.EntryQuery{
		Search:   strings.TrimSpace(search),
		Category: values.Get("category"),
		Emotion:  values.Get("emotion"),
		Tag:      values.Get("tag"),
	}

	var err error
	if q.Since, q.Until, err = models.ParseDateRange(values.Get("from"), values.Get("to")); err != nil {
		return q, err
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return q, utils.Invalid("limit", "must be a positive integer", err)
		}
		q.Limit = min(limit, maxListLimit)
	}
	if raw := values.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return q, utils.Invalid("offset", "must be a non-negative integer", err)
		}
		q.Offset = offset
	}
	return q, nil
}

func dateRangeQuery(r *http.Request) (models.EntryQuery, error) {
	var (
		q   models.EntryQuery
		err error
	)
	q.Since, q.Until, err = models.ParseDateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	return q, err
}

// pathID parses a numeric URL parameter. Anything else cannot name a row
// and is reported as not found.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}
