package videostore

import (
	"context"
	"encoding/base64"
	"sort"
	"sync"
	"time"

	"github.com/skylight-video/backend/internal/models"
)

// MemoryStore is an in-process Store for local development and tests. It
// mirrors the conditional-transition semantics of the durable backends and
// pages in video ID order like the Postgres backend.
type MemoryStore struct {
	mu     sync.Mutex
	videos map[string]models.Video
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		videos: make(map[string]models.Video),
		now:    time.Now,
	}
}

// SetClock overrides the store clock, for tests.
func (s *MemoryStore) SetClock(now func() time.Time) { s.now = now }

// Create inserts a fresh record.
func (s *MemoryStore) Create(_ context.Context, video *models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.VideoID] = *video
	return nil
}

// Get returns a copy of the current record or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, videoID string) (*models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[videoID]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

// MarkProcessing transitions PENDING -> PROCESSING.
func (s *MemoryStore) MarkProcessing(_ context.Context, videoID string) error {
	return s.transition(videoID, models.VideoStatusProcessing, func(v *models.Video) {})
}

// MarkReady transitions PROCESSING -> READY and records the manifest key.
func (s *MemoryStore) MarkReady(_ context.Context, videoID, outputKey string) error {
	return s.transition(videoID, models.VideoStatusReady, func(v *models.Video) {
		v.OutputKey = outputKey
	})
}

// MarkFailed transitions PROCESSING -> ERROR and records the failure cause.
func (s *MemoryStore) MarkFailed(_ context.Context, videoID, errorMessage string) error {
	return s.transition(videoID, models.VideoStatusError, func(v *models.Video) {
		v.ErrorMessage = errorMessage
	})
}

func (s *MemoryStore) transition(videoID string, next models.VideoStatus, apply func(*models.Video)) error {
	expect, ok := models.Predecessor(next)
	if !ok {
		return ErrStaleTransition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, found := s.videos[videoID]
	if !found {
		return ErrNotFound
	}
	if v.Status != expect {
		return ErrStaleTransition
	}
	v.Status = next
	v.UpdatedAt = s.now()
	apply(&v)
	s.videos[videoID] = v
	return nil
}

// List pages through records in video ID order. The token is the base64 of
// the last ID on the previous page.
func (s *MemoryStore) List(_ context.Context, limit int, token string) (Page, error) {
	cursor := ""
	if token != "" {
		raw, err := base64.StdEncoding.DecodeString(token)
		if err != nil || len(raw) == 0 {
			return Page{}, ErrBadToken
		}
		cursor = string(raw)
	}

	s.mu.Lock()
	ids := make([]string, 0, len(s.videos))
	for id := range s.videos {
		if id > cursor {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var page Page
	for _, id := range ids {
		if len(page.Items) == limit {
			page.NextToken = base64.StdEncoding.EncodeToString([]byte(page.Items[limit-1].VideoID))
			break
		}
		page.Items = append(page.Items, s.videos[id])
	}
	s.mu.Unlock()
	return page, nil
}
