package transcode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skylight-video/backend/internal/models"
	"github.com/skylight-video/backend/internal/videostore"
)

type fakeEngine struct {
	submitted []SubmitJobInput
	err       error
}

func (f *fakeEngine) SubmitJob(_ context.Context, input SubmitJobInput) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.submitted = append(f.submitted, input)
	return "job-1", nil
}

func pendingStore(t *testing.T, videoID string) *videostore.MemoryStore {
	t.Helper()
	store := videostore.NewMemoryStore()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	if err := store.Create(context.Background(), models.NewVideo(videoID, "t", videoID+"/clip.mp4", now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	return store
}

func TestVideoIDFromKey(t *testing.T) {
	tests := []struct {
		name    string
		rawKey  string
		wantID  string
		wantKey string
		wantErr bool
	}{
		{"plain", "v1/clip.mp4", "v1", "v1/clip.mp4", false},
		{"url encoded", "v1/my%20clip.mp4", "v1", "v1/my clip.mp4", false},
		{"nested path", "v1/a/b.mp4", "v1", "v1/a/b.mp4", false},
		{"no separator", "clip.mp4", "", "", true},
		{"empty id", "/clip.mp4", "", "", true},
		{"bad encoding", "v1/%zz.mp4", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, key, err := VideoIDFromKey(tt.rawKey)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if id != tt.wantID || key != tt.wantKey {
				t.Errorf("got (%q, %q), want (%q, %q)", id, key, tt.wantID, tt.wantKey)
			}
		})
	}
}

func TestDispatcherHappyPath(t *testing.T) {
	ctx := context.Background()
	store := pendingStore(t, "v1")
	engine := &fakeEngine{}
	d := NewDispatcher(store, engine, nil)

	err := d.HandleObjectCreated(ctx, ObjectCreatedEvent{Bucket: "uploads", Key: "v1/clip.mp4"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(engine.submitted) != 1 {
		t.Fatalf("submitted %d jobs, want 1", len(engine.submitted))
	}
	job := engine.submitted[0]
	if job.VideoID != "v1" {
		t.Errorf("job videoID = %q, want v1", job.VideoID)
	}
	if job.SourceLocation != "s3://uploads/v1/clip.mp4" {
		t.Errorf("source = %q", job.SourceLocation)
	}

	v, _ := store.Get(ctx, "v1")
	if v.Status != models.VideoStatusProcessing {
		t.Errorf("status = %s, want PROCESSING", v.Status)
	}
}

func TestDispatcherMissingRecordIsConflict(t *testing.T) {
	d := NewDispatcher(videostore.NewMemoryStore(), &fakeEngine{}, nil)
	err := d.HandleObjectCreated(context.Background(), ObjectCreatedEvent{Bucket: "uploads", Key: "ghost/clip.mp4"})
	if !errors.Is(err, videostore.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDispatcherMalformedKey(t *testing.T) {
	store := pendingStore(t, "v1")
	engine := &fakeEngine{}
	d := NewDispatcher(store, engine, nil)

	err := d.HandleObjectCreated(context.Background(), ObjectCreatedEvent{Bucket: "uploads", Key: "no-separator.mp4"})
	if !errors.Is(err, ErrMalformedKey) {
		t.Errorf("err = %v, want ErrMalformedKey", err)
	}
	if len(engine.submitted) != 0 {
		t.Error("no job must be submitted for a malformed key")
	}
}

func TestDispatcherSubmitFailureLeavesRecordPending(t *testing.T) {
	ctx := context.Background()
	store := pendingStore(t, "v1")
	engine := &fakeEngine{err: errors.New("engine unavailable")}
	d := NewDispatcher(store, engine, nil)

	err := d.HandleObjectCreated(ctx, ObjectCreatedEvent{Bucket: "uploads", Key: "v1/clip.mp4"})
	if err == nil {
		t.Fatal("expected submit error")
	}
	if errors.Is(err, videostore.ErrStaleTransition) || errors.Is(err, videostore.ErrNotFound) {
		t.Errorf("submit failure must stay retryable, got %v", err)
	}

	v, _ := store.Get(ctx, "v1")
	if v.Status != models.VideoStatusPending {
		t.Errorf("status = %s, want PENDING after failed submission", v.Status)
	}
}

func TestDispatcherDuplicateDeliveryDoesNotResubmit(t *testing.T) {
	ctx := context.Background()
	store := pendingStore(t, "v1")
	engine := &fakeEngine{}
	d := NewDispatcher(store, engine, nil)

	event := ObjectCreatedEvent{Bucket: "uploads", Key: "v1/clip.mp4"}
	if err := d.HandleObjectCreated(ctx, event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	err := d.HandleObjectCreated(ctx, event)
	if !errors.Is(err, videostore.ErrStaleTransition) {
		t.Errorf("duplicate delivery err = %v, want ErrStaleTransition", err)
	}
	if len(engine.submitted) != 1 {
		t.Errorf("submitted %d jobs, want 1 (no resubmission)", len(engine.submitted))
	}
}
