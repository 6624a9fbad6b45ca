package videostore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/skylight-video/backend/internal/models"
)

func newTestVideo(id string) *models.Video {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	return models.NewVideo(id, "title "+id, id+"/clip.mp4", now)
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Create(ctx, newTestVideo("v1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	v, err := store.Get(ctx, "v1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.Status != models.VideoStatusPending {
		t.Fatalf("status = %s, want PENDING", v.Status)
	}

	if err := store.MarkProcessing(ctx, "v1"); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	if err := store.MarkReady(ctx, "v1", "v1/index.m3u8"); err != nil {
		t.Fatalf("mark ready: %v", err)
	}

	v, _ = store.Get(ctx, "v1")
	if v.Status != models.VideoStatusReady {
		t.Errorf("status = %s, want READY", v.Status)
	}
	if v.OutputKey != "v1/index.m3u8" {
		t.Errorf("outputKey = %q, want v1/index.m3u8", v.OutputKey)
	}
	if v.ErrorMessage != "" {
		t.Errorf("READY record must not carry errorMessage, got %q", v.ErrorMessage)
	}
}

func TestMemoryStoreFailurePath(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Create(ctx, newTestVideo("v1"))
	_ = store.MarkProcessing(ctx, "v1")

	if err := store.MarkFailed(ctx, "v1", "codec failure"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	v, _ := store.Get(ctx, "v1")
	if v.Status != models.VideoStatusError {
		t.Errorf("status = %s, want ERROR", v.Status)
	}
	if v.ErrorMessage != "codec failure" {
		t.Errorf("errorMessage = %q, want codec failure", v.ErrorMessage)
	}
	if v.OutputKey != "" {
		t.Errorf("ERROR record must not carry outputKey, got %q", v.OutputKey)
	}
}

func TestMemoryStoreConditionalTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("missing record", func(t *testing.T) {
		store := NewMemoryStore()
		if err := store.MarkProcessing(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("MarkProcessing on missing record = %v, want ErrNotFound", err)
		}
		if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Error("rejected transition must not create a record")
		}
	})

	t.Run("stale duplicate completion", func(t *testing.T) {
		store := NewMemoryStore()
		_ = store.Create(ctx, newTestVideo("v1"))
		_ = store.MarkProcessing(ctx, "v1")
		_ = store.MarkReady(ctx, "v1", "v1/index.m3u8")

		if err := store.MarkReady(ctx, "v1", "v1/index.m3u8"); !errors.Is(err, ErrStaleTransition) {
			t.Errorf("duplicate MarkReady = %v, want ErrStaleTransition", err)
		}
		if err := store.MarkFailed(ctx, "v1", "late failure"); !errors.Is(err, ErrStaleTransition) {
			t.Errorf("MarkFailed after READY = %v, want ErrStaleTransition", err)
		}
		v, _ := store.Get(ctx, "v1")
		if v.Status != models.VideoStatusReady {
			t.Errorf("terminal status overwritten: %s", v.Status)
		}
	})

	t.Run("completion before dispatch", func(t *testing.T) {
		store := NewMemoryStore()
		_ = store.Create(ctx, newTestVideo("v1"))
		if err := store.MarkReady(ctx, "v1", "v1/index.m3u8"); !errors.Is(err, ErrStaleTransition) {
			t.Errorf("MarkReady on PENDING = %v, want ErrStaleTransition", err)
		}
	})
}

func TestMemoryStoreUpdatedAtRefreshed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	later := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return later })

	v := newTestVideo("v1")
	_ = store.Create(ctx, v)
	_ = store.MarkProcessing(ctx, "v1")

	got, _ := store.Get(ctx, "v1")
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("updatedAt = %v, want %v", got.UpdatedAt, later)
	}
	if !got.CreatedAt.Equal(v.CreatedAt) {
		t.Error("createdAt must be immutable across transitions")
	}
}

func TestMemoryStorePagination(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for i := 0; i < 25; i++ {
		_ = store.Create(ctx, newTestVideo(fmt.Sprintf("v%02d", i)))
	}

	seen := make(map[string]bool)
	token := ""
	pages := 0
	for {
		page, err := store.List(ctx, 10, token)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(page.Items) > 10 {
			t.Fatalf("page size %d exceeds limit", len(page.Items))
		}
		for _, v := range page.Items {
			if seen[v.VideoID] {
				t.Fatalf("video %s returned twice under a static data set", v.VideoID)
			}
			seen[v.VideoID] = true
		}
		pages++
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}
	if len(seen) != 25 {
		t.Errorf("saw %d videos, want 25", len(seen))
	}
	if pages != 3 {
		t.Errorf("paged %d times, want 3", pages)
	}
}

func TestMemoryStoreListExactPage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for i := 0; i < 10; i++ {
		_ = store.Create(ctx, newTestVideo(fmt.Sprintf("v%02d", i)))
	}
	page, err := store.List(ctx, 10, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 10 {
		t.Fatalf("got %d items, want 10", len(page.Items))
	}
	if page.NextToken != "" {
		t.Errorf("nextToken = %q, want empty when no records remain", page.NextToken)
	}
}

func TestMemoryStoreBadToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if _, err := store.List(ctx, 10, "not-base64!!"); !errors.Is(err, ErrBadToken) {
		t.Errorf("List with garbage token = %v, want ErrBadToken", err)
	}
}
