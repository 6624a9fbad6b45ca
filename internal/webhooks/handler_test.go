package webhooks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/skylight-video/backend/pkg/queue"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEnqueuer struct {
	objects []queue.ObjectCreatedPayload
	results []queue.JobResultPayload
	err     error
}

func (f *fakeEnqueuer) EnqueueObjectCreated(_ context.Context, p queue.ObjectCreatedPayload) error {
	if f.err != nil {
		return f.err
	}
	f.objects = append(f.objects, p)
	return nil
}

func (f *fakeEnqueuer) EnqueueJobResult(_ context.Context, p queue.JobResultPayload) error {
	if f.err != nil {
		return f.err
	}
	f.results = append(f.results, p)
	return nil
}

func newRouter(events Enqueuer) *gin.Engine {
	h := NewHandler(events, nil)
	r := gin.New()
	r.POST("/webhooks/storage-events", h.StorageEvents)
	r.POST("/webhooks/transcode-events", h.TranscodeEvents)
	return r
}

func post(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestStorageEvents(t *testing.T) {
	events := &fakeEnqueuer{}
	router := newRouter(events)

	body := `{"Records":[{"s3":{"bucket":{"name":"uploads"},"object":{"key":"v1/my%20clip.mp4"}}}]}`
	w := post(router, "/webhooks/storage-events", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if len(events.objects) != 1 {
		t.Fatalf("enqueued %d events, want 1", len(events.objects))
	}
	got := events.objects[0]
	if got.Bucket != "uploads" {
		t.Errorf("bucket = %q", got.Bucket)
	}
	// The key must be forwarded as delivered; decoding happens at dispatch.
	if got.Key != "v1/my%20clip.mp4" {
		t.Errorf("key = %q", got.Key)
	}
}

func TestStorageEventsEmptyBatch(t *testing.T) {
	events := &fakeEnqueuer{}
	router := newRouter(events)

	w := post(router, "/webhooks/storage-events", `{"Records":[]}`)
	if w.Code != http.StatusOK {
		t.Errorf("empty batch status = %d, want 200", w.Code)
	}
	if len(events.objects) != 0 {
		t.Errorf("enqueued %d events from empty batch", len(events.objects))
	}
}

func TestStorageEventsBadBody(t *testing.T) {
	router := newRouter(&fakeEnqueuer{})
	w := post(router, "/webhooks/storage-events", `not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestStorageEventsEnqueueFailure(t *testing.T) {
	router := newRouter(&fakeEnqueuer{err: errors.New("redis down")})
	body := `{"Records":[{"s3":{"bucket":{"name":"uploads"},"object":{"key":"v1/clip.mp4"}}}]}`
	w := post(router, "/webhooks/storage-events", body)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 so the source redelivers", w.Code)
	}
}

func TestTranscodeEvents(t *testing.T) {
	tests := []struct {
		name string
		body string
		want queue.JobResultPayload
	}{
		{
			name: "complete",
			body: `{"detail":{"status":"COMPLETE","userMetadata":{"videoId":"v1"}}}`,
			want: queue.JobResultPayload{Status: "COMPLETE", VideoID: "v1"},
		},
		{
			name: "error with message",
			body: `{"detail":{"status":"ERROR","userMetadata":{"videoId":"v1"},"errorMessage":"codec failure"}}`,
			want: queue.JobResultPayload{Status: "ERROR", VideoID: "v1", ErrorMessage: "codec failure"},
		},
		{
			name: "missing video id still enqueued",
			body: `{"detail":{"status":"COMPLETE"}}`,
			want: queue.JobResultPayload{Status: "COMPLETE"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &fakeEnqueuer{}
			router := newRouter(events)
			w := post(router, "/webhooks/transcode-events", tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			if len(events.results) != 1 {
				t.Fatalf("enqueued %d events, want 1", len(events.results))
			}
			if events.results[0] != tt.want {
				t.Errorf("payload = %+v, want %+v", events.results[0], tt.want)
			}
		})
	}
}

func TestTranscodeEventsMissingStatus(t *testing.T) {
	router := newRouter(&fakeEnqueuer{})
	w := post(router, "/webhooks/transcode-events", `{"detail":{"userMetadata":{"videoId":"v1"}}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
