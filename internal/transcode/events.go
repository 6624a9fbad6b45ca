// Package transcode contains the lifecycle handlers that move a video from
// PENDING to a terminal state: the dispatcher reacting to object-store
// writes and the completion handler reacting to transcode job results.
package transcode

import (
	"errors"
	"net/url"
	"strings"
)

// ErrMalformedKey is returned for an object key that does not follow the
// <videoId>/<filename> layout. Such events cannot be correlated to a record
// and are fatal for the delivery, never retried.
var ErrMalformedKey = errors.New("object key does not match <videoId>/<filename>")

// ObjectCreatedEvent is one object-store write notification.
type ObjectCreatedEvent struct {
	Bucket string
	Key    string // as delivered, possibly URL-encoded
}

// Job result statuses as delivered by the engine's completion events.
const (
	JobStatusComplete = "COMPLETE"
	JobStatusError    = "ERROR"
)

// JobResultEvent is one transcode job completion notification.
type JobResultEvent struct {
	Status       string
	VideoID      string
	ErrorMessage string
}

// VideoIDFromKey extracts the video ID from an object key. Storage
// notifications URL-encode keys, so the key is decoded first; the video ID
// is the first path segment.
func VideoIDFromKey(rawKey string) (videoID, key string, err error) {
	key, err = url.QueryUnescape(rawKey)
	if err != nil {
		return "", "", ErrMalformedKey
	}
	videoID, _, found := strings.Cut(key, "/")
	if !found || videoID == "" {
		return "", "", ErrMalformedKey
	}
	return videoID, key, nil
}
