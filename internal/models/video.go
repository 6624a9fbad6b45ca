package models

import "time"

// VideoStatus represents the video lifecycle state.
type VideoStatus string

const (
	VideoStatusPending    VideoStatus = "PENDING"
	VideoStatusProcessing VideoStatus = "PROCESSING"
	VideoStatusReady      VideoStatus = "READY"
	VideoStatusError      VideoStatus = "ERROR"
)

// Valid reports whether s is a known lifecycle status.
func (s VideoStatus) Valid() bool {
	switch s {
	case VideoStatusPending, VideoStatusProcessing, VideoStatusReady, VideoStatusError:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal status (READY or ERROR).
func (s VideoStatus) Terminal() bool {
	return s == VideoStatusReady || s == VideoStatusError
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// The only edges are PENDING→PROCESSING, PROCESSING→READY and PROCESSING→ERROR.
func (s VideoStatus) CanTransitionTo(next VideoStatus) bool {
	switch s {
	case VideoStatusPending:
		return next == VideoStatusProcessing
	case VideoStatusProcessing:
		return next == VideoStatusReady || next == VideoStatusError
	}
	return false
}

// Predecessor returns the status a record must currently hold for a
// transition into next to be accepted.
func Predecessor(next VideoStatus) (VideoStatus, bool) {
	switch next {
	case VideoStatusProcessing:
		return VideoStatusPending, true
	case VideoStatusReady, VideoStatusError:
		return VideoStatusProcessing, true
	}
	return "", false
}

// Video is the durable per-video record, keyed by VideoID.
// OutputKey is set only on the transition into READY; ErrorMessage only on
// the transition into ERROR.
type Video struct {
	VideoID      string      `json:"videoId" dynamodbav:"videoId"`
	Title        string      `json:"title" dynamodbav:"title"`
	Status       VideoStatus `json:"status" dynamodbav:"status"`
	InputKey     string      `json:"inputKey" dynamodbav:"inputKey"`
	OutputKey    string      `json:"outputKey,omitempty" dynamodbav:"outputKey,omitempty"`
	ErrorMessage string      `json:"errorMessage,omitempty" dynamodbav:"errorMessage,omitempty"`
	CreatedAt    time.Time   `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt" dynamodbav:"updatedAt"`
}

// NewVideo returns a fresh PENDING record for a submitted asset.
func NewVideo(videoID, title, inputKey string, now time.Time) *Video {
	return &Video{
		VideoID:   videoID,
		Title:     title,
		Status:    VideoStatusPending,
		InputKey:  inputKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OutputKeyFor returns the manifest key for a transcoded video. The engine
// writes HLS output under <videoId>/index, so the playable manifest is
// always <videoId>/index.m3u8.
func OutputKeyFor(videoID string) string {
	return videoID + "/index.m3u8"
}

// VideoView is the client-facing projection served for a single video.
// PlaybackURL is present only when the video is READY; ErrorMessage only
// when it is ERROR.
type VideoView struct {
	VideoID      string      `json:"videoId"`
	Title        string      `json:"title"`
	Status       VideoStatus `json:"status"`
	PlaybackURL  string      `json:"playbackUrl,omitempty"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
}

// VideoSummary is the catalog listing projection.
type VideoSummary struct {
	VideoID   string      `json:"videoId"`
	Title     string      `json:"title"`
	Status    VideoStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// View projects a record for the single-video read path using the configured
// public delivery origin.
func (v *Video) View(deliveryOrigin string) VideoView {
	view := VideoView{
		VideoID: v.VideoID,
		Title:   v.Title,
		Status:  v.Status,
	}
	switch v.Status {
	case VideoStatusReady:
		view.PlaybackURL = deliveryOrigin + "/" + v.OutputKey
	case VideoStatusError:
		view.ErrorMessage = v.ErrorMessage
	}
	return view
}

// Summary projects a record for the catalog listing.
func (v *Video) Summary() VideoSummary {
	return VideoSummary{
		VideoID:   v.VideoID,
		Title:     v.Title,
		Status:    v.Status,
		CreatedAt: v.CreatedAt,
	}
}
