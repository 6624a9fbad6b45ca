package models

import (
	"testing"
	"time"
)

func TestVideoStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		from VideoStatus
		to   VideoStatus
		want bool
	}{
		{VideoStatusPending, VideoStatusProcessing, true},
		{VideoStatusProcessing, VideoStatusReady, true},
		{VideoStatusProcessing, VideoStatusError, true},
		{VideoStatusPending, VideoStatusReady, false},
		{VideoStatusPending, VideoStatusError, false},
		{VideoStatusReady, VideoStatusProcessing, false},
		{VideoStatusReady, VideoStatusError, false},
		{VideoStatusError, VideoStatusReady, false},
		{VideoStatusError, VideoStatusProcessing, false},
		{VideoStatusProcessing, VideoStatusPending, false},
		{VideoStatusReady, VideoStatusReady, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestPredecessor(t *testing.T) {
	tests := []struct {
		next   VideoStatus
		want   VideoStatus
		wantOK bool
	}{
		{VideoStatusProcessing, VideoStatusPending, true},
		{VideoStatusReady, VideoStatusProcessing, true},
		{VideoStatusError, VideoStatusProcessing, true},
		{VideoStatusPending, "", false},
	}
	for _, tt := range tests {
		got, ok := Predecessor(tt.next)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Predecessor(%s) = (%s, %v), want (%s, %v)", tt.next, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestTerminal(t *testing.T) {
	if VideoStatusPending.Terminal() || VideoStatusProcessing.Terminal() {
		t.Error("PENDING/PROCESSING must not be terminal")
	}
	if !VideoStatusReady.Terminal() || !VideoStatusError.Terminal() {
		t.Error("READY/ERROR must be terminal")
	}
}

func TestOutputKeyFor(t *testing.T) {
	if got := OutputKeyFor("v1"); got != "v1/index.m3u8" {
		t.Errorf("OutputKeyFor(v1) = %s, want v1/index.m3u8", got)
	}
}

func TestNewVideo(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	v := NewVideo("abc", "My Clip", "abc/clip.mp4", now)
	if v.Status != VideoStatusPending {
		t.Errorf("new video status = %s, want PENDING", v.Status)
	}
	if v.CreatedAt != now || v.UpdatedAt != now {
		t.Error("createdAt and updatedAt must both equal creation time")
	}
	if v.OutputKey != "" || v.ErrorMessage != "" {
		t.Error("fresh record must not carry outputKey or errorMessage")
	}
}

func TestVideoView(t *testing.T) {
	tests := []struct {
		name        string
		video       Video
		wantURL     string
		wantMessage string
	}{
		{
			name:    "ready has playback url",
			video:   Video{VideoID: "v1", Title: "t", Status: VideoStatusReady, OutputKey: "v1/index.m3u8"},
			wantURL: "https://cdn.example.com/v1/index.m3u8",
		},
		{
			name:        "error has message",
			video:       Video{VideoID: "v2", Title: "t", Status: VideoStatusError, ErrorMessage: "codec failure"},
			wantMessage: "codec failure",
		},
		{
			name:  "processing has neither",
			video: Video{VideoID: "v3", Title: "t", Status: VideoStatusProcessing},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := tt.video.View("https://cdn.example.com")
			if view.PlaybackURL != tt.wantURL {
				t.Errorf("PlaybackURL = %q, want %q", view.PlaybackURL, tt.wantURL)
			}
			if view.ErrorMessage != tt.wantMessage {
				t.Errorf("ErrorMessage = %q, want %q", view.ErrorMessage, tt.wantMessage)
			}
		})
	}
}
