package models

import (
	"encoding/json"
	"time"
)

// Meeting is the durable record produced by the pipeline. Summary and
// Transcription are opaque JSON documents owned by the caller.
type Meeting struct {
	MeetingID     string          `json:"meetingId"`
	Title         string          `json:"title"`
	Date          string          `json:"date"`
	Summary       json.RawMessage `json:"summary,omitempty"`
	Transcription json.RawMessage `json:"transcription,omitempty"`
	Timestamp     string          `json:"timestamp,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// MeetingData is the caller-supplied body of a create request.
type MeetingData struct {
	Title         string          `json:"title"`
	Date          string          `json:"date"`
	Summary       json.RawMessage `json:"summary"`
	Transcription json.RawMessage `json:"transcription"`
	Timestamp     string          `json:"timestamp"`
}

// CreateMeetingRequest wraps MeetingData the way clients send it.
type CreateMeetingRequest struct {
	MeetingData *MeetingData `json:"meetingData"`
}

// NewMeeting is what a repository needs to insert a record.
type NewMeeting struct {
	MeetingID string
	MeetingData
}
