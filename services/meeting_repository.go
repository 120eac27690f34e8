package services

import (
	"context"
	"errors"

	"meetscribe/models"
)

var (
	ErrMeetingNotFound = errors.New("meeting not found")
	ErrMeetingExists   = errors.New("meeting already exists")
)

// MeetingRepository stores one record per meeting id. A record moves from
// absent to present exactly once; there is no update or delete.
type MeetingRepository interface {
	Get(ctx context.Context, meetingID string) (*models.Meeting, error)

	// CreateIfAbsent inserts atomically with respect to the id. Concurrent
	// calls for the same id yield one success and ErrMeetingExists for the rest.
	CreateIfAbsent(ctx context.Context, m models.NewMeeting) (*models.Meeting, error)
}

func newMeetingRecord(m models.NewMeeting, clock Clock) *models.Meeting {
	now := clock.Now()
	return &models.Meeting{
		MeetingID:     m.MeetingID,
		Title:         m.Title,
		Date:          m.Date,
		Summary:       cloneRaw(m.Summary),
		Transcription: cloneRaw(m.Transcription),
		Timestamp:     m.Timestamp,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func cloneRaw(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
