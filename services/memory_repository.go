package services

import (
	"context"
	"sync"

	"meetscribe/models"
)

// MemoryMeetingRepository keeps meetings in process memory. It is used for
// local runs and tests; records are lost on restart.
type MemoryMeetingRepository struct {
	mu       sync.RWMutex
	meetings map[string]*models.Meeting
	clock    Clock
}

func NewMemoryMeetingRepository(clock Clock) *MemoryMeetingRepository {
	return &MemoryMeetingRepository{
		meetings: make(map[string]*models.Meeting),
		clock:    clockOrDefault(clock),
	}
}

func (r *MemoryMeetingRepository) Get(_ context.Context, meetingID string) (*models.Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.meetings[meetingID]
	if !ok {
		return nil, ErrMeetingNotFound
	}
	return copyMeeting(m), nil
}

func (r *MemoryMeetingRepository) CreateIfAbsent(_ context.Context, nm models.NewMeeting) (*models.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.meetings[nm.MeetingID]; exists {
		return nil, ErrMeetingExists
	}
	m := newMeetingRecord(nm, r.clock)
	r.meetings[nm.MeetingID] = m
	return copyMeeting(m), nil
}

func copyMeeting(m *models.Meeting) *models.Meeting {
	c := *m
	c.Summary = cloneRaw(m.Summary)
	c.Transcription = cloneRaw(m.Transcription)
	return &c
}

var _ MeetingRepository = (*MemoryMeetingRepository)(nil)
