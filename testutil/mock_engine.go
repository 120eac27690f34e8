package testutil

import (
	"context"
	"io"
	"os"
	"sync"

	"meetscribe/models"
	"meetscribe/services"
)

// MockEngine is a thread-safe services.TranscriptionEngine returning a canned
// result or error.
type MockEngine struct {
	mu sync.Mutex

	Result *models.TranscriptResult
	Err    error
	// Hook runs before the result is returned; a non-nil error replaces it.
	Hook func(ctx context.Context) error

	Calls        int
	LastFilename string
	LastMimeType string
	LastBody     []byte
	// LastPath is the temp artifact the audio was read from, if any.
	LastPath string
}

func NewMockEngine(result *models.TranscriptResult) *MockEngine {
	return &MockEngine{Result: result}
}

func (m *MockEngine) Transcribe(ctx context.Context, audio io.Reader, filename, mimeType string) (*models.TranscriptResult, error) {
	body, readErr := io.ReadAll(audio)

	m.mu.Lock()
	m.Calls++
	m.LastFilename = filename
	m.LastMimeType = mimeType
	m.LastBody = body
	if f, ok := audio.(*os.File); ok {
		m.LastPath = f.Name()
	}
	hook, result, err := m.Hook, m.Result, m.Err
	m.mu.Unlock()

	if readErr != nil {
		return nil, readErr
	}
	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Snapshot returns the recorded call state.
func (m *MockEngine) Snapshot() (calls int, filename, mimeType, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls, m.LastFilename, m.LastMimeType, m.LastPath
}

var _ services.TranscriptionEngine = (*MockEngine)(nil)
