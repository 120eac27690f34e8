package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"meetscribe/models"
	"meetscribe/services"
)

// MockStorage is a thread-safe in-memory implementation of services.ObjectStorage.
type MockStorage struct {
	mu sync.Mutex

	Objects    map[string]StoredBlob
	BucketName string
	BaseURL    string
	LastExpiry time.Duration
	LastPutKey string

	PutErr     error
	PresignErr error
	GetErr     error

	PutCalls     int
	PresignCalls int
	GetCalls     int
}

// StoredBlob is one object held by MockStorage.
type StoredBlob struct {
	Data        []byte
	ContentType string
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		Objects:    make(map[string]StoredBlob),
		BucketName: "meetings",
		BaseURL:    "http://storage.test",
	}
}

func (m *MockStorage) Bucket() string { return m.BucketName }

func (m *MockStorage) ObjectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", m.BaseURL, m.BucketName, key)
}

func (m *MockStorage) PutObject(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCalls++
	if m.PutErr != nil {
		return m.PutErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.Objects[key] = StoredBlob{Data: data, ContentType: contentType}
	m.LastPutKey = key
	return nil
}

func (m *MockStorage) PresignPutObject(_ context.Context, key, _ string, expires time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PresignCalls++
	if m.PresignErr != nil {
		return "", m.PresignErr
	}
	m.LastExpiry = expires
	return fmt.Sprintf("%s?X-Amz-Expires=%d", m.ObjectURL(key), int(expires.Seconds())), nil
}

func (m *MockStorage) GetObject(_ context.Context, key string) (*models.StoredObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	blob, ok := m.Objects[key]
	if !ok {
		return nil, fmt.Errorf("mock get %s: %w", key, services.ErrObjectNotFound)
	}
	return &models.StoredObject{
		Key:           key,
		Body:          io.NopCloser(bytes.NewReader(blob.Data)),
		ContentType:   blob.ContentType,
		ContentLength: int64(len(blob.Data)),
	}, nil
}

// Put stores an object directly, bypassing counters and injected errors.
func (m *MockStorage) Put(key string, data []byte, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[key] = StoredBlob{Data: data, ContentType: contentType}
}

var _ services.ObjectStorage = (*MockStorage)(nil)
