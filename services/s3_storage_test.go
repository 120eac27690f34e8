package services_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"meetscribe/services"
)

// fakeS3 serves the subset of the S3 REST API the storage backend uses.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	acl     string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		f.acl = r.Header.Get("X-Amz-Acl")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", f.types[r.URL.Path])
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3(t *testing.T) (*services.S3Storage, *fakeS3, string) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	awsCfg := aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIDTEST", "SECRETTEST", ""),
	}
	return services.NewS3Storage(awsCfg, "meetings", srv.URL, true), fake, srv.URL
}

func TestS3Storage_PutAndGet(t *testing.T) {
	store, fake, endpoint := newTestS3(t)
	ctx := context.Background()

	if err := store.PutObject(ctx, "abc-a.wav", strings.NewReader("RIFF"), 4, "audio/wav"); err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	fake.mu.Lock()
	acl, stored := fake.acl, string(fake.objects["/meetings/abc-a.wav"])
	fake.mu.Unlock()
	if acl != "public-read" {
		t.Errorf("expected public-read acl, got %q", acl)
	}
	if stored != "RIFF" {
		t.Errorf("expected object stored under path-style key, got %q", stored)
	}

	obj, err := store.GetObject(ctx, "abc-a.wav")
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	defer obj.Body.Close()
	body, _ := io.ReadAll(obj.Body)
	if string(body) != "RIFF" || obj.ContentType != "audio/wav" || obj.ContentLength != 4 {
		t.Errorf("unexpected object %q %q %d", body, obj.ContentType, obj.ContentLength)
	}

	if got, want := store.ObjectURL("abc-a.wav"), endpoint+"/meetings/abc-a.wav"; got != want {
		t.Errorf("ObjectURL = %q, want %q", got, want)
	}
	if store.Bucket() != "meetings" {
		t.Errorf("unexpected bucket %q", store.Bucket())
	}
}

func TestS3Storage_GetMissing(t *testing.T) {
	store, _, _ := newTestS3(t)

	_, err := store.GetObject(context.Background(), "missing.wav")
	if !errors.Is(err, services.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestS3Storage_Presign(t *testing.T) {
	store, _, endpoint := newTestS3(t)

	u, err := store.PresignPutObject(context.Background(), "abc-a.wav", "audio/wav", 300*time.Second)
	if err != nil {
		t.Fatalf("PresignPutObject: %v", err)
	}
	if !strings.HasPrefix(u, endpoint+"/meetings/abc-a.wav?") {
		t.Errorf("unexpected presigned url %q", u)
	}
	if !strings.Contains(u, "X-Amz-Expires=300") || !strings.Contains(u, "X-Amz-Signature=") {
		t.Errorf("presigned url missing expiry or signature: %q", u)
	}
}
