package services_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"meetscribe/config"
	"meetscribe/models"
	"meetscribe/services"
)

const verboseJSON = `{
  "task": "transcribe",
  "language": "en",
  "duration": 12.4,
  "text": " hello world",
  "segments": [
    {"id": 0, "start": 0.0, "end": 5.2, "text": " hello"},
    {"id": 1, "start": 5.2, "end": 12.4, "text": " world"}
  ],
  "words": [
    {"word": "hello", "start": 0.4, "end": 1.0},
    {"word": "world", "start": 5.6, "end": 6.1}
  ]
}`

// capturedRequest is what a fake transcription server saw.
type capturedRequest struct {
	path     string
	auth     string
	fields   map[string][]string
	filename string
	partType string
	body     string
}

type requestRecorder struct {
	mu   sync.Mutex
	last capturedRequest
}

func (r *requestRecorder) get() capturedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func transcriptionServer(t *testing.T, status int, respBody string, delay time.Duration) (*httptest.Server, *requestRecorder) {
	t.Helper()
	rec := &requestRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen := capturedRequest{
			path: r.URL.Path,
			auth: r.Header.Get("Authorization"),
		}
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			seen.fields = r.MultipartForm.Value
			if files := r.MultipartForm.File["file"]; len(files) > 0 {
				seen.filename = files[0].Filename
				seen.partType = files[0].Header.Get("Content-Type")
				f, _ := files[0].Open()
				b, _ := io.ReadAll(f)
				f.Close()
				seen.body = string(b)
			}
		}
		rec.mu.Lock()
		rec.last = seen
		rec.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func assertHelloWorld(t *testing.T, res *models.TranscriptResult) {
	t.Helper()
	if res.Text != "hello world" || res.Language != "en" || res.Duration != 12.4 {
		t.Errorf("unexpected result %+v", res)
	}
	if len(res.Segments) != 2 || res.Segments[1].Start != 5.2 || res.Segments[1].End != 12.4 || res.Segments[1].Text != "world" {
		t.Errorf("unexpected segments %+v", res.Segments)
	}
	if len(res.Words) != 2 || res.Words[0].Word != "hello" {
		t.Errorf("unexpected words %+v", res.Words)
	}
}

func TestOpenAIEngine_Transcribe(t *testing.T) {
	srv, rec := transcriptionServer(t, http.StatusOK, verboseJSON, 0)
	engine := services.NewOpenAIEngine("sk-test", srv.URL+"/v1", "", "en")

	res, err := engine.Transcribe(context.Background(), strings.NewReader("RIFFDATA"), "recording", "audio/wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	assertHelloWorld(t, res)

	captured := rec.get()
	if captured.path != "/v1/audio/transcriptions" {
		t.Errorf("unexpected path %q", captured.path)
	}
	if captured.auth != "Bearer sk-test" {
		t.Errorf("unexpected auth header %q", captured.auth)
	}
	if captured.filename != "recording.wav" {
		t.Errorf("expected extension matching mime type, got %q", captured.filename)
	}
	if captured.body != "RIFFDATA" {
		t.Errorf("audio bytes not forwarded, got %q", captured.body)
	}
	if got := captured.fields["response_format"]; len(got) != 1 || got[0] != "verbose_json" {
		t.Errorf("expected verbose_json, got %v", got)
	}
	if got := captured.fields["model"]; len(got) != 1 || got[0] != "whisper-1" {
		t.Errorf("expected whisper-1, got %v", got)
	}
	if got := captured.fields["timestamp_granularities[]"]; len(got) != 2 || got[0] != "word" || got[1] != "segment" {
		t.Errorf("expected word and segment granularities, got %v", got)
	}
	if got := captured.fields["language"]; len(got) != 1 || got[0] != "en" {
		t.Errorf("expected language hint, got %v", got)
	}
}

func TestOpenAIEngine_APIError(t *testing.T) {
	srv, _ := transcriptionServer(t, http.StatusTooManyRequests,
		`{"error":{"message":"Rate limit reached","type":"rate_limit_error"}}`, 0)
	engine := services.NewOpenAIEngine("sk-test", srv.URL+"/v1", "whisper-1", "")

	_, err := engine.Transcribe(context.Background(), strings.NewReader("x"), "a.wav", "audio/wav")
	var tsErr *services.TranscriptionServiceError
	if !errors.As(err, &tsErr) {
		t.Fatalf("expected TranscriptionServiceError, got %v", err)
	}
	if tsErr.StatusCode != http.StatusTooManyRequests || tsErr.Message != "Rate limit reached" {
		t.Errorf("unexpected error %+v", tsErr)
	}
}

func TestOpenAIEngine_Timeout(t *testing.T) {
	srv, _ := transcriptionServer(t, http.StatusOK, verboseJSON, 2*time.Second)
	engine := services.NewOpenAIEngine("sk-test", srv.URL+"/v1", "", "")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := engine.Transcribe(ctx, strings.NewReader("x"), "a.wav", "audio/wav")
	var tsErr *services.TranscriptionServiceError
	if !errors.As(err, &tsErr) || tsErr.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("expected 504 TranscriptionServiceError, got %v", err)
	}
}

func TestOpenAIEngine_Unreachable(t *testing.T) {
	srv, _ := transcriptionServer(t, http.StatusOK, verboseJSON, 0)
	url := srv.URL
	srv.Close()
	engine := services.NewOpenAIEngine("sk-test", url+"/v1", "", "")

	_, err := engine.Transcribe(context.Background(), strings.NewReader("x"), "a.wav", "audio/wav")
	var tsErr *services.TranscriptionServiceError
	if !errors.As(err, &tsErr) || tsErr.StatusCode != 0 {
		t.Fatalf("expected transport TranscriptionServiceError, got %v", err)
	}
}

func TestWhisperEngine_Transcribe(t *testing.T) {
	srv, rec := transcriptionServer(t, http.StatusOK, verboseJSON, 0)
	engine := services.NewWhisperEngine(srv.URL+"/", "", "")

	res, err := engine.Transcribe(context.Background(), strings.NewReader("OggS"), "memo.ogg", "audio/ogg")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	assertHelloWorld(t, res)

	captured := rec.get()
	if captured.path != "/v1/audio/transcriptions" {
		t.Errorf("unexpected path %q", captured.path)
	}
	if captured.filename != "memo.ogg" || captured.partType != "audio/ogg" {
		t.Errorf("unexpected file part %q %q", captured.filename, captured.partType)
	}
	if got := captured.fields["timestamp_granularities[]"]; len(got) != 2 {
		t.Errorf("expected two granularities, got %v", got)
	}
	if _, ok := captured.fields["language"]; ok {
		t.Error("language should be omitted when not configured")
	}
}

func TestWhisperEngine_Error(t *testing.T) {
	srv, _ := transcriptionServer(t, http.StatusBadRequest,
		`{"error":{"message":"Invalid file format.","type":"invalid_request_error"}}`, 0)
	engine := services.NewWhisperEngine(srv.URL, "", "")

	_, err := engine.Transcribe(context.Background(), strings.NewReader("x"), "a.wav", "audio/wav")
	var tsErr *services.TranscriptionServiceError
	if !errors.As(err, &tsErr) {
		t.Fatalf("expected TranscriptionServiceError, got %v", err)
	}
	if tsErr.StatusCode != http.StatusBadRequest || tsErr.Message != "Invalid file format." {
		t.Errorf("unexpected error %+v", tsErr)
	}
}

func TestWhisperEngine_Timeout(t *testing.T) {
	srv, _ := transcriptionServer(t, http.StatusOK, verboseJSON, 2*time.Second)
	engine := services.NewWhisperEngine(srv.URL, "", "")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := engine.Transcribe(ctx, strings.NewReader("x"), "a.wav", "audio/wav")
	var tsErr *services.TranscriptionServiceError
	if !errors.As(err, &tsErr) || tsErr.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("expected 504 TranscriptionServiceError, got %v", err)
	}
}

func TestNewTranscriptionEngine(t *testing.T) {
	cases := map[string]any{
		config.EngineOpenAI:  &services.OpenAIEngine{},
		config.EngineWhisper: &services.WhisperEngine{},
	}
	for name, want := range cases {
		engine, err := services.NewTranscriptionEngine(&config.Config{TranscriptionEngine: name, WhisperURL: "http://localhost:9000"})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if reflect.TypeOf(engine) != reflect.TypeOf(want) {
			t.Errorf("%s: got %T", name, engine)
		}
	}
	if _, err := services.NewTranscriptionEngine(&config.Config{TranscriptionEngine: "vosk"}); err == nil {
		t.Error("expected error for unknown engine")
	}
}
