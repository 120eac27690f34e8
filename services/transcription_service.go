package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"meetscribe/config"
	"meetscribe/models"
)

// TranscriptionEngine turns one audio file into a transcript. Calls are
// single-shot; the engine never retries.
type TranscriptionEngine interface {
	Transcribe(ctx context.Context, audio io.Reader, filename, mimeType string) (*models.TranscriptResult, error)
}

// TranscriptionServiceError is any non-success outcome of an engine call.
// StatusCode is 0 when no response was received and 504 when the deadline
// elapsed.
type TranscriptionServiceError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TranscriptionServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transcription service error (status %d): %s", e.StatusCode, e.Message)
	}
	return "transcription service error: " + e.Message
}

func (e *TranscriptionServiceError) Unwrap() error { return e.Err }

// OpenAIEngine transcribes through the OpenAI audio API.
type OpenAIEngine struct {
	client   *openai.Client
	model    string
	language string
}

// NewOpenAIEngine creates the engine. An empty baseURL targets api.openai.com.
func NewOpenAIEngine(apiKey, baseURL, model, language string) *OpenAIEngine {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAIEngine{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		language: language,
	}
}

func (e *OpenAIEngine) Transcribe(ctx context.Context, audio io.Reader, filename, mimeType string) (*models.TranscriptResult, error) {
	// The SDK only forwards a filename, so it must carry the type.
	name := filenameForMimeType(filename, mimeType)

	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.model,
		FilePath: name,
		Reader:   audio,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
			openai.TranscriptionTimestampGranularitySegment,
		},
		Language: e.language,
	})
	if err != nil {
		return nil, openAIError(ctx, err)
	}

	result := fromAudioResponse(resp)
	log.Ctx(ctx).Debug().
		Str("engine", "openai").
		Int("segments", len(result.Segments)).
		Float64("duration", result.Duration).
		Msg("transcription completed")
	return result, nil
}

func openAIError(ctx context.Context, err error) *TranscriptionServiceError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &TranscriptionServiceError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &TranscriptionServiceError{StatusCode: reqErr.HTTPStatusCode, Message: msg, Err: err}
	}
	return transportError(ctx, err)
}

// transportError covers failures where the engine never answered.
func transportError(ctx context.Context, err error) *TranscriptionServiceError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TranscriptionServiceError{StatusCode: http.StatusGatewayTimeout, Message: "transcription timed out", Err: err}
	}
	return &TranscriptionServiceError{Message: err.Error(), Err: err}
}

func fromAudioResponse(resp openai.AudioResponse) *models.TranscriptResult {
	result := &models.TranscriptResult{
		Text:     strings.TrimSpace(resp.Text),
		Segments: make([]models.Segment, 0, len(resp.Segments)),
		Language: resp.Language,
		Duration: resp.Duration,
	}
	for _, s := range resp.Segments {
		result.Segments = append(result.Segments, models.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	if len(resp.Words) > 0 {
		result.Words = make([]models.Word, 0, len(resp.Words))
		for _, w := range resp.Words {
			result.Words = append(result.Words, models.Word{Word: w.Word, Start: w.Start, End: w.End})
		}
	}
	return result
}

// filenameForMimeType keeps a recognized audio extension and otherwise swaps
// in the one matching mimeType.
func filenameForMimeType(filename, mimeType string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "." || base == "/" || base == "" {
		base = "audio"
	}
	if _, known := extensionMimeTypes[strings.ToLower(filepath.Ext(base))]; known {
		return base
	}
	ext, ok := ExtensionForMimeType(mimeType)
	if !ok {
		return base
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}

// NewTranscriptionEngine builds the engine selected by TRANSCRIPTION_ENGINE.
func NewTranscriptionEngine(cfg *config.Config) (TranscriptionEngine, error) {
	switch cfg.TranscriptionEngine {
	case config.EngineOpenAI:
		return NewOpenAIEngine(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.TranscriptionModel, cfg.TranscriptionLanguage), nil
	case config.EngineWhisper:
		return NewWhisperEngine(cfg.WhisperURL, cfg.TranscriptionModel, cfg.TranscriptionLanguage), nil
	default:
		return nil, fmt.Errorf("unknown transcription engine %q", cfg.TranscriptionEngine)
	}
}
