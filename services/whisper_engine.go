package services

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"meetscribe/models"
)

// WhisperEngine talks to a self-hosted Whisper server exposing the
// OpenAI-compatible /v1/audio/transcriptions endpoint.
type WhisperEngine struct {
	client   *resty.Client
	model    string
	language string
}

func NewWhisperEngine(baseURL, model, language string) *WhisperEngine {
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperEngine{
		client:   resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")),
		model:    model,
		language: language,
	}
}

func (e *WhisperEngine) Transcribe(ctx context.Context, audio io.Reader, filename, mimeType string) (*models.TranscriptResult, error) {
	form := map[string]string{
		"model":           e.model,
		"response_format": string(openai.AudioResponseFormatVerboseJSON),
	}
	if e.language != "" {
		form["language"] = e.language
	}

	var result openai.AudioResponse
	var apiErr openai.ErrorResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetMultipartField("file", filenameForMimeType(filename, mimeType), mimeType, audio).
		SetMultipartFormData(form).
		SetFormDataFromValues(url.Values{
			"timestamp_granularities[]": {
				string(openai.TranscriptionTimestampGranularityWord),
				string(openai.TranscriptionTimestampGranularitySegment),
			},
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/v1/audio/transcriptions")
	if err != nil {
		return nil, transportError(ctx, err)
	}

	if resp.IsError() {
		msg := strings.TrimSpace(resp.String())
		if apiErr.Error != nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		log.Ctx(ctx).Warn().
			Str("engine", "whisper").
			Int("status", resp.StatusCode()).
			Str("error", msg).
			Msg("transcription rejected")
		return nil, &TranscriptionServiceError{StatusCode: resp.StatusCode(), Message: msg}
	}

	return fromAudioResponse(result), nil
}

var (
	_ TranscriptionEngine = (*WhisperEngine)(nil)
	_ TranscriptionEngine = (*OpenAIEngine)(nil)
)
