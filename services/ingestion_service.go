package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"meetscribe/apperrors"
	"meetscribe/models"
)

// AcceptedFileFields are the multipart fields that may carry the audio file,
// in priority order.
var AcceptedFileFields = []string{"file", "audio"}

// IngestionConfig bounds the transcription pipeline.
type IngestionConfig struct {
	TempDir              string
	MaxUploadBytes       int64
	TranscriptionTimeout time.Duration
}

// IngestionService runs the request-scoped pipelines: audio to transcript,
// and the independent create/read of meeting records.
type IngestionService struct {
	engine  TranscriptionEngine
	storage *StorageGateway
	repo    MeetingRepository
	cfg     IngestionConfig
}

func NewIngestionService(engine TranscriptionEngine, storage *StorageGateway, repo MeetingRepository, cfg IngestionConfig) *IngestionService {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &IngestionService{engine: engine, storage: storage, repo: repo, cfg: cfg}
}

// TranscribeForm transcribes the audio file carried by a multipart form.
func (s *IngestionService) TranscribeForm(ctx context.Context, form *multipart.Form) (*models.TranscriptResult, error) {
	fh, err := selectFile(form)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxUploadBytes > 0 && fh.Size > s.cfg.MaxUploadBytes {
		return nil, apperrors.PayloadTooLarge(fh.Size, s.cfg.MaxUploadBytes)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	defer src.Close()

	return s.transcribe(ctx, src, fh.Filename, fh.Header.Get("Content-Type"))
}

// TranscribeStaged transcribes an object previously uploaded through the
// storage gateway.
func (s *IngestionService) TranscribeStaged(ctx context.Context, staged models.StagedFile) (*models.TranscriptResult, error) {
	if strings.TrimSpace(staged.FileURL) == "" {
		return nil, apperrors.MissingField("fileUrl")
	}

	obj, err := s.storage.ProxyRead(ctx, staged.FileURL)
	if err != nil {
		return nil, err
	}
	defer obj.Body.Close()

	if s.cfg.MaxUploadBytes > 0 && obj.ContentLength > s.cfg.MaxUploadBytes {
		return nil, apperrors.PayloadTooLarge(obj.ContentLength, s.cfg.MaxUploadBytes)
	}

	filename := staged.Filename
	if filename == "" {
		filename = OriginalFilename(obj.Key)
	}
	declared := staged.MimeType
	if declared == "" && normalizeMimeType(obj.ContentType) != DefaultMimeType {
		declared = obj.ContentType
	}

	return s.transcribe(ctx, obj.Body, filename, declared)
}

func (s *IngestionService) transcribe(ctx context.Context, src io.Reader, filename, declared string) (*models.TranscriptResult, error) {
	logger := log.Ctx(ctx)

	var result *models.TranscriptResult
	err := WithTempArtifact(ctx, s.cfg.TempDir, filename, src, s.cfg.MaxUploadBytes, func(path string) error {
		if !IsSupportedFormat(declared, filename) {
			return apperrors.UnsupportedFormat(filename, declared, DetectMimeType(path))
		}

		// Accepted through the extension: forward the extension's type
		// rather than a generic declared one.
		mimeType := normalizeMimeType(declared)
		if !supportedMimeTypes[mimeType] {
			mimeType = ResolveMimeType("", filename, DetectMimeType(path))
		}

		f, err := os.Open(path)
		if err != nil {
			return apperrors.Internal(err)
		}
		defer f.Close()

		tctx := ctx
		if s.cfg.TranscriptionTimeout > 0 {
			var cancel context.CancelFunc
			tctx, cancel = context.WithTimeout(ctx, s.cfg.TranscriptionTimeout)
			defer cancel()
		}

		started := time.Now()
		res, err := s.engine.Transcribe(tctx, f, filename, mimeType)
		if err != nil {
			var tsErr *TranscriptionServiceError
			if errors.As(err, &tsErr) {
				return apperrors.TranscriptionFailed(tsErr.StatusCode, tsErr.Message, err)
			}
			if tctx.Err() != nil {
				return apperrors.TranscriptionFailed(0, tctx.Err().Error(), err)
			}
			return apperrors.TranscriptionFailed(0, err.Error(), err)
		}

		logger.Info().
			Str("filename", filename).
			Str("mime_type", mimeType).
			Dur("elapsed", time.Since(started)).
			Float64("duration", res.Duration).
			Msg("file transcribed")
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreateMeeting commits a named meeting record. An existing id is never
// overwritten.
func (s *IngestionService) CreateMeeting(ctx context.Context, meetingID string, data *models.MeetingData) (*models.Meeting, error) {
	if err := checkMeetingID(meetingID); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, apperrors.MissingField("meetingData")
	}
	if strings.TrimSpace(data.Title) == "" {
		return nil, apperrors.MissingField("title")
	}
	for field, raw := range map[string]json.RawMessage{"summary": data.Summary, "transcription": data.Transcription} {
		if len(raw) > 0 && !json.Valid(raw) {
			return nil, apperrors.Validation("Field " + field + " must be valid JSON").WithDetail("field", field)
		}
	}

	// Fast path only; the conditional insert below decides races.
	if _, err := s.repo.Get(ctx, meetingID); err == nil {
		return nil, apperrors.Conflict("meeting", meetingID)
	} else if !errors.Is(err, ErrMeetingNotFound) {
		return nil, apperrors.DatabaseError(err)
	}

	m, err := s.repo.CreateIfAbsent(ctx, models.NewMeeting{MeetingID: meetingID, MeetingData: *data})
	if err != nil {
		if errors.Is(err, ErrMeetingExists) {
			return nil, apperrors.Conflict("meeting", meetingID)
		}
		return nil, apperrors.DatabaseError(err)
	}

	log.Ctx(ctx).Info().Str("meeting_id", meetingID).Msg("meeting created")
	return m, nil
}

func (s *IngestionService) GetMeeting(ctx context.Context, meetingID string) (*models.Meeting, error) {
	if err := checkMeetingID(meetingID); err != nil {
		return nil, err
	}
	m, err := s.repo.Get(ctx, meetingID)
	if err != nil {
		if errors.Is(err, ErrMeetingNotFound) {
			return nil, apperrors.NotFound("meeting", meetingID)
		}
		return nil, apperrors.DatabaseError(err)
	}
	return m, nil
}

// checkMeetingID rejects ids that differ from their trimmed form, so
// " m-1" and "m-1" never address the same record.
func checkMeetingID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.MissingField("meetingId")
	}
	if strings.TrimSpace(id) != id {
		return apperrors.Validation("meetingId must not start or end with whitespace").WithDetail("field", "meetingId")
	}
	return nil
}

func selectFile(form *multipart.Form) (*multipart.FileHeader, error) {
	if form == nil {
		return nil, apperrors.MissingFile(AcceptedFileFields, []string{})
	}
	for _, field := range AcceptedFileFields {
		if files := form.File[field]; len(files) > 0 {
			return files[0], nil
		}
	}
	return nil, apperrors.MissingFile(AcceptedFileFields, receivedFields(form))
}

func receivedFields(form *multipart.Form) []string {
	seen := make(map[string]bool)
	fields := []string{}
	for name := range form.File {
		if !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
	}
	for name := range form.Value {
		if !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}
