package controllers

import (
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"meetscribe/apperrors"
	"meetscribe/models"
	"meetscribe/services"
)

// multipartOverhead allows for boundaries and part headers on top of the file.
const multipartOverhead = 1 << 20

type TranscribeController struct {
	ingestion      *services.IngestionService
	maxUploadBytes int64
}

func NewTranscribeController(ingestion *services.IngestionService, maxUploadBytes int64) *TranscribeController {
	return &TranscribeController{ingestion: ingestion, maxUploadBytes: maxUploadBytes}
}

// Transcribe handles POST /api/transcribe. The audio arrives either as a
// multipart file (field file or audio) or as a JSON reference to an object
// uploaded earlier.
func (tc *TranscribeController) Transcribe(c *gin.Context) {
	ctx := c.Request.Context()

	if isJSON(c.GetHeader("Content-Type")) {
		var staged models.StagedFile
		if err := c.ShouldBindJSON(&staged); err != nil {
			respondError(c, bindError(err))
			return
		}
		result, err := tc.ingestion.TranscribeStaged(ctx, staged)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.NewTranscribeResponse(result))
		return
	}

	limit := tc.maxUploadBytes + multipartOverhead
	if c.Request.ContentLength > limit {
		respondError(c, apperrors.PayloadTooLarge(c.Request.ContentLength, tc.maxUploadBytes))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			respondError(c, apperrors.PayloadTooLarge(0, tc.maxUploadBytes))
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			respondError(c, apperrors.MissingFile(services.AcceptedFileFields, []string{}))
		default:
			respondError(c, apperrors.Validation("Malformed multipart body").WithCause(err))
		}
		return
	}
	defer form.RemoveAll()

	result, err := tc.ingestion.TranscribeForm(ctx, form)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewTranscribeResponse(result))
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}
