package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"meetscribe/apperrors"
)

// respondError writes the error envelope for err and aborts the chain.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	logger := log.Ctx(c.Request.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("kind", string(appErr.Kind)).Msg(appErr.Message)
	} else {
		logger.Warn().Str("kind", string(appErr.Kind)).Msg(appErr.Message)
	}
	c.AbortWithStatusJSON(status, appErr.ToResponse())
}

// bindError maps a JSON binding failure to a validation error.
func bindError(err error) *apperrors.AppError {
	if errors.Is(err, io.EOF) {
		return apperrors.Validation("Request body is required")
	}
	return apperrors.Validation("Invalid request body: " + err.Error())
}
