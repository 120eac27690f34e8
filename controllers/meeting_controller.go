package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"meetscribe/apperrors"
	"meetscribe/models"
	"meetscribe/services"
)

type MeetingController struct {
	ingestion *services.IngestionService
}

func NewMeetingController(ingestion *services.IngestionService) *MeetingController {
	return &MeetingController{ingestion: ingestion}
}

// Create handles POST /api/meetings/:meetingId.
func (mc *MeetingController) Create(c *gin.Context) {
	var req models.CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			respondError(c, apperrors.MissingField("meetingData"))
			return
		}
		respondError(c, bindError(err))
		return
	}

	meeting, err := mc.ingestion.CreateMeeting(c.Request.Context(), c.Param("meetingId"), req.MeetingData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.PureJSON(http.StatusCreated, meeting)
}

// Get handles GET /api/meetings/:meetingId. Meetings are rendered without
// HTML escaping so summary and transcription text comes back as stored.
func (mc *MeetingController) Get(c *gin.Context) {
	meeting, err := mc.ingestion.GetMeeting(c.Request.Context(), c.Param("meetingId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.PureJSON(http.StatusOK, meeting)
}
