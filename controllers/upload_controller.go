package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meetscribe/models"
	"meetscribe/services"
)

type UploadController struct {
	gateway *services.StorageGateway
}

func NewUploadController(gateway *services.StorageGateway) *UploadController {
	return &UploadController{gateway: gateway}
}

// Presign handles POST /api/upload/presigned.
func (uc *UploadController) Presign(c *gin.Context) {
	var req models.PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	resp, err := uc.gateway.PresignUpload(c.Request.Context(), req.Filename, req.MimeType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Upload handles POST /api/upload with a base64 body.
func (uc *UploadController) Upload(c *gin.Context) {
	var req models.DirectUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	resp, err := uc.gateway.DirectUpload(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ProxyRead handles GET /api/files?fileUrl=... and streams the object back.
func (uc *UploadController) ProxyRead(c *gin.Context) {
	obj, err := uc.gateway.ProxyRead(c.Request.Context(), c.Query("fileUrl"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = services.DefaultMimeType
	}
	c.DataFromReader(http.StatusOK, obj.ContentLength, contentType, obj.Body, map[string]string{
		"Cache-Control": "public, max-age=3600",
	})
}
