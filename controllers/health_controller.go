package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meetscribe/services"
)

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   services.GetCurrentTimestamp(),
	})
}
