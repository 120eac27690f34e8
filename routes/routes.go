package routes

import (
	"github.com/gin-gonic/gin"

	"meetscribe/controllers"
	"meetscribe/middlewares"
)

// Dependencies are the controllers the router dispatches to. They are built
// once at startup.
type Dependencies struct {
	Uploads    *controllers.UploadController
	Transcribe *controllers.TranscribeController
	Meetings   *controllers.MeetingController
}

// maxMultipartMemory is how much of a multipart body is held in memory
// before parts spill to temporary files.
const maxMultipartMemory = 8 << 20

func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = maxMultipartMemory

	r.Use(middlewares.RequestID())
	r.Use(middlewares.Logger())
	r.Use(middlewares.Recovery())
	r.Use(middlewares.CORS())

	r.GET("/health", controllers.Health)

	api := r.Group("/api")
	{
		// Uploads
		api.POST("/upload/presigned", deps.Uploads.Presign)
		api.POST("/upload", deps.Uploads.Upload)
		api.GET("/files", deps.Uploads.ProxyRead)

		// Transcription
		api.POST("/transcribe", deps.Transcribe.Transcribe)

		// Meeting records
		api.POST("/meetings/:meetingId", deps.Meetings.Create)
		api.GET("/meetings/:meetingId", deps.Meetings.Get)
	}

	return r
}
