package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumebox/internal/resume"
)

// Services 汇集路由所需的业务组件。
type Services struct {
	Uploader  *resume.Uploader
	Selector  *resume.Selector
	Deleter   *resume.Deleter
	Processor *resume.Processor
	Results   *resume.Results
	Cache     *resume.StateCache
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	redisClient *redis.Client,
	logger *slog.Logger,
	services Services,
	allowedOrigins []string,
) {
	resumeHandler := NewResumeHandler(db, services.Uploader, services.Selector, services.Deleter)
	processingHandler := NewProcessingHandler(db, services.Processor, services.Results, services.Cache)
	wsHandler := NewWsHandler(redisClient, logger, allowedOrigins)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		resumeGroup := v1.Group("/resumes")
		{
			resumeGroup.POST("", resumeHandler.UploadResume)
			resumeGroup.GET("/owner/:owner", resumeHandler.ListResumes)
			resumeGroup.GET("/owner/:owner/active", resumeHandler.GetActiveResume)
			resumeGroup.POST("/:id/activate", resumeHandler.ActivateResume)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)

			resumeGroup.POST("/:id/process", processingHandler.ProcessNow)
			resumeGroup.GET("/:id/results", processingHandler.GetResults)
			resumeGroup.GET("/state/:owner", processingHandler.GetState)
			resumeGroup.GET("/needs-processing/:owner", processingHandler.NeedsProcessing)
		}
	}
}
