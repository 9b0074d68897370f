package handler

import (
	"voicemailboard/docs"
	"voicemailboard/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterOptions struct {
	// 로컬 저장소일 때만 /uploads 정적 서빙
	UploadDir        string
	RecordRatePerMin int
	Gatherer         prometheus.Gatherer
}

func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	router.Use(cors.New(config))

	api := router.Group("/api")
	{
		api.GET("/check_number", h.CheckNumber)
		api.POST("/record", middleware.RecordRateLimit(opts.RecordRatePerMin), h.Record)
		api.GET("/listen", h.Listen)
	}
	router.GET("/ws/record", h.RecordStream)

	if opts.UploadDir != "" {
		router.Static("/uploads", opts.UploadDir)
	}
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/healthz", h.Healthz)
	return router
}
