package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/loregraph/internal/http/handlers"
	httpMW "github.com/yungbote/loregraph/internal/http/middleware"
	"github.com/yungbote/loregraph/internal/platform/logger"
)

type RouterConfig struct {
	Log             *logger.Logger
	ServiceName     string
	CORSOrigins     []string
	MaxRequestBytes int64

	NarrativeHandler *httpH.NarrativeHandler
	RealtimeHandler  *httpH.RealtimeHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readycheck", cfg.HealthHandler.ReadyCheck)
	}

	api := r.Group("/api")
	sessions := api.Group("/sessions/:session_id")
	sessions.Use(httpMW.AttachSession(), httpMW.LimitBody(cfg.MaxRequestBytes))
	{
		// Writes
		if cfg.NarrativeHandler != nil {
			sessions.POST("/world", cfg.NarrativeHandler.SaveWorld)
			sessions.POST("/scene", cfg.NarrativeHandler.SaveScene)
			sessions.POST("/choices", cfg.NarrativeHandler.SaveChoices)
			sessions.POST("/pregame", cfg.NarrativeHandler.AttachPregame)
			sessions.POST("/choices/:choice_id/leads-to", cfg.NarrativeHandler.LinkChoice)

			// Reads
			sessions.GET("/choices", cfg.NarrativeHandler.ListChoices)
			sessions.GET("/state", cfg.NarrativeHandler.GetState)
			sessions.GET("/journal", cfg.NarrativeHandler.ListJournal)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			sessions.GET("/events", cfg.RealtimeHandler.Stream)
		}
	}

	return r
}
