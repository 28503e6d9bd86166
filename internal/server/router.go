package server

import (
	"net/http"

	"advisorbooking/internal/domain/appointment"
	"advisorbooking/internal/domain/calendar"
	"advisorbooking/internal/domain/notification"
	"advisorbooking/internal/middleware"
	"advisorbooking/internal/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Logger      *logging.Logger
	CORSOrigins []string
}

func NewRouter(svc *Services, cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(svc.Registry, promhttp.HandlerOpts{})))

	wsHandler := notification.NewWSHandler(svc.Hub, cfg.Logger)
	r.GET("/ws/notifications", middleware.Identity(), wsHandler.HandleWebSocket)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Identity())
	{
		appointment.NewHandler(svc.Appointments).RegisterRoutes(v1)
		calendar.NewHandler(svc.Calendar).RegisterRoutes(v1)
		notification.NewHandler(svc.Notifications).RegisterRoutes(v1)
	}

	return r
}
