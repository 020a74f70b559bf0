package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/planrelay/internal/handler"
	"github.com/navid-fn/planrelay/internal/requestid"
)

// maxBodyBytes caps inbound request bodies.
const maxBodyBytes = 1 << 20

type Config struct {
	PlanHandler *handler.PlanHandler

	// AllowedOrigin is the single origin allowed by CORS. "*" allows any
	// origin; empty disables CORS headers.
	AllowedOrigin string

	Logger *logrus.Logger
}

func NewRouter(cfg *Config) *gin.Engine {
	router := gin.New()

	router.Use(
		requestID(),
		accessLog(cfg.Logger),
		handler.Recovery(cfg.Logger),
		bodyLimit(maxBodyBytes),
	)
	if cfg.AllowedOrigin != "" {
		router.Use(cors.New(corsConfig(cfg.AllowedOrigin)))
	}

	router.GET("/health", handler.Health)
	registerPlanRoutes(&router.RouterGroup, cfg.PlanHandler)

	return router
}

func corsConfig(origin string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", requestid.Header},
		ExposeHeaders: []string{requestid.Header},
	}
	if origin == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = []string{origin}
	}
	return cfg
}
