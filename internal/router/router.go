package router

import (
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"pulse-go/internal/config"
	"pulse-go/internal/handlers"
	"pulse-go/internal/repository"
	"pulse-go/internal/telemetry"
)

// Deps are the collaborators the routes are served from.
type Deps struct {
	Store      *repository.RunStore
	Runner     handlers.Runner
	Metrics    *telemetry.Metrics
	Dashboards func() []config.DashboardConfig
	// RateLimit is the number of on-demand runs allowed per client per minute.
	RateLimit int
}

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error": "Too many requests. Try again after " + info.ResetTime.Format(time.RFC3339),
	})
}

func Setup(log *zap.Logger, deps Deps) *gin.Engine {
	// Set up a new Gin router, add recovery middleware and request logging.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
	})
	router.Use(func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)
		if err != nil {
			c.Abort()
			return
		}
	})

	ecgHandler := handlers.NewECGHandler(log, deps.Store)
	resultsHandler := handlers.NewResultsHandler(log, deps.Store, deps.Dashboards)
	runsHandler := handlers.NewRunsHandler(log, deps.Runner)

	limit := uint(deps.RateLimit)
	if limit == 0 {
		limit = 1
	}
	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: limit,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	router.GET("/health", resultsHandler.Health)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	api := router.Group("/api/v1")
	{
		ecgRoutes := api.Group("/ecg")
		{
			ecgRoutes.GET("/features", ecgHandler.ListFeatures)
			ecgRoutes.GET("/features/:source", ecgHandler.GetFeature)
			ecgRoutes.GET("/diagnostics", ecgHandler.Diagnostics)
		}

		api.GET("/charts/:name", resultsHandler.Chart)
		api.GET("/nudges", resultsHandler.Nudges)
		api.GET("/dashboards", resultsHandler.Dashboards)
		api.POST("/runs", limiter, runsHandler.Trigger)
	}

	return router
}
