package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/cmdb_cleanser/config"
	"github.com/mmdatafocus/cmdb_cleanser/middlewares"
	"github.com/mmdatafocus/cmdb_cleanser/session"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 30 * time.Second

type server struct {
	settings config.Settings
	svc      *session.Service
}

func corsConfig(settings config.Settings) cors.Config {
	cfg := cors.DefaultConfig()
	// Production requires an explicit allowlist; other environments allow all origins.
	if strings.EqualFold(settings.GoEnv, "production") {
		cfg.AllowOrigins = settings.CORSAllowedOrigins
		if len(cfg.AllowOrigins) == 0 {
			cfg.AllowOrigins = []string{}
		}
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AddAllowMethods("GET", "POST", "OPTIONS")
	cfg.AddAllowHeaders("Origin", "Content-Type", middlewares.CorrelationHeader)
	cfg.AddExposeHeaders("Content-Length", "Content-Disposition", middlewares.CorrelationHeader)
	return cfg
}

func newRouter(s *server) *gin.Engine {
	logger := config.GetLogger()
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(cors.New(corsConfig(s.settings)))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	api := r.Group("/api")
	api.POST("/upload", middlewares.BodyLimitMiddleware(s.settings.MaxUploadBytes+(1<<20)), s.uploadHandler())
	api.GET("/columns", s.columnsHandler())
	api.POST("/columns/config", s.configureHandler())
	api.GET("/subtypes", s.subtypesHandler())
	api.GET("/columns/:name/actions", s.actionsHandler())
	api.POST("/columns/:name/scan", s.scanHandler())
	api.POST("/decisions", s.decideHandler())
	api.GET("/decisions", s.decisionsHandler())
	api.POST("/cells", s.updateCellHandler())
	api.POST("/rows/:row/reset", s.resetRowHandler())
	api.POST("/export", s.exportHandler())

	r.NoRoute(customNotFoundHandler)
	return r
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.WithFields(logrus.Fields{
				"path":   c.FullPath(),
				"status": c.Writer.Status(),
			}).Error(c.Errors.String())
		}
	}
}

func main() {
	settings := config.LoadSettings()
	logger := config.GetLogger()
	if strings.EqualFold(settings.GoEnv, "production") {
		gin.SetMode(gin.ReleaseMode)
	}

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	opts, closeBackends := session.OptionsFromSettings(settings)
	defer closeBackends()
	svc, err := session.New(opts)
	if err != nil {
		log.Fatalf("unable to start session service: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           newRouter(&server{settings: settings, svc: svc}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()
	logger.WithFields(logrus.Fields{"port": settings.Port}).Info("server started")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}
