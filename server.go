package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/puretradeops/logistics_backend/config"
	"bitbucket.org/puretradeops/logistics_backend/excelimport"
	"bitbucket.org/puretradeops/logistics_backend/models"
	"bitbucket.org/puretradeops/logistics_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, app endpoints return 503.
	r := gin.New()
	r.Use(gin.Recovery())

	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production require an explicit allowlist; allow all elsewhere.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") && allowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "x-correlation-id")
	r.Use(cors.New(corsConfig))

	r.POST("/import/preview", excelimport.PreviewHandler())
	r.POST("/import/execute", excelimport.ExecuteHandler())
	r.GET("/shipments", listShipmentsHandler())
	r.GET("/alerts", listAlertsHandler())

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.WithFields(logrus.Fields{"port": port}).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed: " + err.Error())
		}
	}()

	// Connect dependencies after the listener is up.
	go func() {
		config.ConnectDatabaseWithRetry()
		models.MigrateTable()
	}()
	go config.ConnectRedisWithRetry()

	<-sigCtx.Done()
	logger.Info("shutdown signal received; draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown did not complete cleanly: " + err.Error())
	}
}

func listShipmentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shipments, err := models.ListShipments(c.Request.Context(), c.Query("customer"), c.Query("status"))
		if err != nil {
			config.LogError(config.GetLogger(), "server.go", "listShipmentsHandler", "list shipments", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list shipments"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"shipments": shipments})
	}
}

func listAlertsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var active *bool
		switch c.Query("active") {
		case "true":
			active = utils.NewTrue()
		case "false":
			active = utils.NewFalse()
		}
		alerts, err := models.ListAlerts(c.Request.Context(), active)
		if err != nil {
			config.LogError(config.GetLogger(), "server.go", "listAlertsHandler", "list alerts", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alerts"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"alerts": alerts})
	}
}
