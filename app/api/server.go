package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, publicDir string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(requestID())

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\" %s\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
				param.Keys[requestIDKey],
			)
		},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, "+requestIDHeader)
		c.Header("Access-Control-Expose-Headers", requestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler)
	setupUI(r, publicDir)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	api := r.Group("/api")
	{
		api.GET("/history", handler.ListHistory)
		api.GET("/history/feed", handler.GetHistoryFeed)

		stats := api.Group("/stats")
		stats.GET("/overview", handler.GetOverview)
		stats.GET("/channels", handler.GetChannels)
		stats.GET("/by-hour", handler.GetByHour)
		stats.GET("/by-weekday", handler.GetByWeekday)
		stats.GET("/by-month", handler.GetByMonth)

		api.GET("/import/status", handler.GetImportStatus)
		api.POST("/import", handler.Import)
		api.DELETE("/data", handler.ClearData)

		api.GET("/server-info", handler.GetServerInfo)
	}

	r.GET("/health", handler.GetHealth)

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// setupUI serves the prebuilt dashboard when publicDir exists, otherwise
// the root path describes the service.
func setupUI(r *gin.Engine, publicDir string) {
	if info, err := os.Stat(publicDir); publicDir == "" || err != nil || !info.IsDir() {
		if publicDir != "" {
			slog.Warn("Public directory not found, UI disabled", "path", publicDir)
		}
		r.GET("/", serviceInfo)
		r.NoRoute(notFound)
		return
	}

	pages := map[string]string{
		"/":          "pages/setup.html",
		"/dashboard": "pages/index.html",
		"/history":   "pages/history.html",
	}
	for route, page := range pages {
		file := filepath.Join(publicDir, page)
		r.GET(route, func(c *gin.Context) {
			c.File(file)
		})
	}

	files := http.FileServer(http.Dir(publicDir))
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			notFound(c)
			return
		}
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			notFound(c)
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	})

	slog.Info("Serving dashboard UI", "path", publicDir)
}

func serviceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "Watch History",
		"description": "Takeout watch history import and statistics API",
		"endpoints": map[string]string{
			"history":     "/api/history",
			"feed":        "/api/history/feed",
			"stats":       "/api/stats/{overview,channels,by-hour,by-weekday,by-month}",
			"import":      "/api/import (POST text/html)",
			"status":      "/api/import/status",
			"clear":       "/api/data (DELETE)",
			"server_info": "/api/server-info",
			"health":      "/health",
		},
	})
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, errorResponse{
		Error:   "Not Found",
		Message: fmt.Sprintf("Route %s %s not found.", c.Request.Method, c.Request.URL.Path),
	})
}

// requestID tags every request with an id, reusing one supplied by the client.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
