package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"asfdemux/pkg/demux"
)

// Server represents the API server
type Server struct {
	router     *gin.Engine
	port       string
	extractors *extractorCache
	httpServer *http.Server
}

// NewServer creates a new API server instance
// root 아래의 ASF 파일을 이름으로 조회한다.
func NewServer(port string, root string, ttl time.Duration, opts demux.Options) *Server {
	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(requestLogger())
	router.Use(gin.Recovery())

	s := &Server{
		router:     router,
		port:       port,
		extractors: newExtractorCache(root, ttl, opts),
	}
	s.SetupRoutes()
	return s
}

// SetupRoutes configures all API routes
func (s *Server) SetupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/health", s.HealthHandler)
		v1.GET("/files/:name", s.InfoHandler)
		v1.DELETE("/files/:name", s.CloseHandler)
		v1.GET("/files/:name/stats", s.StatsHandler)
		v1.GET("/files/:name/tracks/:track/samples", s.SamplesHandler)
	}
}

// Start starts the API server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    ":" + s.port,
		Handler: s.router,
	}

	// 논블로킹으로 서버 시작
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server error", "err", err)
		}
	}()

	return nil
}

// Stop 요청 처리를 마치고 열린 추출기를 모두 닫는다
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.extractors.flush()
	return err
}

// GetRouter returns the gin router (for testing)
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// requestLogger gin 요청을 slog 로 기록
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("API request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}
