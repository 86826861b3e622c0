package procserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"ggh-shell/internal/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	DefaultListen = "127.0.0.1:8080"
	DefaultPath   = "/proc"
	DefaultParam  = "cmd"
)

// Options 配置命令端点服务。
type Options struct {
	Listen string
	// Path 与 Param 决定端点形如 GET <Path>?<Param>=<line>。
	Path  string
	Param string
	// CORSOrigins 为空时允许任意来源。
	CORSOrigins []string
	Registry    *Registry
	Log         *logger.LogEntry
}

// Server 在 HTTP 上暴露命令注册表。
type Server struct {
	opts   Options
	engine *gin.Engine
	log    *logger.LogEntry
}

func New(opts Options) (*Server, error) {
	if opts.Registry == nil {
		return nil, errors.New("procserver: registry is nil")
	}
	if strings.TrimSpace(opts.Listen) == "" {
		opts.Listen = DefaultListen
	}
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if !strings.HasPrefix(opts.Path, "/") {
		opts.Path = "/" + opts.Path
	}
	if opts.Param == "" {
		opts.Param = DefaultParam
	}
	log := opts.Log
	if log == nil {
		log = logger.Named("procserver")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log), corsMiddleware(opts.CORSOrigins))

	s := &Server{opts: opts, engine: engine, log: log}
	engine.GET(opts.Path, s.handleProc)
	engine.GET("/health", s.handleHealth)
	return s, nil
}

// Handler 返回底层 http.Handler，测试时可直接挂到 httptest。
func (s *Server) Handler() http.Handler { return s.engine }

// Run 监听并服务，直到 ctx 取消后优雅退出。
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Listen, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("op", "serve").Infof("listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.log.WithField("op", "serve").Info("server stopped")
		return nil
	}
}

func (s *Server) handleProc(c *gin.Context) {
	line, ok := c.GetQuery(s.opts.Param)
	if !ok {
		c.String(http.StatusBadRequest, "missing %s parameter", s.opts.Param)
		return
	}
	reply, err := s.opts.Registry.Process(c.Request.Context(), line)
	if err != nil {
		s.log.WithFields(logger.Fields{"op": "proc", "line": line}).Warnf("command failed: %v", err)
		c.String(http.StatusInternalServerError, "%s", err.Error())
		return
	}
	ct := reply.ContentType
	if ct == "" {
		ct = "text/plain; charset=utf-8"
	}
	c.Data(http.StatusOK, ct, []byte(reply.Body))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Accept", "Authorization", "X-Request-ID"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func requestLogger(log *logger.LogEntry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logger.Fields{
			"op":         "http",
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetHeader("X-Request-ID"),
			"elapsed":    time.Since(start).Round(time.Millisecond),
		}).Info("request handled")
	}
}
