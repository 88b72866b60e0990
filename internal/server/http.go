package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sumanths012/SymptoSense/constants"
	"github.com/sumanths012/SymptoSense/internal/common"
)

const requestIDHeader = "X-Request-ID"

// HTTPConfig describes the HTTP listener.
type HTTPConfig struct {
	Addr            string
	MaxUploadBytes  int64
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// HTTPServer exposes ExtractionService over JSON/HTTP.
type HTTPServer struct {
	cfg    HTTPConfig
	svc    *ExtractionService
	router *gin.Engine
	logger *slog.Logger
}

func NewHTTPServer(cfg HTTPConfig, svc *ExtractionService, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxUploadBytes
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &HTTPServer{cfg: cfg, svc: svc, router: router, logger: logger}
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	v1 := router.Group("/v1")
	v1.POST("/extract", s.handleExtract)
	v1.POST("/extract/text", s.handleExtractText)
	v1.POST("/predict", s.handlePredict)
	v1.GET("/categories", s.handleCategories)
	return s
}

// Handler returns the router, mostly for tests.
func (s *HTTPServer) Handler() http.Handler { return s.router }

func (s *HTTPServer) Addr() string { return s.cfg.Addr }

// Start serves until ctx is cancelled or the listener fails.
func (s *HTTPServer) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("http server listening", "addr", s.cfg.Addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shCtx)
	case err := <-errCh:
		return err
	}
}

func (s *HTTPServer) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	ctx := c.Request.Context()
	if id := c.GetString("request_id"); id != "" {
		ctx = common.WithRequestID(ctx, id)
	}
	return common.WithTimeout(ctx, s.cfg.RequestTimeout)
}

func (s *HTTPServer) handleExtract(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || c.Request.ContentLength > s.cfg.MaxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadBytes)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	ext := filepath.Ext(fh.Filename)
	if constants.MapExtToFormat(ext) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported file type %q", ext)})
		return
	}

	path, cleanup, err := saveUpload(fh, ext)
	if err != nil {
		s.logger.Error("http.upload.save_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store upload"})
		return
	}
	defer cleanup()

	ctx, cancel := s.requestContext(c)
	defer cancel()
	out, err := s.svc.ExtractFile(ctx, path, c.PostFormArray("category"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	// the temp path means nothing to the caller
	out.Source = fh.Filename
	c.JSON(http.StatusOK, out)
}

func saveUpload(fh *multipart.FileHeader, ext string) (string, func(), error) {
	src, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "symptosense-upload-*"+ext)
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(dst.Name()) }
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		cleanup()
		return "", nil, err
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return dst.Name(), cleanup, nil
}

func (s *HTTPServer) handleExtractText(c *gin.Context) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()
	out, err := s.svc.ExtractText(ctx, req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *HTTPServer) handlePredict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()
	pred, err := s.svc.Predict(ctx, req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pred)
}

func (s *HTTPServer) handleCategories(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Catalog())
}

func (s *HTTPServer) writeError(c *gin.Context, err error) {
	var verrs common.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "form is incomplete or invalid", "fields": []common.ValidationError(verrs)})
	case errors.Is(err, common.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrOCR):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	default:
		s.logger.Error("http.request.failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// requestLogger tags each request with an ID and logs it once it completes.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, id := common.EnsureRequestID(common.WithRequestID(c.Request.Context(), c.GetHeader(requestIDHeader)))
		c.Request = c.Request.WithContext(ctx)
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"ip", c.ClientIP(),
			"request_id", id,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
