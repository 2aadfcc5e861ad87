package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"k8s.io/klog/v2"

	"github.com/bisegni/jsoncsv/pkg/export"
	"github.com/bisegni/jsoncsv/pkg/source"
)

// DefaultFilename is the attachment name offered to clients.
const DefaultFilename = "myData.csv"

// Server exposes the exporter over HTTP.
type Server struct {
	Exporter *export.Exporter
	// Catalog holds the streams served by /csvfromfile.
	Catalog *source.Catalog
	// DefaultStream is used when the request carries no ?name=.
	DefaultStream string
	// Players backs /csv. Nil disables the route.
	Players  source.Players
	Filename string
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/streams", s.listStreams)
	r.GET("/csv", s.getCSV)
	r.GET("/csvfromfile", s.getCSVFromFile)
	return r
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		klog.InfoS("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	klog.InfoS("HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) listStreams(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"streams": s.Catalog.Names(), "default": s.DefaultStream})
}

// getCSV serves the uniform players export.
func (s *Server) getCSV(c *gin.Context) {
	if s.Players == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no player source configured"})
		return
	}

	w, finish := s.beginCSV(c)
	_, err := s.Exporter.ExportUniform(c.Request.Context(), s.Players, w)
	if err != nil {
		klog.ErrorS(err, "Uniform CSV export failed")
	}
	finish(err)
}

// getCSVFromFile serves the two-pass export of a catalog stream.
func (s *Server) getCSVFromFile(c *gin.Context) {
	name := c.DefaultQuery("name", s.DefaultStream)
	stream, err := s.Catalog.Get(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	w, finish := s.beginCSV(c)
	_, err = s.Exporter.ExportStream(c.Request.Context(), stream, w)
	if err != nil {
		klog.ErrorS(err, "CSV export failed", "stream", name)
	}
	finish(err)
}

// beginCSV commits status and headers and returns the body writer, gzip
// compressed when the client accepts it. finish ends the body; given an
// error it aborts the connection so the client sees the body as truncated.
func (s *Server) beginCSV(c *gin.Context) (w io.Writer, finish func(error)) {
	filename := s.Filename
	if filename == "" {
		filename = DefaultFilename
	}
	c.Header("Content-Type", "text/csv;charset=utf-8")
	c.Header("Content-Disposition", "attachment; filename="+filename)

	w = c.Writer
	var gz *gzip.Writer
	if acceptsGzip(c.Request) {
		c.Header("Content-Encoding", "gzip")
		c.Header("Vary", "Accept-Encoding")
		gz = gzip.NewWriter(c.Writer)
		w = gz
	}

	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()

	return w, func(err error) {
		if err != nil {
			panic(http.ErrAbortHandler)
		}
		if gz != nil {
			if err := gz.Close(); err != nil {
				klog.ErrorS(err, "Failed to finish gzip stream")
			}
		}
	}
}

// recovery turns handler panics into 500s but lets http.ErrAbortHandler
// through to net/http, which drops the connection.
func recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, err any) {
		if err == http.ErrAbortHandler {
			panic(err)
		}
		klog.ErrorS(nil, "Handler panicked", "panic", err, "path", c.Request.URL.Path)
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

func acceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		enc := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if strings.EqualFold(enc, "gzip") {
			return true
		}
	}
	return false
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		klog.V(2).InfoS("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"latency", time.Since(start),
		)
	}
}
