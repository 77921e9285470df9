package report

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Server serves the verification report over HTTP:
//
//	GET /         cached HTML report
//	GET /summary  JSON summary
type Server struct {
	agg    *Aggregator
	logger *slog.Logger
	echo   *echo.Echo
}

func NewServer(agg *Aggregator, lg *slog.Logger) *Server {
	if lg == nil {
		lg = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	s := &Server{agg: agg, logger: lg, echo: e}
	e.GET("/", s.handleReport)
	e.GET("/summary", s.handleSummary)
	return s
}

// Handler exposes the underlying handler for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves on addr until Shutdown. It blocks.
func (s *Server) Start(addr string) error {
	s.logger.Info("report server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleReport(c echo.Context) error {
	b, err := s.agg.HTML()
	if err != nil {
		s.logger.Error("report render failed", "error", err)
		return c.String(http.StatusInternalServerError, "report generation failed")
	}
	return c.HTMLBlob(http.StatusOK, b)
}

func (s *Server) handleSummary(c echo.Context) error {
	return c.JSON(http.StatusOK, s.agg.Report())
}
