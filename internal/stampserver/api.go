package stampserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/anatolykoptev/go_ytstamps/internal/engine"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generator is the slice of Pipeline the REST API needs.
type Generator interface {
	Generate(ctx context.Context, rawURL string) (engine.GenerationResult, error)
}

// DiagnosticsReader lists persisted diagnostics. Optional.
type DiagnosticsReader interface {
	Recent(ctx context.Context, limit int) ([]engine.Diagnostic, error)
	CountByLayer(ctx context.Context) (map[string]int64, error)
}

type generateRequest struct {
	VideoURL string `json:"videoUrl" form:"videoUrl"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type linkResponse struct {
	URL string `json:"url"`
}

type diagnosticsResponse struct {
	Items  []engine.Diagnostic `json:"items"`
	Counts map[string]int64    `json:"counts"`
}

// NewAPI builds the REST server. diags may be nil.
func NewAPI(gen Generator, diags DiagnosticsReader) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		}
		if c.Response().Committed {
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("64K"))
	e.Use(requestLogger)

	a := &api{gen: gen, diags: diags}
	e.POST("/generate", a.generate)
	e.GET("/api/health", a.health)
	e.GET("/api/link", a.link)
	e.GET("/api/diagnostics", a.diagnostics)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(engine.Registry, promhttp.HandlerOpts{})))
	e.GET("/metrics/counters", func(c echo.Context) error {
		return c.String(http.StatusOK, engine.FormatMetrics())
	})
	return e
}

type api struct {
	gen   Generator
	diags DiagnosticsReader
}

// requestLogger tags each request with an id and logs it on completion.
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		id := req.Header.Get(echo.HeaderXRequestID)
		ctx := engine.WithRequestID(req.Context(), id)
		c.SetRequest(req.WithContext(ctx))
		c.Response().Header().Set(echo.HeaderXRequestID, engine.RequestID(ctx))

		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		slog.Info("http request",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", c.Response().Status),
			slog.String("request_id", engine.RequestID(ctx)),
			slog.Duration("elapsed", time.Since(start)))
		return nil
	}
}

func (a *api) generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	result, err := a.gen.Generate(c.Request().Context(), req.VideoURL)
	if err != nil {
		code := StatusFor(err)
		if code == http.StatusInternalServerError {
			slog.Error("generate failed", slog.String("url", req.VideoURL), slog.Any("error", err))
		}
		return c.JSON(code, errorResponse{Error: publicMessage(err)})
	}
	return c.JSON(http.StatusOK, result)
}

// publicMessage is the client-facing text for a pipeline error.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingURL):
		return "Video URL is required"
	case errors.Is(err, ErrInvalidURL):
		return "Invalid YouTube URL"
	case errors.Is(err, ErrNoTranscript):
		return "No transcript found for this video"
	default:
		return "Failed to process video"
	}
}

func (a *api) health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", Message: "Server is running"})
}

func (a *api) link(c echo.Context) error {
	id, ok := engine.ParseVideoID(c.QueryParam("v"))
	if !ok {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: publicMessage(ErrInvalidURL)})
	}
	u, err := engine.DeepLink(id, c.QueryParam("t"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, linkResponse{URL: u})
}

func (a *api) diagnostics(c echo.Context) error {
	if a.diags == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "diagnostics journal not configured"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	ctx := c.Request().Context()

	items, err := a.diags.Recent(ctx, limit)
	if err != nil {
		return err
	}
	counts, err := a.diags.CountByLayer(ctx)
	if err != nil {
		return err
	}
	if items == nil {
		items = []engine.Diagnostic{}
	}
	return c.JSON(http.StatusOK, diagnosticsResponse{Items: items, Counts: counts})
}
