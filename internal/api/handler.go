package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"news_collector/internal/domain"
)

const (
	defaultLogLimit     = 10
	defaultArticleLimit = 20
	maxLimit            = 100
)

type Collector interface {
	Collect(ctx context.Context) ([]domain.SourceResult, error)
}

type LogReader interface {
	ListRecent(ctx context.Context, limit int, sourceID *int64) ([]domain.CollectionLog, error)
}

type ArticleReader interface {
	List(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error)
}

// Handler serves the collection trigger and read-only views over run
// history and stored articles.
type Handler struct {
	collector Collector
	logs      LogReader
	articles  ArticleReader
	logger    *slog.Logger
	now       func() time.Time

	runTimeout time.Duration
}

// New creates the handler. runTimeout bounds collections triggered over
// HTTP; zero leaves them unbounded.
func New(collector Collector, logs LogReader, articles ArticleReader, runTimeout time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		collector:  collector,
		logs:       logs,
		articles:   articles,
		logger:     logger.With("component", "api"),
		now:        time.Now,
		runTimeout: runTimeout,
	}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	g := e.Group("/api")
	g.GET("/collect-news", h.CollectNews)
	g.POST("/collect-news", h.CollectNews)
	g.GET("/collection-logs", h.ListCollectionLogs)
	g.GET("/articles", h.ListArticles)
}

type collectResponse struct {
	Success       bool                  `json:"success"`
	TotalArticles int                   `json:"totalArticles"`
	Sources       []domain.SourceResult `json:"sources"`
	Timestamp     time.Time             `json:"timestamp"`
}

type errorResponse struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// CollectNews runs a collection synchronously. Success is false when any
// attempted source failed. The run is detached from the request context
// and bounded by runTimeout instead.
func (h *Handler) CollectNews(c echo.Context) error {
	ctx := context.WithoutCancel(c.Request().Context())
	if h.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.runTimeout)
		defer cancel()
	}

	results, err := h.collector.Collect(ctx)
	if err != nil {
		h.logger.Error("collection failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: h.now().UTC(),
		})
	}

	resp := collectResponse{
		Success:   true,
		Sources:   results,
		Timestamp: h.now().UTC(),
	}
	for _, r := range results {
		resp.TotalArticles += r.ArticlesCollected
		if r.Status != domain.StatusSuccess {
			resp.Success = false
		}
	}

	h.logger.Info("collection triggered via api",
		"sources", len(results),
		"articles", resp.TotalArticles,
		"success", resp.Success,
	)

	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListCollectionLogs(c echo.Context) error {
	limit, err := intParam(c, "limit", defaultLogLimit)
	if err != nil || limit < 1 || limit > maxLimit {
		return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer between 1 and 100")
	}

	var sourceID *int64
	if raw := c.QueryParam("sourceId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "sourceId must be an integer")
		}
		sourceID = &id
	}

	logs, err := h.logs.ListRecent(c.Request().Context(), limit, sourceID)
	if err != nil {
		h.logger.Error("failed to list collection logs", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list collection logs")
	}

	return c.JSON(http.StatusOK, logs)
}

func (h *Handler) ListArticles(c echo.Context) error {
	filter := domain.ArticleFilter{SourceCode: c.QueryParam("source")}

	if raw := c.QueryParam("isRead"); raw != "" {
		isRead, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "isRead must be a boolean")
		}
		filter.IsRead = isRead
	}

	limit, err := intParam(c, "limit", defaultArticleLimit)
	if err != nil || limit < 1 || limit > maxLimit {
		return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer between 1 and 100")
	}
	filter.Limit = limit

	offset, err := intParam(c, "offset", 0)
	if err != nil || offset < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "offset must be a non-negative integer")
	}
	filter.Offset = offset

	if filter.From, err = timeParam(c, "fromDate"); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "fromDate must be an RFC 3339 timestamp")
	}
	if filter.To, err = timeParam(c, "toDate"); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "toDate must be an RFC 3339 timestamp")
	}

	articles, err := h.articles.List(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("failed to list articles", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list articles")
	}

	return c.JSON(http.StatusOK, articles)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func timeParam(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
