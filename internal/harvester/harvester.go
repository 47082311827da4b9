// Package harvester fetches source listing pages and extracts article
// candidates from them using selector chains.
package harvester

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"news_collector/internal/domain"
	"news_collector/internal/selector"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrContentNotFound  = errors.New("content not found with the given selector")
)

// Harvester extracts items from one source's listing page.
type Harvester struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     *slog.Logger
}

// New creates a harvester for the listing page at baseURL.
func New(baseURL string, cfg Config, client *http.Client, logger *slog.Logger) (*Harvester, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: base url %q", ErrInvalidConfig, baseURL)
	}

	return &Harvester{
		httpClient: client,
		baseURL:    u,
		config:     cfg,
		logger:     logger,
	}, nil
}

// List fetches the listing page and returns its items in document order.
// Items whose chains fail or yield an empty title or url are skipped.
func (h *Harvester) List(ctx context.Context) ([]domain.Item, error) {
	doc, err := h.fetch(ctx, h.baseURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to crawl list: %w", err)
	}

	roots := doc.Find(h.config.ItemSelector)
	items := make([]domain.Item, 0, roots.Length())

	roots.Each(func(i int, root *goquery.Selection) {
		item, err := h.extract(root)
		if err != nil {
			h.logger.Warn("skipping item",
				"index", i,
				"error", err,
			)
			return
		}
		if item.Title == "" || item.URL == "" {
			h.logger.Debug("item missing title or url", "index", i)
			return
		}
		items = append(items, item)
	})

	h.logger.Debug("listed items",
		"url", h.baseURL.String(),
		"roots", roots.Length(),
		"items", len(items),
	)

	return items, nil
}

func (h *Harvester) extract(root *goquery.Selection) (domain.Item, error) {
	title, err := selector.Evaluate(h.config.ItemRelations.Title, root)
	if err != nil {
		return domain.Item{}, fmt.Errorf("title: %w", err)
	}

	link, err := selector.Evaluate(h.config.ItemRelations.URL, root)
	if err != nil {
		return domain.Item{}, fmt.Errorf("url: %w", err)
	}

	item := domain.Item{Title: title}
	if link = strings.TrimSpace(link); link != "" {
		item.URL = ResolveURL(h.baseURL, link)
	}
	return item, nil
}

// Content fetches a detail page and returns the trimmed text matched by the
// content selector.
func (h *Harvester) Content(ctx context.Context, target string) (string, error) {
	doc, err := h.fetch(ctx, target)
	if err != nil {
		return "", fmt.Errorf("failed to get content: %w", err)
	}

	content := strings.TrimSpace(doc.Find(h.config.ContentSelector).Text())
	if content == "" {
		return "", fmt.Errorf("failed to get content: %w", ErrContentNotFound)
	}

	return content, nil
}

func (h *Harvester) fetch(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// ResolveURL makes ref absolute against the origin of base. Absolute http(s)
// URLs are returned unchanged and other absolute schemes (javascript:,
// mailto:) yield "". Everything that is not root-relative is treated as
// relative to the origin root.
func ResolveURL(base *url.URL, ref string) string {
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return ref
		default:
			return ""
		}
	}

	origin := base.Scheme + "://" + base.Host
	switch {
	case strings.HasPrefix(ref, "//"):
		return base.Scheme + ":" + ref
	case strings.HasPrefix(ref, "/"):
		return origin + ref
	default:
		return origin + "/" + ref
	}
}

// Factory builds harvesters for sources, sharing one HTTP client.
type Factory struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func NewFactory(timeout time.Duration, logger *slog.Logger) *Factory {
	return &Factory{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// ForSource decodes the source's config and returns a harvester for it.
// Configuration problems surface here rather than when sources are loaded.
func (f *Factory) ForSource(src domain.Source) (*Harvester, error) {
	cfg, err := ParseConfig(src.Config)
	if err != nil {
		return nil, err
	}
	return New(src.BaseURL, cfg, f.httpClient, f.logger.With("source", src.Code))
}
