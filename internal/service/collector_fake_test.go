package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_collector/internal/config"
	"news_collector/internal/domain"
)

// In-memory stores used to check properties that span several runs.

type memSources struct {
	sources []domain.Source
}

func (m *memSources) ListActive(context.Context) ([]domain.Source, error) {
	var active []domain.Source
	for _, s := range m.sources {
		if s.IsActive {
			active = append(active, s)
		}
	}
	return active, nil
}

type memLogs struct {
	logs []domain.CollectionLog
}

func (m *memLogs) ListStartedBetween(_ context.Context, start, end time.Time) ([]domain.CollectionLog, error) {
	var out []domain.CollectionLog
	for _, l := range m.logs {
		if !l.StartedAt.Before(start) && l.StartedAt.Before(end) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memLogs) Create(_ context.Context, log *domain.CollectionLog) (int64, error) {
	row := *log
	row.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, row)
	return row.ID, nil
}

func (m *memLogs) Finish(_ context.Context, id int64, u domain.CollectionLogUpdate) error {
	for i := range m.logs {
		if m.logs[i].ID == id {
			if m.logs[i].Status != domain.StatusInProgress {
				return errors.New("log already finished")
			}
			completed := u.CompletedAt
			if !u.StartedAt.IsZero() {
				m.logs[i].StartedAt = u.StartedAt
			}
			m.logs[i].Status = u.Status
			m.logs[i].CompletedAt = &completed
			m.logs[i].ArticlesCollected = u.ArticlesCollected
			m.logs[i].ErrorMessage = u.ErrorMessage
			return nil
		}
	}
	return errors.New("log not found")
}

type memArticles struct {
	articles []domain.Article
}

func (m *memArticles) ExistsByURL(_ context.Context, url string) (bool, error) {
	for _, a := range m.articles {
		if a.URL == url {
			return true, nil
		}
	}
	return false, nil
}

func (m *memArticles) Insert(ctx context.Context, a *domain.Article) (int64, error) {
	if exists, _ := m.ExistsByURL(ctx, a.URL); exists {
		return 0, errors.New("duplicate url")
	}
	row := *a
	row.ID = int64(len(m.articles) + 1)
	m.articles = append(m.articles, row)
	return row.ID, nil
}

type memTx struct{}

func (memTx) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type stubHarvester struct {
	items     []domain.Item
	err       error
	listCalls int
	onList    func()
}

func (h *stubHarvester) List(context.Context) ([]domain.Item, error) {
	h.listCalls++
	if h.onList != nil {
		h.onList()
	}
	return h.items, h.err
}

func (h *stubHarvester) Content(context.Context, string) (string, error) {
	return "", errors.New("not used")
}

type fixture struct {
	sources    *memSources
	logs       *memLogs
	articles   *memArticles
	harvesters map[int64]*stubHarvester
	clock      time.Time
	collector  *Collector
}

func newFixture(sources ...domain.Source) *fixture {
	f := &fixture{
		sources:    &memSources{sources: sources},
		logs:       &memLogs{},
		articles:   &memArticles{},
		harvesters: map[int64]*stubHarvester{},
		clock:      time.Date(2025, 11, 6, 9, 0, 0, 0, time.UTC),
	}
	for _, s := range sources {
		f.harvesters[s.ID] = &stubHarvester{}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := func(src domain.Source) (Harvester, error) {
		return f.harvesters[src.ID], nil
	}
	f.collector = NewCollector(f.sources, f.logs, f.articles, memTx{}, factory, nil, nil, logger,
		config.CollectionConfig{Timezone: "UTC"})
	f.collector.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) articlesForLog(id int64) int {
	n := 0
	for _, a := range f.articles.articles {
		if a.CollectionLogID != nil && *a.CollectionLogID == id {
			n++
		}
	}
	return n
}

func TestCollect_DuplicateURLWithinRunStoredOnce(t *testing.T) {
	f := newFixture(hackerNews())
	f.harvesters[1].items = []domain.Item{
		{URL: "https://example.com/a", Title: "A"},
		{URL: "https://example.com/a", Title: "A again"},
	}

	results, err := f.collector.Collect(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].ArticlesCollected)
	assert.Len(t, f.articles.articles, 1)
	assert.Equal(t, "A", f.articles.articles[0].Title)
}

func TestCollect_DuplicateURLAcrossRunsStoredOnce(t *testing.T) {
	f := newFixture(hackerNews(), geekNews())
	f.harvesters[1].items = []domain.Item{{URL: "https://example.com/a", Title: "A"}, {URL: "https://example.com/b", Title: "B"}}
	f.harvesters[2].items = []domain.Item{{URL: "https://example.com/b", Title: "B"}}

	first, err := f.collector.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first[0].ArticlesCollected)
	assert.Equal(t, 0, first[1].ArticlesCollected)

	f.clock = f.clock.AddDate(0, 0, 1)
	f.harvesters[1].items = []domain.Item{{URL: "https://example.com/b", Title: "B"}, {URL: "https://example.com/c", Title: "C"}}

	second, err := f.collector.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, 1, second[0].ArticlesCollected)

	urls := map[string]int{}
	for _, a := range f.articles.articles {
		urls[a.URL]++
	}
	assert.Equal(t, map[string]int{
		"https://example.com/a": 1,
		"https://example.com/b": 1,
		"https://example.com/c": 1,
	}, urls)
}

func TestCollect_SameDayRerunIsNoop(t *testing.T) {
	f := newFixture(hackerNews())
	f.harvesters[1].items = []domain.Item{{URL: "https://example.com/a", Title: "A"}}

	_, err := f.collector.Collect(context.Background())
	require.NoError(t, err)

	f.clock = f.clock.Add(12 * time.Hour)
	results, err := f.collector.Collect(context.Background())

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 1, f.harvesters[1].listCalls)
	assert.Len(t, f.logs.logs, 1)
}

func TestCollect_InactiveSourcesAreIgnored(t *testing.T) {
	inactive := geekNews()
	inactive.IsActive = false
	f := newFixture(inactive)

	results, err := f.collector.Collect(context.Background())

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, f.logs.logs)
	assert.Zero(t, f.harvesters[2].listCalls)
}

func TestCollect_LogsEndTerminalAndConsistent(t *testing.T) {
	f := newFixture(hackerNews(), geekNews())
	f.harvesters[1].items = []domain.Item{{URL: "https://example.com/a", Title: "A"}, {URL: "https://example.com/b", Title: "B"}}
	f.harvesters[2].err = errors.New("failed to crawl list: unexpected status: 503")

	results, err := f.collector.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, l := range f.logs.logs {
		require.NotNil(t, l.CompletedAt)
		assert.False(t, l.CompletedAt.Before(l.StartedAt))
		assert.NotEqual(t, domain.StatusInProgress, l.Status)
		assert.Equal(t, f.articlesForLog(l.ID), l.ArticlesCollected)
	}

	failed := f.logs.logs[1]
	assert.Equal(t, domain.StatusFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Contains(t, *failed.ErrorMessage, "503")
	assert.Equal(t, domain.StatusFailed, results[1].Status)
	assert.Equal(t, domain.StatusSuccess, results[0].Status)
}

func TestCollect_LogsRecordWhenEachSourceStarted(t *testing.T) {
	f := newFixture(hackerNews(), geekNews())
	runStart := f.clock
	slowFetch := func() { f.clock = f.clock.Add(5 * time.Minute) }
	f.harvesters[1].onList = slowFetch
	f.harvesters[2].onList = slowFetch

	_, err := f.collector.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, f.logs.logs, 2)

	hn, geek := f.logs.logs[0], f.logs.logs[1]
	assert.Equal(t, runStart, hn.StartedAt)
	assert.Equal(t, runStart.Add(5*time.Minute), geek.StartedAt)
	require.NotNil(t, geek.CompletedAt)
	assert.Equal(t, runStart.Add(10*time.Minute), *geek.CompletedAt)
}
