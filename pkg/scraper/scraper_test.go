package scraper

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScraperConfigDefaults(t *testing.T) {
	s, err := New([]string{"https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, 4, s.config.MaxConcurrent)
	assert.Equal(t, 2.0, s.config.RateLimit)
}

func TestScraperRequiresURLs(t *testing.T) {
	_, err := NewWithConfig(ScraperConfig{})
	assert.Error(t, err)
}

func TestScrapeAllPartialSuccess(t *testing.T) {
	render := func(_ context.Context, url string) (string, error) {
		if url == "https://example.com/bad" {
			return "", fmt.Errorf("received status code 500 for URL: %s", url)
		}
		return "<html><body><main>content of " + url + "</main></body></html>", nil
	}

	s, err := NewWithConfig(ScraperConfig{
		URLs:      []string{"https://example.com/good", "https://example.com/bad"},
		RateLimit: 100,
		Render:    render,
	})
	require.NoError(t, err)

	pages, err := s.ScrapeAll(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "https://example.com/good", pages[0].URL)
	assert.Contains(t, pages[0].HTML, "content of https://example.com/good")
}

func TestScrapeAllZeroYield(t *testing.T) {
	render := func(_ context.Context, url string) (string, error) {
		return "", fmt.Errorf("navigation error for %s", url)
	}

	s, err := NewWithConfig(ScraperConfig{
		URLs:      []string{"https://a.example.com", "https://b.example.com"},
		RateLimit: 100,
		Render:    render,
	})
	require.NoError(t, err)

	pages, err := s.ScrapeAll(context.Background())
	assert.ErrorIs(t, err, ErrScrapingFailed)
	assert.Empty(t, pages)
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		name    string
		status  int64
		wantErr bool
	}{
		{"ok", 200, false},
		{"created", 201, false},
		{"no document response observed", 0, false},
		{"redirect", 301, true},
		{"not found", 404, true},
		{"server error", 500, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := statusError(tt.status, "https://example.com")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScrapeAllConcurrentFetches(t *testing.T) {
	urls := []string{
		"https://example.com/1",
		"https://example.com/2",
		"https://example.com/3",
		"https://example.com/4",
	}

	var calls atomic.Int32
	render := func(_ context.Context, url string) (string, error) {
		calls.Add(1)
		return "<html><body>" + url + "</body></html>", nil
	}

	var progressed atomic.Int32
	s, err := NewWithConfig(ScraperConfig{
		URLs:          urls,
		RateLimit:     1000,
		MaxConcurrent: 2,
		Render:        render,
		OnProgress:    func(string) { progressed.Add(1) },
	})
	require.NoError(t, err)

	pages, err := s.ScrapeAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, pages, len(urls))
	assert.Equal(t, int32(len(urls)), calls.Load())
	assert.Equal(t, int32(len(urls)), progressed.Load())

	// Input order is preserved in the result set.
	for i, p := range pages {
		assert.Equal(t, urls[i], p.URL)
	}
}
