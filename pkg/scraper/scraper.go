package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/xhad/ragbot/internal/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrScrapingFailed is returned when every configured URL failed to
// yield content. A partial batch is a success.
var ErrScrapingFailed = errors.New("no content was successfully scraped from any configured URL")

// RenderFunc fetches the fully rendered HTML for one URL.
type RenderFunc func(ctx context.Context, url string) (string, error)

type ScraperConfig struct {
	URLs          []string
	RateLimit     float64 // page fetches per second
	Timeout       time.Duration
	MaxConcurrent int
	OnProgress    func(url string)
	Render        RenderFunc // defaults to a headless-browser render
	Logger        *slog.Logger
}

type Scraper struct {
	config  ScraperConfig
	limiter *rate.Limiter
	render  RenderFunc
	log     *slog.Logger
}

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	if len(config.URLs) == 0 {
		return nil, fmt.Errorf("no URLs configured for scraping")
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.MaxConcurrent == 0 {
		config.MaxConcurrent = 4
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	render := config.Render
	if render == nil {
		render = browserRender(config.Timeout)
	}

	return &Scraper{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		render:  render,
		log:     config.Logger,
	}, nil
}

func New(urls []string) (*Scraper, error) {
	return NewWithConfig(ScraperConfig{URLs: urls})
}

// ScrapeAll fetches every configured URL concurrently, one isolated
// browser session per URL. Individual failures are logged and dropped;
// the batch fails only when nothing was fetched.
func (s *Scraper) ScrapeAll(ctx context.Context) ([]models.Page, error) {
	results := make([]*models.Page, len(s.config.URLs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrent)

	for i, url := range s.config.URLs {
		i, url := i, url
		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				s.log.Warn("skipping URL, rate limiter interrupted", "url", url, "error", err)
				return nil
			}

			html, err := s.render(gctx, url)
			if err != nil {
				s.log.Warn("skipping URL due to failed content retrieval", "url", url, "error", err)
				return nil
			}

			results[i] = &models.Page{URL: url, HTML: html}
			if s.config.OnProgress != nil {
				s.config.OnProgress(url)
			}
			s.log.Info("successfully fetched content", "url", url)
			return nil
		})
	}

	// Fetch errors never cancel sibling fetches.
	_ = g.Wait()

	var pages []models.Page
	for _, p := range results {
		if p != nil {
			pages = append(pages, *p)
		}
	}

	if len(pages) == 0 {
		return nil, ErrScrapingFailed
	}

	s.log.Info("finished scraping", "fetched", len(pages), "configured", len(s.config.URLs))
	return pages, nil
}

// browserRender navigates a fresh headless-browser context to the URL,
// waits for the document to settle, and captures the rendered HTML.
func browserRender(timeout time.Duration) RenderFunc {
	return func(ctx context.Context, url string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		// A new context per URL keeps sessions fully isolated.
		bctx, bcancel := chromedp.NewContext(ctx)
		defer bcancel()

		// Events arrive on the target's dispatch goroutine.
		var status atomic.Int64
		chromedp.ListenTarget(bctx, func(ev interface{}) {
			if resp, ok := ev.(*network.EventResponseReceived); ok {
				if resp.Type == network.ResourceTypeDocument {
					status.CompareAndSwap(0, resp.Response.Status)
				}
			}
		})

		var html string
		err := chromedp.Run(bctx,
			network.Enable(),
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
		if err != nil {
			return "", err
		}
		if err := statusError(status.Load(), url); err != nil {
			return "", err
		}
		return html, nil
	}
}

// statusError rejects non-2xx document responses. A zero status means
// no document response was observed (e.g. a cached load) and is
// accepted.
func statusError(status int64, url string) error {
	if status != 0 && (status < 200 || status >= 300) {
		return fmt.Errorf("received status code %d for URL: %s", status, url)
	}
	return nil
}
