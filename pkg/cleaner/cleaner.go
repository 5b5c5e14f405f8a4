package cleaner

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/ragbot/internal/models"
	"golang.org/x/net/html"
)

// ErrCleaningFailed is returned when no page in the batch yielded any
// visible text.
var ErrCleaningFailed = errors.New("no text was successfully cleaned from any scraped content")

// Structural and non-content tags stripped before text extraction.
var unwantedTags = []string{
	"script", "style", "noscript", "header", "footer", "nav", "form",
	"button", "input", "select", "textarea", "iframe", "svg", "canvas",
	"img", "link", "meta",
}

// Content region candidates, tried in order; the first match wins.
var contentSelectors = []string{"main", "article", "#content"}

var whitespacePattern = regexp.MustCompile(`\s+`)

type Cleaner struct {
	log *slog.Logger
}

func New() *Cleaner {
	return &Cleaner{log: slog.Default()}
}

func NewWithLogger(log *slog.Logger) *Cleaner {
	return &Cleaner{log: log}
}

// CleanAll extracts visible text from each page. Pages without a
// content region or without any text are dropped with a warning; the
// batch fails only when every page was dropped.
func (c *Cleaner) CleanAll(pages []models.Page) ([]models.CleanedDocument, error) {
	var cleaned []models.CleanedDocument

	for _, page := range pages {
		if page.URL == "" || page.HTML == "" {
			c.log.Warn("skipping incomplete page", "url", page.URL)
			continue
		}

		text, err := c.CleanHTML(page.HTML)
		if err != nil {
			c.log.Error("error cleaning content", "url", page.URL, "error", err)
			continue
		}
		if text == "" {
			c.log.Warn("no meaningful text extracted, skipping", "url", page.URL)
			continue
		}

		cleaned = append(cleaned, models.CleanedDocument{URL: page.URL, Text: text})
	}

	if len(cleaned) == 0 {
		return nil, ErrCleaningFailed
	}

	c.log.Info("finished cleaning", "documents", len(cleaned), "pages", len(pages))
	return cleaned, nil
}

// CleanHTML strips comments and non-content tags, selects the primary
// content region, and returns its visible text with collapsed
// whitespace. An empty string means the page had no usable content.
func (c *Cleaner) CleanHTML(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	for _, n := range doc.Nodes {
		removeComments(n)
	}

	for _, tag := range unwantedTags {
		doc.Find(tag).Remove()
	}

	region := findContentRegion(doc)
	if region == nil {
		c.log.Warn("could not find main content area or body")
		return "", nil
	}

	text := visibleText(region)
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text), nil
}

func findContentRegion(doc *goquery.Document) *goquery.Selection {
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			return sel.First()
		}
	}
	if body := doc.Find("body"); body.Length() > 0 {
		return body.First()
	}
	return nil
}

// visibleText joins the text nodes under the selection with single
// spaces, so element boundaries never glue words together.
func visibleText(sel *goquery.Selection) string {
	var parts []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}

	for _, n := range sel.Nodes {
		walk(n)
	}

	return strings.Join(parts, " ")
}

func removeComments(n *html.Node) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if child.Type == html.CommentNode {
			n.RemoveChild(child)
		} else {
			removeComments(child)
		}
		child = next
	}
}
