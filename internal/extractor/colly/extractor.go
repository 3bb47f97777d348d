// Package collyextractor implements a generic list-page extractor using the
// Colly collector. Each configured source points it at an index page whose
// rows yield one document apiece.
package collyextractor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/lexharvest/docstream/internal/dateparse"
	"github.com/lexharvest/docstream/internal/extraction"
)

// Config controls collector behavior for one source.
type Config struct {
	// BaseURL is the index page to visit. A "url" job parameter overrides it.
	BaseURL string
	// ItemSelector matches one document row on the index page.
	ItemSelector string
	// TitleSelector and LinkSelector are evaluated relative to the row.
	TitleSelector string
	LinkSelector  string
	// DateSelector optionally yields the document's date text.
	DateSelector string
	UserAgent    string
	Timeout      time.Duration
	// MaxDocuments caps the harvest per run. A "limit" job parameter
	// overrides it.
	MaxDocuments int
}

// Extractor retrieves document listings from a single configured source.
type Extractor struct {
	cfg       Config
	cancelled atomic.Bool
}

// New builds an Extractor.
func New(cfg Config) (*Extractor, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.ItemSelector == "" {
		return nil, fmt.Errorf("item selector is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxDocuments <= 0 {
		cfg.MaxDocuments = 100
	}
	return &Extractor{cfg: cfg}, nil
}

// ExecuteExtraction visits the index page and harvests document rows.
func (e *Extractor) ExecuteExtraction(ctx context.Context, jobID string, params map[string]any) (extraction.ExtractionResult, error) {
	e.cancelled.Store(false)
	start := time.Now()

	url := e.cfg.BaseURL
	if override, ok := params["url"].(string); ok && override != "" {
		url = override
	}
	limit := e.cfg.MaxDocuments
	if raw, ok := params["limit"]; ok {
		switch v := raw.(type) {
		case int:
			if v > 0 {
				limit = v
			}
		case float64:
			if v > 0 {
				limit = int(v)
			}
		}
	}
	window := dateWindow(params)

	collector := colly.NewCollector(colly.Async(false))
	collector.IgnoreRobotsTxt = false
	collector.SetRequestTimeout(e.cfg.Timeout)
	if e.cfg.UserAgent != "" {
		collector.UserAgent = e.cfg.UserAgent
	}

	var (
		mu       sync.Mutex
		docs     []extraction.RawDocument
		harvestN int
		errs     []string
	)

	collector.OnHTML(e.cfg.ItemSelector, func(el *colly.HTMLElement) {
		if e.cancelled.Load() || ctx.Err() != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		harvestN++
		if len(docs) >= limit {
			return
		}

		link := el.ChildAttr(e.cfg.LinkSelector, "href")
		if link == "" {
			return
		}
		absolute := el.Request.AbsoluteURL(link)
		title := strings.TrimSpace(el.ChildText(e.cfg.TitleSelector))
		doc := extraction.RawDocument{
			ExternalID: externalIDFromURL(absolute),
			URL:        absolute,
			Title:      title,
		}
		if e.cfg.DateSelector != "" {
			doc.DateText = strings.TrimSpace(el.ChildText(e.cfg.DateSelector))
		}
		if !window.admits(doc.DateText) {
			return
		}
		docs = append(docs, doc)
	})

	collector.OnError(func(resp *colly.Response, err error) {
		mu.Lock()
		errs = append(errs, fmt.Sprintf("fetch %s: %v", resp.Request.URL, err))
		mu.Unlock()
	})

	if err := collector.Visit(url); err != nil {
		return extraction.ExtractionResult{}, fmt.Errorf("visit %s: %w", url, err)
	}
	collector.Wait()

	if e.cancelled.Load() {
		return extraction.ExtractionResult{}, fmt.Errorf("extraction %s cancelled", jobID)
	}
	if err := ctx.Err(); err != nil {
		return extraction.ExtractionResult{}, err
	}
	if len(errs) > 0 && len(docs) == 0 {
		return extraction.ExtractionResult{}, fmt.Errorf("extraction produced no documents: %s", strings.Join(errs, "; "))
	}

	return extraction.ExtractionResult{
		Success:           true,
		Documents:         docs,
		TotalFound:        harvestN,
		ExtractionSeconds: time.Since(start).Seconds(),
		Errors:            errs,
	}, nil
}

// CancelExtraction flags the running harvest to stop collecting.
func (e *Extractor) CancelExtraction() {
	e.cancelled.Store(true)
}

// window bounds a harvest to documents dated inside [from, to]. A zero bound
// is open ended.
type window struct {
	from time.Time
	to   time.Time
}

// dateWindow reads optional "date_from" and "date_to" job parameters.
// Unparseable bounds are ignored.
func dateWindow(params map[string]any) window {
	var w window
	if raw, ok := params["date_from"].(string); ok {
		if t, ok := dateparse.Parse(raw); ok {
			w.from = t
		}
	}
	if raw, ok := params["date_to"].(string); ok {
		if t, ok := dateparse.Parse(raw); ok {
			w.to = t
		}
	}
	return w
}

// admits reports whether a document with the given date text falls inside the
// window. Documents without a resolvable date always pass so a narrow window
// never silently drops undated rows.
func (w window) admits(dateText string) bool {
	if w.from.IsZero() && w.to.IsZero() {
		return true
	}
	if dateText == "" {
		return true
	}
	t, ok := dateparse.Parse(dateText)
	if !ok {
		return true
	}
	if !w.from.IsZero() && t.Before(w.from) {
		return false
	}
	if !w.to.IsZero() && t.After(w.to) {
		return false
	}
	return true
}

// externalIDFromURL derives a stable identifier from the last URL segment.
func externalIDFromURL(url string) string {
	trimmed := strings.TrimRight(url, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}
