package news

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"hybrid-trading-bot/internal/logger"
	"hybrid-trading-bot/internal/types"
)

// Scraper is the fallback news source used when the search service returns
// nothing: it scrapes Google News search results for the base asset.
type Scraper struct {
	timeout time.Duration
}

func NewScraper(timeout time.Duration) *Scraper {
	return &Scraper{timeout: timeout}
}

// ScrapeGoogleNews searches Google News for asset headlines. Best-effort:
// any scraping failure yields an empty slice.
func (s *Scraper) ScrapeGoogleNews(ctx context.Context, asset string, maxItems int) []types.NewsItem {
	items := []types.NewsItem{}

	c := colly.NewCollector(
		colly.AllowedDomains("news.google.com", "www.google.com"),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.SetRequestTimeout(s.timeout)

	// Set user agent to avoid being blocked
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	c.OnHTML("article", func(e *colly.HTMLElement) {
		if len(items) >= maxItems {
			return
		}

		title := strings.TrimSpace(e.DOM.Find("h3 a, h4 a").First().Text())
		if title == "" {
			return
		}

		href, _ := e.DOM.Find("a").First().Attr("href")
		href = absoluteGoogleURL(href)

		snippet := firstNonEmptyText(e.DOM, "div[class] span", "p")

		items = append(items, types.NewsItem{
			Title:          title,
			Content:        snippet,
			URL:            href,
			PublishedAt:    strings.TrimSpace(e.DOM.Find("time").First().Text()),
			RelevanceScore: 0.0,
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.ErrorWithErr(ctx, "Scraping error", err, "url", r.Request.URL.String())
	})

	searchURL := "https://news.google.com/search?q=" + strings.ReplaceAll(asset+" cryptocurrency", " ", "+")
	if err := c.Visit(searchURL); err != nil {
		logger.ErrorWithErr(ctx, "Failed to visit Google News", err, "asset", asset)
		return nil
	}
	c.Wait()

	logger.Debug(ctx, "Google News scrape completed", "asset", asset, "items", len(items))
	return items
}

func firstNonEmptyText(sel *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		if text := strings.TrimSpace(sel.Find(s).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func absoluteGoogleURL(href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return "https://news.google.com/" + strings.TrimPrefix(href, "./")
}
