package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// pageSize is the vendor maximum; a shorter page is the last one.
const pageSize = 20

// LogRecord is one transaction as the vendor returns it.
type LogRecord struct {
	ID         string `json:"id"`
	CategoryID string `json:"gacha_type"`
	ItemName   string `json:"name"`
	Rarity     string `json:"rank_type"`
	Timestamp  string `json:"time"`
	UID        string `json:"uid,omitempty"`
	GachaID    string `json:"gacha_id,omitempty"`
	ItemID     string `json:"item_id,omitempty"`
	ItemType   string `json:"item_type,omitempty"`
	Count      string `json:"count,omitempty"`
	Lang       string `json:"lang,omitempty"`
}

// CrawlCursor is the pagination state of one category.
type CrawlCursor struct {
	CategoryID string
	LastSeenID string
	Exhausted  bool
}

type gachaPage struct {
	List []LogRecord `json:"list"`
}

// ClientFactory builds a transport bound to proxyURL.
type ClientFactory func(proxyURL string) (Doer, error)

// LogCrawler retrieves every record of every category behind a retrieval URL.
type LogCrawler struct {
	client     *VendorClient
	pageDelay  time.Duration
	maxRetries int
	backoff    time.Duration
	proxies    *ProxyManager
	newDoer    ClientFactory
	logger     Logger
	metrics    *Metrics
}

func NewLogCrawler(client *VendorClient, pageDelay time.Duration, logger Logger, metrics *Metrics) *LogCrawler {
	return &LogCrawler{
		client:     client,
		pageDelay:  pageDelay,
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
		logger:     withPrefix(logger, "crawler"),
		metrics:    metrics,
	}
}

// SetProxyManager enables proxy rotation on transport failures.
func (c *LogCrawler) SetProxyManager(pm *ProxyManager, factory ClientFactory) {
	c.proxies = pm
	c.newDoer = factory
}

// FetchFullGachaLog is Crawl under the name the display layer uses.
func (c *LogCrawler) FetchFullGachaLog(ctx context.Context, retrievalURL string) ([]LogRecord, error) {
	return c.Crawl(ctx, retrievalURL)
}

// Crawl walks every category of the URL's game. A category failing with a vendor
// error, or repeatedly at the transport, is abandoned and the crawl goes on; only
// an unparseable URL or a cancelled context fail the whole crawl.
func (c *LogCrawler) Crawl(ctx context.Context, retrievalURL string) ([]LogRecord, error) {
	return c.CrawlWithCookie(ctx, retrievalURL, "")
}

// CrawlWithCookie is Crawl for cookie-authorized URLs.
func (c *LogCrawler) CrawlWithCookie(ctx context.Context, retrievalURL, cookie string) ([]LogRecord, error) {
	base, err := url.Parse(retrievalURL)
	if err != nil {
		return nil, fmt.Errorf("invalid retrieval url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid retrieval url %q", retrievalURL)
	}
	game := gameFromURL(base)

	limit := rate.Inf
	if c.pageDelay > 0 {
		limit = rate.Every(c.pageDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	client := c.client
	seen := make(map[string]struct{})
	var records []LogRecord

	for _, category := range game.Categories() {
		cursor := &CrawlCursor{CategoryID: category, LastSeenID: "0"}

		for !cursor.Exhausted {
			if err := limiter.Wait(ctx); err != nil {
				return records, err
			}

			var page *gachaPage
			page, client, err = c.fetchPage(ctx, client, base, game, cursor, cookie)
			if err != nil {
				if ctx.Err() != nil {
					return records, ctx.Err()
				}
				c.logger.Log("Abandoning category %s: %v", category, err)
				break
			}
			c.metrics.crawlPage(category, "ok")

			if len(page.List) == 0 {
				cursor.Exhausted = true
				break
			}
			for _, rec := range page.List {
				if _, dup := seen[rec.ID]; dup {
					continue
				}
				seen[rec.ID] = struct{}{}
				records = append(records, rec)
			}
			last := page.List[len(page.List)-1].ID
			if last == cursor.LastSeenID {
				c.logger.Log("Category %s cursor stalled at %s, stopping", category, cursor.LastSeenID)
				cursor.Exhausted = true
				break
			}
			cursor.LastSeenID = last
			if len(page.List) < pageSize {
				cursor.Exhausted = true
			}
		}
	}

	c.metrics.crawledRecords(game, len(records))
	c.logger.Log("Crawled %d records for %s", len(records), game)
	return records, nil
}

// fetchPage requests one page, retrying transport failures with exponential backoff.
// It returns the client to keep using, which differs from the input after a proxy rotation.
func (c *LogCrawler) fetchPage(ctx context.Context, client *VendorClient, base *url.URL, game Game, cursor *CrawlCursor, cookie string) (*gachaPage, *VendorClient, error) {
	u := *base
	q := u.Query()
	q.Set("gacha_type", cursor.CategoryID)
	if game == GameZenless {
		q.Set("real_gacha_type", cursor.CategoryID)
	}
	q.Set("end_id", cursor.LastSeenID)
	q.Set("size", fmt.Sprint(pageSize))
	u.RawQuery = q.Encode()

	var headers map[string]string
	if cookie != "" {
		headers = map[string]string{"Cookie": cookie}
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff * time.Duration(1<<(attempt-1))
			c.logger.Log("Retrying category %s page %s in %v (attempt %d/%d)", cursor.CategoryID, cursor.LastSeenID, delay, attempt+1, c.maxRetries)
			select {
			case <-ctx.Done():
				return nil, client, ctx.Err()
			case <-time.After(delay):
			}
			client = c.rotate(client)
		}

		res, err := client.getJSON(ctx, u.String(), headers)
		if err == nil {
			page, err := decodeData[gachaPage](res)
			if err != nil {
				c.metrics.crawlPage(cursor.CategoryID, "malformed")
				return nil, client, err
			}
			return page, client, nil
		}

		lastErr = err
		var ve *VendorError
		if errors.As(err, &ve) {
			c.metrics.crawlPage(cursor.CategoryID, "vendor_error")
			return nil, client, err
		}
		if !IsRetryableError(err) || ctx.Err() != nil {
			break
		}
	}
	c.metrics.crawlPage(cursor.CategoryID, "transport_error")
	return nil, client, lastErr
}

func (c *LogCrawler) rotate(client *VendorClient) *VendorClient {
	if c.proxies.Count() == 0 || c.newDoer == nil {
		return client
	}
	proxyURL, display := c.proxies.Rotate()
	doer, err := c.newDoer(proxyURL)
	if err != nil {
		c.logger.Log("Failed to create client for proxy %s: %v", display, err)
		return client
	}
	c.logger.Log("Rotated to proxy %s", display)
	return client.withDoer(doer)
}

// gameFromURL infers the title from game_biz, falling back to the host and path.
func gameFromURL(u *url.URL) Game {
	if biz := u.Query().Get("game_biz"); biz != "" {
		if g, _, err := ParseGameBiz(biz); err == nil {
			return g
		}
	}
	host := strings.ToLower(u.Host)
	switch {
	case strings.Contains(host, "nap"):
		return GameZenless
	case strings.Contains(host, "hkrpg"):
		return GameStarRail
	case strings.Contains(u.Path, "gacha_record"):
		return GameStarRail
	}
	return GameGenshin
}
