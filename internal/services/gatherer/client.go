package gatherer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"magicscraper/internal/config"
	"magicscraper/internal/logging"
	"magicscraper/internal/services"
)

// Client fetches listing pages and card images from Gatherer.
type Client struct {
	listingURL  string
	searchQuery url.Values
	imageURL    string
	userAgent   string
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRateLimit paces requests to rps per second. Zero or less disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(agent)
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "gatherer")
	}
}

// New creates a Gatherer client. searchQuery is the raw listing query such as "name=+[]".
func New(listingURL, searchQuery, imageURL string, opts ...Option) (*Client, error) {
	listingURL = strings.TrimSpace(listingURL)
	if listingURL == "" {
		return nil, errors.New("gatherer listing url required")
	}
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, errors.New("gatherer image url required")
	}
	query, err := url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(searchQuery), "?"))
	if err != nil {
		return nil, fmt.Errorf("parse search query: %w", err)
	}
	client := &Client{
		listingURL:  listingURL,
		searchQuery: query,
		imageURL:    imageURL,
		httpClient:  &http.Client{},
		limiter:     rate.NewLimiter(rate.Inf, 1),
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig builds a client from the [source] configuration section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "gatherer", "configure", "config is nil", nil)
	}
	return New(cfg.Source.BaseURL, cfg.Source.SearchQuery, cfg.Source.ImageURL,
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
		WithRateLimit(cfg.Source.RequestsPerSecond),
		WithUserAgent(cfg.Source.UserAgent),
		WithLogger(logger),
	)
}

// ListingURL returns the listing endpoint for page. A negative page omits the
// page parameter, which Gatherer serves as the first page.
func (c *Client) ListingURL(page int) (string, error) {
	endpoint, err := url.Parse(c.listingURL)
	if err != nil {
		return "", fmt.Errorf("parse listing url: %w", err)
	}
	params := endpoint.Query()
	for key, values := range c.searchQuery {
		params[key] = append([]string(nil), values...)
	}
	if page >= 0 {
		params.Set("page", strconv.Itoa(page))
	}
	endpoint.RawQuery = params.Encode()
	return endpoint.String(), nil
}

// DiscoverPageCount reads the paging controls of the first listing page and
// returns the total number of pages.
func (c *Client) DiscoverPageCount(ctx context.Context) (int, error) {
	doc, err := c.fetchListing(ctx, -1)
	if err != nil {
		return 0, err
	}

	controls := doc.Find("div.pagingcontrols")
	if controls.Length() == 0 {
		return 0, services.Wrap(services.ErrSourceUnavailable, "gatherer", "discover pages", "paging controls not found", nil)
	}
	links := controls.Last().Find("a")
	if links.Length() == 0 {
		return 1, nil
	}

	href := links.Last().AttrOr("href", "")
	last, err := pageParam(href)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// FetchPage returns every tr.cardItem row of the listing page. An empty
// selection is a valid result.
func (c *Client) FetchPage(ctx context.Context, page int) (*goquery.Selection, error) {
	doc, err := c.fetchListing(ctx, page)
	if err != nil {
		return nil, err
	}
	return doc.Find("tr.cardItem"), nil
}

// FetchImage downloads the card face image for a multiverse id.
func (c *Client) FetchImage(ctx context.Context, multiverseID int) ([]byte, error) {
	endpoint, err := url.Parse(c.imageURL)
	if err != nil {
		return nil, fmt.Errorf("parse image url: %w", err)
	}
	params := endpoint.Query()
	params.Set("multiverseid", strconv.Itoa(multiverseID))
	params.Set("type", "card")
	endpoint.RawQuery = params.Encode()

	detail := fmt.Sprintf("multiverse id %d", multiverseID)
	resp, latency, err := c.get(ctx, endpoint.String())
	if err != nil {
		return nil, services.Wrap(services.ErrImageFetch, "gatherer", "fetch image", detail, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrImageFetch, "gatherer", "fetch image",
			fmt.Sprintf("%s: status %d (latency=%v)", detail, resp.StatusCode, latency), nil)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrImageFetch, "gatherer", "fetch image", detail+": read body", err)
	}
	if len(body) == 0 {
		return nil, services.Wrap(services.ErrImageFetch, "gatherer", "fetch image", detail+": empty body", nil)
	}
	return body, nil
}

func (c *Client) fetchListing(ctx context.Context, page int) (*goquery.Document, error) {
	target, err := c.ListingURL(page)
	if err != nil {
		return nil, err
	}

	resp, latency, err := c.get(ctx, target)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "gatherer", "fetch listing", describePage(page), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrSourceUnavailable, "gatherer", "fetch listing",
			fmt.Sprintf("%s: status %d (latency=%v)", describePage(page), resp.StatusCode, latency), nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "gatherer", "fetch listing", describePage(page)+": parse html", err)
	}
	c.logger.Debug("listing fetched",
		logging.Int(logging.FieldPage, page),
		logging.Duration("latency", latency))
	return doc, nil
}

func (c *Client) get(ctx context.Context, target string) (*http.Response, time.Duration, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limit wait: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, latency, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	return resp, latency, nil
}

// pageParam reads the page number of a paging link. An unreadable link means
// the listing markup is not what the crawler expects.
func pageParam(href string) (int, error) {
	idx := strings.LastIndex(href, "?")
	if idx < 0 {
		return 0, services.Wrap(services.ErrSourceUnavailable, "gatherer", "discover pages", fmt.Sprintf("paging link has no query: %q", href), nil)
	}
	values, err := url.ParseQuery(href[idx+1:])
	if err != nil {
		return 0, services.Wrap(services.ErrSourceUnavailable, "gatherer", "discover pages", fmt.Sprintf("paging link %q", href), err)
	}
	page, err := strconv.Atoi(strings.TrimSpace(values.Get("page")))
	if err != nil {
		return 0, services.Wrap(services.ErrSourceUnavailable, "gatherer", "discover pages", fmt.Sprintf("paging link %q has no integer page", href), err)
	}
	return page, nil
}

func describePage(page int) string {
	if page < 0 {
		return "first page"
	}
	return "page " + strconv.Itoa(page)
}
