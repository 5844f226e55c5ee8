package gatherer_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"magicscraper/internal/services"
	"magicscraper/internal/services/gatherer"
	"magicscraper/internal/testsupport"
)

func newClient(t *testing.T, fake *testsupport.GathererFake) *gatherer.Client {
	t.Helper()
	client, err := gatherer.New(fake.ListingURL(), "name=+[]", fake.ImageURL())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRequiresURLs(t *testing.T) {
	if _, err := gatherer.New("", "name=+[]", "http://example.com/img"); err == nil {
		t.Fatal("expected error when listing url missing")
	}
	if _, err := gatherer.New("http://example.com/list", "name=+[]", " "); err == nil {
		t.Fatal("expected error when image url missing")
	}
}

func TestListingURLCarriesSearchQueryAndPage(t *testing.T) {
	client, err := gatherer.New("https://gatherer.example/Pages/Search/Default.aspx", "?name=+[]", "https://gatherer.example/img")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	raw, err := client.ListingURL(7)
	if err != nil {
		t.Fatalf("ListingURL returned error: %v", err)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse listing url: %v", err)
	}
	if parsed.Query().Get("page") != "7" {
		t.Fatalf("expected page=7, got %q", parsed.RawQuery)
	}
	if parsed.Query().Get("name") != " []" {
		t.Fatalf("expected search query carried, got %q", parsed.RawQuery)
	}

	first, err := client.ListingURL(-1)
	if err != nil {
		t.Fatalf("ListingURL returned error: %v", err)
	}
	if firstURL, _ := url.Parse(first); firstURL.Query().Has("page") {
		t.Fatalf("expected no page parameter for first page, got %q", first)
	}
}

func TestDiscoverPageCount(t *testing.T) {
	fake := testsupport.NewGathererFake(t)
	fake.SetPage(0)
	fake.SetPage(4)

	count, err := newClient(t, fake).DiscoverPageCount(context.Background())
	if err != nil {
		t.Fatalf("DiscoverPageCount returned error: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected 5 pages, got %d", count)
	}
}

func TestDiscoverPageCountMissingControls(t *testing.T) {
	fake := testsupport.NewGathererFake(t)
	fake.SetPage(0)
	fake.OmitPaging()

	_, err := newClient(t, fake).DiscoverPageCount(context.Background())
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestDiscoverPageCountEmptyControlsIsSinglePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="pagingcontrols"></div></body></html>`))
	}))
	t.Cleanup(server.Close)

	client, err := gatherer.New(server.URL, "name=+[]", server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	count, err := client.DiscoverPageCount(context.Background())
	if err != nil {
		t.Fatalf("DiscoverPageCount returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 page, got %d", count)
	}
}

func TestDiscoverPageCountUnreadablePagingLink(t *testing.T) {
	tests := []struct {
		name string
		href string
	}{
		{"no page parameter", "/Pages/Search/Default.aspx?name=x"},
		{"non-integer page", "/Pages/Search/Default.aspx?page=last"},
		{"no query", "/Pages/Search/Default.aspx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html><body><div class="pagingcontrols"><a href="` + tt.href + `">2</a></div></body></html>`))
			}))
			t.Cleanup(server.Close)

			client, err := gatherer.New(server.URL, "name=+[]", server.URL)
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			_, err = client.DiscoverPageCount(context.Background())
			if !errors.Is(err, services.ErrSourceUnavailable) {
				t.Fatalf("expected ErrSourceUnavailable, got %v", err)
			}
			if errors.Is(err, services.ErrMalformedLink) {
				t.Fatalf("paging failure must not be classed as a bad edition link: %v", err)
			}
		})
	}
}

func TestDiscoverPageCountHTTPError(t *testing.T) {
	fake := testsupport.NewGathererFake(t)
	fake.SetPage(0)
	fake.FailPage(0, 1)

	_, err := newClient(t, fake).DiscoverPageCount(context.Background())
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestFetchPageReturnsRows(t *testing.T) {
	fake := testsupport.NewGathererFake(t)
	fake.SetPage(0)
	fake.SetPage(1,
		testsupport.CardFixture{Name: "Shock", CMC: "1", TypeLine: "Instant"},
		testsupport.CardFixture{Name: "Opt", CMC: "1", TypeLine: "Instant"},
	)

	rows, err := newClient(t, fake).FetchPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchPage returned error: %v", err)
	}
	if rows.Length() != 2 {
		t.Fatalf("expected 2 rows, got %d", rows.Length())
	}
	if fake.PageHits(1) != 1 {
		t.Fatalf("expected one request for page 1, got %d", fake.PageHits(1))
	}

	empty, err := newClient(t, fake).FetchPage(context.Background(), 0)
	if err != nil {
		t.Fatalf("FetchPage returned error: %v", err)
	}
	if empty.Length() != 0 {
		t.Fatalf("expected empty page, got %d rows", empty.Length())
	}
}

func TestFetchImage(t *testing.T) {
	fake := testsupport.NewGathererFake(t)
	payload := testsupport.JPEGBytes(t, 1)
	fake.SetImage(42, payload)

	client := newClient(t, fake)
	data, err := client.FetchImage(context.Background(), 42)
	if err != nil {
		t.Fatalf("FetchImage returned error: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatal("image bytes mismatch")
	}
	if types := fake.ImageTypes(); len(types) != 1 || types[0] != "card" {
		t.Fatalf("expected type=card, got %v", types)
	}

	if _, err := client.FetchImage(context.Background(), 7); !errors.Is(err, services.ErrImageFetch) {
		t.Fatalf("expected ErrImageFetch for missing image, got %v", err)
	}
}

func TestFetchImageEmptyBody(t *testing.T) {
	fake := testsupport.NewGathererFake(t)
	fake.SetImage(5, []byte{})

	if _, err := newClient(t, fake).FetchImage(context.Background(), 5); !errors.Is(err, services.ErrImageFetch) {
		t.Fatalf("expected ErrImageFetch for empty body, got %v", err)
	}
}

func TestUserAgentHeader(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("img"))
	}))
	t.Cleanup(server.Close)

	client, err := gatherer.New(server.URL, "", server.URL, gatherer.WithUserAgent("magicscraper/test"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.FetchImage(context.Background(), 1); err != nil {
		t.Fatalf("FetchImage returned error: %v", err)
	}
	if got != "magicscraper/test" {
		t.Fatalf("unexpected user agent %q", got)
	}
}

func TestCanceledContext(t *testing.T) {
	fake := testsupport.NewGathererFake(t)
	fake.SetPage(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(t, fake).FetchPage(ctx, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
