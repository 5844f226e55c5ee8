package testsupport

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const (
	listingPath = "/Pages/Search/Default.aspx"
	imagePath   = "/Handlers/Image.ashx"
)

// EditionFixture describes one printing link inside a listing row.
type EditionFixture struct {
	MultiverseID int
	// Alt is the set icon alt text, "<set> (<rarity>)".
	Alt string
	// Href overrides the generated details link.
	Href string
	// NoImage drops the set icon from the link.
	NoImage bool
}

// CardFixture describes one tr.cardItem row of a Gatherer listing.
type CardFixture struct {
	Name     string
	ManaCost []string
	// CMC is the raw convertedManaCost text. Empty omits the span.
	CMC      string
	TypeLine string
	// RulesHTML is the inner markup of div.rulesText.
	RulesHTML string
	Editions  []EditionFixture
	// OmitTitle drops span.cardTitle.
	OmitTitle bool
	// OmitTypeLine drops span.typeLine.
	OmitTypeLine bool
}

// CardRowHTML renders fixture the way the Gatherer compact listing does.
func CardRowHTML(fixture CardFixture) string {
	var b strings.Builder
	b.WriteString(`<tr class="cardItem evenItem">`)
	b.WriteString(`<td class="leftCol"><div class="clear"></div></td>`)
	b.WriteString(`<td class="middleCol"><div class="cardInfo">`)
	if !fixture.OmitTitle {
		fmt.Fprintf(&b, `<span class="cardTitle"><a href="../Card/Details.aspx?multiverseid=%d">%s</a></span>`,
			firstID(fixture), html.EscapeString(fixture.Name))
	}
	b.WriteString(`<span class="manaCost">`)
	for _, symbol := range fixture.ManaCost {
		fmt.Fprintf(&b, `<img src="/Handlers/Image.ashx?size=small&amp;name=%s&amp;type=symbol" alt="%s" align="absbottom" />`,
			html.EscapeString(symbol), html.EscapeString(symbol))
	}
	b.WriteString(`</span>`)
	if fixture.CMC != "" {
		fmt.Fprintf(&b, ` (<span class="convertedManaCost">%s</span>)`, html.EscapeString(fixture.CMC))
	}
	b.WriteString("<br />")
	if !fixture.OmitTypeLine {
		fmt.Fprintf(&b, "<span class=\"typeLine\">\r\n                            %s\r\n                        </span>",
			html.EscapeString(fixture.TypeLine))
	}
	fmt.Fprintf(&b, `<div class="rulesText">%s</div>`, fixture.RulesHTML)
	b.WriteString(`</div></td>`)
	b.WriteString(`<td class="rightCol setVersions"><div class="clear"></div>`)
	for _, edition := range fixture.Editions {
		href := edition.Href
		if href == "" {
			href = fmt.Sprintf("../Card/Details.aspx?multiverseid=%d", edition.MultiverseID)
		}
		fmt.Fprintf(&b, `<div id="set_%d"><a onclick="return CardLinkAction(event, this, 'SameWindow');" href="%s">`,
			edition.MultiverseID, html.EscapeString(href))
		if !edition.NoImage {
			fmt.Fprintf(&b, `<img title="%s" src="/Handlers/Image.ashx?type=symbol" alt="%s" style="border-width:0px;" />`,
				html.EscapeString(edition.Alt), html.EscapeString(edition.Alt))
		}
		b.WriteString(`</a></div>`)
	}
	b.WriteString(`</td></tr>`)
	return b.String()
}

func firstID(fixture CardFixture) int {
	if len(fixture.Editions) == 0 {
		return 0
	}
	return fixture.Editions[0].MultiverseID
}

// ListingPageHTML renders a listing page holding rows. When lastPage >= 0 the
// page carries top and bottom paging controls whose final link targets lastPage.
func ListingPageHTML(rows []CardFixture, lastPage int) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><title>Card Search</title></head><body>`)
	paging := pagingHTML(lastPage)
	b.WriteString(paging)
	b.WriteString(`<div class="cardList"><table class="cardItemTable"><tbody>`)
	for _, row := range rows {
		b.WriteString(CardRowHTML(row))
	}
	b.WriteString(`</tbody></table></div>`)
	b.WriteString(paging)
	b.WriteString(`</body></html>`)
	return b.String()
}

func pagingHTML(lastPage int) string {
	if lastPage < 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<div class="pagingcontrols">`)
	for page := 0; page <= lastPage; page++ {
		fmt.Fprintf(&b, `<a href="/Pages/Search/Default.aspx?page=%d&amp;name=+[]">%d</a>&nbsp;`, page, page+1)
	}
	b.WriteString(`</div>`)
	return b.String()
}

// CardRowSelection parses a single fixture row and returns its tr.cardItem selection.
func CardRowSelection(t testing.TB, fixture CardFixture) *goquery.Selection {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(ListingPageHTML([]CardFixture{fixture}, -1)))
	if err != nil {
		t.Fatalf("parse fixture html: %v", err)
	}
	sel := doc.Find("tr.cardItem")
	if sel.Length() != 1 {
		t.Fatalf("expected one card row, got %d", sel.Length())
	}
	return sel
}

// GathererFake serves a scripted Gatherer listing and image handler.
type GathererFake struct {
	server *httptest.Server

	mu          sync.Mutex
	pages       map[int][]CardFixture
	images      map[int][]byte
	lastPage    int
	omitPaging  bool
	failPages   map[int]int
	failImages  int
	pageHits    map[int]int
	imageHits   map[int]int
	imageParams []string
}

// NewGathererFake starts a fake Gatherer server that is closed on test cleanup.
func NewGathererFake(t testing.TB) *GathererFake {
	t.Helper()

	fake := &GathererFake{
		pages:     make(map[int][]CardFixture),
		images:    make(map[int][]byte),
		lastPage:  -1,
		failPages: make(map[int]int),
		pageHits:  make(map[int]int),
		imageHits: make(map[int]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(listingPath, fake.serveListing)
	mux.HandleFunc(imagePath, fake.serveImage)
	fake.server = httptest.NewServer(mux)
	t.Cleanup(fake.server.Close)
	return fake
}

// ListingURL returns the search listing endpoint.
func (f *GathererFake) ListingURL() string { return f.server.URL + listingPath }

// ImageURL returns the image handler endpoint.
func (f *GathererFake) ImageURL() string { return f.server.URL + imagePath }

// SetPage replaces the rows served for page and extends the paging controls to cover it.
func (f *GathererFake) SetPage(page int, rows ...CardFixture) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[page] = rows
	if page > f.lastPage {
		f.lastPage = page
	}
}

// OmitPaging removes the paging controls from every page.
func (f *GathererFake) OmitPaging() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.omitPaging = true
}

// SetImage registers the bytes served for a multiverse id.
func (f *GathererFake) SetImage(id int, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[id] = data
}

// FailPage makes the next n requests for page return 500.
func (f *GathererFake) FailPage(page, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPages[page] = n
}

// FailImages makes the next n image requests return 500.
func (f *GathererFake) FailImages(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failImages = n
}

// PageHits returns how many times page was requested. Requests without a page
// parameter count as page 0.
func (f *GathererFake) PageHits(page int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pageHits[page]
}

// ImageHits returns how many times the image for id was requested.
func (f *GathererFake) ImageHits(id int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.imageHits[id]
}

// TotalImageHits returns the number of image requests received.
func (f *GathererFake) TotalImageHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.imageHits {
		total += n
	}
	return total
}

// ImageTypes returns the type parameter of every image request in order.
func (f *GathererFake) ImageTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.imageParams...)
}

func (f *GathererFake) serveListing(w http.ResponseWriter, r *http.Request) {
	page := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "bad page", http.StatusBadRequest)
			return
		}
		page = parsed
	}

	f.mu.Lock()
	f.pageHits[page]++
	if f.failPages[page] > 0 {
		f.failPages[page]--
		f.mu.Unlock()
		http.Error(w, "unavailable", http.StatusInternalServerError)
		return
	}
	rows := f.pages[page]
	lastPage := f.lastPage
	if f.omitPaging {
		lastPage = -1
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(ListingPageHTML(rows, lastPage)))
}

func (f *GathererFake) serveImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("multiverseid"))
	if err != nil {
		http.Error(w, "bad multiverseid", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.imageHits[id]++
	f.imageParams = append(f.imageParams, r.URL.Query().Get("type"))
	if f.failImages > 0 {
		f.failImages--
		f.mu.Unlock()
		http.Error(w, "unavailable", http.StatusInternalServerError)
		return
	}
	data, ok := f.images[id]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(data)
}
