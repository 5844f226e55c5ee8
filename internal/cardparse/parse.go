package cardparse

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"magicscraper/internal/catalog"
	"magicscraper/internal/services"
	"magicscraper/internal/textutil"
)

// Parse extracts a card record from one tr.cardItem listing row.
func Parse(row *goquery.Selection) (catalog.Card, error) {
	title := row.Find("span.cardTitle a").First()
	if title.Length() == 0 {
		return catalog.Card{}, parseErr("card title", "span.cardTitle a not found")
	}
	name := textutil.NFC(strings.TrimSpace(title.Text()))
	if name == "" {
		return catalog.Card{}, parseErr("card title", "empty card name")
	}

	cmc, err := parseConvertedManaCost(row)
	if err != nil {
		return catalog.Card{}, fmt.Errorf("%s: %w", name, err)
	}

	typeLine := row.Find("span.typeLine").First()
	if typeLine.Length() == 0 {
		return catalog.Card{}, parseErr("type line", name+": span.typeLine not found")
	}

	editions, err := parseEditions(row.Find("td.setVersions a"))
	if err != nil {
		return catalog.Card{}, fmt.Errorf("%s: %w", name, err)
	}

	return catalog.Card{
		Name:              name,
		ManaCost:          parseManaCost(row),
		ConvertedManaCost: cmc,
		TypeData:          ParseTypeLine(typeLine.Text()),
		RulesText:         renderRulesText(row.Find("div.rulesText").First()),
		Editions:          editions,
	}, nil
}

func parseManaCost(row *goquery.Selection) []string {
	symbols := []string{}
	row.Find("span.manaCost").First().Find("img").Each(func(_ int, img *goquery.Selection) {
		symbols = append(symbols, img.AttrOr("alt", ""))
	})
	return symbols
}

func parseConvertedManaCost(row *goquery.Selection) (float64, error) {
	span := row.Find("span.convertedManaCost").First()
	if span.Length() == 0 {
		return 0, parseErr("converted mana cost", "span.convertedManaCost not found")
	}
	raw := strings.TrimSpace(span.Text())
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, services.Wrap(services.ErrParse, "cardparse", "converted mana cost", fmt.Sprintf("invalid value %q", raw), err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, parseErr("converted mana cost", fmt.Sprintf("invalid value %q", raw))
	}
	return value, nil
}

func parseEditions(links *goquery.Selection) ([]catalog.Edition, error) {
	editions := make([]catalog.Edition, 0, links.Length())
	var firstErr error
	links.EachWithBreak(func(_ int, link *goquery.Selection) bool {
		edition, err := parseEdition(link)
		if err != nil {
			firstErr = err
			return false
		}
		editions = append(editions, edition)
		return true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return editions, nil
}

func parseEdition(link *goquery.Selection) (catalog.Edition, error) {
	href := link.AttrOr("href", "")
	id, err := multiverseID(href)
	if err != nil {
		return catalog.Edition{}, err
	}

	img := link.Find("img").First()
	if img.Length() == 0 {
		return catalog.Edition{}, parseErr("edition", fmt.Sprintf("multiverse id %d: set icon missing", id))
	}
	set, rarity := splitSetRarity(img.AttrOr("alt", ""))
	return catalog.Edition{MultiverseID: id, Set: set, Rarity: rarity}, nil
}

// multiverseID reads the multiverseid query parameter from a details link.
func multiverseID(href string) (int, error) {
	idx := strings.LastIndex(href, "?")
	if idx < 0 {
		return 0, linkErr(href, "no query string", nil)
	}
	values, err := url.ParseQuery(href[idx+1:])
	if err != nil {
		return 0, linkErr(href, "invalid query string", err)
	}
	raw := strings.TrimSpace(values.Get("multiverseid"))
	if raw == "" {
		return 0, linkErr(href, "multiverseid parameter missing", nil)
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, linkErr(href, "multiverseid is not an integer", err)
	}
	return id, nil
}

// splitSetRarity splits "<set> (<rarity>)". Without a parenthesis the whole
// text is the set and the rarity is empty.
func splitSetRarity(alt string) (string, string) {
	alt = textutil.NFC(alt)
	idx := strings.Index(alt, "(")
	if idx < 0 {
		return strings.TrimSpace(alt), ""
	}
	set := strings.TrimSpace(alt[:idx])
	rarity := alt[strings.LastIndex(alt, "(")+1:]
	rarity = strings.TrimSpace(strings.ReplaceAll(rarity, ")", ""))
	return set, rarity
}

func parseErr(operation, message string) error {
	return services.Wrap(services.ErrParse, "cardparse", operation, message, nil)
}

func linkErr(href, message string, err error) error {
	return services.Wrap(services.ErrMalformedLink, "cardparse", "edition link", fmt.Sprintf("%s: %q", message, href), err)
}
