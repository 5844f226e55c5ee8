package catalog

import "sort"

// Catalog is the durable result of a build: every card collected so far and
// the listing pages whose records have all been applied.
type Catalog struct {
	CompletedPages []int  `json:"completed_pages"`
	Cards          []Card `json:"cards"`

	names map[string]int
	pages map[int]struct{}
}

// New returns an empty catalog.
func New() *Catalog {
	c := &Catalog{CompletedPages: []int{}, Cards: []Card{}}
	c.reindex()
	return c
}

func (c *Catalog) reindex() {
	if c.CompletedPages == nil {
		c.CompletedPages = []int{}
	}
	if c.Cards == nil {
		c.Cards = []Card{}
	}
	c.names = make(map[string]int, len(c.Cards))
	for i, card := range c.Cards {
		if _, ok := c.names[card.Name]; !ok {
			c.names[card.Name] = i
		}
	}
	c.pages = make(map[int]struct{}, len(c.CompletedPages))
	pages := c.CompletedPages[:0]
	for _, page := range c.CompletedPages {
		if _, ok := c.pages[page]; ok {
			continue
		}
		c.pages[page] = struct{}{}
		pages = append(pages, page)
	}
	c.CompletedPages = pages
}

func (c *Catalog) ensureIndex() {
	if c.names == nil || c.pages == nil {
		c.reindex()
	}
}

// AddCard appends card unless a card with the same name already exists.
// It reports whether the card was added; a duplicate is discarded, never merged.
func (c *Catalog) AddCard(card Card) bool {
	c.ensureIndex()
	if _, exists := c.names[card.Name]; exists {
		return false
	}
	c.names[card.Name] = len(c.Cards)
	c.Cards = append(c.Cards, card)
	return true
}

// HasCard reports whether a card with name exists.
func (c *Catalog) HasCard(name string) bool {
	c.ensureIndex()
	_, ok := c.names[name]
	return ok
}

// CardByName returns the card stored under name.
func (c *Catalog) CardByName(name string) (Card, bool) {
	c.ensureIndex()
	idx, ok := c.names[name]
	if !ok {
		return Card{}, false
	}
	return c.Cards[idx], true
}

// MarkPageComplete records that every record of page has been applied.
func (c *Catalog) MarkPageComplete(page int) {
	c.ensureIndex()
	if _, ok := c.pages[page]; ok {
		return
	}
	c.pages[page] = struct{}{}
	c.CompletedPages = append(c.CompletedPages, page)
}

// PageComplete reports whether page has already been applied.
func (c *Catalog) PageComplete(page int) bool {
	c.ensureIndex()
	_, ok := c.pages[page]
	return ok
}

// Editions returns every edition of every card in catalog order.
func (c *Catalog) Editions() []Edition {
	var out []Edition
	for _, card := range c.Cards {
		out = append(out, card.Editions...)
	}
	return out
}

// EditionCount returns the number of editions across all cards.
func (c *Catalog) EditionCount() int {
	total := 0
	for _, card := range c.Cards {
		total += len(card.Editions)
	}
	return total
}

func (c *Catalog) sortPages() {
	sort.Ints(c.CompletedPages)
}
