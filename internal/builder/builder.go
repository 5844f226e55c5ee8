package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"magicscraper/internal/cardparse"
	"magicscraper/internal/catalog"
	"magicscraper/internal/logging"
	"magicscraper/internal/services"
)

// PageSource provides the paginated listing.
type PageSource interface {
	DiscoverPageCount(ctx context.Context) (int, error)
	FetchPage(ctx context.Context, page int) (*goquery.Selection, error)
}

// ParseFunc converts one listing row into a card.
type ParseFunc func(row *goquery.Selection) (catalog.Card, error)

// Summary reports what a build run did.
type Summary struct {
	TotalPages int `json:"total_pages"`
	Processed  int `json:"processed"`
	Skipped    int `json:"skipped"`
	CardsAdded int `json:"cards_added"`
	Duplicates int `json:"duplicates"`
	// StoppedAt is the page that failed, or -1 when the run completed.
	StoppedAt int `json:"stopped_at"`
	Cards     int `json:"cards"`
}

// Builder crawls the listing into the catalog, resuming after completed pages.
type Builder struct {
	source PageSource
	store  *catalog.Store
	parse  ParseFunc
	logger *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithParser replaces the row parser.
func WithParser(parse ParseFunc) Option {
	return func(b *Builder) {
		if parse != nil {
			b.parse = parse
		}
	}
}

// New creates a builder that reads pages from source and persists through store.
func New(source PageSource, store *catalog.Store, logger *slog.Logger, opts ...Option) *Builder {
	b := &Builder{
		source: source,
		store:  store,
		parse:  cardparse.Parse,
		logger: logging.NewComponentLogger(logger, "builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run discovers the page count and applies every incomplete page in order.
// The first failure stops the run. Progress is saved after each page and once
// more when the run ends, whether it succeeded, failed or panicked.
func (b *Builder) Run(ctx context.Context) (Summary, error) {
	logger := logging.WithContext(ctx, b.logger)
	summary := Summary{StoppedAt: -1}

	release, err := b.store.Lock()
	if err != nil {
		return summary, err
	}
	defer release()

	total, err := b.source.DiscoverPageCount(ctx)
	if err != nil {
		return summary, fmt.Errorf("discover page count: %w", err)
	}
	summary.TotalPages = total
	logger.Info("catalog build starting",
		logging.Int("total_pages", total),
		logging.String("catalog_path", b.store.Path()))

	err = b.store.Update(func(cat *catalog.Catalog) error {
		defer func() { summary.Cards = len(cat.Cards) }()

		for page := 0; page < total; page++ {
			if err := ctx.Err(); err != nil {
				summary.StoppedAt = page
				return err
			}
			if cat.PageComplete(page) {
				summary.Skipped++
				logger.Debug("page already complete, skipping",
					logging.Int(logging.FieldPage, page),
					logging.String(logging.FieldEventType, "page_skipped"))
				continue
			}

			added, duplicates, err := b.applyPage(ctx, logger, cat, page)
			if err != nil {
				summary.StoppedAt = page
				return fmt.Errorf("page %d: %w", page, err)
			}
			summary.Processed++
			summary.CardsAdded += added
			summary.Duplicates += duplicates

			if err := b.store.Save(cat); err != nil {
				summary.StoppedAt = page
				return fmt.Errorf("save after page %d: %w", page, err)
			}
			logger.Info("page complete",
				logging.Int(logging.FieldPage, page),
				logging.Int("cards_added", added),
				logging.Int("duplicates", duplicates),
				logging.Int("remaining", total-page-1))
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			hint := services.Hint(err)
			if hint == "" {
				hint = "rerun build to resume from the failed page"
			}
			logging.ErrorWithContext(logger, "catalog build stopped", "build_failed",
				logging.Int(logging.FieldPage, summary.StoppedAt),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, hint))
		}
		return summary, err
	}

	logger.Info("catalog build complete",
		logging.Int("processed", summary.Processed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("cards_added", summary.CardsAdded),
		logging.Int("duplicates", summary.Duplicates),
		logging.Int("cards", summary.Cards))
	return summary, nil
}

// applyPage parses every row of page before touching the catalog, so a parse
// failure leaves the page entirely unapplied.
func (b *Builder) applyPage(ctx context.Context, logger *slog.Logger, cat *catalog.Catalog, page int) (int, int, error) {
	rows, err := b.source.FetchPage(ctx, page)
	if err != nil {
		return 0, 0, err
	}

	cards := make([]catalog.Card, 0, rows.Length())
	var parseErr error
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		card, err := b.parse(row)
		if err != nil {
			parseErr = fmt.Errorf("row %d: %w", i, err)
			return false
		}
		cards = append(cards, card)
		return true
	})
	if parseErr != nil {
		return 0, 0, parseErr
	}

	added, duplicates := 0, 0
	for _, card := range cards {
		if cat.AddCard(card) {
			added++
			continue
		}
		duplicates++
		logger.Info("card already present, discarding",
			logging.String("card_name", card.Name),
			logging.Int(logging.FieldPage, page),
			logging.String(logging.FieldEventType, "card_collision"))
	}
	cat.MarkPageComplete(page)
	return added, duplicates, nil
}
