package identify

import (
	"fmt"
	"image"
	"log/slog"
	"sort"

	"magicscraper/internal/fpindex"
	"magicscraper/internal/logging"
	"magicscraper/internal/phash"
	"magicscraper/internal/services"
)

// Match is the nearest reference for a candidate image.
type Match struct {
	MultiverseID int               `json:"multiverse_id"`
	Distance     int               `json:"distance"`
	Fingerprint  phash.Fingerprint `json:"fingerprint"`
	// Ties lists the other ids at the same minimum distance, ascending.
	Ties []int `json:"ties,omitempty"`
	// Confident reports whether Distance is within the engine's threshold.
	Confident bool `json:"confident"`
}

// Candidate is one reference ranked by distance.
type Candidate struct {
	MultiverseID int `json:"multiverse_id"`
	Distance     int `json:"distance"`
}

// DistanceCount counts the references at one distance.
type DistanceCount struct {
	Distance int `json:"distance"`
	Count    int `json:"count"`
}

// Engine matches candidate images against a fingerprint index.
type Engine struct {
	index         *fpindex.Index
	fingerprinter phash.Fingerprinter
	normalize     phash.Normalizer
	maxDistance   int
	logger        *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFingerprinter overrides the perceptual hash. It must match the one the
// index was built with.
func WithFingerprinter(fp phash.Fingerprinter) Option {
	return func(e *Engine) {
		if fp != nil {
			e.fingerprinter = fp
		}
	}
}

// WithNormalizer sets the candidate preprocessing step.
func WithNormalizer(n phash.Normalizer) Option {
	return func(e *Engine) {
		if n != nil {
			e.normalize = n
		}
	}
}

// WithMaxDistance sets the distance up to which a match is confident.
func WithMaxDistance(d int) Option {
	return func(e *Engine) {
		e.maxDistance = d
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.NewComponentLogger(logger, "identify")
	}
}

// New creates an engine over index.
func New(index *fpindex.Index, opts ...Option) *Engine {
	e := &Engine{
		index:         index,
		fingerprinter: phash.Perceptual{},
		normalize:     phash.PassThrough,
		maxDistance:   phash.Bits,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Identify fingerprints img and returns the nearest reference. Ties go to the
// lowest multiverse id.
func (e *Engine) Identify(img image.Image) (Match, error) {
	fp, err := e.fingerprint(img)
	if err != nil {
		return Match{}, err
	}
	return e.MatchFingerprint(fp)
}

// IdentifyFile decodes the image at path and identifies it.
func (e *Engine) IdentifyFile(path string) (Match, error) {
	img, err := phash.DecodeFile(path)
	if err != nil {
		return Match{}, err
	}
	match, err := e.Identify(img)
	if err != nil {
		return Match{}, err
	}
	e.logger.Debug("candidate identified",
		logging.String("path", path),
		logging.Int(logging.FieldMultiverseID, match.MultiverseID),
		logging.Int("distance", match.Distance))
	return match, nil
}

// MatchFingerprint returns the nearest reference to fp.
func (e *Engine) MatchFingerprint(fp phash.Fingerprint) (Match, error) {
	ranked, err := e.rank(fp)
	if err != nil {
		return Match{}, err
	}
	return e.best(ranked), nil
}

// Rank fingerprints img once and returns its nearest match together with the
// k closest references, nearest first. k <= 0 returns every reference.
func (e *Engine) Rank(img image.Image, k int) (Match, []Candidate, error) {
	fp, err := e.fingerprint(img)
	if err != nil {
		return Match{}, nil, err
	}
	ranked, err := e.rank(fp)
	if err != nil {
		return Match{}, nil, err
	}
	match := e.best(ranked)
	if k > 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	return match, ranked, nil
}

// Nearest returns the k references closest to img, nearest first. k <= 0
// returns every reference.
func (e *Engine) Nearest(img image.Image, k int) ([]Candidate, error) {
	_, ranked, err := e.Rank(img, k)
	return ranked, err
}

// DistanceDistribution counts how many references sit at each distance from
// the reference id, including id itself at distance 0.
func (e *Engine) DistanceDistribution(id int) ([]DistanceCount, error) {
	fp, ok := e.index.Lookup(id)
	if !ok {
		return nil, services.Wrap(services.ErrUnknownReference, "identify", "distribution",
			fmt.Sprintf("multiverse id %d is not indexed", id), nil)
	}

	counts := make(map[int]int)
	for other, ids := range e.index.ByFingerprint {
		counts[phash.Distance(fp, other)] += len(ids)
	}
	out := make([]DistanceCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, DistanceCount{Distance: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}

func (e *Engine) fingerprint(img image.Image) (phash.Fingerprint, error) {
	if img == nil {
		return 0, fmt.Errorf("nil candidate image")
	}
	return e.fingerprinter.Fingerprint(e.normalize(img))
}

// best builds the match from a non-empty ranking. Ties are the other ids at
// the minimum distance.
func (e *Engine) best(ranked []Candidate) Match {
	top := ranked[0]
	match := Match{
		MultiverseID: top.MultiverseID,
		Distance:     top.Distance,
		Fingerprint:  e.index.ByID[top.MultiverseID],
		Confident:    top.Distance <= e.maxDistance,
	}
	for _, c := range ranked[1:] {
		if c.Distance != top.Distance {
			break
		}
		match.Ties = append(match.Ties, c.MultiverseID)
	}
	return match
}

// rank orders every reference by distance to fp, then by id.
func (e *Engine) rank(fp phash.Fingerprint) ([]Candidate, error) {
	if e.index.Len() == 0 {
		return nil, services.Wrap(services.ErrEmptyIndex, "identify", "match", "no reference fingerprints loaded", nil)
	}
	ranked := make([]Candidate, 0, e.index.Len())
	for ref, ids := range e.index.ByFingerprint {
		d := phash.Distance(fp, ref)
		for _, id := range ids {
			ranked = append(ranked, Candidate{MultiverseID: id, Distance: d})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Distance != ranked[j].Distance {
			return ranked[i].Distance < ranked[j].Distance
		}
		return ranked[i].MultiverseID < ranked[j].MultiverseID
	})
	return ranked, nil
}
