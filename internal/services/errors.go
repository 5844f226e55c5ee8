package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrParse             = errors.New("parse error")
	ErrMalformedLink     = errors.New("malformed link")
	ErrImageFetch        = errors.New("image fetch failed")
	ErrMissingReference  = errors.New("missing reference image")
	ErrEmptyIndex        = errors.New("empty fingerprint index")
	ErrUnknownReference  = errors.New("unknown reference")
	ErrConfiguration     = errors.New("configuration error")
	ErrTransient         = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Hint returns a short operator-facing remedy for a classified error, or an
// empty string when the error carries no known marker.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSourceUnavailable):
		return "check network access and source.base_url"
	case errors.Is(err, ErrParse), errors.Is(err, ErrMalformedLink):
		return "the listing markup may have changed; rerun after checking the page"
	case errors.Is(err, ErrImageFetch):
		return "rerun the image sweep; existing files are kept"
	case errors.Is(err, ErrMissingReference):
		return "run the image sweep, then rebuild the index"
	case errors.Is(err, ErrEmptyIndex):
		return "build the fingerprint index first"
	case errors.Is(err, ErrUnknownReference):
		return "use a multiverse id present in the index"
	case errors.Is(err, ErrConfiguration):
		return "review the configuration file"
	default:
		return ""
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
