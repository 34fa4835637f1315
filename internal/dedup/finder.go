package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/lysyi3m/newsdesk/internal/database"
)

const (
	DefaultThreshold = 0.86
	DefaultWindow    = 72 * time.Hour
)

type CandidateLister interface {
	ListDuplicateCandidates(ctx context.Context, since time.Time) ([]database.DuplicateCandidate, error)
}

// Finder looks for an already stored article covering the same story
type Finder struct {
	lister    CandidateLister
	window    time.Duration
	threshold float64
	now       func() time.Time
}

func NewFinder(lister CandidateLister, window time.Duration) *Finder {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Finder{
		lister:    lister,
		window:    window,
		threshold: DefaultThreshold,
		now:       time.Now,
	}
}

// FindNearDuplicate scans recent enrichments and returns the first whose normalized title is at
// least threshold-similar to title. Candidates from a different UTC day are skipped when both
// publish dates are known. Returns nil when nothing matches.
func (f *Finder) FindNearDuplicate(ctx context.Context, title string, published *time.Time) (*database.DuplicateCandidate, error) {
	normalized := Normalize(title)
	if normalized == "" {
		return nil, nil
	}

	candidates, err := f.lister.ListDuplicateCandidates(ctx, f.now().Add(-f.window))
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicate candidates: %w", err)
	}

	for i := range candidates {
		c := &candidates[i]
		if published != nil && c.PublishedAt != nil && !sameDay(*published, *c.PublishedAt) {
			continue
		}
		if Similarity(Normalize(c.Title), normalized) >= f.threshold {
			return c, nil
		}
	}

	return nil, nil
}

func sameDay(a, b time.Time) bool {
	return a.UTC().Format(time.DateOnly) == b.UTC().Format(time.DateOnly)
}
