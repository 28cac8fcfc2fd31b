package feed

import (
	"context"
	"errors"
	"time"

	"agendahof/internal/config"
	"agendahof/internal/model"
)

// Provider bundles a Fetcher with its configured sources and exposes the
// busy blocks for a window. It satisfies the web layer's BusyProvider.
type Provider struct {
	fetcher *Fetcher
	sources []Source
}

// NewProvider builds a Provider from the configured feed list. Feeds
// without a URL are skipped; a missing ID falls back to name, then URL.
func NewProvider(cacheDir string, feeds []config.FeedConfig) *Provider {
	sources := make([]Source, 0, len(feeds))
	for _, fc := range feeds {
		if fc.URL == "" {
			continue
		}
		id := fc.ID
		if id == "" {
			if fc.Name != "" {
				id = fc.Name
			} else {
				id = fc.URL
			}
		}
		sources = append(sources, Source{ID: id, URL: fc.URL})
	}
	return &Provider{
		fetcher: NewFetcher(cacheDir),
		sources: sources,
	}
}

// Busy fetches and parses every configured feed, returning the busy blocks
// intersecting [start, end). Partial results are returned alongside a
// joined error when some feeds failed.
func (p *Provider) Busy(ctx context.Context, start, end time.Time) ([]model.BusyBlock, error) {
	if len(p.sources) == 0 {
		return nil, nil
	}

	results, fetchErrs := p.fetcher.FetchAll(ctx, p.sources)

	blocks := make([]model.BusyBlock, 0)
	errs := fetchErrs
	for _, res := range results {
		parsed, err := Parse(res.Source, res.Body, start, end)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		blocks = append(blocks, parsed...)
	}

	return blocks, errors.Join(errs...)
}
