// Package search resolves VGMdb search listings into normalized album candidates.
package search

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	vgmdb "github.com/angelospk/vgmdb-go"
	"github.com/angelospk/vgmdb-go/internal/constants"
	vgmerrors "github.com/angelospk/vgmdb-go/pkg/core/errors"
	"github.com/angelospk/vgmdb-go/pkg/core/lang"
	"github.com/angelospk/vgmdb-go/pkg/core/metadata"
)

// --- Client Interfaces for Dependency Injection ---

// AlbumSource defines the methods needed from the VGMdb session.
type AlbumSource interface {
	SearchAlbums(ctx context.Context, query string) ([]vgmdb.AlbumListing, error)
	GetAlbum(ctx context.Context, id string) (*vgmdb.AlbumPayload, error)
}

// Hit is one deduplicated listing entry, before its album is fetched.
type Hit struct {
	ExternalRef string       // "album/<id>"
	ID          string       // numeric id, "" when the ref could not be parsed
	Titles      lang.NameMap // titles by language as shown in the listing
	Catalog     string
	ReleaseDate string
}

// Failure describes a search or hit that produced no candidate.
type Failure struct {
	Query string
	Ref   string // empty when the listing itself failed
	Kind  string // see errors.Kind
	Err   error
}

func (f Failure) String() string {
	if f.Ref == "" {
		return fmt.Sprintf("search %q failed (%s): %v", f.Query, f.Kind, f.Err)
	}
	return fmt.Sprintf("search %q: %s skipped (%s): %v", f.Query, f.Ref, f.Kind, f.Err)
}

// Reporter receives diagnostics for failed searches and hits. It may be
// called from several goroutines when Concurrency > 1.
type Reporter func(Failure)

// Options configures a Searcher.
type Options struct {
	MaxResults  int // defaults to 10
	Concurrency int // parallel album lookups; defaults to 1
	Logger      *log.Logger
	Reporter    Reporter
}

// Searcher runs album searches. It never returns an error: failures are
// logged, reported and turned into fewer results.
type Searcher struct {
	source      AlbumSource
	normalizer  *metadata.Normalizer
	maxResults  int
	concurrency int
	logger      *log.Logger
	report      Reporter
}

// NewSearcher creates a Searcher.
func NewSearcher(source AlbumSource, normalizer *metadata.Normalizer, opts Options) *Searcher {
	if opts.MaxResults <= 0 {
		opts.MaxResults = constants.DefaultMaxResults
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	return &Searcher{
		source:      source,
		normalizer:  normalizer,
		maxResults:  opts.MaxResults,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
		report:      opts.Reporter,
	}
}

// MaxResults returns the configured cap.
func (s *Searcher) MaxResults() int { return s.maxResults }

// Dedup converts listings to hits, keeping the first entry for each album.
func Dedup(listings []vgmdb.AlbumListing) []Hit {
	seen := make(map[string]struct{}, len(listings))
	hits := make([]Hit, 0, len(listings))
	for _, l := range listings {
		if l.Link == "" {
			continue
		}
		id, err := vgmdb.ParseAlbumID(l.Link)
		key := l.Link
		if err == nil {
			key = id
		} else {
			id = ""
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		hits = append(hits, Hit{
			ExternalRef: l.Link,
			ID:          id,
			Titles:      l.Titles,
			Catalog:     l.Catalog,
			ReleaseDate: l.ReleaseDate,
		})
	}
	return hits
}

// Search returns up to MaxResults candidates for query in listing order.
func (s *Searcher) Search(ctx context.Context, query string) []metadata.AlbumRecord {
	listings, err := s.source.SearchAlbums(ctx, query)
	if err != nil {
		s.fail(Failure{Query: query, Kind: vgmerrors.Kind(err), Err: err})
		return nil
	}
	hits := Dedup(listings)
	s.logger.Debugf("Search %q: %d listing entries, %d unique", query, len(listings), len(hits))

	var records []metadata.AlbumRecord
	for start := 0; start < len(hits) && len(records) < s.maxResults; {
		if ctx.Err() != nil {
			s.fail(Failure{Query: query, Kind: vgmerrors.Kind(ctx.Err()), Err: ctx.Err()})
			break
		}
		window := s.maxResults - len(records)
		if window > s.concurrency {
			window = s.concurrency
		}
		end := start + window
		if end > len(hits) {
			end = len(hits)
		}
		for _, rec := range s.resolveWindow(ctx, query, hits[start:end]) {
			if rec != nil && len(records) < s.maxResults {
				records = append(records, *rec)
			}
		}
		start = end
	}
	return records
}

// resolveWindow looks up a batch of hits, in parallel when Concurrency > 1.
// The result has one slot per hit, nil for failures.
func (s *Searcher) resolveWindow(ctx context.Context, query string, hits []Hit) []*metadata.AlbumRecord {
	results := make([]*metadata.AlbumRecord, len(hits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, hit := range hits {
		i, hit := i, hit // capture
		g.Go(func() error {
			rec, err := s.Resolve(gctx, hit)
			if err != nil {
				s.fail(Failure{Query: query, Ref: hit.ExternalRef, Kind: vgmerrors.Kind(err), Err: err})
				return nil
			}
			results[i] = rec
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors
	return results
}

// Resolve fetches and normalizes the album behind one hit.
func (s *Searcher) Resolve(ctx context.Context, hit Hit) (*metadata.AlbumRecord, error) {
	if hit.ID == "" {
		return nil, fmt.Errorf("%w: %q", vgmerrors.ErrInvalidAlbumRef, hit.ExternalRef)
	}
	payload, err := s.source.GetAlbum(ctx, hit.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch album %s: %w", hit.ID, err)
	}
	return s.normalizer.NormalizeID(hit.ID, payload)
}

func (s *Searcher) fail(f Failure) {
	s.logger.Warn(f.String())
	if s.report != nil {
		s.report(f)
	}
}
