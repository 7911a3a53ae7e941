// Package plugin is the surface a music library host calls to use VGMdb as
// a metadata source: candidate search, lookup by id and distance scoring.
package plugin

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	vgmdb "github.com/angelospk/vgmdb-go"
	"github.com/angelospk/vgmdb-go/pkg/core/distance"
	vgmerrors "github.com/angelospk/vgmdb-go/pkg/core/errors"
	"github.com/angelospk/vgmdb-go/pkg/core/fileops"
	"github.com/angelospk/vgmdb-go/pkg/core/metadata"
	"github.com/angelospk/vgmdb-go/pkg/core/query"
	"github.com/angelospk/vgmdb-go/pkg/core/search"
)

// Source defines the methods needed from the VGMdb session.
type Source interface {
	SearchAlbums(ctx context.Context, query string) ([]vgmdb.AlbumListing, error)
	SearchAlbumsSite(ctx context.Context, query string) ([]vgmdb.AlbumListing, error)
	GetAlbum(ctx context.Context, id string) (*vgmdb.AlbumPayload, error)
}

// siteSource lists albums from the HTML search page instead of the JSON API.
type siteSource struct{ Source }

func (s siteSource) SearchAlbums(ctx context.Context, q string) ([]vgmdb.AlbumListing, error) {
	return s.Source.SearchAlbumsSite(ctx, q)
}

// Plugin wires the query builder, searcher, normalizer and scorer together.
type Plugin struct {
	config     Config
	source     Source
	builder    *query.Builder
	normalizer *metadata.Normalizer
	searcher   *search.Searcher
	scorer     *distance.Scorer
	logger     *log.Logger
}

// Option customizes a Plugin.
type Option func(*options)

type options struct {
	logger   *log.Logger
	reporter search.Reporter
	strings  distance.StringDistance
}

// WithLogger sets the logger. Defaults to the standard logrus logger.
func WithLogger(l *log.Logger) Option { return func(o *options) { o.logger = l } }

// WithReporter receives a diagnostic for every failed search or hit.
func WithReporter(r search.Reporter) Option { return func(o *options) { o.reporter = r } }

// WithStringDistance replaces the default Levenshtein track title distance.
func WithStringDistance(d distance.StringDistance) Option {
	return func(o *options) { o.strings = d }
}

// New builds a Plugin. The configuration is validated and then fixed.
func New(source Source, config Config, opts ...Option) (*Plugin, error) {
	if source == nil {
		return nil, errors.New("plugin: source is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	o := options{logger: log.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	queryOpts, err := config.QueryOptions()
	if err != nil {
		return nil, err
	}

	// Copy slices so later changes by the caller are not observed.
	config.LanguagePriority = append(config.LanguagePriority[:0:0], config.LanguagePriority...)
	config.ArtistPriority = append(config.ArtistPriority[:0:0], config.ArtistPriority...)

	normalizer := metadata.NewNormalizer(config.LanguagePriority, config.ArtistPriority)
	var listingSource search.AlbumSource = source
	if config.SearchSource == vgmdb.SearchSourceSite {
		listingSource = siteSource{source}
	}

	return &Plugin{
		config:     config,
		source:     source,
		builder:    query.NewBuilder(queryOpts),
		normalizer: normalizer,
		searcher: search.NewSearcher(listingSource, normalizer, search.Options{
			MaxResults:  config.MaxResults,
			Concurrency: config.Concurrency,
			Logger:      o.logger,
			Reporter:    o.reporter,
		}),
		scorer: distance.NewScorer(config.SourceWeight, o.strings),
		logger: o.logger,
	}, nil
}

// Config returns a copy of the plugin configuration.
func (p *Plugin) Config() Config { return p.config }

// Queries returns the search strings Candidates would issue.
func (p *Plugin) Queries(items []fileops.LocalTrack, artist, album string, variousArtistsLikely bool) []string {
	titles := make([]string, 0, len(items))
	for _, item := range items {
		titles = append(titles, item.Title)
	}
	return p.builder.Build(artist, album, titles, variousArtistsLikely)
}

// Candidates searches VGMdb for albums matching a local album. Results of
// every query are concatenated in query order, without duplicates.
func (p *Plugin) Candidates(ctx context.Context, items []fileops.LocalTrack, artist, album string, variousArtistsLikely bool) []metadata.AlbumRecord {
	var out []metadata.AlbumRecord
	seen := make(map[string]struct{})
	for _, q := range p.Queries(items, artist, album, variousArtistsLikely) {
		for _, rec := range p.searcher.Search(ctx, q) {
			if rec.ExternalID != "" {
				if _, dup := seen[rec.ExternalID]; dup {
					continue
				}
				seen[rec.ExternalID] = struct{}{}
			}
			out = append(out, rec)
		}
	}
	p.logger.Infof("VGMdb: %d candidates for %q / %q", len(out), artist, album)
	return out
}

// Search returns the normalized albums for one free-text query, capped at
// the configured maximum.
func (p *Plugin) Search(ctx context.Context, q string) []metadata.AlbumRecord {
	return p.searcher.Search(ctx, q)
}

// AlbumForID looks up one album by "123", "vgmdb-123" or an album URL.
// Unknown ids and transport failures yield (nil, nil); a payload missing
// required fields yields an error.
func (p *Plugin) AlbumForID(ctx context.Context, ref string) (*metadata.AlbumRecord, error) {
	id, err := vgmdb.ParseAlbumID(ref)
	if err != nil {
		p.logger.Debugf("VGMdb: %q is not a VGMdb album id", ref)
		return nil, nil
	}
	payload, err := p.source.GetAlbum(ctx, id)
	if err != nil {
		p.logger.Warnf("VGMdb: lookup of album %s failed (%s): %v", id, vgmerrors.Kind(err), err)
		return nil, nil
	}
	record, err := p.normalizer.NormalizeID(id, payload)
	if err != nil {
		return nil, fmt.Errorf("album %s: %w", id, err)
	}
	return record, nil
}

// TrackDistance scores a local track against a candidate track.
func (p *Plugin) TrackDistance(item fileops.LocalTrack, track metadata.TrackRecord) *distance.Distance {
	return p.scorer.TrackDistance(item.Title, track)
}

// AlbumDistance scores a candidate album; only the source weight applies.
func (p *Plugin) AlbumDistance(album metadata.AlbumRecord) *distance.Distance {
	return p.scorer.AlbumDistance(album)
}
