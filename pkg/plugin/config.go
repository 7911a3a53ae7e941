package plugin

import (
	"fmt"
	"regexp"
	"strings"

	vgmdb "github.com/angelospk/vgmdb-go"
	"github.com/angelospk/vgmdb-go/internal/constants"
	"github.com/angelospk/vgmdb-go/pkg/core/lang"
	"github.com/angelospk/vgmdb-go/pkg/core/query"
)

// FieldConfig is the raw configuration of one query field.
type FieldConfig struct {
	Enabled bool
	Pattern string // regular expression removed from the field before searching
	Limit   int
}

// Config is the plugin configuration. It is read once when the plugin is built.
type Config struct {
	LanguagePriority lang.Preference
	ArtistPriority   []string
	SourceWeight     float64
	MaxResults       int
	Concurrency      int
	SearchSource     vgmdb.SearchSource
	SplitAlbum       bool
	Album            FieldConfig
	Artist           FieldConfig
	Track            FieldConfig
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		LanguagePriority: lang.Preference{"en", "ja-latn", "ja"},
		ArtistPriority:   []string{"composers", "performers", "arrangers"},
		SourceWeight:     0,
		MaxResults:       constants.DefaultMaxResults,
		Concurrency:      1,
		SearchSource:     vgmdb.SearchSourceAPI,
		Album:            FieldConfig{Enabled: true},
		Artist:           FieldConfig{Enabled: true},
	}
}

var knownRoles = map[string]bool{"composers": true, "performers": true, "arrangers": true, "lyricists": true}

// Validate checks the configuration and returns the first problem found.
func (c Config) Validate() error {
	if err := c.LanguagePriority.Validate(); err != nil {
		return err
	}
	if len(c.ArtistPriority) == 0 {
		return fmt.Errorf("plugin: artist priority must not be empty")
	}
	for _, role := range c.ArtistPriority {
		if !knownRoles[strings.ToLower(strings.TrimSpace(role))] {
			return fmt.Errorf("plugin: unknown artist role %q", role)
		}
	}
	if c.MaxResults < 1 {
		return fmt.Errorf("plugin: max results must be at least 1, got %d", c.MaxResults)
	}
	if c.SourceWeight < 0 || c.SourceWeight > 1 {
		return fmt.Errorf("plugin: source weight must be within [0,1], got %v", c.SourceWeight)
	}
	switch c.SearchSource {
	case "", vgmdb.SearchSourceAPI, vgmdb.SearchSourceSite:
	default:
		return fmt.Errorf("plugin: unknown search source %q", c.SearchSource)
	}
	for name, f := range map[string]FieldConfig{"album": c.Album, "artist": c.Artist, "track": c.Track} {
		if f.Limit < 0 {
			return fmt.Errorf("plugin: %s limit must not be negative", name)
		}
		if _, err := compilePattern(f.Pattern); err != nil {
			return fmt.Errorf("plugin: invalid %s pattern: %w", name, err)
		}
	}
	return nil
}

// QueryOptions converts the field configuration into query builder options.
func (c Config) QueryOptions() (query.Options, error) {
	opts := query.Options{SplitAlbum: c.SplitAlbum}
	var err error
	if opts.Album, err = c.Album.field(); err != nil {
		return opts, err
	}
	if opts.Artist, err = c.Artist.field(); err != nil {
		return opts, err
	}
	if opts.Track, err = c.Track.field(); err != nil {
		return opts, err
	}
	return opts, nil
}

func (f FieldConfig) field() (query.Field, error) {
	re, err := compilePattern(f.Pattern)
	if err != nil {
		return query.Field{}, err
	}
	return query.Field{Enabled: f.Enabled, Pattern: re, Limit: f.Limit}, nil
}

func compilePattern(p string) (*regexp.Regexp, error) {
	if strings.TrimSpace(p) == "" {
		return nil, nil
	}
	return regexp.Compile(p)
}
