// Package query turns local album tags into VGMdb search strings.
package query

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	nonWordRegex    = regexp.MustCompile(`[^\p{L}\p{N}_]+`)
	discMarkerRegex = regexp.MustCompile(`(?i)\b(CD|disc)\s*\d+`)
	spaceRegex      = regexp.MustCompile(`\s+`)
)

// Sanitize folds compatibility characters, collapses punctuation runs to a
// single space and strips "CD1"/"disc 2" markers.
func Sanitize(s string) string {
	s = norm.NFKC.String(s)
	s = nonWordRegex.ReplaceAllString(s, " ")
	s = discMarkerRegex.ReplaceAllString(s, "")
	s = spaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Field controls whether one local tag takes part in queries.
type Field struct {
	Enabled bool
	Pattern *regexp.Regexp // matches are removed before sanitizing
	Limit   int            // max words (album, artist) or max queries (track); 0 = unlimited
}

// refine applies Pattern and Limit to a raw value and sanitizes it.
func (f Field) refine(s string) string {
	if f.Pattern != nil {
		s = f.Pattern.ReplaceAllString(s, "")
	}
	s = Sanitize(s)
	if f.Limit > 0 {
		words := strings.Fields(s)
		if len(words) > f.Limit {
			s = strings.Join(words[:f.Limit], " ")
		}
	}
	return s
}

// Options configures a Builder.
type Options struct {
	Album      Field
	Artist     Field
	Track      Field
	SplitAlbum bool // query each " -" separated part of the album title separately
}

// DefaultOptions searches by artist and album, without track titles.
func DefaultOptions() Options {
	return Options{
		Album:  Field{Enabled: true},
		Artist: Field{Enabled: true},
	}
}

// Builder produces search queries. It is immutable and safe for concurrent use.
type Builder struct {
	opts Options
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts}
}

// Build returns the de-duplicated, non-empty queries for a local album.
// It returns nil only when every input is blank.
func (b *Builder) Build(artist, album string, trackTitles []string, variousArtistsLikely bool) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" {
			return
		}
		key := strings.ToLower(q)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, q)
	}

	prefix := ""
	if b.opts.Artist.Enabled && !variousArtistsLikely {
		prefix = b.opts.Artist.refine(artist)
	}

	if b.opts.Album.Enabled {
		parts := []string{album}
		if b.opts.SplitAlbum {
			parts = strings.Split(album, " -")
		}
		for _, part := range parts {
			if q := b.opts.Album.refine(part); q != "" {
				add(prefix + " " + q)
			}
		}
	} else {
		add(prefix)
	}

	if b.opts.Track.Enabled {
		track := Field{Pattern: b.opts.Track.Pattern}
		count := 0
		for _, title := range trackTitles {
			if b.opts.Track.Limit > 0 && count >= b.opts.Track.Limit {
				break
			}
			if q := track.refine(title); q != "" {
				add(q)
				count++
			}
		}
	}

	if len(out) == 0 {
		fallbacks := append([]string{Sanitize(album), album, Sanitize(artist), artist}, trackTitles...)
		for _, q := range fallbacks {
			add(q)
			if len(out) > 0 {
				break
			}
		}
	}
	return out
}
