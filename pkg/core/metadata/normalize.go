package metadata

import (
	"strconv"
	"strings"

	vgmdb "github.com/angelospk/vgmdb-go"
	"github.com/angelospk/vgmdb-go/internal/constants"
	vgmerrors "github.com/angelospk/vgmdb-go/pkg/core/errors"
	"github.com/angelospk/vgmdb-go/pkg/core/lang"
)

// DefaultArtistPriority is the contributor role order used to pick the album artist.
var DefaultArtistPriority = []string{"composers", "performers", "arrangers"}

// Normalizer converts raw album payloads into AlbumRecords. It holds no
// mutable state and is safe for concurrent use.
type Normalizer struct {
	Preference     lang.Preference
	ArtistPriority []string
	SiteBaseURL    string // used to build SourceURL when the payload has no vgmdb_link
}

// NewNormalizer returns a Normalizer, substituting defaults for empty arguments.
func NewNormalizer(pref lang.Preference, artistPriority []string) *Normalizer {
	if len(pref) == 0 {
		pref = lang.DefaultPreference
	}
	if len(artistPriority) == 0 {
		artistPriority = DefaultArtistPriority
	}
	return &Normalizer{
		Preference:     pref,
		ArtistPriority: artistPriority,
		SiteBaseURL:    constants.DefaultSiteBaseURL,
	}
}

// Normalize builds an AlbumRecord. It fails with a MalformedPayloadError when
// discs, catalog, or both name and names are absent; every other field is optional.
func (n *Normalizer) Normalize(raw *vgmdb.AlbumPayload) (*AlbumRecord, error) {
	return n.NormalizeID("", raw)
}

// NormalizeID normalizes the payload fetched for album id. A link in the
// payload takes precedence; id is used when the payload carries none.
func (n *Normalizer) NormalizeID(id string, raw *vgmdb.AlbumPayload) (*AlbumRecord, error) {
	if raw == nil {
		return nil, &vgmerrors.MalformedPayloadError{AlbumID: id, Field: "album"}
	}
	if own := raw.ID(); own != "" {
		id = own
	}
	switch {
	case raw.Discs == nil:
		return nil, &vgmerrors.MalformedPayloadError{AlbumID: id, Field: "discs"}
	case raw.Name == "" && raw.Names.Len() == 0:
		return nil, &vgmerrors.MalformedPayloadError{AlbumID: id, Field: "names"}
	case raw.Catalog == nil:
		return nil, &vgmerrors.MalformedPayloadError{AlbumID: id, Field: "catalog"}
	}

	album := &AlbumRecord{
		Title:         n.albumTitle(raw),
		CatalogNumber: *raw.Catalog,
		MediaFormat:   raw.MediaFormat,
		Genre:         raw.Category,
		DiscCount:     len(raw.Discs),
		ReleaseDate:   ParseReleaseDate(raw.ReleaseDate),
		Source:        constants.SourceName,
		Composers:     n.people(raw.Composers),
		Performers:    n.people(raw.Performers),
		Arrangers:     n.people(raw.Arrangers),
		Lyricists:     n.people(raw.Lyricists),
	}
	if id != "" {
		album.ExternalID = constants.ExternalIDPrefix + id
	}
	album.SourceURL = raw.VGMdbLink
	if album.SourceURL == "" && id != "" {
		album.SourceURL = strings.TrimRight(n.SiteBaseURL, "/") + constants.AlbumPath + id
	}
	if raw.Publisher != nil && raw.Publisher.Names.Len() > 0 {
		publisher := lang.Resolve(n.Preference, raw.Publisher.Names)
		album.Publisher = &publisher
	}

	album.PrimaryArtist, album.PrimaryArtistID, album.IsVariousArtists = n.primaryArtist(raw)
	album.Tracks = n.tracks(raw.Discs)
	return album, nil
}

func (n *Normalizer) albumTitle(raw *vgmdb.AlbumPayload) string {
	if raw.Names.Len() > 0 {
		if title := lang.Resolve(n.Preference, raw.Names); title != "" {
			return title
		}
	}
	return raw.Name
}

// primaryArtist scans ArtistPriority and takes the first role with credits.
func (n *Normalizer) primaryArtist(raw *vgmdb.AlbumPayload) (name, id string, various bool) {
	for _, role := range n.ArtistPriority {
		people, ok := raw.Contributors(strings.ToLower(strings.TrimSpace(role)))
		if !ok || len(people) == 0 {
			continue
		}
		first := people[0]
		return lang.Resolve(n.Preference, first.Names), linkID(first.Link), len(people) > 1
	}
	return "", "", false
}

func (n *Normalizer) people(raw []vgmdb.PersonPayload) []PersonRef {
	if len(raw) == 0 {
		return nil
	}
	out := make([]PersonRef, 0, len(raw))
	for _, p := range raw {
		out = append(out, PersonRef{
			Name:       lang.Resolve(n.Preference, p.Names),
			Names:      p.Names,
			ExternalID: linkID(p.Link),
		})
	}
	return out
}

func (n *Normalizer) tracks(discs []vgmdb.DiscPayload) []TrackRecord {
	var tracks []TrackRecord
	index := 0
	for d, disc := range discs {
		var discTitle *string
		if title := strings.TrimSpace(disc.Name); title != "" {
			discTitle = &title
		}
		for t, raw := range disc.Tracks {
			index++
			tracks = append(tracks, TrackRecord{
				Title:          lang.ResolveAliased(n.Preference, raw.Names, lang.TrackNameAliases),
				LengthSeconds:  ParseTrackLength(raw.TrackLength),
				Index:          index,
				DiscIndex:      d + 1,
				TrackIndex:     t + 1,
				DiscTrackCount: len(disc.Tracks),
				DiscTitle:      discTitle,
				AllNames:       raw.Names,
				Source:         constants.SourceName,
			})
		}
	}
	return tracks
}

// ParseTrackLength converts "MM:SS" to seconds. "Unknown" and anything that
// is not two non-negative integers yields nil.
func ParseTrackLength(s string) *int {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return nil
	}
	minutes, err := strconv.Atoi(parts[0])
	if err != nil || minutes < 0 {
		return nil
	}
	seconds, err := strconv.Atoi(parts[1])
	if err != nil || seconds < 0 {
		return nil
	}
	total := minutes*60 + seconds
	return &total
}

// ParseReleaseDate parses "YYYY-MM-DD". Any other shape yields nil; a date
// is never partially populated.
func ParseReleaseDate(s string) *Date {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return nil
	}
	var nums [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		nums[i] = v
	}
	return &Date{Year: nums[0], Month: nums[1], Day: nums[2]}
}

// linkID returns the trailing id of a link such as "artist/123".
func linkID(link string) string {
	link = strings.Trim(link, "/")
	if link == "" {
		return ""
	}
	if i := strings.LastIndex(link, "/"); i >= 0 {
		return link[i+1:]
	}
	return link
}
