package metadata

import (
	"fmt"

	"github.com/angelospk/vgmdb-go/pkg/core/lang"
)

// Date is a fully populated release date. Partial dates are never stored.
type Date struct {
	Year  int `json:"year" yaml:"year"`
	Month int `json:"month" yaml:"month"`
	Day   int `json:"day" yaml:"day"`
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// PersonRef is a credited contributor.
type PersonRef struct {
	Name       string       `json:"name" yaml:"name"` // resolved display name
	Names      lang.NameMap `json:"names" yaml:"names"`
	ExternalID string       `json:"externalId,omitempty" yaml:"externalId,omitempty"`
}

// TrackRecord is one normalized track. DiscIndex and TrackIndex are 1-based.
type TrackRecord struct {
	Title          string       `json:"title" yaml:"title"`
	LengthSeconds  *int         `json:"lengthSeconds,omitempty" yaml:"lengthSeconds,omitempty"`
	Index          int          `json:"index" yaml:"index"` // album-wide position
	DiscIndex      int          `json:"discIndex" yaml:"discIndex"`
	TrackIndex     int          `json:"trackIndex" yaml:"trackIndex"`
	DiscTrackCount int          `json:"discTrackCount" yaml:"discTrackCount"`
	DiscTitle      *string      `json:"discTitle,omitempty" yaml:"discTitle,omitempty"`
	AllNames       lang.NameMap `json:"allNames" yaml:"allNames"`
	Source         string       `json:"source" yaml:"source"`
}

// AlbumRecord is a normalized album candidate.
type AlbumRecord struct {
	Title            string        `json:"title" yaml:"title"`
	ExternalID       string        `json:"externalId" yaml:"externalId"`
	Tracks           []TrackRecord `json:"tracks" yaml:"tracks"`
	PrimaryArtist    string        `json:"primaryArtist" yaml:"primaryArtist"`
	PrimaryArtistID  string        `json:"primaryArtistId,omitempty" yaml:"primaryArtistId,omitempty"`
	IsVariousArtists bool          `json:"isVariousArtists" yaml:"isVariousArtists"`
	ReleaseDate      *Date         `json:"releaseDate,omitempty" yaml:"releaseDate,omitempty"`
	CatalogNumber    string        `json:"catalogNumber" yaml:"catalogNumber"`
	MediaFormat      string        `json:"mediaFormat" yaml:"mediaFormat"`
	Genre            string        `json:"genre" yaml:"genre"`
	DiscCount        int           `json:"discCount" yaml:"discCount"`
	Publisher        *string       `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	SourceURL        string        `json:"sourceUrl" yaml:"sourceUrl"`
	Source           string        `json:"source" yaml:"source"`

	Composers  []PersonRef `json:"composers,omitempty" yaml:"composers,omitempty"`
	Performers []PersonRef `json:"performers,omitempty" yaml:"performers,omitempty"`
	Arrangers  []PersonRef `json:"arrangers,omitempty" yaml:"arrangers,omitempty"`
	Lyricists  []PersonRef `json:"lyricists,omitempty" yaml:"lyricists,omitempty"`
}

// TrackCount returns the number of tracks over all discs.
func (a *AlbumRecord) TrackCount() int {
	return len(a.Tracks)
}

// DisplayDate returns the release date as YYYY-MM-DD, or "" when unknown.
func (a *AlbumRecord) DisplayDate() string {
	if a.ReleaseDate == nil {
		return ""
	}
	return a.ReleaseDate.String()
}
