package vgmdb

import "github.com/angelospk/vgmdb-go/pkg/core/lang"

// --- Common Types ---

// Format selects the response format of the vgmdb.info mirror.
type Format string

const (
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// SearchSource selects which listing endpoint candidate search uses.
type SearchSource string

const (
	SearchSourceAPI  SearchSource = "api"  // vgmdb.info JSON search
	SearchSourceSite SearchSource = "site" // vgmdb.net HTML search page
)

// FormatParams is the query string shared by every vgmdb.info request.
type FormatParams struct {
	Format Format `url:"format"`
}

// --- Album payload (vgmdb.info /album/<id>) ---

// PersonPayload is a credited contributor or organisation.
type PersonPayload struct {
	Names lang.NameMap `json:"names"`
	Link  string       `json:"link,omitempty"` // e.g. "artist/123"
	Roles []string     `json:"roles,omitempty"`
}

// TrackPayload is a single track inside a disc.
type TrackPayload struct {
	Names       lang.NameMap `json:"names"` // keyed English/Romaji/Japanese
	TrackLength string       `json:"track_length"`
}

// DiscPayload is one disc of an album.
type DiscPayload struct {
	Name       string         `json:"name"`
	DiscLength string         `json:"disc_length,omitempty"`
	Tracks     []TrackPayload `json:"tracks"`
}

// AlbumPayload is the raw album document. Discs is nil when the field was
// absent and an empty slice when the album lists no discs.
type AlbumPayload struct {
	Link           string          `json:"link"`
	Name           string          `json:"name"`
	Names          lang.NameMap    `json:"names"`
	Catalog        *string         `json:"catalog"`
	Category       string          `json:"category"`
	Classification string          `json:"classification,omitempty"`
	MediaFormat    string          `json:"media_format"`
	ReleaseDate    string          `json:"release_date"`
	Publisher      *PersonPayload  `json:"publisher"`
	Composers      []PersonPayload `json:"composers"`
	Performers     []PersonPayload `json:"performers"`
	Arrangers      []PersonPayload `json:"arrangers"`
	Lyricists      []PersonPayload `json:"lyricists"`
	Discs          []DiscPayload   `json:"discs"`
	VGMdbLink      string          `json:"vgmdb_link"`
	Notes          string          `json:"notes,omitempty"`
}

// ID returns the numeric album id taken from Link or VGMdbLink, or "".
func (a *AlbumPayload) ID() string {
	for _, ref := range []string{a.Link, a.VGMdbLink} {
		if id, err := ParseAlbumID(ref); err == nil {
			return id
		}
	}
	return ""
}

// Contributors returns the contributor list for a role name such as
// "composers". ok is false for unknown roles.
func (a *AlbumPayload) Contributors(role string) (people []PersonPayload, ok bool) {
	switch role {
	case "composers":
		return a.Composers, true
	case "performers":
		return a.Performers, true
	case "arrangers":
		return a.Arrangers, true
	case "lyricists":
		return a.Lyricists, true
	}
	return nil, false
}

// --- Search listing ---

// AlbumListing is one row of a search result listing.
type AlbumListing struct {
	Link        string       `json:"link"` // "album/123"
	Titles      lang.NameMap `json:"titles"`
	Catalog     string       `json:"catalog"`
	ReleaseDate string       `json:"release_date"`
	MediaFormat string       `json:"media_format,omitempty"`
}

// SearchAlbumsResponse is the vgmdb.info /search/albums/<q> document.
type SearchAlbumsResponse struct {
	Query   string `json:"query"`
	Results struct {
		Albums []AlbumListing `json:"albums"`
	} `json:"results"`
}
