package metadata_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vgmdb "github.com/angelospk/vgmdb-go"
	vgmerrors "github.com/angelospk/vgmdb-go/pkg/core/errors"
	"github.com/angelospk/vgmdb-go/pkg/core/lang"
	"github.com/angelospk/vgmdb-go/pkg/core/metadata"
)

func decodePayload(t *testing.T, raw string) *vgmdb.AlbumPayload {
	t.Helper()
	var payload vgmdb.AlbumPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return &payload
}

func strPtr(s string) *string { return &s }

func TestNormalize_EndToEnd(t *testing.T) {
	payload := decodePayload(t, `{
		"link": "album/100",
		"discs": [{"tracks": [{"names": {"en": "Intro"}, "track_length": "1:30"}]}],
		"name": "Test",
		"names": {"en": "Test EN"},
		"catalog": "CAT-001",
		"category": "Game",
		"media_format": "CD",
		"release_date": "2020-05-01",
		"composers": [],
		"performers": [],
		"arrangers": [],
		"publisher": {"names": {"en": "Pub"}}
	}`)

	n := metadata.NewNormalizer(lang.Preference{"en"}, []string{"composers", "performers", "arrangers"})
	album, err := n.Normalize(payload)
	require.NoError(t, err)

	assert.Equal(t, "Test EN", album.Title)
	require.Len(t, album.Tracks, 1)
	assert.Equal(t, "Intro", album.Tracks[0].Title)
	require.NotNil(t, album.Tracks[0].LengthSeconds)
	assert.Equal(t, 90, *album.Tracks[0].LengthSeconds)
	assert.Equal(t, "", album.PrimaryArtist)
	assert.False(t, album.IsVariousArtists)
	assert.Equal(t, &metadata.Date{Year: 2020, Month: 5, Day: 1}, album.ReleaseDate)
	require.NotNil(t, album.Publisher)
	assert.Equal(t, "Pub", *album.Publisher)

	assert.Equal(t, "vgmdb-100", album.ExternalID)
	assert.Equal(t, "https://vgmdb.net/album/100", album.SourceURL)
	assert.Equal(t, "CAT-001", album.CatalogNumber)
	assert.Equal(t, "Game", album.Genre)
	assert.Equal(t, "CD", album.MediaFormat)
	assert.Equal(t, 1, album.DiscCount)
	assert.Equal(t, "VGMdb", album.Source)
	assert.Nil(t, album.Tracks[0].DiscTitle)
}

func TestNormalize_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"no discs", `{"link":"album/1","name":"A","catalog":"C"}`, "discs"},
		{"no names", `{"link":"album/1","discs":[],"catalog":"C"}`, "names"},
		{"no catalog", `{"link":"album/1","discs":[],"names":{"en":"A"}}`, "catalog"},
	}
	n := metadata.NewNormalizer(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			album, err := n.Normalize(decodePayload(t, tt.raw))
			assert.Nil(t, album)
			require.Error(t, err)
			assert.True(t, errors.Is(err, vgmerrors.ErrMalformedPayload))

			var malformed *vgmerrors.MalformedPayloadError
			require.True(t, errors.As(err, &malformed))
			assert.Equal(t, tt.field, malformed.Field)
			assert.Equal(t, "1", malformed.AlbumID)
		})
	}
}

func TestNormalize_OptionalFieldsNeverFail(t *testing.T) {
	album, err := metadata.NewNormalizer(nil, nil).Normalize(decodePayload(t, `{"name":"Bare","discs":[],"catalog":"N/A"}`))
	require.NoError(t, err)
	assert.Equal(t, "Bare", album.Title)
	assert.Empty(t, album.Tracks)
	assert.Nil(t, album.ReleaseDate)
	assert.Nil(t, album.Publisher)
	assert.Empty(t, album.ExternalID)
	assert.Empty(t, album.SourceURL)
}

func TestNormalizeID(t *testing.T) {
	n := metadata.NewNormalizer(nil, nil)

	album, err := n.NormalizeID("79", decodePayload(t, `{"name":"Bare","discs":[],"catalog":"N/A"}`))
	require.NoError(t, err)
	assert.Equal(t, "vgmdb-79", album.ExternalID)
	assert.Equal(t, "https://vgmdb.net/album/79", album.SourceURL)

	album, err = n.NormalizeID("79", decodePayload(t, `{"link":"album/80","name":"Linked","discs":[],"catalog":"N/A"}`))
	require.NoError(t, err)
	assert.Equal(t, "vgmdb-80", album.ExternalID, "the payload link wins over the lookup id")

	_, err = n.NormalizeID("79", nil)
	var malformed *vgmerrors.MalformedPayloadError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "79", malformed.AlbumID)
}

func TestNormalize_DiscRenumbering(t *testing.T) {
	payload := &vgmdb.AlbumPayload{
		Link:    "album/5",
		Name:    "Two Discs",
		Catalog: strPtr("TD-1"),
		Discs: []vgmdb.DiscPayload{
			{Name: "Disc 0", Tracks: []vgmdb.TrackPayload{
				{Names: lang.NameMapOf("English", "a"), TrackLength: "0:09"},
				{Names: lang.NameMapOf("English", "b"), TrackLength: "3:45"},
				{Names: lang.NameMapOf("English", "c"), TrackLength: "Unknown"},
			}},
			{Tracks: []vgmdb.TrackPayload{
				{Names: lang.NameMapOf("Japanese", "だ", "Romaji", "da")},
				{Names: lang.NameMapOf("Japanese", "え")},
			}},
		},
	}

	album, err := metadata.NewNormalizer(lang.Preference{"en", "ja-latn", "ja"}, nil).Normalize(payload)
	require.NoError(t, err)
	require.Len(t, album.Tracks, 5)
	assert.Equal(t, 2, album.DiscCount)

	type pos struct{ disc, track, count, index int }
	var got []pos
	for _, tr := range album.Tracks {
		got = append(got, pos{tr.DiscIndex, tr.TrackIndex, tr.DiscTrackCount, tr.Index})
	}
	assert.Equal(t, []pos{{1, 1, 3, 1}, {1, 2, 3, 2}, {1, 3, 3, 3}, {2, 1, 2, 4}, {2, 2, 2, 5}}, got)

	require.NotNil(t, album.Tracks[0].DiscTitle)
	assert.Equal(t, "Disc 0", *album.Tracks[0].DiscTitle)
	assert.Nil(t, album.Tracks[3].DiscTitle)

	assert.Equal(t, 9, *album.Tracks[0].LengthSeconds)
	assert.Equal(t, 225, *album.Tracks[1].LengthSeconds)
	assert.Nil(t, album.Tracks[2].LengthSeconds)
	assert.Nil(t, album.Tracks[3].LengthSeconds)

	assert.Equal(t, "da", album.Tracks[3].Title, "Romaji is preferred over Japanese for ja-latn")
	assert.Equal(t, "え", album.Tracks[4].Title)
	assert.Equal(t, 2, album.Tracks[3].AllNames.Len())
}

func TestNormalize_ArtistResolution(t *testing.T) {
	person := func(name, link string) vgmdb.PersonPayload {
		return vgmdb.PersonPayload{Names: lang.NameMapOf("ja", name+"-ja", "en", name), Link: link}
	}
	base := func() *vgmdb.AlbumPayload {
		return &vgmdb.AlbumPayload{Name: "A", Catalog: strPtr("C"), Discs: []vgmdb.DiscPayload{}}
	}

	t.Run("first role with credits wins", func(t *testing.T) {
		p := base()
		p.Performers = []vgmdb.PersonPayload{person("Singer", "artist/9")}
		p.Arrangers = []vgmdb.PersonPayload{person("Arr1", "artist/1"), person("Arr2", "artist/2")}

		album, err := metadata.NewNormalizer(lang.Preference{"en"}, nil).Normalize(p)
		require.NoError(t, err)
		assert.Equal(t, "Singer", album.PrimaryArtist)
		assert.Equal(t, "9", album.PrimaryArtistID)
		assert.False(t, album.IsVariousArtists)
	})

	t.Run("various artists", func(t *testing.T) {
		p := base()
		p.Composers = []vgmdb.PersonPayload{person("Comp1", "artist/3"), person("Comp2", "")}

		album, err := metadata.NewNormalizer(lang.Preference{"ja"}, nil).Normalize(p)
		require.NoError(t, err)
		assert.Equal(t, "Comp1-ja", album.PrimaryArtist)
		assert.Equal(t, "3", album.PrimaryArtistID)
		assert.True(t, album.IsVariousArtists)
		require.Len(t, album.Composers, 2)
		assert.Empty(t, album.Composers[1].ExternalID)
	})

	t.Run("unknown roles are skipped", func(t *testing.T) {
		p := base()
		p.Lyricists = []vgmdb.PersonPayload{person("Writer", "artist/4")}

		album, err := metadata.NewNormalizer(lang.Preference{"en"}, []string{"vocals", "Lyricists"}).Normalize(p)
		require.NoError(t, err)
		assert.Equal(t, "Writer", album.PrimaryArtist)
	})
}

func TestParseReleaseDate(t *testing.T) {
	tests := []struct {
		in   string
		want *metadata.Date
	}{
		{"2020-05-01", &metadata.Date{Year: 2020, Month: 5, Day: 1}},
		{"2020-05", nil},
		{"2020", nil},
		{"", nil},
		{"2020-05-01-02", nil},
		{"2020-xx-01", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, metadata.ParseReleaseDate(tt.in))
		})
	}
}

func TestParseTrackLength(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"3:45", 225, true},
		{"0:09", 9, true},
		{"12:00", 720, true},
		{"Unknown", 0, false},
		{"Unknown:00", 0, false},
		{"1:02:03", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := metadata.ParseTrackLength(tt.in)
			if !tt.ok {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}
