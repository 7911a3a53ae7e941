package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelospk/vgmdb-go/pkg/core/lang"
	"github.com/angelospk/vgmdb-go/pkg/core/metadata"
)

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0.0, Levenshtein("Scars of Time", "scars of time"))
	assert.Equal(t, 0.0, Levenshtein("", ""))
	assert.Equal(t, 1.0, Levenshtein("abc", ""))
	assert.InDelta(t, 1.0/3.0, Levenshtein("abc", "abd"), 1e-6)

	d := Levenshtein("Time's Scar", "Times Scar")
	assert.Greater(t, d, 0.0)
	assert.Less(t, d, 0.2)
	assert.Equal(t, d, Levenshtein("Times Scar", "Time's Scar"), "distance is symmetric")
}

func TestDistanceAccumulator(t *testing.T) {
	d := New(map[string]float64{KeySource: 2})
	d.Add(KeyTrackTitle, 0.25)
	d.Add(KeyTrackTitle, 1.5) // clamped to 1
	d.Add(KeySource, 0.5)

	assert.InDelta(t, 1.25, d.Get(KeyTrackTitle), 1e-9)
	assert.InDelta(t, 1.0, d.Get(KeySource), 1e-9)
	assert.InDelta(t, 2.25, d.Raw(), 1e-9)
	assert.InDelta(t, 4.0, d.Max(), 1e-9)
	assert.InDelta(t, 2.25/4.0, d.Normalized(), 1e-9)
	assert.Equal(t, []string{KeySource, KeyTrackTitle}, d.Keys())

	assert.Equal(t, 0.0, New(nil).Normalized())
}

func TestDistanceMerge(t *testing.T) {
	a := New(nil)
	a.Add(KeySource, 0.1)
	b := New(nil)
	b.Add(KeyTrackTitle, 0.3)
	a.Merge(b)
	a.Merge(nil)
	assert.InDelta(t, 0.4, a.Raw(), 1e-9)
}

func vgmTrack(names lang.NameMap) metadata.TrackRecord {
	return metadata.TrackRecord{Title: "x", AllNames: names, Source: "VGMdb"}
}

func TestTrackDistance(t *testing.T) {
	s := NewScorer(0.5, nil)

	t.Run("no names is maximal", func(t *testing.T) {
		d := s.TrackDistance("Anything", vgmTrack(lang.NameMap{}))
		assert.Equal(t, 1.0, d.Get(KeyTrackTitle))
		assert.Equal(t, 0.5, d.Get(KeySource))
		assert.InDelta(t, 1.5, d.Raw(), 1e-9)
	})

	t.Run("exact match in any language", func(t *testing.T) {
		d := s.TrackDistance("Sentou", vgmTrack(lang.NameMapOf("Japanese", "戦闘", "Romaji", "Sentou", "English", "Battle")))
		assert.Equal(t, 0.0, d.Get(KeyTrackTitle))
		assert.InDelta(t, 0.5, d.Raw(), 1e-9)
	})

	t.Run("other source contributes nothing", func(t *testing.T) {
		track := vgmTrack(lang.NameMapOf("English", "Battle"))
		track.Source = "MusicBrainz"
		d := s.TrackDistance("Battle", track)
		assert.Empty(t, d.Keys())
	})

	t.Run("custom string distance", func(t *testing.T) {
		calls := 0
		custom := NewScorer(0, func(a, b string) float64 {
			calls++
			return 0.7
		})
		d := custom.TrackDistance("a", vgmTrack(lang.NameMapOf("English", "b", "Romaji", "c")))
		assert.Equal(t, 2, calls)
		assert.InDelta(t, 0.7, d.Get(KeyTrackTitle), 1e-9)
	})
}

func TestAlbumDistance(t *testing.T) {
	s := NewScorer(0.3, nil)
	d := s.AlbumDistance(metadata.AlbumRecord{Source: "VGMdb"})
	assert.InDelta(t, 0.3, d.Get(KeySource), 1e-9)

	d = s.AlbumDistance(metadata.AlbumRecord{Source: "Discogs"})
	assert.Equal(t, 0.0, d.Raw())
	assert.Empty(t, d.Keys())
}
