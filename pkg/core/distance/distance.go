// Package distance scores how far a VGMdb candidate is from a local item.
package distance

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/angelospk/vgmdb-go/internal/constants"
	"github.com/angelospk/vgmdb-go/pkg/core/metadata"
)

// Penalty keys.
const (
	KeySource     = "source"
	KeyTrackTitle = "track_title"
	KeyTracks     = "tracks"
)

// StringDistance returns a dissimilarity in [0,1]; 0 for identical strings.
type StringDistance func(a, b string) float64

// Levenshtein is the default StringDistance: one minus the normalized
// Levenshtein similarity of the case-folded strings.
func Levenshtein(a, b string) float64 {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 0
	}
	sim, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 1
	}
	return clamp(1 - float64(sim))
}

// Distance accumulates named penalties. Each value is clamped to [0,1] and
// multiplied by the weight of its key (1 when unset).
type Distance struct {
	penalties map[string][]float64
	weights   map[string]float64
}

// New returns an empty Distance using the given per-key weights.
func New(weights map[string]float64) *Distance {
	return &Distance{
		penalties: make(map[string][]float64),
		weights:   weights,
	}
}

// Add records a penalty under key.
func (d *Distance) Add(key string, value float64) {
	d.penalties[key] = append(d.penalties[key], clamp(value))
}

func (d *Distance) weight(key string) float64 {
	if w, ok := d.weights[key]; ok {
		return w
	}
	return 1
}

// Get returns the weighted sum of penalties recorded under key.
func (d *Distance) Get(key string) float64 {
	var sum float64
	for _, v := range d.penalties[key] {
		sum += v
	}
	return sum * d.weight(key)
}

// Raw returns the weighted sum of every penalty.
func (d *Distance) Raw() float64 {
	var sum float64
	for key := range d.penalties {
		sum += d.Get(key)
	}
	return sum
}

// Max returns the largest possible raw value for the recorded penalties.
func (d *Distance) Max() float64 {
	var total float64
	for key, values := range d.penalties {
		total += float64(len(values)) * d.weight(key)
	}
	return total
}

// Normalized returns Raw divided by Max, or 0 when nothing was recorded.
func (d *Distance) Normalized() float64 {
	total := d.Max()
	if total == 0 {
		return 0
	}
	return d.Raw() / total
}

// Keys returns the recorded penalty keys in sorted order.
func (d *Distance) Keys() []string {
	keys := make([]string, 0, len(d.penalties))
	for k := range d.penalties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge adds every penalty of other into d.
func (d *Distance) Merge(other *Distance) {
	if other == nil {
		return
	}
	for key, values := range other.penalties {
		d.penalties[key] = append(d.penalties[key], values...)
	}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Scorer computes VGMdb specific distance terms.
type Scorer struct {
	SourceWeight float64
	Strings      StringDistance
}

// NewScorer returns a Scorer using Levenshtein when strings is nil.
func NewScorer(sourceWeight float64, sd StringDistance) *Scorer {
	if sd == nil {
		sd = Levenshtein
	}
	return &Scorer{SourceWeight: sourceWeight, Strings: sd}
}

// TrackDistance compares a local title against every per-language name of a
// VGMdb track and records the best match plus the source weight. Tracks from
// other sources yield an empty Distance.
func (s *Scorer) TrackDistance(localTitle string, track metadata.TrackRecord) *Distance {
	dist := New(nil)
	if track.Source != constants.SourceName {
		return dist
	}
	best := 1.0
	for _, name := range track.AllNames.Values() {
		if d := s.Strings(localTitle, name); d < best {
			best = d
		}
	}
	dist.Add(KeyTrackTitle, best)
	dist.Add(KeySource, s.SourceWeight)
	return dist
}

// AlbumDistance records the source weight for VGMdb albums and nothing for
// albums from other sources.
func (s *Scorer) AlbumDistance(album metadata.AlbumRecord) *Distance {
	dist := New(nil)
	if album.Source == constants.SourceName {
		dist.Add(KeySource, s.SourceWeight)
	}
	return dist
}
