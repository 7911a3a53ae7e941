package processor

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ptn "github.com/razsteinmetz/go-ptn"
	log "github.com/sirupsen/logrus"

	"github.com/angelospk/vgmdb-go/pkg/core/distance"
	"github.com/angelospk/vgmdb-go/pkg/core/fileops"
	"github.com/angelospk/vgmdb-go/pkg/core/metadata"
)

// ProcessorInterface defines the methods for scanning a library and creating match jobs.
type ProcessorInterface interface {
	CreateMatchJobs(ctx context.Context, rootPath string, recursive bool) ([]MatchJob, error)
}

// Ensure Processor implements ProcessorInterface
var _ ProcessorInterface = (*Processor)(nil)

// Matcher defines the methods needed from the VGMdb plugin.
type Matcher interface {
	Candidates(ctx context.Context, items []fileops.LocalTrack, artist, album string, variousArtistsLikely bool) []metadata.AlbumRecord
	TrackDistance(item fileops.LocalTrack, track metadata.TrackRecord) *distance.Distance
	AlbumDistance(album metadata.AlbumRecord) *distance.Distance
}

// JobStatus defines the possible states of a match job.
type JobStatus string

const (
	StatusPending      JobStatus = "Pending"      // Scanned, not searched yet
	StatusMatched      JobStatus = "Matched"      // At least one candidate found
	StatusNoCandidates JobStatus = "NoCandidates" // Search returned nothing
	StatusSkipped      JobStatus = "Skipped"      // No usable album or artist name
)

// LocalAlbum is one directory of audio files treated as an album.
type LocalAlbum struct {
	Dir            string               `json:"dir"`
	Artist         string               `json:"artist"`
	Album          string               `json:"album"`
	Catalog        string               `json:"catalog,omitempty"`
	VariousArtists bool                 `json:"variousArtists"`
	Tracks         []fileops.LocalTrack `json:"tracks"`
}

// Candidate is a VGMdb album with its distance to the local album.
type Candidate struct {
	Album    metadata.AlbumRecord `json:"album"`
	Distance float64              `json:"distance"` // normalized, 0 is a perfect match
}

// MatchJob pairs a local album with its ranked candidates.
type MatchJob struct {
	Local      LocalAlbum  `json:"local"`
	Candidates []Candidate `json:"candidates"`
	Status     JobStatus   `json:"status"`
	Message    string      `json:"message,omitempty"`
}

// Best returns the closest candidate, or nil.
func (j *MatchJob) Best() *Candidate {
	if len(j.Candidates) == 0 {
		return nil
	}
	return &j.Candidates[0]
}

// Processor handles the scanning of directories and creation of MatchJobs.
type Processor struct {
	matcher Matcher
	logger  *log.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(matcher Matcher, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.New()
		logger.SetFormatter(&log.TextFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(log.InfoLevel)
	}
	return &Processor{
		matcher: matcher,
		logger:  logger,
	}
}

// ScanLibrary walks rootPath and groups audio files by directory. Each
// directory holding at least one audio file becomes a LocalAlbum.
func (p *Processor) ScanLibrary(ctx context.Context, rootPath string, recursive bool) ([]LocalAlbum, error) {
	byDir := make(map[string][]string)
	var dirs []string

	err := filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			p.logger.Warnf("Error accessing path %q: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			p.logger.Info("Context cancelled during library scan")
			return ctx.Err()
		}

		if d.IsDir() {
			if path != rootPath && !recursive {
				p.logger.Debugf("Skipping directory (not recursive): %s", path)
				return filepath.SkipDir
			}
			return nil
		}
		if !fileops.IsAudioFile(path) {
			return nil
		}
		dir := filepath.Dir(path)
		if _, ok := byDir[dir]; !ok {
			dirs = append(dirs, dir)
		}
		byDir[dir] = append(byDir[dir], path)
		return nil
	})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		p.logger.Errorf("Error walking directory %q: %v", rootPath, err)
		return nil, err
	}

	sort.Strings(dirs)
	albums := make([]LocalAlbum, 0, len(dirs))
	for _, dir := range dirs {
		album, err := p.readAlbum(ctx, dir, byDir[dir])
		if err != nil {
			return nil, err
		}
		albums = append(albums, album)
	}

	p.logger.Infof("Scan complete. Found %d albums in %s (Recursive: %t)", len(albums), rootPath, recursive)
	return albums, nil
}

func (p *Processor) readAlbum(ctx context.Context, dir string, files []string) (LocalAlbum, error) {
	album := LocalAlbum{Dir: dir}
	for _, f := range files {
		track, err := fileops.ReadTrack(ctx, f)
		if err != nil {
			if ctx.Err() != nil {
				return album, ctx.Err()
			}
			p.logger.Warnf("  Skipping unreadable file %s: %v", filepath.Base(f), err)
			continue
		}
		album.Tracks = append(album.Tracks, *track)
	}
	sortTracks(album.Tracks)
	summarize(&album)
	return album, nil
}

// sortTracks orders tracks by disc, track number, then path.
func sortTracks(tracks []fileops.LocalTrack) {
	sort.SliceStable(tracks, func(i, j int) bool {
		a, b := tracks[i], tracks[j]
		if a.DiscNumber != b.DiscNumber {
			return a.DiscNumber < b.DiscNumber
		}
		if a.TrackNumber != b.TrackNumber {
			return a.TrackNumber < b.TrackNumber
		}
		return a.Path < b.Path
	})
}

// summarize fills album-level fields from the most common track tags,
// falling back to the directory name for the album title.
func summarize(album *LocalAlbum) {
	albums := make(map[string]int)
	albumArtists := make(map[string]int)
	artists := make(map[string]int)
	catalogs := make(map[string]int)
	for _, t := range album.Tracks {
		if t.Catalog != "" {
			catalogs[t.Catalog]++
		}
		if t.Album != "" {
			albums[t.Album]++
		}
		if t.AlbumArtist != "" {
			albumArtists[t.AlbumArtist]++
		}
		if t.Artist != "" {
			artists[t.Artist]++
		}
	}

	album.Catalog = mostCommon(catalogs)
	album.Album = mostCommon(albums)
	if album.Album == "" {
		album.Album = titleFromDir(album.Dir)
	}

	if aa := mostCommon(albumArtists); aa != "" {
		album.Artist = aa
		album.VariousArtists = isVariousArtistsName(aa)
	} else {
		album.Artist = mostCommon(artists)
		album.VariousArtists = len(artists) > 1
	}
	if album.VariousArtists && isVariousArtistsName(album.Artist) {
		album.Artist = ""
	}
}

func isVariousArtistsName(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "various artists", "various", "va", "v.a.":
		return true
	}
	return false
}

// mostCommon returns the most frequent key; ties go to the smaller string.
func mostCommon(counts map[string]int) string {
	best, bestN := "", 0
	for k, n := range counts {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best
}

// titleFromDir parses release-style folder names such as
// "Chrono.Cross.OST.2000.FLAC" into a plain title.
func titleFromDir(dir string) string {
	name := filepath.Base(dir)
	parsed, err := ptn.Parse(name)
	if err == nil && strings.TrimSpace(parsed.Title) != "" {
		return strings.TrimSpace(parsed.Title)
	}
	return strings.TrimSpace(strings.NewReplacer(".", " ", "_", " ").Replace(name))
}

// MatchAlbum searches VGMdb for one local album and ranks the candidates.
func (p *Processor) MatchAlbum(ctx context.Context, album LocalAlbum) MatchJob {
	job := MatchJob{Local: album, Status: StatusPending}
	if strings.TrimSpace(album.Album) == "" && strings.TrimSpace(album.Artist) == "" {
		job.Status = StatusSkipped
		job.Message = "no album or artist name"
		return job
	}

	records := p.matcher.Candidates(ctx, album.Tracks, album.Artist, album.Album, album.VariousArtists)
	for _, rec := range records {
		job.Candidates = append(job.Candidates, Candidate{Album: rec, Distance: p.albumDistance(album, rec)})
	}
	sort.SliceStable(job.Candidates, func(i, j int) bool {
		return job.Candidates[i].Distance < job.Candidates[j].Distance
	})

	if len(job.Candidates) == 0 {
		job.Status = StatusNoCandidates
		job.Message = "no VGMdb candidates"
		return job
	}
	job.Status = StatusMatched
	return job
}

// albumDistance combines the album term with per-track terms matched by
// position, plus one "tracks" penalty per unmatched track on either side.
func (p *Processor) albumDistance(local LocalAlbum, candidate metadata.AlbumRecord) float64 {
	dist := p.matcher.AlbumDistance(candidate)
	n := len(local.Tracks)
	if len(candidate.Tracks) < n {
		n = len(candidate.Tracks)
	}
	for i := 0; i < n; i++ {
		dist.Merge(p.matcher.TrackDistance(local.Tracks[i], candidate.Tracks[i]))
	}
	for i := n; i < len(local.Tracks)+len(candidate.Tracks)-n; i++ {
		dist.Add(distance.KeyTracks, 1)
	}
	return dist.Normalized()
}

// CreateMatchJobs scans a directory and matches every album found.
func (p *Processor) CreateMatchJobs(ctx context.Context, rootPath string, recursive bool) ([]MatchJob, error) {
	albums, err := p.ScanLibrary(ctx, rootPath, recursive)
	if err != nil {
		return nil, err
	}

	jobs := make([]MatchJob, 0, len(albums))
	for _, album := range albums {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Infof("Processing album: %s (%d tracks)", filepath.Base(album.Dir), len(album.Tracks))
		job := p.MatchAlbum(ctx, album)
		if best := job.Best(); best != nil {
			p.logger.Infof("  Best match: %s [%s] distance %.2f", best.Album.Title, best.Album.CatalogNumber, best.Distance)
		} else {
			p.logger.Infof("  %s", job.Message)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
