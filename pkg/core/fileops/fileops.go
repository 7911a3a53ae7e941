package fileops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
)

// AudioExtensions lists the file extensions treated as library tracks.
var AudioExtensions = map[string]bool{
	".mp3": true, ".flac": true, ".m4a": true, ".mp4": true, ".ogg": true, ".opus": true,
}

var leadingTrackNumberRegex = regexp.MustCompile(`^(?:(\d)[-.])?(\d{1,3})[\s._-]+(.+)$`)

// LocalTrack holds the tags of one audio file in the local library.
type LocalTrack struct {
	Path        string `json:"path"`
	FileType    string `json:"fileType,omitempty"` // e.g. "MP3", "FLAC"
	Title       string `json:"title"`
	Album       string `json:"album,omitempty"`
	Artist      string `json:"artist,omitempty"`
	AlbumArtist string `json:"albumArtist,omitempty"`
	Composer    string `json:"composer,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Catalog     string `json:"catalog,omitempty"` // CATALOGNUMBER comment or TXXX frame
	Year        int    `json:"year,omitempty"`
	TrackNumber int    `json:"trackNumber,omitempty"`
	TotalTracks int    `json:"totalTracks,omitempty"`
	DiscNumber  int    `json:"discNumber,omitempty"`
	TotalDiscs  int    `json:"totalDiscs,omitempty"`
	Tagged      bool   `json:"tagged"` // false when fields were guessed from the file name
}

// IsAudioFile reports whether path has a supported audio extension.
func IsAudioFile(path string) bool {
	return AudioExtensions[strings.ToLower(filepath.Ext(path))]
}

// ReadTrackTags reads tags from supported files using dhowden/tag.
// Currently supports MP4, MP3, FLAC, Ogg Vorbis/Opus.
func ReadTrackTags(ctx context.Context, filePath string) (*LocalTrack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file '%s': %w", filePath, err)
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags from '%s': %w", filePath, err)
	}

	track := &LocalTrack{
		Path:        filePath,
		FileType:    string(metadata.FileType()),
		Title:       strings.TrimSpace(metadata.Title()),
		Album:       strings.TrimSpace(metadata.Album()),
		Artist:      strings.TrimSpace(metadata.Artist()),
		AlbumArtist: strings.TrimSpace(metadata.AlbumArtist()),
		Composer:    strings.TrimSpace(metadata.Composer()),
		Genre:       metadata.Genre(),
		Year:        metadata.Year(),
		Tagged:      true,
	}
	track.Catalog = catalogNumber(metadata.Raw())
	track.TrackNumber, track.TotalTracks = metadata.Track()
	track.DiscNumber, track.TotalDiscs = metadata.Disc()

	if track.Title == "" {
		guess := TrackFromFilename(filePath)
		track.Title = guess.Title
		if track.TrackNumber == 0 {
			track.TrackNumber = guess.TrackNumber
		}
	}
	return track, nil
}

// catalogNumber finds the catalog number in raw tags: Vorbis comments are
// keyed by lower-cased name, ID3v2 user text frames are *tag.Comm values.
func catalogNumber(raw map[string]interface{}) string {
	for _, key := range []string{"catalognumber", "catalog", "labelno"} {
		if v, ok := raw[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	for key, v := range raw {
		if !strings.HasPrefix(key, "TXXX") {
			continue
		}
		if c, ok := v.(*tag.Comm); ok && strings.EqualFold(strings.ReplaceAll(c.Description, " ", ""), "CATALOGNUMBER") {
			return strings.TrimSpace(c.Text)
		}
	}
	return ""
}

// ReadTrack returns the tags of filePath, falling back to the file name when
// the file carries no readable tags.
func ReadTrack(ctx context.Context, filePath string) (*LocalTrack, error) {
	track, err := ReadTrackTags(ctx, filePath)
	if err == nil {
		return track, nil
	}
	if errors.Is(err, tag.ErrNoTagsFound) {
		return TrackFromFilename(filePath), nil
	}
	if _, statErr := os.Stat(filePath); statErr != nil {
		return nil, err
	}
	// Unsupported or corrupt tag blocks still leave a usable file name.
	return TrackFromFilename(filePath), nil
}

// TrackFromFilename guesses disc, track number and title from names such as
// "03 - Battle.flac" or "2-05 Ending.mp3".
func TrackFromFilename(filePath string) *LocalTrack {
	base := filepath.Base(filePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	track := &LocalTrack{
		Path:     filePath,
		FileType: strings.ToUpper(strings.TrimPrefix(filepath.Ext(base), ".")),
		Title:    strings.TrimSpace(name),
	}
	if m := leadingTrackNumberRegex.FindStringSubmatch(name); m != nil {
		if m[1] != "" {
			track.DiscNumber, _ = strconv.Atoi(m[1])
		}
		track.TrackNumber, _ = strconv.Atoi(m[2])
		track.Title = strings.TrimSpace(strings.TrimLeft(m[3], "-. "))
	}
	return track
}
