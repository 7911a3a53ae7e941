package vgmdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/angelospk/vgmdb-go/internal/constants"
	vgmerrors "github.com/angelospk/vgmdb-go/pkg/core/errors"
)

// GetAlbum retrieves the raw album document for a numeric album id.
func (s *Session) GetAlbum(ctx context.Context, id string) (*AlbumPayload, error) {
	if _, err := strconv.Atoi(id); err != nil {
		return nil, fmt.Errorf("%w: %q", vgmerrors.ErrInvalidAlbumRef, id)
	}
	var album AlbumPayload
	endpoint := s.APIBaseURL() + constants.AlbumPath + id
	if err := s.httpClient.GetJSON(ctx, endpoint, FormatParams{Format: FormatJSON}, &album); err != nil {
		return nil, err
	}
	if album.Link == "" {
		album.Link = "album/" + id
	}
	s.logger.Debugf("Fetched album %s (%s)", id, album.Name)
	return &album, nil
}

// ParseAlbumID extracts the numeric album id from "123", "album/123",
// "vgmdb-123" or an album URL on either vgmdb.net or vgmdb.info.
func ParseAlbumID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty", vgmerrors.ErrInvalidAlbumRef)
	}
	if u, err := url.Parse(ref); err == nil && u.Host != "" {
		ref = u.Path
	}
	ref = strings.TrimPrefix(ref, constants.ExternalIDPrefix)
	ref = strings.Trim(ref, "/")
	if i := strings.LastIndex(ref, "album/"); i >= 0 {
		ref = ref[i+len("album/"):]
	}
	if i := strings.IndexAny(ref, "/?#"); i >= 0 {
		ref = ref[:i]
	}
	if _, err := strconv.Atoi(ref); err != nil || strings.HasPrefix(ref, "-") {
		return "", fmt.Errorf("%w: %q", vgmerrors.ErrInvalidAlbumRef, ref)
	}
	return ref, nil
}
