package vgmdb

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/angelospk/vgmdb-go/internal/constants"
	"github.com/angelospk/vgmdb-go/pkg/core/lang"
)

// SiteSearchParams is the query string of the vgmdb.net search page.
type SiteSearchParams struct {
	Query string `url:"q"`
	Type  string `url:"type,omitempty"`
}

// SearchAlbums queries the vgmdb.info album search and returns the listing
// in server order.
func (s *Session) SearchAlbums(ctx context.Context, query string) ([]AlbumListing, error) {
	var response SearchAlbumsResponse
	endpoint := s.APIBaseURL() + constants.SearchAlbumsPath + url.PathEscape(query)
	if err := s.httpClient.GetJSON(ctx, endpoint, FormatParams{Format: FormatJSON}, &response); err != nil {
		return nil, err
	}
	s.logger.Debugf("Album search %q returned %d results", query, len(response.Results.Albums))
	return response.Results.Albums, nil
}

// SearchAlbumsSite queries the vgmdb.net search page and scrapes the album
// result table.
func (s *Session) SearchAlbumsSite(ctx context.Context, query string) ([]AlbumListing, error) {
	doc, err := s.httpClient.GetHTML(ctx, s.SiteBaseURL()+constants.SiteSearchPath, SiteSearchParams{Query: query, Type: "album"})
	if err != nil {
		return nil, err
	}
	listings := parseAlbumResults(doc)
	s.logger.Debugf("Site album search %q returned %d results", query, len(listings))
	return listings, nil
}

// parseAlbumResults reads rows of the #albumresults table. Rows without an
// album link are skipped.
func parseAlbumResults(doc *goquery.Document) []AlbumListing {
	var listings []AlbumListing
	doc.Find("#albumresults tr").Each(func(_ int, row *goquery.Selection) {
		anchor := row.Find(`a[href*="/album/"]`).First()
		href, ok := anchor.Attr("href")
		if !ok {
			return
		}
		id, err := ParseAlbumID(href)
		if err != nil {
			return
		}

		var titles lang.NameMap
		anchor.Find("span.albumtitle").Each(func(_ int, span *goquery.Selection) {
			tag, _ := span.Attr("lang")
			title := strings.TrimSpace(span.Text())
			if tag == "" || title == "" {
				return
			}
			titles.Set(strings.ToLower(tag), title)
		})
		if titles.Len() == 0 {
			if text := strings.TrimSpace(anchor.Text()); text != "" {
				titles.Set("en", text)
			}
		}

		listings = append(listings, AlbumListing{
			Link:        "album/" + id,
			Titles:      titles,
			Catalog:     strings.TrimSpace(row.Find("span.catalog").First().Text()),
			ReleaseDate: strings.TrimSpace(row.Find("td").Last().Text()),
		})
	})
	return listings
}
