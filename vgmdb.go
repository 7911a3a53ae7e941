// Package vgmdb is a client for the VGMdb album database: the vgmdb.info JSON
// mirror for lookups and the vgmdb.net site for login, HTML search and the
// user collection.
package vgmdb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"github.com/angelospk/vgmdb-go/internal/constants"
	"github.com/angelospk/vgmdb-go/internal/httpclient"
)

// Config holds the configuration for a Session.
type Config struct {
	APIBaseURL        string        // Optional: override the vgmdb.info base URL
	SiteBaseURL       string        // Optional: override the vgmdb.net base URL
	UserAgent         string        // Optional: defaults to constants.DefaultUserAgent
	Timeout           time.Duration // Optional: per-request timeout
	RequestsPerSecond float64       // 0 uses constants.DefaultRequestRate, < 0 disables limiting
	Logger            *log.Logger   // Optional: defaults to the standard logrus logger
}

// Session is the network session shared by lookups and the collection
// manager. It owns the cookie jar, so a login is visible to every caller
// holding the same Session.
type Session struct {
	httpClient  *httpclient.Client
	logger      *log.Logger
	mu          sync.RWMutex // Protects username and base URLs
	apiBaseURL  string
	siteBaseURL string
	username    string
}

// NewSession creates a new VGMdb session.
func NewSession(config Config) (*Session, error) {
	apiBase, err := baseURL(config.APIBaseURL, constants.DefaultAPIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid APIBaseURL provided: %w", err)
	}
	siteBase, err := baseURL(config.SiteBaseURL, constants.DefaultSiteBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid SiteBaseURL provided: %w", err)
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = constants.DefaultUserAgent
	}
	rps := config.RequestsPerSecond
	if rps == 0 {
		rps = constants.DefaultRequestRate
	}
	logger := config.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	return &Session{
		httpClient: httpclient.New(httpclient.Options{
			UserAgent:         userAgent,
			Timeout:           config.Timeout,
			RequestsPerSecond: rps,
		}),
		logger:      logger,
		apiBaseURL:  apiBase,
		siteBaseURL: siteBase,
	}, nil
}

func baseURL(override, fallback string) (string, error) {
	if override == "" {
		return fallback, nil
	}
	if _, err := url.ParseRequestURI(override); err != nil {
		return "", err
	}
	return strings.TrimRight(override, "/"), nil
}

// SetBaseURLsForTesting points the session at test servers.
func (s *Session) SetBaseURLsForTesting(apiBase, siteBase string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if apiBase != "" {
		s.apiBaseURL = strings.TrimRight(apiBase, "/")
	}
	if siteBase != "" {
		s.siteBaseURL = strings.TrimRight(siteBase, "/")
	}
}

// APIBaseURL returns the vgmdb.info base URL in use.
func (s *Session) APIBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiBaseURL
}

// SiteBaseURL returns the vgmdb.net base URL in use.
func (s *Session) SiteBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.siteBaseURL
}

// FetchSitePage GETs a vgmdb.net page. pathAndQuery is relative to the site
// base URL, e.g. "/db/collection.php?do=view".
func (s *Session) FetchSitePage(ctx context.Context, pathAndQuery string) (*goquery.Document, error) {
	return s.httpClient.GetHTML(ctx, s.SiteBaseURL()+pathAndQuery, nil)
}

// PostSiteForm submits a form to a vgmdb.net page with the session cookies.
func (s *Session) PostSiteForm(ctx context.Context, pathAndQuery string, form url.Values) (*goquery.Document, error) {
	return s.httpClient.PostForm(ctx, s.SiteBaseURL()+pathAndQuery, form)
}

// Logger returns the session logger.
func (s *Session) Logger() *log.Logger {
	return s.logger
}

// AlbumURL returns the public vgmdb.net page of an album id.
func (s *Session) AlbumURL(id string) string {
	return s.SiteBaseURL() + constants.AlbumPath + id
}
