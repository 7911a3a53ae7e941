package vgmdb

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/url"

	"github.com/angelospk/vgmdb-go/internal/constants"
	vgmerrors "github.com/angelospk/vgmdb-go/pkg/core/errors"
)

// Methods related to authentication (Login, Logout, IsLoggedIn)

// Login signs in to the vgmdb.net forums. The site accepts the md5 of the
// password; a successful login leaves a session cookie in the jar.
func (s *Session) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return &vgmerrors.AuthError{Username: username, Reason: "username and password are required"}
	}
	sum := md5.Sum([]byte(password))
	hashed := hex.EncodeToString(sum[:])

	form := url.Values{
		"vb_login_username":        {username},
		"vb_login_password":        {""},
		"cookieuser":               {"1"},
		"securitytoken":            {"guest"},
		"do":                       {"login"},
		"vb_login_md5password":     {hashed},
		"vb_login_md5password_utf": {hashed},
	}
	loginURL := s.SiteBaseURL() + constants.LoginPath + "?do=login"
	if _, err := s.httpClient.PostForm(ctx, loginURL, form); err != nil {
		return err
	}
	if _, ok := s.httpClient.Cookie(s.SiteBaseURL(), constants.SessionCookieName); !ok {
		return &vgmerrors.AuthError{Username: username, Reason: "no session cookie returned"}
	}

	s.mu.Lock()
	s.username = username
	s.mu.Unlock()
	s.logger.Infof("Logged in to VGMdb as %s", username)
	return nil
}

// Logout forgets the session cookies. VGMdb has no server-side logout that
// needs calling.
func (s *Session) Logout() {
	s.httpClient.ResetCookies()
	s.mu.Lock()
	s.username = ""
	s.mu.Unlock()
}

// IsLoggedIn reports whether Login succeeded and the cookie is still held.
func (s *Session) IsLoggedIn() bool {
	s.mu.RLock()
	user := s.username
	s.mu.RUnlock()
	if user == "" {
		return false
	}
	_, ok := s.httpClient.Cookie(s.SiteBaseURL(), constants.SessionCookieName)
	return ok
}

// Username returns the logged in user, or "".
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}
