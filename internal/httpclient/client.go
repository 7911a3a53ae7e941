package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-querystring/query"
	"golang.org/x/time/rate"

	vgmerrors "github.com/angelospk/vgmdb-go/pkg/core/errors"
)

// Client makes rate limited requests and keeps cookies between them.
type Client struct {
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	mu         sync.RWMutex // Protects jar
	jar        http.CookieJar
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64 // <= 0 disables rate limiting
}

// New creates a new internal HTTP client with an empty cookie jar.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	jar, _ := cookiejar.New(nil) // only fails on a bad PublicSuffixList
	c := &Client{
		userAgent: opts.UserAgent,
		limiter:   rate.NewLimiter(limit, 1),
		jar:       jar,
	}
	c.httpClient = &http.Client{Timeout: timeout, Jar: jarFunc{c}}
	return c
}

// ResetCookies drops every stored cookie.
func (c *Client) ResetCookies() {
	jar, _ := cookiejar.New(nil)
	c.mu.Lock()
	c.jar = jar
	c.mu.Unlock()
}

// Cookie returns the named cookie stored for rawURL, if any.
func (c *Client) Cookie(rawURL, name string) (*http.Cookie, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ck := range c.jar.Cookies(u) {
		if ck.Name == name && ck.Value != "" {
			return ck, true
		}
	}
	return nil, false
}

// GetJSON makes a GET request and decodes the JSON body into target.
// params is encoded with go-querystring `url` tags and may be nil.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params interface{}, target interface{}) error {
	fullURL, err := withQuery(rawURL, params)
	if err != nil {
		return err
	}
	body, err := c.do(ctx, http.MethodGet, fullURL, nil, "")
	if err != nil {
		return err
	}
	if target != nil {
		if err := json.Unmarshal(body, target); err != nil {
			return &vgmerrors.DecodeError{URL: fullURL, Err: err}
		}
	}
	return nil
}

// GetHTML makes a GET request and parses the body as an HTML document.
func (c *Client) GetHTML(ctx context.Context, rawURL string, params interface{}) (*goquery.Document, error) {
	fullURL, err := withQuery(rawURL, params)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodGet, fullURL, nil, "")
	if err != nil {
		return nil, err
	}
	return parseHTML(fullURL, body)
}

// PostForm submits form values and parses the response as HTML.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values) (*goquery.Document, error) {
	body, err := c.do(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}
	return parseHTML(rawURL, body)
}

func parseHTML(rawURL string, body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &vgmerrors.DecodeError{URL: rawURL, Err: err}
	}
	return doc, nil
}

func withQuery(rawURL string, params interface{}) (string, error) {
	fullURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if params != nil {
		v, err := query.Values(params)
		if err != nil {
			return "", fmt.Errorf("failed to encode query parameters: %w", err)
		}
		fullURL.RawQuery = v.Encode()
	}
	return fullURL.String(), nil
}

// do performs the request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, fullURL string, body io.Reader, contentType string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &vgmerrors.NetworkError{URL: fullURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &vgmerrors.NetworkError{URL: fullURL, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &vgmerrors.NetworkError{URL: fullURL, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", fullURL, vgmerrors.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &vgmerrors.NetworkError{URL: fullURL, StatusCode: resp.StatusCode}
	}
	return respBody, nil
}

// jarFunc lets ResetCookies swap the jar under a live http.Client.
type jarFunc struct{ c *Client }

func (j jarFunc) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.c.mu.RLock()
	defer j.c.mu.RUnlock()
	j.c.jar.SetCookies(u, cookies)
}

func (j jarFunc) Cookies(u *url.URL) []*http.Cookie {
	j.c.mu.RLock()
	defer j.c.mu.RUnlock()
	return j.c.jar.Cookies(u)
}
