// Package httpclient builds the HTTP clients used to reach storefronts.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teranos/htsmatch/errors"
)

// DefaultMaxRedirects caps redirect chains.
const DefaultMaxRedirects = 5

// Options configures New.
type Options struct {
	Timeout      time.Duration
	MaxRedirects int // 0 = DefaultMaxRedirects
}

// New returns a client for talking to baseURL.
//
// TLS verification is skipped only for local development hosts (localhost,
// loopback addresses, *.local and *.localhost), which usually run with
// self-signed certificates. Redirects may not downgrade https to http.
func New(baseURL string, opts Options) (*http.Client, error) {
	u, err := ValidateBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if IsLocalDevHost(u.Hostname()) {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // local dev storefronts only
	}

	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errors.Newf("stopped after %d redirects", maxRedirects)
			}
			if via[0].URL.Scheme == "https" && req.URL.Scheme != "https" {
				return errors.Newf("refusing redirect from https to %s", req.URL.Redacted())
			}
			return nil
		},
	}, nil
}

// ValidateBaseURL parses a storefront URL. Credentials embedded in the URL are
// rejected; they belong in the consumer key and secret.
func ValidateBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "invalid storefront URL %q: %v", raw, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "storefront URL scheme %q not allowed (http, https)", u.Scheme)
	}
	if u.User != nil {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "storefront URL must not embed credentials")
	}
	if u.Hostname() == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "storefront URL missing hostname")
	}
	return u, nil
}

// IsLocalDevHost reports whether hostname is a local development host.
func IsLocalDevHost(hostname string) bool {
	h := strings.ToLower(hostname)
	if h == "localhost" || strings.HasSuffix(h, ".localhost") || strings.HasSuffix(h, ".local") {
		return true
	}
	if ip := net.ParseIP(h); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
