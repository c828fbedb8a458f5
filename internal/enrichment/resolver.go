package enrichment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultResolveTimeout = 5 * time.Second
	DefaultMaxRedirects   = 5
	maxCanonicalBody      = 2 << 20
	userAgent             = "prodscout/1.0 (+https://github.com/Keyring-Network/prodscout)"
)

type ResolverConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	// UseCanonical refines the final URL with a same-host
	// <link rel="canonical"> from the landing page.
	UseCanonical bool
	Transport    http.RoundTripper
}

// Resolver follows a website's redirects to the address a browser would land
// on.
type Resolver struct {
	client       *http.Client
	useCanonical bool
}

func NewResolver(cfg ResolverConfig) *Resolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: cfg.Transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	return &Resolver{client: client, useCanonical: cfg.UseCanonical}
}

func (r *Resolver) Resolve(ctx context.Context, website string) (string, error) {
	target, err := parseWebsite(website)
	if err != nil {
		return "", &SiteUnavailableError{URL: website, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", &SiteUnavailableError{URL: website, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", &SiteUnavailableError{URL: website, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", &SiteUnavailableError{URL: website, StatusCode: resp.StatusCode}
	}

	final := resp.Request.URL
	if r.useCanonical && isHTML(resp.Header.Get("Content-Type")) {
		if canonical, ok := canonicalLink(resp.Body, final); ok {
			return canonical.String(), nil
		}
	}
	return final.String(), nil
}

func parseWebsite(website string) (*url.URL, error) {
	website = strings.TrimSpace(website)
	if website == "" {
		return nil, errors.New("website is empty")
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	parsed, err := url.Parse(website)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("website has no host")
	}
	return parsed, nil
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// canonicalLink returns the page's canonical URL when it stays on the host the
// redirects ended on.
func canonicalLink(body io.Reader, base *url.URL) (*url.URL, bool) {
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, maxCanonicalBody))
	if err != nil {
		return nil, false
	}
	href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return nil, false
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, false
	}
	canonical := base.ResolveReference(ref)
	if canonical.Scheme != "http" && canonical.Scheme != "https" {
		return nil, false
	}
	if !strings.EqualFold(canonical.Hostname(), base.Hostname()) {
		return nil, false
	}
	return canonical, true
}
