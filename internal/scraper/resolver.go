package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrUnresolved is returned when a redirect link cannot be followed to a
// publisher URL.
var ErrUnresolved = errors.New("resolver: redirect not resolved")

const maxRedirectPage = 2 * 1024 * 1024

// Resolver turns aggregator redirect links into final publisher URLs.
type Resolver struct {
	client       *http.Client
	hosts        map[string]bool
	nonPublisher []string
	userAgent    string
	timeout      time.Duration
}

// NewResolver creates a Resolver treating links on redirectHosts as redirects.
// Addresses on nonPublisherHosts, or any subdomain of them, are never
// accepted as a resolution target; neither are the redirect hosts.
func NewResolver(redirectHosts, nonPublisherHosts []string, userAgent string, timeout time.Duration) *Resolver {
	hosts := make(map[string]bool, len(redirectHosts))
	for _, h := range redirectHosts {
		hosts[strings.ToLower(strings.TrimSpace(h))] = true
	}
	var nonPublisher []string
	for _, h := range nonPublisherHosts {
		if h = strings.ToLower(strings.Trim(strings.TrimSpace(h), ".")); h != "" {
			nonPublisher = append(nonPublisher, h)
		}
	}
	return &Resolver{
		client:       &http.Client{},
		hosts:        hosts,
		nonPublisher: nonPublisher,
		userAgent:    userAgent,
		timeout:      timeout,
	}
}

// IsRedirect reports whether link points at a configured redirect host.
func (r *Resolver) IsRedirect(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return r.isRedirectHost(u)
}

// isRedirectHost matches u against the configured hosts, with or without
// port.
func (r *Resolver) isRedirectHost(u *url.URL) bool {
	return r.hosts[strings.ToLower(u.Host)] || r.hosts[strings.ToLower(u.Hostname())]
}

// isPublisher reports whether u may be the article a redirect points to.
func (r *Resolver) isPublisher(u *url.URL) bool {
	if u.Hostname() == "" || r.isRedirectHost(u) {
		return false
	}
	host, name := strings.ToLower(u.Host), strings.ToLower(u.Hostname())
	for _, h := range r.nonPublisher {
		if host == h || name == h || strings.HasSuffix(name, "."+h) {
			return false
		}
	}
	return true
}

// Resolve returns the publisher URL behind link. Links that are not redirects
// are returned unchanged. HTTP redirects are followed first; when the chain
// ends on a non-publisher host the page is searched for a meta refresh or an
// anchor to a publisher.
func (r *Resolver) Resolve(ctx context.Context, link string) (string, error) {
	if !r.IsRedirect(link) {
		return link, nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnresolved, link, err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnresolved, link, err)
	}
	defer resp.Body.Close()

	final := resp.Request.URL
	if r.isPublisher(final) {
		return final.String(), nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s: ended on %s with status %d", ErrUnresolved, link, final.Host, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRedirectPage))
	if err != nil {
		return "", fmt.Errorf("%w: %s: read body: %v", ErrUnresolved, link, err)
	}

	target := r.targetFromPage(final, body)
	if target == "" {
		return "", fmt.Errorf("%w: %s: ended on %s", ErrUnresolved, link, final.Host)
	}
	slog.Debug("resolver: resolved from page", "link", link, "target", target)
	return target, nil
}

// targetFromPage looks for a meta refresh, then the first anchor to a
// publisher host.
func (r *Resolver) targetFromPage(base *url.URL, body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var target string
	doc.Find(`meta[http-equiv]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(s.AttrOr("http-equiv", ""), "refresh") {
			return true
		}
		if u := refreshURL(s.AttrOr("content", "")); u != "" {
			target = r.external(base, u)
		}
		return target == ""
	})
	if target != "" {
		return target
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		target = r.external(base, s.AttrOr("href", ""))
		return target == ""
	})
	return target
}

// external resolves href against base and returns it when it is an http(s)
// URL on a publisher host.
func (r *Resolver) external(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	if !r.isPublisher(abs) {
		return ""
	}
	return abs.String()
}

// refreshURL extracts the url= part of a meta refresh content value such as
// "0;url=https://example.com/a".
func refreshURL(content string) string {
	lower := strings.ToLower(content)
	i := strings.Index(lower, "url=")
	if i < 0 {
		return ""
	}
	return strings.Trim(strings.TrimSpace(content[i+len("url="):]), `'"`)
}
