// Package scraper fetches web pages and reduces them to the readable text the
// extraction flows run on.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/intelligrit/wingstack/internal/metrics"
)

const maxPageBytes = 4 << 20

// Page is the readable content of one fetched URL.
type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Fetcher downloads pages over HTTP, one request at a time per limiter token.
type Fetcher struct {
	Client  *http.Client
	Limiter *RateLimiter
}

// ErrBlockedAddress is returned when a page resolves to a loopback, private,
// link-local or otherwise non-public address.
var ErrBlockedAddress = errors.New("address is not publicly routable")

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// NewFetcher creates a Fetcher allowing rps requests per second with the given
// per-request timeout. Its client only connects to public addresses, checked
// after DNS resolution and again on every redirect.
func NewFetcher(rps float64, timeout time.Duration) *Fetcher {
	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: publicOnly}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &Fetcher{
		Client:  &http.Client{Timeout: timeout, Transport: transport},
		Limiter: NewRateLimiter(rps),
	}
}

func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	if !IsPublicAddr(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, ip)
	}
	return nil
}

// IsPublicAddr reports whether ip may be fetched.
func IsPublicAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	switch {
	case !ip.IsValid(), ip.IsUnspecified(), ip.IsLoopback(), ip.IsPrivate(),
		ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(), ip.IsMulticast(),
		ip.IsInterfaceLocalMulticast(), sharedAddressSpace.Contains(ip):
		return false
	}
	return true
}

// Fetch downloads rawURL and extracts its readable text. Only http and https
// URLs are accepted.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("unsupported URL %q", rawURL)
	}

	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "wingstack/1.0 (+trip-extraction)")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		metrics.PagesFetched.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.PagesFetched.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		metrics.PagesFetched.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("parsing page HTML: %w", err)
	}

	metrics.PagesFetched.WithLabelValues("ok").Inc()
	return &Page{
		URL:   u.String(),
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Text:  ExtractReadableText(doc),
	}, nil
}

// noise is removed before text is collected.
const noise = "script, style, noscript, template, svg, nav, header, footer, aside, form, iframe"

// blocks are the elements whose text becomes one paragraph each.
const blocks = "h1, h2, h3, h4, h5, h6, p, li, td, th, pre, blockquote, dt, dd"

// ExtractReadableText pulls paragraph text from doc. The first article or main
// element is preferred over the whole body; pages without block elements fall
// back to the body's collapsed text.
func ExtractReadableText(doc *goquery.Document) string {
	doc.Find(noise).Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var paragraphs []string
	root.Find(blocks).Each(func(_ int, s *goquery.Selection) {
		// Nested blocks (a p inside an li) are collected by the outer one.
		if s.ParentsFiltered(blocks).Length() > 0 {
			return
		}
		text := collapse(s.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	if len(paragraphs) == 0 {
		return collapse(root.Text())
	}
	return strings.Join(paragraphs, "\n\n")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
