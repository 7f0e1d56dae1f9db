package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"path"
	"strings"
	"time"
)

// Sentinel errors for document downloads.
var (
	// ErrTooLarge is returned when the document exceeds the size limit.
	ErrTooLarge = errors.New("document: exceeds maximum size")
	// ErrDownloadFailed is returned for network and HTTP status failures.
	ErrDownloadFailed = errors.New("document: download failed")
	// ErrSSRF is returned when the URL resolves to a private network address.
	ErrSSRF = errors.New("document: request to private network denied")
)

// Downloaded is a fetched document.
type Downloaded struct {
	Filename    string
	ContentType string
	Content     []byte
	SHA256      string
}

// DownloaderConfig holds downloader configuration.
type DownloaderConfig struct {
	// Timeout bounds the whole download. Default: 30 seconds.
	Timeout time.Duration
	// MaxBytes caps the document size. Default: 20 MiB.
	MaxBytes int64
	// UserAgent is the User-Agent header.
	UserAgent string
	// AllowPrivateNetworks disables the private address check. Tests only.
	AllowPrivateNetworks bool
}

// Downloader fetches documents referenced by URL, refusing private network
// targets including those reached through redirects.
type Downloader struct {
	client       *http.Client
	maxBytes     int64
	userAgent    string
	allowPrivate bool
	lookup       func(host string) ([]string, error)
}

// NewDownloader creates a Downloader.
func NewDownloader(cfg DownloaderConfig) *Downloader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 20 << 20
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Helixir-ResearchAssistant/1.0"
	}

	d := &Downloader{
		maxBytes:     cfg.MaxBytes,
		userAgent:    cfg.UserAgent,
		allowPrivate: cfg.AllowPrivateNetworks,
		lookup:       net.LookupHost,
	}
	d.client = &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("%w: too many redirects", ErrDownloadFailed)
			}
			return d.checkURL(req.URL)
		},
	}
	return d
}

// Download fetches rawURL.
func (d *Downloader) Download(ctx context.Context, rawURL string) (*Downloaded, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %w", ErrDownloadFailed, err)
	}
	if err := d.checkURL(u); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "application/pdf, text/plain;q=0.9, */*;q=0.5")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrDownloadFailed, resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrDownloadFailed, err)
	}
	if int64(len(content)) > d.maxBytes {
		return nil, fmt.Errorf("%w: exceeded %d bytes", ErrTooLarge, d.maxBytes)
	}

	sum := sha256.Sum256(content)
	return &Downloaded{
		Filename:    filenameFor(resp, u),
		ContentType: resp.Header.Get("Content-Type"),
		Content:     content,
		SHA256:      hex.EncodeToString(sum[:]),
	}, nil
}

// checkURL allows only http(s) URLs whose host resolves to public addresses.
func (d *Downloader) checkURL(u *url.URL) error {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: scheme %q is not allowed", ErrSSRF, u.Scheme)
	}
	if d.allowPrivate {
		return nil
	}

	host := u.Hostname()
	addrs, err := d.lookup(host)
	if err != nil {
		return fmt.Errorf("%w: DNS lookup failed for %s: %w", ErrDownloadFailed, host, err)
	}
	for _, a := range addrs {
		addr, err := netip.ParseAddr(a)
		if err != nil {
			continue
		}
		if isPrivate(addr) {
			return fmt.Errorf("%w: %s resolves to private address %s", ErrSSRF, host, a)
		}
	}
	return nil
}

var privatePrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("fc00::/7"),
}

// isPrivate reports loopback, link-local, unspecified and private-range addresses.
func isPrivate(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsUnspecified() || addr.IsPrivate() {
		return true
	}
	for _, p := range privatePrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func filenameFor(resp *http.Response, u *url.URL) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return params["filename"]
		}
	}
	if base := path.Base(u.Path); base != "." && base != "/" {
		return base
	}
	return "document"
}
