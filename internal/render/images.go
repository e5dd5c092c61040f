package render

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "golang.org/x/image/webp"
)

// MaxImageBytes bounds a single fetched or decoded image payload.
const MaxImageBytes = 10 << 20

// MaxImagePixels bounds the decoded size of a single source image.
const MaxImagePixels = 24 << 20

const (
	defaultCacheSize    = 64
	defaultFetchTimeout = 15 * time.Second
	maxRedirects        = 3
)

var (
	// ErrUnsupportedSource is returned for image sources that are neither data nor http(s).
	ErrUnsupportedSource = errors.New("render: unsupported image source")
	// ErrCrossOrigin is returned when a remote image does not opt in to shared access.
	ErrCrossOrigin = errors.New("render: remote image is not shareable")
	// ErrHostNotAllowed is returned when a remote image lives outside the allowed hosts.
	ErrHostNotAllowed = errors.New("render: image host not allowed")
	// ErrNonPublicAddress is returned when a remote image resolves to a
	// loopback, private, or link-local address.
	ErrNonPublicAddress = errors.New("render: image host resolves to a non-public address")
	// ErrImageTooLarge is returned when a source image exceeds MaxImageBytes or MaxImagePixels.
	ErrImageTooLarge = errors.New("render: image too large")
)

// LoadError reports which image source failed to load.
type LoadError struct {
	Src string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("render: load image %s: %v", truncateSrc(e.Src), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ImageLoader resolves node image sources into decoded images.
type ImageLoader interface {
	Load(ctx context.Context, src string) (image.Image, error)
}

// HTTPDoer is the subset of *http.Client the loader needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// LoaderOption customises a Loader.
type LoaderOption func(*Loader)

// WithHTTPClient overrides the client used for remote images. The client
// replaces the default public-address guard.
func WithHTTPClient(client HTTPDoer) LoaderOption {
	return func(l *Loader) {
		if client != nil {
			l.client = client
		}
	}
}

// WithOrigin sets the Origin header sent with remote requests. Responses must
// allow this origin or "*".
func WithOrigin(origin string) LoaderOption {
	return func(l *Loader) {
		l.origin = strings.TrimSpace(origin)
	}
}

// WithAllowedHosts limits remote images to the given host names. Matching is
// case-insensitive and exact; an empty list allows any public host.
func WithAllowedHosts(hosts ...string) LoaderOption {
	return func(l *Loader) {
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				if l.allowed == nil {
					l.allowed = make(map[string]struct{})
				}
				l.allowed[h] = struct{}{}
			}
		}
	}
}

// WithCacheSize bounds how many decoded images the loader keeps.
func WithCacheSize(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.cacheSize = n
		}
	}
}

// Loader decodes data URIs and fetches http(s) images that opted in to
// cross-origin reads. Decoded images are kept in a bounded LRU keyed by the
// source digest.
type Loader struct {
	client    HTTPDoer
	origin    string
	allowed   map[string]struct{}
	cacheSize int
	cache     *lru.Cache[string, image.Image]
}

// NewLoader constructs a loader. Without WithHTTPClient, remote fetches only
// dial public unicast addresses.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{cacheSize: defaultCacheSize}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.client == nil {
		l.client = newPublicClient()
	}
	// lru.New only fails for a non-positive size.
	l.cache, _ = lru.New[string, image.Image](l.cacheSize)
	return l
}

// Load implements ImageLoader.
func (l *Loader) Load(ctx context.Context, src string) (image.Image, error) {
	src = strings.TrimSpace(src)
	key := sourceKey(src)
	if img, ok := l.cache.Get(key); ok {
		return img, nil
	}

	var (
		img image.Image
		err error
	)
	switch {
	case strings.HasPrefix(src, "data:"):
		img, err = decodeDataURI(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		img, err = l.fetch(ctx, src)
	default:
		err = ErrUnsupportedSource
	}
	if err != nil {
		return nil, &LoadError{Src: src, Err: err}
	}

	l.cache.Add(key, img)
	return img, nil
}

// Cached reports how many decoded images the loader holds.
func (l *Loader) Cached() int { return l.cache.Len() }

func (l *Loader) fetch(ctx context.Context, src string) (image.Image, error) {
	u, err := url.Parse(src)
	if err != nil {
		return nil, err
	}
	if len(l.allowed) > 0 {
		if _, ok := l.allowed[strings.ToLower(u.Hostname())]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if l.origin != "" {
		req.Header.Set("Origin", l.origin)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	allow := strings.TrimSpace(resp.Header.Get("Access-Control-Allow-Origin"))
	if allow != "*" && (allow == "" || allow != l.origin) {
		return nil, ErrCrossOrigin
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > MaxImageBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrImageTooLarge, MaxImageBytes)
	}
	return decodeBounded(body)
}

// newPublicClient returns a client whose dialer refuses loopback, private,
// link-local, and other non-public addresses. The check runs on the resolved
// address, so it also covers redirects and DNS names pointing inward.
func newPublicClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: 5 * time.Second,
		Control: func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			ip, err := netip.ParseAddr(host)
			if err != nil {
				return err
			}
			if !IsPublicAddr(ip) {
				return fmt.Errorf("%w: %s", ErrNonPublicAddress, ip)
			}
			return nil
		},
	}
	return &http.Client{
		Timeout: defaultFetchTimeout,
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			MaxIdleConns:          16,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errors.New("too many redirects")
			}
			return nil
		},
	}
}

var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// IsPublicAddr reports whether ip is a globally routable unicast address.
func IsPublicAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	if !ip.IsValid() || !ip.IsGlobalUnicast() {
		return false
	}
	return !ip.IsPrivate() && !ip.IsLoopback() && !ip.IsLinkLocalUnicast() && !sharedAddressSpace.Contains(ip)
}

func sourceKey(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

func decodeBounded(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > MaxImagePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// DecodeDataURI decodes a base64 data URI payload into raw bytes and its media type.
func DecodeDataURI(src string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(src, "data:")
	if !ok {
		return nil, "", ErrUnsupportedSource
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.New("malformed data uri")
	}
	mediaType, _, _ := strings.Cut(meta, ";")
	if !strings.HasSuffix(meta, ";base64") {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", err
		}
		return []byte(decoded), mediaType, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", fmt.Errorf("decode base64: %w", err)
		}
	}
	if len(data) > MaxImageBytes {
		return nil, "", fmt.Errorf("%w: exceeds %d bytes", ErrImageTooLarge, MaxImageBytes)
	}
	return data, mediaType, nil
}

func decodeDataURI(src string) (image.Image, error) {
	data, _, err := DecodeDataURI(src)
	if err != nil {
		return nil, err
	}
	return decodeBounded(data)
}

func truncateSrc(src string) string {
	if len(src) > 64 {
		return src[:64] + "..."
	}
	return src
}
