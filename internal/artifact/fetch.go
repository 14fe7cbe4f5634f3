package artifact

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultMaxFetchBytes bounds remote image downloads.
const DefaultMaxFetchBytes int64 = 20 << 20

var storeSchemes = []string{"r2://", "s3://", "gs://"}

// Fetcher resolves image references into bytes. References that name an
// object in the Store are read from it; other http(s) URLs are downloaded.
type Fetcher struct {
	store      Store
	publicBase string
	client     *http.Client
	maxBytes   int64
}

type FetcherOption func(*Fetcher)

func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

func WithMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) { f.maxBytes = n }
}

// NewFetcher reads through store. An empty publicBase falls back to the
// store's own, so refs returned by Put always resolve back to the store.
func NewFetcher(store Store, publicBase string, opts ...FetcherOption) *Fetcher {
	if strings.TrimSpace(publicBase) == "" && store != nil {
		publicBase = store.PublicBase()
	}
	f := &Fetcher{
		store:      store,
		publicBase: strings.TrimRight(strings.TrimSpace(publicBase), "/"),
		client:     &http.Client{Timeout: 30 * time.Second},
		maxBytes:   DefaultMaxFetchBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// StoreKey reports the store key named by ref, if ref points into the store.
func (f *Fetcher) StoreKey(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	for _, scheme := range storeSchemes {
		if strings.HasPrefix(ref, scheme) {
			return strings.TrimLeft(strings.TrimPrefix(ref, scheme), "/"), true
		}
	}
	if strings.HasPrefix(ref, ServePrefix) {
		return strings.TrimPrefix(ref, ServePrefix), true
	}
	if f.publicBase != "" && strings.HasPrefix(ref, f.publicBase+"/") {
		return strings.TrimPrefix(ref, f.publicBase+"/"), true
	}
	if u, err := url.Parse(ref); err == nil && u.IsAbs() && strings.HasPrefix(u.Path, ServePrefix) {
		return strings.TrimPrefix(u.Path, ServePrefix), true
	}
	return "", false
}

// Fetch returns the bytes and MIME type named by ref. The MIME type is the
// stored or served content type, then the extension, then image/jpeg.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (*Object, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("artifact: empty image reference")
	}

	if key, ok := f.StoreKey(ref); ok {
		obj, found, err := f.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load %q: %w", key, err)
		}
		if found {
			return withMime(obj, key), nil
		}
		if !isHTTP(ref) {
			return nil, fmt.Errorf("load %q: %w", key, ErrNotFound)
		}
	}

	if !isHTTP(ref) {
		return nil, fmt.Errorf("artifact: unsupported image reference %q", ref)
	}
	return f.download(ctx, ref)
}

func (f *Fetcher) download(ctx context.Context, ref string) (*Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch image %s: status %d", ref, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("fetch image %s: larger than %d bytes", ref, f.maxBytes)
	}

	ct := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	return withMime(&Object{Data: data, ContentType: ct}, req.URL.Path), nil
}

func withMime(obj *Object, key string) *Object {
	ct := obj.ContentType
	if !strings.HasPrefix(ct, "image/") {
		ct = ContentTypeForKey(key)
	}
	if ct == "" {
		ct = "image/jpeg"
	}
	return &Object{Data: obj.Data, ContentType: ct}
}

func isHTTP(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
