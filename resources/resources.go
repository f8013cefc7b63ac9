// Package resources loads the external bytes a template points at: font
// files and images given as file paths, data: URIs or http(s) URLs.
package resources

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Category string

const (
	CategoryFont  Category = "font"
	CategoryImage Category = "image"
)

// Loader fetches the bytes behind a source identifier.
type Loader interface {
	Load(ctx context.Context, category Category, src string) ([]byte, error)
}

// LoadError reports a source that could not be loaded. Loads are never
// retried.
type LoadError struct {
	Category Category
	Source   string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s %s: %v", e.Category, shorten(e.Source), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func shorten(src string) string {
	if strings.HasPrefix(src, "data:") && len(src) > 48 {
		return src[:45] + "..."
	}
	return src
}

// MaxRemoteSize bounds an http(s) download.
const MaxRemoteSize = 32 << 20

// SourceLoader is the default Loader. Relative paths resolve against BaseDir.
type SourceLoader struct {
	BaseDir string
	Client  *http.Client
}

func (l *SourceLoader) Load(ctx context.Context, category Category, src string) ([]byte, error) {
	data, err := l.load(ctx, src)
	if err != nil {
		return nil, &LoadError{Category: category, Source: src, Err: err}
	}
	return data, nil
}

func (l *SourceLoader) load(ctx context.Context, src string) ([]byte, error) {
	switch {
	case src == "":
		return nil, fmt.Errorf("empty source")
	case strings.HasPrefix(src, "data:"):
		return decodeDataURI(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return l.fetch(ctx, src)
	}
	path := strings.TrimPrefix(src, "file://")
	if !filepath.IsAbs(path) && l.BaseDir != "" {
		path = filepath.Join(l.BaseDir, path)
	}
	return os.ReadFile(path)
}

func (l *SourceLoader) fetch(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxRemoteSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxRemoteSize {
		return nil, fmt.Errorf("response exceeds %d bytes", MaxRemoteSize)
	}
	return data, nil
}

// decodeDataURI handles data:[<mediatype>][;base64],<data>.
func decodeDataURI(src string) ([]byte, error) {
	comma := strings.IndexByte(src, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URI")
	}
	meta, payload := src[len("data:"):comma], src[comma+1:]
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some producers strip padding.
			if data, err2 := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err2 == nil {
				return data, nil
			}
			return nil, fmt.Errorf("data URI: %w", err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data URI: %w", err)
	}
	return []byte(s), nil
}

// Cached wraps a Loader so each source is fetched at most once per
// instance. Failures are not cached.
type Cached struct {
	next Loader
	mu   sync.Mutex
	data map[string][]byte
}

func NewCached(next Loader) *Cached {
	return &Cached{next: next, data: make(map[string][]byte)}
}

func (c *Cached) Load(ctx context.Context, category Category, src string) ([]byte, error) {
	c.mu.Lock()
	if b, ok := c.data[src]; ok {
		c.mu.Unlock()
		return b, nil
	}
	c.mu.Unlock()
	b, err := c.next.Load(ctx, category, src)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.data[src] = b
	c.mu.Unlock()
	return b, nil
}
