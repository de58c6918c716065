// Package importer loads documents from a URL, a local file, a directory
// or a base64 payload and injects them into the workspace.
package importer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Shurtu-gal/studio/internal/scanner"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/singleflight"
)

var log = commonlog.GetLogger("studio.importer")

var (
	ErrTooLarge = errors.New("importer: document too large")
	ErrEmpty    = errors.New("importer: document is empty")
	ErrStatus   = errors.New("importer: unexpected response status")
)

// DefaultMaxSize bounds a single imported document.
const DefaultMaxSize = 8 << 20

// InjectFunc stores imported content under id.
type InjectFunc func(ctx context.Context, id, content, language string) error

type Result struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Size     int    `json:"size"`
}

// Doer sends HTTP requests. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Importer struct {
	client  Doer
	maxSize int64
	inject  InjectFunc
	group   singleflight.Group
}

// New creates an importer. A nil client uses http.DefaultClient and a
// non-positive maxSize uses DefaultMaxSize.
func New(client Doer, maxSize int64, inject InjectFunc) *Importer {
	if client == nil {
		client = http.DefaultClient
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Importer{client: client, maxSize: maxSize, inject: inject}
}

// FetchTimeout bounds a shared fetch independently of its callers.
const FetchTimeout = 30 * time.Second

// FromURL fetches rawURL. Concurrent fetches of the same URL share one
// request; a caller giving up does not cancel it for the others.
func (i *Importer) FromURL(ctx context.Context, id, rawURL string) (Result, error) {
	ch := i.group.DoChan(rawURL, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FetchTimeout)
		defer cancel()
		return i.fetch(fetchCtx, rawURL)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return Result{}, fmt.Errorf("import of %s abandoned: %w", rawURL, ctx.Err())
	}
	if res.Err != nil {
		return Result{}, res.Err
	}
	if res.Shared {
		log.Debugf("shared fetch of %s", rawURL)
	}
	content := res.Val.(string)
	if id == "" {
		id = path.Base(rawURL)
	}
	return i.finish(ctx, id, content, path.Ext(rawURL))
}

func (i *Importer) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", rawURL, err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s returned %d", ErrStatus, rawURL, resp.StatusCode)
	}
	return i.read(resp.Body)
}

// FromFile reads a local file.
func (i *Importer) FromFile(ctx context.Context, id, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	content, err := i.read(f)
	if err != nil {
		return Result{}, err
	}
	if id == "" {
		id = filepath.Base(path)
	}
	return i.finish(ctx, id, content, filepath.Ext(path))
}

// FromBase64 decodes a standard or URL-safe base64 payload.
func (i *Importer) FromBase64(ctx context.Context, id, encoded string) (Result, error) {
	encoded = strings.TrimSpace(encoded)
	if int64(base64.StdEncoding.DecodedLen(len(encoded))) > i.maxSize {
		return Result{}, ErrTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		var urlErr error
		data, urlErr = base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if urlErr != nil {
			return Result{}, fmt.Errorf("failed to decode base64 document: %w", err)
		}
	}
	if id == "" {
		return Result{}, errors.New("importer: base64 import needs an id")
	}
	return i.finish(ctx, id, string(data), path.Ext(id))
}

// FromDir imports every JSON and YAML document under root. Ids are the
// slash-separated paths relative to root, prefixed with prefix.
func (i *Importer) FromDir(ctx context.Context, prefix, root string) ([]Result, error) {
	var (
		mu      sync.Mutex
		results []Result
		errs    []error
	)
	skip := func(p string, info fs.FileInfo) bool {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".json", ".yaml", ".yml":
		default:
			return true
		}
		if info.Size() > i.maxSize {
			mu.Lock()
			errs = append(errs, fmt.Errorf("%w: %s", ErrTooLarge, p))
			mu.Unlock()
			return true
		}
		return false
	}
	err := scanner.Scan(ctx, root, skip, func(p string, document []byte) {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = filepath.Base(p)
		}
		id := path.Join(prefix, filepath.ToSlash(rel))
		result, err := i.finish(ctx, id, string(document), filepath.Ext(p))
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			return
		}
		results = append(results, result)
	})
	if err != nil {
		return results, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return results, errors.Join(errs...)
}

func (i *Importer) read(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, i.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	if int64(len(data)) > i.maxSize {
		return "", ErrTooLarge
	}
	return string(data), nil
}

func (i *Importer) finish(ctx context.Context, id, content, ext string) (Result, error) {
	if strings.TrimSpace(content) == "" {
		return Result{}, ErrEmpty
	}
	language := DetectLanguage(content, ext)
	if i.inject != nil {
		if err := i.inject(ctx, id, content, language); err != nil {
			return Result{}, fmt.Errorf("failed to inject %s: %w", id, err)
		}
	}
	log.Infof("imported %s (%s, %d bytes)", id, language, len(content))
	return Result{ID: id, Language: language, Size: len(content)}, nil
}

// DetectLanguage prefers the file extension and falls back to sniffing the
// first significant character.
func DetectLanguage(content, ext string) string {
	switch strings.ToLower(ext) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return "json"
	}
	return "yaml"
}
