package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"social-content-platform/internal/logger"
	"social-content-platform/internal/telemetry"
	"social-content-platform/utils"
)

// MaxAssetBytes caps a single mirrored download.
const MaxAssetBytes = 20 << 20

var (
	ErrInvalidURL    = errors.New("invalid asset url")
	ErrNotAnImage    = errors.New("remote asset is not an image")
	ErrAssetTooLarge = errors.New("remote asset too large")

	unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// Mirror downloads remote images into a Store. Assets are keyed by the
// basename of the source URL path, so a URL whose name already exists is
// never fetched again.
type Mirror struct {
	store      Store
	httpClient *http.Client
	metrics    *telemetry.Metrics
}

func New(store Store, httpClient *http.Client, metrics *telemetry.Metrics) *Mirror {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Mirror{store: store, httpClient: httpClient, metrics: metrics}
}

// FileName derives the stored asset name from an external URL.
func FileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return "", fmt.Errorf("%w: no file name in %q", ErrInvalidURL, rawURL)
	}
	name := unsafeNameChars.ReplaceAllString(base, "_")
	if name == "" || name[0] == '.' {
		name = "asset" + name
	}
	return name, nil
}

// Mirror returns the stable reference for externalURL, downloading it first if needed.
func (m *Mirror) Mirror(ctx context.Context, externalURL string) (string, error) {
	ctx, span := otel.Tracer("asset-mirror").Start(ctx, "mirror.fetch")
	defer span.End()

	name, err := FileName(externalURL)
	if err != nil {
		m.metrics.RecordMirror(m.store.Backend(), "failed")
		return "", err
	}
	span.SetAttributes(attribute.String("mirror.name", name))

	exists, err := m.store.Exists(ctx, name)
	if err != nil {
		m.metrics.RecordMirror(m.store.Backend(), "failed")
		return "", fmt.Errorf("check asset %s: %w", name, err)
	}
	if exists {
		span.SetAttributes(attribute.Bool("mirror.hit", true))
		m.metrics.RecordMirror(m.store.Backend(), "hit")
		return m.store.URL(name), nil
	}

	if err := m.download(ctx, externalURL, name); err != nil {
		span.RecordError(err)
		m.metrics.RecordMirror(m.store.Backend(), "failed")
		return "", err
	}

	m.metrics.RecordMirror(m.store.Backend(), "stored")
	logger.Debug("Asset mirrored", "name", name, "backend", m.store.Backend())
	return m.store.URL(name), nil
}

func (m *Mirror) download(ctx context.Context, externalURL, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, externalURL, nil)
	if err != nil {
		return err
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch asset: unexpected status %d", resp.StatusCode)
	}

	contentType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !utils.IsValidImageType(contentType) {
		return fmt.Errorf("%w: %q", ErrNotAnImage, resp.Header.Get("Content-Type"))
	}
	if resp.ContentLength > MaxAssetBytes {
		return ErrAssetTooLarge
	}

	body := &capReader{r: resp.Body, remaining: MaxAssetBytes}
	if err := m.store.Save(ctx, name, contentType, body); err != nil {
		return fmt.Errorf("store asset %s: %w", name, err)
	}
	return nil
}

// capReader fails once more than remaining bytes are read.
type capReader struct {
	r         io.Reader
	remaining int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.remaining < 0 {
		return 0, ErrAssetTooLarge
	}
	if int64(len(p)) > c.remaining+1 {
		p = p[:c.remaining+1]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, ErrAssetTooLarge
	}
	return n, err
}
