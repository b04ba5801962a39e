// Package instagram talks to the Instagram Graph API.
package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	mediaFields     = "id,caption,media_type,media_url,permalink,timestamp,like_count,comments_count"
	timestampLayout = "2006-01-02T15:04:05-0700"
	pageLimit       = 25
)

var ErrNoImage = errors.New("an image url is required to publish")

// APIError is a non-2xx response from the Graph API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("instagram graph api %d: %s", e.StatusCode, e.Message)
}

type Config struct {
	GraphURL    string
	FacebookURL string
	PageCap     int
	HTTPClient  *http.Client
	// RequestsPerSecond throttles outgoing calls. Zero means 5/s.
	RequestsPerSecond float64
}

type Client struct {
	graphURL    string
	facebookURL string
	pageCap     int
	httpClient  *http.Client
	limiter     *rate.Limiter
}

func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	pageCap := cfg.PageCap
	if pageCap <= 0 {
		pageCap = 20
	}
	return &Client{
		graphURL:    strings.TrimRight(cfg.GraphURL, "/"),
		facebookURL: strings.TrimRight(cfg.FacebookURL, "/"),
		pageCap:     pageCap,
		httpClient:  hc,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Media is one item from /me/media.
type Media struct {
	ID            string    `json:"id"`
	Caption       string    `json:"caption"`
	MediaType     string    `json:"media_type"`
	MediaURL      string    `json:"media_url"`
	Permalink     string    `json:"permalink"`
	RawTimestamp  string    `json:"timestamp"`
	LikeCount     int       `json:"like_count"`
	CommentsCount int       `json:"comments_count"`
	Timestamp     time.Time `json:"-"`
}

type mediaPage struct {
	Data   []Media `json:"data"`
	Paging struct {
		Next string `json:"next,omitempty"`
	} `json:"paging"`
}

// FetchMedia returns the user's media, following paging.next up to the page cap.
func (c *Client) FetchMedia(ctx context.Context, accessToken string) ([]Media, error) {
	q := url.Values{}
	q.Set("fields", mediaFields)
	q.Set("limit", fmt.Sprint(pageLimit))
	q.Set("access_token", accessToken)
	next := c.graphURL + "/me/media?" + q.Encode()

	var all []Media
	seen := make(map[string]struct{})
	for page := 0; page < c.pageCap && next != ""; page++ {
		var p mediaPage
		if err := c.do(ctx, http.MethodGet, next, nil, &p); err != nil {
			return nil, err
		}
		if len(p.Data) == 0 {
			break
		}
		for _, m := range p.Data {
			if m.ID == "" {
				continue
			}
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			if ts, err := time.Parse(timestampLayout, m.RawTimestamp); err == nil {
				m.Timestamp = ts
			}
			all = append(all, m)
		}
		next = p.Paging.Next
	}
	return all, nil
}

// Publish creates an image container for igUserID and publishes it.
// It returns the published media id.
func (c *Client) Publish(ctx context.Context, igUserID, accessToken, imageURL, caption string) (string, error) {
	if imageURL == "" {
		return "", ErrNoImage
	}

	create := url.Values{}
	create.Set("image_url", imageURL)
	create.Set("caption", caption)
	create.Set("access_token", accessToken)

	var container struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, c.facebookURL+"/"+url.PathEscape(igUserID)+"/media", create, &container); err != nil {
		return "", fmt.Errorf("create media container: %w", err)
	}

	publish := url.Values{}
	publish.Set("creation_id", container.ID)
	publish.Set("access_token", accessToken)

	var published struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, c.facebookURL+"/"+url.PathEscape(igUserID)+"/media_publish", publish, &published); err != nil {
		return "", fmt.Errorf("publish media: %w", err)
	}
	return published.ID, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, form url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: graphErrorMessage(data)}
	}
	return json.Unmarshal(data, out)
}

func graphErrorMessage(data []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return strings.TrimSpace(string(data))
}
