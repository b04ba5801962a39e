// Package analytics reads website traffic from the Google Analytics 4 Data API.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/option"

	"social-content-platform/internal/logger"
)

// SiteVisitsTTL is how long a GA4 result is cached.
const SiteVisitsTTL = time.Hour

var ErrNotConfigured = errors.New("google analytics is not configured")

// SiteVisits is the activeUsers count for one GA4 date range.
type SiteVisits struct {
	PropertyID  string    `json:"property_id"`
	DateRange   string    `json:"date_range"`
	ActiveUsers int64     `json:"active_users"`
	FetchedAt   time.Time `json:"fetched_at"`
	Cached      bool      `json:"cached"`
}

func (v *SiteVisits) MarshalBinary() ([]byte, error) {
	return json.Marshal(v)
}

func (v *SiteVisits) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, v)
}

type Client struct {
	svc        *analyticsdata.Service
	propertyID string
}

// NewServiceAccountClient authenticates with a service account email and PEM private key.
func NewServiceAccountClient(ctx context.Context, propertyID, clientEmail, privateKey string) (*Client, error) {
	if propertyID == "" || clientEmail == "" || privateKey == "" {
		return nil, ErrNotConfigured
	}
	conf := &jwt.Config{
		Email:      clientEmail,
		PrivateKey: []byte(privateKey),
		Scopes:     []string{analyticsdata.AnalyticsReadonlyScope},
		TokenURL:   google.JWTTokenURL,
	}
	return NewClient(ctx, propertyID, option.WithHTTPClient(conf.Client(ctx)))
}

func NewClient(ctx context.Context, propertyID string, opts ...option.ClientOption) (*Client, error) {
	svc, err := analyticsdata.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics client: %w", err)
	}
	return &Client{svc: svc, propertyID: propertyID}, nil
}

// YesterdayVisits returns yesterday's activeUsers.
func (c *Client) YesterdayVisits(ctx context.Context) (*SiteVisits, error) {
	req := &analyticsdata.RunReportRequest{
		DateRanges: []*analyticsdata.DateRange{
			{StartDate: "yesterday", EndDate: "yesterday"},
		},
		Metrics: []*analyticsdata.Metric{
			{Name: "activeUsers"},
		},
	}

	resp, err := c.svc.Properties.RunReport("properties/"+c.propertyID, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("run GA4 report: %w", err)
	}

	var active int64
	if len(resp.Rows) > 0 && len(resp.Rows[0].MetricValues) > 0 {
		active, err = strconv.ParseInt(resp.Rows[0].MetricValues[0].Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse activeUsers: %w", err)
		}
	}

	return &SiteVisits{
		PropertyID:  c.propertyID,
		DateRange:   "yesterday",
		ActiveUsers: active,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// VisitsSource is anything that can report yesterday's visits.
type VisitsSource interface {
	YesterdayVisits(ctx context.Context) (*SiteVisits, error)
}

// CachedVisits serves VisitsSource results from Redis for SiteVisitsTTL.
type CachedVisits struct {
	source VisitsSource
	rdb    redis.Cmdable
	key    string
}

func NewCachedVisits(source VisitsSource, rdb redis.Cmdable, propertyID string) *CachedVisits {
	return &CachedVisits{source: source, rdb: rdb, key: "analytics:site_visits:" + propertyID}
}

func (c *CachedVisits) YesterdayVisits(ctx context.Context) (*SiteVisits, error) {
	if c.rdb != nil {
		var cached SiteVisits
		if err := c.rdb.Get(ctx, c.key).Scan(&cached); err == nil {
			cached.Cached = true
			return &cached, nil
		} else if !errors.Is(err, redis.Nil) {
			logger.Warn("Site visits cache read failed", "error", err)
		}
	}

	visits, err := c.source.YesterdayVisits(ctx)
	if err != nil {
		return nil, err
	}

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, c.key, visits, SiteVisitsTTL).Err(); err != nil {
			logger.Warn("Site visits cache write failed", "error", err)
		}
	}
	return visits, nil
}
