package hazard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/model"
	"github.com/sells-group/saferoute/internal/resilience"
)

// maxFeedBytes limits the incident feed response size.
const maxFeedBytes = 2 * 1024 * 1024

// TrafficFeedClient implements TrafficProvider against an HTTP incident
// feed returning verified incidents near a point.
type TrafficFeedClient struct {
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
}

// NewTrafficFeedClient returns a client against the given feed URL.
func NewTrafficFeedClient(baseURL string, timeout time.Duration) *TrafficFeedClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TrafficFeedClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		retry:   resilience.DefaultRetryConfig(),
		breaker: resilience.NewBreaker("traffic-feed", resilience.DefaultBreakerConfig()),
	}
}

// feedIncident is one incident as returned by the feed.
type feedIncident struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Type      string  `json:"type"`
	Severity  string  `json:"severity"`
	StartedAt string  `json:"started_at"`
}

// QueryNear implements TrafficProvider.
func (c *TrafficFeedClient) QueryNear(ctx context.Context, lat, lon, radiusM float64) ([]model.HazardReport, error) {
	u := fmt.Sprintf("%s/incidents?lat=%f&lon=%f&radius=%d", c.baseURL, lat, lon, int(radiusM))

	body, err := resilience.BreakVal(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
		return resilience.DoVal(ctx, c.retry, "traffic feed query", func(ctx context.Context) ([]byte, error) {
			return c.fetch(ctx, u)
		})
	})
	if err != nil {
		return nil, err
	}

	var incidents []feedIncident
	if err := json.Unmarshal(body, &incidents); err != nil {
		return nil, eris.Wrap(err, "traffic: parse feed")
	}

	reports := make([]model.HazardReport, 0, len(incidents))
	for _, in := range incidents {
		if !geo.ValidCoordinate(in.Latitude, in.Longitude) {
			continue
		}
		r := model.HazardReport{
			ID:        in.ID,
			Latitude:  in.Latitude,
			Longitude: in.Longitude,
			Type:      strings.ToLower(in.Type),
			Severity:  model.HazardSeverity(strings.ToLower(in.Severity)),
			Source:    model.SourceVerified,
			Status:    "active",
		}
		if t, err := time.Parse(time.RFC3339, in.StartedAt); err == nil {
			r.ReportedAt = t
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (c *TrafficFeedClient) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "traffic: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "traffic: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("traffic: status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, eris.Wrap(err, "traffic: read response")
	}
	return body, nil
}
