package lighting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/resilience"
)

// maxOverpassBytes limits the response size read from Overpass.
const maxOverpassBytes = 8 * 1024 * 1024

// OverpassClient fetches street-lighting features from an Overpass API
// endpoint. Requests are rate limited; Overpass instances throttle
// aggressively.
type OverpassClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
}

// NewOverpassClient returns a client against the given endpoint.
// ratePerSecond bounds request frequency; non-positive means 1 rps.
func NewOverpassClient(baseURL string, timeout time.Duration, ratePerSecond float64) *OverpassClient {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OverpassClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		retry:   resilience.DefaultRetryConfig(),
		breaker: resilience.NewBreaker("overpass", resilience.DefaultBreakerConfig()),
	}
}

// Source implements Provider.
func (c *OverpassClient) Source() string { return "overpass" }

// overpassResponse is the subset of the Overpass JSON output we consume.
type overpassResponse struct {
	Elements []struct {
		Type   string            `json:"type"`
		ID     int64             `json:"id"`
		Lat    float64           `json:"lat"`
		Lon    float64           `json:"lon"`
		Center *struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"center,omitempty"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// QueryFeatures implements Provider. It requests street lamps and lit ways
// within the bounding box and returns them as raw features. While the
// endpoint is down the breaker rejects calls without touching it.
func (c *OverpassClient) QueryFeatures(ctx context.Context, box geo.BBox) ([]RawFeature, error) {
	// Overpass bbox order is (south, west, north, east).
	bbox := fmt.Sprintf("%f,%f,%f,%f", box.MinLat, box.MinLon, box.MaxLat, box.MaxLon)
	query := fmt.Sprintf(`[out:json][timeout:10];
(
  node["highway"="street_lamp"](%[1]s);
  way["lit"](%[1]s);
  node["lit"](%[1]s);
);
out center;`, bbox)

	return resilience.BreakVal(ctx, c.breaker, func(ctx context.Context) ([]RawFeature, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "overpass: rate limit wait")
		}
		return resilience.DoVal(ctx, c.retry, "overpass query", func(ctx context.Context) ([]RawFeature, error) {
			return c.doQuery(ctx, query)
		})
	})
}

func (c *OverpassClient) doQuery(ctx context.Context, query string) ([]RawFeature, error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("overpass: status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOverpassBytes))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: read response")
	}

	var parsed overpassResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "overpass: parse response")
	}

	features := make([]RawFeature, 0, len(parsed.Elements))
	for _, el := range parsed.Elements {
		lat, lon := el.Lat, el.Lon
		if el.Center != nil {
			lat, lon = el.Center.Lat, el.Center.Lon
		}
		if !geo.ValidCoordinate(lat, lon) {
			continue
		}
		features = append(features, RawFeature{
			ID:        el.Type + "/" + strconv.FormatInt(el.ID, 10),
			Latitude:  lat,
			Longitude: lon,
			Tags:      el.Tags,
		})
	}
	return features, nil
}
