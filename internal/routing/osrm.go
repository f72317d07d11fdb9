// Package routing wraps the external routing provider that supplies route
// geometry. The engine never computes paths itself.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	geopkg "github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/model"
	"github.com/sells-group/saferoute/internal/resilience"
)

// maxRouteBytes limits the routing response size.
const maxRouteBytes = 4 * 1024 * 1024

// Route is one path returned by the provider.
type Route struct {
	Line            *geom.LineString
	DistanceMeters  float64
	DurationSeconds float64
}

// Coordinates returns the route geometry as (lat, lon) pairs.
func (r *Route) Coordinates() []model.Coordinate {
	if r.Line == nil {
		return nil
	}
	n := r.Line.NumCoords()
	coords := make([]model.Coordinate, 0, n)
	for i := 0; i < n; i++ {
		c := r.Line.Coord(i)
		coords = append(coords, model.Coordinate{Lat: c[1], Lon: c[0]})
	}
	return coords
}

// Provider returns route candidates between two points. The first route is
// the fastest; any others are alternatives.
type Provider interface {
	GetRoutes(ctx context.Context, fromLat, fromLon, toLat, toLon float64, mode string) ([]Route, error)
}

// OSRMClient implements Provider against an OSRM HTTP endpoint.
type OSRMClient struct {
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
}

// NewOSRMClient returns a client against the given base URL.
func NewOSRMClient(baseURL string, timeout time.Duration) *OSRMClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OSRMClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		retry:   resilience.DefaultRetryConfig(),
		breaker: resilience.NewBreaker("osrm", resilience.DefaultBreakerConfig()),
	}
}

// profileFor maps a travel mode onto an OSRM profile.
func profileFor(mode string) string {
	switch strings.ToLower(mode) {
	case "cycling", "bike", "bicycle":
		return "bike"
	default:
		return "foot"
	}
}

// osrmResponse is the subset of the OSRM route response we consume.
type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"` // [lon, lat]
		} `json:"geometry"`
	} `json:"routes"`
}

// GetRoutes implements Provider.
func (c *OSRMClient) GetRoutes(ctx context.Context, fromLat, fromLon, toLat, toLon float64, mode string) ([]Route, error) {
	if !geopkg.ValidCoordinate(fromLat, fromLon) || !geopkg.ValidCoordinate(toLat, toLon) {
		return nil, eris.New("routing: invalid endpoint coordinates")
	}

	u := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?alternatives=true&overview=full&geometries=geojson",
		c.baseURL, profileFor(mode), fromLon, fromLat, toLon, toLat)

	body, err := resilience.BreakVal(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
		return resilience.DoVal(ctx, c.retry, "osrm route", func(ctx context.Context) ([]byte, error) {
			return c.fetch(ctx, u)
		})
	})
	if err != nil {
		return nil, err
	}

	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "routing: parse response")
	}
	if parsed.Code != "Ok" {
		return nil, eris.Errorf("routing: provider returned code %q", parsed.Code)
	}
	if len(parsed.Routes) == 0 {
		return nil, eris.New("routing: no routes found")
	}

	routes := make([]Route, 0, len(parsed.Routes))
	for _, r := range parsed.Routes {
		flat := make([]float64, 0, len(r.Geometry.Coordinates)*2)
		for _, pair := range r.Geometry.Coordinates {
			if len(pair) < 2 {
				continue
			}
			flat = append(flat, pair[0], pair[1])
		}
		routes = append(routes, Route{
			Line:            geom.NewLineStringFlat(geom.XY, flat),
			DistanceMeters:  r.Distance,
			DurationSeconds: r.Duration,
		})
	}
	return routes, nil
}

func (c *OSRMClient) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "routing: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "routing: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("routing: status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRouteBytes))
	if err != nil {
		return nil, eris.Wrap(err, "routing: read response")
	}
	return body, nil
}
