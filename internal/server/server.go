// Package server exposes the scoring engine over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/model"
	"github.com/sells-group/saferoute/internal/routing"
	"github.com/sells-group/saferoute/internal/safety"
)

// Server handles the safety-scoring HTTP API.
type Server struct {
	engine *safety.Engine
	router routing.Provider // nil disables /v1/route/safest
}

// New returns a Server over the engine. router may be nil.
func New(engine *safety.Engine, router routing.Provider) *Server {
	return &Server{engine: engine, router: router}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/safety", s.handleSafety)
		r.Get("/hazards", s.handleHazards)
		r.Get("/lighting", s.handleLighting)
		r.Post("/route/score", s.handleRouteScore)
		r.Get("/route/safest", s.handleSafestRoute)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"cells":  s.engine.Snapshot().Len(),
	})
}

func (s *Server) handleSafety(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := latLonParams(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.ResolveSafety(lat, lon))
}

func (s *Server) handleHazards(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := latLonParams(w, r)
	if !ok {
		return
	}
	radius := floatParam(r, "radius", 0)
	writeJSON(w, http.StatusOK, map[string]float64{
		"hazard_density": s.engine.HazardDensity(r.Context(), lat, lon, radius),
	})
}

func (s *Server) handleLighting(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := latLonParams(w, r)
	if !ok {
		return
	}
	radius := floatParam(r, "radius", 0)
	writeJSON(w, http.StatusOK, map[string]float64{
		"lighting_index": s.engine.LightingIndex(r.Context(), lat, lon, radius),
	})
}

// routeScoreRequest is the body for POST /v1/route/score.
type routeScoreRequest struct {
	Coordinates []model.Coordinate `json:"coordinates"`
}

func (s *Server) handleRouteScore(w http.ResponseWriter, r *http.Request) {
	var req routeScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, c := range req.Coordinates {
		if !geo.ValidCoordinate(c.Lat, c.Lon) {
			writeError(w, http.StatusBadRequest, "invalid coordinate in route")
			return
		}
	}
	writeJSON(w, http.StatusOK, s.engine.ScoreRoute(req.Coordinates))
}

// safestRouteResponse pairs the provider's fastest route with the safest
// scored candidate.
type safestRouteResponse struct {
	Comparison      safety.RouteComparison `json:"comparison"`
	DistanceMeters  float64                `json:"distance_meters"`
	DurationSeconds float64                `json:"duration_seconds"`
}

func (s *Server) handleSafestRoute(w http.ResponseWriter, r *http.Request) {
	if s.router == nil {
		writeError(w, http.StatusServiceUnavailable, "routing provider not configured")
		return
	}

	fromLat := floatParam(r, "from_lat", 0)
	fromLon := floatParam(r, "from_lon", 0)
	toLat := floatParam(r, "to_lat", 0)
	toLon := floatParam(r, "to_lon", 0)
	if !geo.ValidCoordinate(fromLat, fromLon) || !geo.ValidCoordinate(toLat, toLon) {
		writeError(w, http.StatusBadRequest, "from_lat/from_lon/to_lat/to_lon are required")
		return
	}
	mode := r.URL.Query().Get("mode")

	routes, err := s.router.GetRoutes(r.Context(), fromLat, fromLon, toLat, toLon, mode)
	if err != nil {
		zap.L().Error("routing provider failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "routing provider failed")
		return
	}

	baseline := routes[0]
	candidates := make([][]model.Coordinate, 0, len(routes)-1)
	for _, alt := range routes[1:] {
		candidates = append(candidates, alt.Coordinates())
	}

	writeJSON(w, http.StatusOK, safestRouteResponse{
		Comparison:      s.engine.CompareRoutes(baseline.Coordinates(), candidates),
		DistanceMeters:  baseline.DistanceMeters,
		DurationSeconds: baseline.DurationSeconds,
	})
}

func latLonParams(w http.ResponseWriter, r *http.Request) (float64, float64, bool) {
	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")
	lat, err1 := strconv.ParseFloat(latStr, 64)
	lon, err2 := strconv.ParseFloat(lonStr, 64)
	if err1 != nil || err2 != nil || !geo.ValidCoordinate(lat, lon) {
		writeError(w, http.StatusBadRequest, "valid lat and lon query params are required")
		return 0, 0, false
	}
	return lat, lon, true
}

func floatParam(r *http.Request, name string, fallback float64) float64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
