package gateway

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

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"

	"eld_trip_planner/internal/geometry"
	"eld_trip_planner/internal/obs"
)

// Mapbox talks to the Mapbox Directions and Search Box APIs.
type Mapbox struct {
	accessToken string
	baseURL     string
	profile     string
	httpClient  *http.Client
}

func NewMapbox(accessToken string) (*Mapbox, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, fmt.Errorf("mapbox: access token is empty")
	}
	return &Mapbox{
		accessToken: accessToken,
		baseURL:     "https://api.mapbox.com",
		profile:     "mapbox/driving",
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// WithBaseURL points the client at another host, e.g. a test server.
func (m *Mapbox) WithBaseURL(u string) *Mapbox {
	m.baseURL = strings.TrimRight(u, "/")
	return m
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

type mapboxDirections struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64         `json:"distance"`
		Duration float64         `json:"duration"`
		Geometry json.RawMessage `json:"geometry"`
		Legs     []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

func (m *Mapbox) Directions(ctx context.Context, waypoints []geometry.Point) (_ *Route, err error) {
	defer obs.Time(ctx, "mapbox.Directions")(&err)

	if len(waypoints) < 2 {
		return nil, fmt.Errorf("mapbox directions: need at least 2 waypoints: %w", ErrNoRouteFound)
	}

	coords := make([]string, 0, len(waypoints))
	for _, p := range waypoints {
		coords = append(coords, formatCoord(p.Lon)+","+formatCoord(p.Lat))
	}

	q := url.Values{}
	q.Set("access_token", m.accessToken)
	q.Set("geometries", "geojson")
	q.Set("overview", "full")
	q.Set("steps", "false")
	q.Set("exclude", "toll,ferry")
	endpoint := fmt.Sprintf("%s/directions/v5/%s/%s?%s", m.baseURL, m.profile, strings.Join(coords, ";"), q.Encode())

	var decoded mapboxDirections
	if err := m.getJSON(ctx, endpoint, &decoded); err != nil {
		return nil, fmt.Errorf("mapbox directions: %w", err)
	}
	if len(decoded.Routes) == 0 {
		return nil, fmt.Errorf("mapbox directions: code %q: %w", decoded.Code, ErrNoRouteFound)
	}

	best := decoded.Routes[0]
	var g geom.T
	if err := gjson.Unmarshal(best.Geometry, &g); err != nil {
		return nil, fmt.Errorf("mapbox directions: decode geometry: %w", err)
	}
	line, ok := g.(*geom.LineString)
	if !ok || line.NumCoords() == 0 {
		return nil, fmt.Errorf("mapbox directions: geometry is %T: %w", g, ErrNoRouteFound)
	}

	route := &Route{
		Geometry: line,
		Distance: MetersToMiles(best.Distance),
		Duration: SecondsToHours(best.Duration),
	}
	for _, leg := range best.Legs {
		route.Legs = append(route.Legs, Leg{
			Distance: MetersToMiles(leg.Distance),
			Duration: SecondsToHours(leg.Duration),
		})
	}
	return route, nil
}

func (m *Mapbox) PointsOfInterest(ctx context.Context, category string, near geometry.Point) (_ []Place, err error) {
	defer obs.Time(ctx, "mapbox.PointsOfInterest")(&err)

	q := url.Values{}
	q.Set("access_token", m.accessToken)
	q.Set("proximity", formatCoord(near.Lon)+","+formatCoord(near.Lat))
	q.Set("limit", "5")
	endpoint := fmt.Sprintf("%s/search/searchbox/v1/category/%s?%s", m.baseURL, url.PathEscape(category), q.Encode())

	var fc gjson.FeatureCollection
	if err := m.getJSON(ctx, endpoint, &fc); err != nil {
		return nil, fmt.Errorf("mapbox category search %q: %w", category, err)
	}

	places := make([]Place, 0, len(fc.Features))
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(*geom.Point)
		if !ok {
			continue
		}
		name, _ := f.Properties["name"].(string)
		places = append(places, Place{Name: name, Location: geometry.FromCoord(pt.Coords())})
	}
	return places, nil
}

func (m *Mapbox) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		// Mapbox answers 422 / 404 with NoRoute or NoSegment when waypoints cannot be joined.
		if resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %w", ErrNoRouteFound, statusErr)
		}
		return fmt.Errorf("%w: %w", ErrGatewayUnavailable, statusErr)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrGatewayUnavailable, err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
