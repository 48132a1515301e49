package gateway

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"eld_trip_planner/internal/geometry"
	"eld_trip_planner/internal/obs"
)

// Google routes through the Google Maps Directions and Places APIs.
type Google struct {
	client *maps.Client
}

func NewGoogle(apiKey string, opts ...maps.ClientOption) (*Google, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("google maps: api key is empty")
	}
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}
	return &Google{client: client}, nil
}

func (g *Google) Directions(ctx context.Context, waypoints []geometry.Point) (_ *Route, err error) {
	defer obs.Time(ctx, "google.Directions")(&err)

	if len(waypoints) < 2 {
		return nil, fmt.Errorf("google directions: need at least 2 waypoints: %w", ErrNoRouteFound)
	}

	req := &maps.DirectionsRequest{
		Origin:      latLng(waypoints[0]),
		Destination: latLng(waypoints[len(waypoints)-1]),
		Mode:        maps.TravelModeDriving,
		Avoid:       []maps.Avoid{maps.AvoidTolls, maps.AvoidFerries},
	}
	for _, p := range waypoints[1 : len(waypoints)-1] {
		req.Waypoints = append(req.Waypoints, latLng(p))
	}

	routes, _, err := g.client.Directions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("google directions: %w", classifyGoogleError(err))
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("google directions: %w", ErrNoRouteFound)
	}

	best := routes[0]
	path, err := best.OverviewPolyline.Decode()
	if err != nil {
		return nil, fmt.Errorf("google directions: decode polyline: %w", err)
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("google directions: empty polyline: %w", ErrNoRouteFound)
	}

	points := make([]geometry.Point, 0, len(path))
	for _, ll := range path {
		points = append(points, geometry.Point{Lon: ll.Lng, Lat: ll.Lat})
	}

	route := &Route{Geometry: geometry.NewLine(points...)}
	for _, leg := range best.Legs {
		l := Leg{
			Distance: MetersToMiles(float64(leg.Distance.Meters)),
			Duration: leg.Duration.Hours(),
		}
		route.Legs = append(route.Legs, l)
		route.Distance += l.Distance
		route.Duration += l.Duration
	}
	return route, nil
}

func (g *Google) PointsOfInterest(ctx context.Context, category string, near geometry.Point) (_ []Place, err error) {
	defer obs.Time(ctx, "google.PointsOfInterest")(&err)

	resp, err := g.client.NearbySearch(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: near.Lat, Lng: near.Lon},
		RankBy:   maps.RankByDistance,
		Type:     maps.PlaceType(category),
	})
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return nil, nil
		}
		return nil, fmt.Errorf("google nearby search %q: %w", category, classifyGoogleError(err))
	}

	places := make([]Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		places = append(places, Place{
			Name:     r.Name,
			Location: geometry.Point{Lon: r.Geometry.Location.Lng, Lat: r.Geometry.Location.Lat},
		})
	}
	return places, nil
}

func latLng(p geometry.Point) string {
	return formatCoord(p.Lat) + "," + formatCoord(p.Lon)
}

func classifyGoogleError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "ZERO_RESULTS") || strings.Contains(msg, "NOT_FOUND") {
		return fmt.Errorf("%w: %w", ErrNoRouteFound, err)
	}
	return fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
}
