package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"eld_trip_planner/internal/geometry"
)

// Cached sits in front of a Gateway. Lookups go process LRU, then redis (when configured),
// then the wrapped provider. Concurrent identical requests share one provider call.
// Errors are never cached.
type Cached struct {
	next   Gateway
	routes *expirable.LRU[string, *Route]
	places *expirable.LRU[string, []Place]
	redis  *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

type CacheOptions struct {
	Size  int
	TTL   time.Duration
	Redis *redis.Client // optional second tier
}

func NewCached(next Gateway, opts CacheOptions) *Cached {
	if opts.Size <= 0 {
		opts.Size = 256
	}
	if opts.TTL <= 0 {
		opts.TTL = 6 * time.Hour
	}
	return &Cached{
		next:   next,
		routes: expirable.NewLRU[string, *Route](opts.Size, nil, opts.TTL),
		places: expirable.NewLRU[string, []Place](opts.Size, nil, opts.TTL),
		redis:  opts.Redis,
		ttl:    opts.TTL,
	}
}

// cachedRoute is the redis wire form of a Route.
type cachedRoute struct {
	Coords   [][2]float64 `msgpack:"c"`
	Distance float64      `msgpack:"d"`
	Duration float64      `msgpack:"t"`
	Legs     []Leg        `msgpack:"l"`
}

func (c *Cached) Directions(ctx context.Context, waypoints []geometry.Point) (*Route, error) {
	key := directionsKey(waypoints)
	if r, ok := c.routes.Get(key); ok {
		return r, nil
	}

	v, err := c.shared(ctx, key, func(ctx context.Context) (any, error) {
		var wire cachedRoute
		if c.fromRedis(ctx, key, &wire) {
			r := wire.route()
			c.routes.Add(key, r)
			return r, nil
		}

		r, err := c.next.Directions(ctx, waypoints)
		if err != nil {
			return nil, err
		}
		c.routes.Add(key, r)
		c.toRedis(ctx, key, newCachedRoute(r))
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Route), nil
}

func (c *Cached) PointsOfInterest(ctx context.Context, category string, near geometry.Point) ([]Place, error) {
	key := "poi:" + category + ":" + near.String()
	if p, ok := c.places.Get(key); ok {
		return p, nil
	}

	v, err := c.shared(ctx, key, func(ctx context.Context) (any, error) {
		var cached []Place
		if c.fromRedis(ctx, key, &cached) {
			c.places.Add(key, cached)
			return cached, nil
		}

		places, err := c.next.PointsOfInterest(ctx, category, near)
		if err != nil {
			return nil, err
		}
		c.places.Add(key, places)
		c.toRedis(ctx, key, places)
		return places, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Place), nil
}

// shared runs fn once per key for all concurrent callers. fn gets ctx without its
// cancellation, so one caller giving up does not fail the others; that caller alone
// returns ctx.Err().
func (c *Cached) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) { return fn(detached) })
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cached) fromRedis(ctx context.Context, key string, v any) bool {
	if c.redis == nil {
		return false
	}
	raw, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logrus.WithError(err).WithField("key", key).Warn("route cache: redis get failed")
		}
		return false
	}
	if err := decodeCompressed(raw, v); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("route cache: dropping undecodable entry")
		return false
	}
	return true
}

func (c *Cached) toRedis(ctx context.Context, key string, v any) {
	if c.redis == nil {
		return
	}
	raw, err := encodeCompressed(v)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("route cache: encode failed")
		return
	}
	if err := c.redis.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("route cache: redis set failed")
	}
}

func directionsKey(waypoints []geometry.Point) string {
	parts := make([]string, 0, len(waypoints))
	for _, p := range waypoints {
		parts = append(parts, p.String())
	}
	return "route:" + strings.Join(parts, ";")
}

func newCachedRoute(r *Route) cachedRoute {
	wire := cachedRoute{Distance: r.Distance, Duration: r.Duration, Legs: r.Legs}
	for _, p := range geometry.Points(r.Geometry) {
		wire.Coords = append(wire.Coords, [2]float64{p.Lon, p.Lat})
	}
	return wire
}

func (w cachedRoute) route() *Route {
	points := make([]geometry.Point, 0, len(w.Coords))
	for _, c := range w.Coords {
		points = append(points, geometry.Point{Lon: c[0], Lat: c[1]})
	}
	return &Route{
		Geometry: geometry.NewLine(points...),
		Distance: w.Distance,
		Duration: w.Duration,
		Legs:     w.Legs,
	}
}

func encodeCompressed(v any) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if err := msgpack.NewEncoder(zw).Encode(v); err != nil {
		zw.Close()
		return nil, fmt.Errorf("msgpack encode: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeCompressed(raw []byte, v any) error {
	zr, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	defer zr.Close()
	return msgpack.NewDecoder(zr).Decode(v)
}
