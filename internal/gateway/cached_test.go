package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eld_trip_planner/internal/geometry"
)

var testWaypoints = []geometry.Point{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 1, Lat: 2}}

func TestCachedMemoryHit(t *testing.T) {
	stub := &StraightLine{}
	c := NewCached(stub, CacheOptions{})

	first, err := c.Directions(context.Background(), testWaypoints)
	require.NoError(t, err)
	second, err := c.Directions(context.Background(), testWaypoints)
	require.NoError(t, err)

	assert.Same(t, first, second)
	dirCalls, _ := stub.Calls()
	assert.Equal(t, 1, dirCalls)
}

func TestCachedRedisTier(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	stub := &StraightLine{}
	warm := NewCached(stub, CacheOptions{Redis: rdb, TTL: time.Hour})
	want, err := warm.Directions(context.Background(), testWaypoints)
	require.NoError(t, err)
	_, err = warm.PointsOfInterest(context.Background(), CategoryFuel, testWaypoints[1])
	require.NoError(t, err)

	assert.True(t, mr.Exists(directionsKey(testWaypoints)))
	assert.Equal(t, time.Hour, mr.TTL(directionsKey(testWaypoints)))

	// a fresh process-local tier must be served from redis alone
	cold := NewCached(stub, CacheOptions{Redis: rdb, TTL: time.Hour})
	got, err := cold.Directions(context.Background(), testWaypoints)
	require.NoError(t, err)
	places, err := cold.PointsOfInterest(context.Background(), CategoryFuel, testWaypoints[1])
	require.NoError(t, err)

	dirCalls, poiCalls := stub.Calls()
	assert.Equal(t, 1, dirCalls)
	assert.Equal(t, 1, poiCalls)

	assert.InDelta(t, want.Distance, got.Distance, 1e-12)
	assert.InDelta(t, want.Duration, got.Duration, 1e-12)
	assert.Equal(t, want.Legs, got.Legs)
	assert.Equal(t, geometry.Points(want.Geometry), geometry.Points(got.Geometry))
	require.Len(t, places, 1)
	assert.Equal(t, testWaypoints[1], places[0].Location)
}

func TestCachedCorruptRedisEntryFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	require.NoError(t, mr.Set(directionsKey(testWaypoints), "not zstd"))

	stub := &StraightLine{}
	c := NewCached(stub, CacheOptions{Redis: rdb})
	_, err := c.Directions(context.Background(), testWaypoints)
	require.NoError(t, err)

	dirCalls, _ := stub.Calls()
	assert.Equal(t, 1, dirCalls)
}

func TestCachedDoesNotCacheErrors(t *testing.T) {
	boom := errors.New("boom")
	stub := &StraightLine{Err: boom}
	c := NewCached(stub, CacheOptions{})

	_, err := c.Directions(context.Background(), testWaypoints)
	assert.ErrorIs(t, err, boom)
	_, err = c.Directions(context.Background(), testWaypoints)
	assert.ErrorIs(t, err, boom)

	dirCalls, _ := stub.Calls()
	assert.Equal(t, 2, dirCalls)
}

func TestCachedConcurrentCallers(t *testing.T) {
	stub := &StraightLine{}
	c := NewCached(stub, CacheOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.Directions(context.Background(), testWaypoints)
			assert.NoError(t, err)
			assert.InDelta(t, 3*geometry.MilesPerDegree, r.Distance, 1e-9)
		}()
	}
	wg.Wait()

	dirCalls, _ := stub.Calls()
	assert.LessOrEqual(t, dirCalls, 16)
	assert.GreaterOrEqual(t, dirCalls, 1)
}

func TestStraightLineLegs(t *testing.T) {
	stub := &StraightLine{MilesPerDegree: 100, SpeedMPH: 50}
	r, err := stub.Directions(context.Background(), testWaypoints)
	require.NoError(t, err)

	require.Len(t, r.Legs, 2)
	assert.InDelta(t, 100.0, r.Legs[0].Distance, 1e-9)
	assert.InDelta(t, 200.0, r.Legs[1].Distance, 1e-9)
	assert.InDelta(t, 6.0, r.Duration, 1e-9)

	_, err = stub.Directions(context.Background(), testWaypoints[:1])
	assert.ErrorIs(t, err, ErrNoRouteFound)
}

func TestNewProvider(t *testing.T) {
	_, err := New(context.Background(), ProviderOptions{Provider: "carrier-pigeon"})
	assert.Error(t, err)

	_, err = New(context.Background(), ProviderOptions{Provider: "mapbox"})
	assert.Error(t, err, "empty token")

	mr := miniredis.RunT(t)
	gw, err := New(context.Background(), ProviderOptions{Provider: "straight", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.NotNil(t, gw.redis)

	_, err = gw.Directions(context.Background(), testWaypoints)
	require.NoError(t, err)
	assert.True(t, mr.Exists(directionsKey(testWaypoints)))
}

// heldGateway blocks every Directions call until release is closed, failing early
// if the call's own context ends first.
type heldGateway struct {
	*StraightLine
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *heldGateway) Directions(ctx context.Context, wp []geometry.Point) (*Route, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
		return g.StraightLine.Directions(ctx, wp)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCachedCallerCancelDoesNotFailSharedCall(t *testing.T) {
	stub := &StraightLine{}
	held := &heldGateway{StraightLine: stub, started: make(chan struct{}), release: make(chan struct{})}
	c := NewCached(held, CacheOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Directions(ctx, testWaypoints)
		firstErr <- err
	}()
	<-held.started
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	type result struct {
		r   *Route
		err error
	}
	second := make(chan result, 1)
	go func() {
		r, err := c.Directions(context.Background(), testWaypoints)
		second <- result{r, err}
	}()
	close(held.release)

	got := <-second
	require.NoError(t, got.err)
	assert.InDelta(t, 3*geometry.MilesPerDegree, got.r.Distance, 1e-9)

	dirCalls, _ := stub.Calls()
	assert.Equal(t, 1, dirCalls)
}
