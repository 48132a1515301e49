package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ProviderOptions selects and configures a routing provider.
type ProviderOptions struct {
	Provider    string // mapbox | google | straight
	MapboxToken string
	GoogleKey   string
	RedisAddr   string
	CacheTTL    time.Duration
	CacheSize   int
}

// New builds the configured provider wrapped in the route cache.
// When RedisAddr is set but unreachable the cache runs process-local only.
func New(ctx context.Context, opts ProviderOptions) (*Cached, error) {
	var (
		next Gateway
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", "mapbox":
		next, err = NewMapbox(opts.MapboxToken)
	case "google":
		next, err = NewGoogle(opts.GoogleKey)
	case "straight":
		next = &StraightLine{}
	default:
		return nil, fmt.Errorf("unknown routing provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}

	cacheOpts := CacheOptions{Size: opts.CacheSize, TTL: opts.CacheTTL}
	if opts.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logrus.WithError(err).WithField("addr", opts.RedisAddr).Warn("route cache: redis unreachable, using memory only")
			_ = rdb.Close()
		} else {
			cacheOpts.Redis = rdb
		}
	}

	logrus.WithFields(logrus.Fields{
		"provider": opts.Provider,
		"redis":    cacheOpts.Redis != nil,
	}).Info("routing gateway ready")
	return NewCached(next, cacheOpts), nil
}
