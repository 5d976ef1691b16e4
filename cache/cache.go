// Package cache keeps recently fetched transcripts in a two-tier cache:
// an in-process map (L1) in front of an optional Redis (L2).
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-digest/transcript"
)

const keyPrefix = "ytd:transcript:"

type Options struct {
	// RedisURL may be empty to run with L1 only.
	RedisURL        string
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
	Logger          logrus.FieldLogger
}

type TieredCache struct {
	l1              sync.Map // key -> *entry
	rdb             *redis.Client
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	logger          logrus.FieldLogger
	now             func() time.Time

	hits   atomic.Int64
	misses atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

type entry struct {
	text      string
	expiresAt time.Time
}

// New builds the cache. A bad or unreachable Redis disables L2 and is
// logged, never returned.
func New(ctx context.Context, opts Options) *TieredCache {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	c := &TieredCache{
		ttl:             ttl,
		maxEntries:      opts.MaxEntries,
		cleanupInterval: opts.CleanupInterval,
		logger:          logger,
		now:             time.Now,
		stop:            make(chan struct{}),
	}

	if opts.RedisURL != "" {
		ropts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Invalid redis URL, L2 cache disabled")
		} else {
			rdb := redis.NewClient(ropts)
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := rdb.Ping(pingCtx).Err(); err != nil {
				logger.WithError(err).Warn("Redis unreachable, L2 cache disabled")
				_ = rdb.Close()
			} else {
				c.rdb = rdb
				logger.WithField("addr", ropts.Addr).Info("L2 redis cache connected")
			}
		}
	}

	logger.WithFields(logrus.Fields{
		"ttl":         ttl,
		"redis":       c.rdb != nil,
		"max_entries": opts.MaxEntries,
	}).Info("Transcript cache initialized")
	return c
}

func key(videoID string) string { return keyPrefix + videoID }

// GetTranscript checks L1 then L2. An L2 hit is copied into L1.
func (c *TieredCache) GetTranscript(ctx context.Context, videoID string) (string, error) {
	k := key(videoID)
	if val, ok := c.l1.Load(k); ok {
		e := val.(*entry)
		if c.now().Before(e.expiresAt) {
			c.hits.Add(1)
			return e.text, nil
		}
		c.l1.Delete(k)
	}

	if c.rdb != nil {
		text, err := c.rdb.Get(ctx, k).Result()
		switch {
		case err == nil:
			c.hits.Add(1)
			c.l1.Store(k, &entry{text: text, expiresAt: c.now().Add(c.ttl)})
			return text, nil
		case err != redis.Nil:
			c.logger.WithError(err).WithField("video_id", videoID).Debug("L2 cache get failed")
		}
	}

	c.misses.Add(1)
	return "", transcript.ErrNotStored
}

func (c *TieredCache) SaveTranscript(ctx context.Context, videoID, text string) error {
	k := key(videoID)
	c.evictIfNeeded()
	c.l1.Store(k, &entry{text: text, expiresAt: c.now().Add(c.ttl)})

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, k, text, c.ttl).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (c *TieredCache) DeleteTranscript(ctx context.Context, videoID string) error {
	k := key(videoID)
	c.l1.Delete(k)
	if c.rdb != nil {
		return c.rdb.Del(ctx, k).Err()
	}
	return nil
}

func (c *TieredCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *TieredCache) Len() int {
	n := 0
	c.l1.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// evictIfNeeded drops expired entries first, then the entries closest to
// expiry, until there is room for one more.
func (c *TieredCache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}
	count := c.Len()
	if count < c.maxEntries {
		return
	}

	now := c.now()
	c.l1.Range(func(k, val any) bool {
		if e, ok := val.(*entry); ok && now.After(e.expiresAt) {
			c.l1.Delete(k)
			count--
		}
		return count >= c.maxEntries
	})

	for count >= c.maxEntries {
		var oldestKey any
		var oldestAt time.Time
		c.l1.Range(func(k, val any) bool {
			e, ok := val.(*entry)
			if ok && (oldestKey == nil || e.expiresAt.Before(oldestAt)) {
				oldestKey, oldestAt = k, e.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			return
		}
		c.l1.Delete(oldestKey)
		count--
	}
}

func (c *TieredCache) removeExpired() {
	now := c.now()
	c.l1.Range(func(k, val any) bool {
		if e, ok := val.(*entry); ok && now.After(e.expiresAt) {
			c.l1.Delete(k)
		}
		return true
	})
}

// Run removes expired L1 entries until ctx is done or Close is called.
func (c *TieredCache) Run(ctx context.Context) error {
	interval := c.cleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.stop:
			return nil
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *TieredCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}
