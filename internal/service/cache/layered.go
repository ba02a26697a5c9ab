package cache

import (
	"context"
	"time"
)

// LayeredCache fronts a shared BytesCache (usually Redis) with an in-process
// TTLCache. Writes go to the remote layer first.
type LayeredCache struct {
	local    *TTLCache
	remote   BytesCache
	maxLocal int
	localTTL time.Duration
}

// NewLayeredCache keeps at most maxLocal entries locally. Values read from
// the remote layer are kept locally for localTTL.
func NewLayeredCache(remote BytesCache, maxLocal int, localTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		local:    NewTTLCache(),
		remote:   remote,
		maxLocal: maxLocal,
		localTTL: localTTL,
	}
}

func (lc *LayeredCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, _ := lc.local.GetBytes(ctx, key); ok {
		return b, true, nil
	}
	b, ok, err := lc.remote.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	lc.setLocal(ctx, key, b, lc.localTTL)
	return b, true, nil
}

func (lc *LayeredCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := lc.remote.SetBytes(ctx, key, value, ttl); err != nil {
		return err
	}
	lc.setLocal(ctx, key, value, ttl)
	return nil
}

func (lc *LayeredCache) setLocal(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if lc.maxLocal <= 0 {
		return
	}
	if lc.localTTL > 0 && (ttl <= 0 || ttl > lc.localTTL) {
		ttl = lc.localTTL
	}
	lc.local.Delete(key)
	if lc.local.Len() >= lc.maxLocal && lc.local.Sweep() == 0 {
		return
	}
	_ = lc.local.SetBytes(ctx, key, value, ttl)
}

// Sweep drops expired entries from the local layer.
func (lc *LayeredCache) Sweep() int { return lc.local.Sweep() }
