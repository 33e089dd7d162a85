package headers

import (
	"context"
	"sync"
	"time"

	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/cache"
	"go.uber.org/zap"
)

const (
	cacheKeyPrefix = "spreadsheet.header."
	// memoLimit caps the in-process memo; later headers still go to Cache.
	memoLimit = 1024
)

// Normalizer memoizes Normalize through an optional cache. A nil Cache
// computes every key directly.
//
// Each distinct header reaches Cache at most once per Normalizer: the result
// is remembered in process, so repeated headers skip the round trip. Entries
// changed in Cache after that are not seen until a new Normalizer is built.
type Normalizer struct {
	Cache  cache.Cache
	TTL    time.Duration
	Logger *zap.Logger

	mu   sync.Mutex
	memo map[string]string
}

// Normalize returns the normalized key for raw. Cache failures are logged and
// the key is computed directly.
func (n *Normalizer) Normalize(ctx context.Context, raw string) string {
	if n == nil || n.Cache == nil {
		return Normalize(raw)
	}
	if v, ok := n.recall(raw); ok {
		return v
	}
	v := n.resolve(ctx, raw)
	n.remember(raw, v)
	return v
}

func (n *Normalizer) resolve(ctx context.Context, raw string) string {
	log := n.Logger
	if log == nil {
		log = zap.NewNop()
	}

	key := cacheKeyPrefix + raw
	if v, ok, err := n.Cache.Get(ctx, key); err != nil {
		log.Warn("header cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return string(v)
	}

	normalized := Normalize(raw)
	if err := n.Cache.Set(ctx, key, []byte(normalized), n.TTL); err != nil {
		log.Warn("header cache write failed", zap.String("key", key), zap.Error(err))
	}
	return normalized
}

func (n *Normalizer) recall(raw string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.memo[raw]
	return v, ok
}

func (n *Normalizer) remember(raw, v string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.memo == nil {
		n.memo = make(map[string]string)
	}
	if len(n.memo) < memoLimit {
		n.memo[raw] = v
	}
}

// Func binds ctx and returns a normalizer usable with AssociateWith.
func (n *Normalizer) Func(ctx context.Context) func(string) string {
	return func(raw string) string {
		return n.Normalize(ctx, raw)
	}
}
