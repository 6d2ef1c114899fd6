package narrative

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/soteria-soc/soteria/config"
)

//Cache stores rendered explanations keyed by an evidence fingerprint,
//so repeated runs over the same data skip the narrative backend
type Cache interface {
	Get(ctx context.Context, key string) (*Explanation, bool)
	Set(ctx context.Context, key string, explanation *Explanation)
}

//NewCache selects a cache implementation from the narrative
//configuration. Unknown modes fall back to the in-process cache.
func NewCache(conf *config.Config) Cache {
	switch conf.S.Narrative.Cache {
	case "none":
		return &nopCache{}
	case "redis":
		return newRedisCache(conf)
	default:
		return newMemoryCache()
	}
}

//Fingerprint derives a stable cache key from the evidence contents.
//Two runs producing identical evidence reuse the same narrative.
func Fingerprint(evidence *Evidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%d|%.4f|%s|",
		evidence.Key.Actor, evidence.Key.Domain, evidence.Username,
		evidence.RequestCount, evidence.Confidence, evidence.Severity.String(),
	)
	if evidence.Tier1 != nil {
		fmt.Fprintf(&b, "t1:%s|", strings.Join(evidence.Tier1.Methods, ","))
	}
	if evidence.Tier2 != nil {
		fmt.Fprintf(&b, "t2:%.4f:%s|",
			evidence.Tier2.Confidence, strings.Join(evidence.Tier2.TopFeatures, ","))
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(b.String())))
}

type nopCache struct{}

func (n *nopCache) Get(_ context.Context, _ string) (*Explanation, bool) { return nil, false }
func (n *nopCache) Set(_ context.Context, _ string, _ *Explanation)      {}

//memoryCache is a process-lifetime map guarded by a mutex
type memoryCache struct {
	mutex   sync.RWMutex
	entries map[string]*Explanation
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]*Explanation)}
}

func (m *memoryCache) Get(_ context.Context, key string) (*Explanation, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	explanation, ok := m.entries[key]
	return explanation, ok
}

func (m *memoryCache) Set(_ context.Context, key string, explanation *Explanation) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.entries[key] = explanation
}

//redisCache shares narratives between runs and between analysts.
//Cache misses on connection errors are silent; the synthesizer just
//regenerates the narrative.
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func newRedisCache(conf *config.Config) *redisCache {
	return &redisCache{
		client: redis.NewClient(&redis.Options{Addr: conf.S.Narrative.RedisAddr}),
		ttl:    conf.R.Narrative.CacheTTL,
	}
}

func (r *redisCache) Get(ctx context.Context, key string) (*Explanation, bool) {
	payload, err := r.client.Get(ctx, "soteria:narrative:"+key).Bytes()
	if err != nil {
		return nil, false
	}
	var explanation Explanation
	if err := remoteJSON.Unmarshal(payload, &explanation); err != nil {
		return nil, false
	}
	return &explanation, true
}

func (r *redisCache) Set(ctx context.Context, key string, explanation *Explanation) {
	payload, err := remoteJSON.Marshal(explanation)
	if err != nil {
		return
	}
	r.client.Set(ctx, "soteria:narrative:"+key, payload, r.ttl)
}
