package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"studytec-client/internal/app"
	"studytec-client/internal/domain"
)

// ArtifactRepository caches generated artifacts by topic with TTL so repeated
// requests for the same lesson do not hit the AI service again. Cached
// artifacts are only served to API keys that have completed a generation.
type ArtifactRepository struct {
	gen   app.Generator
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu       sync.RWMutex
	cache    map[string]cachedArtifact
	verified map[string]struct{}
}

type cachedArtifact struct {
	artifact  domain.Artifact
	expiresAt time.Time
}

func NewArtifactRepository(gen app.Generator, ttl time.Duration) *ArtifactRepository {
	return &ArtifactRepository{
		gen:      gen,
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:    make(map[string]cachedArtifact),
		verified: make(map[string]struct{}),
	}
}

// Generate implements app.Generator. Failures are never cached, and a key
// seen for the first time always reaches the generator.
func (r *ArtifactRepository) Generate(ctx context.Context, topic, apiKey string) (domain.Artifact, error) {
	key := app.TopicKey(topic)
	fingerprint := app.KeyFingerprint(apiKey)
	verified := r.isVerified(fingerprint)
	if verified {
		if artifact, ok := r.lookup(key); ok {
			return artifact, nil
		}
	}

	flight := key
	if !verified {
		flight = key + "|" + fingerprint
	}
	result, err, _ := r.sf.Do(flight, func() (interface{}, error) {
		if verified {
			if artifact, ok := r.lookup(key); ok {
				return artifact, nil
			}
		}

		artifact, err := r.gen.Generate(ctx, topic, apiKey)
		if err != nil {
			return domain.Artifact{}, err
		}

		r.mu.Lock()
		r.verified[fingerprint] = struct{}{}
		r.cache[key] = cachedArtifact{
			artifact:  artifact,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return artifact, nil
	})
	if err != nil {
		return domain.Artifact{}, err
	}
	return result.(domain.Artifact), nil
}

func (r *ArtifactRepository) isVerified(fingerprint string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.verified[fingerprint]
	return ok
}

func (r *ArtifactRepository) lookup(key string) (domain.Artifact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[key]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Artifact{}, false
	}
	return entry.artifact, true
}

func (r *ArtifactRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
