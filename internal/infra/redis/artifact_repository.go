package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"studytec-client/internal/app"
	"studytec-client/internal/domain"
)

// ArtifactRepository caches generated artifacts in Redis and falls back to
// the wrapped generator on a miss. Artifacts are stored as JSON, and every
// API key that completed a generation gets a marker:
//
//	SET studytec:artifact:{topic} {json} EX ttl
//	SET studytec:apikey:{fingerprint} 1 EX ttl
//
// Cached artifacts are only served to marked keys.
type ArtifactRepository struct {
	client *redis.Client
	gen    app.Generator
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewArtifactRepository(client *redis.Client, gen app.Generator, ttl time.Duration) *ArtifactRepository {
	return &ArtifactRepository{
		client: client,
		gen:    gen,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate implements app.Generator. A cache outage degrades to a direct
// generation.
func (r *ArtifactRepository) Generate(ctx context.Context, topic, apiKey string) (domain.Artifact, error) {
	key := artifactKey(topic)
	marker := apiKeyMarker(apiKey)
	verified := r.client.Exists(ctx, marker).Val() == 1
	if verified {
		if artifact, ok := r.lookup(ctx, key); ok {
			return artifact, nil
		}
	}

	flight := key
	if !verified {
		flight = marker + "|" + key
	}
	result, err, _ := r.sf.Do(flight, func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if verified {
			if artifact, ok := r.lookup(ctx, key); ok {
				return artifact, nil
			}
		}

		artifact, err := r.gen.Generate(ctx, topic, apiKey)
		if err != nil {
			return domain.Artifact{}, err
		}

		pipe := r.client.Pipeline()
		if data, err := json.Marshal(artifact); err == nil {
			pipe.Set(ctx, key, data, r.ttlWithJitter())
		}
		pipe.Set(ctx, marker, "1", r.ttl)
		_, _ = pipe.Exec(ctx)
		return artifact, nil
	})
	if err != nil {
		return domain.Artifact{}, err
	}
	return result.(domain.Artifact), nil
}

func (r *ArtifactRepository) lookup(ctx context.Context, key string) (domain.Artifact, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Artifact{}, false
	}
	var artifact domain.Artifact
	if err := json.Unmarshal(data, &artifact); err != nil || len(artifact.Questions) == 0 {
		return domain.Artifact{}, false
	}
	return artifact, true
}

func artifactKey(topic string) string {
	return "studytec:artifact:" + app.TopicKey(topic)
}

func apiKeyMarker(apiKey string) string {
	return "studytec:apikey:" + app.KeyFingerprint(apiKey)
}

func (r *ArtifactRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
