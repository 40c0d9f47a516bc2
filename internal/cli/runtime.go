package cli

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"studytec-client/internal/app"
	"studytec-client/internal/backend"
	"studytec-client/internal/config"
	"studytec-client/internal/genai"
	"studytec-client/internal/infra/memory"
	infraredis "studytec-client/internal/infra/redis"
	"studytec-client/internal/logger"
	"studytec-client/internal/validator"
)

// runtime holds the process-wide collaborators shared by every session.
type runtime struct {
	cfg         config.Config
	log         zerolog.Logger
	validate    *validator.Validator
	redis       *redis.Client
	backendHTTP *http.Client
	generator   app.Generator
}

func newRuntime(configPath string) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	rt := &runtime{
		cfg:      cfg,
		log:      log,
		validate: validator.New(),
		backendHTTP: &http.Client{
			Timeout: config.TTLDuration(cfg.Backend.Timeout, 15*time.Second),
		},
	}

	if cfg.Redis.Addr != "" {
		rt.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	aiHTTP := &http.Client{Timeout: config.TTLDuration(cfg.AI.Timeout, 120*time.Second)}
	var gen app.Generator = genai.NewClient(aiHTTP, cfg.AI.Endpoint, cfg.AI.Model, rt.validate)
	cacheTTL := config.TTLDuration(cfg.Cache.TTL, time.Hour)
	switch cfg.Cache.Backend {
	case "memory":
		gen = memory.NewArtifactRepository(gen, cacheTTL)
	case "redis":
		if rt.redis == nil {
			log.Warn().Msg("cache.backend is redis but redis.addr is empty; caching disabled")
			break
		}
		gen = infraredis.NewArtifactRepository(rt.redis, gen, cacheTTL)
	}
	rt.generator = gen

	log.Debug().
		Str("backend", cfg.Backend.URL).
		Str("cache", cfg.Cache.Backend).
		Bool("redis", rt.redis != nil).
		Msg("runtime configured")
	return rt, nil
}

// newClient builds one client session. Each session owns its backend
// client because the backend URL is a per-session setting.
func (rt *runtime) newClient() *app.Client {
	return app.New(app.Options{
		Backend:   backend.NewClient(rt.backendHTTP, rt.cfg.Backend.URL),
		Generator: rt.generator,
		APIKey:    rt.cfg.AI.APIKey,
		Logger:    rt.log,
		Validator: rt.validate,
	})
}

func (rt *runtime) sessionRegistry() app.SessionRegistry {
	if rt.redis != nil {
		return infraredis.NewSessionRegistry(rt.redis, config.TTLDuration(rt.cfg.Redis.TTL, 10*time.Minute))
	}
	return memory.NewSessionRegistry()
}

func (rt *runtime) Close() {
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
}
