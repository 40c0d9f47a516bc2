package integration

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"studytec-client/internal/app"
	"studytec-client/internal/domain"
	infraredis "studytec-client/internal/infra/redis"
)

func TestArtifactCacheAcrossSessionsEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	gen := &countingGenerator{}
	cache := infraredis.NewArtifactRepository(redisClient, gen, 5*time.Minute)
	registry := infraredis.NewSessionRegistry(redisClient, 5*time.Minute)

	newClient := func() *app.Client {
		return app.New(app.Options{
			Backend:   &anonymousBackend{},
			Generator: cache,
			APIKey:    "k",
			Logger:    zerolog.Nop(),
		})
	}
	alice, bob := newClient(), newClient()
	defer alice.Close()
	defer bob.Close()
	registry.Add("alice", alice)
	registry.Add("bob", bob)

	if _, err := alice.Generate(ctx, "Photosynthesis"); err != nil {
		t.Fatalf("alice generate: %v", err)
	}
	artifact, err := bob.Generate(ctx, "photosynthesis")
	if err != nil {
		t.Fatalf("bob generate: %v", err)
	}
	if gen.calls.Load() != 1 {
		t.Fatalf("expected one generation shared through redis, got %d", gen.calls.Load())
	}
	if artifact.AnswerKey[1].Explanation != "Carbon dioxide." {
		t.Fatalf("answer key lost in cache round trip: %+v", artifact.AnswerKey)
	}

	state, err := bob.StartQuiz()
	if err != nil || state.Phase != domain.QuizAwaitingIdentity {
		t.Fatalf("expected identity capture for anonymous bob, got %+v %v", state, err)
	}

	live, err := registry.LiveCount(ctx)
	if err != nil {
		t.Fatalf("live count: %v", err)
	}
	if live != 2 {
		t.Fatalf("expected 2 live sessions, got %d", live)
	}
	registry.Remove("alice")
	if live, _ = registry.LiveCount(ctx); live != 1 {
		t.Fatalf("expected 1 live session after remove, got %d", live)
	}
}

type countingGenerator struct {
	calls atomic.Int32
}

func (g *countingGenerator) Generate(_ context.Context, topic, _ string) (domain.Artifact, error) {
	g.calls.Add(1)
	return domain.Artifact{
		Topic:       topic,
		Explanation: domain.Explanation{Simple: "s", Technical: "t", Advanced: "a"},
		Questions: []domain.Question{
			{ID: 1, Text: "What gas do plants absorb?", Options: []string{"CO2", "O2"}, Correct: "A", Difficulty: domain.DifficultyEasy},
		},
		AnswerKey: map[int]domain.AnswerKeyEntry{1: {QuestionID: 1, Correct: "A", Explanation: "Carbon dioxide."}},
	}, nil
}

// anonymousBackend rejects every call; the sessions here never log in.
type anonymousBackend struct{}

func (anonymousBackend) Login(context.Context, domain.Credentials) (domain.UserRecord, error) {
	return domain.UserRecord{}, &domain.RejectionError{Status: 401}
}

func (anonymousBackend) Register(context.Context, domain.Registration) (domain.UserRecord, error) {
	return domain.UserRecord{}, &domain.RejectionError{Status: 503}
}

func (anonymousBackend) JoinClass(context.Context, string) (domain.ClassRef, error) {
	return domain.ClassRef{}, &domain.RejectionError{Status: 404}
}

func (anonymousBackend) ListClasses(context.Context, string) ([]domain.ClassRecord, error) {
	return nil, nil
}

func (anonymousBackend) ListHistory(context.Context, string) ([]domain.HistoryRecord, error) {
	return nil, nil
}

func (anonymousBackend) CreateClass(context.Context, domain.NewClass) (domain.ClassCode, error) {
	return domain.ClassCode{}, &domain.RejectionError{Status: 403}
}

func (anonymousBackend) SaveHistory(context.Context, domain.HistoryEntry) error {
	return nil
}

func (anonymousBackend) BaseURL() string { return "" }

func (anonymousBackend) SetBaseURL(string) {}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
