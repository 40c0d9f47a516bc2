package app_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"studytec-client/internal/app"
	"studytec-client/internal/domain"
)

type fakeBackend struct {
	mu      sync.Mutex
	baseURL string

	loginUser    domain.UserRecord
	loginErr     error
	joinRef      domain.ClassRef
	joinErr      error
	registerUser domain.UserRecord
	registerErr  error
	classes      []domain.ClassRecord
	classesErr   error
	history      []domain.HistoryRecord
	historyErr   error
	createCode   domain.ClassCode
	createErr    error
	saveErr      error
	classesGate  chan struct{}

	calls         map[string]int
	waiting       int
	classScopes   []string
	historyScopes []string
	registrations []domain.Registration
	created       []domain.NewClass
	saved         []domain.HistoryEntry
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{baseURL: "http://localhost:3001", calls: make(map[string]int)}
}

func (f *fakeBackend) record(op string) {
	f.calls[op]++
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// pendingClasses reports how many ListClasses calls are held at the gate.
func (f *fakeBackend) pendingClasses() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waiting
}

func (f *fakeBackend) Login(_ context.Context, _ domain.Credentials) (domain.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("login")
	return f.loginUser, f.loginErr
}

func (f *fakeBackend) Register(_ context.Context, reg domain.Registration) (domain.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("register")
	f.registrations = append(f.registrations, reg)
	return f.registerUser, f.registerErr
}

func (f *fakeBackend) JoinClass(_ context.Context, _ string) (domain.ClassRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("join")
	return f.joinRef, f.joinErr
}

func (f *fakeBackend) ListClasses(_ context.Context, teacherID string) ([]domain.ClassRecord, error) {
	f.mu.Lock()
	gate := f.classesGate
	f.mu.Unlock()
	if gate != nil {
		f.mu.Lock()
		f.waiting++
		f.mu.Unlock()
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if gate != nil {
		f.waiting--
	}
	f.record("classes")
	f.classScopes = append(f.classScopes, teacherID)
	return f.classes, f.classesErr
}

func (f *fakeBackend) ListHistory(_ context.Context, userID string) ([]domain.HistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("history")
	f.historyScopes = append(f.historyScopes, userID)
	return f.history, f.historyErr
}

func (f *fakeBackend) CreateClass(_ context.Context, class domain.NewClass) (domain.ClassCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create")
	f.created = append(f.created, class)
	return f.createCode, f.createErr
}

func (f *fakeBackend) SaveHistory(_ context.Context, entry domain.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("save")
	f.saved = append(f.saved, entry)
	return f.saveErr
}

func (f *fakeBackend) BaseURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.baseURL
}

func (f *fakeBackend) SetBaseURL(raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.baseURL = strings.TrimSuffix(strings.TrimSpace(raw), "/")
}

type fakeGenerator struct {
	mu        sync.Mutex
	artifacts []domain.Artifact
	err       error
	calls     int
	topics    []string
	block     chan struct{}
}

func (g *fakeGenerator) Generate(_ context.Context, topic, _ string) (domain.Artifact, error) {
	g.mu.Lock()
	block := g.block
	g.mu.Unlock()
	if block != nil {
		<-block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.topics = append(g.topics, topic)
	if g.err != nil {
		return domain.Artifact{}, g.err
	}
	artifact := g.artifacts[0]
	if len(g.artifacts) > 1 {
		g.artifacts = g.artifacts[1:]
	}
	return artifact, nil
}

func (g *fakeGenerator) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func photosynthesis() domain.Artifact {
	return domain.Artifact{
		Topic: "Photosynthesis",
		Explanation: domain.Explanation{
			Simple:    "Plants turn light into food.",
			Technical: "Light reactions produce ATP and NADPH.",
			Advanced:  "The Calvin cycle fixes CO2 via RuBisCO.",
		},
		Questions: []domain.Question{
			{ID: 1, Text: "What do plants need?", Options: []string{"Light", "Sand"}, Correct: "A", Difficulty: domain.DifficultyEasy},
			{ID: 2, Text: "Where does it happen?", Options: []string{"Roots", "Chloroplasts", "Stem"}, Correct: "B", Difficulty: domain.DifficultyMedium},
		},
		AnswerKey: map[int]domain.AnswerKeyEntry{
			1: {QuestionID: 1, Correct: "A", Explanation: "Light drives the reaction."},
			2: {QuestionID: 2, Correct: "B", Explanation: "Chloroplasts hold chlorophyll."},
		},
	}
}

func cellBiology() domain.Artifact {
	return domain.Artifact{
		Topic:       "Cells",
		Explanation: domain.Explanation{Simple: "s", Technical: "t", Advanced: "a"},
		Questions: []domain.Question{
			{ID: 1, Text: "Powerhouse?", Options: []string{"Mitochondria", "Nucleus"}, Correct: "A", Difficulty: domain.DifficultyEasy},
		},
		AnswerKey: map[int]domain.AnswerKeyEntry{1: {QuestionID: 1, Correct: "A"}},
	}
}

type harness struct {
	client  *app.Client
	backend *fakeBackend
	gen     *fakeGenerator
}

func newHarness(t *testing.T, apiKey string) *harness {
	t.Helper()
	backend := newFakeBackend()
	gen := &fakeGenerator{artifacts: []domain.Artifact{photosynthesis()}}
	client := app.New(app.Options{
		Backend:       backend,
		Generator:     gen,
		APIKey:        apiKey,
		Logger:        zerolog.Nop(),
		Notifications: app.NewNotificationQueueWithClock(time.Minute, time.Now),
	})
	t.Cleanup(client.Close)
	return &harness{client: client, backend: backend, gen: gen}
}

func (h *harness) loginAs(t *testing.T, user domain.UserRecord) {
	t.Helper()
	h.backend.mu.Lock()
	h.backend.loginUser = user
	h.backend.loginErr = nil
	h.backend.mu.Unlock()
	if _, err := h.client.Login(context.Background(), domain.Credentials{User: "u", Pass: "p"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	h.client.Wait()
}

func lastNotification(t *testing.T, c *app.Client) domain.Notification {
	t.Helper()
	active := c.Notifications().Active()
	if len(active) == 0 {
		t.Fatalf("expected a notification")
	}
	return active[len(active)-1]
}

func hasNotification(c *app.Client, severity domain.Severity, message string) bool {
	for _, n := range c.Notifications().Active() {
		if n.Severity == severity && n.Message == message {
			return true
		}
	}
	return false
}
