package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"studytec-client/internal/domain"
	"studytec-client/internal/validator"
)

// Backend is every backend operation the client core uses.
type Backend interface {
	Authenticator
	ClassJoiner
	Registrar
	DashboardSource
	CreateClass(ctx context.Context, class domain.NewClass) (domain.ClassCode, error)
	SaveHistory(ctx context.Context, entry domain.HistoryEntry) error
	BaseURL() string
	SetBaseURL(raw string)
}

// Options configures a Client.
type Options struct {
	Backend       Backend
	Generator     Generator
	APIKey        string
	Logger        zerolog.Logger
	Validator     *validator.Validator
	Notifications *NotificationQueue
}

// Settings are the runtime-editable, memory-only session settings.
type Settings struct {
	BackendURL string `json:"backendUrl"`
	APIKey     string `json:"apiKey,omitempty"`
}

// Client is one user session: it owns the components and wires the control
// flow between them.
type Client struct {
	notes      *NotificationQueue
	session    *SessionContext
	content    *ContentService
	enrollment *ClassEnrollment
	quiz       *QuizSession
	dashboard  *DashboardAggregator

	backend  Backend
	validate *validator.Validator
	log      zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	changes chan struct{}

	mu      sync.RWMutex
	apiKey  string
	view    domain.View
	pending int
}

func New(opts Options) *Client {
	v := opts.Validator
	if v == nil {
		v = validator.New()
	}
	notes := opts.Notifications
	if notes == nil {
		notes = NewNotificationQueue()
	}
	log := opts.Logger

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		notes:    notes,
		backend:  opts.Backend,
		validate: v,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		changes:  make(chan struct{}, 1),
		apiKey:   opts.APIKey,
		view:     domain.ViewHome,
	}

	c.session = NewSessionContext(opts.Backend, notes, v, log)
	c.content = NewContentService(opts.Generator, notes, log)
	c.enrollment = NewClassEnrollment(opts.Backend, c.session, notes, log)
	c.quiz = NewQuizSession(opts.Backend, c.session, notes, log)
	c.dashboard = NewDashboardAggregator(opts.Backend, log)

	c.session.OnChange(c.actorChanged)
	c.content.onReplace = func(domain.Artifact) { c.quiz.Invalidate() }
	c.content.onDiscard = c.quiz.Invalidate
	c.content.onNeedsConfig = func() { c.setView(domain.ViewSettings) }
	c.quiz.onFinish = c.recordAttempt

	return c
}

func (c *Client) actorChanged(actor domain.Actor) {
	c.quiz.reevaluate(actor)
	if actor.Role == domain.RoleAnonymous {
		c.dashboard.Clear()
	} else {
		gen := c.dashboard.begin()
		c.background(func(ctx context.Context) {
			_, _ = c.dashboard.refresh(ctx, actor, gen)
		})
	}
	c.changed()
}

// background runs fn on its own goroutine, tracked by Wait. In-flight work
// is not cancelled by navigation, only by Close.
func (c *Client) background(fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(c.ctx)
		c.changed()
	}()
}

func (c *Client) changed() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

// track marks a collaborator request as outstanding until the returned
// function runs.
func (c *Client) track() func() {
	c.mu.Lock()
	c.pending++
	c.mu.Unlock()
	c.changed()
	return func() {
		c.mu.Lock()
		c.pending--
		c.mu.Unlock()
		c.changed()
	}
}

// Pending reports whether a collaborator request is outstanding.
func (c *Client) Pending() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending > 0
}

// Changes signals (coalesced) whenever session state may have changed.
func (c *Client) Changes() <-chan struct{} {
	return c.changes
}

// Notifications exposes the queue to the presentation layer.
func (c *Client) Notifications() *NotificationQueue {
	return c.notes
}

// Wait blocks until background work started so far has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Close cancels background work and releases the notification timers.
func (c *Client) Close() {
	c.cancel()
	c.wg.Wait()
	c.notes.Close()
}

// Configure replaces the session settings.
func (c *Client) Configure(s Settings) {
	c.backend.SetBaseURL(s.BackendURL)
	c.mu.Lock()
	c.apiKey = strings.TrimSpace(s.APIKey)
	c.mu.Unlock()
	c.changed()
}

// Settings returns the current session settings.
func (c *Client) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Settings{BackendURL: c.backend.BaseURL(), APIKey: c.apiKey}
}

// View returns the screen the presentation layer should show.
func (c *Client) View() domain.View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

func (c *Client) setView(v domain.View) {
	c.mu.Lock()
	c.view = v
	c.mu.Unlock()
	c.changed()
}

// Navigate switches views. The teacher area is gated on ManageClasses.
func (c *Client) Navigate(v domain.View) error {
	switch v {
	case domain.ViewHome, domain.ViewStudentArea, domain.ViewSettings:
	case domain.ViewTeacher:
		if !c.session.Can(domain.CapManageClasses) {
			return domain.ErrNotPermitted
		}
	default:
		return fmt.Errorf("unknown view %q", v)
	}
	c.setView(v)
	return nil
}

// Actor returns the current actor.
func (c *Client) Actor() domain.Actor {
	return c.session.Actor()
}

// Can evaluates a capability for the current actor.
func (c *Client) Can(capability domain.Capability) bool {
	return c.session.Can(capability)
}

// Login authenticates and routes students to their class area and staff to
// class management.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.Actor, error) {
	defer c.track()()
	actor, err := c.session.Login(ctx, creds)
	if err != nil {
		return actor, err
	}
	if actor.Role == domain.RoleStudent {
		c.setView(domain.ViewStudentArea)
	} else {
		c.setView(domain.ViewTeacher)
	}
	return actor, nil
}

// Logout returns the session to anonymous.
func (c *Client) Logout() {
	c.session.Logout()
	c.setView(domain.ViewHome)
}

// Generate requests a lesson for topic with the configured API key.
func (c *Client) Generate(ctx context.Context, topic string) (domain.Artifact, error) {
	defer c.track()()
	c.mu.RLock()
	apiKey := c.apiKey
	c.mu.RUnlock()

	artifact, err := c.content.Generate(ctx, topic, apiKey)
	if err != nil {
		c.changed()
		return artifact, err
	}
	c.setView(domain.ViewHome)
	return artifact, nil
}

// Artifact returns the held artifact, if any.
func (c *Client) Artifact() (domain.Artifact, bool) {
	return c.content.Artifact()
}

// ResetContent discards the artifact and any quiz over it.
func (c *Client) ResetContent() {
	c.content.Reset()
	c.changed()
}

// JoinClass binds the session to a class as a guest.
func (c *Client) JoinClass(ctx context.Context, code string) (domain.ClassRef, error) {
	defer c.track()()
	ref, err := c.enrollment.Join(ctx, code)
	if err != nil {
		c.changed()
		return ref, err
	}
	c.setView(domain.ViewStudentArea)
	return ref, nil
}

// StartQuiz starts a quiz over the held artifact.
func (c *Client) StartQuiz() (domain.QuizState, error) {
	var (
		state domain.QuizState
		err   error
	)
	// the artifact cannot be replaced until the quiz has started on it
	ok := c.content.withArtifact(func(artifact domain.Artifact) {
		state, err = c.quiz.Start(artifact)
	})
	if !ok {
		c.notes.Error("Generate a lesson first")
		return c.quiz.State(), domain.ErrNoArtifact
	}
	c.changed()
	return state, err
}

// RegisterForQuiz captures the participant identity during AwaitingIdentity.
func (c *Client) RegisterForQuiz(ctx context.Context, name, email string) (domain.QuizState, error) {
	defer c.track()()
	state, err := c.quiz.RegisterForQuiz(ctx, name, email)
	c.changed()
	return state, err
}

// CancelIdentity leaves identity capture.
func (c *Client) CancelIdentity() {
	c.quiz.CancelIdentity()
	c.changed()
}

// SubmitAnswer answers the current question.
func (c *Client) SubmitAnswer(label string) (domain.QuizState, error) {
	state, err := c.quiz.SubmitAnswer(label)
	c.changed()
	return state, err
}

// ExitQuiz discards quiz progress.
func (c *Client) ExitQuiz() {
	c.quiz.Exit()
	c.changed()
}

// Quiz returns the quiz state and, while in progress, the current question.
func (c *Client) Quiz() (domain.QuizState, *domain.Question) {
	return c.quiz.snapshot()
}

// Dashboard returns the last dashboard aggregate.
func (c *Client) Dashboard() domain.Dashboard {
	return c.dashboard.Snapshot()
}

// RefreshDashboard refreshes the aggregate for the current actor.
func (c *Client) RefreshDashboard(ctx context.Context) (domain.Dashboard, error) {
	defer c.track()()
	dash, err := c.dashboard.Refresh(ctx, c.session.Actor())
	c.changed()
	return dash, err
}

// CreateClass creates a class owned by the current teacher.
func (c *Client) CreateClass(ctx context.Context, name, theme string) (domain.ClassCode, error) {
	actor := c.session.Actor()
	if !actor.Can(domain.CapManageClasses) {
		c.notes.Error("Only teachers can manage classes")
		return domain.ClassCode{}, fmt.Errorf("%w: %w", domain.ErrClassCreation, domain.ErrNotPermitted)
	}

	class := domain.NewClass{Name: strings.TrimSpace(name), Theme: strings.TrimSpace(theme), TeacherID: actor.ID()}
	if err := c.validate.Struct(class); err != nil {
		msg := c.validate.Message(err)
		c.notes.Error(msg)
		return domain.ClassCode{}, fmt.Errorf("%w: %s", domain.ErrClassCreation, msg)
	}

	done := c.track()
	code, err := c.backend.CreateClass(ctx, class)
	done()
	if err != nil {
		c.notes.Error(failureMessage(err, "Could not create the class"))
		return domain.ClassCode{}, fmt.Errorf("%w: %w", domain.ErrClassCreation, err)
	}
	c.notes.Info("Class created. Code: " + code.Code)
	c.background(func(ctx context.Context) {
		_, _ = c.dashboard.Refresh(ctx, actor)
	})
	return code, nil
}

// Dismiss removes a notification early.
func (c *Client) Dismiss(id int64) bool {
	return c.notes.Dismiss(id)
}

func (c *Client) recordAttempt(artifact domain.Artifact, state domain.QuizState) {
	actor := c.session.Actor()
	entry := domain.HistoryEntry{
		Type:        "quiz",
		UserID:      actor.ID(),
		StudentName: actor.Name(),
		Theme:       artifact.Topic,
		Score:       state.Score,
		Total:       state.Total,
		Percentage:  state.Percentage(),
		Details:     fmt.Sprintf("%d/%d correct", state.Score, state.Total),
	}
	c.background(func(ctx context.Context) {
		if err := c.backend.SaveHistory(ctx, entry); err != nil {
			c.log.Warn().Err(err).Str("topic", entry.Theme).Msg("attempt not recorded")
			return
		}
		if actor.Role != domain.RoleAnonymous {
			_, _ = c.dashboard.Refresh(ctx, actor)
		}
	})
}

// Snapshot is everything the presentation layer renders.
type Snapshot struct {
	Actor         domain.Actor               `json:"actor"`
	View          domain.View                `json:"view"`
	BackendURL    string                     `json:"backendUrl"`
	HasAPIKey     bool                       `json:"hasApiKey"`
	Capabilities  map[domain.Capability]bool `json:"capabilities"`
	Pending       bool                       `json:"pending"`
	Artifact      *domain.Artifact           `json:"artifact,omitempty"`
	Quiz          domain.QuizState           `json:"quiz"`
	Question      *domain.Question           `json:"question,omitempty"`
	Dashboard     domain.Dashboard           `json:"dashboard"`
	Notifications []domain.Notification      `json:"notifications"`
}

// Snapshot collects the current session state.
func (c *Client) Snapshot() Snapshot {
	actor := c.session.Actor()
	settings := c.Settings()
	caps := make(map[domain.Capability]bool)
	for _, capability := range domain.Capabilities() {
		caps[capability] = actor.Can(capability)
	}

	snap := Snapshot{
		Actor:         actor,
		View:          c.View(),
		BackendURL:    settings.BackendURL,
		HasAPIKey:     settings.APIKey != "",
		Pending:       c.Pending(),
		Capabilities:  caps,
		Dashboard:     c.dashboard.Snapshot(),
		Notifications: c.notes.Active(),
	}
	if artifact, ok := c.content.Artifact(); ok {
		snap.Artifact = &artifact
	}
	snap.Quiz, snap.Question = c.Quiz()
	return snap
}
