package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"studytec-client/internal/domain"
)

const (
	msgEnterName          = "Enter your name to start the quiz"
	msgRegistrationFailed = "Registration failed"
)

// Registrar creates student identities on the backend.
type Registrar interface {
	Register(ctx context.Context, reg domain.Registration) (domain.UserRecord, error)
}

// QuizSession walks the questions of one artifact:
//
//	Idle -> AwaitingIdentity -> InProgress -> Finished
//	Idle -> InProgress (actor already identified)
//	InProgress -> Idle (exit)
type QuizSession struct {
	registrar Registrar
	session   *SessionContext
	notes     *NotificationQueue
	log       zerolog.Logger

	// onFinish is wired by Client to record the attempt.
	onFinish func(domain.Artifact, domain.QuizState)

	mu       sync.Mutex
	epoch    uint64
	artifact *domain.Artifact
	state    domain.QuizState
}

func NewQuizSession(registrar Registrar, session *SessionContext, notes *NotificationQueue, log zerolog.Logger) *QuizSession {
	return &QuizSession{
		registrar: registrar,
		session:   session,
		notes:     notes,
		log:       log.With().Str("component", "quiz").Logger(),
		state:     domain.QuizState{Phase: domain.QuizIdle},
	}
}

// State returns the current progression.
func (q *QuizSession) State() domain.QuizState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Current returns the question being asked while the quiz is in progress.
func (q *QuizSession) Current() (domain.Question, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state.Phase != domain.QuizInProgress || q.artifact == nil {
		return domain.Question{}, false
	}
	return q.artifact.Questions[q.state.CurrentIndex], true
}

func (q *QuizSession) snapshot() (domain.QuizState, *domain.Question) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state.Phase != domain.QuizInProgress || q.artifact == nil {
		return q.state, nil
	}
	question := q.artifact.Questions[q.state.CurrentIndex]
	return q.state, &question
}

// Start begins a fresh quiz over artifact. Actors without a captured
// identity are sent to identity capture first.
func (q *QuizSession) Start(artifact domain.Artifact) (domain.QuizState, error) {
	if len(artifact.Questions) == 0 {
		return q.State(), domain.ErrNoArtifact
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.epoch++
	q.artifact = &artifact
	q.state = domain.QuizState{Phase: domain.QuizAwaitingIdentity, Total: len(artifact.Questions)}
	if q.session.Actor().HasCapturedIdentity() {
		q.beginLocked()
	}
	return q.state, nil
}

func (q *QuizSession) beginLocked() {
	q.state = domain.QuizState{
		Phase: domain.QuizInProgress,
		Total: len(q.artifact.Questions),
	}
}

// RegisterForQuiz captures the participant's identity. On success the actor
// becomes a student and the quiz starts; on failure it keeps waiting.
func (q *QuizSession) RegisterForQuiz(ctx context.Context, name, email string) (domain.QuizState, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		q.notes.Error(msgEnterName)
		return q.State(), fmt.Errorf("%w: %w", domain.ErrRegistration, domain.ErrNameRequired)
	}

	q.mu.Lock()
	if q.state.Phase != domain.QuizAwaitingIdentity {
		state := q.state
		q.mu.Unlock()
		return state, fmt.Errorf("%w: quiz is %s", domain.ErrRegistration, state.Phase)
	}
	epoch := q.epoch
	q.mu.Unlock()

	current := q.session.Actor()
	reg := domain.Registration{
		Name:  name,
		Email: strings.TrimSpace(email),
		Type:  domain.RoleStudent.String(),
	}
	if current.Identity != nil && current.Identity.ClassCode != "" {
		code := current.Identity.ClassCode
		reg.ClassCode = &code
	}

	user, err := q.registrar.Register(ctx, reg)
	if err != nil {
		q.notes.Error(failureMessage(err, msgRegistrationFailed))
		q.log.Info().Err(err).Msg("quiz registration failed")
		return q.State(), fmt.Errorf("%w: %w", domain.ErrRegistration, err)
	}

	identity := identityFromUser(user)
	if identity.Name == "" {
		identity.Name = name
	}
	q.session.replaceActor(domain.Actor{Role: domain.RoleStudent, Identity: identity})

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.epoch == epoch && q.state.Phase == domain.QuizAwaitingIdentity {
		q.beginLocked()
	}
	return q.state, nil
}

// CancelIdentity abandons identity capture.
func (q *QuizSession) CancelIdentity() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state.Phase == domain.QuizAwaitingIdentity {
		q.resetLocked()
	}
}

// SubmitAnswer scores label against the current question and always moves
// to the next one. Answering the last question finishes the quiz.
func (q *QuizSession) SubmitAnswer(label string) (domain.QuizState, error) {
	q.mu.Lock()
	if q.state.Phase != domain.QuizInProgress {
		state := q.state
		q.mu.Unlock()
		return state, domain.ErrQuizNotActive
	}

	question := q.artifact.Questions[q.state.CurrentIndex]
	if label == question.Correct {
		q.state.Score++
	}
	q.state.CurrentIndex++

	finished := q.state.CurrentIndex >= len(q.artifact.Questions)
	if finished {
		q.state.Phase = domain.QuizFinished
	}
	state := q.state
	artifact := *q.artifact
	q.mu.Unlock()

	if finished {
		q.notes.Info(fmt.Sprintf("Quiz finished: %d/%d", state.Score, state.Total))
		if q.onFinish != nil {
			q.onFinish(artifact, state)
		}
	}
	return state, nil
}

// Exit discards any progress without recording a score.
func (q *QuizSession) Exit() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetLocked()
}

// Invalidate drops the quiz because its artifact was replaced or discarded.
func (q *QuizSession) Invalidate() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetLocked()
	q.artifact = nil
}

func (q *QuizSession) resetLocked() {
	q.epoch++
	q.state = domain.QuizState{Phase: domain.QuizIdle}
}

// reevaluate re-applies identity gating after the actor changed.
func (q *QuizSession) reevaluate(actor domain.Actor) {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch q.state.Phase {
	case domain.QuizInProgress:
		if !actor.HasCapturedIdentity() {
			q.resetLocked()
		}
	case domain.QuizAwaitingIdentity:
		if actor.HasCapturedIdentity() && q.artifact != nil {
			q.beginLocked()
		}
	}
}
