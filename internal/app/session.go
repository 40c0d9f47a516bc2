package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"studytec-client/internal/domain"
	"studytec-client/internal/validator"
)

const (
	msgLoginOK         = "Login OK"
	msgConnectionError = "Connection error. Check the API URL."
	msgMalformedReply  = "Unexpected reply from the server."
)

// Authenticator is the backend surface SessionContext needs.
type Authenticator interface {
	Login(ctx context.Context, creds domain.Credentials) (domain.UserRecord, error)
}

// SessionContext owns the single current Actor. replaceActor is the only
// mutation path.
type SessionContext struct {
	auth     Authenticator
	notes    *NotificationQueue
	validate *validator.Validator
	log      zerolog.Logger

	mu        sync.RWMutex
	actor     domain.Actor
	listeners []func(domain.Actor)
}

func NewSessionContext(auth Authenticator, notes *NotificationQueue, v *validator.Validator, log zerolog.Logger) *SessionContext {
	return &SessionContext{
		auth:     auth,
		notes:    notes,
		validate: v,
		log:      log.With().Str("component", "session").Logger(),
		actor:    domain.AnonymousActor(),
	}
}

// Actor returns a copy of the current actor.
func (s *SessionContext) Actor() domain.Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actor.Clone()
}

// Can reports whether the current actor holds capability c.
func (s *SessionContext) Can(c domain.Capability) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actor.Can(c)
}

// OnChange registers fn to run after every actor replacement.
func (s *SessionContext) OnChange(fn func(domain.Actor)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *SessionContext) replaceActor(next domain.Actor) {
	next = next.Clone()
	if next.Role == domain.RoleAnonymous {
		next = domain.AnonymousActor()
	}

	s.mu.Lock()
	s.actor = next
	listeners := append([]func(domain.Actor){}, s.listeners...)
	s.mu.Unlock()

	s.log.Debug().Stringer("role", next.Role).Msg("actor replaced")
	for _, fn := range listeners {
		fn(next.Clone())
	}
}

// Login authenticates against the backend and replaces the actor on
// success. Failures leave the actor unchanged and post an error.
func (s *SessionContext) Login(ctx context.Context, creds domain.Credentials) (domain.Actor, error) {
	if err := s.validate.Struct(creds); err != nil {
		msg := s.validate.Message(err)
		s.notes.Error(msg)
		return domain.Actor{}, fmt.Errorf("%w: %s", domain.ErrAuth, msg)
	}

	user, err := s.auth.Login(ctx, creds)
	if err != nil {
		s.notes.Error(failureMessage(err, msgConnectionError))
		s.log.Info().Err(err).Str("user", creds.User).Msg("login failed")
		return domain.Actor{}, fmt.Errorf("%w: %w", domain.ErrAuth, err)
	}

	role, ok := domain.ParseRole(user.Type)
	if !ok {
		s.notes.Error(msgMalformedReply)
		return domain.Actor{}, fmt.Errorf("%w: %w: unknown user type %q", domain.ErrAuth, domain.ErrMalformed, user.Type)
	}

	actor := domain.Actor{Role: role, Identity: identityFromUser(user)}
	s.replaceActor(actor)
	s.notes.Info(msgLoginOK)
	return actor, nil
}

// Logout resets the actor to anonymous.
func (s *SessionContext) Logout() {
	s.replaceActor(domain.AnonymousActor())
}

func identityFromUser(user domain.UserRecord) *domain.Identity {
	return &domain.Identity{
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		ClassID: user.ClassID,
	}
}

// failureMessage picks the text shown for a collaborator failure: the
// structured rejection message when there is one, a malformed-reply notice
// for undecodable replies, otherwise the generic fallback.
func failureMessage(err error, fallback string) string {
	if msg, ok := domain.RejectionMessage(err); ok {
		return msg
	}
	var rej *domain.RejectionError
	if errors.Is(err, domain.ErrMalformed) || errors.As(err, &rej) {
		return msgMalformedReply
	}
	return fallback
}
