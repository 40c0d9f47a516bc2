package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"studytec-client/internal/domain"
)

// GuestDisplayName is the placeholder name given to every joined guest.
const GuestDisplayName = "Visitor"

const (
	msgEnterClassCode = "Enter a class code"
	msgJoinFailed     = "Could not join the class"
)

// ClassJoiner resolves join codes on the backend.
type ClassJoiner interface {
	JoinClass(ctx context.Context, code string) (domain.ClassRef, error)
}

// ClassEnrollment binds the current actor to a class as a guest.
type ClassEnrollment struct {
	backend ClassJoiner
	session *SessionContext
	notes   *NotificationQueue
	log     zerolog.Logger
}

func NewClassEnrollment(backend ClassJoiner, session *SessionContext, notes *NotificationQueue, log zerolog.Logger) *ClassEnrollment {
	return &ClassEnrollment{
		backend: backend,
		session: session,
		notes:   notes,
		log:     log.With().Str("component", "enrollment").Logger(),
	}
}

// Join resolves code and replaces the actor with a fresh guest bound to the
// class. It never grants a role above guest.
func (e *ClassEnrollment) Join(ctx context.Context, code string) (domain.ClassRef, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		e.notes.Error(msgEnterClassCode)
		return domain.ClassRef{}, fmt.Errorf("%w: %w", domain.ErrEnroll, domain.ErrEmptyJoinCode)
	}

	ref, err := e.backend.JoinClass(ctx, code)
	if err != nil {
		e.notes.Error(failureMessage(err, msgJoinFailed))
		e.log.Info().Err(err).Str("code", code).Msg("join failed")
		return domain.ClassRef{}, fmt.Errorf("%w: %w", domain.ErrEnroll, err)
	}

	e.session.replaceActor(domain.Actor{
		Role: domain.RoleGuest,
		Identity: &domain.Identity{
			Name:      GuestDisplayName,
			ClassID:   ref.ID,
			ClassCode: code,
		},
	})
	e.notes.Info("Joined class: " + ref.Name)
	return ref, nil
}
