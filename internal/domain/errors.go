package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth is returned when login is rejected or cannot reach the backend.
	ErrAuth = errors.New("authentication failed")
	// ErrGeneration covers every failure of the content collaborator.
	ErrGeneration = errors.New("content generation failed")
	// ErrEnroll is returned when a join code cannot be bound.
	ErrEnroll = errors.New("class enrollment failed")
	// ErrFetch is returned when the dashboard could not be refreshed.
	ErrFetch = errors.New("dashboard fetch failed")
	// ErrRegistration is returned when quiz signup fails.
	ErrRegistration = errors.New("registration failed")
	// ErrClassCreation is returned when the backend refuses a new class.
	ErrClassCreation = errors.New("class creation failed")

	ErrEmptyTopic       = errors.New("topic is empty")
	ErrMissingAPIKey    = errors.New("api key not configured")
	ErrEmptyJoinCode    = errors.New("join code is empty")
	ErrNameRequired     = errors.New("name is required")
	ErrNoArtifact       = errors.New("no generated content")
	ErrQuizNotActive    = errors.New("quiz is not in progress")
	ErrNotAuthenticated = errors.New("no authenticated actor")
	ErrNotPermitted     = errors.New("action not permitted for role")
	ErrInvalidArtifact  = errors.New("invalid artifact")
	ErrMalformed        = errors.New("malformed response")
)

// RejectionError is a structured refusal returned by a collaborator.
type RejectionError struct {
	Status  int
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rejected with status %d", e.Status)
	}
	return fmt.Sprintf("rejected with status %d: %s", e.Status, e.Message)
}

// RejectionMessage returns the collaborator-supplied message carried by err,
// if any.
func RejectionMessage(err error) (string, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) && rej.Message != "" {
		return rej.Message, true
	}
	return "", false
}
