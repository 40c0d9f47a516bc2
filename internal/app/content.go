package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"studytec-client/internal/domain"
)

const (
	msgConfigureAPIKey  = "Configure the API key"
	msgGenerationFailed = "AI generation failed"
)

// Generator produces an artifact for a topic. Implementations wrap every
// failure in domain.ErrGeneration.
type Generator interface {
	Generate(ctx context.Context, topic, apiKey string) (domain.Artifact, error)
}

// ContentService holds the single generated artifact.
type ContentService struct {
	gen   Generator
	notes *NotificationQueue
	log   zerolog.Logger

	// hooks wired by Client
	onReplace     func(domain.Artifact)
	onDiscard     func()
	onNeedsConfig func()

	mu       sync.RWMutex
	artifact *domain.Artifact
}

func NewContentService(gen Generator, notes *NotificationQueue, log zerolog.Logger) *ContentService {
	return &ContentService{
		gen:   gen,
		notes: notes,
		log:   log.With().Str("component", "content").Logger(),
	}
}

// Generate requests a new artifact. With an empty topic or key no call is
// made: the caller is sent to configuration and an error is posted.
func (s *ContentService) Generate(ctx context.Context, topic, apiKey string) (domain.Artifact, error) {
	topic = strings.TrimSpace(topic)
	apiKey = strings.TrimSpace(apiKey)
	if topic == "" || apiKey == "" {
		if s.onNeedsConfig != nil {
			s.onNeedsConfig()
		}
		s.notes.Error(msgConfigureAPIKey)
		cause := domain.ErrMissingAPIKey
		if topic == "" {
			cause = domain.ErrEmptyTopic
		}
		return domain.Artifact{}, fmt.Errorf("%w: %w", domain.ErrGeneration, cause)
	}

	artifact, err := s.gen.Generate(ctx, topic, apiKey)
	if err != nil {
		s.notes.Error(msgGenerationFailed)
		s.log.Warn().Err(err).Str("topic", topic).Msg("generation failed")
		if !errors.Is(err, domain.ErrGeneration) {
			err = fmt.Errorf("%w: %w", domain.ErrGeneration, err)
		}
		return domain.Artifact{}, err
	}
	if len(artifact.Questions) == 0 {
		s.notes.Error(msgGenerationFailed)
		return domain.Artifact{}, fmt.Errorf("%w: %w: no questions", domain.ErrGeneration, domain.ErrInvalidArtifact)
	}

	// the quiz is invalidated under the same lock so no reader sees the new
	// artifact paired with old progress
	s.mu.Lock()
	s.artifact = &artifact
	if s.onReplace != nil {
		s.onReplace(artifact)
	}
	s.mu.Unlock()

	s.log.Info().Str("topic", artifact.Topic).Int("questions", len(artifact.Questions)).Msg("artifact generated")
	return artifact, nil
}

// Artifact returns the held artifact, if any.
func (s *ContentService) Artifact() (domain.Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.artifact == nil {
		return domain.Artifact{}, false
	}
	return *s.artifact, true
}

// withArtifact runs fn on the held artifact while replacement is blocked.
// It reports false when there is no artifact.
func (s *ContentService) withArtifact(fn func(domain.Artifact)) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.artifact == nil {
		return false
	}
	fn(*s.artifact)
	return true
}

// Reset discards the held artifact.
func (s *ContentService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact = nil
	if s.onDiscard != nil {
		s.onDiscard()
	}
}
