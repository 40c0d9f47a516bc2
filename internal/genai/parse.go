package genai

import (
	"encoding/json"
	"fmt"
	"strings"

	"studytec-client/internal/domain"
	"studytec-client/internal/validator"
)

type wireArtifact struct {
	Topic       string          `json:"topic" validate:"required"`
	Explanation wireExplanation `json:"module3_explanation"`
	Quiz        wireQuiz        `json:"module6_quiz"`
}

type wireExplanation struct {
	Simple    string `json:"simple" validate:"required"`
	Technical string `json:"technical" validate:"required"`
	Advanced  string `json:"advanced" validate:"required"`
}

type wireQuiz struct {
	Questions []wireQuestion `json:"questions" validate:"required,min=1,dive"`
	AnswerKey []wireKey      `json:"answerKey" validate:"dive"`
}

type wireQuestion struct {
	Q          string   `json:"q" validate:"required"`
	Options    []string `json:"options" validate:"min=2,max=26,dive,required"`
	Correct    string   `json:"correct" validate:"required"`
	Difficulty string   `json:"difficulty" validate:"required"`
}

type wireKey struct {
	ID          int    `json:"id" validate:"min=1"`
	Correct     string `json:"correct"`
	Explanation string `json:"explanation"`
}

// StripFences removes a surrounding markdown code fence, if any.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		rest = strings.TrimPrefix(rest, "json")
	}
	if end := strings.LastIndex(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// ParseArtifact decodes completion text into a validated artifact.
func ParseArtifact(v *validator.Validator, text string) (domain.Artifact, error) {
	var wire wireArtifact
	if err := json.Unmarshal([]byte(StripFences(text)), &wire); err != nil {
		return domain.Artifact{}, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	if err := v.Struct(wire); err != nil {
		return domain.Artifact{}, fmt.Errorf("%w: %s", domain.ErrInvalidArtifact, v.Message(err))
	}

	artifact := domain.Artifact{
		Topic: strings.TrimSpace(wire.Topic),
		Explanation: domain.Explanation{
			Simple:    wire.Explanation.Simple,
			Technical: wire.Explanation.Technical,
			Advanced:  wire.Explanation.Advanced,
		},
		Questions: make([]domain.Question, 0, len(wire.Quiz.Questions)),
		AnswerKey: make(map[int]domain.AnswerKeyEntry, len(wire.Quiz.AnswerKey)),
	}

	for i, wq := range wire.Quiz.Questions {
		difficulty, ok := domain.ParseDifficulty(wq.Difficulty)
		if !ok {
			return domain.Artifact{}, fmt.Errorf("%w: question %d has unknown difficulty %q", domain.ErrInvalidArtifact, i+1, wq.Difficulty)
		}
		q := domain.Question{
			ID:         i + 1,
			Text:       wq.Q,
			Options:    wq.Options,
			Correct:    strings.TrimSpace(wq.Correct),
			Difficulty: difficulty,
		}
		if !q.HasLabel(q.Correct) {
			return domain.Artifact{}, fmt.Errorf("%w: question %d has no option %q", domain.ErrInvalidArtifact, i+1, wq.Correct)
		}
		artifact.Questions = append(artifact.Questions, q)
	}

	for _, key := range wire.Quiz.AnswerKey {
		if key.ID > len(artifact.Questions) {
			return domain.Artifact{}, fmt.Errorf("%w: answer key references question %d", domain.ErrInvalidArtifact, key.ID)
		}
		if _, dup := artifact.AnswerKey[key.ID]; dup {
			return domain.Artifact{}, fmt.Errorf("%w: duplicate answer key for question %d", domain.ErrInvalidArtifact, key.ID)
		}
		artifact.AnswerKey[key.ID] = domain.AnswerKeyEntry{
			QuestionID:  key.ID,
			Correct:     strings.TrimSpace(key.Correct),
			Explanation: key.Explanation,
		}
	}

	return artifact, nil
}
