package domain

import "strings"

// Difficulty is the closed set of question difficulties.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var difficultyAliases = map[string]Difficulty{
	"easy":    DifficultyEasy,
	"fácil":   DifficultyEasy,
	"facil":   DifficultyEasy,
	"medium":  DifficultyMedium,
	"médio":   DifficultyMedium,
	"medio":   DifficultyMedium,
	"média":   DifficultyMedium,
	"hard":    DifficultyHard,
	"difícil": DifficultyHard,
	"dificil": DifficultyHard,
}

// ParseDifficulty maps a collaborator-supplied label onto the closed set.
func ParseDifficulty(raw string) (Difficulty, bool) {
	d, ok := difficultyAliases[strings.ToLower(strings.TrimSpace(raw))]
	return d, ok
}

// Explanation holds the three difficulty tiers of the lesson text.
type Explanation struct {
	Simple    string `json:"simple"`
	Technical string `json:"technical"`
	Advanced  string `json:"advanced"`
}

// Question is one multiple-choice item. Options are labelled "A", "B", ...
// by position.
type Question struct {
	ID         int        `json:"id"`
	Text       string     `json:"text"`
	Options    []string   `json:"options"`
	Correct    string     `json:"correct"`
	Difficulty Difficulty `json:"difficulty"`
}

// Labels returns the option labels in order.
func (q Question) Labels() []string {
	labels := make([]string, len(q.Options))
	for i := range q.Options {
		labels[i] = OptionLabel(i)
	}
	return labels
}

// HasLabel reports whether label names one of the question's options.
func (q Question) HasLabel(label string) bool {
	i, ok := LabelIndex(label)
	return ok && i < len(q.Options)
}

// AnswerKeyEntry is the rationale for one question.
type AnswerKeyEntry struct {
	QuestionID  int    `json:"id"`
	Correct     string `json:"correct"`
	Explanation string `json:"explanation"`
}

// Artifact is a generated lesson with its quiz.
type Artifact struct {
	Topic       string                 `json:"topic"`
	Explanation Explanation            `json:"explanation"`
	Questions   []Question             `json:"questions"`
	AnswerKey   map[int]AnswerKeyEntry `json:"answerKey"`
}

// OptionLabel returns the label for the option at index i.
func OptionLabel(i int) string {
	if i < 0 || i >= 26 {
		return ""
	}
	return string(rune('A' + i))
}

// LabelIndex is the inverse of OptionLabel.
func LabelIndex(label string) (int, bool) {
	if len(label) != 1 || label[0] < 'A' || label[0] > 'Z' {
		return 0, false
	}
	return int(label[0] - 'A'), true
}

// QuizPhase is the state of a quiz session.
type QuizPhase string

const (
	QuizIdle             QuizPhase = "idle"
	QuizAwaitingIdentity QuizPhase = "awaiting_identity"
	QuizInProgress       QuizPhase = "in_progress"
	QuizFinished         QuizPhase = "finished"
)

// QuizState is the progression over the held artifact.
type QuizState struct {
	Phase        QuizPhase `json:"phase"`
	CurrentIndex int       `json:"currentIndex"`
	Score        int       `json:"score"`
	Total        int       `json:"total"`
}

// Percentage returns the score as a whole percentage of Total.
func (s QuizState) Percentage() int {
	if s.Total == 0 {
		return 0
	}
	return s.Score * 100 / s.Total
}
