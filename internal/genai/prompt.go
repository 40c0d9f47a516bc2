package genai

import "fmt"

const promptTemplate = `Generate a JSON lesson about "%s". Reply with JSON only, in exactly this shape:
{
  "topic": "...",
  "module3_explanation": {"simple": "...", "technical": "...", "advanced": "..."},
  "module6_quiz": {
    "questions": [{"q": "...", "options": ["...", "..."], "correct": "A", "difficulty": "Easy"}],
    "answerKey": [{"id": 1, "correct": "A", "explanation": "..."}]
  }
}
Rules: "correct" is the letter of the right option (A for the first option, B for the second, ...).
"difficulty" is one of Easy, Medium, Hard. "answerKey" ids are the 1-based question positions.`

// BuildPrompt returns the generation prompt for topic.
func BuildPrompt(topic string) string {
	return fmt.Sprintf(promptTemplate, topic)
}
