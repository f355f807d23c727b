package pipeline

import (
	"fmt"
	"strings"

	"github.com/spigell/interviewer/internal/interview"
)

// NoAnswerMarker stands in for an answer the candidate never gave.
const NoAnswerMarker = "(no answer)"

// BuildTranscript renders the evidence shown to the grading model: every
// behavioral question in order with its rubric and the candidate's answer,
// matched by exact question text.
func BuildTranscript(questions []interview.Question, answers []interview.UserAnswer) string {
	var b strings.Builder
	n := 0
	for _, q := range questions {
		if !q.IsBehavioral() {
			continue
		}
		n++
		if n > 1 {
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "Question %d: %s\n", n, q.Text)
		b.WriteString("Criteria:\n")
		for _, c := range q.Criteria {
			fmt.Fprintf(&b, "- %s (%d pts)\n", c.Text, c.Points)
		}

		answer := interview.AnswerText(answers, q.Text)
		if answer == "" {
			answer = NoAnswerMarker
		}
		fmt.Fprintf(&b, "Answer: %s\n", answer)
	}
	return b.String()
}

// answersTranscript flattens raw answers into question/answer pairs.
func answersTranscript(answers []interview.UserAnswer) string {
	var b strings.Builder
	for i, a := range answers {
		if i > 0 {
			b.WriteString("\n")
		}
		answer := strings.TrimSpace(a.Answer)
		if answer == "" {
			answer = NoAnswerMarker
		}
		fmt.Fprintf(&b, "question: %s\nanswer: %s\n", a.Question, answer)
	}
	return b.String()
}
