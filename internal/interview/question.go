package interview

import (
	"fmt"
	"strings"
)

const (
	// CriteriaPerQuestion is the number of criteria in every behavioral rubric.
	CriteriaPerQuestion = 3
	// CriteriaPointsTotal is the sum the points of one rubric must reach.
	CriteriaPointsTotal = 10
	// MaxCriterionPoints bounds the points of a single criterion.
	MaxCriterionPoints = 10
)

// QuestionType discriminates the Question variants.
type QuestionType string

const (
	TypeBehavioral QuestionType = "behavioral"
	TypeCheck      QuestionType = "check"
)

// YesNo is the answer domain of check questions.
type YesNo string

const (
	Yes YesNo = "yes"
	No  YesNo = "no"
)

// ParseYesNo normalizes free-form yes/no input. ok is false for anything else.
func ParseYesNo(s string) (YesNo, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true":
		return Yes, true
	case "no", "n", "false":
		return No, true
	default:
		return "", false
	}
}

// Criterion is one weighted part of a behavioral question rubric.
type Criterion struct {
	Text   string `json:"text"`
	Points int    `json:"points"`
}

// Question is either a behavioral question scored by the model against its
// criteria or a yes/no check question graded by equality.
//
// Behavioral questions use Criteria and, once generated, BaselineAnswer.
// Check questions use ExpectedAnswer.
type Question struct {
	Type           QuestionType `json:"type"`
	Text           string       `json:"question"`
	Criteria       []Criterion  `json:"criteria,omitempty"`
	BaselineAnswer string       `json:"baselineAnswer,omitempty"`
	ExpectedAnswer YesNo        `json:"expectedAnswer,omitempty"`
}

func NewBehavioral(text string, criteria ...Criterion) Question {
	return Question{Type: TypeBehavioral, Text: text, Criteria: criteria}
}

func NewCheck(text string, expected YesNo) Question {
	return Question{Type: TypeCheck, Text: text, ExpectedAnswer: expected}
}

func (q Question) IsBehavioral() bool { return q.Type == TypeBehavioral }

func (q Question) IsCheck() bool { return q.Type == TypeCheck }

// HasBaseline reports whether an ideal answer is available for comparison.
func (q Question) HasBaseline() bool {
	return strings.TrimSpace(q.BaselineAnswer) != ""
}

// PointsSum returns the total points of the rubric.
func (q Question) PointsSum() int {
	sum := 0
	for _, c := range q.Criteria {
		sum += c.Points
	}
	return sum
}

// Validate checks the structural and rubric invariants of a single question.
func (q Question) Validate() error {
	var problems []string
	if strings.TrimSpace(q.Text) == "" {
		problems = append(problems, "question text is empty")
	}

	switch q.Type {
	case TypeBehavioral:
		problems = append(problems, rubricProblems(q.Criteria)...)
	case TypeCheck:
		if q.ExpectedAnswer != Yes && q.ExpectedAnswer != No {
			problems = append(problems, fmt.Sprintf("expected answer must be %q or %q", Yes, No))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown question type %q", q.Type))
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: []Problem{{Index: -1, Question: q.Text, Reasons: problems}}}
}

func rubricProblems(criteria []Criterion) []string {
	var problems []string
	if len(criteria) != CriteriaPerQuestion {
		problems = append(problems, fmt.Sprintf("expected %d criteria, got %d", CriteriaPerQuestion, len(criteria)))
	}

	sum := 0
	for i, c := range criteria {
		if strings.TrimSpace(c.Text) == "" {
			problems = append(problems, fmt.Sprintf("criterion %d has no text", i+1))
		}
		if c.Points < 0 || c.Points > MaxCriterionPoints {
			problems = append(problems, fmt.Sprintf("criterion %d points %d out of range [0,%d]", i+1, c.Points, MaxCriterionPoints))
		}
		sum += c.Points
	}
	if sum != CriteriaPointsTotal {
		problems = append(problems, fmt.Sprintf("criteria points sum to %d, expected %d", sum, CriteriaPointsTotal))
	}

	return problems
}

// ValidateQuestions validates every question and reports all problems with
// their position in qs.
func ValidateQuestions(qs []Question) error {
	var all []Problem
	for i, q := range qs {
		err := q.Validate()
		if err == nil {
			continue
		}
		for _, p := range err.(*ValidationError).Problems {
			p.Index = i
			all = append(all, p)
		}
	}

	if len(all) == 0 {
		return nil
	}
	return &ValidationError{Problems: all}
}

// Behavioral returns the behavioral questions of qs in their original order.
func Behavioral(qs []Question) []Question {
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		if q.IsBehavioral() {
			out = append(out, q)
		}
	}
	return out
}

// Problem describes why one question is invalid. Index is the position in the
// validated list, or -1 for a standalone question.
type Problem struct {
	Index    int      `json:"index"`
	Question string   `json:"question"`
	Reasons  []string `json:"reasons"`
}

// ValidationError collects rubric and structure problems of questions.
type ValidationError struct {
	Problems []Problem `json:"problems"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		prefix := fmt.Sprintf("%q", p.Question)
		if p.Index >= 0 {
			prefix = fmt.Sprintf("question %d %s", p.Index+1, prefix)
		}
		parts = append(parts, prefix+": "+strings.Join(p.Reasons, ", "))
	}
	return "invalid questions: " + strings.Join(parts, "; ")
}
