package interview

import (
	"math"
	"sort"
	"strings"
	"time"
)

// UserAnswer is a candidate's answer. Question holds the question text and is
// the only key joining the answer back to its question.
type UserAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// CheckAnswer is a candidate's answer to a check question.
type CheckAnswer struct {
	Question string `json:"question"`
	Answer   YesNo  `json:"answer"`
}

// FindAnswer returns the first answer whose question text equals question
// exactly. Questions sharing the same text therefore share the same answer.
func FindAnswer(answers []UserAnswer, question string) (UserAnswer, bool) {
	for _, a := range answers {
		if a.Question == question {
			return a, true
		}
	}
	return UserAnswer{}, false
}

type CriterionGrade struct {
	Criterion     string  `json:"criterion"`
	Grade         float64 `json:"grade"`
	Justification string  `json:"justification"`
}

// QuestionGrade is the model's grade for one behavioral question. The
// originality fields stay unset when no comparison was possible, which is
// different from a score of zero.
type QuestionGrade struct {
	Question                 string           `json:"question"`
	Grade                    float64          `json:"grade"`
	Justification            string           `json:"justification"`
	CriterionGrades          []CriterionGrade `json:"criterionGrades"`
	OriginalityScore         *float64         `json:"originalityScore,omitempty"`
	OriginalityJustification string           `json:"originalityJustification,omitempty"`
}

type EvaluationResult struct {
	GlobalGrade         float64         `json:"globalGrade"`
	Summary             string          `json:"summary"`
	Strengths           TextList        `json:"strengths"`
	AreasForImprovement TextList        `json:"areasForImprovement"`
	QuestionGrades      []QuestionGrade `json:"questionGrades"`
	CandidateFeedback   string          `json:"candidateFeedback,omitempty"`
}

// MaxFollowUpQuestions bounds the follow-up questions of a CV analysis.
const MaxFollowUpQuestions = 3

type CvEvaluationResult struct {
	MatchScore            float64    `json:"matchScore"`
	Summary               string     `json:"summary"`
	Strengths             TextList   `json:"strengths"`
	Weaknesses            TextList   `json:"weaknesses"`
	FollowUpQuestions     []Question `json:"followUpQuestions"`
	AnalysisJustification string     `json:"analysisJustification,omitempty"`
}

// Vacancy owns the job details and the question script shown to candidates.
type Vacancy struct {
	ID        string     `json:"id"`
	Job       JobDetails `json:"job"`
	Questions []Question `json:"questions"`
	Keywords  []string   `json:"keywords,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// CandidateResult is one candidate's state within a vacancy.
type CandidateResult struct {
	ID                string              `json:"id"`
	VacancyID         string              `json:"vacancyId"`
	Name              string              `json:"name"`
	Answers           []UserAnswer        `json:"answers"`
	CheckAnswers      []CheckAnswer       `json:"checkAnswers"`
	Evaluation        *EvaluationResult   `json:"evaluation,omitempty"`
	CVEvaluation      *CvEvaluationResult `json:"cvEvaluation,omitempty"`
	PersonalQuestions []Question          `json:"personalQuestions,omitempty"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// Script returns the questions this candidate answers: the vacancy questions
// followed by the candidate's personal questions.
func (c *CandidateResult) Script(v *Vacancy) []Question {
	out := make([]Question, 0, len(v.Questions)+len(c.PersonalQuestions))
	out = append(out, v.Questions...)
	out = append(out, c.PersonalQuestions...)
	return out
}

// PromoteFollowUps copies the CV follow-up questions into the candidate's
// personal questions, skipping texts already present. It returns the number
// of questions added.
func (c *CandidateResult) PromoteFollowUps() int {
	if c.CVEvaluation == nil {
		return 0
	}

	seen := make(map[string]bool, len(c.PersonalQuestions))
	for _, q := range c.PersonalQuestions {
		seen[q.Text] = true
	}

	added := 0
	for _, q := range c.CVEvaluation.FollowUpQuestions {
		if seen[q.Text] {
			continue
		}
		q.Type = TypeBehavioral
		c.PersonalQuestions = append(c.PersonalQuestions, q)
		seen[q.Text] = true
		added++
	}
	return added
}

// QuestionRanking returns the question grades of a result, best first.
func QuestionRanking(result *EvaluationResult) []QuestionGrade {
	if result == nil {
		return nil
	}
	out := append([]QuestionGrade(nil), result.QuestionGrades...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Grade > out[j].Grade })
	return out
}

// RoundGrade rounds to one decimal.
func RoundGrade(v float64) float64 {
	return math.Round(v*10) / 10
}

// AnswerText returns the trimmed answer for question, or "" when missing.
func AnswerText(answers []UserAnswer, question string) string {
	a, ok := FindAnswer(answers, question)
	if !ok {
		return ""
	}
	return strings.TrimSpace(a.Answer)
}
