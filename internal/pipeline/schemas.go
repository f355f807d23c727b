package pipeline

import (
	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/interview"
)

func criterionSchema() *ai.Schema {
	return ai.Object(map[string]*ai.Schema{
		"text":   ai.String().NotEmpty(),
		"points": ai.Integer().Between(0, interview.MaxCriterionPoints).Describe("integer points; the three criteria of a question sum to 10"),
	}, "text", "points")
}

func behavioralQuestionSchema() *ai.Schema {
	return ai.Object(map[string]*ai.Schema{
		"question": ai.String().NotEmpty(),
		"criteria": ai.Array(criterionSchema()).Exactly(interview.CriteriaPerQuestion),
	}, "question", "criteria")
}

func questionsSchema(n int) *ai.Schema {
	return ai.Object(map[string]*ai.Schema{
		"questions": ai.Array(behavioralQuestionSchema()).Exactly(n),
	}, "questions")
}

func evaluationSchema() *ai.Schema {
	criterionGrade := ai.Object(map[string]*ai.Schema{
		"criterion":     ai.String(),
		"grade":         ai.Number().Between(0, 10),
		"justification": ai.String(),
	}, "criterion", "grade", "justification")

	questionGrade := ai.Object(map[string]*ai.Schema{
		"question":        ai.String().NotEmpty(),
		"grade":           ai.Number().Between(0, 10),
		"justification":   ai.String(),
		"criterionGrades": ai.Array(criterionGrade),
	}, "question", "grade", "justification", "criterionGrades")

	return ai.Object(map[string]*ai.Schema{
		"globalGrade":         ai.Number().Between(0, 10).Describe("overall grade from 0 to 10 with one decimal"),
		"summary":             ai.String(),
		"strengths":           ai.TextList(),
		"areasForImprovement": ai.TextList(),
		"questionGrades":      ai.Array(questionGrade),
	}, "globalGrade", "summary", "strengths", "areasForImprovement", "questionGrades")
}

func originalitySchema() *ai.Schema {
	return ai.Object(map[string]*ai.Schema{
		"score":         ai.Number().Between(0, 100).Describe("0 means clearly human, 100 means very likely AI-authored"),
		"justification": ai.String().NotEmpty(),
	}, "score", "justification")
}

func cvSchema() *ai.Schema {
	return ai.Object(map[string]*ai.Schema{
		"matchScore":            ai.Number().Between(0, 10),
		"summary":               ai.String(),
		"strengths":             ai.TextList(),
		"weaknesses":            ai.TextList(),
		"analysisJustification": ai.String(),
		"followUpQuestions":     ai.Array(behavioralQuestionSchema()).Len(0, interview.MaxFollowUpQuestions),
	}, "matchScore", "summary", "strengths", "weaknesses", "followUpQuestions")
}

func keywordsSchema() *ai.Schema {
	return ai.Object(map[string]*ai.Schema{
		"keywords": ai.Array(ai.String()),
	}, "keywords")
}

// generatedQuestion is the wire shape of a behavioral question.
type generatedQuestion struct {
	Question string                `json:"question"`
	Criteria []interview.Criterion `json:"criteria"`
}

func (g generatedQuestion) behavioral() interview.Question {
	return interview.NewBehavioral(g.Question, g.Criteria...)
}

func toQuestions(generated []generatedQuestion) []interview.Question {
	out := make([]interview.Question, 0, len(generated))
	for _, g := range generated {
		out = append(out, g.behavioral())
	}
	return out
}
