package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/interview"
)

func gradeJSON(question string, grade float64) map[string]any {
	return map[string]any{
		"question":      question,
		"grade":         grade,
		"justification": "because",
		"criterionGrades": []any{
			map[string]any{"criterion": "criterion 1", "grade": grade, "justification": "ok"},
		},
	}
}

func evaluationJSON(t *testing.T, grades ...map[string]any) string {
	t.Helper()
	list := make([]any, 0, len(grades))
	for _, g := range grades {
		list = append(list, g)
	}
	return mustJSON(t, map[string]any{
		"globalGrade":         7.44,
		"summary":             "Solid candidate.",
		"strengths":           "- Clear examples\n- Calm under pressure",
		"areasForImprovement": []any{"Depth on testing"},
		"questionGrades":      list,
	})
}

func withBaseline(q interview.Question, baseline string) interview.Question {
	q.BaselineAnswer = baseline
	return q
}

func originalityQuestion(prompt string) string {
	q, _, _ := strings.Cut(strings.TrimPrefix(prompt, "ORIG "), "|")
	return q
}

func TestEvaluateOriginalityDegradesGracefully(t *testing.T) {
	criteria := []interview.Criterion{{Text: "a", Points: 3}, {Text: "b", Points: 3}, {Text: "c", Points: 4}}
	in := EvaluationInput{
		Job: testJob,
		Questions: []interview.Question{
			withBaseline(interview.NewBehavioral("Q1", criteria...), "ideal 1"),
			interview.NewCheck("Work permit?", interview.Yes),
			withBaseline(interview.NewBehavioral("Q2", criteria...), "ideal 2"),
			withBaseline(interview.NewBehavioral("Q3", criteria...), "ideal 3"),
		},
		Answers: []interview.UserAnswer{
			{Question: "Q1", Answer: "answer one"},
			{Question: "Q2", Answer: "answer two"},
			{Question: "Q3", Answer: "answer three"},
		},
	}

	backend := &routeBackend{handle: func(p string, _ *ai.Schema) (string, error) {
		switch {
		case strings.HasPrefix(p, "EVAL"):
			return evaluationJSON(t, gradeJSON("Q1", 8), gradeJSON("Q2", 6.04), gradeJSON("Q3", 9)), nil
		case strings.HasPrefix(p, "ORIG"):
			if originalityQuestion(p) == "Q2" {
				return "", errors.New("upstream unavailable")
			}
			return `{"score": 35, "justification": "specific details"}`, nil
		case strings.HasPrefix(p, "FEEDBACK"):
			return "  Great job overall.  ", nil
		}
		t.Errorf("unexpected prompt %q", p)
		return "", errors.New("unexpected prompt")
	}}
	core, logs := observer.New(zap.WarnLevel)

	result, err := newTestPipeline(t, backend, zap.New(core), Options{}).Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.QuestionGrades) != 3 {
		t.Fatalf("expected 3 question grades, got %d", len(result.QuestionGrades))
	}
	for _, grade := range result.QuestionGrades {
		if grade.OriginalityScore == nil {
			t.Fatalf("%s: originality score must be set", grade.Question)
		}
		if grade.Question == "Q2" {
			if *grade.OriginalityScore != 0 || grade.OriginalityJustification != OriginalityFallbackJustification {
				t.Fatalf("Q2 must fall back to a neutral score: %+v", grade)
			}
			continue
		}
		if *grade.OriginalityScore != 35 || grade.OriginalityJustification != "specific details" {
			t.Fatalf("%s: unexpected originality %+v", grade.Question, grade)
		}
	}

	if result.GlobalGrade != 7.4 {
		t.Fatalf("expected rounded global grade, got %v", result.GlobalGrade)
	}
	if result.QuestionGrades[1].Grade != 6 {
		t.Fatalf("expected rounded grade, got %v", result.QuestionGrades[1].Grade)
	}
	if len(result.Strengths) != 2 || result.Strengths[1] != "Calm under pressure" {
		t.Fatalf("strengths string must be normalized: %q", result.Strengths)
	}
	if len(result.AreasForImprovement) != 1 {
		t.Fatalf("unexpected areas: %q", result.AreasForImprovement)
	}
	if result.CandidateFeedback != "Great job overall." {
		t.Fatalf("unexpected feedback: %q", result.CandidateFeedback)
	}
	if logs.FilterMessage("originality scoring failed, using neutral score").Len() != 1 {
		t.Fatalf("expected one originality warning")
	}

	eval := backend.promptsWithPrefix("EVAL")
	if len(eval) != 1 || strings.Contains(eval[0], "Work permit?") {
		t.Fatalf("check questions must not reach the grading prompt: %q", eval)
	}
	feedback := backend.promptsWithPrefix("FEEDBACK")
	if len(feedback) != 1 || !strings.Contains(feedback[0], "- Clear examples") || !strings.Contains(feedback[0], "answer: answer two") {
		t.Fatalf("unexpected feedback prompt: %q", feedback)
	}
}

func TestEvaluateJoinsAnswersByExactText(t *testing.T) {
	criteria := []interview.Criterion{{Text: "a", Points: 5}, {Text: "b", Points: 3}, {Text: "c", Points: 2}}
	in := EvaluationInput{
		Job: testJob,
		Questions: []interview.Question{
			withBaseline(interview.NewBehavioral("Same?", criteria...), "ideal"),
			withBaseline(interview.NewBehavioral("Same?", criteria...), "ideal"),
			withBaseline(interview.NewBehavioral("Unanswered", criteria...), "ideal"),
			interview.NewBehavioral("No baseline", criteria...),
		},
		Answers: []interview.UserAnswer{
			{Question: "Same?", Answer: "shared answer"},
			{Question: "same?", Answer: "wrong case"},
			{Question: "No baseline", Answer: "something"},
		},
	}

	backend := &routeBackend{handle: func(p string, _ *ai.Schema) (string, error) {
		switch {
		case strings.HasPrefix(p, "EVAL"):
			return evaluationJSON(t,
				gradeJSON("Same?", 7), gradeJSON("Same?", 7), gradeJSON("Unanswered", 0), gradeJSON("No baseline", 5),
			), nil
		case strings.HasPrefix(p, "ORIG"):
			return `{"score": 80, "justification": "generic"}`, nil
		default:
			return "feedback", nil
		}
	}}

	result, err := newTestPipeline(t, backend, nil, Options{}).Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	orig := backend.promptsWithPrefix("ORIG")
	if len(orig) != 2 {
		t.Fatalf("expected 2 originality calls, got %q", orig)
	}
	for _, p := range orig {
		if p != "ORIG Same?|shared answer" {
			t.Fatalf("duplicate questions must share the matched answer: %q", p)
		}
	}

	for _, grade := range result.QuestionGrades {
		switch grade.Question {
		case "Same?":
			if grade.OriginalityScore == nil || *grade.OriginalityScore != 80 {
				t.Fatalf("duplicate question must be scored: %+v", grade)
			}
		default:
			if grade.OriginalityScore != nil {
				t.Fatalf("%s: score must stay unset, got %v", grade.Question, *grade.OriginalityScore)
			}
		}
	}

	eval := backend.promptsWithPrefix("EVAL")[0]
	if strings.Count(eval, "Answer: shared answer") != 2 {
		t.Fatalf("transcript must repeat the shared answer:\n%s", eval)
	}
	if !strings.Contains(eval, "Answer: "+NoAnswerMarker) {
		t.Fatalf("transcript must mark the missing answer:\n%s", eval)
	}
}

func TestEvaluateMissingGlobalGradeIsFatal(t *testing.T) {
	raw := `{"summary": "ok", "strengths": [], "areasForImprovement": [], "questionGrades": []}`
	backend := &routeBackend{handle: func(p string, _ *ai.Schema) (string, error) {
		if strings.HasPrefix(p, "EVAL") {
			return raw, nil
		}
		t.Errorf("no call may follow a failed grading: %q", p)
		return "", nil
	}}

	in := EvaluationInput{
		Job:       testJob,
		Questions: []interview.Question{interview.NewBehavioral("Q1", interview.Criterion{Text: "a", Points: 10})},
	}
	result, err := newTestPipeline(t, backend, nil, Options{}).Evaluate(context.Background(), in)
	if result != nil {
		t.Fatalf("no partial result may be returned")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageAnswerEvaluation {
		t.Fatalf("expected answer evaluation stage error, got %v", err)
	}
	if !errors.Is(err, ai.ErrSchema) || !strings.Contains(err.Error(), "globalGrade") {
		t.Fatalf("error must name the missing field: %v", err)
	}
	if ai.RawResponse(err) != raw {
		t.Fatalf("raw response must be attached")
	}
}

func TestEvaluateGlobalGradeOutOfRange(t *testing.T) {
	backend := &routeBackend{handle: func(string, *ai.Schema) (string, error) {
		return `{"globalGrade": 12, "summary": "", "strengths": "", "areasForImprovement": "", "questionGrades": []}`, nil
	}}
	in := EvaluationInput{
		Job:       testJob,
		Questions: []interview.Question{interview.NewBehavioral("Q1")},
	}

	if _, err := newTestPipeline(t, backend, nil, Options{}).Evaluate(context.Background(), in); !errors.Is(err, ai.ErrSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestEvaluateFeedbackFallback(t *testing.T) {
	backend := &routeBackend{handle: func(p string, _ *ai.Schema) (string, error) {
		if strings.HasPrefix(p, "EVAL") {
			return evaluationJSON(t, gradeJSON("Q1", 5)), nil
		}
		return "", errors.New("timeout")
	}}
	in := EvaluationInput{
		Job:       testJob,
		Questions: []interview.Question{interview.NewBehavioral("Q1")},
		Answers:   []interview.UserAnswer{{Question: "Q1", Answer: "hi"}},
	}

	result, err := newTestPipeline(t, backend, nil, Options{FeedbackFallback: "custom fallback"}).Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CandidateFeedback != "custom fallback" {
		t.Fatalf("unexpected feedback: %q", result.CandidateFeedback)
	}
	if result.QuestionGrades[0].OriginalityScore != nil {
		t.Fatalf("question without baseline must not be scored")
	}
}

func TestEvaluateWithoutBehavioralQuestions(t *testing.T) {
	backend := &routeBackend{handle: func(string, *ai.Schema) (string, error) {
		t.Fatal("generator must not be called")
		return "", nil
	}}
	in := EvaluationInput{Job: testJob, Questions: []interview.Question{interview.NewCheck("Permit?", interview.Yes)}}

	if _, err := newTestPipeline(t, backend, nil, Options{}).Evaluate(context.Background(), in); err == nil {
		t.Fatal("expected error")
	}
}

func TestScoreOriginalitySchemaViolationFallsBack(t *testing.T) {
	tests := map[string]string{
		"score above range":     `{"score": 140, "justification": "x"}`,
		"missing justification": `{"score": 40}`,
		"not json":              `probably human`,
	}

	for name, response := range tests {
		t.Run(name, func(t *testing.T) {
			backend := &routeBackend{handle: func(string, *ai.Schema) (string, error) { return response, nil }}
			score := newTestPipeline(t, backend, nil, Options{}).ScoreOriginality(context.Background(), OriginalityInput{
				Question: "Q", BaselineAnswer: "b", CandidateAnswer: "c",
			})
			if score.Score != 0 || score.Justification != OriginalityFallbackJustification {
				t.Fatalf("unexpected score: %+v", score)
			}
		})
	}
}

func TestBuildTranscript(t *testing.T) {
	questions := []interview.Question{
		interview.NewBehavioral("Tell me about a bug.", interview.Criterion{Text: "Root cause", Points: 6}, interview.Criterion{Text: "Fix", Points: 4}),
		interview.NewCheck("Permit?", interview.Yes),
		interview.NewBehavioral("Why us?"),
	}
	answers := []interview.UserAnswer{{Question: "Tell me about a bug.", Answer: " A race. "}}

	expected := "Question 1: Tell me about a bug.\n" +
		"Criteria:\n" +
		"- Root cause (6 pts)\n" +
		"- Fix (4 pts)\n" +
		"Answer: A race.\n" +
		"\n" +
		"Question 2: Why us?\n" +
		"Criteria:\n" +
		"Answer: " + NoAnswerMarker + "\n"

	if got := BuildTranscript(questions, answers); got != expected {
		t.Fatalf("unexpected transcript:\n%s", got)
	}
}
