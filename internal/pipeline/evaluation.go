package pipeline

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/prompt"
)

// EvaluationInput is everything answer evaluation reads. Questions may mix
// behavioral and check questions; only behavioral ones are graded.
type EvaluationInput struct {
	Job       interview.JobDetails
	Questions []interview.Question
	Answers   []interview.UserAnswer
}

// Evaluate grades the candidate's answers, attaches originality scores where
// a baseline and an answer exist and finally adds candidate feedback.
// Only the grading call is fatal.
func (p *Pipeline) Evaluate(ctx context.Context, in EvaluationInput) (*interview.EvaluationResult, error) {
	log := p.stageLogger(StageAnswerEvaluation)

	behavioral := interview.Behavioral(in.Questions)
	if len(behavioral) == 0 {
		return nil, &StageError{Stage: StageAnswerEvaluation, Err: errors.New("no behavioral questions to evaluate")}
	}

	text := p.render(prompt.AnswerEvaluation, prompt.Values{
		"jobTitle":       in.Job.Title,
		"jobLevel":       in.Job.Level,
		"jobDescription": in.Job.Description,
		"transcript":     BuildTranscript(behavioral, in.Answers),
	})

	var result interview.EvaluationResult
	if _, err := p.generateStructured(ctx, StageAnswerEvaluation, text, evaluationSchema(), &result); err != nil {
		return nil, err
	}

	result.GlobalGrade = interview.RoundGrade(result.GlobalGrade)
	for i := range result.QuestionGrades {
		grade := &result.QuestionGrades[i]
		grade.Grade = interview.RoundGrade(grade.Grade)
		grade.OriginalityScore = nil
		grade.OriginalityJustification = ""
		for j := range grade.CriterionGrades {
			grade.CriterionGrades[j].Grade = interview.RoundGrade(grade.CriterionGrades[j].Grade)
		}
	}
	result.CandidateFeedback = ""

	log.Info("answers graded",
		zap.Float64("global_grade", result.GlobalGrade),
		zap.Int("question_grades", len(result.QuestionGrades)),
	)

	if err := p.scoreOriginality(ctx, behavioral, in.Answers, &result); err != nil {
		return nil, &StageError{Stage: StageAnswerEvaluation, Err: err}
	}

	result.CandidateFeedback = p.SynthesizeFeedback(ctx, in.Job, in.Answers, &result)

	return &result, nil
}

// scoreOriginality fans out one comparison per gradable question and waits
// for all of them. Each goroutine writes only its own grade.
func (p *Pipeline) scoreOriginality(ctx context.Context, questions []interview.Question, answers []interview.UserAnswer, result *interview.EvaluationResult) error {
	log := p.stageLogger(StageOriginality)

	var g errgroup.Group
	if p.opts.Concurrency > 0 {
		g.SetLimit(p.opts.Concurrency)
	}

	scheduled := 0
	for i := range result.QuestionGrades {
		grade := &result.QuestionGrades[i]

		q, ok := findQuestion(questions, grade.Question)
		if !ok {
			log.Debug("graded question does not match any asked question", zap.String("question", grade.Question))
			continue
		}
		answer := interview.AnswerText(answers, q.Text)
		if !q.HasBaseline() || answer == "" {
			continue
		}

		scheduled++
		g.Go(func() error {
			score := p.ScoreOriginality(ctx, OriginalityInput{
				Question:        q.Text,
				BaselineAnswer:  q.BaselineAnswer,
				CandidateAnswer: answer,
			})
			grade.OriginalityScore = &score.Score
			grade.OriginalityJustification = score.Justification
			return nil
		})
	}
	_ = g.Wait()

	log.Debug("originality scoring finished", zap.Int("scored", scheduled))

	return ctx.Err()
}

func findQuestion(questions []interview.Question, text string) (interview.Question, bool) {
	for _, q := range questions {
		if q.Text == text {
			return q, true
		}
	}
	return interview.Question{}, false
}

// SynthesizeFeedback writes prose feedback for the candidate. It never fails:
// the configured fallback is returned instead.
func (p *Pipeline) SynthesizeFeedback(ctx context.Context, job interview.JobDetails, answers []interview.UserAnswer, result *interview.EvaluationResult) string {
	log := p.stageLogger(StageFeedback)
	if result == nil {
		return p.opts.FeedbackFallback
	}

	text := p.render(prompt.CandidateFeedback, prompt.Values{
		"jobTitle":            job.Title,
		"summary":             result.Summary,
		"strengths":           result.Strengths.String(),
		"areasForImprovement": result.AreasForImprovement.String(),
		"transcript":          answersTranscript(answers),
	})

	feedback, err := p.generateText(ctx, text)
	if err == nil && strings.TrimSpace(feedback) == "" {
		err = errors.New("empty feedback")
	}
	if err != nil {
		log.Warn("feedback synthesis failed, using fallback", zap.Error(err))
		return p.opts.FeedbackFallback
	}

	return feedback
}
