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

// GeneratedQuestions is the output of question generation. Violations lists
// questions whose rubric breaks the points invariant; they are returned
// anyway so the recruiter can fix them at the edit boundary.
type GeneratedQuestions struct {
	Questions  []interview.Question
	Violations *interview.ValidationError
}

// Err returns Violations as an error, or nil when every question is valid.
func (g *GeneratedQuestions) Err() error {
	if g == nil || g.Violations == nil {
		return nil
	}
	return g.Violations
}

// GenerateQuestions asks for job.NumQuestions behavioral questions with three
// criteria each, then generates one baseline answer per question in parallel.
func (p *Pipeline) GenerateQuestions(ctx context.Context, job interview.JobDetails) (*GeneratedQuestions, error) {
	if err := job.Validate(); err != nil {
		return nil, &StageError{Stage: StageQuestionGeneration, Err: err}
	}

	log := p.stageLogger(StageQuestionGeneration)
	text := p.render(prompt.QuestionGeneration, prompt.Values{
		"jobTitle":       job.Title,
		"jobLevel":       job.Level,
		"jobDescription": job.Description,
		"numQuestions":   job.NumQuestions,
		"bias":           job.Bias.Label(),
	})

	var resp struct {
		Questions []generatedQuestion `json:"questions"`
	}
	if _, err := p.generateStructured(ctx, StageQuestionGeneration, text, questionsSchema(job.NumQuestions), &resp); err != nil {
		return nil, err
	}

	out := &GeneratedQuestions{Questions: toQuestions(resp.Questions)}

	var verr *interview.ValidationError
	if err := interview.ValidateQuestions(out.Questions); errors.As(err, &verr) {
		out.Violations = verr
		for _, problem := range verr.Problems {
			log.Warn("generated question breaks rubric invariants",
				zap.Int("index", problem.Index),
				zap.String("question", problem.Question),
				zap.Strings("problems", problem.Reasons),
			)
		}
	}

	log.Info("questions generated",
		zap.Int("questions", len(out.Questions)),
		zap.Bool("valid", out.Violations == nil),
	)

	if err := p.fillBaselines(ctx, job, out.Questions); err != nil {
		return nil, &StageError{Stage: StageQuestionGeneration, Err: err}
	}

	return out, nil
}

// fillBaselines sets BaselineAnswer on every question. A failed call never
// cancels its siblings: the question gets the fallback baseline instead.
func (p *Pipeline) fillBaselines(ctx context.Context, job interview.JobDetails, questions []interview.Question) error {
	log := p.stageLogger(StageBaselineAnswer)

	var g errgroup.Group
	if p.opts.Concurrency > 0 {
		g.SetLimit(p.opts.Concurrency)
	}

	for i := range questions {
		g.Go(func() error {
			baseline, err := p.BaselineAnswer(ctx, job, questions[i].Text)
			if err != nil {
				log.Warn("baseline answer generation failed, using fallback",
					zap.String("question", questions[i].Text),
					zap.Error(err),
				)
				baseline = p.opts.BaselineFallback
			}
			questions[i].BaselineAnswer = baseline
			return nil
		})
	}
	_ = g.Wait()

	return ctx.Err()
}

// BaselineAnswer generates the ideal answer to question used as the
// originality anchor.
func (p *Pipeline) BaselineAnswer(ctx context.Context, job interview.JobDetails, question string) (string, error) {
	text := p.render(prompt.BaselineAnswer, prompt.Values{
		"question":       question,
		"jobTitle":       job.Title,
		"jobDescription": job.Description,
	})

	baseline, err := p.generateText(ctx, text)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(baseline) == "" {
		return "", errors.New("empty baseline answer")
	}
	return baseline, nil
}
