package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/prompt"
)

// Stage names used in errors and logs.
const (
	StageQuestionGeneration = "question generation"
	StageBaselineAnswer     = "baseline answer"
	StageAnswerEvaluation   = "answer evaluation"
	StageOriginality        = "originality scoring"
	StageFeedback           = "feedback synthesis"
	StageCVAnalysis         = "cv analysis"
	StageKeywordExtraction  = "keyword extraction"
)

const (
	// DefaultBaselineFallback replaces a baseline answer that could not be generated.
	DefaultBaselineFallback = "Baseline answer unavailable."
	// DefaultFeedbackFallback replaces candidate feedback that could not be generated.
	DefaultFeedbackFallback = "Feedback unavailable."
	// OriginalityFallbackJustification accompanies the neutral score given when
	// the originality comparison fails.
	OriginalityFallbackJustification = "Originality analysis failed; the answer could not be compared with the baseline."
)

// DefaultConcurrency bounds parallel fan-out calls when Options leave it unset.
const DefaultConcurrency = 4

// Generator is the structured generation call the stages are built on.
// *ai.Client implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string, schema *ai.Schema) (*ai.Result, error)
}

type Options struct {
	// Concurrency bounds parallel baseline and originality calls. Negative
	// means unlimited.
	Concurrency      int
	BaselineFallback string
	FeedbackFallback string
	// Now supplies the current date for CV analysis.
	Now func() time.Time
}

// Pipeline runs the generation and evaluation stages. Templates are copied on
// construction and never mutated, so a Pipeline is safe for concurrent runs.
type Pipeline struct {
	gen       Generator
	templates prompt.Templates
	logger    *zap.Logger
	opts      Options
}

func New(gen Generator, templates prompt.Templates, log *zap.Logger, opts Options) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.BaselineFallback == "" {
		opts.BaselineFallback = DefaultBaselineFallback
	}
	if opts.FeedbackFallback == "" {
		opts.FeedbackFallback = DefaultFeedbackFallback
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Pipeline{
		gen:       gen,
		templates: templates.WithDefaults(),
		logger:    log,
		opts:      opts,
	}
}

// Templates returns the prompt set the pipeline renders.
func (p *Pipeline) Templates() prompt.Templates {
	return p.templates
}

// StageError is a fatal failure of one stage. It wraps the underlying
// *ai.GenerationError when the generator was involved.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func (p *Pipeline) stageLogger(stage string) *zap.Logger {
	return logger.WithStage(p.logger, stage)
}

func (p *Pipeline) render(name prompt.Name, values prompt.Values) string {
	return prompt.Render(p.templates.Get(name), values)
}

// generateStructured requests JSON for schema, checks its shape and decodes it
// into out. It returns the raw response text for callers that need to attach
// it to later semantic errors.
func (p *Pipeline) generateStructured(ctx context.Context, stage, text string, schema *ai.Schema, out any) (string, error) {
	if p.gen == nil {
		return "", &StageError{Stage: stage, Err: errors.New("generator is not configured")}
	}

	res, err := p.gen.Generate(ctx, text, schema)
	if err != nil {
		return ai.RawResponse(err), &StageError{Stage: stage, Err: err}
	}

	if err := schema.Validate(res.Value); err != nil {
		return res.Text, &StageError{Stage: stage, Err: &ai.GenerationError{Op: "validate response", Raw: res.Text, Err: err}}
	}

	if err := ai.Decode(res.Value, out, textListHook); err != nil {
		return res.Text, &StageError{Stage: stage, Err: &ai.GenerationError{Op: "decode response", Raw: res.Text, Err: err}}
	}

	return res.Text, nil
}

func (p *Pipeline) generateText(ctx context.Context, text string) (string, error) {
	if p.gen == nil {
		return "", errors.New("generator is not configured")
	}
	res, err := p.gen.Generate(ctx, text, nil)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// semanticError reports a parsed response that breaks a domain invariant.
func semanticError(stage, raw string, err error) error {
	return &StageError{Stage: stage, Err: &ai.GenerationError{
		Op:  "check invariants",
		Raw: raw,
		Err: fmt.Errorf("%w: %w", ai.ErrSchema, err),
	}}
}

var textListType = reflect.TypeOf(interview.TextList{})

// textListHook accepts both the plain string and the array form wherever a
// TextList is decoded.
var textListHook mapstructure.DecodeHookFuncType = func(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != textListType {
		return data, nil
	}
	return interview.NormalizeTextList(data), nil
}
