package prompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Name identifies one of the recruiter-configurable templates.
type Name string

const (
	QuestionGeneration Name = "question_generation"
	AnswerEvaluation   Name = "answer_evaluation"
	KeywordExtraction  Name = "keyword_extraction"
	BaselineAnswer     Name = "baseline_answer"
	Originality        Name = "originality"
	CandidateFeedback  Name = "candidate_feedback"
	CVAnalysis         Name = "cv_analysis"
)

// Names lists every template in a stable order.
var Names = []Name{
	QuestionGeneration,
	AnswerEvaluation,
	KeywordExtraction,
	BaselineAnswer,
	Originality,
	CandidateFeedback,
	CVAnalysis,
}

//go:embed templates/*.md
var defaultsFS embed.FS

// Templates is the process-wide prompt configuration. It is read-only while a
// pipeline run is in flight.
type Templates struct {
	QuestionGeneration string `mapstructure:"question_generation" json:"question_generation"`
	AnswerEvaluation   string `mapstructure:"answer_evaluation" json:"answer_evaluation"`
	KeywordExtraction  string `mapstructure:"keyword_extraction" json:"keyword_extraction"`
	BaselineAnswer     string `mapstructure:"baseline_answer" json:"baseline_answer"`
	Originality        string `mapstructure:"originality" json:"originality"`
	CandidateFeedback  string `mapstructure:"candidate_feedback" json:"candidate_feedback"`
	CVAnalysis         string `mapstructure:"cv_analysis" json:"cv_analysis"`
}

// Defaults returns the built-in templates.
func Defaults() Templates {
	var t Templates
	for _, name := range Names {
		data, err := defaultsFS.ReadFile("templates/" + string(name) + ".md")
		if err != nil {
			// embedded at build time
			panic(fmt.Sprintf("missing default template %s: %v", name, err))
		}
		t.set(name, string(data))
	}
	return t
}

// Get returns the template registered under name.
func (t Templates) Get(name Name) string {
	switch name {
	case QuestionGeneration:
		return t.QuestionGeneration
	case AnswerEvaluation:
		return t.AnswerEvaluation
	case KeywordExtraction:
		return t.KeywordExtraction
	case BaselineAnswer:
		return t.BaselineAnswer
	case Originality:
		return t.Originality
	case CandidateFeedback:
		return t.CandidateFeedback
	case CVAnalysis:
		return t.CVAnalysis
	default:
		return ""
	}
}

func (t *Templates) set(name Name, value string) {
	switch name {
	case QuestionGeneration:
		t.QuestionGeneration = value
	case AnswerEvaluation:
		t.AnswerEvaluation = value
	case KeywordExtraction:
		t.KeywordExtraction = value
	case BaselineAnswer:
		t.BaselineAnswer = value
	case Originality:
		t.Originality = value
	case CandidateFeedback:
		t.CandidateFeedback = value
	case CVAnalysis:
		t.CVAnalysis = value
	}
}

// WithDefaults fills blank templates with the built-in ones.
func (t Templates) WithDefaults() Templates {
	defaults := Defaults()
	for _, name := range Names {
		if strings.TrimSpace(t.Get(name)) == "" {
			t.set(name, defaults.Get(name))
		}
	}
	return t
}

// LoadDir overrides templates in t with <name>.md files found in dir.
// Missing files are skipped.
func LoadDir(dir string, t Templates) (Templates, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return t, nil
	}

	for _, name := range Names {
		path := filepath.Join(dir, string(name)+".md")
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return t, fmt.Errorf("read template %s: %w", path, err)
		}
		t.set(name, string(data))
	}

	return t, nil
}
