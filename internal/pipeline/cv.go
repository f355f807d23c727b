package pipeline

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/prompt"
)

const cvDateLayout = "2006-01-02"

// AnalyzeCV judges cvText against the job in one structured call. Follow-up
// questions must carry exactly three criteria summing to 10; any violation
// fails the stage.
func (p *Pipeline) AnalyzeCV(ctx context.Context, job interview.JobDetails, cvText string) (*interview.CvEvaluationResult, error) {
	if strings.TrimSpace(cvText) == "" {
		return nil, &StageError{Stage: StageCVAnalysis, Err: errors.New("cv text is empty")}
	}

	text := p.render(prompt.CVAnalysis, prompt.Values{
		"jobTitle":       job.Title,
		"jobLevel":       job.Level,
		"jobDescription": job.Description,
		"cvText":         cvText,
		"currentDate":    p.opts.Now().Format(cvDateLayout),
	})

	var resp struct {
		MatchScore            float64             `json:"matchScore"`
		Summary               string              `json:"summary"`
		Strengths             interview.TextList  `json:"strengths"`
		Weaknesses            interview.TextList  `json:"weaknesses"`
		AnalysisJustification string              `json:"analysisJustification"`
		FollowUpQuestions     []generatedQuestion `json:"followUpQuestions"`
	}
	raw, err := p.generateStructured(ctx, StageCVAnalysis, text, cvSchema(), &resp)
	if err != nil {
		return nil, err
	}

	followUps := toQuestions(resp.FollowUpQuestions)
	if err := interview.ValidateQuestions(followUps); err != nil {
		return nil, semanticError(StageCVAnalysis, raw, err)
	}

	result := &interview.CvEvaluationResult{
		MatchScore:            interview.RoundGrade(resp.MatchScore),
		Summary:               resp.Summary,
		Strengths:             resp.Strengths,
		Weaknesses:            resp.Weaknesses,
		FollowUpQuestions:     followUps,
		AnalysisJustification: resp.AnalysisJustification,
	}

	p.stageLogger(StageCVAnalysis).Info("cv analysed",
		zap.Float64("match_score", result.MatchScore),
		zap.Int("follow_up_questions", len(followUps)),
	)

	return result, nil
}
