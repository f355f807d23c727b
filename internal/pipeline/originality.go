package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/prompt"
)

type OriginalityInput struct {
	Question        string
	BaselineAnswer  string
	CandidateAnswer string
}

// OriginalityScore estimates how likely an answer is AI-authored: 0 is
// clearly human, 100 very likely generated.
type OriginalityScore struct {
	Score         float64 `json:"score"`
	Justification string  `json:"justification"`
}

// ScoreOriginality compares the candidate answer with the baseline. Any
// failure yields a neutral score of 0 with OriginalityFallbackJustification.
func (p *Pipeline) ScoreOriginality(ctx context.Context, in OriginalityInput) OriginalityScore {
	text := p.render(prompt.Originality, prompt.Values{
		"question":        in.Question,
		"baselineAnswer":  in.BaselineAnswer,
		"candidateAnswer": in.CandidateAnswer,
	})

	var score OriginalityScore
	if _, err := p.generateStructured(ctx, StageOriginality, text, originalitySchema(), &score); err != nil {
		p.stageLogger(StageOriginality).Warn("originality scoring failed, using neutral score",
			zap.String("question", in.Question),
			zap.Error(err),
		)
		return OriginalityScore{Score: 0, Justification: OriginalityFallbackJustification}
	}

	score.Score = interview.RoundGrade(score.Score)
	return score
}
