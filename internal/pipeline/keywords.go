package pipeline

import (
	"context"
	"strings"

	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/prompt"
)

// ExtractKeywords returns the skills and technologies the job description
// asks for, trimmed and de-duplicated case-insensitively in model order.
func (p *Pipeline) ExtractKeywords(ctx context.Context, job interview.JobDetails) ([]string, error) {
	text := p.render(prompt.KeywordExtraction, prompt.Values{
		"jobTitle":       job.Title,
		"jobDescription": job.Description,
	})

	var resp struct {
		Keywords []string `json:"keywords"`
	}
	if _, err := p.generateStructured(ctx, StageKeywordExtraction, text, keywordsSchema(), &resp); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(resp.Keywords))
	keywords := make([]string, 0, len(resp.Keywords))
	for _, k := range resp.Keywords {
		k = strings.TrimSpace(k)
		key := strings.ToLower(k)
		if k == "" || seen[key] {
			continue
		}
		seen[key] = true
		keywords = append(keywords, k)
	}

	return keywords, nil
}
