package interview

import (
	"errors"
	"fmt"
	"strings"
)

// Bias positions a question set on the technical to behavioral spectrum.
type Bias int

const (
	BiasVeryTechnical Bias = iota
	BiasTechnical
	BiasBalanced
	BiasBehavioral
	BiasVeryBehavioral
)

var biasLabels = [...]string{
	BiasVeryTechnical:  "very technical: focus almost exclusively on hands-on technical work and problem solving",
	BiasTechnical:      "technical: mostly technical situations with some teamwork and communication",
	BiasBalanced:       "balanced: an even mix of technical and behavioral situations",
	BiasBehavioral:     "behavioral: mostly collaboration, communication and ownership with some technical context",
	BiasVeryBehavioral: "very behavioral: focus almost exclusively on interpersonal skills, values and soft skills",
}

// Valid reports whether b is one of the five known positions.
func (b Bias) Valid() bool {
	return b >= BiasVeryTechnical && b <= BiasVeryBehavioral
}

// Label returns the descriptive label used in prompts. Out of range values
// are clamped to the nearest end of the spectrum; JobDetails.Validate rejects
// them at the input boundary.
func (b Bias) Label() string {
	switch {
	case b < BiasVeryTechnical:
		b = BiasVeryTechnical
	case b > BiasVeryBehavioral:
		b = BiasVeryBehavioral
	}
	return biasLabels[b]
}

// JobDetails is the recruiter's description of a vacancy. The pipeline never
// mutates it.
type JobDetails struct {
	Title        string `json:"title" mapstructure:"title"`
	Level        string `json:"level" mapstructure:"level"`
	Description  string `json:"description" mapstructure:"description"`
	NumQuestions int    `json:"numQuestions" mapstructure:"numQuestions"`
	Bias         Bias   `json:"bias" mapstructure:"bias"`
}

// MaxQuestions bounds the number of questions requested in one generation.
const MaxQuestions = 20

func (j JobDetails) Validate() error {
	var problems []string
	if strings.TrimSpace(j.Title) == "" {
		problems = append(problems, "title is required")
	}
	if strings.TrimSpace(j.Description) == "" {
		problems = append(problems, "description is required")
	}
	if j.NumQuestions < 1 || j.NumQuestions > MaxQuestions {
		problems = append(problems, fmt.Sprintf("numQuestions must be between 1 and %d", MaxQuestions))
	}
	if !j.Bias.Valid() {
		problems = append(problems, fmt.Sprintf("bias must be between %d and %d", BiasVeryTechnical, BiasVeryBehavioral))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid job details: " + strings.Join(problems, "; "))
}
