package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/interviewer/internal/interview"
)

// ErrNotFound is returned when a vacancy or candidate does not exist.
var ErrNotFound = errors.New("not found")

// ErrAnswered is returned when a question already holds a different answer.
// Recorded answers are immutable.
var ErrAnswered = errors.New("question is already answered")

// Store persists vacancies and the candidates that belong to them.
type Store interface {
	SaveVacancy(ctx context.Context, v *interview.Vacancy) error
	GetVacancy(ctx context.Context, id string) (*interview.Vacancy, error)
	ListVacancies(ctx context.Context) ([]*interview.Vacancy, error)

	// SaveCandidate fails with ErrNotFound when the vacancy does not exist.
	SaveCandidate(ctx context.Context, c *interview.CandidateResult) error
	GetCandidate(ctx context.Context, vacancyID, candidateID string) (*interview.CandidateResult, error)
	ListCandidates(ctx context.Context, vacancyID string) ([]*interview.CandidateResult, error)
}

var now = func() time.Time { return time.Now().UTC() }

// NewVacancy builds a vacancy with a fresh id.
func NewVacancy(job interview.JobDetails, questions []interview.Question, keywords []string) *interview.Vacancy {
	return &interview.Vacancy{
		ID:        uuid.NewString(),
		Job:       job,
		Questions: questions,
		Keywords:  keywords,
		CreatedAt: now(),
	}
}

// NewCandidate builds an empty candidate of vacancyID with a fresh id.
func NewCandidate(vacancyID, name string) *interview.CandidateResult {
	return &interview.CandidateResult{
		ID:        uuid.NewString(),
		VacancyID: vacancyID,
		Name:      strings.TrimSpace(name),
		UpdatedAt: now(),
	}
}

// UpdateQuestions replaces the question script of a vacancy. Edited questions
// are validated here: every behavioral rubric must have three criteria
// summing to 10.
func UpdateQuestions(ctx context.Context, s Store, vacancyID string, questions []interview.Question) (*interview.Vacancy, error) {
	if err := interview.ValidateQuestions(questions); err != nil {
		return nil, err
	}

	v, err := s.GetVacancy(ctx, vacancyID)
	if err != nil {
		return nil, err
	}

	v.Questions = questions
	if err := s.SaveVacancy(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// RecordAnswers adds answers to the candidate's state. Resubmitting the same
// answer is a no-op, a different answer to an answered question fails with
// ErrAnswered and nothing from the batch is stored.
func RecordAnswers(ctx context.Context, s Store, vacancyID, candidateID string, answers []interview.UserAnswer, checks []interview.CheckAnswer) (*interview.CandidateResult, error) {
	return updateCandidate(ctx, s, vacancyID, candidateID, func(c *interview.CandidateResult) error {
		var err error
		for _, a := range answers {
			if c.Answers, err = addAnswer(c.Answers, a); err != nil {
				return err
			}
		}
		for _, a := range checks {
			if c.CheckAnswers, err = addCheck(c.CheckAnswers, a); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveEvaluation stores result as the candidate's evaluation.
func SaveEvaluation(ctx context.Context, s Store, vacancyID, candidateID string, result *interview.EvaluationResult) (*interview.CandidateResult, error) {
	return updateCandidate(ctx, s, vacancyID, candidateID, func(c *interview.CandidateResult) error {
		c.Evaluation = result
		return nil
	})
}

// SaveCVEvaluation stores result as the candidate's CV analysis. With promote
// the follow-up questions join the candidate's personal questions.
func SaveCVEvaluation(ctx context.Context, s Store, vacancyID, candidateID string, result *interview.CvEvaluationResult, promote bool) (*interview.CandidateResult, error) {
	return updateCandidate(ctx, s, vacancyID, candidateID, func(c *interview.CandidateResult) error {
		c.CVEvaluation = result
		if promote {
			c.PromoteFollowUps()
		}
		return nil
	})
}

func updateCandidate(ctx context.Context, s Store, vacancyID, candidateID string, mutate func(*interview.CandidateResult) error) (*interview.CandidateResult, error) {
	c, err := s.GetCandidate(ctx, vacancyID, candidateID)
	if err != nil {
		return nil, err
	}

	if err := mutate(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = now()

	if err := s.SaveCandidate(ctx, c); err != nil {
		return nil, fmt.Errorf("save candidate %s: %w", candidateID, err)
	}
	return c, nil
}

func addAnswer(answers []interview.UserAnswer, a interview.UserAnswer) ([]interview.UserAnswer, error) {
	for _, existing := range answers {
		if existing.Question != a.Question {
			continue
		}
		if existing.Answer != a.Answer {
			return answers, fmt.Errorf("%w: %q", ErrAnswered, a.Question)
		}
		return answers, nil
	}
	return append(answers, a), nil
}

func addCheck(answers []interview.CheckAnswer, a interview.CheckAnswer) ([]interview.CheckAnswer, error) {
	for _, existing := range answers {
		if existing.Question != a.Question {
			continue
		}
		if existing.Answer != a.Answer {
			return answers, fmt.Errorf("%w: %q", ErrAnswered, a.Question)
		}
		return answers, nil
	}
	return append(answers, a), nil
}
