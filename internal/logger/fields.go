package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Field keys shared by every component that logs a pipeline run.
const (
	FieldProvider  = "ai_provider"
	FieldModel     = "ai_model"
	FieldStage     = "stage"
	FieldVacancy   = "vacancy_id"
	FieldCandidate = "candidate_id"
)

// WithModel tags logger with the generation backend and model it talks to.
func WithModel(logger *zap.Logger, provider, model string) *zap.Logger {
	return with(logger, FieldProvider, provider, FieldModel, model)
}

// WithRun tags logger with the vacancy and candidate a run works on. Blank ids
// are omitted, so question generation logs carry no candidate.
func WithRun(logger *zap.Logger, vacancyID, candidateID string) *zap.Logger {
	return with(logger, FieldVacancy, vacancyID, FieldCandidate, candidateID)
}

// WithStage tags logger with a pipeline stage name.
func WithStage(logger *zap.Logger, stage string) *zap.Logger {
	return with(logger, FieldStage, stage)
}

// with takes alternating keys and values.
func with(logger *zap.Logger, pairs ...string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	var fields []zap.Field
	for i := 0; i+1 < len(pairs); i += 2 {
		if value := strings.TrimSpace(pairs[i+1]); value != "" {
			fields = append(fields, zap.String(pairs[i], value))
		}
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
