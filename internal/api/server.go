package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/cvtext"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/pipeline"
	"github.com/spigell/interviewer/internal/storage"
	"github.com/spigell/interviewer/internal/utils"
)

const (
	defaultTimeout = 5 * time.Minute
	maxCVSize      = 10 << 20
	rawPreviewLen  = 1000
)

// Engine is the part of the pipeline the HTTP surface drives.
type Engine interface {
	GenerateQuestions(ctx context.Context, job interview.JobDetails) (*pipeline.GeneratedQuestions, error)
	Evaluate(ctx context.Context, in pipeline.EvaluationInput) (*interview.EvaluationResult, error)
	AnalyzeCV(ctx context.Context, job interview.JobDetails, cvText string) (*interview.CvEvaluationResult, error)
	ExtractKeywords(ctx context.Context, job interview.JobDetails) ([]string, error)
}

type Options struct {
	// Timeout bounds every pipeline run started by a request.
	Timeout time.Duration
}

type Server struct {
	engine  Engine
	store   storage.Store
	cv      *cvtext.Extractor
	logger  *zap.Logger
	timeout time.Duration
}

func New(engine Engine, store storage.Store, cv *cvtext.Extractor, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cv == nil {
		cv = cvtext.New(logger)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Server{engine: engine, store: store, cv: cv, logger: logger, timeout: opts.Timeout}
}

// App builds the fiber application with every route registered.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "interviewer",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
		BodyLimit:             maxCVSize + 1<<20,
	})

	app.Use(recover.New())
	app.Use(s.requestLogger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	vacancies := app.Group("/api/vacancies")
	vacancies.Post("/", s.createVacancy)
	vacancies.Get("/", s.listVacancies)
	vacancies.Get("/:id", s.getVacancy)
	vacancies.Put("/:id/questions", s.updateQuestions)
	vacancies.Get("/:id/ranking", s.ranking)

	vacancies.Post("/:id/candidates", s.createCandidate)
	vacancies.Get("/:id/candidates/:cid", s.getCandidate)
	vacancies.Put("/:id/candidates/:cid/answers", s.recordAnswers)
	vacancies.Post("/:id/candidates/:cid/evaluate", s.evaluate)
	vacancies.Post("/:id/candidates/:cid/cv", s.analyzeCV)
	vacancies.Get("/:id/candidates/:cid/checks", s.checks)
	vacancies.Get("/:id/candidates/:cid/question-ranking", s.questionRanking)

	return app
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Info("http request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)),
	)
	return err
}

func (s *Server) runContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), s.timeout)
}

// errorHandler maps domain errors onto HTTP responses.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	var verr *interview.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":    "invalid questions",
			"problems": verr.Problems,
		})
	}

	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	if errors.Is(err, storage.ErrAnswered) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{"error": "pipeline run timed out"})
	}

	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		s.logger.Warn("pipeline stage failed", zap.String("stage", stageErr.Stage), zap.Error(err))
		body := fiber.Map{
			"error": "generation failed",
			"stage": stageErr.Stage,
			"cause": stageErr.Err.Error(),
		}
		if raw := ai.RawResponse(err); raw != "" {
			body["raw"] = utils.TruncateForLog(raw, rawPreviewLen)
		}
		return c.Status(fiber.StatusBadGateway).JSON(body)
	}

	s.logger.Error("internal server error", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
