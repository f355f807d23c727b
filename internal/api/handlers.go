package api

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/pipeline"
	"github.com/spigell/interviewer/internal/storage"
)

type createVacancyRequest struct {
	Job interview.JobDetails `json:"job"`
	// SkipKeywords disables keyword extraction.
	SkipKeywords bool `json:"skipKeywords"`
}

type vacancyResponse struct {
	Vacancy    *interview.Vacancy  `json:"vacancy"`
	Violations []interview.Problem `json:"violations,omitempty"`
}

// POST /api/vacancies
func (s *Server) createVacancy(c *fiber.Ctx) error {
	var req createVacancyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Job.Validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := s.runContext(c)
	defer cancel()

	generated, err := s.engine.GenerateQuestions(ctx, req.Job)
	if err != nil {
		return err
	}

	var keywords []string
	if !req.SkipKeywords {
		keywords, err = s.engine.ExtractKeywords(ctx, req.Job)
		if err != nil {
			s.logger.Warn("keyword extraction failed", zap.Error(err))
		}
	}

	v := storage.NewVacancy(req.Job, generated.Questions, keywords)
	if err := s.store.SaveVacancy(c.UserContext(), v); err != nil {
		return err
	}

	resp := vacancyResponse{Vacancy: v}
	if generated.Violations != nil {
		resp.Violations = generated.Violations.Problems
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GET /api/vacancies
func (s *Server) listVacancies(c *fiber.Ctx) error {
	vacancies, err := s.store.ListVacancies(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(vacancies)
}

// GET /api/vacancies/:id
func (s *Server) getVacancy(c *fiber.Ctx) error {
	v, err := s.store.GetVacancy(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(v)
}

// PUT /api/vacancies/:id/questions
func (s *Server) updateQuestions(c *fiber.Ctx) error {
	var req struct {
		Questions []interview.Question `json:"questions"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	v, err := storage.UpdateQuestions(c.UserContext(), s.store, c.Params("id"), req.Questions)
	if err != nil {
		return err
	}
	return c.JSON(v)
}

// POST /api/vacancies/:id/candidates
func (s *Server) createCandidate(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	candidate := storage.NewCandidate(c.Params("id"), req.Name)
	if err := s.store.SaveCandidate(c.UserContext(), candidate); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(candidate)
}

// GET /api/vacancies/:id/candidates/:cid
func (s *Server) getCandidate(c *fiber.Ctx) error {
	candidate, err := s.store.GetCandidate(c.UserContext(), c.Params("id"), c.Params("cid"))
	if err != nil {
		return err
	}
	return c.JSON(candidate)
}

// PUT /api/vacancies/:id/candidates/:cid/answers
func (s *Server) recordAnswers(c *fiber.Ctx) error {
	var req struct {
		Answers      []interview.UserAnswer  `json:"answers"`
		CheckAnswers []interview.CheckAnswer `json:"checkAnswers"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	for i, a := range req.CheckAnswers {
		answer, ok := interview.ParseYesNo(string(a.Answer))
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "check answers must be yes or no")
		}
		req.CheckAnswers[i].Answer = answer
	}

	candidate, err := storage.RecordAnswers(c.UserContext(), s.store, c.Params("id"), c.Params("cid"), req.Answers, req.CheckAnswers)
	if err != nil {
		return err
	}
	return c.JSON(candidate)
}

// POST /api/vacancies/:id/candidates/:cid/evaluate
func (s *Server) evaluate(c *fiber.Ctx) error {
	vacancyID, candidateID := c.Params("id"), c.Params("cid")

	v, err := s.store.GetVacancy(c.UserContext(), vacancyID)
	if err != nil {
		return err
	}
	candidate, err := s.store.GetCandidate(c.UserContext(), vacancyID, candidateID)
	if err != nil {
		return err
	}

	ctx, cancel := s.runContext(c)
	defer cancel()

	logger.WithRun(s.logger, vacancyID, candidateID).Info("evaluating candidate",
		zap.Int("answers", len(candidate.Answers)))

	result, err := s.engine.Evaluate(ctx, pipeline.EvaluationInput{
		Job:       v.Job,
		Questions: candidate.Script(v),
		Answers:   candidate.Answers,
	})
	if err != nil {
		return err
	}

	updated, err := storage.SaveEvaluation(c.UserContext(), s.store, vacancyID, candidateID, result)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

// POST /api/vacancies/:id/candidates/:cid/cv
func (s *Server) analyzeCV(c *fiber.Ctx) error {
	vacancyID, candidateID := c.Params("id"), c.Params("cid")

	file, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	if file.Size > maxCVSize {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "cv file is too large")
	}

	f, err := file.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	text, err := s.cv.Extract(file.Filename, data)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	v, err := s.store.GetVacancy(c.UserContext(), vacancyID)
	if err != nil {
		return err
	}
	if _, err := s.store.GetCandidate(c.UserContext(), vacancyID, candidateID); err != nil {
		return err
	}

	ctx, cancel := s.runContext(c)
	defer cancel()

	result, err := s.engine.AnalyzeCV(ctx, v.Job, text)
	if err != nil {
		return err
	}

	promote := c.FormValue("promote", "true") == "true"
	updated, err := storage.SaveCVEvaluation(c.UserContext(), s.store, vacancyID, candidateID, result, promote)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

// GET /api/vacancies/:id/candidates/:cid/checks
func (s *Server) checks(c *fiber.Ctx) error {
	vacancyID := c.Params("id")
	v, err := s.store.GetVacancy(c.UserContext(), vacancyID)
	if err != nil {
		return err
	}
	candidate, err := s.store.GetCandidate(c.UserContext(), vacancyID, c.Params("cid"))
	if err != nil {
		return err
	}

	results := interview.GradeChecks(candidate.Script(v), candidate.CheckAnswers)
	return c.JSON(fiber.Map{
		"passed": interview.PassedAll(results),
		"checks": results,
	})
}

// GET /api/vacancies/:id/ranking
func (s *Server) ranking(c *fiber.Ctx) error {
	v, err := s.store.GetVacancy(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	candidates, err := s.store.ListCandidates(c.UserContext(), v.ID)
	if err != nil {
		return err
	}
	return c.JSON(interview.RankCandidates(v, candidates))
}

// GET /api/vacancies/:id/candidates/:cid/question-ranking
func (s *Server) questionRanking(c *fiber.Ctx) error {
	candidate, err := s.store.GetCandidate(c.UserContext(), c.Params("id"), c.Params("cid"))
	if err != nil {
		return err
	}
	if candidate.Evaluation == nil {
		return fiber.NewError(fiber.StatusConflict, "candidate has not been evaluated yet")
	}
	return c.JSON(interview.QuestionRanking(candidate.Evaluation))
}
