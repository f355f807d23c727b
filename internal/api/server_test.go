package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/pipeline"
	"github.com/spigell/interviewer/internal/storage"
)

type stubEngine struct {
	generated *pipeline.GeneratedQuestions
	genErr    error
	keywords  []string
	kwErr     error
	result    *interview.EvaluationResult
	evalErr   error
	cv        *interview.CvEvaluationResult
	cvErr     error

	lastEval pipeline.EvaluationInput
	lastCV   string
}

func (s *stubEngine) GenerateQuestions(context.Context, interview.JobDetails) (*pipeline.GeneratedQuestions, error) {
	return s.generated, s.genErr
}

func (s *stubEngine) Evaluate(_ context.Context, in pipeline.EvaluationInput) (*interview.EvaluationResult, error) {
	s.lastEval = in
	return s.result, s.evalErr
}

func (s *stubEngine) AnalyzeCV(_ context.Context, _ interview.JobDetails, cvText string) (*interview.CvEvaluationResult, error) {
	s.lastCV = cvText
	return s.cv, s.cvErr
}

func (s *stubEngine) ExtractKeywords(context.Context, interview.JobDetails) ([]string, error) {
	return s.keywords, s.kwErr
}

var testJob = interview.JobDetails{
	Title:        "Backend engineer",
	Level:        "Senior",
	Description:  "Build and run Go services.",
	NumQuestions: 1,
	Bias:         interview.BiasBalanced,
}

func validQuestion(text string) interview.Question {
	return interview.NewBehavioral(text,
		interview.Criterion{Text: "a", Points: 3},
		interview.Criterion{Text: "b", Points: 3},
		interview.Criterion{Text: "c", Points: 4},
	)
}

func newTestServer(engine Engine, store storage.Store) *Server {
	return New(engine, store, nil, zap.NewNop(), Options{})
}

func doJSON(t *testing.T, s *Server, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return send(t, s, req)
}

func send(t *testing.T, s *Server, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	out := map[string]any{}
	if len(data) > 0 && data[0] == '{' {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("decode body %q: %v", data, err)
		}
	} else {
		out["_raw"] = string(data)
	}
	return resp.StatusCode, out
}

func seedVacancy(t *testing.T, store storage.Store, questions ...interview.Question) *interview.Vacancy {
	t.Helper()
	v := storage.NewVacancy(testJob, questions, nil)
	if err := store.SaveVacancy(context.Background(), v); err != nil {
		t.Fatalf("save vacancy: %v", err)
	}
	return v
}

func seedCandidate(t *testing.T, store storage.Store, vacancyID, name string) *interview.CandidateResult {
	t.Helper()
	c := storage.NewCandidate(vacancyID, name)
	if err := store.SaveCandidate(context.Background(), c); err != nil {
		t.Fatalf("save candidate: %v", err)
	}
	return c
}

func TestCreateVacancy(t *testing.T) {
	store := storage.NewMemoryStore()
	engine := &stubEngine{
		generated: &pipeline.GeneratedQuestions{Questions: []interview.Question{validQuestion("Tell us about an outage")}},
		keywords:  []string{"go", "redis"},
	}

	status, body := doJSON(t, newTestServer(engine, store), http.MethodPost, "/api/vacancies", map[string]any{"job": testJob})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", status, body)
	}
	if _, ok := body["violations"]; ok {
		t.Fatalf("expected no violations, got %v", body["violations"])
	}

	vacancies, err := store.ListVacancies(context.Background())
	if err != nil {
		t.Fatalf("list vacancies: %v", err)
	}
	if len(vacancies) != 1 || len(vacancies[0].Questions) != 1 || len(vacancies[0].Keywords) != 2 {
		t.Fatalf("unexpected stored vacancies: %+v", vacancies)
	}
}

func TestCreateVacancyKeepsQuestionsWhenKeywordsFail(t *testing.T) {
	store := storage.NewMemoryStore()
	engine := &stubEngine{
		generated: &pipeline.GeneratedQuestions{
			Questions: []interview.Question{validQuestion("Q")},
			Violations: &interview.ValidationError{Problems: []interview.Problem{
				{Index: 0, Question: "Q", Reasons: []string{"criteria points sum to 9, expected 10"}},
			}},
		},
		kwErr: errors.New("quota"),
	}

	status, body := doJSON(t, newTestServer(engine, store), http.MethodPost, "/api/vacancies", map[string]any{"job": testJob})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", status, body)
	}
	violations, ok := body["violations"].([]any)
	if !ok || len(violations) != 1 {
		t.Fatalf("expected one violation, got %v", body["violations"])
	}
}

func TestCreateVacancyRejectsInvalidJob(t *testing.T) {
	status, body := doJSON(t, newTestServer(&stubEngine{}, storage.NewMemoryStore()), http.MethodPost, "/api/vacancies",
		map[string]any{"job": interview.JobDetails{Title: "x", NumQuestions: 1}})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %v", status, body)
	}
	if !strings.Contains(fmt.Sprint(body["error"]), "description") {
		t.Fatalf("expected description problem, got %v", body["error"])
	}
}

func TestStageErrorMapsToBadGateway(t *testing.T) {
	engine := &stubEngine{genErr: &pipeline.StageError{
		Stage: pipeline.StageQuestionGeneration,
		Err:   &ai.GenerationError{Op: "parse response", Raw: "not json at all", Err: ai.ErrParse},
	}}

	status, body := doJSON(t, newTestServer(engine, storage.NewMemoryStore()), http.MethodPost, "/api/vacancies", map[string]any{"job": testJob})
	if status != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %v", status, body)
	}
	if body["stage"] != pipeline.StageQuestionGeneration {
		t.Fatalf("unexpected stage %v", body["stage"])
	}
	if body["raw"] != "not json at all" {
		t.Fatalf("expected raw response, got %v", body["raw"])
	}
}

func TestDeadlineMapsToGatewayTimeout(t *testing.T) {
	engine := &stubEngine{genErr: &pipeline.StageError{Stage: pipeline.StageQuestionGeneration, Err: context.DeadlineExceeded}}

	status, _ := doJSON(t, newTestServer(engine, storage.NewMemoryStore()), http.MethodPost, "/api/vacancies", map[string]any{"job": testJob})
	if status != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", status)
	}
}

func TestNotFound(t *testing.T) {
	s := newTestServer(&stubEngine{}, storage.NewMemoryStore())

	for _, path := range []string{
		"/api/vacancies/missing",
		"/api/vacancies/missing/ranking",
		"/api/vacancies/missing/candidates/nobody",
	} {
		status, _ := doJSON(t, s, http.MethodGet, path, nil)
		if status != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, status)
		}
	}

	status, _ := doJSON(t, s, http.MethodPost, "/api/vacancies/missing/candidates", map[string]any{"name": "Ada"})
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for candidate of missing vacancy, got %d", status)
	}
}

func TestUpdateQuestionsValidatesRubric(t *testing.T) {
	store := storage.NewMemoryStore()
	v := seedVacancy(t, store, validQuestion("Q1"))
	s := newTestServer(&stubEngine{}, store)

	broken := interview.NewBehavioral("Q2",
		interview.Criterion{Text: "a", Points: 5},
		interview.Criterion{Text: "b", Points: 5},
		interview.Criterion{Text: "c", Points: 5},
	)
	status, body := doJSON(t, s, http.MethodPut, "/api/vacancies/"+v.ID+"/questions",
		map[string]any{"questions": []interview.Question{validQuestion("Q1"), broken}})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %v", status, body)
	}
	problems, ok := body["problems"].([]any)
	if !ok || len(problems) != 1 {
		t.Fatalf("expected one problem, got %v", body["problems"])
	}

	status, _ = doJSON(t, s, http.MethodPut, "/api/vacancies/"+v.ID+"/questions",
		map[string]any{"questions": []interview.Question{validQuestion("Q1"), interview.NewCheck("Can you relocate?", interview.Yes)}})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
}

func TestEvaluateFlow(t *testing.T) {
	store := storage.NewMemoryStore()
	v := seedVacancy(t, store, validQuestion("Q1"), interview.NewCheck("Remote ok?", interview.Yes))
	c := seedCandidate(t, store, v.ID, "Ada")

	engine := &stubEngine{result: &interview.EvaluationResult{
		GlobalGrade: 8.5,
		Summary:     "solid",
		QuestionGrades: []interview.QuestionGrade{
			{Question: "Q1", Grade: 8.5},
		},
	}}
	s := newTestServer(engine, store)
	base := "/api/vacancies/" + v.ID + "/candidates/" + c.ID

	status, body := doJSON(t, s, http.MethodPut, base+"/answers", map[string]any{
		"answers":      []interview.UserAnswer{{Question: "Q1", Answer: "I fixed it"}},
		"checkAnswers": []map[string]string{{"question": "Remote ok?", "answer": "Yes"}},
	})
	if status != http.StatusOK {
		t.Fatalf("record answers: expected 200, got %d: %v", status, body)
	}

	status, body = doJSON(t, s, http.MethodPost, base+"/evaluate", nil)
	if status != http.StatusOK {
		t.Fatalf("evaluate: expected 200, got %d: %v", status, body)
	}
	if len(engine.lastEval.Questions) != 2 || len(engine.lastEval.Answers) != 1 {
		t.Fatalf("unexpected evaluation input: %+v", engine.lastEval)
	}

	status, body = doJSON(t, s, http.MethodGet, base+"/checks", nil)
	if status != http.StatusOK || body["passed"] != true {
		t.Fatalf("expected passing checks, got %d: %v", status, body)
	}

	status, body = doJSON(t, s, http.MethodGet, "/api/vacancies/"+v.ID+"/ranking", nil)
	if status != http.StatusOK {
		t.Fatalf("ranking: expected 200, got %d", status)
	}
	if !strings.Contains(fmt.Sprint(body["_raw"]), c.ID) {
		t.Fatalf("expected candidate in ranking, got %v", body["_raw"])
	}
}

// budgetEngine spends the whole run budget before answering, the way a slow
// generator would.
type budgetEngine struct {
	*stubEngine
}

func (e budgetEngine) GenerateQuestions(ctx context.Context, job interview.JobDetails) (*pipeline.GeneratedQuestions, error) {
	<-ctx.Done()
	return e.stubEngine.GenerateQuestions(ctx, job)
}

func (e budgetEngine) Evaluate(ctx context.Context, in pipeline.EvaluationInput) (*interview.EvaluationResult, error) {
	<-ctx.Done()
	return e.stubEngine.Evaluate(ctx, in)
}

// ctxStore refuses writes on a finished context, like a network store does.
type ctxStore struct {
	storage.Store
}

func (s ctxStore) SaveVacancy(ctx context.Context, v *interview.Vacancy) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.SaveVacancy(ctx, v)
}

func (s ctxStore) SaveCandidate(ctx context.Context, c *interview.CandidateResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.SaveCandidate(ctx, c)
}

func TestResultsSavedAfterRunBudgetIsSpent(t *testing.T) {
	store := ctxStore{Store: storage.NewMemoryStore()}
	v := seedVacancy(t, store, validQuestion("Q1"))
	c := seedCandidate(t, store, v.ID, "Ada")

	engine := budgetEngine{&stubEngine{
		generated: &pipeline.GeneratedQuestions{Questions: []interview.Question{validQuestion("Q1")}},
		result:    &interview.EvaluationResult{GlobalGrade: 7, Summary: "late but complete"},
	}}
	s := New(engine, store, nil, zap.NewNop(), Options{Timeout: 20 * time.Millisecond})

	status, body := doJSON(t, s, http.MethodPost, "/api/vacancies/"+v.ID+"/candidates/"+c.ID+"/evaluate", nil)
	if status != http.StatusOK {
		t.Fatalf("evaluate: expected 200, got %d: %v", status, body)
	}
	saved, err := store.GetCandidate(context.Background(), v.ID, c.ID)
	if err != nil {
		t.Fatalf("get candidate: %v", err)
	}
	if saved.Evaluation == nil || saved.Evaluation.Summary != "late but complete" {
		t.Fatalf("evaluation was not stored: %+v", saved.Evaluation)
	}

	status, body = doJSON(t, s, http.MethodPost, "/api/vacancies", map[string]any{"job": testJob, "skipKeywords": true})
	if status != http.StatusCreated {
		t.Fatalf("create vacancy: expected 201, got %d: %v", status, body)
	}
}

func TestRecordAnswersRejectsBadCheckAnswer(t *testing.T) {
	store := storage.NewMemoryStore()
	v := seedVacancy(t, store, validQuestion("Q1"))
	c := seedCandidate(t, store, v.ID, "Ada")

	status, _ := doJSON(t, newTestServer(&stubEngine{}, store), http.MethodPut,
		"/api/vacancies/"+v.ID+"/candidates/"+c.ID+"/answers",
		map[string]any{"checkAnswers": []map[string]string{{"question": "Q", "answer": "maybe"}}})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
}

func TestRecordAnswersConflictsOnChangedAnswer(t *testing.T) {
	store := storage.NewMemoryStore()
	v := seedVacancy(t, store, validQuestion("Q1"))
	c := seedCandidate(t, store, v.ID, "Ada")
	s := newTestServer(&stubEngine{}, store)
	path := "/api/vacancies/" + v.ID + "/candidates/" + c.ID + "/answers"

	answer := func(text string) map[string]any {
		return map[string]any{"answers": []interview.UserAnswer{{Question: "Q1", Answer: text}}}
	}

	if status, body := doJSON(t, s, http.MethodPut, path, answer("I fixed it")); status != http.StatusOK {
		t.Fatalf("first answer: expected 200, got %d: %v", status, body)
	}
	if status, body := doJSON(t, s, http.MethodPut, path, answer("I fixed it")); status != http.StatusOK {
		t.Fatalf("same answer again: expected 200, got %d: %v", status, body)
	}
	status, body := doJSON(t, s, http.MethodPut, path, answer("Someone else fixed it"))
	if status != http.StatusConflict {
		t.Fatalf("changed answer: expected 409, got %d: %v", status, body)
	}
	if !strings.Contains(fmt.Sprint(body["error"]), "Q1") {
		t.Fatalf("conflict must name the question: %v", body)
	}

	saved, err := store.GetCandidate(context.Background(), v.ID, c.ID)
	if err != nil {
		t.Fatalf("get candidate: %v", err)
	}
	if len(saved.Answers) != 1 || saved.Answers[0].Answer != "I fixed it" {
		t.Fatalf("stored answer must not change: %+v", saved.Answers)
	}
}

func TestQuestionRankingRequiresEvaluation(t *testing.T) {
	store := storage.NewMemoryStore()
	v := seedVacancy(t, store, validQuestion("Q1"))
	c := seedCandidate(t, store, v.ID, "Ada")

	status, _ := doJSON(t, newTestServer(&stubEngine{}, store), http.MethodGet,
		"/api/vacancies/"+v.ID+"/candidates/"+c.ID+"/question-ranking", nil)
	if status != http.StatusConflict {
		t.Fatalf("expected 409, got %d", status)
	}
}

func TestAnalyzeCVUpload(t *testing.T) {
	store := storage.NewMemoryStore()
	v := seedVacancy(t, store, validQuestion("Q1"))
	c := seedCandidate(t, store, v.ID, "Ada")

	engine := &stubEngine{cv: &interview.CvEvaluationResult{
		MatchScore:        7,
		Summary:           "good fit",
		FollowUpQuestions: []interview.Question{validQuestion("Tell us about the Redis migration")},
	}}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cv.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("Ada Lovelace\nGo, Redis")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/vacancies/"+v.ID+"/candidates/"+c.ID+"/cv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	status, body := send(t, newTestServer(engine, store), req)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	if engine.lastCV != "Ada Lovelace\nGo, Redis" {
		t.Fatalf("unexpected cv text %q", engine.lastCV)
	}

	stored, err := store.GetCandidate(context.Background(), v.ID, c.ID)
	if err != nil {
		t.Fatalf("get candidate: %v", err)
	}
	if stored.CVEvaluation == nil || len(stored.PersonalQuestions) != 1 {
		t.Fatalf("expected promoted follow-up, got %+v", stored)
	}
}

func TestAnalyzeCVRejectsUnsupportedFile(t *testing.T) {
	store := storage.NewMemoryStore()
	v := seedVacancy(t, store, validQuestion("Q1"))
	c := seedCandidate(t, store, v.ID, "Ada")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cv.docx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = fw.Write([]byte("PK\x03\x04"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/vacancies/"+v.ID+"/candidates/"+c.ID+"/cv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	status, _ := send(t, newTestServer(&stubEngine{}, store), req)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", status)
	}
}
