package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/pipeline"
	"github.com/spigell/interviewer/internal/storage"
)

// evaluationFile is the --input format of the evaluate command.
type evaluationFile struct {
	Job       interview.JobDetails   `json:"job"`
	Questions []interview.Question   `json:"questions"`
	Answers   []interview.UserAnswer `json:"answers"`
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Grade a candidate's answers, score originality and write feedback",
	Run: func(cmd *cobra.Command, _ []string) {
		runEvaluate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringP("input", "i", "", "json file with job, questions and answers")
	evaluateCmd.Flags().String("vacancy", "", "vacancy id in the store")
	evaluateCmd.Flags().String("candidate", "", "candidate id in the store")
	evaluateCmd.Flags().StringP("output", "o", "", "write the result to this file instead of stdout")
}

func runEvaluate(cmd *cobra.Command) {
	ctx := context.Background()
	rt := setup(ctx)
	defer rt.close()

	input, _ := cmd.Flags().GetString("input")
	vacancyID, _ := cmd.Flags().GetString("vacancy")
	candidateID, _ := cmd.Flags().GetString("candidate")
	output, _ := cmd.Flags().GetString("output")

	in, err := evaluationInput(ctx, rt.store, input, vacancyID, candidateID)
	if err != nil {
		rt.logger.Fatal("reading evaluation input", zap.Error(err))
	}

	log := logger.WithRun(rt.logger, vacancyID, candidateID)
	log.Info("evaluating answers",
		zap.Int("questions", len(in.Questions)),
		zap.Int("answers", len(in.Answers)),
	)

	runCtx, cancel := rt.runContext(ctx)
	defer cancel()

	result, err := rt.pipeline.Evaluate(runCtx, in)
	if err != nil {
		log.Fatal("evaluating answers", zap.Error(err))
	}

	if input == "" {
		if _, err := storage.SaveEvaluation(ctx, rt.store, vacancyID, candidateID, result); err != nil {
			log.Fatal("saving evaluation", zap.Error(err))
		}
	}

	if err := writeJSON(output, result); err != nil {
		log.Fatal("writing evaluation", zap.Error(err))
	}

	log.Info("evaluation finished", zap.Float64("global_grade", result.GlobalGrade))
}

func evaluationInput(ctx context.Context, store storage.Store, input, vacancyID, candidateID string) (pipeline.EvaluationInput, error) {
	if input != "" {
		var f evaluationFile
		if err := readJSON(input, &f); err != nil {
			return pipeline.EvaluationInput{}, err
		}
		return pipeline.EvaluationInput{Job: f.Job, Questions: f.Questions, Answers: f.Answers}, nil
	}

	if vacancyID == "" || candidateID == "" {
		return pipeline.EvaluationInput{}, errors.New("either --input or both --vacancy and --candidate are required")
	}

	vacancy, err := store.GetVacancy(ctx, vacancyID)
	if err != nil {
		return pipeline.EvaluationInput{}, err
	}
	candidate, err := store.GetCandidate(ctx, vacancyID, candidateID)
	if err != nil {
		return pipeline.EvaluationInput{}, err
	}

	return pipeline.EvaluationInput{
		Job:       vacancy.Job,
		Questions: candidate.Script(vacancy),
		Answers:   candidate.Answers,
	}, nil
}
