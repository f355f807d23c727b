package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/storage"
)

var analyzeCVCmd = &cobra.Command{
	Use:   "analyze-cv FILE",
	Short: "Score a CV against a vacancy and suggest follow-up questions",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runAnalyzeCV(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(analyzeCVCmd)

	analyzeCVCmd.Flags().String("job-file", "", "json file with the job details (default is the job section of the config)")
	analyzeCVCmd.Flags().String("vacancy", "", "vacancy id in the store, used instead of the job details")
	analyzeCVCmd.Flags().String("candidate", "", "candidate id in the store to attach the analysis to")
	analyzeCVCmd.Flags().Bool("promote", true, "add follow-up questions to the candidate's personal questions")
	analyzeCVCmd.Flags().StringP("output", "o", "", "write the result to this file instead of stdout")
}

func runAnalyzeCV(cmd *cobra.Command, path string) {
	ctx := context.Background()
	rt := setup(ctx)
	defer rt.close()

	vacancyID, _ := cmd.Flags().GetString("vacancy")
	candidateID, _ := cmd.Flags().GetString("candidate")
	promote, _ := cmd.Flags().GetBool("promote")
	output, _ := cmd.Flags().GetString("output")

	var job interview.JobDetails
	if vacancyID != "" {
		vacancy, err := rt.store.GetVacancy(ctx, vacancyID)
		if err != nil {
			rt.logger.Fatal("loading vacancy", zap.Error(err), zap.String("vacancy_id", vacancyID))
		}
		job = vacancy.Job
	} else {
		var err error
		job, err = jobFromFlags(cmd, rt.config.Job)
		if err != nil {
			rt.logger.Fatal("reading job details", zap.Error(err))
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		rt.logger.Fatal("reading cv", zap.Error(err))
	}

	text, err := rt.cv.Extract(filepath.Base(path), data)
	if err != nil {
		rt.logger.Fatal("extracting cv text", zap.Error(err), zap.String("file", path))
	}

	runCtx, cancel := rt.runContext(ctx)
	defer cancel()

	result, err := rt.pipeline.AnalyzeCV(runCtx, job, text)
	if err != nil {
		rt.logger.Fatal("analyzing cv", zap.Error(err))
	}

	if vacancyID != "" && candidateID != "" {
		if _, err := storage.SaveCVEvaluation(ctx, rt.store, vacancyID, candidateID, result, promote); err != nil {
			rt.logger.Fatal("saving cv analysis", zap.Error(err))
		}
	}

	if err := writeJSON(output, result); err != nil {
		rt.logger.Fatal("writing cv analysis", zap.Error(err))
	}
}
