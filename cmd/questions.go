package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/pipeline"
	"github.com/spigell/interviewer/internal/storage"
)

const (
	PromptApprove    = "Approve and save"
	PromptRegenerate = "Regenerate"
	PromptDrop       = "Drop a question"
	PromptShow       = "Show questions"
	PromptToFile     = "Dump questions to file"
	PromptCancel     = "Exit without saving"
	PromptBack       = "back"
)

var errExit = errors.New("exit requested")

var questionsPrompt = promptui.Select{
	Label: "What to do with the questions?",
	Items: []string{PromptApprove, PromptRegenerate, PromptDrop, PromptShow, PromptToFile, PromptCancel},
}

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Generate interview questions with baseline answers for a vacancy",
	Run: func(cmd *cobra.Command, _ []string) {
		runQuestions(cmd)
	},
}

func init() {
	rootCmd.AddCommand(questionsCmd)

	questionsCmd.Flags().String("job-file", "", "json file with the job details (default is the job section of the config)")
	questionsCmd.Flags().String("title", "", "job title")
	questionsCmd.Flags().String("level", "", "job level")
	questionsCmd.Flags().String("description-file", "", "file with the job description")
	questionsCmd.Flags().IntP("num", "n", 0, "number of questions to generate")
	questionsCmd.Flags().Int("bias", int(interview.BiasBalanced), "0 very technical .. 4 very behavioral")
	questionsCmd.Flags().BoolP("auto-approve", "y", false, "save the generated questions without asking")
	questionsCmd.Flags().StringP("output", "o", "", "write the vacancy to this file instead of stdout")
	questionsCmd.Flags().Bool("no-keywords", false, "skip keyword extraction")
}

func runQuestions(cmd *cobra.Command) {
	ctx := context.Background()
	rt := setup(ctx)
	defer rt.close()

	job, err := jobFromFlags(cmd, rt.config.Job)
	if err != nil {
		rt.logger.Fatal("reading job details", zap.Error(err))
	}
	if err := job.Validate(); err != nil {
		rt.logger.Fatal("invalid job details", zap.Error(err))
	}

	rt.logger.Info("generating questions",
		zap.String("title", job.Title),
		zap.Int("count", job.NumQuestions),
		zap.String("bias", job.Bias.Label()),
	)

	questions, err := generateQuestions(ctx, rt, job)
	if err != nil {
		rt.logger.Fatal("generating questions", zap.Error(err))
	}

	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	output, _ := cmd.Flags().GetString("output")

	for !autoApprove {
		_, action, err := questionsPrompt.Run()
		if err != nil {
			rt.logger.Fatal("exiting", zap.Error(err))
		}

		questions, err = handleQuestionsAction(ctx, action, rt, job, questions)
		if errors.Is(err, errExit) {
			return
		}
		if err != nil {
			rt.logger.Fatal("exiting", zap.Error(err))
		}
		if action == PromptApprove {
			break
		}
	}

	if err := interview.ValidateQuestions(questions); err != nil {
		rt.logger.Warn("saving questions with rubric problems", zap.Error(err))
	}

	var keywords []string
	if skip, _ := cmd.Flags().GetBool("no-keywords"); !skip {
		runCtx, cancel := rt.runContext(ctx)
		keywords, err = rt.pipeline.ExtractKeywords(runCtx, job)
		cancel()
		if err != nil {
			rt.logger.Warn("keyword extraction failed", zap.Error(err))
		}
	}

	vacancy := storage.NewVacancy(job, questions, keywords)
	if err := rt.store.SaveVacancy(ctx, vacancy); err != nil {
		rt.logger.Fatal("saving vacancy", zap.Error(err))
	}

	if err := writeJSON(output, vacancy); err != nil {
		rt.logger.Fatal("writing vacancy", zap.Error(err))
	}

	rt.logger.Info("vacancy saved", zap.String("vacancy_id", vacancy.ID), zap.Int("questions", len(questions)))
}

func generateQuestions(ctx context.Context, rt *runtime, job interview.JobDetails) ([]interview.Question, error) {
	runCtx, cancel := rt.runContext(ctx)
	defer cancel()

	generated, err := rt.pipeline.GenerateQuestions(runCtx, job)
	if err != nil {
		return nil, err
	}
	if err := generated.Err(); err != nil {
		rt.logger.Warn("some questions break the rubric, fix or drop them", zap.Error(err))
	}
	return generated.Questions, nil
}

func handleQuestionsAction(ctx context.Context, action string, rt *runtime, job interview.JobDetails, questions []interview.Question) ([]interview.Question, error) {
	switch action {
	case PromptApprove:
		return questions, nil
	case PromptRegenerate:
		return generateQuestions(ctx, rt, job)
	case PromptDrop:
		return dropQuestions(questions)
	case PromptShow:
		fmt.Println(pipeline.BuildTranscript(questions, nil))
		return questions, nil
	case PromptToFile:
		f, err := os.CreateTemp("", app+"-questions-*.json")
		if err != nil {
			return questions, fmt.Errorf("create dump file: %w", err)
		}
		_ = f.Close()
		if err := writeJSON(f.Name(), questions); err != nil {
			return questions, err
		}
		rt.logger.Info("dumping questions to file", zap.String("filename", f.Name()))
		return questions, nil
	case PromptCancel:
		rt.logger.Info("exiting", zap.String("reason", "questions were not approved"))
		return questions, errExit
	default:
		return questions, fmt.Errorf("invalid action: %s", action)
	}
}

func dropQuestions(questions []interview.Question) ([]interview.Question, error) {
	for {
		items := make([]string, 0, len(questions)+1)
		for i, q := range questions {
			label := fmt.Sprintf("%d. %s", i+1, q.Text)
			if err := q.Validate(); err != nil {
				label += " [invalid rubric]"
			}
			items = append(items, label)
		}

		dropPrompt := promptui.Select{
			Label: "Choose a question to drop and press ENTER",
			Items: append(items, PromptBack),
		}

		idx, selected, err := dropPrompt.Run()
		if err != nil {
			return questions, err
		}
		if selected == PromptBack {
			return questions, nil
		}

		questions = append(questions[:idx:idx], questions[idx+1:]...)
	}
}

// jobFromFlags starts from the config job section or --job-file and applies
// the individual flags on top.
func jobFromFlags(cmd *cobra.Command, base *interview.JobDetails) (interview.JobDetails, error) {
	var job interview.JobDetails
	if base != nil {
		job = *base
	}

	if path, _ := cmd.Flags().GetString("job-file"); path != "" {
		if err := readJSON(path, &job); err != nil {
			return job, err
		}
	}

	if title, _ := cmd.Flags().GetString("title"); title != "" {
		job.Title = title
	}
	if level, _ := cmd.Flags().GetString("level"); level != "" {
		job.Level = level
	}
	if path, _ := cmd.Flags().GetString("description-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return job, fmt.Errorf("read description: %w", err)
		}
		job.Description = strings.TrimSpace(string(data))
	}
	if num, _ := cmd.Flags().GetInt("num"); num > 0 {
		job.NumQuestions = num
	}
	if cmd.Flags().Changed("bias") {
		bias, _ := cmd.Flags().GetInt("bias")
		job.Bias = interview.Bias(bias)
	}

	return job, nil
}
