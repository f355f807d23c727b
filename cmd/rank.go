package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/interview"
)

var rankCmd = &cobra.Command{
	Use:   "rank VACANCY_ID",
	Short: "Rank the candidates of a vacancy",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRank(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringP("output", "o", "", "write the ranking to this file instead of stdout")
}

func runRank(cmd *cobra.Command, vacancyID string) {
	ctx := context.Background()
	rt := setup(ctx)
	defer rt.close()

	output, _ := cmd.Flags().GetString("output")

	vacancy, err := rt.store.GetVacancy(ctx, vacancyID)
	if err != nil {
		rt.logger.Fatal("loading vacancy", zap.Error(err))
	}
	candidates, err := rt.store.ListCandidates(ctx, vacancyID)
	if err != nil {
		rt.logger.Fatal("loading candidates", zap.Error(err))
	}

	ranking := interview.RankCandidates(vacancy, candidates)
	rt.logger.Info("candidates ranked", zap.Int("count", len(ranking)))

	if err := writeJSON(output, ranking); err != nil {
		rt.logger.Fatal("writing ranking", zap.Error(err))
	}
}
