// Command sftrees trains and tunes a random-forest classifier that predicts
// whether a San Francisco street tree is maintained by the Department of
// Public Works, reproducing the analysis end to end from the public dataset.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/grvsrm/sftrees/dataset"
	"github.com/grvsrm/sftrees/pipeline"
	"github.com/grvsrm/sftrees/pkg/log"
)

var (
	flagURL      string
	flagOutput   string
	flagFolds    int
	flagTrees    int
	flagCoarse   int
	flagWorkers  int
	flagSplit    uint64
	flagFold     uint64
	flagSample   uint64
	flagLogLevel string
	flagSummary  bool
)

var rootCmd = &cobra.Command{
	Use:   "sftrees",
	Short: "Tune a random forest on San Francisco street-tree data",
	Long: "Fetches the SF street-tree dataset, cleans it, runs a cross-validated " +
		"hyperparameter search over a random-forest classifier, and reports " +
		"held-out accuracy and ROC-AUC along with optional charts.",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	defaults := pipeline.DefaultConfig()
	rootCmd.Flags().StringVar(&flagURL, "url", defaults.URL, "dataset CSV URL")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "directory for PNG charts (disabled when empty)")
	rootCmd.Flags().IntVar(&flagFolds, "folds", defaults.Folds, "cross-validation folds")
	rootCmd.Flags().IntVar(&flagTrees, "trees", defaults.Trees, "trees per forest")
	rootCmd.Flags().IntVar(&flagCoarse, "coarse-candidates", defaults.CoarseCandidates, "candidates in the coarse random search")
	rootCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallel workers (0 = all CPUs)")
	rootCmd.Flags().Uint64Var(&flagSplit, "split-seed", defaults.SplitSeed, "train/test split seed")
	rootCmd.Flags().Uint64Var(&flagFold, "fold-seed", defaults.FoldSeed, "cross-validation fold seed")
	rootCmd.Flags().Uint64Var(&flagSample, "sample-seed", defaults.SampleSeed, "grid sampling and downsampling seed")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&flagSummary, "summary", false, "print per-column dataset summaries")
}

func run(cmd *cobra.Command, _ []string) error {
	logger := log.NewZerologProvider(log.ToLogLevel(flagLogLevel)).GetLoggerWithName("sftrees")

	cfg := pipeline.DefaultConfig()
	cfg.URL = flagURL
	cfg.Folds = flagFolds
	cfg.Trees = flagTrees
	cfg.CoarseCandidates = flagCoarse
	cfg.Workers = flagWorkers
	cfg.SplitSeed = flagSplit
	cfg.FoldSeed = flagFold
	cfg.SampleSeed = flagSample
	cfg.OutputDir = flagOutput

	if flagSummary {
		return runWithSummary(cmd, cfg, logger)
	}

	res, err := pipeline.New(cfg, logger).Run(cmd.Context())
	if err != nil {
		return err
	}
	report(cmd, res)
	return nil
}

// runWithSummary fetches once so the raw table can be summarized before the
// analysis consumes it.
func runWithSummary(cmd *cobra.Command, cfg pipeline.Config, logger log.Logger) error {
	raw, err := dataset.Fetch(cmd.Context(), cfg.URL)
	if err != nil {
		return err
	}
	cmd.Println("Raw dataset:")
	cmd.Print(pipeline.FormatSummary(pipeline.Summarize(raw)))

	clean, err := pipeline.Clean(raw, cfg, logger)
	if err != nil {
		return err
	}
	cmd.Println("\nCleaned dataset:")
	cmd.Print(pipeline.FormatSummary(pipeline.Summarize(clean)))

	res, err := pipeline.New(cfg, logger).RunTable(raw)
	if err != nil {
		return err
	}
	report(cmd, res)
	return nil
}

func report(cmd *cobra.Command, res *pipeline.Result) {
	cmd.Println()
	cmd.Printf("rows: %d raw, %d cleaned (%d dropped), %d train / %d test\n",
		res.RawRows, res.CleanRows, res.DroppedRows, res.TrainRows, res.TestRows)
	cmd.Printf("best candidate: mtry=%d min_n=%d (cv roc_auc %.4f, cv accuracy %.4f)\n",
		res.Best.Candidate.Mtry, res.Best.Candidate.MinN, res.Best.MeanROCAUC, res.Best.MeanAccuracy)
	cmd.Printf("held-out test: accuracy %.4f, roc_auc %.4f (oob %.4f)\n",
		res.Test.Accuracy, res.Test.ROCAUC, res.OOBScore)

	if len(res.FeatureNames) > 0 {
		top := 10
		if len(res.FeatureNames) < top {
			top = len(res.FeatureNames)
		}
		order := importanceOrder(res.Importances)
		cmd.Println("top features by importance:")
		for i := 0; i < top; i++ {
			idx := order[i]
			cmd.Printf("  %-30s %.4f\n", res.FeatureNames[idx], res.Importances[idx])
		}
	}

	for _, path := range res.PlotPaths {
		cmd.Printf("wrote %s\n", path)
	}
}

func importanceOrder(importances []float64) []int {
	order := make([]int, len(importances))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return importances[order[a]] > importances[order[b]]
	})
	return order
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
