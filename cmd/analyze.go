package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/skillsync/internal/analysis"
	"github.com/spigell/skillsync/internal/logger"
	"github.com/spigell/skillsync/internal/recommend"
)

const (
	PromptAnalysis = "Show analysis"
	PromptExit     = "exit"
)

var errExit = errors.New("exit requested")

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Analyze a resume file and print the recommendations",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		analyze(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolP("interactive", "i", false, "browse the recommendations interactively")
}

func analyze(cmd *cobra.Command, path string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer func() { _ = logger.Sync() }()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("reading resume", zap.String("path", path), zap.Error(err))
	}

	application, err := newApplication(ctx, config, logger)
	if err != nil {
		logger.Fatal("initializing", zap.Error(err))
	}

	result, err := application.service.AnalyzeDocument(ctx, filepath.Base(path), data)

	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	application.Close(drainCtx)

	if err != nil {
		logger.Fatal("analyzing resume", zap.String("path", path), zap.Error(err))
	}

	interactive, _ := cmd.Flags().GetBool("interactive")
	if !interactive {
		if err := printJSON(result); err != nil {
			logger.Fatal("printing result", zap.Error(err))
		}
		return
	}

	if err := browse(result); err != nil && !errors.Is(err, errExit) {
		logger.Fatal("exiting", zap.Error(err))
	}
}

// browse lets the user pick recommendations until exit is chosen.
func browse(result analysis.Result) error {
	for {
		items := []string{PromptAnalysis}
		for _, rec := range result.Recommendations {
			items = append(items, recommendationLabel(rec))
		}
		items = append(items, PromptExit)

		selector := promptui.Select{
			Label: fmt.Sprintf("Rating %.1f/10, %d recommendations. Choose and press ENTER", result.Analysis.OverallRating, len(result.Recommendations)),
			Items: items,
			Size:  10,
		}

		index, selected, err := selector.Run()
		if err != nil {
			return err
		}

		switch {
		case selected == PromptExit:
			return errExit
		case selected == PromptAnalysis:
			if err := printJSON(result.Analysis); err != nil {
				return err
			}
		default:
			if err := printJSON(result.Recommendations[index-1]); err != nil {
				return err
			}
		}
	}
}

func recommendationLabel(rec recommend.Recommendation) string {
	return fmt.Sprintf("%3d%% %s / %s / %s", rec.MatchPercentage, rec.Title, rec.Company, rec.Location)
}

func printJSON(v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(strings.TrimSpace(string(pretty)))
	return nil
}
