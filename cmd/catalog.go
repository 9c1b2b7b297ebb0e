package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/skillsync/internal/catalog"
	"github.com/spigell/skillsync/internal/logger"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Validate and print the internship catalog",
	Run: func(cmd *cobra.Command, _ []string) {
		printCatalog(cmd)
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)

	catalogCmd.Flags().Bool("skills", false, "print only the skill vocabulary used in the AI prompt")
	catalogCmd.Flags().StringP("file", "f", "", "catalog file (default is the built-in catalog)")
	viper.BindPFlag("catalog", catalogCmd.Flags().Lookup("file"))
}

func printCatalog(cmd *cobra.Command) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	path := viper.GetString("catalog")
	store := catalog.Load(path, logger)
	logger.Info("catalog loaded", zap.String("catalog", path), zap.Int("count", store.Len()))

	var out any = store.All()
	if skillsOnly, _ := cmd.Flags().GetBool("skills"); skillsOnly {
		out = store.SkillVocabulary()
	}

	if err := printJSON(out); err != nil {
		logger.Fatal("printing catalog", zap.Error(err))
	}
}
