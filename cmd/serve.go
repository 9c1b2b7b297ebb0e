package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/skillsync/internal/logger"
	"github.com/spigell/skillsync/internal/server"
)

const drainTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", "", "listen address (default :8001)")
	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer func() { _ = logger.Sync() }()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the skillsync api", zap.String("version", version))

	application, err := newApplication(ctx, config, logger)
	if err != nil {
		logger.Fatal("initializing", zap.Error(err))
	}

	srv := server.New(config.Server, server.Deps{
		Analyzer: application.service,
		Uploads:  application.service.Extractor(),
		Catalog:  application.catalog,
		Status:   application.status,
		Logger:   logger,
		Version:  version,
	})

	runErr := srv.Run(ctx)

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	application.Close(drainCtx)

	if runErr != nil {
		logger.Fatal("serving", zap.Error(runErr))
	}

	logger.Info("server stopped")
}
