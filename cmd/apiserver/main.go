package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/amoylab/hydrowatch/internal/common/config"
	"github.com/amoylab/hydrowatch/pkg/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of apiserver",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("apiserver version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "apiserver",
		Short: "HydroWatch API Server",
		Long:  `HydroWatch API Server serves the water quality dashboards: accounts, establishments, notifications and live sensor readings`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "conf", "c", "apiserver.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	cfg, cfgPath, err := config.LoadConfig[config.APIServerConfig](configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", cfgPath, err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration in %s:\n%v", cfgPath, err)
	}

	logger := initLogger(cfg)
	defer logger.Sync()
	logger.Info("Loaded configuration", zap.String("path", cfgPath))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := initTracing(ctx, logger, &cfg.Tracing)

	db := initDatabase(logger, &cfg.Database)
	defer db.Close()

	if err := initSuperAdmin(ctx, logger, db, &cfg.SuperAdmin); err != nil {
		logger.Fatal("Failed to bootstrap super admin", zap.Error(err))
	}

	a, err := initApp(ctx, logger, cfg, db)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer a.close()

	router := initRouter(a)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	logger.Info("Starting apiserver",
		zap.String("version", version.Get()),
		zap.Int("port", cfg.Server.Port))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down apiserver")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	a.realtime.Hub().CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	a.stop(shutdownCtx)
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Failed to flush traces", zap.Error(err))
	}
	logger.Info("Apiserver stopped")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
