package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/api"
	"github.com/yourusername/mediafetch-go/api/handlers"
	"github.com/yourusername/mediafetch-go/internal/app"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/internal/infrastructure"
	"github.com/yourusername/mediafetch-go/pkg/logger"
)

var (
	version    = "dev"
	configPath = flag.String("config", "", "Path to config file (default ./configs/config.yaml or ~/.mediafetch/config.yaml)")
)

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Logging.LogsDir,
	})
	if err != nil {
		log.Fatal("Failed to initialize category logs", zap.Error(err))
	}
	defer multiLog.Close()

	handlers.Version = version
	log.Info("Starting mediafetch server",
		zap.String("version", version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("binaries_dir", config.Binaries.Dir),
		zap.String("output_dir", config.Download.OutputDir))

	repo, err := infrastructure.NewSQLiteDownloadRepository(config.Queue.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	notifier := infrastructure.NewNotificationService(&config.Notification, log)

	provisioner := infrastructure.NewBinaryProvisioner(
		domain.NewBinarySet(&config.Binaries),
		infrastructure.NewGrabFetcher(config.Binaries.FetchTimeout, config.Binaries.RateLimit, multiLog.Provision()),
		infrastructure.NewZipUnpacker(),
		notifier,
		config.Binaries.PollInterval,
		multiLog.Provision(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if provisioner.EnsureReady(ctx, config.Binaries.ProvisionTimeout) {
			log.Info("Binaries ready", zap.String("dir", config.Binaries.Dir))
			return
		}
		log.Error("Binaries unavailable, downloads are disabled until restart",
			zap.String("reason", provisioner.Status().LastError))
	}()

	tracker := app.NewProgressTracker(config.Download.LogBuffer)
	downloadMgr := app.NewDownloadManager(repo, infrastructure.NewExecRunner(log), provisioner, tracker,
		notifier, multiLog, &config.Download, log)
	queueMgr := app.NewQueueManager(repo, downloadMgr, notifier, &config.Queue, multiLog, log)

	if config.Queue.AutoStart {
		if err := queueMgr.Start(ctx); err != nil {
			log.Fatal("Failed to start queue manager", zap.Error(err))
		}
	}

	router := api.SetupRouter(queueMgr, downloadMgr, provisioner, multiLog, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// stops provisioning and any running yt-dlp process
	cancel()

	if queueMgr.IsRunning() {
		if err := queueMgr.Stop(); err != nil {
			log.Error("Error stopping queue manager", zap.Error(err))
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
