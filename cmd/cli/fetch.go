package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/app"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/internal/infrastructure"
	"github.com/yourusername/mediafetch-go/pkg/logger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "Download a URL locally without the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := app.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
			config.Download.OutputDir = dir
		}

		modeFlag, _ := cmd.Flags().GetString("mode")
		quality, _ := cmd.Flags().GetString("quality")
		container, _ := cmd.Flags().GetString("container")
		output, _ := cmd.Flags().GetString("output")

		mode, err := domain.ParseFormatMode(modeFlag)
		if err != nil {
			return err
		}
		req, err := domain.NewDownloadRequest(args[0], mode, quality, container, output)
		if err != nil {
			return err
		}

		log := logger.NewCLI(verbose)
		defer log.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		provisioner := newProvisioner(config, log)
		if err := ensureBinaries(ctx, provisioner, config.Binaries.ProvisionTimeout); err != nil {
			return err
		}

		repo, err := infrastructure.NewSQLiteDownloadRepository(config.Queue.DatabasePath)
		if err != nil {
			return err
		}
		defer repo.Close()

		tracker := app.NewProgressTracker(config.Download.LogBuffer)
		renderer := newProgressRenderer(os.Stderr, verbose)
		unsubscribe := tracker.Subscribe(renderer.Update)
		defer unsubscribe()

		downloadMgr := app.NewDownloadManager(repo, infrastructure.NewExecRunner(log), provisioner, tracker,
			nil, nil, &config.Download, log)

		download, err := downloadMgr.Start(ctx, req)
		renderer.Finish(tracker.Snapshot())
		if err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "recorded as %s in %s\n", download.ID, config.Queue.DatabasePath)
		}
		return nil
	},
}

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Download yt-dlp, ffmpeg and ffprobe if they are missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := app.LoadConfig(configPath)
		if err != nil {
			return err
		}

		log := logger.NewCLI(verbose)
		defer log.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		provisioner := newProvisioner(config, log)
		err = ensureBinaries(ctx, provisioner, config.Binaries.ProvisionTimeout)
		printProvisionStatus(provisioner.Status())
		if err != nil {
			return err
		}
		fmt.Printf("Binaries in %s\n", config.Binaries.Dir)
		return nil
	},
}

func newProvisioner(config *domain.Config, log *zap.Logger) *infrastructure.BinaryProvisioner {
	return infrastructure.NewBinaryProvisioner(
		domain.NewBinarySet(&config.Binaries),
		infrastructure.NewGrabFetcher(config.Binaries.FetchTimeout, config.Binaries.RateLimit, log),
		infrastructure.NewZipUnpacker(),
		nil,
		config.Binaries.PollInterval,
		log,
	)
}

// ensureBinaries runs provisioning behind a spinner
func ensureBinaries(ctx context.Context, provisioner *infrastructure.BinaryProvisioner, timeout time.Duration) error {
	if provisioner.Ready() {
		return nil
	}

	bar := spinner(os.Stderr, "checking binaries")
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				bar.Add(1)
			}
		}
	}()

	ready := provisioner.EnsureReady(ctx, timeout)
	close(done)
	bar.Finish()

	if !ready {
		status := provisioner.Status()
		if status.LastError != "" {
			return fmt.Errorf("%w: %s", domain.ErrBinariesMissing, status.LastError)
		}
		return domain.ErrBinariesMissing
	}
	return nil
}

func init() {
	fetchCmd.Flags().StringP("mode", "m", "", "Format mode (audio_video, video, audio)")
	fetchCmd.Flags().StringP("quality", "q", "", "Maximum video height (best, 1080, 720, 480)")
	fetchCmd.Flags().StringP("container", "c", "", "Container or audio codec")
	fetchCmd.Flags().StringP("output", "o", "", "yt-dlp output template")
	fetchCmd.Flags().StringP("dir", "d", "", "Output directory")
}
