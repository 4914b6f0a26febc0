package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/internal/infrastructure"
	"github.com/yourusername/mediafetch-go/pkg/logger"
)

// Notifier is told about download lifecycle changes
type Notifier interface {
	NotifyDownloadQueued(d *domain.Download)
	NotifyDownloadStarted(d *domain.Download)
	NotifyDownloadCompleted(d *domain.Download)
	NotifyDownloadFailed(d *domain.Download, err error)
}

type nopNotifier struct{}

func (nopNotifier) NotifyDownloadQueued(*domain.Download)        {}
func (nopNotifier) NotifyDownloadStarted(*domain.Download)       {}
func (nopNotifier) NotifyDownloadCompleted(*domain.Download)     {}
func (nopNotifier) NotifyDownloadFailed(*domain.Download, error) {}

// DownloadManager runs one yt-dlp download at a time and records the result
type DownloadManager struct {
	repo        domain.DownloadRepository
	runner      domain.ProcessRunner
	provisioner domain.Provisioner
	tracker     *ProgressTracker
	notifier    Notifier
	multiLogger *logger.MultiLogger
	config      *domain.DownloadConfig
	logger      *zap.Logger

	mu     sync.Mutex
	active bool
}

// NewDownloadManager creates a new download manager. notifier and
// multiLogger may be nil.
func NewDownloadManager(
	repo domain.DownloadRepository,
	runner domain.ProcessRunner,
	provisioner domain.Provisioner,
	tracker *ProgressTracker,
	notifier Notifier,
	multiLogger *logger.MultiLogger,
	config *domain.DownloadConfig,
	logger *zap.Logger,
) *DownloadManager {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DownloadManager{
		repo:        repo,
		runner:      runner,
		provisioner: provisioner,
		tracker:     tracker,
		notifier:    notifier,
		multiLogger: multiLogger,
		config:      config,
		logger:      logger,
	}
}

// Tracker returns the progress tracker of the current download
func (dm *DownloadManager) Tracker() *ProgressTracker {
	return dm.tracker
}

// CheckReady reports why a download cannot start yet, if it cannot
func (dm *DownloadManager) CheckReady() error {
	if dm.provisioner.TimedOut() {
		return domain.ErrBinariesMissing
	}
	if !dm.provisioner.Ready() {
		return domain.ErrBinariesPending
	}
	return nil
}

// IsActive reports whether a download is running
func (dm *DownloadManager) IsActive() bool {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.active
}

// Start records a new download for req and runs it to completion.
// The returned record reflects the final state even when err is non-nil.
// Nothing is recorded when another download holds the slot.
func (dm *DownloadManager) Start(ctx context.Context, req domain.DownloadRequest) (*domain.Download, error) {
	if err := dm.CheckReady(); err != nil {
		return nil, err
	}
	if !dm.acquire() {
		return nil, domain.ErrDownloadInProgress
	}
	defer dm.release()

	download := domain.NewDownload(req)
	if err := dm.repo.Create(download); err != nil {
		return nil, fmt.Errorf("failed to create download: %w", err)
	}

	return download, dm.process(ctx, download)
}

// ProcessDownload runs a persisted download. It refuses to start while
// binaries are not ready or another download is running, leaving the record
// untouched.
func (dm *DownloadManager) ProcessDownload(ctx context.Context, download *domain.Download) error {
	if err := dm.CheckReady(); err != nil {
		return err
	}
	if !dm.acquire() {
		return domain.ErrDownloadInProgress
	}
	defer dm.release()

	return dm.process(ctx, download)
}

// process runs download; the caller holds the slot
func (dm *DownloadManager) process(ctx context.Context, download *domain.Download) error {
	dm.logger.Info("Processing download",
		zap.String("id", download.ID),
		zap.String("url", download.URL),
		zap.String("mode", string(download.Mode)))

	download.MarkProcessing()
	if err := dm.repo.Update(download); err != nil {
		return fmt.Errorf("failed to update download status: %w", err)
	}

	dm.tracker.Reset(download.ID)
	dm.notifier.NotifyDownloadStarted(download)

	req, err := dm.resolveRequest(download.Request())
	if err != nil {
		return dm.fail(download, err)
	}

	binaries := dm.provisioner.Binaries()
	args := infrastructure.BuildArgs(req, binaries.FFmpegPath())
	command := infrastructure.ShellEscapeCommand(binaries.YTDLPPath(), args...)

	var session *logger.DownloadSession
	if dm.multiLogger != nil {
		session, err = dm.multiLogger.BeginDownload(download.ID, command)
		if err != nil {
			dm.logger.Warn("Failed to open download log", zap.Error(err))
		}
	}

	dm.logger.Debug("Running yt-dlp", zap.String("command", command))

	outcome, runErr := dm.runner.Run(ctx, binaries.YTDLPPath(), args, binaries.Dir, func(line string) {
		dm.tracker.Apply(infrastructure.ClassifyLine(line))
		if session != nil {
			session.Line(line)
		}
	})

	if runErr == nil && !outcome.Success() {
		runErr = fmt.Errorf("%w: exit code %d", domain.ErrProcessExit, outcome.ExitCode)
	}
	if session != nil {
		session.End(outcome.ExitCode, runErr)
	}

	download.ProcessLog = dm.tracker.LogText()
	if outcome.ExitCode >= 0 {
		code := outcome.ExitCode
		download.ExitCode = &code
	}

	if runErr != nil {
		return dm.fail(download, runErr)
	}

	download.MarkCompleted(dm.tracker.FileName(), outcome.ExitCode)
	if err := dm.repo.Update(download); err != nil {
		dm.logger.Error("Failed to update download status", zap.Error(err))
	}
	dm.tracker.Complete(download.FileName)

	dm.logger.Info("Download completed",
		zap.String("id", download.ID),
		zap.String("file", download.FileName),
		zap.Duration("duration", outcome.Duration))

	dm.notifier.NotifyDownloadCompleted(download)
	return nil
}

// resolveRequest places relative output templates in the output directory,
// since yt-dlp runs with the binaries directory as its working directory
func (dm *DownloadManager) resolveRequest(req domain.DownloadRequest) (domain.DownloadRequest, error) {
	if filepath.IsAbs(req.OutputTemplate) || dm.config == nil || dm.config.OutputDir == "" {
		return req, nil
	}
	if err := os.MkdirAll(dm.config.OutputDir, 0755); err != nil {
		return req, fmt.Errorf("failed to create output directory: %w", err)
	}
	req.OutputTemplate = filepath.Join(dm.config.OutputDir, req.OutputTemplate)
	return req, nil
}

func (dm *DownloadManager) fail(download *domain.Download, err error) error {
	download.MarkFailed(err)
	if updateErr := dm.repo.Update(download); updateErr != nil {
		dm.logger.Error("Failed to update download status", zap.Error(updateErr))
	}
	dm.tracker.Fail(err)

	dm.logger.Error("Download failed",
		zap.String("id", download.ID),
		zap.String("url", download.URL),
		zap.Error(err))
	if dm.multiLogger != nil {
		dm.multiLogger.LogAppError("Download failed",
			zap.String("id", download.ID),
			zap.Error(err))
	}

	dm.notifier.NotifyDownloadFailed(download, err)
	return err
}

func (dm *DownloadManager) acquire() bool {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.active {
		return false
	}
	dm.active = true
	return true
}

func (dm *DownloadManager) release() {
	dm.mu.Lock()
	dm.active = false
	dm.mu.Unlock()
}
