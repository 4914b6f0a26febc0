package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/pkg/logger"
)

// activeStatuses are the statuses a duplicate request is folded into
var activeStatuses = []domain.DownloadStatus{domain.StatusQueued, domain.StatusProcessing}

// QueueManager keeps a persistent FIFO of downloads and feeds them to the
// download manager one at a time
type QueueManager struct {
	repo        domain.DownloadRepository
	downloadMgr *DownloadManager
	notifier    Notifier
	config      *domain.QueueConfig
	multiLogger *logger.MultiLogger
	logger      *zap.Logger
	mu          sync.RWMutex
	running     bool
	stopChan    chan struct{}
	workerWg    sync.WaitGroup
}

// NewQueueManager creates a new queue manager
func NewQueueManager(
	repo domain.DownloadRepository,
	downloadMgr *DownloadManager,
	notifier Notifier,
	config *domain.QueueConfig,
	multiLogger *logger.MultiLogger,
	logger *zap.Logger,
) *QueueManager {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueManager{
		repo:        repo,
		downloadMgr: downloadMgr,
		notifier:    notifier,
		config:      config,
		multiLogger: multiLogger,
		logger:      logger,
	}
}

// Start starts the queue processor. Downloads left processing by a previous
// run are queued again first.
func (qm *QueueManager) Start(ctx context.Context) error {
	qm.mu.Lock()
	if qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager already running")
	}
	qm.running = true
	qm.stopChan = make(chan struct{})
	qm.mu.Unlock()

	if n, err := qm.repo.ResetOrphanedProcessing(); err != nil {
		qm.logAppError("Failed to requeue orphaned downloads", zap.Error(err))
	} else if n > 0 {
		qm.logQueueEvent("orphaned_downloads_requeued", zap.Int64("count", n))
	}

	qm.logQueueEvent("queue_started")

	qm.workerWg.Add(1)
	go qm.processQueue(ctx, qm.stopChan)

	return nil
}

// Stop stops the queue processor and waits for the current download
func (qm *QueueManager) Stop() error {
	qm.mu.Lock()
	if !qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager not running")
	}
	qm.running = false
	close(qm.stopChan)
	qm.mu.Unlock()

	qm.logQueueEvent("queue_stopped")
	qm.workerWg.Wait()

	return nil
}

// IsRunning returns whether the queue manager is running
func (qm *QueueManager) IsRunning() bool {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.running
}

// AddDownload validates req and queues it. A request for a URL that is
// already queued or processing with the same options returns that record.
func (qm *QueueManager) AddDownload(req domain.DownloadRequest) (*domain.Download, error) {
	req, err := domain.NewDownloadRequest(req.URL, req.Mode, req.Quality, req.Container, req.OutputTemplate)
	if err != nil {
		return nil, err
	}

	existing, err := qm.repo.FindByURL(req.URL, activeStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicates: %w", err)
	}
	if existing != nil && existing.Request() == req {
		qm.logQueueEvent("download_duplicate",
			zap.String("id", existing.ID),
			zap.String("url", req.URL))
		return existing, nil
	}

	download := domain.NewDownload(req)
	if err := qm.repo.Create(download); err != nil {
		return nil, fmt.Errorf("failed to create download: %w", err)
	}

	qm.logQueueEvent("download_added",
		zap.String("id", download.ID),
		zap.String("url", download.URL),
		zap.String("mode", string(download.Mode)),
		zap.String("container", download.Container))
	qm.notifier.NotifyDownloadQueued(download)

	return download, nil
}

// GetDownload retrieves a download by ID
func (qm *QueueManager) GetDownload(id string) (*domain.Download, error) {
	return qm.repo.FindByID(id)
}

// ListDownloads lists all downloads with optional filters
func (qm *QueueManager) ListDownloads(filters map[string]interface{}) ([]*domain.Download, error) {
	return qm.repo.FindAll(filters)
}

// GetStats returns queue statistics
func (qm *QueueManager) GetStats() (*domain.DownloadStats, error) {
	return qm.repo.GetStats()
}

// CancelDownload cancels a queued download. Running downloads cannot be
// cancelled.
func (qm *QueueManager) CancelDownload(id string) error {
	download, err := qm.repo.FindByID(id)
	if err != nil {
		return err
	}
	if !download.IsPending() {
		return fmt.Errorf("%w: download is %s, only queued downloads can be cancelled", domain.ErrInvalidRequest, download.Status)
	}

	download.MarkCancelled()
	if err := qm.repo.Update(download); err != nil {
		return fmt.Errorf("failed to update download: %w", err)
	}

	qm.logQueueEvent("download_cancelled", zap.String("id", id))
	return nil
}

// RetryDownload puts a failed download back into the queue
func (qm *QueueManager) RetryDownload(id string) (*domain.Download, error) {
	download, err := qm.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if download.Status != domain.StatusFailed {
		return nil, fmt.Errorf("%w: download is %s, only failed downloads can be retried", domain.ErrInvalidRequest, download.Status)
	}

	download.Requeue()
	if err := qm.repo.Update(download); err != nil {
		return nil, fmt.Errorf("failed to update download: %w", err)
	}

	qm.logQueueEvent("download_retried", zap.String("id", id))
	return download, nil
}

// DeleteDownload removes a download record that is not processing
func (qm *QueueManager) DeleteDownload(id string) error {
	download, err := qm.repo.FindByID(id)
	if err != nil {
		return err
	}
	if download.Status == domain.StatusProcessing {
		return fmt.Errorf("%w: download is processing", domain.ErrInvalidRequest)
	}
	if err := qm.repo.Delete(id); err != nil {
		return err
	}

	qm.logQueueEvent("download_deleted", zap.String("id", id))
	return nil
}

// processQueue takes queued downloads oldest first, one per tick
func (qm *QueueManager) processQueue(ctx context.Context, stop <-chan struct{}) {
	defer qm.workerWg.Done()

	ticker := time.NewTicker(qm.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			qm.logQueueEvent("queue_processor_stopped", zap.String("reason", "context_cancelled"))
			return
		case <-stop:
			qm.logQueueEvent("queue_processor_stopped", zap.String("reason", "stop_signal"))
			return
		case <-ticker.C:
			qm.processNext(ctx)
		}
	}
}

// processNext runs the oldest queued download, if binaries allow it
func (qm *QueueManager) processNext(ctx context.Context) {
	readyErr := qm.downloadMgr.CheckReady()
	if errors.Is(readyErr, domain.ErrBinariesPending) {
		return
	}

	pending, err := qm.repo.FindPending()
	if err != nil {
		qm.logAppError("Failed to fetch pending downloads", zap.Error(err))
		return
	}
	if len(pending) == 0 {
		return
	}

	if errors.Is(readyErr, domain.ErrBinariesMissing) {
		for _, download := range pending {
			download.MarkFailed(readyErr)
			if err := qm.repo.Update(download); err != nil {
				qm.logAppError("Failed to update download status", zap.Error(err))
			}
			qm.logQueueEvent("download_failed",
				zap.String("id", download.ID),
				zap.Error(readyErr))
		}
		return
	}

	download := pending[0]
	qm.logQueueEvent("download_started",
		zap.String("id", download.ID),
		zap.String("url", download.URL))

	err = qm.downloadMgr.ProcessDownload(ctx, download)
	switch {
	case errors.Is(err, domain.ErrDownloadInProgress), errors.Is(err, domain.ErrBinariesPending):
		// still queued, picked up on a later tick
	case err != nil:
		qm.logQueueEvent("download_failed",
			zap.String("id", download.ID),
			zap.Error(err))
		qm.logAppError("Failed to process download",
			zap.String("id", download.ID),
			zap.Error(err))
	default:
		qm.logQueueEvent("download_completed",
			zap.String("id", download.ID),
			zap.String("file_name", download.FileName))
	}
}

func (qm *QueueManager) logQueueEvent(event string, fields ...zap.Field) {
	if qm.multiLogger != nil {
		qm.multiLogger.LogQueueEvent(event, fields...)
	}
	qm.logger.Debug(event, fields...)
}

func (qm *QueueManager) logAppError(msg string, fields ...zap.Field) {
	if qm.multiLogger != nil {
		qm.multiLogger.LogAppError(msg, fields...)
	}
	qm.logger.Error(msg, fields...)
}
