package domain

import (
	"time"

	"github.com/google/uuid"
)

// DownloadStatus represents the current status of a download
type DownloadStatus string

const (
	StatusQueued     DownloadStatus = "queued"
	StatusProcessing DownloadStatus = "processing"
	StatusCompleted  DownloadStatus = "completed"
	StatusFailed     DownloadStatus = "failed"
	StatusCancelled  DownloadStatus = "cancelled"
)

// Download is the persisted record of one download attempt
type Download struct {
	ID             string         `json:"id" gorm:"primaryKey"`
	URL            string         `json:"url" gorm:"not null"`
	Mode           FormatMode     `json:"mode" gorm:"not null"`
	Quality        string         `json:"quality"`
	Container      string         `json:"container"`
	OutputTemplate string         `json:"output_template"`
	Status         DownloadStatus `json:"status" gorm:"not null;index"`
	FileName       string         `json:"file_name,omitempty"`
	ExitCode       *int           `json:"exit_code,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	ProcessLog     string         `json:"process_log,omitempty" gorm:"type:text"` // yt-dlp output
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

// NewDownload creates a queued record for a validated request
func NewDownload(req DownloadRequest) *Download {
	now := time.Now()
	return &Download{
		ID:             uuid.New().String(),
		URL:            req.URL,
		Mode:           req.Mode,
		Quality:        req.Quality,
		Container:      req.Container,
		OutputTemplate: req.OutputTemplate,
		Status:         StatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Request rebuilds the download request stored in the record
func (d *Download) Request() DownloadRequest {
	return DownloadRequest{
		URL:            d.URL,
		Mode:           d.Mode,
		Quality:        d.Quality,
		Container:      d.Container,
		OutputTemplate: d.OutputTemplate,
	}
}

// MarkProcessing marks the download as processing
func (d *Download) MarkProcessing() {
	d.Status = StatusProcessing
	now := time.Now()
	d.StartedAt = &now
	d.UpdatedAt = now
}

// MarkCompleted marks the download as completed
func (d *Download) MarkCompleted(fileName string, exitCode int) {
	d.Status = StatusCompleted
	d.FileName = fileName
	d.ExitCode = &exitCode
	now := time.Now()
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// MarkFailed marks the download as failed
func (d *Download) MarkFailed(err error) {
	d.Status = StatusFailed
	d.ErrorMessage = err.Error()
	now := time.Now()
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// MarkCancelled marks the download as cancelled
func (d *Download) MarkCancelled() {
	d.Status = StatusCancelled
	d.UpdatedAt = time.Now()
}

// Requeue resets a failed download so the queue picks it up again
func (d *Download) Requeue() {
	d.Status = StatusQueued
	d.ErrorMessage = ""
	d.ExitCode = nil
	d.StartedAt = nil
	d.CompletedAt = nil
	d.UpdatedAt = time.Now()
}

// IsTerminal checks if the download is in a terminal state
func (d *Download) IsTerminal() bool {
	return d.Status == StatusCompleted || d.Status == StatusCancelled || d.Status == StatusFailed
}

// IsPending checks if the download is pending
func (d *Download) IsPending() bool {
	return d.Status == StatusQueued
}

// ValidateStatus checks if a status filter value is known
func ValidateStatus(status DownloadStatus) bool {
	switch status {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
