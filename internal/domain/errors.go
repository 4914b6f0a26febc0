package domain

import "errors"

var (
	// ErrLaunchFailure means the tool executable could not be started
	ErrLaunchFailure = errors.New("launch failure")

	// ErrNetworkFailure means a fetch got a transport error or a non-success status
	ErrNetworkFailure = errors.New("network failure")

	// ErrExtractionFailure means an archive was unreadable or lacked the expected members
	ErrExtractionFailure = errors.New("extraction failure")

	// ErrProvisioningTimeout means the binaries did not become present in time
	ErrProvisioningTimeout = errors.New("provisioning timed out")

	// ErrInvalidRequest means a download request failed validation
	ErrInvalidRequest = errors.New("invalid request")

	// ErrProcessExit means the tool exited with a non-zero code
	ErrProcessExit = errors.New("process exited with error")

	// ErrBinariesPending means provisioning is still running
	ErrBinariesPending = errors.New("required binaries are being downloaded")

	// ErrBinariesMissing means provisioning timed out; a restart is required
	ErrBinariesMissing = errors.New("required binaries are missing, restart the application")

	// ErrDownloadInProgress means another download is already running
	ErrDownloadInProgress = errors.New("a download is already in progress")

	// ErrNotFound means a download record does not exist
	ErrNotFound = errors.New("download not found")
)
