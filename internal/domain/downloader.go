package domain

import (
	"context"
	"time"
)

// LineSink receives one line of tool output
type LineSink func(line string)

// ProcessRunner starts a tool and streams its output until it exits
type ProcessRunner interface {
	// Run starts executable in workDir and delivers every non-empty output
	// line to onLine. It returns once the process has exited.
	Run(ctx context.Context, executable string, args []string, workDir string, onLine LineSink) (ExitOutcome, error)
}

// AssetFetcher downloads a remote file to a local path
type AssetFetcher interface {
	Fetch(ctx context.Context, url, destination string) error
}

// ArchiveUnpacker extracts an archive into a directory
type ArchiveUnpacker interface {
	Unpack(archivePath, destinationDir string) error
}

// Provisioner guarantees the required binaries are on disk
type Provisioner interface {
	// EnsureReady polls until all binaries are present or timeout elapses
	EnsureReady(ctx context.Context, timeout time.Duration) bool

	// Ready reports whether provisioning has succeeded
	Ready() bool

	// TimedOut reports whether provisioning gave up
	TimedOut() bool

	// Status returns a snapshot of the per-binary states
	Status() ProvisionStatus

	// Binaries returns the binary set being provisioned
	Binaries() BinarySet
}

// ProvisionReporter is told about provisioning failures as they happen
type ProvisionReporter interface {
	ReportProvisionFailure(binary string, err error)
}
