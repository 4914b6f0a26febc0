package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// BinaryProvisioner makes sure yt-dlp, ffmpeg and ffprobe exist in the
// binaries directory, downloading and unpacking whatever is missing.
type BinaryProvisioner struct {
	binaries     domain.BinarySet
	fetcher      domain.AssetFetcher
	unpacker     domain.ArchiveUnpacker
	reporter     domain.ProvisionReporter
	pollInterval time.Duration
	logger       *zap.Logger

	mu       sync.RWMutex
	states   map[string]domain.ProvisionState
	ready    bool
	timedOut bool
	running  bool
	done     chan struct{}
	lastErr  string
}

// NewBinaryProvisioner creates a new provisioner. reporter may be nil.
func NewBinaryProvisioner(
	binaries domain.BinarySet,
	fetcher domain.AssetFetcher,
	unpacker domain.ArchiveUnpacker,
	reporter domain.ProvisionReporter,
	pollInterval time.Duration,
	logger *zap.Logger,
) *BinaryProvisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	states := make(map[string]domain.ProvisionState, 3)
	for _, name := range binaries.Names() {
		states[name] = domain.StateMissing
	}

	return &BinaryProvisioner{
		binaries:     binaries,
		fetcher:      fetcher,
		unpacker:     unpacker,
		reporter:     reporter,
		pollInterval: pollInterval,
		logger:       logger,
		states:       states,
	}
}

// EnsureReady polls until all binaries are present or timeout elapses.
// Fetch and unpack failures are reported and retried on the next tick.
// The deadline only bounds the wait between ticks; a fetch in flight is
// bounded by its own timeout. A call made while another is polling waits
// for that result. Once timed out, later calls return false immediately.
func (p *BinaryProvisioner) EnsureReady(ctx context.Context, timeout time.Duration) bool {
	p.mu.Lock()
	if p.ready {
		p.mu.Unlock()
		return true
	}
	if p.timedOut {
		p.mu.Unlock()
		return false
	}
	if p.running {
		done := p.done
		p.mu.Unlock()
		select {
		case <-done:
			return p.Ready()
		case <-ctx.Done():
			return false
		}
	}
	p.running = true
	p.done = make(chan struct{})
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		close(p.done)
		p.mu.Unlock()
	}()

	deadline := time.Now().Add(timeout)
	p.logger.Info("Provisioning binaries",
		zap.String("dir", p.binaries.Dir),
		zap.Duration("timeout", timeout))

	for attempt := 1; ; attempt++ {
		if p.allPresent() {
			p.markReady()
			return true
		}

		p.logger.Debug("Provisioning attempt", zap.Int("attempt", attempt))
		p.provisionMissing(ctx)

		if p.allPresent() {
			p.markReady()
			return true
		}
		if err := p.checkArchiveSource(); err != nil {
			p.markTimedOut(err)
			return false
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		wait := p.pollInterval
		if wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.markTimedOut(ctx.Err())
			return false
		case <-timer.C:
		}

		if !time.Now().Before(deadline) {
			break
		}
	}

	p.markTimedOut(domain.ErrProvisioningTimeout)
	return false
}

// Ready reports whether all binaries were found or provisioned
func (p *BinaryProvisioner) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready
}

// TimedOut reports whether provisioning gave up
func (p *BinaryProvisioner) TimedOut() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.timedOut
}

// Status returns a snapshot of provisioning progress
func (p *BinaryProvisioner) Status() domain.ProvisionStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	states := make(map[string]domain.ProvisionState, len(p.states))
	for name, state := range p.states {
		states[name] = state
	}
	return domain.ProvisionStatus{
		Ready:     p.ready,
		TimedOut:  p.timedOut,
		Running:   p.running,
		Binaries:  states,
		LastError: p.lastErr,
	}
}

// Binaries returns the binary set being provisioned
func (p *BinaryProvisioner) Binaries() domain.BinarySet {
	return p.binaries
}

func (p *BinaryProvisioner) allPresent() bool {
	all := true
	for _, name := range p.binaries.Names() {
		if fileExists(p.binaries.Path(name)) {
			p.setState(name, domain.StatePresent)
		} else {
			all = false
		}
	}
	return all
}

func (p *BinaryProvisioner) provisionMissing(ctx context.Context) {
	ytdlp := p.binaries.YTDLP
	if !fileExists(p.binaries.YTDLPPath()) {
		p.setState(ytdlp, domain.StateDownloading)
		if err := p.fetchExecutable(ctx, p.binaries.YTDLPURL, p.binaries.YTDLPPath()); err != nil {
			p.fail(ytdlp, err)
		} else {
			p.setState(ytdlp, domain.StatePresent)
		}
	}

	if !p.archiveMembersPresent() && p.binaries.FFmpegArchiveURL != "" {
		if err := p.provisionArchive(ctx); err != nil {
			p.fail(p.binaries.FFmpeg, err)
		}
	}
}

func (p *BinaryProvisioner) archiveMembersPresent() bool {
	return fileExists(p.binaries.FFmpegPath()) && fileExists(p.binaries.FFprobePath())
}

// checkArchiveSource fails when ffmpeg or ffprobe is missing and there is no
// archive to take them from.
func (p *BinaryProvisioner) checkArchiveSource() error {
	if p.binaries.FFmpegArchiveURL != "" || p.archiveMembersPresent() {
		return nil
	}
	return fmt.Errorf("%w: no ffmpeg archive configured for %s; install %s and %s into %s or set binaries.ffmpeg_archive_url",
		domain.ErrProvisioningTimeout, runtime.GOOS, p.binaries.FFmpeg, p.binaries.FFprobe, p.binaries.Dir)
}

func (p *BinaryProvisioner) fetchExecutable(ctx context.Context, url, dst string) error {
	if err := p.fetcher.Fetch(ctx, url, dst); err != nil {
		return err
	}
	return makeExecutable(dst)
}

// provisionArchive fetches the ffmpeg archive, moves ffmpeg and ffprobe out of
// <archive root>/bin into the binaries directory and removes the leftovers.
func (p *BinaryProvisioner) provisionArchive(ctx context.Context) error {
	members := []string{p.binaries.FFmpeg, p.binaries.FFprobe}
	for _, name := range members {
		p.setState(name, domain.StateDownloading)
	}

	archive := p.binaries.ArchivePath()
	root := p.binaries.ArchiveRoot()
	defer func() {
		os.Remove(archive)
		os.RemoveAll(root)
	}()

	if err := p.fetcher.Fetch(ctx, p.binaries.FFmpegArchiveURL, archive); err != nil {
		p.setStates(members, domain.StateFailed)
		return err
	}

	p.setStates(members, domain.StateUnpacking)
	if err := p.unpacker.Unpack(archive, p.binaries.Dir); err != nil {
		p.setStates(members, domain.StateFailed)
		return err
	}

	var errs []error
	for _, name := range members {
		src := filepath.Join(root, "bin", name)
		dst := p.binaries.Path(name)
		if err := relocate(src, dst); err != nil {
			p.setState(name, domain.StateFailed)
			errs = append(errs, fmt.Errorf("%w: %s not found in archive: %w", domain.ErrExtractionFailure, name, err))
			continue
		}
		p.setState(name, domain.StatePresent)
	}

	return errors.Join(errs...)
}

func (p *BinaryProvisioner) fail(binary string, err error) {
	p.setState(binary, domain.StateFailed)

	p.mu.Lock()
	p.lastErr = err.Error()
	p.mu.Unlock()

	p.logger.Error("Failed to provision binary", zap.String("binary", binary), zap.Error(err))
	if p.reporter != nil {
		p.reporter.ReportProvisionFailure(binary, err)
	}
}

func (p *BinaryProvisioner) setState(name string, state domain.ProvisionState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[name] = state
}

func (p *BinaryProvisioner) setStates(names []string, state domain.ProvisionState) {
	for _, name := range names {
		p.setState(name, state)
	}
}

func (p *BinaryProvisioner) markReady() {
	p.mu.Lock()
	p.ready = true
	p.lastErr = ""
	p.mu.Unlock()

	p.logger.Info("Binaries ready", zap.String("dir", p.binaries.Dir))
}

func (p *BinaryProvisioner) markTimedOut(cause error) {
	p.mu.Lock()
	p.timedOut = true
	for name, state := range p.states {
		if state != domain.StatePresent {
			p.states[name] = domain.StateFailed
		}
	}
	p.lastErr = cause.Error()
	p.mu.Unlock()

	p.logger.Error("Provisioning gave up", zap.Error(cause))
	if p.reporter != nil {
		p.reporter.ReportProvisionFailure("all", cause)
	}
}

// relocate moves src to dst, replacing dst
func relocate(src, dst string) error {
	if !fileExists(src) {
		return os.ErrNotExist
	}
	os.Remove(dst)
	if err := os.Rename(src, dst); err != nil {
		return err
	}
	return makeExecutable(dst)
}

func makeExecutable(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, 0755)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
