package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/pkg/logger"
)

// mockRepo is an in-memory domain.DownloadRepository
type mockRepo struct {
	mu        sync.Mutex
	downloads map[string]*domain.Download
	order     []string

	// createGate, when set, holds Create until it is closed
	createGate chan struct{}
}

func newMockRepo() *mockRepo {
	return &mockRepo{downloads: make(map[string]*domain.Download)}
}

func (m *mockRepo) Create(download *domain.Download) error {
	if m.createGate != nil {
		<-m.createGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *download
	m.downloads[download.ID] = &cp
	m.order = append(m.order, download.ID)
	return nil
}

func (m *mockRepo) Update(download *domain.Download) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.downloads[download.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *download
	m.downloads[download.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.downloads[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.downloads, id)
	return nil
}

func (m *mockRepo) FindByID(id string) (*domain.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.downloads[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
}

func (m *mockRepo) FindByURL(url string, statuses []domain.DownloadStatus) (*domain.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.order) - 1; i >= 0; i-- {
		d, ok := m.downloads[m.order[i]]
		if !ok || d.URL != url {
			continue
		}
		for _, s := range statuses {
			if d.Status == s {
				cp := *d
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (m *mockRepo) FindPending() ([]*domain.Download, error) {
	return m.FindAll(map[string]interface{}{"status": domain.StatusQueued})
}

func (m *mockRepo) FindAll(filters map[string]interface{}) ([]*domain.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Download
	for _, id := range m.order {
		d, ok := m.downloads[id]
		if !ok {
			continue
		}
		if status, ok := filters["status"]; ok && fmt.Sprint(status) != string(d.Status) {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockRepo) ResetOrphanedProcessing() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, d := range m.downloads {
		if d.Status == domain.StatusProcessing {
			d.Status = domain.StatusQueued
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) GetStats() (*domain.DownloadStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.DownloadStats{Total: int64(len(m.downloads))}
	for _, d := range m.downloads {
		switch d.Status {
		case domain.StatusQueued:
			stats.Queued++
		case domain.StatusProcessing:
			stats.Processing++
		case domain.StatusCompleted:
			stats.Completed++
		case domain.StatusFailed:
			stats.Failed++
		case domain.StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

func (m *mockRepo) get(t *testing.T, id string) *domain.Download {
	t.Helper()
	d, err := m.FindByID(id)
	require.NoError(t, err)
	return d
}

// scriptedRunner replays fixed output lines and exits with a fixed code
type scriptedRunner struct {
	lines    []string
	exitCode int
	err      error
	block    chan struct{}

	mu    sync.Mutex
	calls []runCall
}

type runCall struct {
	executable string
	args       []string
	workDir    string
}

func (r *scriptedRunner) Run(ctx context.Context, executable string, args []string, workDir string, onLine domain.LineSink) (domain.ExitOutcome, error) {
	r.mu.Lock()
	r.calls = append(r.calls, runCall{executable: executable, args: args, workDir: workDir})
	r.mu.Unlock()

	if r.err != nil {
		return domain.ExitOutcome{ExitCode: -1}, r.err
	}
	for _, line := range r.lines {
		onLine(line)
	}
	if r.block != nil {
		<-r.block
	}
	return domain.ExitOutcome{ExitCode: r.exitCode, Duration: time.Millisecond}, nil
}

func (r *scriptedRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// stubProvisioner reports a fixed readiness
type stubProvisioner struct {
	mu       sync.Mutex
	ready    bool
	timedOut bool
	binaries domain.BinarySet
}

func (p *stubProvisioner) EnsureReady(ctx context.Context, timeout time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *stubProvisioner) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *stubProvisioner) TimedOut() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timedOut
}

func (p *stubProvisioner) set(ready, timedOut bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = ready
	p.timedOut = timedOut
}

func (p *stubProvisioner) Status() domain.ProvisionStatus {
	return domain.ProvisionStatus{Ready: p.Ready(), TimedOut: p.TimedOut()}
}

func (p *stubProvisioner) Binaries() domain.BinarySet { return p.binaries }

// recordingNotifier collects notification kinds
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) add(e string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) NotifyDownloadQueued(*domain.Download)        { n.add("queued") }
func (n *recordingNotifier) NotifyDownloadStarted(*domain.Download)       { n.add("started") }
func (n *recordingNotifier) NotifyDownloadCompleted(*domain.Download)     { n.add("completed") }
func (n *recordingNotifier) NotifyDownloadFailed(*domain.Download, error) { n.add("failed") }

func (n *recordingNotifier) list() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

var successLines = []string{
	"[youtube] abc: Downloading webpage",
	"[download] Downloading video 1 of 1",
	"[download] Destination: /out/My Clip.f137.mp4",
	"  50.0% 1.00MiB/s ETA 00:05",
	" 100.0% 1.00MiB/s ETA 00:00",
	"[download] Destination: /out/My Clip.f140.m4a",
	`[Merger] Merging formats into "/out/My Clip.mp4"`,
}

type managerFixture struct {
	repo        *mockRepo
	runner      *scriptedRunner
	provisioner *stubProvisioner
	notifier    *recordingNotifier
	manager     *DownloadManager
	outputDir   string
}

func newManagerFixture(t *testing.T, runner *scriptedRunner, ml *logger.MultiLogger) *managerFixture {
	t.Helper()
	binDir := t.TempDir()
	f := &managerFixture{
		repo:   newMockRepo(),
		runner: runner,
		provisioner: &stubProvisioner{
			ready: true,
			binaries: domain.BinarySet{
				Dir:     binDir,
				YTDLP:   "yt-dlp",
				FFmpeg:  "ffmpeg",
				FFprobe: "ffprobe",
			},
		},
		notifier:  &recordingNotifier{},
		outputDir: filepath.Join(t.TempDir(), "Downloads"),
	}
	f.manager = NewDownloadManager(
		f.repo,
		f.runner,
		f.provisioner,
		NewProgressTracker(100),
		f.notifier,
		ml,
		&domain.DownloadConfig{OutputDir: f.outputDir, LogBuffer: 100},
		nil,
	)
	return f
}

func testRequest(t *testing.T) domain.DownloadRequest {
	t.Helper()
	req, err := domain.NewDownloadRequest("https://example.com/watch?v=abc", domain.FormatAudioVideo, "720", "mp4", "")
	require.NoError(t, err)
	return req
}

func TestDownloadManager_StartSuccess(t *testing.T) {
	f := newManagerFixture(t, &scriptedRunner{lines: successLines}, nil)

	download, err := f.manager.Start(context.Background(), testRequest(t))

	require.NoError(t, err)
	require.NotNil(t, download)

	stored := f.repo.get(t, download.ID)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Equal(t, "My Clip.f140.m4a", stored.FileName)
	require.NotNil(t, stored.ExitCode)
	assert.Equal(t, 0, *stored.ExitCode)
	assert.Contains(t, stored.ProcessLog, "Starting download...")
	assert.Contains(t, stored.ProcessLog, "[Merger]")

	state := f.manager.Tracker().Snapshot()
	assert.True(t, state.Done)
	assert.Equal(t, domain.StyleSuccess, state.Style)
	assert.Equal(t, "done — My Clip.f140.m4a", state.StatusText)

	assert.Equal(t, []string{"started", "completed"}, f.notifier.list())
}

func TestDownloadManager_RunsInBinariesDir(t *testing.T) {
	f := newManagerFixture(t, &scriptedRunner{}, nil)

	_, err := f.manager.Start(context.Background(), testRequest(t))
	require.NoError(t, err)

	require.Equal(t, 1, f.runner.callCount())
	call := f.runner.calls[0]
	binaries := f.provisioner.binaries
	assert.Equal(t, binaries.YTDLPPath(), call.executable)
	assert.Equal(t, binaries.Dir, call.workDir)
	assert.Equal(t, "-o", call.args[0])
	assert.Equal(t, filepath.Join(f.outputDir, domain.DefaultOutputTemplate), call.args[1])
	assert.Contains(t, call.args, binaries.FFmpegPath())
	assert.Contains(t, call.args, "bestvideo[height<=720]+bestaudio")
	assert.Equal(t, "https://example.com/watch?v=abc", call.args[len(call.args)-1])
	assert.DirExists(t, f.outputDir)
}

func TestDownloadManager_NonZeroExit(t *testing.T) {
	f := newManagerFixture(t, &scriptedRunner{lines: []string{"ERROR: Unsupported URL"}, exitCode: 1}, nil)

	download, err := f.manager.Start(context.Background(), testRequest(t))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProcessExit)
	stored := f.repo.get(t, download.ID)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	require.NotNil(t, stored.ExitCode)
	assert.Equal(t, 1, *stored.ExitCode)
	assert.Contains(t, stored.ErrorMessage, "exit code 1")
	assert.Contains(t, stored.ProcessLog, "ERROR: Unsupported URL")

	state := f.manager.Tracker().Snapshot()
	assert.True(t, state.Failed)
	assert.Equal(t, domain.StyleError, state.Style)
	assert.Equal(t, []string{"started", "failed"}, f.notifier.list())
}

func TestDownloadManager_LaunchFailure(t *testing.T) {
	launchErr := fmt.Errorf("%w: yt-dlp: no such file", domain.ErrLaunchFailure)
	f := newManagerFixture(t, &scriptedRunner{err: launchErr}, nil)

	download, err := f.manager.Start(context.Background(), testRequest(t))

	assert.ErrorIs(t, err, domain.ErrLaunchFailure)
	stored := f.repo.get(t, download.ID)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	assert.Nil(t, stored.ExitCode)
	assert.Equal(t, launchErr.Error(), f.manager.Tracker().Snapshot().StatusText)
}

func TestDownloadManager_RefusesWhileProvisioning(t *testing.T) {
	f := newManagerFixture(t, &scriptedRunner{}, nil)
	f.provisioner.set(false, false)

	_, err := f.manager.Start(context.Background(), testRequest(t))

	assert.ErrorIs(t, err, domain.ErrBinariesPending)
	assert.Equal(t, 0, f.runner.callCount())
	stats, _ := f.repo.GetStats()
	assert.Equal(t, int64(0), stats.Total)
}

func TestDownloadManager_RefusesAfterProvisioningTimeout(t *testing.T) {
	f := newManagerFixture(t, &scriptedRunner{}, nil)
	f.provisioner.set(false, true)

	_, err := f.manager.Start(context.Background(), testRequest(t))

	assert.ErrorIs(t, err, domain.ErrBinariesMissing)
	assert.Equal(t, 0, f.runner.callCount())
}

func TestDownloadManager_OneDownloadAtATime(t *testing.T) {
	runner := &scriptedRunner{block: make(chan struct{})}
	f := newManagerFixture(t, runner, nil)

	req := testRequest(t)
	done := make(chan error, 1)
	go func() {
		_, err := f.manager.Start(context.Background(), req)
		done <- err
	}()

	require.Eventually(t, f.manager.IsActive, time.Second, 5*time.Millisecond)

	_, err := f.manager.Start(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrDownloadInProgress)

	close(runner.block)
	require.NoError(t, <-done)
	assert.False(t, f.manager.IsActive())
	assert.Equal(t, 1, runner.callCount())
}

func TestDownloadManager_StartRecordsNothingWhenBusy(t *testing.T) {
	f := newManagerFixture(t, &scriptedRunner{lines: successLines}, nil)
	f.repo.createGate = make(chan struct{})

	req := testRequest(t)
	done := make(chan error, 1)
	go func() {
		_, err := f.manager.Start(context.Background(), req)
		done <- err
	}()

	// the first start holds the slot while its record is being created
	require.Eventually(t, f.manager.IsActive, time.Second, 5*time.Millisecond)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.Start(context.Background(), req)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.ErrorIs(t, err, domain.ErrDownloadInProgress)
	}

	close(f.repo.createGate)
	require.NoError(t, <-done)

	all, err := f.repo.FindAll(nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.StatusCompleted, all[0].Status)
}

func TestDownloadManager_WritesRawLog(t *testing.T) {
	logsDir := t.TempDir()
	ml, err := logger.NewMultiLogger(logger.MultiLoggerConfig{Level: "info", LogsDir: logsDir})
	require.NoError(t, err)
	defer ml.Close()

	f := newManagerFixture(t, &scriptedRunner{lines: successLines}, ml)
	download, err := f.manager.Start(context.Background(), testRequest(t))
	require.NoError(t, err)

	entries, err := logger.NewLogReader(logsDir).ReadLogs(logger.CategoryDownload, time.Now(), 0, "")
	require.NoError(t, err)
	require.Len(t, entries, len(successLines)+3)
	assert.Contains(t, entries[0].Message, download.ID)
	assert.Contains(t, entries[1].Message, "--progress-template")
	assert.Equal(t, successLines[0], entries[2].Message)
	assert.Contains(t, entries[len(entries)-1].Message, "exit 0")
}

func TestDownloadManager_TrackerListenersSeeEveryLine(t *testing.T) {
	f := newManagerFixture(t, &scriptedRunner{lines: successLines}, nil)

	var mu sync.Mutex
	var lines []string
	cancel := f.manager.Tracker().Subscribe(func(state domain.ProgressState, line string) {
		mu.Lock()
		defer mu.Unlock()
		if line != "" {
			lines = append(lines, line)
		}
	})
	defer cancel()

	_, err := f.manager.Start(context.Background(), testRequest(t))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, append([]string{"Starting download..."}, successLines...), lines)
}
