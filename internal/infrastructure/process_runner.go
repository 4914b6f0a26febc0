package infrastructure

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

const maxLineSize = 1024 * 1024

// ExecRunner runs external tools with both output streams captured line by line
type ExecRunner struct {
	logger *zap.Logger
}

// NewExecRunner creates a new process runner
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{logger: logger}
}

// Run starts executable in workDir and forwards every non-empty line of stdout
// and stderr to onLine as it arrives. Lines keep their order within a stream;
// the two streams interleave freely. onLine is never called concurrently.
//
// A process that starts and exits with a non-zero code is not an error: the
// code is returned in the outcome. Errors are launch failures (wrapping
// domain.ErrLaunchFailure), pipe failures, and cancellation of ctx.
func (r *ExecRunner) Run(ctx context.Context, executable string, args []string, workDir string, onLine domain.LineSink) (domain.ExitOutcome, error) {
	if onLine == nil {
		onLine = func(string) {}
	}

	cmd := exec.CommandContext(ctx, executable, args...)
	cmd.Dir = workDir
	setSysProcAttr(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return domain.ExitOutcome{ExitCode: -1}, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return domain.ExitOutcome{ExitCode: -1}, fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	r.logger.Debug("Starting process",
		zap.String("command", ShellEscapeCommand(executable, args...)),
		zap.String("dir", workDir))

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return domain.ExitOutcome{ExitCode: -1}, fmt.Errorf("%w: %s: %w", domain.ErrLaunchFailure, executable, err)
	}

	var sinkMu sync.Mutex
	deliver := func(line string) {
		if line == "" {
			return
		}
		sinkMu.Lock()
		defer sinkMu.Unlock()
		onLine(line)
	}

	// Both pipes must be drained before Wait, which closes them.
	var wg sync.WaitGroup
	wg.Add(2)
	go r.readLines(stdout, "stdout", deliver, &wg)
	go r.readLines(stderr, "stderr", deliver, &wg)
	wg.Wait()

	waitErr := cmd.Wait()
	outcome := domain.ExitOutcome{ExitCode: -1, Duration: time.Since(started)}
	if cmd.ProcessState != nil {
		outcome.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err := waitError(ctx, waitErr); err != nil {
		return outcome, err
	}

	r.logger.Debug("Process exited",
		zap.String("executable", executable),
		zap.Int("exit_code", outcome.ExitCode),
		zap.Duration("duration", outcome.Duration))

	return outcome, nil
}

// waitError maps the result of Wait to the error Run returns. A child that
// exited on its own keeps its exit code even if ctx ends afterwards.
func waitError(ctx context.Context, waitErr error) error {
	if waitErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("process cancelled: %w", ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return nil
	}
	return fmt.Errorf("failed waiting for process: %w", waitErr)
}

// readLines scans one stream until EOF
func (r *ExecRunner) readLines(stream io.Reader, name string, deliver func(string), wg *sync.WaitGroup) {
	defer wg.Done()

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	scanner.Split(scanLinesAnyEOL)
	for scanner.Scan() {
		deliver(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		r.logger.Warn("Stopped reading process output", zap.String("stream", name), zap.Error(err))
		// keep draining so the child never blocks on a full pipe
		io.Copy(io.Discard, stream)
	}
}

// scanLinesAnyEOL splits on \n, \r\n and bare \r. A \r\n pair yields an empty
// token that the caller drops.
func scanLinesAnyEOL(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
