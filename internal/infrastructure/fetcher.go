package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cavaliergopher/grab/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

const fetchBufferSize = 32 * 1024

// GrabFetcher downloads provisioning assets straight to disk
type GrabFetcher struct {
	client  *grab.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGrabFetcher creates a fetcher whose requests give up after timeout.
// bytesPerSecond <= 0 disables rate limiting.
func NewGrabFetcher(timeout time.Duration, bytesPerSecond int64, logger *zap.Logger) *GrabFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := grab.NewClient()
	client.UserAgent = "mediafetch"
	client.BufferSize = fetchBufferSize
	client.HTTPClient = &http.Client{Timeout: timeout}

	f := &GrabFetcher{client: client, logger: logger}
	if bytesPerSecond > 0 {
		burst := int(bytesPerSecond)
		if burst < fetchBufferSize {
			burst = fetchBufferSize
		}
		f.limiter = rate.NewLimiter(rate.Limit(bytesPerSecond), burst)
	}
	return f
}

// Fetch downloads url to destination, replacing any existing file.
// A failed transfer leaves no file behind.
func (f *GrabFetcher) Fetch(ctx context.Context, url, destination string) error {
	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory for %s: %w", domain.ErrNetworkFailure, destination, err)
	}
	if err := os.Remove(destination); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: failed to replace %s: %w", domain.ErrNetworkFailure, destination, err)
	}

	req, err := grab.NewRequest(destination, url)
	if err != nil {
		return fmt.Errorf("%w: invalid url %q: %w", domain.ErrNetworkFailure, url, err)
	}
	req = req.WithContext(ctx)
	req.NoResume = true
	if f.limiter != nil {
		req.RateLimiter = f.limiter
	}

	f.logger.Info("Fetching asset", zap.String("url", url), zap.String("destination", destination))

	resp := f.client.Do(req)
	if err := resp.Err(); err != nil {
		os.Remove(destination)
		if grab.IsStatusCodeError(err) {
			f.logger.Warn("Asset server rejected request", zap.String("url", url), zap.Error(err))
		}
		return fmt.Errorf("%w: %s: %w", domain.ErrNetworkFailure, url, err)
	}

	f.logger.Info("Asset fetched",
		zap.String("destination", resp.Filename),
		zap.Int64("bytes", resp.BytesComplete()),
		zap.Duration("duration", resp.Duration()))

	return nil
}
