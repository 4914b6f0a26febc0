package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. MEDIAFETCH_SERVER_PORT
const EnvPrefix = "MEDIAFETCH"

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.mediafetch")
	}

	// Defaults are registered key by key so AutomaticEnv can override
	// settings that are absent from the file.
	setDefaults(v, config)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper, c *domain.Config) {
	for key, value := range configValues(c) {
		v.SetDefault(key, value)
	}
}

// configValues flattens c into viper keys
func configValues(c *domain.Config) map[string]interface{} {
	return map[string]interface{}{
		"server.host": c.Server.Host,
		"server.port": c.Server.Port,

		"binaries.dir":                c.Binaries.Dir,
		"binaries.ytdlp_name":         c.Binaries.YTDLPName,
		"binaries.ffmpeg_name":        c.Binaries.FFmpegName,
		"binaries.ffprobe_name":       c.Binaries.FFprobeName,
		"binaries.ytdlp_url":          c.Binaries.YTDLPURL,
		"binaries.ffmpeg_archive_url": c.Binaries.FFmpegArchiveURL,
		"binaries.fetch_timeout":      c.Binaries.FetchTimeout.String(),
		"binaries.provision_timeout":  c.Binaries.ProvisionTimeout.String(),
		"binaries.poll_interval":      c.Binaries.PollInterval.String(),
		"binaries.rate_limit":         c.Binaries.RateLimit,

		"download.output_dir":      c.Download.OutputDir,
		"download.output_template": c.Download.OutputTemplate,
		"download.log_buffer":      c.Download.LogBuffer,

		"queue.database_path":  c.Queue.DatabasePath,
		"queue.check_interval": c.Queue.CheckInterval.String(),
		"queue.auto_start":     c.Queue.AutoStart,

		"notification.enabled": c.Notification.Enabled,
		"notification.method":  c.Notification.Method,

		"logging.level":       c.Logging.Level,
		"logging.format":      c.Logging.Format,
		"logging.output_path": c.Logging.OutputPath,
		"logging.logs_dir":    c.Logging.LogsDir,
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Binaries.Dir = expandPath(config.Binaries.Dir)
	config.Download.OutputDir = expandPath(config.Download.OutputDir)
	config.Queue.DatabasePath = expandPath(config.Queue.DatabasePath)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}

	// $HOME is resolved through os.UserHomeDir so it also works on Windows
	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return filepath.Clean(os.ExpandEnv(path))
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	b := config.Binaries
	if b.Dir == "" {
		return fmt.Errorf("binaries directory not configured")
	}
	if b.YTDLPName == "" || b.FFmpegName == "" || b.FFprobeName == "" {
		return fmt.Errorf("binary names must not be empty")
	}
	for name, raw := range map[string]string{"ytdlp_url": b.YTDLPURL, "ffmpeg_archive_url": b.FFmpegArchiveURL} {
		// no archive means ffmpeg and ffprobe are installed by hand
		if name == "ffmpeg_archive_url" && raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid binaries.%s: %q", name, raw)
		}
	}
	if b.FetchTimeout <= 0 || b.ProvisionTimeout <= 0 || b.PollInterval <= 0 {
		return fmt.Errorf("binaries timeouts and poll interval must be positive")
	}
	if b.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}

	if config.Download.OutputDir == "" {
		return fmt.Errorf("download output directory not configured")
	}
	if config.Download.OutputTemplate == "" {
		config.Download.OutputTemplate = domain.DefaultOutputTemplate
	}
	if config.Download.LogBuffer < 1 {
		return fmt.Errorf("log buffer must be at least 1")
	}

	if config.Queue.DatabasePath == "" {
		return fmt.Errorf("queue database path not configured")
	}
	if config.Queue.CheckInterval <= 0 {
		return fmt.Errorf("queue check interval must be positive")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range configValues(config) {
		v.Set(key, value)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
