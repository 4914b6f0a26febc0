package domain

import (
	"runtime"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Binaries     BinariesConfig     `mapstructure:"binaries"`
	Download     DownloadConfig     `mapstructure:"download"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// BinariesConfig describes where yt-dlp and ffmpeg live and come from
type BinariesConfig struct {
	Dir              string        `mapstructure:"dir"`
	YTDLPName        string        `mapstructure:"ytdlp_name"`
	FFmpegName       string        `mapstructure:"ffmpeg_name"`
	FFprobeName      string        `mapstructure:"ffprobe_name"`
	YTDLPURL         string        `mapstructure:"ytdlp_url"`
	FFmpegArchiveURL string        `mapstructure:"ffmpeg_archive_url"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	ProvisionTimeout time.Duration `mapstructure:"provision_timeout"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	RateLimit        int64         `mapstructure:"rate_limit"` // bytes/s, 0 = unlimited
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	OutputDir      string `mapstructure:"output_dir"`
	OutputTemplate string `mapstructure:"output_template"`
	LogBuffer      int    `mapstructure:"log_buffer"`
}

// QueueConfig contains queue-related configuration
type QueueConfig struct {
	DatabasePath  string        `mapstructure:"database_path"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
	AutoStart     bool          `mapstructure:"auto_start"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send, log
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`
}

const (
	ytdlpReleaseBase = "https://github.com/yt-dlp/yt-dlp/releases/latest/download/"
	ffmpegWin64Archive = "https://github.com/yt-dlp/FFmpeg-Builds/releases/download/latest/ffmpeg-master-latest-win64-gpl.zip"
)

// DefaultBinariesConfig returns binary names and sources for the running platform.
// Only Windows has a default ffmpeg archive; elsewhere ffmpeg and ffprobe must
// already be in Dir or binaries.ffmpeg_archive_url must name a zip whose
// <root>/bin holds them.
func DefaultBinariesConfig() BinariesConfig {
	cfg := BinariesConfig{
		Dir:              "$HOME/.mediafetch/bin",
		YTDLPName:        "yt-dlp",
		FFmpegName:       "ffmpeg",
		FFprobeName:      "ffprobe",
		FetchTimeout:     20 * time.Second,
		ProvisionTimeout: 60 * time.Second,
		PollInterval:     time.Second,
	}

	switch runtime.GOOS {
	case "windows":
		cfg.YTDLPName = "yt-dlp.exe"
		cfg.FFmpegName = "ffmpeg.exe"
		cfg.FFprobeName = "ffprobe.exe"
		cfg.YTDLPURL = ytdlpReleaseBase + "yt-dlp.exe"
		cfg.FFmpegArchiveURL = ffmpegWin64Archive
	case "darwin":
		cfg.YTDLPURL = ytdlpReleaseBase + "yt-dlp_macos"
	default:
		cfg.YTDLPURL = ytdlpReleaseBase + "yt-dlp_linux"
	}

	return cfg
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	notifyMethod := "notify-send"
	if runtime.GOOS == "darwin" {
		notifyMethod = "osascript"
	}

	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Binaries: DefaultBinariesConfig(),
		Download: DownloadConfig{
			OutputDir:      "$HOME/Downloads",
			OutputTemplate: DefaultOutputTemplate,
			LogBuffer:      500,
		},
		Queue: QueueConfig{
			DatabasePath:  "$HOME/.mediafetch/queue.db",
			CheckInterval: 2 * time.Second,
			AutoStart:     true,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  notifyMethod,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			LogsDir:    "$HOME/.mediafetch/logs",
		},
	}
}
