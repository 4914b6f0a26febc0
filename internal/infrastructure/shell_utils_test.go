package infrastructure

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellEscape(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain path", input: "/tmp/simple/path", expected: "/tmp/simple/path"},
		{name: "flag", input: "--no-playlist", expected: "--no-playlist"},
		{name: "empty", input: "", expected: "''"},
		{name: "spaces", input: "/tmp/path with spaces", expected: "'/tmp/path with spaces'"},
		{name: "output template", input: "%(title)s.%(ext)s", expected: "'%(title)s.%(ext)s'"},
		{name: "format selector", input: "bestvideo[height<=720]+bestaudio", expected: "'bestvideo[height<=720]+bestaudio'"},
		{name: "single quote", input: "/tmp/it's a test", expected: `'/tmp/it'"'"'s a test'`},
		{name: "query string", input: "https://example.com/watch?v=1&t=2", expected: "'https://example.com/watch?v=1&t=2'"},
		{name: "backslashes", input: `C:\bin\ffmpeg.exe`, expected: `'C:\bin\ffmpeg.exe'`},
		{name: "dollar", input: "$HOME", expected: "'$HOME'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShellEscape(tt.input))
		})
	}
}

func TestCmdEscape(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: `C:\bin\yt-dlp.exe`, expected: `C:\bin\yt-dlp.exe`},
		{name: "empty", input: "", expected: `""`},
		{name: "spaces", input: `C:\Program Files\ffmpeg.exe`, expected: `"C:\Program Files\ffmpeg.exe"`},
		{name: "template", input: "%(title)s.%(ext)s", expected: "%(title)s.%(ext)s"},
		{name: "embedded quote", input: `say "hi"`, expected: `"say \"hi\""`},
		{name: "trailing backslash", input: `C:\my dir\`, expected: `"C:\my dir\\"`},
		{name: "backslash before quote", input: `a\"b c`, expected: `"a\\\"b c"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CmdEscape(tt.input))
		})
	}
}

func TestShellEscapeCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX quoting only")
	}

	got := ShellEscapeCommand("/opt/my apps/yt-dlp", "-o", "%(title)s.%(ext)s", "--no-playlist", "https://example.com/v?a=1&b=2")

	assert.Equal(t, "'/opt/my apps/yt-dlp' -o '%(title)s.%(ext)s' --no-playlist 'https://example.com/v?a=1&b=2'", got)
}
