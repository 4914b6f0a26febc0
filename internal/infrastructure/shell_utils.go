package infrastructure

import (
	"runtime"
	"strings"
)

// posixSpecialChars have a meaning to a POSIX shell
const posixSpecialChars = " \t\n\r'\"$`\\!*?[](){}|;<>&~#%"

// ShellEscape quotes s for a POSIX shell. Only used to render the command in
// logs so it can be pasted into a terminal; exec never goes through a shell.
func ShellEscape(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, posixSpecialChars) {
		return s
	}
	// ' becomes '"'"': close, quoted quote, reopen
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// CmdEscape quotes s the way the Windows command line parser expects:
// double quotes around arguments with blanks or quotes, backslashes doubled
// only when they precede a quote.
func CmdEscape(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \t\"") {
		return s
	}

	var b strings.Builder
	b.WriteByte('"')
	slashes := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			slashes++
		case '"':
			b.WriteString(strings.Repeat(`\`, slashes+1))
			slashes = 0
		default:
			slashes = 0
		}
		b.WriteByte(c)
	}
	b.WriteString(strings.Repeat(`\`, slashes))
	b.WriteByte('"')
	return b.String()
}

// ShellEscapeCommand renders a command line for logging, quoted for the
// shell of the platform it runs on.
func ShellEscapeCommand(binary string, args ...string) string {
	escape := ShellEscape
	if runtime.GOOS == "windows" {
		escape = CmdEscape
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, escape(binary))
	for _, arg := range args {
		parts = append(parts, escape(arg))
	}
	return strings.Join(parts, " ")
}
