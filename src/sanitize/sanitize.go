// Package sanitize cleans text before it reaches a terminal or a log line:
// it strips ANSI escape sequences from build logs and masks secrets such as
// access tokens embedded in URLs.
package sanitize

import (
	"net/url"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Mask replaces every secret in logged text.
const Mask = "***"

// StripANSI removes ANSI escape sequences.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// Redact replaces every occurrence of each non-empty secret with Mask.
func Redact(s string, secrets ...string) string {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, Mask)
	}
	return s
}

// RedactURL masks the password of a URL with userinfo, leaving the user
// name visible. Strings that do not parse as URLs are returned unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	password, ok := u.User.Password()
	if !ok || password == "" {
		return raw
	}
	return strings.Replace(raw, ":"+password+"@", ":"+Mask+"@", 1)
}

// Tail returns the last n non-empty lines of a log with escape sequences
// removed, for showing the end of a failed build log.
func Tail(log string, n int) []string {
	if n <= 0 {
		return nil
	}
	lines := strings.Split(StripANSI(strings.ReplaceAll(log, "\r\n", "\n")), "\n")

	tail := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(tail) < n; i-- {
		line := strings.TrimRight(lines[i], " \t\r")
		if line == "" {
			continue
		}
		tail = append(tail, line)
	}
	for i, j := 0, len(tail)-1; i < j; i, j = i+1, j-1 {
		tail[i], tail[j] = tail[j], tail[i]
	}
	return tail
}
