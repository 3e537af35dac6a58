// Package redact scrubs connection strings, credentials, tokens, SQL and
// file system details from error text before it is logged.
package redact

import (
	"log/slog"
	"regexp"
)

// Placeholders substituted for redacted fragments.
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	KeyPlaceholder        = "[REDACTED_KEY]"
	TokenPlaceholder      = "[REDACTED_JWT]"
	StackPlaceholder      = "[STACK_TRACE_REDACTED]"
	SQLPlaceholder        = "[REDACTED_SQL]"
	PathPlaceholder       = "[REDACTED_PATH]"
	HostPlaceholder       = "[REDACTED_HOST]"
)

type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// rules are applied in order, each to the output of the previous one.
var rules = []rule{
	// userinfo of database URLs
	{regexp.MustCompile(`(?i)\b(?:postgres(?:ql)?|pgx)://[^@\s]+@`), CredentialPlaceholder},
	{regexp.MustCompile(`(?i)\b(?:password|passwd|pwd)\s*[=:]\s*['"]?[^'"&\s]+`), CredentialPlaceholder},
	{regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`), TokenPlaceholder},
	{
		regexp.MustCompile(`(?i)\b(?:api[_-]?key|jwt[_-]?secret|secret)\s*[=:]\s*['"]?[A-Za-z0-9_\-.~+/]{8,}`),
		KeyPlaceholder,
	},
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(?:\n\t.*)+`), StackPlaceholder},
	// Only upper-case keywords, so prose like "failed to update settings"
	// survives.
	{regexp.MustCompile(`\b(?:SELECT|INSERT INTO|UPDATE|DELETE FROM|CREATE|ALTER|DROP)\b[^;\n]*`), SQLPlaceholder},
	{regexp.MustCompile(`(?:/[\w.-]+){2,}`), PathPlaceholder},
	{
		regexp.MustCompile(`\b(?:localhost|(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,}|\d{1,3}(?:\.\d{1,3}){3}):\d{1,5}\b`),
		HostPlaceholder,
	},
}

// String returns input with every sensitive fragment replaced.
func String(input string) string {
	if input == "" {
		return input
	}
	for _, r := range rules {
		input = r.pattern.ReplaceAllString(input, r.placeholder)
	}
	return input
}

// Error redacts err.Error(). A nil error yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// ErrorAttr is the redacted "error" log attribute for err.
func ErrorAttr(err error) slog.Attr {
	return slog.String("error", Error(err))
}
