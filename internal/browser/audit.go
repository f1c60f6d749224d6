package browser

import (
	"log/slog"
	"strconv"

	"github.com/neboloop/extharness/internal/logging"
)

// sensitiveActions carry typed input; their values are never logged.
var sensitiveActions = map[string]bool{
	"sendKeys": true,
}

type auditLogger struct {
	logger *slog.Logger
}

func newAuditLogger() *auditLogger {
	return &auditLogger{
		logger: logging.Component("browser"),
	}
}

// logAction records a page operation at debug level. For sensitive actions
// only the length of value is recorded.
func (l *auditLogger) logAction(action, target, value string) {
	if l == nil {
		return
	}

	attrs := []any{"action", action}
	if target != "" {
		attrs = append(attrs, "target", target)
	}
	if value != "" {
		if sensitiveActions[action] {
			attrs = append(attrs, "value", redact(value))
		} else {
			attrs = append(attrs, "value", truncate(value, 120))
		}
	}
	l.logger.Debug("page_action", attrs...)
}

func redact(value string) string {
	return "[" + strconv.Itoa(len(value)) + " chars]"
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
