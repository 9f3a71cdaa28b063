// internal/cmdutil/log.go
package cmdutil

import (
	"fmt"
	"log/slog"
)

// Warnf emits a user-facing warning through the run logger. A nil logger
// drops it.
func Warnf(log *slog.Logger, format string, a ...any) {
	if log == nil {
		return
	}
	log.Warn(fmt.Sprintf(format, a...))
}
