package trace

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level is the minimum severity the interceptor captures into the run log.
type Level int

const (
	LevelDebug   = Level(slog.LevelDebug)
	LevelInfo    = Level(slog.LevelInfo)
	LevelWarning = Level(slog.LevelWarn)
	LevelError   = Level(slog.LevelError)

	// LevelNone disables log interception entirely, leaving only structural
	// span tracking active. No buffering or formatting happens on that path.
	LevelNone Level = 1 << 10
)

// ParseLevel converts a textual level ("debug", "info", "warning", "error"
// or "none") into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	case "none":
		return LevelNone, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
