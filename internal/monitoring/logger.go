package monitoring

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger provides structured JSON logging with domain helpers
type Logger struct {
	*slog.Logger
}

// ParseLevel maps LOG_LEVEL values to slog levels, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a JSON logger on stdout
func NewLogger(level string) *Logger {
	return NewLoggerWithWriter(os.Stdout, level)
}

// NewLoggerWithWriter creates a JSON logger writing to w
func NewLoggerWithWriter(w io.Writer, level string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     ParseLevel(level),
		AddSource: ParseLevel(level) == slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// RequestLogger logs HTTP request details
func (l *Logger) RequestLogger(method, path, ip, requestID string, statusCode int, duration time.Duration) {
	level := slog.LevelInfo
	if statusCode >= 500 {
		level = slog.LevelError
	} else if statusCode >= 400 {
		level = slog.LevelWarn
	}

	l.Log(context.Background(), level, "HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"request_id", requestID,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// ShotLogger logs a scored shot
func (l *Logger) ShotLogger(shotID, beanID string, ratio float64, seconds, score int, grade string) {
	l.Info("Shot Scored",
		"shot_id", shotID,
		"bean_id", beanID,
		"ratio", ratio,
		"extraction_time", seconds,
		"score", score,
		"grade", grade,
	)
}

// RecommendationLogger logs a grind recommendation
func (l *Logger) RecommendationLogger(setting, direction string, steps int, confidence string) {
	l.Info("Grind Recommendation",
		"current_setting", setting,
		"direction", direction,
		"steps", steps,
		"confidence", confidence,
	)
}

// CacheLogger logs cache operations
func (l *Logger) CacheLogger(operation string, itemCount int, err error) {
	if err != nil {
		l.Warn("Cache Operation",
			"operation", operation,
			"cache_size", itemCount,
			"error", err,
		)
		return
	}
	l.Debug("Cache Operation",
		"operation", operation,
		"cache_size", itemCount,
	)
}

// JobLogger logs a scheduled job run
func (l *Logger) JobLogger(job string, duration time.Duration, err error, attrs ...any) {
	base := []any{"job", job, "duration_ms", duration.Milliseconds()}
	if err != nil {
		l.Error("Scheduled Job Failed", append(append(base, "error", err), attrs...)...)
		return
	}
	l.Info("Scheduled Job", append(base, attrs...)...)
}

// SystemLogger logs system-level events
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).String(),
	)
}

var startTime = time.Now()
