package logger

import "strings"

// Level names written to the level field.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

func normalizeLevel(level string) string {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "", LevelInfo:
		return LevelInfo
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "WARNING":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return strings.ToUpper(level)
	}
}

// normalizeStatus lowercases a status or outcome value and reports whether
// it belongs to the shared vocabulary: ok, fail, skip, retry, cancelled.
func normalizeStatus(status string) (string, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "ok", "fail", "skip", "retry", "cancelled":
		return status, true
	}
	return status, false
}

// defaultKeyOrder fixes the leading keys of every line; others follow
// alphabetically.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"cb_key",
	"outcome",
	"reason",
	"duration_ms",
	"messages",
	"kb",
	"key",
	"previous",
	"expires",
	"count",
	"driver",
	"path",
	"redis_key",
	"payload",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"attempts",
}
