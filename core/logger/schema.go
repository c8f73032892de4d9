package logger

import "strings"

var allowedStatus = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"skip":         {},
	"retry":        {},
	"rate_limited": {},
	"cancelled":    {},
}

var allowedOutcome = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"cancelled":    {},
	"rate_limited": {},
}

func normalizeLevel(level string) string {
	switch strings.ToLower(level) {
	case "":
		return "INFO"
	case "warning":
		return "WARN"
	default:
		return strings.ToUpper(level)
	}
}

func normalizeEnum(value string, allowed map[string]struct{}) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", false
	}
	_, ok := allowed[value]
	return value, ok
}

func normalizeStatus(status string) (string, bool) {
	return normalizeEnum(status, allowedStatus)
}

func normalizeOutcome(outcome string) (string, bool) {
	return normalizeEnum(outcome, allowedOutcome)
}

// defaultKeyOrder pins the leading keys of every log line; unknown keys
// follow sorted alphabetically.
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
	"kind",
	"stage",
	"venue_type",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"count",
	"page",
	"payload",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"http_code",
	"err",
	"err_code",
	"cause",
	"attempts",
	"backoff_ms",
}
