package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	logTimestampLayout = "2006-01-02 15:04:05"
	redactedValue      = "[redacted]"
)

// Attribute keys whose values never reach the log output. Matching ignores
// case and any group prefix.
var secretKeys = map[string]struct{}{
	"api_key":       {},
	"x-api-key":     {},
	"authorization": {},
}

func isSecretKey(key string) bool {
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	_, ok := secretKeys[strings.ToLower(key)]
	return ok
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(logTimestampLayout)
}

// plainValue renders v without quoting.
func plainValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

// consoleValue renders v for a key=value pair, quoting values that would
// otherwise break the line apart.
func consoleValue(key string, v slog.Value) string {
	if isSecretKey(key) {
		return redactedValue
	}
	s := plainValue(v)
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	return strings.ContainsFunc(s, func(r rune) bool {
		return r <= ' ' || r == '=' || r == '"'
	})
}
