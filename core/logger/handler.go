package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// fields accumulates the key/value pairs of one log line before encoding.
type fields map[string]any

// structuredHandler renders records as single KV or JSON lines with a
// stable key order.
type structuredHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr
	groups []string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = append([]string(nil), defaultKeyOrder...)
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return fmt.Errorf("logger: writer not initialized")
	}
	isJSON := h.cfg.format == formatJSON

	f := make(fields, 16)
	ts := r.Time.UTC()
	f["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	f["level"] = normalizeLevel(r.Level.String())
	if isJSON {
		f["ts_unix_nano"] = ts.UnixNano()
	}

	for _, a := range h.attrs {
		f.collect(strings.Join(h.groups, "."), a)
	}
	r.Attrs(func(a slog.Attr) bool {
		f.collect(strings.Join(h.groups, "."), a)
		return true
	})

	f.mergeContext(ctx)
	f.compactRID(isJSON)
	f.applyDefaults(r.Message)
	f.sanitizeEnums()
	f.prune()

	line, err := h.encode(f)
	if err != nil {
		return err
	}
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}
	return h.cfg.writer.Write(line)
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func (h *structuredHandler) encode(f fields) ([]byte, error) {
	if h.cfg.format == formatJSON {
		return f.encodeJSON(h.cfg.keyOrder)
	}
	return f.encodeKV(h.cfg.keyOrder), nil
}

// collect flattens an attribute (including groups) into the field map.
func (f fields) collect(prefix string, attr slog.Attr) {
	key := attr.Key
	if key == "" {
		key = prefix
	} else if prefix != "" {
		key = prefix + "." + key
	}
	if attr.Value.Kind() == slog.KindGroup {
		for _, child := range attr.Value.Group() {
			f.collect(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, v, ok := coerceValue(key, attr.Value); ok {
		f[k] = v
	}
}

// coerceValue maps a slog value to its wire representation. Durations are
// rounded to milliseconds and the key gains a _ms suffix.
func coerceValue(key string, val slog.Value) (string, any, bool) {
	switch val.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(val.String()), true
	case slog.KindBool:
		return key, val.Bool(), true
	case slog.KindInt64:
		return key, val.Int64(), true
	case slog.KindUint64:
		return key, val.Uint64(), true
	case slog.KindFloat64:
		return key, val.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(val.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, val.Time().UTC().Format(time.RFC3339Nano), true
	case slog.KindAny:
		switch x := val.Any().(type) {
		case error:
			return key, x.Error(), true
		case string:
			return key, strings.TrimSpace(x), true
		case time.Duration:
			return durationKey(key), RoundMS(x).Milliseconds(), true
		case fmt.Stringer:
			return key, x.String(), true
		case nil:
			return key, nil, false
		default:
			return key, fmt.Sprint(x), true
		}
	default:
		return key, val.Any(), true
	}
}

func durationKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_duration"):
		return strings.TrimSuffix(key, "_duration") + "_duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	default:
		return key + "_ms"
	}
}

// mergeContext fills correlation fields from context without overriding
// explicitly provided attributes.
func (f fields) mergeContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	meta := metaFrom(ctx)
	setIfAbsent := func(key string, ok bool, value any) {
		if !ok {
			return
		}
		if _, present := f[key]; !present {
			f[key] = value
		}
	}
	setIfAbsent("rid", meta.rid != "", meta.rid)
	setIfAbsent("update_id", meta.updateID != 0, meta.updateID)
	setIfAbsent("user_id", meta.userID != 0, meta.userID)
	setIfAbsent("chat_id", meta.chatID != 0, meta.chatID)
	setIfAbsent("handler", meta.handler != "", meta.handler)
}

// compactRID replaces rid with its base36 form; JSON output additionally
// keeps the full value under rid_full.
func (f fields) compactRID(keepFull bool) {
	rid, ok := f.str("rid")
	if !ok || rid == "" {
		return
	}
	compact := CompactRID(rid)
	if compact == "" || compact == rid {
		return
	}
	if keepFull {
		if _, seen := f["rid_full"]; !seen {
			f["rid_full"] = rid
		}
	}
	f["rid"] = compact
}

func (f fields) applyDefaults(message string) {
	if event, ok := f.str("event"); !ok || event == "" {
		if message != "" {
			f["event"] = message
		} else {
			f["event"] = "unknown"
		}
	}
	if component, ok := f.str("component"); !ok || component == "" {
		f["component"] = "app"
	}
}

func (f fields) sanitizeEnums() {
	if level, ok := f.str("level"); ok {
		f["level"] = normalizeLevel(level)
	}
	if s, ok := f.str("status"); ok && s != "" {
		if normalized, valid := normalizeStatus(s); valid {
			f["status"] = normalized
		}
	}
	if o, ok := f.str("outcome"); ok && o != "" {
		if normalized, valid := normalizeOutcome(o); valid {
			f["outcome"] = normalized
		} else {
			delete(f, "outcome")
		}
	}
}

// prune drops empty strings and nils so lines carry only real data.
func (f fields) prune() {
	for k, v := range f {
		switch val := v.(type) {
		case string:
			if val == "" {
				delete(f, k)
			}
		case nil:
			delete(f, k)
		}
	}
}

func (f fields) str(key string) (string, bool) {
	v, ok := f[key]
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case fmt.Stringer:
		return val.String(), true
	default:
		return fmt.Sprint(val), true
	}
}

// orderedKeys returns the pinned keys first, then the rest sorted.
func (f fields) orderedKeys(order []string) []string {
	keys := make([]string, 0, len(f))
	pinned := make(map[string]struct{}, len(f))
	for _, key := range order {
		if _, ok := f[key]; ok {
			keys = append(keys, key)
			pinned[key] = struct{}{}
		}
	}
	tail := len(keys)
	for key := range f {
		if _, ok := pinned[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys[tail:])
	return keys
}

func (f fields) encodeJSON(order []string) ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, key := range f.orderedKeys(order) {
		data, err := json.Marshal(f[key])
		if err != nil {
			return nil, err
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(key))
		b.WriteByte(':')
		b.Write(data)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func (f fields) encodeKV(order []string) []byte {
	var b strings.Builder
	for i, key := range f.orderedKeys(order) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(kvValue(f[key]))
	}
	return []byte(b.String())
}

func kvValue(val any) string {
	switch v := val.(type) {
	case string:
		if v != "" && strings.IndexFunc(v, needsQuote) >= 0 {
			return strconv.Quote(v)
		}
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		s := fmt.Sprint(v)
		if strings.IndexFunc(s, needsQuote) >= 0 {
			return strconv.Quote(s)
		}
		return s
	}
}

func needsQuote(r rune) bool {
	return r <= 32 || r == '=' || r == '"'
}
