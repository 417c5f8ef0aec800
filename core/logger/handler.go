package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	tsLayout = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// field is one flattened attribute.
type field struct {
	key string
	val any
}

// structuredHandler renders each record as one line with a fixed key order.
// Groups are flattened into dotted keys.
type structuredHandler struct {
	cfg    handlerConfig
	pre    []field
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = slices.Clone(defaultKeyOrder)
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.pre = slices.Clip(h.pre)
	for _, a := range attrs {
		c.pre = appendAttr(c.pre, h.prefix, a)
	}
	return &c
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = joinKey(h.prefix, name)
	return &c
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}

	ts := r.Time.UTC()
	f := map[string]any{
		"ts":    ts.Truncate(time.Millisecond).Format(tsLayout),
		"level": normalizeLevel(r.Level.String()),
	}
	if h.cfg.format == formatJSON {
		f["ts_unix_nano"] = ts.UnixNano()
	}
	for _, p := range h.pre {
		f[p.key] = p.val
	}
	var own []field
	r.Attrs(func(a slog.Attr) bool {
		own = appendAttr(own, h.prefix, a)
		return true
	})
	for _, p := range own {
		f[p.key] = p.val
	}

	addMeta(f, metaFrom(ctx))
	h.finish(f, r.Message)

	var line []byte
	if h.cfg.format == formatJSON {
		var err error
		if line, err = encodeJSON(f, h.cfg.keyOrder); err != nil {
			return err
		}
	} else {
		line = encodeKV(f, h.cfg.keyOrder)
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

// finish fills defaults and normalizes well-known keys.
func (h *structuredHandler) finish(f map[string]any, msg string) {
	if rid := textOf(f["rid"]); rid != "" {
		if compact := CompactRID(rid); compact != rid {
			if _, seen := f["rid_full"]; !seen && h.cfg.format == formatJSON {
				f["rid_full"] = rid
			}
			f["rid"] = compact
		}
	}
	if textOf(f["event"]) == "" {
		if msg == "" {
			msg = "unknown"
		}
		f["event"] = msg
	}
	if textOf(f["component"]) == "" {
		f["component"] = "app"
	}
	for _, key := range []string{"status", "outcome"} {
		raw := textOf(f[key])
		if raw == "" {
			continue
		}
		if norm, ok := normalizeStatus(raw); ok {
			f[key] = norm
		} else if key == "outcome" {
			delete(f, key)
		}
	}
	for k, v := range f {
		if v == nil || textOf(v) == "" {
			delete(f, k)
		}
	}
}

func addMeta(f map[string]any, m requestMeta) {
	setDefault(f, "rid", m.rid, m.rid != "")
	setDefault(f, "update_id", m.updateID, m.updateID != 0)
	setDefault(f, "user_id", m.userID, m.userID != 0)
	setDefault(f, "chat_id", m.chatID, m.chatID != 0)
	setDefault(f, "handler", m.handler, m.handler != "")
}

func setDefault(f map[string]any, key string, val any, ok bool) {
	if !ok {
		return
	}
	if _, exists := f[key]; !exists {
		f[key] = val
	}
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

func appendAttr(dst []field, prefix string, a slog.Attr) []field {
	v := a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			dst = appendAttr(dst, key, child)
		}
		return dst
	}
	if key == "" {
		return dst
	}
	if k, val, ok := convert(key, v); ok {
		dst = append(dst, field{key: k, val: val})
	}
	return dst
}

// convert maps an slog value to a JSON-friendly one. Durations become
// whole milliseconds under a key ending in _ms.
func convert(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		return msKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

func msKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}

func textOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
