package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nearmod/keybot/core/buildinfo"
	coreconfig "github.com/nearmod/keybot/core/config"
)

const (
	writerBuffer = 64 * 1024
	sampleNum    = 1
	sampleDen    = 50
)

var (
	initOnce sync.Once
	stopOnce sync.Once
	stopErr  error

	out     *asyncWriter
	closers []io.Closer

	level   slog.LevelVar
	debug   = newSampler(sampleNum, sampleDen)
	traceOn bool

	// L is the base logger; request paths use FromContext.
	L *slog.Logger

	DB    *slog.Logger // database connections
	MIG   *slog.Logger // schema migrations
	TG    *slog.Logger // Telegram transport
	TWire *slog.Logger // route registration
	Store *slog.Logger // key store backends
)

func init() {
	L = slog.Default()
	scope()
}

// InitLogger installs the structured logger as slog's default.
// Only the first call has any effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		var lc coreconfig.LoggingConfig
		if cfg != nil {
			lc = cfg.Logging
		}

		sinks, files, openErr := openSinks(lc)
		if openErr != nil {
			err = openErr
			return
		}
		closers = files
		out = newAsyncWriter(sinks, writerBuffer)

		level.Set(parseLevel(lc.Level))
		debug.Set(debugRatio(lc.DebugSample))
		traceOn = envFlag("TRACE") || envFlag("LOG_TRACE")

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &level,
			writer:   out,
			format:   pickFormat(lc),
			keyOrder: keyOrder(lc.KeysOrder),
		}))
		slog.SetDefault(L)
		scope()

		L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("component", "app"),
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", profile(lc)),
		)
	})
	return err
}

func scope() {
	DB = L.With("component", "db")
	MIG = L.With("component", "db.migrate")
	TG = L.With("component", "tg")
	TWire = L.With("component", "tg.wire")
	Store = L.With("component", "store")
}

// Shutdown drains pending lines and closes log files. Later calls return
// the first result.
func Shutdown() error {
	stopOnce.Do(func() {
		var errs []error
		if out != nil {
			errs = append(errs, out.Close())
		}
		for _, c := range closers {
			errs = append(errs, c.Close())
		}
		stopErr = errors.Join(errs...)
	})
	return stopErr
}

func openSinks(lc coreconfig.LoggingConfig) ([]io.Writer, []io.Closer, error) {
	sinks := []io.Writer{os.Stdout}
	dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile)
	if dir == "" || name == "" {
		return sinks, nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("logger: create dir %s: %w", dir, err)
	}
	rot := &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAge:     lc.MaxAgeDays,
		Compress:   lc.Compress,
	}
	return append(sinks, rot), []io.Closer{rot}, nil
}

func pickFormat(lc coreconfig.LoggingConfig) logFormat {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "json":
		return formatJSON
	case "kv", "text", "pretty":
		return formatKV
	}
	switch profile(lc) {
	case "debug", "dev":
		return formatKV
	}
	return formatJSON
}

func profile(lc coreconfig.LoggingConfig) string {
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		return p
	}
	return "prod"
}

func keyOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return slices.Clone(defaultKeyOrder)
	}
	var order []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			order = append(order, k)
		}
	}
	if len(order) == 0 {
		return slices.Clone(defaultKeyOrder)
	}
	return order
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// debugRatio maps the debug_sample setting to a ratio. "all" keeps every
// event; empty or invalid input falls back to 1/50.
func debugRatio(raw string) (int, int) {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "all") {
		return 0, 0
	}
	if num, den := parseRatio(raw); num > 0 && den > 0 {
		return num, den
	}
	return sampleNum, sampleDen
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether a high-volume debug event should be
// written. TRACE=1 lets everything through.
func ShouldSampleDebug() bool {
	return traceOn || debug.Allow()
}

// Component returns L scoped to name.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// LogEvent writes attrs under the given event name. A nil log falls back to
// the context logger.
func LogEvent(ctx context.Context, log *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if log == nil {
		log = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	log.LogAttrs(ctx, lvl, "", attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}
