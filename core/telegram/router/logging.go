package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/nearmod/keybot/core/logger"
	tghelpers "github.com/nearmod/keybot/core/telegram/helpers"
	"github.com/nearmod/keybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// handleWithSummary runs fn under the handler name and logs one
// handler.handled line for it.
func handleWithSummary(c tele.Context, name string, start time.Time, status, outcome string, fn func() error, extras ...slog.Attr) error {
	tghelpers.WithHandler(c, name)
	err := fn()
	logHandlerSummary(c, name, start, status, outcome, err, extras...)
	return err
}

// logHandlerSummary logs the result of a handler. Empty status and outcome
// are derived from err and from a skip mark left by the handler.
func logHandlerSummary(c tele.Context, name string, start time.Time, status, outcome string, err error, extras ...slog.Attr) {
	ctx := tghelpers.WithHandler(c, name)

	result := "ok"
	if err != nil {
		result = "fail"
	}
	if outcome == "" {
		outcome = result
	}
	if status == "" {
		status = result
		if skipped, reason := tghelpers.SkipMark(c); skipped && err == nil {
			status = "skip"
			extras = append(extras, slog.String("reason", reason))
		}
	}

	msgs, kb := middleware.GetCounters(c)
	attrs := append([]slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(start)),
	}, extras...)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", attrs...)
}

// normalizeHandlerName turns a command or callback key into a log-friendly
// handler name.
func normalizeHandlerName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

type coder interface{ Code() string }

// deriveErrorCode prefers a Code() found anywhere in the error chain and
// falls back to the concrete type name.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
