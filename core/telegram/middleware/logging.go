package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/nearmod/keybot/core/logger"
	"github.com/nearmod/keybot/core/telegram/callbacks"
	tghelpers "github.com/nearmod/keybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const ridKey = "rid"

// LoggerMiddleware attaches a request id and a scoped logger to the update
// and logs its receipt at debug level. Applying it again to the same update
// is a no-op.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if rid, _ := c.Get(ridKey).(string); rid != "" {
			return next(c)
		}

		upd := c.Update()
		var userID, chatID int64
		if u := c.Sender(); u != nil {
			userID = u.ID
		}
		if ch := c.Chat(); ch != nil {
			chatID = ch.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set(ridKey, rid)
		c.Set("update_start", time.Now())

		ctx := logger.WithRID(context.Background(), rid)
		ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.Component("tg"))
		tghelpers.StoreContext(c, ctx)

		if logger.ShouldSampleDebug() {
			logger.LogEvent(ctx, nil, slog.LevelDebug, "update.received", receiptAttrs(c, upd)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context, upd tele.Update) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if ch := c.Chat(); ch != nil {
		attrs = append(attrs, slog.String("chat_type", string(ch.Type)))
	}
	if u := c.Sender(); u != nil {
		if u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
		if u.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", u.LanguageCode))
		}
	}
	switch {
	case upd.Callback != nil:
		attrs = append(attrs,
			slog.String("cb_key", logger.SanitizeLimit(callbacks.Key(upd.Callback), 128)),
			slog.String("payload", logger.SanitizeLimit(callbacks.Payload(upd.Callback), 256)),
		)
	case upd.Message != nil:
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(c.Text(), 256)))
	}
	return attrs
}
