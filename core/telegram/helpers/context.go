package helpers

import (
	"context"

	"github.com/nearmod/keybot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const (
	ctxKey        = "logger_ctx"
	skipKey       = "handler_skip"
	skipReasonKey = "handler_skip_reason"
)

// StoreContext keeps ctx on the update so later helpers log with it.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(ctxKey, ctx)
	}
}

// ContextFrom returns the context saved by StoreContext.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(ctxKey).(context.Context)
	return ctx, ok
}

// BuildContext returns the stored request context, creating one carrying
// the update ids and request id when none exists yet.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := ContextFrom(c); ok {
		return ctx
	}
	var userID, chatID int64
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		chatID = ch.ID
	}
	updateID := c.Update().ID
	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.BuildRID(updateID, chatID, userID)
	}

	ctx := logger.WithUpdateMeta(logger.WithRID(context.Background(), rid), updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler records the handler name on the request context.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler != "" {
		ctx = logger.WithHandler(ctx, handler)
		StoreContext(c, ctx)
	}
	return ctx
}

// MarkSkip flags the update as answered without effect, such as a rejected
// request. The handler summary then reports status=skip with reason.
func MarkSkip(c tele.Context, reason string) {
	if c == nil {
		return
	}
	c.Set(skipKey, true)
	c.Set(skipReasonKey, reason)
}

// SkipMark returns what MarkSkip recorded.
func SkipMark(c tele.Context) (bool, string) {
	if c == nil {
		return false, ""
	}
	marked, _ := c.Get(skipKey).(bool)
	reason, _ := c.Get(skipReasonKey).(string)
	return marked, reason
}
