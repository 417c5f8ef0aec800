package router

import (
	"time"

	tg "github.com/nearmod/keybot/core/telegram"
	"github.com/nearmod/keybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextOptions configures TextRoutes.
type TextOptions struct {
	// UnknownText runs when the registry has no text fallback.
	UnknownText tele.HandlerFunc
}

// TextRoutes routes plain text and unregistered slash commands to the
// registry's text fallback.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		fallback := opts.UnknownText
		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				fallback = fb
			}
		}
		if fallback == nil {
			logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
			return nil
		}
		return handleWithSummary(c, "unknown_text", start, "", "", func() error {
			return fallback(c)
		})
	}
	return []tg.Route{{
		Endpoint: tele.OnText,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}}
}
