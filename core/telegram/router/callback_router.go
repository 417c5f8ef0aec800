package router

import (
	"log/slog"
	"time"

	tg "github.com/nearmod/keybot/core/telegram"
	"github.com/nearmod/keybot/core/telegram/callbacks"
	"github.com/nearmod/keybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// answerContext records whether a handler already answered the callback
// query so the router does not answer it twice.
type answerContext struct {
	tele.Context
	answered bool
}

func (a *answerContext) Respond(resp ...*tele.CallbackResponse) error {
	a.answered = true
	return a.Context.Respond(resp...)
}

// CallbackRoute returns a handler that routes callbacks through the registry.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key := callbacks.CallbackKey(c)
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		ac := &answerContext{Context: c}
		defer func() {
			if !ac.answered {
				_ = c.Respond()
			}
		}()

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			fallback := reg.CallbackNotFound()
			if fallback == nil {
				fallback = opts.NotFound
			}
			extras = append(extras, slog.String("reason", "not_found"))
			return handleWithSummary(ac, name, start, "", "", func() error {
				if fallback != nil {
					return fallback(ac)
				}
				return nil
			}, extras...)
		}

		return handleWithSummary(ac, name, start, "", "", func() error {
			return cbHandler(ac)
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
