// Package helpers wraps common replies and keeps per-update request state.
package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/nearmod/keybot/core/logger"
	"github.com/nearmod/keybot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher makes SendText queue its calls on d. nil sends inline.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// enqueue hands run to the dispatcher, or calls it directly when there is
// none or the queue refuses it.
func enqueue(c tele.Context, action, endpoint string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

func sendOptions(markup []*tele.ReplyMarkup) *tele.SendOptions {
	opts := &tele.SendOptions{}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return opts
}

// SendText sends plain text to the chat of c, with an optional markup.
func SendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := sendOptions(markup)
	return enqueue(c, "send.text", "sendMessage", func() error {
		return c.Send(text, opts)
	})
}

// EditText rewrites the message a callback came from. It runs inline so
// a reply sent afterwards lands below the edited message.
func EditText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return c.Edit(text, sendOptions(markup))
}

// Alert answers a callback query with a popup.
func Alert(c tele.Context, text string) error {
	return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
}
