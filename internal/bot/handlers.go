// Package bot holds the Telegram handlers of the key bot.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/nearmod/keybot/core/logger"
	tg "github.com/nearmod/keybot/core/telegram"
	"github.com/nearmod/keybot/core/telegram/commands"
	tghelpers "github.com/nearmod/keybot/core/telegram/helpers"
	"github.com/nearmod/keybot/core/telegram/keyboard"
	"github.com/nearmod/keybot/internal/keys"

	tele "gopkg.in/telebot.v4"
)

// KeyService is the part of keys.Service the handlers use.
type KeyService interface {
	IssueOrFetch(ctx context.Context, userID string) (keys.Record, error)
	Reissue(ctx context.Context, userID string) (keys.Record, error)
	Stats(ctx context.Context) (keys.Stats, error)
}

// Handlers answers updates using a KeyService.
type Handlers struct {
	svc KeyService
}

// New returns handlers backed by svc.
func New(svc KeyService) *Handlers {
	return &Handlers{svc: svc}
}

// Register adds the commands, callbacks and fallbacks to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	cmds := map[string]commands.Command{
		"/start":   {Handler: h.Start, Description: descriptionStart},
		"/stats":   {Handler: h.Stats, Description: "статистика ключей", AdminOnly: true},
		"/version": {Handler: h.Version, Description: "версия бота", Hidden: true},
	}
	for name, cmd := range cmds {
		if err := reg.RegisterCommand(name, cmd); err != nil {
			return err
		}
	}
	if err := reg.RegisterCallback(CallbackReissue, h.Reissue); err != nil {
		return err
	}
	if err := reg.RegisterCallback(CallbackDisabled, h.Disabled); err != nil {
		return err
	}
	reg.SetCallbackNotFound(h.UnknownCallback)
	reg.SetTextFallback(h.UnknownText)
	return nil
}

func userKey(u *tele.User) string {
	return strconv.FormatInt(u.ID, 10)
}

// Start issues or fetches the sender's key.
func (h *Handlers) Start(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		tghelpers.MarkSkip(c, "no_sender")
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	rec, err := h.svc.IssueOrFetch(ctx, userKey(user))
	if err != nil {
		_ = tghelpers.SendText(c, textUnavailable)
		return err
	}
	return tghelpers.SendText(c, keyText(rec), keyboard.Single(buttonReissue, CallbackReissue))
}

// Reissue handles the reissue button.
func (h *Handlers) Reissue(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		tghelpers.MarkSkip(c, "no_sender")
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	rec, err := h.svc.Reissue(ctx, userKey(user))
	if err != nil {
		text, rejected := rejectionText(err)
		if !rejected {
			_ = tghelpers.Alert(c, textUnavailable)
			return err
		}
		tghelpers.MarkSkip(c, keys.RejectionReason(err))
		return editIgnoringSame(ctx, c, text)
	}
	return editIgnoringSame(ctx, c, newKeyText(rec), keyboard.Single(buttonForbidden, CallbackDisabled))
}

// Disabled handles presses on the exhausted button.
func (h *Handlers) Disabled(c tele.Context) error {
	return tghelpers.Alert(c, alertForbidden)
}

// Stats reports record counts to the admin.
func (h *Handlers) Stats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	st, err := h.svc.Stats(ctx)
	if err != nil {
		_ = tghelpers.SendText(c, textUnavailable)
		return err
	}
	return tghelpers.SendText(c, statsText(st))
}

// Version replies with the build version.
func (h *Handlers) Version(c tele.Context) error {
	return tghelpers.SendText(c, versionText())
}

// AdminOnly rejects non-admin callers of admin commands.
func (h *Handlers) AdminOnly(c tele.Context) error {
	tghelpers.MarkSkip(c, "not_admin")
	return tghelpers.SendText(c, textAdminOnly)
}

// UnknownCallback answers callbacks nobody registered.
func (h *Handlers) UnknownCallback(c tele.Context) error {
	tghelpers.MarkSkip(c, "unknown_callback")
	return tghelpers.Alert(c, alertUnknown)
}

// UnknownText hints at /start for any other message.
func (h *Handlers) UnknownText(c tele.Context) error {
	tghelpers.MarkSkip(c, "unknown_text")
	return tghelpers.SendText(c, textUnknown)
}

// editIgnoringSame edits the callback message. Telegram refuses edits that
// change nothing; that happens when a rejection is shown twice and is not a
// failure.
func editIgnoringSame(ctx context.Context, c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	err := tghelpers.EditText(c, text, markup...)
	if errors.Is(err, tele.ErrSameMessageContent) || errors.Is(err, tele.ErrMessageNotModified) {
		logger.Debug(ctx, "tg", "edit.unchanged", slog.String("status", "skip"))
		return nil
	}
	return err
}
