package bot

import (
	"errors"
	"fmt"

	"github.com/nearmod/keybot/core/buildinfo"
	"github.com/nearmod/keybot/internal/keys"
)

// Callback data carried by the inline buttons.
const (
	CallbackReissue  = "reissue_key"
	CallbackDisabled = "disabled"
)

const (
	buttonReissue   = "Перевыпустить ключ 🔄"
	buttonForbidden = "Перевыдача запрещена ❌"

	textNoKey            = "У тебя нет выданного ключа. Напиши /start чтобы получить."
	textCorruptRecord    = "Данные ключа повреждены. Напиши /start чтобы получить новый."
	textExpired          = "Срок действия ключа истёк. Обновите ключ."
	textAlreadyForbidden = "Перевыдача ключа уже запрещена."

	alertForbidden = "Перевыдача запрещена"
	alertUnknown   = "Неизвестное действие"

	textUnavailable = "Сервис временно недоступен, попробуй позже."
	textUnknown     = "Не понимаю. Напиши /start чтобы получить ключ."
	textAdminOnly   = "Команда доступна только администратору."

	descriptionStart = "получить ключ"
)

// keyText renders the reply to /start.
func keyText(rec keys.Record) string {
	return fmt.Sprintf("Твой ключ: %s\nДействует до: %s\nПеревыдача — %s",
		rec.Key, rec.ExpirationDate, rec.ReissueStatus)
}

// newKeyText renders the reply to a successful re-issuance.
func newKeyText(rec keys.Record) string {
	return fmt.Sprintf("Твой новый ключ: %s\nДействует до: %s\nПеревыдача — %s",
		rec.Key, rec.ExpirationDate, keys.StatusForbidden)
}

// rejectionText maps a lifecycle rejection to its fixed reply.
func rejectionText(err error) (string, bool) {
	switch {
	case errors.Is(err, keys.ErrNoKey):
		return textNoKey, true
	case errors.Is(err, keys.ErrCorruptRecord):
		return textCorruptRecord, true
	case errors.Is(err, keys.ErrExpired):
		return textExpired, true
	case errors.Is(err, keys.ErrAlreadyForbidden):
		return textAlreadyForbidden, true
	}
	return "", false
}

func statsText(st keys.Stats) string {
	return fmt.Sprintf("Ключей: %d\nПеревыдача запрещена: %d\nИстекло: %d\nПовреждено: %d",
		st.Total, st.Forbidden, st.Expired, st.Incomplete)
}

func versionText() string {
	return buildinfo.String()
}
