package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes one inline button. Data is sent verbatim as the
// callback data, so handlers registered for the bare token receive it.
type InlineBtn struct {
	Text string
	Data string
}

// RemoveKeyboard returns a markup that hides the reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tele.InlineButton, 0, len(row))
		for _, btn := range row {
			r = append(r, tele.InlineButton{Text: btn.Text, Data: btn.Data})
		}
		inline = append(inline, r)
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}

// Single returns an inline keyboard with exactly one button.
func Single(text, data string) *tele.ReplyMarkup {
	return InlineButtonsRows([]InlineBtn{{Text: text, Data: data}})
}
