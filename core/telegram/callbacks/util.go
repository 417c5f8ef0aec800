// Package callbacks decodes inline button callback data.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseData splits raw callback data into key and payload. It accepts
// telebot's "\f<unique>|<payload>" encoding as well as bare tokens such as
// "reissue_key".
func ParseData(raw string) (string, string) {
	raw = strings.TrimPrefix(raw, "\f")
	parts := strings.SplitN(raw, "|", 2)
	key := strings.TrimSpace(parts[0])
	payload := ""
	if len(parts) == 2 {
		payload = parts[1]
	}
	return key, payload
}

// Key returns the routing key of a callback: cb.Unique when telebot already
// resolved it, otherwise the token parsed from cb.Data.
func Key(cb *tele.Callback) string {
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		return cb.Unique
	}
	k, _ := ParseData(cb.Data)
	return k
}

// Payload returns the part of cb.Data after '|', if any.
func Payload(cb *tele.Callback) string {
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		return cb.Data
	}
	_, p := ParseData(cb.Data)
	return p
}

// CallbackKey is Key for the callback carried by c.
func CallbackKey(c tele.Context) string {
	return Key(c.Callback())
}
