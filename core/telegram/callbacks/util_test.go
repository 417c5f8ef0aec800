package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParseData(t *testing.T) {
	cases := []struct {
		raw, key, payload string
	}{
		{"reissue_key", "reissue_key", ""},
		{"disabled", "disabled", ""},
		{"\freissue_key", "reissue_key", ""},
		{"\fpage|3", "page", "3"},
		{"a|b|c", "a", "b|c"},
		{"", "", ""},
	}
	for _, tc := range cases {
		key, payload := ParseData(tc.raw)
		if key != tc.key || payload != tc.payload {
			t.Fatalf("ParseData(%q) = %q, %q; want %q, %q", tc.raw, key, payload, tc.key, tc.payload)
		}
	}
}

func TestKeyPrefersUnique(t *testing.T) {
	cb := &tele.Callback{Unique: "reissue_key", Data: "payload"}
	if got := Key(cb); got != "reissue_key" {
		t.Fatalf("Key = %q", got)
	}
	if got := Payload(cb); got != "payload" {
		t.Fatalf("Payload = %q", got)
	}
	if got := Key(&tele.Callback{Data: "disabled"}); got != "disabled" {
		t.Fatalf("Key = %q", got)
	}
	if Key(nil) != "" || Payload(nil) != "" {
		t.Fatal("nil callback must yield empty values")
	}
}
