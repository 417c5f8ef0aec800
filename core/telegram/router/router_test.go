package router

import (
	"errors"
	"fmt"
	"testing"

	tele "gopkg.in/telebot.v4"

	tg "github.com/nearmod/keybot/core/telegram"
)

type fakeContext struct {
	tele.Context

	callback  *tele.Callback
	text      string
	values    map[string]any
	responses [][]*tele.CallbackResponse
	sent      []any
}

func newCallbackContext(data string) *fakeContext {
	return &fakeContext{
		callback: &tele.Callback{Data: data, Sender: &tele.User{ID: 5}},
		values:   map[string]any{},
	}
}

func (f *fakeContext) Sender() *tele.User       { return &tele.User{ID: 5} }
func (f *fakeContext) Chat() *tele.Chat         { return &tele.Chat{ID: 5, Type: tele.ChatPrivate} }
func (f *fakeContext) Callback() *tele.Callback { return f.callback }
func (f *fakeContext) Text() string             { return f.text }
func (f *fakeContext) Get(key string) any       { return f.values[key] }
func (f *fakeContext) Set(key string, v any)    { f.values[key] = v }

func (f *fakeContext) Update() tele.Update {
	if f.callback != nil {
		return tele.Update{ID: 11, Callback: f.callback}
	}
	return tele.Update{ID: 12, Message: &tele.Message{Text: f.text}}
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeContext) Send(what any, _ ...any) error {
	f.sent = append(f.sent, what)
	return nil
}

func TestCallbackRouteAnswersOnce(t *testing.T) {
	reg := tg.NewRegistry()
	if err := reg.RegisterCallback("disabled", func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "no", ShowAlert: true})
	}); err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterCallback("reissue_key", func(c tele.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	route := CallbackRoute(reg, CallbackOptions{})
	if route.Endpoint != tele.OnCallback {
		t.Fatalf("endpoint = %v", route.Endpoint)
	}

	alert := newCallbackContext("disabled")
	if err := route.Handler(alert); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(alert.responses) != 1 || len(alert.responses[0]) != 1 || !alert.responses[0][0].ShowAlert {
		t.Fatalf("want a single alert answer, got %+v", alert.responses)
	}

	silent := newCallbackContext("reissue_key")
	if err := route.Handler(silent); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(silent.responses) != 1 || len(silent.responses[0]) != 0 {
		t.Fatalf("want one empty answer, got %+v", silent.responses)
	}
}

func TestCallbackRouteUnknownUsesFallback(t *testing.T) {
	reg := tg.NewRegistry()
	c := newCallbackContext("\fsomething|1")
	if err := CallbackRoute(reg, CallbackOptions{}).Handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(c.responses) != 1 || len(c.responses[0]) != 1 || c.responses[0][0].Text == "" {
		t.Fatalf("fallback answer missing: %+v", c.responses)
	}
}

func TestCallbackRoutePanicBecomesError(t *testing.T) {
	reg := tg.NewRegistry()
	_ = reg.RegisterCallback("boom", func(tele.Context) error { panic("bad") })
	c := newCallbackContext("boom")
	if err := CallbackRoute(reg, CallbackOptions{}).Handler(c); err == nil {
		t.Fatal("expected error from recovered panic")
	}
	if len(c.responses) != 1 {
		t.Fatalf("callback must still be answered, got %d", len(c.responses))
	}
}

func TestTextRoutesFallback(t *testing.T) {
	reg := tg.NewRegistry()
	reg.SetTextFallback(func(c tele.Context) error { return c.Send("hint") })
	routes := TextRoutes(reg, TextOptions{})
	if len(routes) != 1 || routes[0].Endpoint != tele.OnText {
		t.Fatalf("unexpected routes: %+v", routes)
	}
	c := &fakeContext{text: "hello", values: map[string]any{}}
	if err := routes[0].Handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(c.sent) != 1 || c.sent[0] != "hint" {
		t.Fatalf("sent = %v", c.sent)
	}
}

type codedErr struct{}

func (codedErr) Error() string { return "x" }
func (codedErr) Code() string  { return "store unavailable" }

type plainErr struct{}

func (*plainErr) Error() string { return "y" }

func TestDeriveErrorCode(t *testing.T) {
	if got := deriveErrorCode(codedErr{}); got != "STORE_UNAVAILABLE" {
		t.Fatalf("coded = %q", got)
	}
	if got := deriveErrorCode(&plainErr{}); got != "PLAINERR" {
		t.Fatalf("pointer type = %q", got)
	}
	if got := deriveErrorCode(errors.New("z")); got != "ERRORSTRING" {
		t.Fatalf("errors.New = %q", got)
	}
	if deriveErrorCode(nil) != "" {
		t.Fatal("nil error must have no code")
	}
}

func TestNormalizeHandlerName(t *testing.T) {
	cases := map[string]string{
		"/start":       "start",
		"":             "unknown",
		" Reissue Key": "reissue_key",
	}
	for in, want := range cases {
		if got := normalizeHandlerName(in); got != want {
			t.Fatalf("normalizeHandlerName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeriveErrorCodeFollowsWrapping(t *testing.T) {
	wrapped := fmt.Errorf("reissue: %w", codedErr{})
	if got := deriveErrorCode(wrapped); got != "STORE_UNAVAILABLE" {
		t.Fatalf("wrapped = %q", got)
	}
}
