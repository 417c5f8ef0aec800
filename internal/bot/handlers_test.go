package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/nearmod/keybot/core/telegram"
	tghelpers "github.com/nearmod/keybot/core/telegram/helpers"
	"github.com/nearmod/keybot/internal/keys"
	"github.com/nearmod/keybot/internal/storage/filestore"
)

type reply struct {
	text   string
	markup *tele.ReplyMarkup
}

// fakeContext implements the parts of tele.Context the handlers touch.
type fakeContext struct {
	tele.Context

	sender    *tele.User
	callback  *tele.Callback
	values    map[string]any
	sent      []reply
	edited    []reply
	responses []*tele.CallbackResponse
	editErr   error
}

func newFakeContext(userID int64) *fakeContext {
	return &fakeContext{sender: &tele.User{ID: userID}, values: map[string]any{}}
}

func (f *fakeContext) Sender() *tele.User       { return f.sender }
func (f *fakeContext) Callback() *tele.Callback { return f.callback }
func (f *fakeContext) Update() tele.Update      { return tele.Update{ID: 7, Callback: f.callback} }
func (f *fakeContext) Get(key string) any       { return f.values[key] }
func (f *fakeContext) Set(key string, v any)    { f.values[key] = v }

func (f *fakeContext) Chat() *tele.Chat {
	if f.sender == nil {
		return nil
	}
	return &tele.Chat{ID: f.sender.ID}
}

func toReply(what any, opts []any) reply {
	r := reply{text: what.(string)}
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok && so != nil {
			r.markup = so.ReplyMarkup
		}
	}
	return r
}

func (f *fakeContext) Send(what any, opts ...any) error {
	f.sent = append(f.sent, toReply(what, opts))
	return nil
}

func (f *fakeContext) Edit(what any, opts ...any) error {
	if f.editErr != nil {
		return f.editErr
	}
	f.edited = append(f.edited, toReply(what, opts))
	return nil
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	f.responses = append(f.responses, resp...)
	return nil
}

func buttonData(t *testing.T, m *tele.ReplyMarkup) (string, string) {
	t.Helper()
	require.NotNil(t, m)
	require.Len(t, m.InlineKeyboard, 1)
	require.Len(t, m.InlineKeyboard[0], 1)
	btn := m.InlineKeyboard[0][0]
	return btn.Text, btn.Data
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newHandlers(t *testing.T, clk *clock) *Handlers {
	t.Helper()
	store := filestore.New(filepath.Join(t.TempDir(), "keys.json"))
	return New(keys.NewService(store, &keys.Lifecycle{Now: clk.Now}))
}

var (
	keyReplyRe    = regexp.MustCompile(`^Твой ключ: (nearmod-[A-Z0-9]{12})\nДействует до: 2027-10-18\nПеревыдача — разрешена$`)
	newKeyReplyRe = regexp.MustCompile(`^Твой новый ключ: (nearmod-[A-Z0-9]{12})\nДействует до: 2027-10-18\nПеревыдача — запрещена$`)
)

func TestStartIssuesKeyOnce(t *testing.T) {
	h := newHandlers(t, &clock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.Local)})

	first := newFakeContext(42)
	require.NoError(t, h.Start(first))
	require.Len(t, first.sent, 1)
	m := keyReplyRe.FindStringSubmatch(first.sent[0].text)
	require.NotNil(t, m, "unexpected reply %q", first.sent[0].text)

	text, data := buttonData(t, first.sent[0].markup)
	assert.Equal(t, "Перевыпустить ключ 🔄", text)
	assert.Equal(t, CallbackReissue, data)

	second := newFakeContext(42)
	require.NoError(t, h.Start(second))
	assert.Equal(t, first.sent[0].text, second.sent[0].text)
}

func TestReissueOnceThenForbidden(t *testing.T) {
	h := newHandlers(t, &clock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.Local)})

	start := newFakeContext(42)
	require.NoError(t, h.Start(start))
	oldKey := keyReplyRe.FindStringSubmatch(start.sent[0].text)[1]

	press := newFakeContext(42)
	require.NoError(t, h.Reissue(press))
	require.Len(t, press.edited, 1)
	m := newKeyReplyRe.FindStringSubmatch(press.edited[0].text)
	require.NotNil(t, m, "unexpected reply %q", press.edited[0].text)
	assert.NotEqual(t, oldKey, m[1])

	text, data := buttonData(t, press.edited[0].markup)
	assert.Equal(t, "Перевыдача запрещена ❌", text)
	assert.Equal(t, CallbackDisabled, data)

	again := newFakeContext(42)
	require.NoError(t, h.Reissue(again))
	require.Len(t, again.edited, 1)
	assert.Equal(t, "Перевыдача ключа уже запрещена.", again.edited[0].text)
	assert.Nil(t, again.edited[0].markup)
	marked, reason := tghelpers.SkipMark(again)
	assert.True(t, marked)
	assert.Equal(t, "already_forbidden", reason)

	// /start after reissue shows the forbidden status with the same button.
	later := newFakeContext(42)
	require.NoError(t, h.Start(later))
	assert.Equal(t, "Твой ключ: "+m[1]+"\nДействует до: 2027-10-18\nПеревыдача — запрещена", later.sent[0].text)
}

func TestReissueRejections(t *testing.T) {
	clk := &clock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.Local)}
	h := newHandlers(t, clk)

	noKey := newFakeContext(1)
	require.NoError(t, h.Reissue(noKey))
	require.Len(t, noKey.edited, 1)
	assert.Equal(t, "У тебя нет выданного ключа. Напиши /start чтобы получить.", noKey.edited[0].text)

	require.NoError(t, h.Start(newFakeContext(1)))
	clk.now = clk.now.AddDate(1, 0, 1)

	expired := newFakeContext(1)
	require.NoError(t, h.Reissue(expired))
	assert.Equal(t, "Срок действия ключа истёк. Обновите ключ.", expired.edited[0].text)
}

func TestReissueCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	store := filestore.New(filepath.Join(dir, "keys.json"))
	require.NoError(t, store.Save(context.Background(), keys.Snapshot{"5": {Key: "nearmod-AAAAAAAAAAAA"}}))
	h := New(keys.NewService(store, nil))

	c := newFakeContext(5)
	require.NoError(t, h.Reissue(c))
	assert.Equal(t, "Данные ключа повреждены. Напиши /start чтобы получить новый.", c.edited[0].text)
}

func TestReissueIgnoresUnchangedEdit(t *testing.T) {
	h := newHandlers(t, &clock{now: time.Now()})
	c := newFakeContext(9)
	c.editErr = fmt.Errorf("edit: %w", tele.ErrSameMessageContent)
	assert.NoError(t, h.Reissue(c))

	other := newFakeContext(10)
	other.editErr = tele.ErrNotFound
	assert.ErrorIs(t, h.Reissue(other), tele.ErrNotFound)
}

func TestDisabledShowsAlert(t *testing.T) {
	h := New(nil)
	c := newFakeContext(3)
	require.NoError(t, h.Disabled(c))
	require.Len(t, c.responses, 1)
	assert.Equal(t, "Перевыдача запрещена", c.responses[0].Text)
	assert.True(t, c.responses[0].ShowAlert)
}

type failingService struct{ err error }

func (f failingService) IssueOrFetch(context.Context, string) (keys.Record, error) {
	return keys.Record{}, f.err
}
func (f failingService) Reissue(context.Context, string) (keys.Record, error) {
	return keys.Record{}, f.err
}
func (f failingService) Stats(context.Context) (keys.Stats, error) { return keys.Stats{}, f.err }

func TestStoreFailuresReplyAndPropagate(t *testing.T) {
	boom := errors.New("load keys: permission denied")
	h := New(failingService{err: boom})

	start := newFakeContext(1)
	assert.ErrorIs(t, h.Start(start), boom)
	require.Len(t, start.sent, 1)
	assert.Equal(t, textUnavailable, start.sent[0].text)

	press := newFakeContext(1)
	assert.ErrorIs(t, h.Reissue(press), boom)
	assert.Empty(t, press.edited)
	require.Len(t, press.responses, 1)
	assert.True(t, press.responses[0].ShowAlert)

	stats := newFakeContext(1)
	assert.ErrorIs(t, h.Stats(stats), boom)
}

func TestStatsReply(t *testing.T) {
	h := newHandlers(t, &clock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.Local)})
	require.NoError(t, h.Start(newFakeContext(1)))
	require.NoError(t, h.Start(newFakeContext(2)))
	require.NoError(t, h.Reissue(newFakeContext(2)))

	c := newFakeContext(100)
	require.NoError(t, h.Stats(c))
	assert.Equal(t, "Ключей: 2\nПеревыдача запрещена: 1\nИстекло: 0\nПовреждено: 0", c.sent[0].text)
}

func TestMissingSenderIsSkipped(t *testing.T) {
	h := New(failingService{err: errors.New("must not be called")})
	c := &fakeContext{values: map[string]any{}}
	assert.NoError(t, h.Start(c))
	assert.NoError(t, h.Reissue(c))
	assert.Empty(t, c.sent)
}

func TestRegister(t *testing.T) {
	reg := tg.NewRegistry()
	require.NoError(t, New(nil).Register(reg))

	menu := reg.ListCommands(true)
	require.Len(t, menu, 1)
	assert.Equal(t, "/start", menu[0].Text)
	assert.Equal(t, "получить ключ", menu[0].Description)

	assert.Equal(t, []string{CallbackDisabled, CallbackReissue}, reg.ListCallbacks())
	assert.NotNil(t, reg.TextFallback())

	_, cmd, ok := reg.LookupCommand("stats")
	require.True(t, ok)
	assert.True(t, cmd.AdminOnly)

	assert.Error(t, New(nil).Register(reg), "duplicate callbacks are rejected")
}

func TestUnknownInputs(t *testing.T) {
	h := New(nil)

	cb := newFakeContext(1)
	require.NoError(t, h.UnknownCallback(cb))
	require.Len(t, cb.responses, 1)
	assert.Equal(t, alertUnknown, cb.responses[0].Text)

	txt := newFakeContext(1)
	require.NoError(t, h.UnknownText(txt))
	assert.Equal(t, textUnknown, txt.sent[0].text)
}
