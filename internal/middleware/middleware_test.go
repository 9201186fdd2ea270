package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BatmanBruc/arima-bot/internal/access"
	"github.com/BatmanBruc/arima-bot/internal/contextkeys"
	"github.com/BatmanBruc/arima-bot/internal/messages"
	"github.com/BatmanBruc/arima-bot/types"
)

type fakeAccess struct {
	byID   map[int64]access.Access
	err    error
	admins map[int64]bool
}

func (f *fakeAccess) Snapshot(_ context.Context, userID int64) (access.Access, error) {
	if f.err != nil {
		return access.Access{}, f.err
	}
	if a, ok := f.byID[userID]; ok {
		return a, nil
	}
	return access.Access{UserID: userID, Limit: 3}, nil
}

func (f *fakeAccess) IsAdmin(userID int64) bool {
	return f.admins[userID]
}

type fakeUsers struct {
	names map[int64]string
	err   error
}

func (f *fakeUsers) AddUser(_ context.Context, userID int64, displayName string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.names == nil {
		f.names = make(map[int64]string)
	}
	_, seen := f.names[userID]
	f.names[userID] = displayName
	return !seen, nil
}

type apiCall struct {
	method string
	text   string
}

type recorder struct {
	mu    sync.Mutex
	calls []apiCall
}

func (r *recorder) all() []apiCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]apiCall(nil), r.calls...)
}

func newTestBot(t *testing.T) (*bot.Bot, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		text := r.FormValue("text")
		rec.mu.Lock()
		rec.calls = append(rec.calls, apiCall{method: method, text: text})
		rec.mu.Unlock()
		if method == "sendMessage" {
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":7,"type":"private"}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	t.Cleanup(srv.Close)

	b, err := bot.New("123:test", bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	require.NoError(t, err)
	return b, rec
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func privateText(userID int64, text string) *models.Update {
	return &models.Update{Message: &models.Message{
		ID:   10,
		From: &models.User{ID: userID},
		Chat: models.Chat{ID: userID, Type: models.ChatTypePrivate},
		Text: text,
	}}
}

func groupText(userID int64, text string) *models.Update {
	return &models.Update{Message: &models.Message{
		ID:   11,
		From: &models.User{ID: userID},
		Chat: models.Chat{ID: -100, Type: models.ChatTypeSupergroup},
		Text: text,
	}}
}

func callback(userID int64, data string) *models.Update {
	return &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:   "cb1",
		From: models.User{ID: userID},
		Data: data,
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{ID: 5, Chat: models.Chat{ID: userID, Type: models.ChatTypePrivate}},
		},
	}}
}

func TestAnalyzeMessage(t *testing.T) {
	m := New(&fakeAccess{}, &fakeUsers{}, ".mini", testLogger())

	tests := []struct {
		name    string
		update  *models.Update
		want    contextkeys.MessageType
		handled bool
	}{
		{"private text", privateText(1, "hello"), contextkeys.MessageTypeText, true},
		{"private command", privateText(1, "/start"), contextkeys.MessageTypeCommand, true},
		{"private media", privateText(1, ""), contextkeys.MessageTypeMedia, true},
		{"group trigger", groupText(1, ".mini what is go"), contextkeys.MessageTypeGroupText, true},
		{"group command", groupText(1, "/help@arima_bot"), contextkeys.MessageTypeGroupCmd, true},
		{"group chatter", groupText(1, "good morning"), "", false},
		{"button", callback(1, "menu_help"), contextkeys.MessageTypeClickButton, true},
		{"empty update", &models.Update{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got contextkeys.MessageType
			handled := false
			h := m.AnalyzeMessageMiddleware(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
				handled = true
				got, _ = contextkeys.GetMessageType(ctx)
			})
			h(context.Background(), nil, tt.update)

			assert.Equal(t, tt.handled, handled)
			if tt.handled {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestAnalyzeMessage_CallbackData(t *testing.T) {
	m := New(&fakeAccess{}, &fakeUsers{}, ".mini", testLogger())
	var data string
	h := m.AnalyzeMessageMiddleware(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		data, _ = contextkeys.GetCallbackData(ctx)
	})
	h(context.Background(), nil, callback(1, "model:gpt-4.1"))
	assert.Equal(t, "model:gpt-4.1", data)
}

func TestCheckAccess_PassesSnapshot(t *testing.T) {
	b, rec := newTestBot(t)
	fa := &fakeAccess{byID: map[int64]access.Access{
		42: {UserID: 42, Level: types.LevelStandard, Limit: 40},
	}}
	m := New(fa, &fakeUsers{}, ".mini", testLogger())

	var got access.Access
	h := m.CheckAccessMiddleware(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		got, _ = contextkeys.GetAccess(ctx)
	})
	h(context.Background(), b, privateText(42, "hi"))

	assert.Equal(t, types.LevelStandard, got.Level)
	assert.Empty(t, rec.all())
}

func TestCheckAccess_Blocked(t *testing.T) {
	b, rec := newTestBot(t)
	fa := &fakeAccess{byID: map[int64]access.Access{42: {UserID: 42, Blocked: true}}}
	m := New(fa, &fakeUsers{}, ".mini", testLogger())

	called := false
	h := m.CheckAccessMiddleware(func(context.Context, *bot.Bot, *models.Update) { called = true })

	h(context.Background(), b, privateText(42, "hi"))
	h(context.Background(), b, callback(42, "menu_models"))

	assert.False(t, called)
	calls := rec.all()
	require.Len(t, calls, 2)
	assert.Equal(t, apiCall{method: "sendMessage", text: messages.Blocked()}, calls[0])
	assert.Equal(t, "answerCallbackQuery", calls[1].method)
}

func TestCheckAccess_AdminCallbacks(t *testing.T) {
	b, rec := newTestBot(t)
	fa := &fakeAccess{byID: map[int64]access.Access{
		1: {UserID: 1, Level: types.LevelAdmin, Unlimited: true, Admin: true},
	}}
	m := New(fa, &fakeUsers{}, ".mini", testLogger())

	var passed []int64
	h := contextkeys.WithCallbackData
	chain := m.CheckAccessMiddleware(func(ctx context.Context, _ *bot.Bot, u *models.Update) {
		passed = append(passed, u.CallbackQuery.From.ID)
	})

	for _, data := range []string{"admin_stats", "brd:delete:3", "pag:next:1", "broadcast_send", "confirm_reset_all_subs", "menu_admin"} {
		chain(h(context.Background(), data), b, callback(42, data))
		chain(h(context.Background(), data), b, callback(1, data))
	}
	chain(h(context.Background(), "menu_help"), b, callback(42, "menu_help"))

	assert.Equal(t, []int64{1, 1, 1, 1, 1, 1, 42}, passed)
	assert.Len(t, rec.all(), 6)
}

func TestCheckAccess_StoreFailureFailsClosed(t *testing.T) {
	b, rec := newTestBot(t)
	m := New(&fakeAccess{err: errors.New("db down")}, &fakeUsers{}, ".mini", testLogger())

	called := false
	h := m.CheckAccessMiddleware(func(context.Context, *bot.Bot, *models.Update) { called = true })
	h(context.Background(), b, privateText(42, "hi"))

	assert.False(t, called)
	calls := rec.all()
	require.Len(t, calls, 1)
	assert.Equal(t, messages.ErrorDefault(), calls[0].text)
}

func TestRecover(t *testing.T) {
	b, rec := newTestBot(t)
	m := New(&fakeAccess{admins: map[int64]bool{1: true}}, &fakeUsers{}, ".mini", testLogger())

	h := m.Recover(func(context.Context, *bot.Bot, *models.Update) { panic("boom") })

	assert.NotPanics(t, func() { h(context.Background(), b, privateText(42, "hi")) })
	assert.NotPanics(t, func() { h(context.Background(), b, privateText(1, "hi")) })

	calls := rec.all()
	require.Len(t, calls, 2)
	assert.Equal(t, messages.ErrorDefault(), calls[0].text)
	assert.Equal(t, messages.ErrorForAdmin("boom"), calls[1].text)
}

func TestTrackUser(t *testing.T) {
	users := &fakeUsers{}
	m := New(&fakeAccess{}, users, ".mini", testLogger())

	var fresh []bool
	h := m.TrackUserMiddleware(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		fresh = append(fresh, contextkeys.IsNewUser(ctx))
	})

	first := privateText(42, "hi")
	first.Message.From.Username = "alice"
	h(context.Background(), nil, first)

	renamed := callback(42, "menu_help")
	renamed.CallbackQuery.From.Username = "alice_new"
	h(context.Background(), nil, renamed)

	h(context.Background(), nil, groupText(42, ".mini hi"))

	assert.Equal(t, []bool{true, false, false}, fresh)
	assert.Equal(t, "", users.names[42])
}

func TestTrackUser_StoreFailureLetsUpdateThrough(t *testing.T) {
	m := New(&fakeAccess{}, &fakeUsers{err: errors.New("db down")}, ".mini", testLogger())

	called := false
	h := m.TrackUserMiddleware(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		called = true
		assert.False(t, contextkeys.IsNewUser(ctx))
	})
	h(context.Background(), nil, privateText(42, "hi"))

	assert.True(t, called)
}
