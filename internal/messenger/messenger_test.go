package messenger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMessenger(t *testing.T, handler http.HandlerFunc) *Messenger {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	b, err := bot.New("123:test", bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	require.NoError(t, err)
	return New(b)
}

func TestSendHTML(t *testing.T) {
	m := newTestMessenger(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/sendMessage"))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42,"date":0,"chat":{"id":7,"type":"private"}}}`))
	})

	id, err := m.SendHTML(context.Background(), 7, "<b>hi</b>")
	require.NoError(t, err)
	assert.Equal(t, 42, id)
}

func TestSendHTML_Forbidden(t *testing.T) {
	m := newTestMessenger(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	})

	_, err := m.SendHTML(context.Background(), 7, "hi")
	require.Error(t, err)
	assert.True(t, Unreachable(err))
}

func TestPinUnpinDelete(t *testing.T) {
	var calls []string
	m := newTestMessenger(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:])
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	})

	ctx := context.Background()
	require.NoError(t, m.Pin(ctx, 7, 42))
	require.NoError(t, m.Unpin(ctx, 7, 42))
	require.NoError(t, m.Delete(ctx, 7, 42))
	assert.Equal(t, []string{"pinChatMessage", "unpinChatMessage", "deleteMessage"}, calls)
}

func TestUnreachable(t *testing.T) {
	assert.False(t, Unreachable(errors.New("network down")))
	assert.False(t, Unreachable(nil))
	assert.True(t, Unreachable(bot.ErrorBadRequest))
}
