package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BatmanBruc/arima-bot/internal/access"
	"github.com/BatmanBruc/arima-bot/internal/admin"
	"github.com/BatmanBruc/arima-bot/internal/broadcast"
	"github.com/BatmanBruc/arima-bot/internal/chat"
	"github.com/BatmanBruc/arima-bot/internal/llm"
	"github.com/BatmanBruc/arima-bot/internal/messages"
	"github.com/BatmanBruc/arima-bot/internal/messenger"
	"github.com/BatmanBruc/arima-bot/internal/middleware"
	"github.com/BatmanBruc/arima-bot/internal/modelstatus"
	"github.com/BatmanBruc/arima-bot/internal/plans"
	"github.com/BatmanBruc/arima-bot/store/memstore"
	"github.com/BatmanBruc/arima-bot/types"
)

const (
	adminID int64 = 1
	userID  int64 = 42
)

type fakeAPI struct {
	mu    sync.Mutex
	calls []llm.ChatRequest
}

func (f *fakeAPI) ChatCompletion(_ context.Context, req llm.ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return fmt.Sprintf("answer %d", len(f.calls)), nil
}

func (f *fakeAPI) GenerateImage(context.Context, llm.ImageRequest) (string, error) {
	return "https://img.example/cat.png", nil
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSweeper struct {
	runs int
}

func (f *fakeSweeper) Run(context.Context) []modelstatus.Result {
	f.runs++
	return []modelstatus.Result{{Model: "gpt-4.1", OK: true, Status: "ok"}}
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []broadcast.Job
}

func (q *recordingQueue) Enqueue(_ context.Context, job broadcast.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

type apiCall struct {
	method    string
	chatID    string
	messageID string
	text      string
	showAlert string
	markup    string
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

func (r *recorder) reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func (r *recorder) find(method, text string) (apiCall, bool) {
	for _, c := range r.all() {
		if c.method == method && c.text == text {
			return c, true
		}
	}
	return apiCall{}, false
}

func (r *recorder) texts(method string) []string {
	var out []string
	for _, c := range r.all() {
		if c.method == method {
			out = append(out, c.text)
		}
	}
	return out
}

func newTestBot(t *testing.T) (*bot.Bot, *recorder) {
	t.Helper()
	rec := &recorder{}
	var nextID atomic.Int64
	nextID.Store(100)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		text := r.FormValue("text")
		if text == "" {
			text = r.FormValue("caption")
		}
		rec.mu.Lock()
		rec.calls = append(rec.calls, apiCall{
			method:    method,
			chatID:    r.FormValue("chat_id"),
			messageID: r.FormValue("message_id"),
			text:      text,
			showAlert: r.FormValue("show_alert"),
			markup:    r.FormValue("reply_markup"),
		})
		rec.mu.Unlock()

		switch method {
		case "sendMessage", "editMessageText", "sendPhoto":
			id := nextID.Add(1)
			_, _ = fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d,"date":0,"chat":{"id":7,"type":"private"}}}`, id)
		case "getMe":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":99,"is_bot":true,"first_name":"Arima","username":"arima_bot"}}`))
		default:
			_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
		}
	}))
	t.Cleanup(srv.Close)

	b, err := bot.New("123:test", bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	require.NoError(t, err)
	return b, rec
}

type fixture struct {
	b       *bot.Bot
	rec     *recorder
	h       *Handlers
	handle  bot.HandlerFunc
	store   *memstore.Store
	catalog *plans.Catalog
	api     *fakeAPI
	queue   *recordingQueue
	sweeper *fakeSweeper
	admin   *admin.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b, rec := newTestBot(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st := memstore.New()
	catalog := plans.NewCatalog(map[types.Level]int{
		types.LevelFree:     3,
		types.LevelStandard: 40,
		types.LevelPremium:  100,
	})
	policy := access.NewPolicy(st, catalog, []int64{adminID})
	counter := access.NewCounter(st, time.UTC, logger)
	api := &fakeAPI{}
	status := modelstatus.NewCache()
	chatSvc := chat.NewService(access.NewGate(policy, counter), api, st, catalog, status, chat.Config{
		SystemPrompt:      "You are a helpful AI assistant.",
		Temperature:       0.7,
		HistoryMaxLen:     10,
		ImageModel:        "gpt-image-1",
		ImageSize:         "1024x1024",
		DefaultGroupModel: "gpt-4.1",
	}, logger)

	m := messenger.New(b)
	adminSvc := admin.NewService(st, policy, catalog, m, admin.Config{Validity: 30 * 24 * time.Hour}, logger)
	queue := &recordingQueue{}
	manager := broadcast.NewManager(st, m, NewBroadcastReporter(m, logger), 0, logger)
	manager.SetQueue(queue)
	sweeper := &fakeSweeper{}

	h := NewHandlers(Deps{
		Sessions:   st,
		Users:      st,
		Catalog:    catalog,
		Chat:       chatSvc,
		Admin:      adminSvc,
		Broadcasts: manager,
		Sweeper:    sweeper,
		Status:     status,
		Counter:    counter,
		Admins:     policy,
		Config:     Config{SupportUsername: "arima_support", PaymentUsername: "arima_pay", GroupTrigger: ".mini"},
		Log:        logger,
	})
	fixed := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	return &fixture{
		b:       b,
		rec:     rec,
		h:       h,
		handle:  middleware.New(policy, st, ".mini", logger).Chain(h.MainHandler),
		store:   st,
		catalog: catalog,
		api:     api,
		queue:   queue,
		sweeper: sweeper,
		admin:   adminSvc,
	}
}

func handleOf(uid int64) string {
	if uid == adminID {
		return "boss"
	}
	return "alice"
}

func (f *fixture) text(uid int64, msgID int, text string) {
	f.textAs(uid, handleOf(uid), msgID, text)
}

func (f *fixture) textAs(uid int64, username string, msgID int, text string, entities ...models.MessageEntity) {
	f.handle(context.Background(), f.b, &models.Update{Message: &models.Message{
		ID:       msgID,
		From:     &models.User{ID: uid, FirstName: "Alice", Username: username},
		Chat:     models.Chat{ID: uid, Type: models.ChatTypePrivate},
		Text:     text,
		Entities: entities,
	}})
}

func (f *fixture) group(uid int64, text string) {
	f.handle(context.Background(), f.b, &models.Update{Message: &models.Message{
		ID:   11,
		From: &models.User{ID: uid, Username: handleOf(uid)},
		Chat: models.Chat{ID: -100, Type: models.ChatTypeSupergroup},
		Text: text,
	}})
}

func (f *fixture) click(uid int64, msgID int, data string) {
	f.handle(context.Background(), f.b, &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:   "cb",
		From: models.User{ID: uid, Username: handleOf(uid)},
		Data: data,
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{ID: msgID, Chat: models.Chat{ID: uid, Type: models.ChatTypePrivate}},
		},
	}})
}

func (f *fixture) session(t *testing.T, uid int64) *types.Session {
	t.Helper()
	s, err := f.store.GetSession(context.Background(), uid)
	require.NoError(t, err)
	return s
}

func TestStart_RegistersUserAndNotifiesAdmins(t *testing.T) {
	f := newFixture(t)

	f.text(userID, 10, "/start")

	u, err := f.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.DisplayName)

	_, ok := f.rec.find("sendMessage", messages.Welcome(f.h.now()))
	assert.True(t, ok, "welcome menu")

	notice := messages.NewUserNotice(userID, "Alice", "alice")
	assert.Eventually(t, func() bool {
		c, ok := f.rec.find("sendMessage", notice)
		return ok && c.chatID == strconv.FormatInt(adminID, 10)
	}, time.Second, 10*time.Millisecond)
}

func TestStart_KnownUserIsNotAnnounced(t *testing.T) {
	f := newFixture(t)
	f.store.Put(types.User{UserID: userID, DisplayName: "alice"})

	f.text(userID, 10, "/start")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{messages.Welcome(f.h.now())}, f.rec.texts("sendMessage"))
}

func TestTrackUser_NewHandleResolves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.text(userID, 10, "/start")
	f.textAs(userID, "alice_new", 11, "hello")

	target, err := f.admin.ResolveTarget(ctx, "@alice_new")
	require.NoError(t, err)
	assert.Equal(t, userID, target.UserID)
	_, err = f.admin.ResolveTarget(ctx, "@alice")
	assert.Error(t, err)

	f.textAs(userID, "", 12, "hello")
	u, err := f.store.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, u.DisplayName)
}

func TestTrackUser_GroupOnlyUserIsRegistered(t *testing.T) {
	f := newFixture(t)

	f.group(userID, ".mini hi")

	u, err := f.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.DisplayName)
	assert.Equal(t, types.LevelFree, u.Level)
}

func TestChat_SelectModelThenAsk(t *testing.T) {
	f := newFixture(t)
	f.store.Put(types.User{UserID: userID})

	f.click(userID, 5, "model:gpt-4.1")
	s := f.session(t, userID)
	assert.Equal(t, types.StateChatting, s.State)
	assert.Equal(t, "gpt-4.1", s.Payload.Model)
	_, ok := f.rec.find("sendMessage", messages.ModelSelected("gpt-4.1"))
	assert.True(t, ok)

	f.rec.reset()
	f.text(userID, 12, "hello")

	require.Equal(t, 1, f.api.count())
	sent := f.rec.texts("sendMessage")
	require.Len(t, sent, 2)
	assert.Equal(t, messages.Thinking(), sent[0])
	assert.Contains(t, sent[1], "answer 1")
	assert.NotEmpty(t, f.rec.texts("deleteMessage"))

	s = f.session(t, userID)
	require.NotEmpty(t, s.Payload.History)
	last := s.Payload.History[len(s.Payload.History)-1]
	assert.Equal(t, types.ChatMessage{Role: types.RoleAssistant, Content: "answer 1"}, last)
	assert.Equal(t, 1, f.store.RequestCount(userID))
}

func TestChat_ModelOutsidePlan(t *testing.T) {
	f := newFixture(t)
	f.store.Put(types.User{UserID: userID})

	f.click(userID, 5, "model:o1-pro")

	c, ok := f.rec.find("answerCallbackQuery", messages.ModelNotInPlan())
	require.True(t, ok)
	assert.Equal(t, "true", c.showAlert)
	assert.Equal(t, types.StateIdle, f.session(t, userID).State)
}

func TestChat_LimitReached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Put(types.User{UserID: userID})
	for i := 0; i < 3; i++ {
		require.NoError(t, f.store.AddRequest(ctx, userID, "gpt-4.1", time.Now()))
	}
	require.NoError(t, f.store.SaveSession(ctx, &types.Session{
		UserID:  userID,
		State:   types.StateChatting,
		Payload: types.SessionPayload{Model: "gpt-4.1"},
	}))

	f.text(userID, 12, "hello")

	assert.Zero(t, f.api.count())
	_, ok := f.rec.find("sendMessage", messages.LimitReached())
	assert.True(t, ok)
	assert.Equal(t, 3, f.store.RequestCount(userID))
}

func TestAdminCommand_NonAdmin(t *testing.T) {
	f := newFixture(t)
	f.store.Put(types.User{UserID: userID})

	f.text(userID, 10, "/admin")

	assert.Equal(t, []string{messages.NoPermission()}, f.rec.texts("sendMessage"))
}

func TestAdminGrant_Flow(t *testing.T) {
	f := newFixture(t)
	f.store.Put(types.User{UserID: userID, DisplayName: "alice"})

	f.click(adminID, 5, "admin_grant")
	s := f.session(t, adminID)
	assert.Equal(t, types.StateAdminGrant, s.State)
	assert.Equal(t, 5, s.Payload.PromptMessageID)

	f.rec.reset()
	f.text(adminID, 20, "@alice 1")

	u, err := f.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, types.LevelStandard, u.Level)
	require.NotNil(t, u.SubscriptionEnd)

	name := f.catalog.LevelName(types.LevelStandard)
	edited, ok := f.rec.find("editMessageText", messages.GrantDone(name, "@alice"))
	require.True(t, ok)
	assert.Equal(t, "5", edited.messageID)

	notice, ok := f.rec.find("sendMessage", messages.GrantNotice(name))
	require.True(t, ok)
	assert.Equal(t, "42", notice.chatID)

	var deleted []string
	for _, c := range f.rec.all() {
		if c.method == "deleteMessage" {
			deleted = append(deleted, c.messageID)
		}
	}
	assert.Equal(t, []string{"20"}, deleted)
	assert.Equal(t, types.StateIdle, f.session(t, adminID).State)
}

func TestAdminGrant_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"invalid level", "42 7", messages.InvalidLevel([]int{0, 1, 2})},
		{"unknown user", "@nobody 1", messages.UserNotFound("@nobody")},
		{"bad format", "42", messages.BadGrantFormat()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.store.Put(types.User{UserID: userID, DisplayName: "alice"})

			f.click(adminID, 5, "admin_grant")
			f.text(adminID, 20, tt.input)

			_, ok := f.rec.find("editMessageText", tt.want)
			assert.True(t, ok, "want %q", tt.want)
			u, err := f.store.GetUser(context.Background(), userID)
			require.NoError(t, err)
			assert.Equal(t, types.LevelFree, u.Level)
		})
	}
}

func TestAdminBlock_ProtectsAdministrators(t *testing.T) {
	f := newFixture(t)
	f.store.Put(types.User{UserID: adminID, DisplayName: "boss"})

	f.click(adminID, 5, "admin_block")
	f.text(adminID, 20, "@boss")

	_, ok := f.rec.find("editMessageText", messages.AdminCannotBeBlocked())
	assert.True(t, ok)
	u, err := f.store.GetUser(context.Background(), adminID)
	require.NoError(t, err)
	assert.False(t, u.IsBlocked)
}

func TestAdminState_DroppedForNonAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Put(types.User{UserID: userID})
	require.NoError(t, f.store.SaveSession(ctx, &types.Session{UserID: userID, State: types.StateAdminGrant}))

	f.text(userID, 12, "42 2")

	assert.Equal(t, []string{messages.NoPermission()}, f.rec.texts("sendMessage"))
	assert.Equal(t, types.StateIdle, f.session(t, userID).State)
	u, err := f.store.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, types.LevelFree, u.Level)
}

func TestCancel_ReturnsAdminToPanel(t *testing.T) {
	f := newFixture(t)

	f.click(adminID, 5, "admin_block")
	f.rec.reset()
	f.click(adminID, 5, "cancel_action")

	assert.Equal(t, types.StateIdle, f.session(t, adminID).State)
	_, ok := f.rec.find("editMessageText", messages.ActionCanceled())
	assert.True(t, ok)
	_, ok = f.rec.find("sendMessage", messages.AdminPanel())
	assert.True(t, ok)
}

func TestBroadcast_DraftAndConfirm(t *testing.T) {
	f := newFixture(t)
	bold := func(n int) models.MessageEntity {
		return models.MessageEntity{Type: models.MessageEntityTypeBold, Offset: 0, Length: n}
	}

	f.click(adminID, 5, "admin_broadcast")
	f.textAs(adminID, "boss", 20, "news", bold(4))

	s := f.session(t, adminID)
	assert.Equal(t, types.StateAdminBroadcastConfirm, s.State)
	_, ok := f.rec.find("sendMessage", messages.BroadcastPreview("<b>news</b>"))
	assert.True(t, ok)

	f.textAs(adminID, "boss", 21, "Sale 2 < 3 today", bold(4))
	assert.Equal(t, "<b>Sale</b> 2 &lt; 3 today", f.session(t, adminID).Payload.BroadcastText)

	f.click(adminID, 30, "broadcast_pin")

	require.Len(t, f.queue.jobs, 1)
	job := f.queue.jobs[0]
	assert.Equal(t, "<b>Sale</b> 2 &lt; 3 today", job.Text)
	assert.True(t, job.Pin)
	assert.Equal(t, adminID, job.InitiatorID)
	assert.NotZero(t, job.BroadcastID)

	started, ok := f.rec.find("editMessageText", messages.BroadcastStarted())
	require.True(t, ok)
	assert.Equal(t, "30", started.messageID)
	assert.Equal(t, types.StateIdle, f.session(t, adminID).State)
}

func TestBroadcast_TypedMarkupIsEscaped(t *testing.T) {
	f := newFixture(t)

	f.click(adminID, 5, "admin_broadcast")
	f.text(adminID, 20, "<b>news</b> & more")

	assert.Equal(t, "&lt;b&gt;news&lt;/b&gt; &amp; more", f.session(t, adminID).Payload.BroadcastText)
}

func TestBroadcast_ConfirmWithoutDraft(t *testing.T) {
	f := newFixture(t)

	f.click(adminID, 30, "broadcast_send")

	assert.Empty(t, f.queue.jobs)
	c, ok := f.rec.find("answerCallbackQuery", messages.BroadcastTextMissing())
	require.True(t, ok)
	assert.Equal(t, "true", c.showAlert)
}

func TestBroadcast_ManageUnknown(t *testing.T) {
	f := newFixture(t)

	f.click(adminID, 30, "brd:delete:77")

	_, ok := f.rec.find("sendMessage", messages.BroadcastNotFound())
	assert.True(t, ok)
}

func TestSettings_Temperature(t *testing.T) {
	f := newFixture(t)
	f.store.Put(types.User{UserID: userID})

	f.click(userID, 5, "settings_temp")
	f.text(userID, 12, "hot")

	_, ok := f.rec.find("sendMessage", messages.TemperatureInvalid())
	assert.True(t, ok)
	assert.Equal(t, types.StateAwaitTemperature, f.session(t, userID).State)

	f.text(userID, 13, "1.2")

	_, ok = f.rec.find("sendMessage", messages.TemperatureSet(1.2))
	assert.True(t, ok)
	assert.Equal(t, types.StateIdle, f.session(t, userID).State)
	u, err := f.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, u.Temperature)
	assert.InDelta(t, 1.2, *u.Temperature, 1e-9)
}

func TestSettings_KeepsDialog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Put(types.User{UserID: userID})
	history := []types.ChatMessage{{Role: types.RoleUser, Content: "hi"}, {Role: types.RoleAssistant, Content: "hello"}}
	require.NoError(t, f.store.SaveSession(ctx, &types.Session{
		UserID:  userID,
		State:   types.StateChatting,
		Payload: types.SessionPayload{Model: "gpt-4.1", History: history},
	}))

	f.click(userID, 5, "settings_temp")
	s := f.session(t, userID)
	assert.Equal(t, types.StateAwaitTemperature, s.State)
	assert.Equal(t, "gpt-4.1", s.Payload.Model)

	f.text(userID, 12, "0.3")

	s = f.session(t, userID)
	assert.Equal(t, types.StateChatting, s.State)
	assert.Equal(t, "gpt-4.1", s.Payload.Model)
	assert.Equal(t, history, s.Payload.History)
	assert.Zero(t, s.Payload.PromptMessageID)

	f.text(userID, 13, "next question")
	assert.Equal(t, 1, f.api.count())
}

func TestGroup_FreeUserIsTurnedAway(t *testing.T) {
	f := newFixture(t)
	f.store.Put(types.User{UserID: userID})

	f.group(userID, ".mini what is go")

	assert.Zero(t, f.api.count())
	assert.Equal(t, []string{messages.GroupPaidOnly()}, f.rec.texts("sendMessage"))
}

func TestGroup_PaidUserGetsAnswer(t *testing.T) {
	f := newFixture(t)
	f.store.Put(types.User{UserID: userID, Level: types.LevelStandard})

	f.group(userID, ".mini what is go")

	require.Equal(t, 1, f.api.count())
	sent := f.rec.texts("sendMessage")
	require.Len(t, sent, 2)
	assert.Equal(t, messages.Thinking(), sent[0])
	assert.Contains(t, sent[1], "answer 1")
	assert.Equal(t, "what is go", f.api.calls[0].Messages[len(f.api.calls[0].Messages)-1].Content)
}

func TestGroup_EmptyPrompt(t *testing.T) {
	f := newFixture(t)
	f.store.Put(types.User{UserID: userID, Level: types.LevelPremium})

	f.group(userID, ".mini   ")

	assert.Zero(t, f.api.count())
	assert.Equal(t, []string{messages.GroupEmptyPrompt(".mini")}, f.rec.texts("sendMessage"))
}

func TestModelTest_RunsSweep(t *testing.T) {
	f := newFixture(t)

	f.click(adminID, 5, "admin_test")

	assert.Equal(t, 1, f.sweeper.runs)
	want := messages.ModelTestResults([]messages.ModelStatus{{Model: "gpt-4.1", OK: true, Status: "ok"}})
	_, ok := f.rec.find("sendMessage", want)
	assert.True(t, ok)
}

type fakeMarkupSender struct {
	chatID int64
	text   string
	markup models.ReplyMarkup
}

func (f *fakeMarkupSender) Send(_ context.Context, chatID int64, text string, markup models.ReplyMarkup) (int, error) {
	f.chatID, f.text, f.markup = chatID, text, markup
	return 1, nil
}

func TestBroadcastReporter_Completed(t *testing.T) {
	sender := &fakeMarkupSender{}
	r := NewBroadcastReporter(sender, slog.New(slog.NewTextHandler(io.Discard, nil)))

	job := broadcast.Job{BroadcastID: 7, Text: "hello", InitiatorID: adminID}
	r.Completed(context.Background(), job, broadcast.Result{Delivered: 5, Failed: 1})

	assert.Equal(t, adminID, sender.chatID)
	assert.Equal(t, messages.BroadcastSummary("hello", 5, 1), sender.text)

	kb, ok := sender.markup.(models.InlineKeyboardMarkup)
	require.True(t, ok)
	var data []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			data = append(data, btn.CallbackData)
		}
	}
	assert.Equal(t, []string{"brd:unpin:7", "brd:delete:7"}, data)
}

func TestBroadcastReporter_Aborted(t *testing.T) {
	sender := &fakeMarkupSender{}
	r := NewBroadcastReporter(sender, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := fmt.Errorf("store down")
	r.Aborted(context.Background(), broadcast.Job{BroadcastID: 7, InitiatorID: adminID}, err)

	assert.Equal(t, messages.BroadcastAborted(err), sender.text)
	assert.Nil(t, sender.markup)
}
