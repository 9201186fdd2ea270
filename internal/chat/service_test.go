package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BatmanBruc/arima-bot/internal/access"
	"github.com/BatmanBruc/arima-bot/internal/llm"
	"github.com/BatmanBruc/arima-bot/internal/modelstatus"
	"github.com/BatmanBruc/arima-bot/internal/plans"
	"github.com/BatmanBruc/arima-bot/store/memstore"
	"github.com/BatmanBruc/arima-bot/types"
)

const adminID int64 = 1

type fakeAPI struct {
	mu         sync.Mutex
	chatCalls  []llm.ChatRequest
	imageCalls int
	err        error
}

func (f *fakeAPI) ChatCompletion(_ context.Context, req llm.ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatCalls = append(f.chatCalls, req)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("answer %d", len(f.chatCalls)), nil
}

func (f *fakeAPI) GenerateImage(context.Context, llm.ImageRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageCalls++
	if f.err != nil {
		return "", f.err
	}
	return "https://img.example/cat.png", nil
}

type fixture struct {
	svc    *Service
	store  *memstore.Store
	api    *fakeAPI
	status *modelstatus.Cache
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := memstore.New()
	catalog := plans.NewCatalog(map[types.Level]int{
		types.LevelFree:     3,
		types.LevelStandard: 40,
		types.LevelPremium:  100,
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := access.NewGate(
		access.NewPolicy(st, catalog, []int64{adminID}),
		access.NewCounter(st, time.UTC, logger),
	)
	api := &fakeAPI{}
	status := modelstatus.NewCache()
	svc := NewService(gate, api, st, catalog, status, Config{
		SystemPrompt:      "You are a helpful AI assistant.",
		Temperature:       0.7,
		HistoryMaxLen:     4,
		ImageModel:        "gpt-image-1",
		ImageSize:         "1024x1024",
		DefaultGroupModel: "gpt-4.1",
	}, logger)
	return fixture{svc: svc, store: st, api: api, status: status}
}

func TestAsk_QuotaEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Put(types.User{UserID: 10})

	var history []types.ChatMessage
	for i := 0; i < 3; i++ {
		reply, err := f.svc.Ask(ctx, 10, "gpt-4.1", history, "question")
		require.NoError(t, err, "request %d", i+1)
		history = reply.History
	}

	_, err := f.svc.Ask(ctx, 10, "gpt-4.1", history, "question")
	assert.ErrorIs(t, err, access.ErrLimitReached)
	assert.Len(t, f.api.chatCalls, 3)
	assert.Equal(t, 3, f.store.RequestCount(10))
}

func TestAsk_HistoryAndSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prompt := "Be brief."
	temp := 1.5
	f.store.Put(types.User{UserID: 20, Level: types.LevelPremium, SystemPrompt: &prompt, Temperature: &temp})

	var history []types.ChatMessage
	var reply Reply
	var err error
	for i := 0; i < 3; i++ {
		reply, err = f.svc.Ask(ctx, 20, "claude-3.7-sonnet", history, fmt.Sprintf("q%d", i))
		require.NoError(t, err)
		history = reply.History
	}

	last := f.api.chatCalls[len(f.api.chatCalls)-1]
	assert.Equal(t, 1.5, last.Temperature)
	assert.Equal(t, types.ChatMessage{Role: types.RoleSystem, Content: "Be brief."}, last.Messages[0])
	assert.Len(t, last.Messages, 5)
	assert.Equal(t, "q2", last.Messages[4].Content)

	require.Len(t, reply.History, 5)
	assert.Equal(t, types.RoleSystem, reply.History[0].Role)
	assert.Equal(t, types.RoleAssistant, reply.History[4].Role)
	assert.Equal(t, "claude-3.7-sonnet", reply.Model)
}

func TestAsk_ModelNotOnPlan(t *testing.T) {
	f := newFixture(t)
	f.store.Put(types.User{UserID: 10})

	_, err := f.svc.Ask(context.Background(), 10, "claude-3.7-sonnet", nil, "hi")
	assert.ErrorIs(t, err, ErrModelNotAllowed)
	assert.Empty(t, f.api.chatCalls)

	_, err = f.svc.Ask(context.Background(), 10, "", nil, "hi")
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestAsk_APIErrorNotRecorded(t *testing.T) {
	f := newFixture(t)
	f.store.Put(types.User{UserID: 10})
	f.api.err = &llm.Error{Kind: llm.KindTimeout}

	_, err := f.svc.Ask(context.Background(), 10, "gpt-4.1", nil, "hi")
	assert.Equal(t, llm.KindTimeout, llm.KindOf(err))
	assert.Equal(t, 0, f.store.RequestCount(10))
}

func TestAsk_AdminBypassesAndIsNotRecorded(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		_, err := f.svc.Ask(context.Background(), adminID, "o1-pro", nil, "hi")
		require.NoError(t, err)
	}
	assert.Equal(t, 0, f.store.RequestCount(adminID))
}

func TestAskOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Put(types.User{UserID: 10})
	f.store.Put(types.User{UserID: 11, Level: types.LevelStandard})
	f.store.Put(types.User{UserID: 12, Level: types.LevelStandard, LastModel: "grok-3-mini"})

	_, err := f.svc.AskOnce(ctx, 10, "hi")
	assert.ErrorIs(t, err, ErrPaidOnly)

	reply, err := f.svc.AskOnce(ctx, 11, "hi")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", reply.Model)
	assert.True(t, reply.DefaultModel)

	reply, err = f.svc.AskOnce(ctx, 12, "hi")
	require.NoError(t, err)
	assert.Equal(t, "grok-3-mini", reply.Model)
	assert.False(t, reply.DefaultModel)
	assert.Len(t, f.api.chatCalls[len(f.api.chatCalls)-1].Messages, 1)
}

func TestDraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Put(types.User{UserID: 10})
	f.store.Put(types.User{UserID: 11, Level: types.LevelPremium})

	_, err := f.svc.Draw(ctx, 10, "cat")
	assert.ErrorIs(t, err, ErrPaidOnly)

	url, err := f.svc.Draw(ctx, 11, "cat")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/cat.png", url)
	assert.Equal(t, 1, f.store.RequestCount(11))

	f.status.Replace([]modelstatus.Result{{Model: "gpt-image-1"}})
	_, err = f.svc.Draw(ctx, 11, "cat")
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, 1, f.api.imageCalls)
}

func TestSelectModel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Put(types.User{UserID: 10})

	assert.ErrorIs(t, f.svc.SelectModel(ctx, 10, types.LevelFree, "o1-pro"), ErrModelNotAllowed)

	f.status.Replace([]modelstatus.Result{{Model: "gpt-4.1"}})
	assert.ErrorIs(t, f.svc.SelectModel(ctx, 10, types.LevelFree, "gpt-4.1"), ErrModelUnavailable)

	require.NoError(t, f.svc.SelectModel(ctx, 10, types.LevelFree, "chatgpt-4o-latest"))
	u, err := f.store.GetUser(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "chatgpt-4o-latest", u.LastModel)
}

func TestSettingsRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Put(types.User{UserID: 10})

	_, err := f.svc.UpdateTemperature(ctx, 10, "1,2")
	require.NoError(t, err)
	_, err = f.svc.UpdateSystemPrompt(ctx, 10, "Talk like a pirate")
	require.NoError(t, err)

	st, err := f.svc.Settings(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, Settings{SystemPrompt: "Talk like a pirate", Temperature: 1.2, Custom: true}, st)

	_, err = f.svc.UpdateTemperature(ctx, 10, "-")
	require.NoError(t, err)
	_, err = f.svc.UpdateSystemPrompt(ctx, 10, "-")
	require.NoError(t, err)

	st, err = f.svc.Settings(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, Settings{SystemPrompt: "You are a helpful AI assistant.", Temperature: 0.7}, st)

	_, err = f.svc.UpdateTemperature(ctx, 10, "2.5")
	assert.ErrorIs(t, err, ErrBadTemperature)
}

func TestAsk_StoreDownFailsClosed(t *testing.T) {
	f := newFixture(t)
	f.store.Err = errors.New("db down")

	_, err := f.svc.Ask(context.Background(), 10, "gpt-4.1", nil, "hi")
	assert.Error(t, err)
	assert.Empty(t, f.api.chatCalls)
}
