package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/arima-bot/internal/access"
	"github.com/BatmanBruc/arima-bot/internal/admin"
	"github.com/BatmanBruc/arima-bot/internal/messages"
	"github.com/BatmanBruc/arima-bot/internal/sl"
	"github.com/BatmanBruc/arima-bot/types"
)

func (bh *Handlers) handleAdminMenu(ctx context.Context, b *bot.Bot, ev callbackEvent) {
	if session, err := bh.loadSession(ctx, ev.access.UserID); err == nil && session.State != types.StateIdle {
		session.Reset()
		_ = bh.saveSession(ctx, session)
	}
	bh.answerCallback(ctx, b, ev.id, "")
	bh.edit(ctx, b, ev.chatID, ev.messageID, messages.AdminPanel(), adminMenuKeyboard())
}

// handleAdminInput completes a pending administrator action. The result
// replaces the prompt message and the typed input is removed from the chat.
func (bh *Handlers) handleAdminInput(ctx context.Context, b *bot.Bot, msg *models.Message, a access.Access, session *types.Session) {
	if session.State == types.StateAdminBroadcastText || session.State == types.StateAdminBroadcastConfirm {
		bh.handleBroadcastDraft(ctx, b, msg, a, session)
		return
	}

	state := session.State
	promptID := session.Payload.PromptMessageID
	session.Reset()
	if err := bh.saveSession(ctx, session); err != nil {
		bh.send(ctx, b, msg.Chat.ID, bh.failure(a, err), nil)
		return
	}

	text := bh.adminAction(ctx, a, state, strings.TrimSpace(msg.Text))
	bh.edit(ctx, b, msg.Chat.ID, promptID, text, adminMenuKeyboard())
	bh.deleteMessage(ctx, b, msg.Chat.ID, msg.ID)
}

func (bh *Handlers) adminAction(ctx context.Context, a access.Access, state types.SessionState, input string) string {
	var (
		out admin.Outcome
		err error
	)
	switch state {
	case types.StateAdminGrant:
		out, err = bh.admin.Grant(ctx, input)
		if err == nil {
			return messages.GrantDone(bh.catalog.LevelName(out.Level), out.Target.Input)
		}
	case types.StateAdminRevoke:
		out, err = bh.admin.Revoke(ctx, input)
		if err == nil {
			return messages.RevokeDone(out.Target.Input)
		}
	case types.StateAdminBlock, types.StateAdminUnblock:
		if state == types.StateAdminBlock {
			out, err = bh.admin.Block(ctx, input)
		} else {
			out, err = bh.admin.Unblock(ctx, input)
		}
		if err == nil {
			return messages.BlockDone(out.Target.Input, out.Blocked)
		}
	case types.StateAdminSearch:
		u, serr := bh.admin.Search(ctx, input)
		if serr == nil {
			return messages.UserCard(u, bh.catalog.LevelName(u.Level), 0, 0, bh.now())
		}
		out.Target.Input, err = input, serr
	default:
		return messages.ActionCanceled()
	}

	target := out.Target.Input
	if target == "" {
		target = input
	}
	switch {
	case errors.Is(err, admin.ErrUserNotFound):
		return messages.UserNotFound(target)
	case errors.Is(err, admin.ErrProtectedAdmin):
		if state == types.StateAdminRevoke {
			return messages.AdminCannotBeRevoked()
		}
		return messages.AdminCannotBeBlocked()
	case errors.Is(err, admin.ErrInvalidLevel):
		return messages.InvalidLevel(bh.levels())
	case errors.Is(err, admin.ErrBadInput):
		if state == types.StateAdminGrant {
			return messages.BadGrantFormat()
		}
		return messages.UserNotFound(target)
	}
	bh.log.Error("admin action failed", slog.Int64("admin_id", a.UserID), slog.String("state", string(state)), sl.Err(err))
	return bh.failure(a, err)
}

func (bh *Handlers) levels() []int {
	plans := bh.catalog.Plans()
	out := make([]int, 0, len(plans))
	for _, p := range plans {
		out = append(out, int(p.Level))
	}
	return out
}

func (bh *Handlers) handleUserPage(ctx context.Context, b *bot.Bot, ev callbackEvent, page int) {
	u, total, err := bh.admin.UserPage(ctx, page)
	switch {
	case errors.Is(err, admin.ErrUserNotFound):
		bh.answerCallbackAlert(ctx, b, ev.id, messages.NoMoreUsers())
		return
	case err != nil:
		bh.log.Error("failed to load user page", slog.Int("page", page), sl.Err(err))
		bh.answerCallbackAlert(ctx, b, ev.id, messages.ErrorDefault())
		return
	}

	bh.answerCallback(ctx, b, ev.id, "")
	if total == 0 {
		bh.edit(ctx, b, ev.chatID, ev.messageID, messages.NoUsers(), adminBackKeyboard())
		return
	}
	bh.edit(ctx, b, ev.chatID, ev.messageID,
		messages.UserCard(u, bh.catalog.LevelName(u.Level), page, total, bh.now()),
		paginationKeyboard(page, total))
}

func (bh *Handlers) handleStats(ctx context.Context, b *bot.Bot, ev callbackEvent) {
	st, err := bh.admin.Stats(ctx)
	if err != nil {
		bh.log.Error("failed to collect stats", sl.Err(err))
		bh.answerCallbackAlert(ctx, b, ev.id, messages.ErrorDefault())
		return
	}
	bh.answerCallback(ctx, b, ev.id, "")
	bh.edit(ctx, b, ev.chatID, ev.messageID, messages.Stats(messages.StatsView{
		Total:         st.Total,
		Free:          st.ByLevel[types.LevelFree],
		Standard:      st.ByLevel[types.LevelStandard],
		Premium:       st.ByLevel[types.LevelPremium],
		Registrations: st.Registrations,
	}), adminBackKeyboard())
}

// handleModelTest checks every model and refreshes the status cache.
func (bh *Handlers) handleModelTest(ctx context.Context, b *bot.Bot, ev callbackEvent) {
	bh.answerCallback(ctx, b, ev.id, "")
	bh.edit(ctx, b, ev.chatID, ev.messageID, messages.ModelTestStarted(), nil)

	results := bh.sweeper.Run(ctx)
	view := make([]messages.ModelStatus, 0, len(results))
	for _, r := range results {
		view = append(view, messages.ModelStatus{Model: r.Model, OK: r.OK, Status: r.Status})
	}
	bh.send(ctx, b, ev.chatID, messages.ModelTestResults(view), adminBackKeyboard())
}

func (bh *Handlers) handleSelfTest(ctx context.Context, b *bot.Bot, ev callbackEvent) {
	bh.answerCallback(ctx, b, ev.id, "")
	bh.edit(ctx, b, ev.chatID, ev.messageID, messages.SelfTestRunning(), nil)

	checks, err := bh.admin.SelfTest(ctx, ev.access.UserID)
	if err != nil {
		bh.log.Error("self-test failed", slog.Int64("admin_id", ev.access.UserID), sl.Err(err))
	}
	view := make([]messages.SelfTestCheck, 0, len(checks))
	for _, c := range checks {
		view = append(view, messages.SelfTestCheck{Name: c.Name, OK: c.OK, Detail: c.Detail})
	}
	bh.send(ctx, b, ev.chatID, messages.SelfTestReport(view, err), adminBackKeyboard())
}

func (bh *Handlers) handleResetAll(ctx context.Context, b *bot.Bot, ev callbackEvent) {
	bh.answerCallback(ctx, b, ev.id, "")
	bh.edit(ctx, b, ev.chatID, ev.messageID, messages.ResetAllRunning(), nil)

	n, err := bh.admin.ResetAll(ctx)
	if err != nil {
		bh.log.Error("failed to reset subscriptions", sl.Err(err))
		bh.edit(ctx, b, ev.chatID, ev.messageID, bh.failure(ev.access, err), adminBackKeyboard())
		return
	}
	bh.edit(ctx, b, ev.chatID, ev.messageID, messages.ResetAllDone(n), adminBackKeyboard())
}
