package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/arima-bot/internal/access"
	"github.com/BatmanBruc/arima-bot/internal/contextkeys"
	"github.com/BatmanBruc/arima-bot/internal/messages"
	"github.com/BatmanBruc/arima-bot/types"
)

// callbackEvent is a pressed button together with where it was pressed.
type callbackEvent struct {
	update    *models.Update
	id        string
	data      string
	chatID    int64
	messageID int
	access    access.Access
}

func (bh *Handlers) HandleClickButton(ctx context.Context, b *bot.Bot, update *models.Update, a access.Access) {
	data, _ := contextkeys.GetCallbackData(ctx)
	ev := callbackEvent{
		update:    update,
		id:        update.CallbackQuery.ID,
		data:      data,
		chatID:    bh.getChatIDFromUpdate(update),
		messageID: callbackMessageID(update),
		access:    a,
	}

	switch {
	case data == "noop":
		bh.answerCallback(ctx, b, ev.id, "")
	case data == "back_main":
		bh.answerCallback(ctx, b, ev.id, "")
		bh.start(ctx, b, ev.chatID, ev.messageID, a)
	case data == "cancel_action":
		bh.handleCancel(ctx, b, ev)
	case data == "menu_help":
		bh.answerCallback(ctx, b, ev.id, "")
		bh.edit(ctx, b, ev.chatID, ev.messageID, bh.helpText(), backMainKeyboard())

	case data == "menu_models":
		bh.handleModelsMenu(ctx, b, ev)
	case strings.HasPrefix(data, prefixCategory):
		bh.handleCategory(ctx, b, ev)
	case strings.HasPrefix(data, prefixModel):
		bh.handleSelectModel(ctx, b, ev)
	case data == "chat_new":
		bh.handleChatNew(ctx, b, ev)

	case data == "menu_image_gen":
		bh.handleImageMenu(ctx, b, ev)

	case data == "menu_settings":
		bh.handleSettingsMenu(ctx, b, ev)
	case data == "settings_prompt":
		bh.startInput(ctx, b, ev, types.StateAwaitSystemPrompt, messages.SettingsPromptAsk())
	case data == "settings_temp":
		bh.startInput(ctx, b, ev, types.StateAwaitTemperature, messages.SettingsTemperatureAsk())

	case data == "menu_subscription":
		bh.handleSubscriptionMenu(ctx, b, ev)
	case strings.HasPrefix(data, prefixSubDetail):
		bh.handleSubscriptionDetails(ctx, b, ev)
	case strings.HasPrefix(data, prefixBuy):
		bh.handleBuy(ctx, b, ev)

	case data == "menu_admin" || data == "admin_back":
		bh.handleAdminMenu(ctx, b, ev)
	case data == "admin_users":
		bh.answerCallback(ctx, b, ev.id, "")
		bh.edit(ctx, b, ev.chatID, ev.messageID, messages.AdminUsers(), adminUsersKeyboard())
	case data == "admin_list_users":
		bh.handleUserPage(ctx, b, ev, 1)
	case strings.HasPrefix(data, prefixPage):
		page, err := parsePage(data)
		if err != nil {
			bh.answerCallback(ctx, b, ev.id, "")
			return
		}
		bh.handleUserPage(ctx, b, ev, page)
	case data == "admin_search":
		bh.startInput(ctx, b, ev, types.StateAdminSearch, messages.AskSearch())
	case data == "admin_grant":
		bh.startInput(ctx, b, ev, types.StateAdminGrant, messages.AskGrant())
	case data == "admin_revoke":
		bh.startInput(ctx, b, ev, types.StateAdminRevoke, messages.AskRevoke())
	case data == "admin_block":
		bh.startInput(ctx, b, ev, types.StateAdminBlock, messages.AskBlock())
	case data == "admin_unblock":
		bh.startInput(ctx, b, ev, types.StateAdminUnblock, messages.AskUnblock())
	case data == "admin_stats":
		bh.handleStats(ctx, b, ev)
	case data == "admin_test":
		bh.handleModelTest(ctx, b, ev)
	case data == "admin_self_test":
		bh.handleSelfTest(ctx, b, ev)
	case data == "admin_reset_all_subs":
		bh.answerCallback(ctx, b, ev.id, "")
		bh.edit(ctx, b, ev.chatID, ev.messageID, messages.ResetAllWarning(), resetAllKeyboard())
	case data == "confirm_reset_all_subs":
		bh.handleResetAll(ctx, b, ev)

	case data == "admin_broadcast":
		bh.startInput(ctx, b, ev, types.StateAdminBroadcastText, messages.AskBroadcast())
	case data == "broadcast_send" || data == "broadcast_pin":
		bh.handleBroadcastConfirm(ctx, b, ev, data == "broadcast_pin")
	case strings.HasPrefix(data, prefixBroadcast):
		bh.handleBroadcastManage(ctx, b, ev)

	default:
		bh.log.Debug("unknown callback", slog.Int64("user_id", a.UserID), slog.String("data", data))
		bh.answerCallback(ctx, b, ev.id, "")
	}
}

// startInput moves the session into a state that waits for a text reply and
// remembers the prompt message so the result can replace it.
func (bh *Handlers) startInput(ctx context.Context, b *bot.Bot, ev callbackEvent, state types.SessionState, prompt string) {
	session, err := bh.loadSession(ctx, ev.access.UserID)
	if err != nil {
		bh.answerCallbackAlert(ctx, b, ev.id, messages.ErrorDefault())
		return
	}
	session.EndInput()
	session.State = state
	session.Payload.PromptMessageID = ev.messageID
	if err := bh.saveSession(ctx, session); err != nil {
		bh.answerCallbackAlert(ctx, b, ev.id, messages.ErrorDefault())
		return
	}
	bh.answerCallback(ctx, b, ev.id, "")
	bh.edit(ctx, b, ev.chatID, ev.messageID, prompt, cancelKeyboard())
}

func (bh *Handlers) handleCancel(ctx context.Context, b *bot.Bot, ev callbackEvent) {
	bh.answerCallback(ctx, b, ev.id, "")
	session, err := bh.loadSession(ctx, ev.access.UserID)
	if err != nil {
		bh.send(ctx, b, ev.chatID, bh.failure(ev.access, err), nil)
		return
	}
	wasAdmin := session.State.IsAdmin()
	session.Reset()
	if err := bh.saveSession(ctx, session); err != nil {
		bh.send(ctx, b, ev.chatID, bh.failure(ev.access, err), nil)
		return
	}

	bh.edit(ctx, b, ev.chatID, ev.messageID, messages.ActionCanceled(), nil)
	if wasAdmin && ev.access.Admin {
		bh.send(ctx, b, ev.chatID, messages.AdminPanel(), adminMenuKeyboard())
		return
	}
	bh.send(ctx, b, ev.chatID, messages.Welcome(bh.now()), bh.buildMenuKeyboard(ev.access))
}
