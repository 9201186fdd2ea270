package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot"

	"github.com/BatmanBruc/arima-bot/internal/messages"
	"github.com/BatmanBruc/arima-bot/internal/sl"
	"github.com/BatmanBruc/arima-bot/internal/utils"
	"github.com/BatmanBruc/arima-bot/types"
)

func (bh *Handlers) handleSubscriptionMenu(ctx context.Context, b *bot.Bot, ev callbackEvent) {
	a := ev.access
	if a.Admin {
		bh.answerCallback(ctx, b, ev.id, "")
		bh.edit(ctx, b, ev.chatID, ev.messageID, messages.AdminSubscription(), backMainKeyboard())
		return
	}

	used, err := bh.counter.RequestsToday(ctx, a.UserID)
	if err != nil {
		bh.log.Error("failed to count requests", slog.Int64("user_id", a.UserID), sl.Err(err))
		bh.answerCallbackAlert(ctx, b, ev.id, messages.ErrorDefault())
		return
	}
	u, err := bh.users.GetUser(ctx, a.UserID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		bh.log.Error("failed to load user", slog.Int64("user_id", a.UserID), sl.Err(err))
		bh.answerCallbackAlert(ctx, b, ev.id, messages.ErrorDefault())
		return
	}

	plan := bh.catalog.PlanFor(a.Level)
	state := messages.SubscriptionState{
		PlanName:    plan.Name,
		Description: plan.Description,
		Used:        used,
		Limit:       a.Limit,
		Unlimited:   a.Unlimited,
		Level:       a.Level,
		Now:         bh.now(),
	}
	if u != nil {
		state.ExpiresAt = u.SubscriptionEnd
	}

	bh.answerCallback(ctx, b, ev.id, "")
	bh.edit(ctx, b, ev.chatID, ev.messageID, messages.Subscription(state), subscriptionKeyboard(bh.catalog.PaidPlans()))
}

func (bh *Handlers) handleSubscriptionDetails(ctx context.Context, b *bot.Bot, ev callbackEvent) {
	level, err := parseInt(ev.data, prefixSubDetail)
	if err != nil || !bh.catalog.ValidLevel(level) {
		bh.answerCallbackAlert(ctx, b, ev.id, messages.UnknownLevel())
		return
	}
	plan, _ := bh.catalog.Plan(types.Level(level))

	providers := bh.catalog.ProvidersFor(plan.Level)
	view := make([]messages.ProviderModels, 0, len(providers))
	for _, p := range providers {
		view = append(view, messages.ProviderModels{Name: p.Name, Models: p.Models})
	}

	bh.answerCallback(ctx, b, ev.id, "")
	bh.edit(ctx, b, ev.chatID, ev.messageID,
		messages.SubscriptionDetails(plan.Name, plan.Price, plan.Description, view),
		subscriptionDetailsKeyboard(plan))
}

func (bh *Handlers) handleBuy(ctx context.Context, b *bot.Bot, ev callbackEvent) {
	level, err := parseInt(ev.data, prefixBuy)
	if err != nil || !bh.catalog.ValidLevel(level) {
		bh.answerCallbackAlert(ctx, b, ev.id, messages.UnknownLevel())
		return
	}
	plan, _ := bh.catalog.Plan(types.Level(level))
	if plan.Price <= 0 {
		bh.answerCallbackAlert(ctx, b, ev.id, messages.UnknownLevel())
		return
	}

	bh.answerCallback(ctx, b, ev.id, "")
	bh.edit(ctx, b, ev.chatID, ev.messageID,
		messages.Buy(plan.Name, plan.Price, bh.cfg.PaymentUsername, ev.access.UserID),
		utils.Column(utils.Button{Text: "↩️ Назад к планам", CallbackData: "menu_subscription"}))
}
