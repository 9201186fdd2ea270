package handlers

import (
	"fmt"

	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/arima-bot/internal/access"
	"github.com/BatmanBruc/arima-bot/internal/broadcast"
	"github.com/BatmanBruc/arima-bot/internal/messages"
	"github.com/BatmanBruc/arima-bot/internal/plans"
	"github.com/BatmanBruc/arima-bot/internal/utils"
)

var (
	backMain  = utils.Button{Text: "↩️ Назад", CallbackData: "back_main"}
	adminBack = utils.Button{Text: "↩️ Назад", CallbackData: "admin_back"}
	cancel    = utils.Button{Text: "❌ Отмена", CallbackData: "cancel_action"}
)

func (bh *Handlers) buildMenuKeyboard(a access.Access) models.InlineKeyboardMarkup {
	image := "🖼️ Генерация изображений"
	if !bh.status.Available(bh.chat.ImageModel()) {
		image = "⚠️ Генерация изображений"
	}
	buttons := []utils.Button{
		{Text: "💬 Выбрать модель", CallbackData: "menu_models"},
		{Text: image, CallbackData: "menu_image_gen"},
		{Text: "⭐ Подписка", CallbackData: "menu_subscription"},
		{Text: "⚙️ Настройки", CallbackData: "menu_settings"},
		{Text: "👨‍💻 Поддержка", URL: "https://t.me/" + bh.cfg.SupportUsername},
	}
	if a.Admin {
		buttons = append(buttons, utils.Button{Text: "👑 Админ-панель", CallbackData: "menu_admin"})
	}
	buttons = append(buttons, utils.Button{Text: "❓ Помощь", CallbackData: "menu_help"})
	return utils.Column(buttons...)
}

func adminMenuKeyboard() models.InlineKeyboardMarkup {
	return utils.Column(
		utils.Button{Text: "📊 Статистика", CallbackData: "admin_stats"},
		utils.Button{Text: "👥 Пользователи", CallbackData: "admin_users"},
		utils.Button{Text: "📢 Рассылка", CallbackData: "admin_broadcast"},
		utils.Button{Text: "🧪 Тест моделей", CallbackData: "admin_test"},
		utils.Button{Text: "🤖 Автотесты", CallbackData: "admin_self_test"},
		utils.Button{Text: "🔥 Сбросить все подписки", CallbackData: "admin_reset_all_subs"},
		backMain,
	)
}

func adminUsersKeyboard() models.InlineKeyboardMarkup {
	return utils.Column(
		utils.Button{Text: "📋 Список пользователей", CallbackData: "admin_list_users"},
		utils.Button{Text: "🔍 Найти пользователя", CallbackData: "admin_search"},
		utils.Button{Text: "✅ Выдать подписку", CallbackData: "admin_grant"},
		utils.Button{Text: "💔 Забрать подписку", CallbackData: "admin_revoke"},
		utils.Button{Text: "🚫 Блокировка", CallbackData: "admin_block"},
		utils.Button{Text: "🟢 Разблокировка", CallbackData: "admin_unblock"},
		adminBack,
	)
}

func paginationKeyboard(page, total int) models.InlineKeyboardMarkup {
	nav := make([]utils.Button, 0, 3)
	if page > 1 {
		nav = append(nav, utils.Button{Text: "◀️ Назад", CallbackData: pageData("prev", page)})
	}
	nav = append(nav, utils.Button{Text: fmt.Sprintf("%d/%d", page, total), CallbackData: "noop"})
	if page < total {
		nav = append(nav, utils.Button{Text: "Вперед ▶️", CallbackData: pageData("next", page)})
	}
	return utils.Rows(nav, []utils.Button{{Text: "↩️ В админ-панель", CallbackData: "admin_back"}})
}

func settingsKeyboard(temperature float64) models.InlineKeyboardMarkup {
	return utils.Column(
		utils.Button{Text: "📝 Изменить системный промпт", CallbackData: "settings_prompt"},
		utils.Button{Text: fmt.Sprintf("🌡️ Изменить температуру (%s)", messages.FormatTemperature(temperature)), CallbackData: "settings_temp"},
		utils.Button{Text: "↩️ Назад в меню", CallbackData: "back_main"},
	)
}

func broadcastManageKeyboard(id int64) models.InlineKeyboardMarkup {
	return utils.Rows([]utils.Button{
		{Text: "📌 Открепить у всех", CallbackData: broadcastData(broadcast.ActionUnpin, id)},
		{Text: "🗑️ Удалить у всех", CallbackData: broadcastData(broadcast.ActionDelete, id)},
	})
}

func categoriesKeyboard(providers []plans.Provider) models.InlineKeyboardMarkup {
	buttons := make([]utils.Button, 0, len(providers)+1)
	for _, p := range providers {
		buttons = append(buttons, utils.Button{Text: p.Name, CallbackData: intData(prefixCategory, p.Index)})
	}
	return utils.Column(append(buttons, backMain)...)
}

func categoryModelsKeyboard(p plans.Provider, disabled map[string]struct{}) models.InlineKeyboardMarkup {
	buttons := make([]utils.Button, 0, len(p.Models)+1)
	for _, m := range p.Models {
		text := m
		if _, ok := disabled[m]; ok {
			text = "⚠️ " + m
		}
		buttons = append(buttons, utils.Button{Text: text, CallbackData: prefixModel + m})
	}
	return utils.Column(append(buttons, utils.Button{Text: "↩️ Назад", CallbackData: "menu_models"})...)
}

func chatKeyboard() models.InlineKeyboardMarkup {
	return utils.Column(
		utils.Button{Text: "🔄 Сменить модель", CallbackData: "menu_models"},
		utils.Button{Text: "🗑️ Новый диалог", CallbackData: "chat_new"},
		utils.Button{Text: "↩️ Главное меню", CallbackData: "back_main"},
	)
}

func subscriptionKeyboard(paid []plans.Plan) models.InlineKeyboardMarkup {
	buttons := make([]utils.Button, 0, len(paid)+1)
	for _, p := range paid {
		buttons = append(buttons, utils.Button{
			Text:         fmt.Sprintf("Подробнее о %s - %d₽", p.Name, p.Price),
			CallbackData: intData(prefixSubDetail, int(p.Level)),
		})
	}
	return utils.Column(append(buttons, backMain)...)
}

func subscriptionDetailsKeyboard(p plans.Plan) models.InlineKeyboardMarkup {
	return utils.Column(
		utils.Button{Text: fmt.Sprintf("✅ Купить %s - %d₽", p.Name, p.Price), CallbackData: intData(prefixBuy, int(p.Level))},
		utils.Button{Text: "↩️ Назад к планам", CallbackData: "menu_subscription"},
	)
}

func backMainKeyboard() models.InlineKeyboardMarkup {
	return utils.Column(backMain)
}

func adminBackKeyboard() models.InlineKeyboardMarkup {
	return utils.Column(adminBack)
}

func cancelKeyboard() models.InlineKeyboardMarkup {
	return utils.Column(cancel)
}

func broadcastConfirmKeyboard() models.InlineKeyboardMarkup {
	return utils.Column(
		utils.Button{Text: "✅ Отправить всем", CallbackData: "broadcast_send"},
		utils.Button{Text: "📌 Отправить и закрепить", CallbackData: "broadcast_pin"},
		cancel,
	)
}

func resetAllKeyboard() models.InlineKeyboardMarkup {
	return utils.Column(
		utils.Button{Text: "✅ Да, сбросить все", CallbackData: "confirm_reset_all_subs"},
		utils.Button{Text: "❌ Отмена", CallbackData: "admin_back"},
	)
}

func groupRedirectKeyboard(botUsername string) models.ReplyMarkup {
	if botUsername == "" {
		return nil
	}
	return utils.Column(utils.Button{
		Text: "🚀 Перейти в личный чат",
		URL:  fmt.Sprintf("https://t.me/%s?start=group_interaction", botUsername),
	})
}
