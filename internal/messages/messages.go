package messages

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BatmanBruc/arima-bot/types"
)

const ParseModeHTML = "HTML"

// MaxMessageLen is the platform limit for one text message, in characters.
const MaxMessageLen = 4096

var msk = time.FixedZone("MSK", 3*60*60)

func Escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

// Excerpt cuts s to at most n characters.
func Excerpt(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func Welcome(now time.Time) string {
	return fmt.Sprintf("Привет, я Arima.AI\n\nТекущее время: %s МСК\n\nВыберите действие:", now.In(msk).Format("15:04"))
}

func ActionCanceled() string {
	return "Действие отменено."
}

func NewUserNotice(userID int64, fullName, username string) string {
	link := fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, userID, Escape(fullName))
	return fmt.Sprintf("🎉 <b>Новый пользователь!</b>\n\nПользователь: %s\nID: <code>%d</code>\nUsername: @%s",
		link, userID, orDefault(Escape(username), "Отсутствует"))
}

func Blocked() string {
	return "Ваш доступ к моделям заблокирован администратором."
}

func LimitReached() string {
	return "Достигнут дневной лимит. Возвращайтесь завтра!"
}

func NoPermission() string {
	return "У вас нет прав для этого действия."
}

func ErrorDefault() string {
	return "❌ Произошла непредвиденная ошибка. Попробуйте позже или обратитесь в поддержку."
}

func ErrorForAdmin(detail string) string {
	return "❌ Ошибка для админа: " + Escape(detail)
}

func FallbackHint() string {
	return "Для начала работы выберите команду /start или воспользуйтесь меню. " +
		"Если вы хотите пообщаться с AI, выберите модель в меню «Выбрать модель»."
}

type HelpPlan struct {
	Name      string
	Limit     int
	Unlimited bool
}

func Help(plans []HelpPlan) string {
	var b strings.Builder
	b.WriteString("<b>Доступные команды:</b>\n")
	b.WriteString("/start - главное меню\n")
	b.WriteString("/new - начать новый диалог (очистить контекст)\n\n")
	b.WriteString("<b>Планы подписки:</b>\n")
	for _, p := range plans {
		b.WriteString(fmt.Sprintf("<b>%s:</b> %s\n", Escape(p.Name), limitText(p.Limit, p.Unlimited, " запросов/день")))
	}
	return b.String()
}

func limitText(limit int, unlimited bool, suffix string) string {
	if unlimited {
		return "Безлимит"
	}
	return fmt.Sprintf("%d%s", limit, suffix)
}

// Chat

func ChooseCategory() string {
	return "Выберите категорию:"
}

func CategoryModels(provider string) string {
	return fmt.Sprintf("Модели %s:", Escape(provider))
}

func ModelUnavailable() string {
	return "⚠️ Эта модель временно недоступна."
}

func ModelNotInPlan() string {
	return "⚠️ Эта модель не входит в ваш тариф."
}

func ModelSelected(model string) string {
	return fmt.Sprintf("<b>Модель: %s</b>\nОтправьте ваш запрос. Для сброса контекста используйте /new или соответствующую кнопку.", Escape(model))
}

func Thinking() string {
	return "🧠 Думаю..."
}

func HistoryCleared() string {
	return "Контекст диалога очищен. Можете задавать новый вопрос."
}

func HistoryClearedShort() string {
	return "Контекст диалога очищен."
}

func NoModelSelected() string {
	return "Произошла ошибка: модель не выбрана. Пожалуйста, выберите модель снова."
}

func ChatFooter(model, elapsed string) string {
	return fmt.Sprintf("\n\n<b>Модель: %s | Время: %s сек.</b>", Escape(model), elapsed)
}

// Images

func FeatureUnavailable() string {
	return "⚠️ Эта функция временно недоступна."
}

func FeaturePaidOnly() string {
	return "⚠️ Эта функция доступна только для платных подписчиков."
}

func ImagePromptAsk() string {
	return "Отправьте ваш запрос (промпт) для генерации изображения."
}

func ImageWorking() string {
	return "🎨 Создаю шедевр... Это может занять до минуты."
}

func ImageCaption(prompt string) string {
	return fmt.Sprintf("✅ Ваш шедевр по запросу: <code>%s</code>", Escape(Excerpt(prompt, 900)))
}

// Settings

func Settings(temperature float64, prompt string) string {
	return fmt.Sprintf("<b>Ваши текущие настройки:</b>\n\n<b>🌡️ Температура:</b> %s\n\n<b>📝 Системный промпт:</b>\n<i>%s</i>",
		FormatTemperature(temperature), Escape(prompt))
}

func FormatTemperature(v float64) string {
	return fmt.Sprintf("%g", v)
}

func SettingsPromptAsk() string {
	return "Отправьте новый системный промпт (инструкцию для AI). Для сброса на стандартный, отправьте <code>-</code>."
}

func SettingsTemperatureAsk() string {
	return "Отправьте новое значение температуры (число от 0.0 до 2.0). Для сброса на стандартное, отправьте <code>-</code>."
}

func PromptUpdated() string {
	return "✅ Системный промпт обновлен!"
}

func PromptReset() string {
	return "✅ Системный промпт сброшен на стандартный!"
}

func PromptEmpty() string {
	return "❌ Промпт не может быть пустым. Отправьте текст или <code>-</code> для сброса."
}

func TemperatureSet(v float64) string {
	return fmt.Sprintf("✅ Температура установлена на %s!", FormatTemperature(v))
}

func TemperatureReset(v float64) string {
	return fmt.Sprintf("✅ Температура сброшена на стандартное значение (%s)!", FormatTemperature(v))
}

func TemperatureInvalid() string {
	return "❌ Неверный формат. Пожалуйста, введите число от 0.0 до 2.0, или <code>-</code> для сброса."
}

// Subscription

func AdminSubscription() string {
	return "У вас максимальный доступ (Premium) как у администратора."
}

type SubscriptionState struct {
	PlanName    string
	Description string
	Used        int
	Limit       int
	Unlimited   bool
	Level       types.Level
	ExpiresAt   *time.Time
	Now         time.Time
}

func Subscription(s SubscriptionState) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>Ваш текущий план:</b> %s\n", Escape(s.PlanName)))
	b.WriteString(fmt.Sprintf("<b>Использовано запросов сегодня:</b> %d/%s\n", s.Used, limitText(s.Limit, s.Unlimited, "")))
	if s.Level > types.LevelFree && s.ExpiresAt != nil {
		date := s.ExpiresAt.In(msk).Format("02.01.2006")
		if s.ExpiresAt.After(s.Now) {
			b.WriteString(fmt.Sprintf("<b>Подписка до:</b> %s\n", date))
		} else {
			b.WriteString(fmt.Sprintf("<b>Подписка истекла:</b> %s\n", date))
		}
	}
	b.WriteString("<b>Описание:</b>\n")
	b.WriteString(s.Description)
	b.WriteString("\n\nДля просмотра деталей и покупки выберите один из планов ниже:")
	return b.String()
}

type ProviderModels struct {
	Name   string
	Models []string
}

func SubscriptionDetails(name string, price int, description string, providers []ProviderModels) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>Подписка: %s (%d₽)</b>\n\n%s\n\n<b>Доступные модели:</b>", Escape(name), price, description))
	for _, p := range providers {
		if len(p.Models) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("\n\n<b>%s</b>\n • %s", Escape(p.Name), strings.Join(p.Models, "\n • ")))
	}
	return b.String()
}

func Buy(name string, price int, paymentUsername string, userID int64) string {
	request := fmt.Sprintf("Здравствуйте, хочу приобрести подписку %s. Мой Telegram ID: %d", name, userID)
	return fmt.Sprintf("Для покупки подписки <b>%s (%d₽)</b> свяжитесь с администратором: @%s\n\n"+
		"Пожалуйста, отправьте ему следующее сообщение (нажмите, чтобы скопировать):\n\n<code>%s</code>",
		Escape(name), price, Escape(paymentUsername), Escape(request))
}

func UnknownLevel() string {
	return "Неизвестный уровень подписки."
}

// Groups

func GroupPaidOnly() string {
	return "К сожалению, общение в группах доступно только для пользователей с платной подпиской (Standard или Premium). " +
		"Вы можете оформить ее в личном чате с ботом."
}

func GroupStartPaidOnly() string {
	return "Взаимодействие с ботом в группах доступно только для пользователей с подпиской. " +
		"Пожалуйста, оформите подписку в личном чате с ботом."
}

func GroupRedirect(trigger string) string {
	return "Для использования меню и персональных команд, пожалуйста, " +
		"перейдите в личный чат со мной. В группах я отвечаю только на запросы " +
		fmt.Sprintf("через триггер <code>%s</code>.", Escape(trigger))
}

func GroupEmptyPrompt(trigger string) string {
	return fmt.Sprintf("Пожалуйста, укажите ваш вопрос после триггера <code>%s</code>.", Escape(trigger))
}

func GroupHelp(trigger string) string {
	return fmt.Sprintf("Я отвечаю на запросы по триггеру <code>%s</code>.\n\n", Escape(trigger)) +
		"Для просмотра всех команд, смены модели или настроек, " +
		"пожалуйста, напишите мне в личном чате."
}

func GroupHeader(model string, defaultModel bool) string {
	notice := ""
	if defaultModel {
		notice = fmt.Sprintf("Вы еще не выбирали модель в личном чате. Использую модель по умолчанию: <code>%s</code>\n\n", Escape(model))
	}
	return fmt.Sprintf("%s<b>Модель: %s</b>\n\n", notice, Escape(model))
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
