package messages

import (
	"fmt"
	"strings"
	"time"

	"github.com/BatmanBruc/arima-bot/types"
)

func AdminPanel() string {
	return "Админ-панель:"
}

func AdminUsers() string {
	return "Управление пользователями:"
}

func AskSearch() string {
	return "Отправьте ID или @username для поиска."
}

func AskGrant() string {
	return "Отправьте ID/@username и уровень (0, 1, 2):\nФормат: <code>ID/username LEVEL</code>"
}

func AskRevoke() string {
	return "Отправьте ID или @username, чтобы забрать подписку (установить Free):"
}

func AskBlock() string {
	return "Отправьте ID или @username для блокировки:"
}

func AskUnblock() string {
	return "Отправьте ID или @username для разблокировки:"
}

func UserNotFound(input string) string {
	return fmt.Sprintf("Пользователь %s не найден.", Escape(input))
}

func AdminCannotBeBlocked() string {
	return "Администраторов нельзя блокировать."
}

func AdminCannotBeRevoked() string {
	return "Нельзя забрать подписку у администратора таким способом."
}

func InvalidLevel(levels []int) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = fmt.Sprint(l)
	}
	return fmt.Sprintf("Неверный уровень подписки. Укажите одно из чисел: %s.", strings.Join(parts, ", "))
}

func BadGrantFormat() string {
	return "Неверный формат: ожидается два аргумента, ID/username и уровень. Пример: <code>@username 1</code> или <code>12345678 2</code>."
}

func GrantDone(levelName, input string) string {
	return fmt.Sprintf("Подписка уровня %s выдана пользователю %s.", Escape(levelName), Escape(input))
}

func RevokeDone(input string) string {
	return fmt.Sprintf("Подписка у пользователя %s успешно сброшена до Free.", Escape(input))
}

func BlockDone(input string, blocked bool) string {
	return fmt.Sprintf("Пользователь %s %s.", Escape(input), blockStatus(blocked))
}

func GrantNotice(levelName string) string {
	return fmt.Sprintf("Вам была выдана подписка администратором. Установлен уровень: <b>%s</b>.", Escape(levelName))
}

func RevokeNotice() string {
	return "Ваша платная подписка была отозвана администратором. Установлен уровень Free."
}

func BlockNotice(blocked bool) string {
	return fmt.Sprintf("Ваш доступ к боту был %s администратором.", blockStatus(blocked))
}

func blockStatus(blocked bool) string {
	if blocked {
		return "заблокирован"
	}
	return "разблокирован"
}

func NoUsers() string {
	return "В базе данных пока нет пользователей."
}

func NoMoreUsers() string {
	return "Больше пользователей нет или страница недействительна."
}

// UserCard renders one user. page and total are omitted when total is zero.
func UserCard(u *types.User, levelName string, page, total int, now time.Time) string {
	title := "<b>ℹ️ Пользователь</b>"
	if total > 0 {
		title = fmt.Sprintf("<b>ℹ️ Пользователь %d/%d</b>", page, total)
	}

	end := "Никогда"
	if u.SubscriptionEnd != nil {
		end = u.SubscriptionEnd.In(msk).Format("02.01.2006 15:04")
		if !u.SubscriptionEnd.After(now) {
			end += " (истекла)"
		}
	}
	blocked := "Нет"
	if u.IsBlocked {
		blocked = "Да"
	}

	return fmt.Sprintf("%s\n\n<b>ID:</b> <code>%d</code>\n<b>Username:</b> @%s\n"+
		"<b>Уровень:</b> %s (%d)\n<b>Подписка до:</b> %s\n"+
		"<b>Заблокирован:</b> %s\n<b>Последняя модель:</b> %s\n<b>Регистрация:</b> %s",
		title, u.UserID, orDefault(Escape(u.DisplayName), "Отсутствует"),
		Escape(levelName), u.Level, end,
		blocked, orDefault(Escape(u.LastModel), "Не выбрана"), u.CreatedAt.In(msk).Format("02.01.2006 15:04"))
}

type StatsView struct {
	Total         int
	Free          int
	Standard      int
	Premium       int
	Registrations types.RegistrationStats
}

func Stats(s StatsView) string {
	return fmt.Sprintf("<b>📊 Статистика подписок:</b>\n"+
		"Всего пользователей: %d\nFree: %d\nStandard: %d\nPremium: %d\n\n"+
		"<b>📈 Статистика регистраций:</b>\n"+
		"Сегодня: %d\nВчера: %d\nЗа 7 дней: %d\nЗа 30 дней: %d",
		s.Total, s.Free, s.Standard, s.Premium,
		s.Registrations.Today, s.Registrations.Yesterday, s.Registrations.Last7Days, s.Registrations.Last30Days)
}

func ModelTestStarted() string {
	return "Начинаю тестирование моделей... Это может занять несколько минут."
}

type ModelStatus struct {
	Model  string
	OK     bool
	Status string
}

func ModelTestResults(results []ModelStatus) string {
	var ok, failed []string
	for _, r := range results {
		if r.OK {
			ok = append(ok, "✓ "+Escape(r.Model))
			continue
		}
		failed = append(failed, fmt.Sprintf("✗ %s - %s", Escape(r.Model), Escape(r.Status)))
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>Результаты тестирования:</b>\n\n<b>✅ Рабочие модели (%d):</b>\n", len(ok)))
	if len(ok) == 0 {
		b.WriteString("Нет рабочих моделей.")
	} else {
		b.WriteString(strings.Join(ok, "\n"))
	}
	if len(failed) > 0 {
		b.WriteString(fmt.Sprintf("\n\n<b>❌ Нерабочие или проблемные модели (%d):</b>\n", len(failed)))
		b.WriteString(strings.Join(failed, "\n"))
	} else {
		b.WriteString("\n\nВсе модели в порядке!")
	}
	return b.String()
}

func SelfTestRunning() string {
	return "<b>🤖 Проведение автотестов...</b>"
}

type SelfTestCheck struct {
	Name   string
	OK     bool
	Detail string
}

func SelfTestReport(checks []SelfTestCheck, err error) string {
	lines := []string{"<b>🤖 Отчет по автотестам:</b>"}
	for i, c := range checks {
		mark, status := "✅", "OK"
		if !c.OK {
			mark, status = "❌", "FAILED"
		}
		line := fmt.Sprintf("%s Тест %d (%s): %s", mark, i+1, c.Name, status)
		if c.Detail != "" {
			line += fmt.Sprintf(" (%s)", Escape(c.Detail))
		}
		lines = append(lines, line)
	}
	if err != nil {
		lines = append(lines, fmt.Sprintf("\n❌ <b>Во время тестов произошла ошибка:</b>\n<code>%s</code>", Escape(err.Error())))
	} else {
		lines = append(lines, "\n<b>Все тесты завершены!</b>")
	}
	return strings.Join(lines, "\n")
}

func ResetAllWarning() string {
	return "<b>⚠️ ПРЕДУПРЕЖДЕНИЕ ⚠️</b>\n\n" +
		"Вы уверены, что хотите сбросить <b>ВСЕ</b> платные подписки до уровня Free?\n\n" +
		"Подписки администраторов затронуты не будут. " +
		"Это действие необратимо."
}

func ResetAllRunning() string {
	return "Выполняю сброс подписок..."
}

func ResetAllDone(n int64) string {
	return fmt.Sprintf("✅ Успешно сброшено %d подписок до уровня Free.", n)
}

// Broadcasts

const (
	BroadcastPreviewLen = 3000
	BroadcastExcerptLen = 1000
)

func AskBroadcast() string {
	return "Введите текст для рассылки (HTML-разметка поддерживается)."
}

func BroadcastPreview(text string) string {
	return fmt.Sprintf("<b>Предпросмотр рассылки:</b>\n\n%s\n\nПодтвердите действие:", Excerpt(text, BroadcastPreviewLen))
}

// BroadcastPreviewPlain is used when the authored markup cannot be rendered.
func BroadcastPreviewPlain(text string) string {
	return fmt.Sprintf("<b>Предпросмотр рассылки:</b>\n\n%s\n\nПодтвердите действие:", Escape(Excerpt(text, BroadcastPreviewLen)))
}

func BroadcastTextMissing() string {
	return "Ошибка: Текст рассылки не найден. Попробуйте снова."
}

func BroadcastStarted() string {
	return "⏳ Начинаю рассылку... Вы получите отчет по завершении."
}

func BroadcastSummary(text string, delivered, failed int) string {
	return fmt.Sprintf("✅ Рассылка завершена.\n\nТекст:\n<i>%s</i>\n\nУспешно отправлено: %d\nНе удалось / заблокировано: %d",
		Escape(Excerpt(text, BroadcastExcerptLen)), delivered, failed)
}

func BroadcastAborted(err error) string {
	return fmt.Sprintf("❌ Рассылка прервана.\n<code>%s</code>", Escape(err.Error()))
}

func BroadcastNotFound() string {
	return "Информация об этой рассылке уже удалена или не найдена."
}

func BroadcastManaging(unpin bool) string {
	if unpin {
		return "Открепляю сообщения..."
	}
	return "Удаляю сообщения..."
}

func BroadcastManaged(unpin bool, ok, failed int) string {
	verb := "удалены"
	if unpin {
		verb = "откреплены"
	}
	return fmt.Sprintf("Сообщения рассылки %s.\nУспешно: %d\nНе удалось: %d", verb, ok, failed)
}
