package messages

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BatmanBruc/arima-bot/types"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;Tom &amp; &quot;Jerry&quot;&lt;/b&gt;", Escape(` <b>Tom & "Jerry"</b> `))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "При", Excerpt("Привет", 3))
	assert.Equal(t, "hi", Excerpt("hi", 10))
	assert.Equal(t, "", Excerpt("hi", 0))
}

func TestWelcome_UsesMoscowTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	assert.Contains(t, Welcome(now), "Текущее время: 12:30 МСК")
}

func TestUserCard(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Hour)
	u := &types.User{
		UserID:          42,
		DisplayName:     "alice",
		Level:           types.LevelStandard,
		SubscriptionEnd: &expired,
		IsBlocked:       true,
		CreatedAt:       now.Add(-48 * time.Hour),
	}

	card := UserCard(u, "Standard", 2, 5, now)
	assert.Contains(t, card, "Пользователь 2/5")
	assert.Contains(t, card, "<code>42</code>")
	assert.Contains(t, card, "@alice")
	assert.Contains(t, card, "Standard (1)")
	assert.Contains(t, card, "(истекла)")
	assert.Contains(t, card, "<b>Заблокирован:</b> Да")
	assert.Contains(t, card, "Не выбрана")

	single := UserCard(&types.User{UserID: 1, CreatedAt: now}, "Free", 0, 0, now)
	assert.NotContains(t, single, "/")
	assert.Contains(t, single, "Никогда")
	assert.Contains(t, single, "@Отсутствует")
}

func TestBroadcastTexts(t *testing.T) {
	long := strings.Repeat("x", 5000)

	preview := BroadcastPreview(long)
	assert.Equal(t, BroadcastPreviewLen, strings.Count(preview, "x"))

	summary := BroadcastSummary(long, 3, 1)
	assert.Equal(t, BroadcastExcerptLen, strings.Count(summary, "x"))
	assert.Contains(t, summary, "Успешно отправлено: 3")
	assert.Contains(t, summary, "Не удалось / заблокировано: 1")

	assert.Equal(t, "Сообщения рассылки откреплены.\nУспешно: 2\nНе удалось: 0", BroadcastManaged(true, 2, 0))
	assert.Equal(t, "Сообщения рассылки удалены.\nУспешно: 1\nНе удалось: 3", BroadcastManaged(false, 1, 3))
	assert.Contains(t, BroadcastAborted(errors.New("db <down>")), "db &lt;down&gt;")
}

func TestSubscription(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(72 * time.Hour)

	text := Subscription(SubscriptionState{
		PlanName: "Standard", Description: "desc", Used: 5, Limit: 40,
		Level: types.LevelStandard, ExpiresAt: &end, Now: now,
	})
	assert.Contains(t, text, "5/40")
	assert.Contains(t, text, "Подписка до:</b> 04.06.2025")

	unlimited := Subscription(SubscriptionState{PlanName: "Premium", Unlimited: true, Used: 7, Now: now})
	assert.Contains(t, unlimited, "7/Безлимит")
	assert.NotContains(t, unlimited, "Подписка до")
}

func TestModelTestResults(t *testing.T) {
	text := ModelTestResults([]ModelStatus{
		{Model: "gpt-4.1", OK: true, Status: "OK"},
		{Model: "grok-3", Status: "Error: 503"},
	})
	assert.Contains(t, text, "Рабочие модели (1)")
	assert.Contains(t, text, "✓ gpt-4.1")
	assert.Contains(t, text, "✗ grok-3 - Error: 503")

	assert.Contains(t, ModelTestResults([]ModelStatus{{Model: "a", OK: true}}), "Все модели в порядке!")
}

func TestSelfTestReport(t *testing.T) {
	report := SelfTestReport([]SelfTestCheck{
		{Name: "Блокировка", OK: true},
		{Name: "Сброс", OK: false, Detail: "уровень 1"},
	}, nil)
	assert.Contains(t, report, "✅ Тест 1 (Блокировка): OK")
	assert.Contains(t, report, "❌ Тест 2 (Сброс): FAILED (уровень 1)")
	assert.Contains(t, report, "Все тесты завершены!")

	failed := SelfTestReport(nil, errors.New("boom"))
	assert.Contains(t, failed, "<code>boom</code>")
}

func TestHelpAndInvalidLevel(t *testing.T) {
	help := Help([]HelpPlan{{Name: "Free", Limit: 3}, {Name: "Admin", Unlimited: true}})
	assert.Contains(t, help, "<b>Free:</b> 3 запросов/день")
	assert.Contains(t, help, "<b>Admin:</b> Безлимит")

	assert.Equal(t, "Неверный уровень подписки. Укажите одно из чисел: 0, 1, 2.", InvalidLevel([]int{0, 1, 2}))
}
