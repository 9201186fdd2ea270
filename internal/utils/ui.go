package utils

import "github.com/go-telegram/bot/models"

// Button is an inline button. URL wins over CallbackData when both are set.
type Button struct {
	Text         string
	CallbackData string
	URL          string
}

func (b Button) inline() models.InlineKeyboardButton {
	if b.URL != "" {
		return models.InlineKeyboardButton{Text: b.Text, URL: b.URL}
	}
	return models.InlineKeyboardButton{Text: b.Text, CallbackData: b.CallbackData}
}

// Column puts every button on its own row.
func Column(buttons ...Button) models.InlineKeyboardMarkup {
	rows := make([][]Button, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []Button{b})
	}
	return Rows(rows...)
}

func Rows(rows ...[]Button) models.InlineKeyboardMarkup {
	out := make([][]models.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]models.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			r = append(r, b.inline())
		}
		out = append(out, r)
	}
	return models.InlineKeyboardMarkup{InlineKeyboard: out}
}

// Grid lays buttons out perRow at a time.
func Grid(buttons []Button, perRow int) models.InlineKeyboardMarkup {
	if perRow <= 0 {
		perRow = 3
	}
	rows := make([][]Button, 0, len(buttons)/perRow+1)
	for i := 0; i < len(buttons); i += perRow {
		end := i + perRow
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, buttons[i:end])
	}
	return Rows(rows...)
}
