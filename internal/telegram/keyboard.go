package telegram

import (
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MainMenu is the top-level report menu.
func MainMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 За сегодня", string(ActionToday)),
			tgbotapi.NewInlineKeyboardButtonData("📆 Выбрать день", string(ActionDay)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗓️ Выбрать период", string(ActionPeriod)),
		),
	)
}

// Calendar is a Monday-first month grid for the month containing month.
// Each day button carries a CAL:SET payload for mode.
func Calendar(month time.Time, mode Mode) tgbotapi.InlineKeyboardMarkup {
	first := firstOfMonth(month)
	ym := first.Format(monthLayout)

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("←", fmt.Sprintf("%s:%s:%s", ActionPrev, ym, mode)),
			tgbotapi.NewInlineKeyboardButtonData(first.Format("01.2006"), string(ActionNop)),
			tgbotapi.NewInlineKeyboardButtonData("→", fmt.Sprintf("%s:%s:%s", ActionNext, ym, mode)),
		),
	}

	var week []tgbotapi.InlineKeyboardButton
	for i := 0; i < (int(first.Weekday())+6)%7; i++ {
		week = append(week, tgbotapi.NewInlineKeyboardButtonData(" ", string(ActionNop)))
	}
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		data := fmt.Sprintf("%s:%s:%s", ActionSet, d.Format(dayLayout), mode)
		week = append(week, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(d.Day()), data))
		if len(week) == 7 {
			rows = append(rows, week)
			week = nil
		}
	}
	if len(week) > 0 {
		rows = append(rows, week)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Назад", string(ActionBack)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
