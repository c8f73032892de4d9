// Package keyboard builds reply keyboards used as quick-reply menus.
package keyboard

import tele "gopkg.in/telebot.v4"

// RemoveKeyboard returns a markup that hides the keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

func oneTimeMarkup() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
}

// ReplyButtons builds a one-time reply keyboard from rows of text labels.
func ReplyButtons(rows ...[]string) *tele.ReplyMarkup {
	markup := oneTimeMarkup()
	keyboard := make([]tele.Row, 0, len(rows))
	for _, labels := range rows {
		buttons := make([]tele.Btn, 0, len(labels))
		for _, label := range labels {
			buttons = append(buttons, markup.Text(label))
		}
		keyboard = append(keyboard, markup.Row(buttons...))
	}
	markup.Reply(keyboard...)
	return markup
}

// LocationRequest builds a keyboard with a single button that asks the
// client to share the user's location.
func LocationRequest(label string) *tele.ReplyMarkup {
	markup := oneTimeMarkup()
	markup.Reply(markup.Row(markup.Location(label)))
	return markup
}
