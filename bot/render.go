package bot

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/venuebot/core/telegram/helpers"
	"github.com/m3rciful/venuebot/core/telegram/keyboard"
	"github.com/m3rciful/venuebot/dialog"
)

const locationButtonLabel = "Send my location"

// renderActions translates engine actions into outgoing Telegram messages.
func renderActions(c tele.Context, actions []dialog.Action) error {
	for _, action := range actions {
		var err error
		switch act := action.(type) {
		case dialog.Say:
			err = helpers.SendWithMarkup(c, act.Text, keyboard.RemoveKeyboard())
		case dialog.Ask:
			err = helpers.SendWithMarkup(c, act.Text, askMarkup(act))
		case dialog.Cards:
			err = helpers.SendAlbum(c, buildAlbum(act.Items))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func askMarkup(ask dialog.Ask) *tele.ReplyMarkup {
	if ask.WantLocation {
		return keyboard.LocationRequest(locationButtonLabel)
	}
	if len(ask.Options) > 0 {
		return keyboard.ReplyButtons(ask.Options)
	}
	return keyboard.RemoveKeyboard()
}

func buildAlbum(cards []dialog.Card) tele.Album {
	album := make(tele.Album, 0, len(cards))
	for _, card := range cards {
		album = append(album, &tele.Photo{
			File:    tele.FromURL(card.ImageURL),
			Caption: cardCaption(card),
		})
	}
	return album
}

func cardCaption(card dialog.Card) string {
	lines := make([]string, 0, 4)
	lines = append(lines, card.Title)
	if card.Subtitle != "" {
		lines = append(lines, card.Subtitle)
	}
	if card.Link != "" {
		lines = append(lines, card.Link)
	}
	if card.FallbackLink != "" && card.FallbackLink != card.Link {
		lines = append(lines, card.FallbackLink)
	}
	return strings.Join(lines, "\n")
}
