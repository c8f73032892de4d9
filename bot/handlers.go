package bot

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/venuebot/core/logger"
	tghelpers "github.com/m3rciful/venuebot/core/telegram/helpers"
	"github.com/m3rciful/venuebot/dialog"
)

// handleStart treats /start and /help as a greeting so the flow begins
// the same way as saying "hi".
func (a *App) handleStart(c tele.Context) error {
	return a.dispatch(c, dialog.Event{
		UserID: c.Sender().ID,
		Kind:   dialog.EventText,
		Text:   "hi",
	})
}

func (a *App) handleText(c tele.Context) error {
	return a.dispatch(c, dialog.Event{
		UserID: c.Sender().ID,
		Kind:   dialog.EventText,
		Text:   c.Text(),
	})
}

func (a *App) handleLocation(c tele.Context) error {
	loc := c.Message().Location
	if loc == nil {
		return nil
	}
	return a.dispatch(c, dialog.Event{
		UserID: c.Sender().ID,
		Kind:   dialog.EventLocation,
		Lat:    float64(loc.Lat),
		Lng:    float64(loc.Lng),
	})
}

// dispatch runs one update through the engine and renders whatever the
// engine asked to say. Actions are sent even when the engine reports an
// error, so the user always gets the recovery prompt.
func (a *App) dispatch(c tele.Context, ev dialog.Event) error {
	ctx := tghelpers.BuildContext(c)

	actions, err := a.engine.HandleEvent(ctx, ev)
	if len(actions) > 0 {
		logger.Debug(ctx, "bot", "dialog.actions", slog.Int("count", len(actions)))
	}
	if rerr := renderActions(c, actions); rerr != nil {
		return rerr
	}
	return err
}
