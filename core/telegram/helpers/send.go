package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/venuebot/core/logger"
	"github.com/m3rciful/venuebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
// Pass nil during shutdown to fall back to synchronous sends.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

// deliver routes an outbound call through the dispatcher when one is wired.
// A full or closed queue degrades to a synchronous send so the user still
// gets a reply.
func deliver(c tele.Context, action, endpoint string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	err := disp.Enqueue(ctx, action, endpoint, run)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sender.ErrQueueFull), errors.Is(err, sender.ErrQueueClosed):
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
		return run()
	default:
		return err
	}
}

// SendText sends raw text to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	return deliver(c, "send.text", "sendMessage", func() error {
		if len(opts) > 0 && opts[0] != nil {
			return c.Send(text, opts[0])
		}
		return c.Send(text)
	})
}

// SendWithMarkup sends text together with a reply keyboard.
func SendWithMarkup(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	return SendText(c, text, &tele.SendOptions{ReplyMarkup: markup})
}

// SendAlbum delivers a media group as one outbound message.
func SendAlbum(c tele.Context, album tele.Album) error {
	return deliver(c, "send.album", "sendMediaGroup", func() error {
		return c.SendAlbum(album)
	})
}
