// Package middleware holds the shared tele middleware chain: panic recovery,
// update logging, rate limiting, and message counters.
package middleware

import (
	"runtime/debug"

	"github.com/m3rciful/venuebot/core/logger"
	tghelpers "github.com/m3rciful/venuebot/core/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware keeps a handler panic from taking down the bot process.
// The panic is logged with its stack and the update is considered handled.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(tghelpers.BuildContext(c), "tg", "tg.panic",
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = nil
			}
		}()
		return next(c)
	}
}
