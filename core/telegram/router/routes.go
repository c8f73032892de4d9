package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/venuebot/core/telegram"
	"github.com/m3rciful/venuebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Options declares the handlers that receive conversational updates once
// command routing is exhausted.
type Options struct {
	// Text receives any text message that is not a registered command.
	Text tele.HandlerFunc
	// Location receives shared location messages.
	Location tele.HandlerFunc
}

// Routes builds the text and location routes. Slash commands resolve
// through the registry first; everything else flows to the dialogue
// handlers.
func Routes(reg *tg.Registry, opts Options) []tg.Route {
	textHandler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if token := commandToken(text); reg != nil && token != "" {
			if key, cmd, ok := reg.LookupCommand(token); ok && cmd.Handler != nil {
				return handleWithSummary(c, normalizeHandlerName(key), start, func() error {
					return cmd.Handler(c)
				})
			}
		}

		if opts.Text != nil {
			return handleWithSummary(c, "dialog_text", start, func() error {
				return opts.Text(c)
			})
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, func() error {
					return fb(c)
				})
			}
		}

		logHandlerSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}

	locationHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.Location != nil {
			return handleWithSummary(c, "dialog_location", start, func() error {
				return opts.Location(c)
			})
		}
		logHandlerSummary(c, "unexpected_location", start, "skip", nil)
		return nil
	}

	return routesList(textHandler, locationHandler)
}

// commandToken extracts the leading "/command" from a message, stripping
// arguments and any @botname suffix. Returns "" for non-command text.
func commandToken(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return ""
	}
	token := strings.Fields(trimmed)[0]
	if at := strings.IndexByte(token, '@'); at > 0 {
		token = token[:at]
	}
	return token
}

func routesList(textHandler, locationHandler tele.HandlerFunc) []tg.Route {
	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(textHandler)),
		},
		{
			Endpoint: tele.OnLocation,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(locationHandler)),
		},
	}
}
