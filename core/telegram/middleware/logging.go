package middleware

import (
	"sync"
	"time"

	"github.com/m3rciful/venuebot/core/logger"
	tghelpers "github.com/m3rciful/venuebot/core/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// receiptLog deduplicates the per-update receipt line when the middleware
// runs on more than one branch for the same update.
type receiptLog struct {
	mu      sync.Mutex
	seen    map[int]time.Time
	keepFor time.Duration
}

var receipts = &receiptLog{
	seen:    make(map[int]time.Time),
	keepFor: 10 * time.Second,
}

func (r *receiptLog) firstSighting(updateID int) bool {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ts := range r.seen {
		if now.Sub(ts) > r.keepFor {
			delete(r.seen, id)
		}
	}
	if _, dup := r.seen[updateID]; dup {
		return false
	}
	r.seen[updateID] = now
	return true
}

// LoggerMiddleware attaches the request id to the update and logs a sampled
// receipt line.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		rid := logger.RIDFrom(ctx)
		c.Set("rid", rid)
		c.Set("update_start", time.Now())

		if logger.ShouldSampleDebug() && receipts.firstSighting(c.Update().ID) {
			logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug,
				"update.received", receiptAttrs(c, rid)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context, rid string) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("rid", rid),
		slog.Int("update_id", c.Update().ID),
	}

	if chat := c.Chat(); chat != nil && chat.ID != 0 {
		attrs = append(attrs,
			slog.Int64("chat_id", chat.ID),
			slog.String("chat_type", string(chat.Type)),
		)
	}
	if user := c.Sender(); user != nil && user.ID != 0 {
		attrs = append(attrs, slog.Int64("user_id", user.ID))
		if user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if user.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", user.LanguageCode))
		}
	}
	if msg := c.Update().Message; msg != nil {
		if t := c.Text(); t != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
		}
		if msg.Location != nil {
			attrs = append(attrs, slog.String("kind", "location"))
		}
	}
	return attrs
}
