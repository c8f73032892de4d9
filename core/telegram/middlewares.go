package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/venuebot/core/config"
	"github.com/m3rciful/venuebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the shared middleware chain for the bot:
// panic recovery, optional per-user rate limiting, then receipt logging
// and outbound message accounting.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited func(tele.Context) error) []Middleware {
	chain := make([]Middleware, 0, 4)
	chain = append(chain, Middleware{Name: "recover", Use: middleware.RecoverMiddleware})
	if mw, enabled := rateLimitFromConfig(cfg, onLimited); enabled {
		chain = append(chain, mw)
	}
	return append(chain,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
}

func rateLimitFromConfig(cfg *coreconfig.Config, onLimited func(tele.Context) error) (Middleware, bool) {
	if cfg == nil || cfg.RateLimit.IntervalMS <= 0 {
		return Middleware{}, false
	}
	opts := middleware.RateLimitOptions{
		Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
		Exclude:   make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates)),
		OnLimited: onLimited,
	}
	for _, kind := range cfg.RateLimit.ExcludeUpdates {
		opts.Exclude[strings.ToLower(kind)] = struct{}{}
	}
	return Middleware{Name: "rate_limit", Use: middleware.RateLimitMiddleware(opts)}, true
}
