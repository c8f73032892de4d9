// Package router binds inbound update kinds to handlers and emits one
// summary log line per handled update.
package router

import (
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/venuebot/core/logger"
	tghelpers "github.com/m3rciful/venuebot/core/telegram/helpers"
	"github.com/m3rciful/venuebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summary describes the outcome of one dispatched update.
type summary struct {
	handler string
	start   time.Time
	status  string
	err     error
}

func handleWithSummary(c tele.Context, handlerName string, start time.Time, fn func() error) error {
	tghelpers.WithHandler(c, handlerName)
	err := fn()
	summary{handler: handlerName, start: start, err: err}.emit(c)
	return err
}

func logHandlerSummary(c tele.Context, handlerName string, start time.Time, status string, err error) {
	summary{handler: handlerName, start: start, status: status, err: err}.emit(c)
}

func (s summary) emit(c tele.Context) {
	ctx := tghelpers.WithHandler(c, s.handler)
	msgs, kb := middleware.GetCounters(c)

	attrs := make([]slog.Attr, 0, 9)
	attrs = append(attrs,
		slog.String("status", s.effectiveStatus()),
		slog.String("handler", s.handler),
		slog.String("outcome", logger.Status(s.err)),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(s.start)),
	)
	if s.err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(s.err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(s.err)),
			slog.String("cause", s.handler),
		)
	}
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", attrs...)
}

func (s summary) effectiveStatus() string {
	if s.status != "" {
		return s.status
	}
	return logger.Status(s.err)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// deriveErrorCode turns an error into a stable machine-readable code,
// preferring an explicit Code() accessor over the concrete type name.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	if c, ok := err.(coder); ok {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return codeToken(code)
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return codeToken(t.Name())
	}
	return "UNKNOWN_ERROR"
}

func codeToken(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, " ", "_"))
}
