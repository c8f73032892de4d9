// Package helpers bridges tele.Context with the context-first logging and
// the asynchronous sender.
package helpers

import (
	"context"

	"github.com/m3rciful/venuebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "logger_ctx"

// StoreContext attaches reusable context to tele.Context for downstream helpers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context previously stored by middleware, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(contextKey).(context.Context)
	return ctx, ok
}

// BuildContext constructs a context.Context from tele.Context, enriching it
// with RID and update/user/chat metadata for consistent logging. The result
// is cached on the tele.Context so repeated calls within one update are cheap.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}

	updateID, userID, chatID := identify(c)
	rid := assignedRID(c)
	if rid == "" {
		rid = logger.BuildRID(updateID, chatID, userID)
	}

	ctx := logger.WithRID(context.Background(), rid)
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler enriches the stored context with handler metadata.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}

func identify(c tele.Context) (updateID int, userID, chatID int64) {
	updateID = c.Update().ID
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	return updateID, userID, chatID
}

func assignedRID(c tele.Context) string {
	rid, _ := c.Get("rid").(string)
	return rid
}
