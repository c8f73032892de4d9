package middleware

import tele "gopkg.in/telebot.v4"

const sendStatsKey = "send_stats"

// sendStats accumulates outbound counters for one update's handler run.
type sendStats struct {
	messages int
	keyboard bool
}

// metricsContext wraps tele.Context so every successful send updates the
// per-update counters reported in the handler summary.
type metricsContext struct {
	tele.Context
	stats *sendStats
}

func (m metricsContext) record(withKeyboard bool) {
	m.stats.messages++
	if withKeyboard {
		m.stats.keyboard = true
	}
}

func carriesKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (m metricsContext) Send(what interface{}, opts ...interface{}) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		m.record(carriesKeyboard(opts))
	}
	return err
}

func (m metricsContext) SendAlbum(a tele.Album, opts ...interface{}) error {
	err := m.Context.SendAlbum(a, opts...)
	if err == nil {
		m.record(false)
	}
	return err
}

func (m metricsContext) Reply(what interface{}, opts ...interface{}) error {
	err := m.Context.Reply(what, opts...)
	if err == nil {
		m.record(carriesKeyboard(opts))
	}
	return err
}

// MessageMetricsMiddleware instruments the context to track message count
// and keyboard usage.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		stats := &sendStats{}
		c.Set(sendStatsKey, stats)
		return next(metricsContext{Context: c, stats: stats})
	}
}

// GetCounters reads the message count and keyboard presence for the update.
func GetCounters(c tele.Context) (int, bool) {
	if stats, ok := c.Get(sendStatsKey).(*sendStats); ok {
		return stats.messages, stats.keyboard
	}
	return 0, false
}
