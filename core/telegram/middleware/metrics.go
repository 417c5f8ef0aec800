package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const repliesKey = "replies"

// replyStats counts what a handler sent back for the handler summary line.
type replyStats struct {
	messages atomic.Int32
	keyboard atomic.Bool
}

func (s *replyStats) track(err error, opts []any) error {
	if err != nil {
		return err
	}
	s.messages.Add(1)
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			if v != nil {
				s.keyboard.Store(true)
			}
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				s.keyboard.Store(true)
			}
		}
	}
	return nil
}

type countingContext struct {
	tele.Context
	stats *replyStats
}

func (c countingContext) Send(what any, opts ...any) error {
	return c.stats.track(c.Context.Send(what, opts...), opts)
}

func (c countingContext) Reply(what any, opts ...any) error {
	return c.stats.track(c.Context.Reply(what, opts...), opts)
}

func (c countingContext) Edit(what any, opts ...any) error {
	return c.stats.track(c.Context.Edit(what, opts...), opts)
}

func (c countingContext) EditOrSend(what any, opts ...any) error {
	return c.stats.track(c.Context.EditOrSend(what, opts...), opts)
}

// MessageMetricsMiddleware counts messages sent or edited by the handler.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		stats := &replyStats{}
		c.Set(repliesKey, stats)
		return next(countingContext{Context: c, stats: stats})
	}
}

// GetCounters returns the message count and whether any reply carried a
// keyboard.
func GetCounters(c tele.Context) (int, bool) {
	stats, ok := c.Get(repliesKey).(*replyStats)
	if !ok {
		return 0, false
	}
	return int(stats.messages.Load()), stats.keyboard.Load()
}
