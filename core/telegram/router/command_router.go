// Package router turns registry entries into bot routes that log one
// summary line per handled update.
package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/nearmod/keybot/core/logger"
	tg "github.com/nearmod/keybot/core/telegram"
	"github.com/nearmod/keybot/core/telegram/commands"
	"github.com/nearmod/keybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures the admin gate of AdminOnly commands.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes returns one route per registered command.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	gate := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for name, cmd := range cmds {
		h := middleware.LoggerMiddleware(middleware.RecoverMiddleware(summarized(name, cmd)))
		if cmd.AdminOnly {
			h = gate(h)
		}
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
	}

	logger.TWire.LogAttrs(context.Background(), slog.LevelInfo, "routes ready",
		slog.String("event", "register.routes"),
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

func summarized(name string, cmd commands.Command) tele.HandlerFunc {
	handler := normalizeHandlerName(name)
	return func(c tele.Context) error {
		return handleWithSummary(c, handler, time.Now(), "", "", func() error {
			return cmd.Handler(c)
		})
	}
}
