package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/nearmod/keybot/core/logger"
	"github.com/nearmod/keybot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry collects commands, callback handlers and fallbacks before the
// routers turn them into bot routes.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]commands.Command
	callbacks map[string]tele.HandlerFunc

	onUnknownCallback tele.HandlerFunc
	onText            tele.HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		onUnknownCallback: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Неизвестное действие"})
		},
	}
}

func commandName(name string) string {
	name = strings.TrimSpace(name)
	if name != "" && !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return name
}

// RegisterCommand adds cmd under name. A missing leading slash is added.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	name = commandName(name)
	if name == "" || cmd.Handler == nil || cmd.Description == "" {
		return r.reject("command", name, "invalid")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.commands[name]; dup {
		return r.reject("command", name, "duplicate")
	}
	r.commands[name] = cmd
	return nil
}

// RegisterCallback binds handler to the callback key.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return r.reject("callback", key, "invalid")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.callbacks[key]; dup {
		return r.reject("callback", key, "duplicate")
	}
	r.callbacks[key] = handler
	return nil
}

func (r *Registry) reject(kind, name, reason string) error {
	logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.skip",
		slog.String("event", "register."+kind+".skip"),
		slog.String("key", name),
		slog.String("reason", reason),
	)
	return fmt.Errorf("telegram: %s %q: %s", kind, name, reason)
}

// Commands returns a copy of the registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.commands)
}

// LookupCommand finds a command by name with or without the leading slash.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = commandName(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return name, cmd, ok
}

// ListCommands returns commands sorted by name. With menuOnly set, hidden
// and admin commands are left out.
func (r *Registry) ListCommands(menuOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for _, name := range slices.Sorted(maps.Keys(r.commands)) {
		cmd := r.commands[name]
		if menuOnly && !cmd.InMenu() {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: cmd.Description})
	}
	return list
}

func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the sorted callback keys.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.callbacks))
}

// SetCallbackNotFound replaces the handler for unregistered callback keys.
// A nil h keeps the current one.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.onUnknownCallback = h
	r.mu.Unlock()
}

func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onUnknownCallback
}

// SetTextFallback sets the handler for text that is not a command.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.onText = h
	r.mu.Unlock()
}

func (r *Registry) TextFallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onText
}

// SetupCommands publishes the menu commands of reg with setMyCommands.
func SetupCommands(bot *tele.Bot, reg *Registry) {
	if bot == nil || reg == nil {
		return
	}
	ctx := context.Background()
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.TWire.LogAttrs(ctx, slog.LevelError, "set commands",
			slog.String("event", "register.commands.set"),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.TWire.LogAttrs(ctx, slog.LevelInfo, "set commands",
		slog.String("event", "register.commands.set"),
		slog.String("status", "ok"),
		slog.Int("count", len(list)),
	)
}
