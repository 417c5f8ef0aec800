// Package commands describes slash commands kept in the registry.
package commands

import tele "gopkg.in/telebot.v4"

// Command is one slash command.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands run only for the configured admin.
	AdminOnly bool
	// Hidden commands work but stay out of the Telegram menu.
	Hidden bool
}

// InMenu reports whether the command is published with setMyCommands.
func (c Command) InMenu() bool {
	return !c.Hidden && !c.AdminOnly
}
