package telegram

import (
	"context"
	"sort"
	"strings"

	"github.com/m3rciful/venuebot/core/logger"
	"github.com/m3rciful/venuebot/core/telegram/commands"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Registry holds bot commands and the fallback for unrouted text.
type Registry struct {
	commands     map[string]commands.Command
	textFallback tele.HandlerFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]commands.Command)}
}

// RegisterCommand adds a new command. Invalid or duplicate registrations are
// logged and dropped rather than failing startup.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	if r == nil {
		return
	}
	if cause := r.validateRegistration(name, cmd); cause != "" {
		logger.Warn(context.Background(), "tg.wire", "register.command.skip",
			slog.String("name", name),
			slog.String("cause", cause),
		)
		return
	}
	r.commands[name] = cmd
}

func (r *Registry) validateRegistration(name string, cmd commands.Command) string {
	switch {
	case name == "" || cmd.Handler == nil || cmd.Description == "":
		return "invalid"
	case name[0] != '/':
		return "no_slash_prefix"
	}
	if _, exists := r.commands[name]; exists {
		return "duplicate"
	}
	return ""
}

// ListCommands returns the registered commands sorted by name, optionally
// without hidden ones.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	for name, cmd := range r.commands {
		if visibleOnly && cmd.Hidden {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: cmd.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves a name or alias to the canonical command key.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if name == alias || name == "/"+alias {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// SetTextFallback sets the handler for text that matches no command.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.textFallback = h
}

// TextFallback returns the current text fallback handler.
func (r *Registry) TextFallback() tele.HandlerFunc {
	return r.textFallback
}

// SetupCommands publishes the visible command list to the Telegram menu.
func SetupCommands(bot *tele.Bot, reg *Registry) {
	visible := reg.ListCommands(true)
	if len(visible) == 0 {
		return
	}
	if err := bot.SetCommands(visible); err != nil {
		logger.Error(context.Background(), "tg.wire", "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
	}
}
