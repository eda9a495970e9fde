// Package telegram is the bot transport: registry, routing, middleware and
// send helpers on top of telebot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/Tytandoteth/magbot-test-mode/internal/logger"
)

// Command binds a handler to a slash command with display metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
}

// Registry holds the bot's commands and callback handlers.
type Registry struct {
	commands    map[string]Command
	callbacks   map[string]tele.HandlerFunc
	callbacksMu sync.RWMutex
	notFound    tele.HandlerFunc
}

// NewRegistry creates an empty registry with a default unknown-callback
// responder.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]Command),
		callbacks: make(map[string]tele.HandlerFunc),
		notFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		},
	}
}

// RegisterCommand adds a command. Invalid or duplicate registrations are
// logged and ignored so a wiring mistake cannot crash startup.
func (r *Registry) RegisterCommand(name string, cmd Command) {
	ctx := context.Background()
	if name == "" || !strings.HasPrefix(name, "/") || cmd.Handler == nil {
		logger.Warn(ctx, "tg", "register.command.skip", slog.String("name", name))
		return
	}
	if _, exists := r.commands[name]; exists {
		logger.Warn(ctx, "tg", "register.command.duplicate", slog.String("name", name))
		return
	}
	r.commands[name] = cmd
}

// RegisterCallback maps a callback key to its handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return errors.New("telegram: invalid callback registration")
	}
	r.callbacksMu.Lock()
	defer r.callbacksMu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		return fmt.Errorf("telegram: callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

// Commands returns all registered commands keyed by name.
func (r *Registry) Commands() map[string]Command {
	return r.commands
}

// ListCommands returns the sorted command menu, optionally hiding admin and
// hidden entries.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	var list []tele.Command
	for name, cmd := range r.commands {
		if visibleOnly && (cmd.Hidden || cmd.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: cmd.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// Callback returns the handler for a key.
func (r *Registry) Callback(key string) (tele.HandlerFunc, bool) {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// CallbackKeys returns sorted callback keys for diagnostics.
func (r *Registry) CallbackKeys() []string {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetCallbackNotFound replaces the unknown-callback responder.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.notFound = h
	}
}

// CallbackNotFound returns the unknown-callback responder.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.notFound
}

// PublishCommands pushes the visible command menu to Telegram.
func PublishCommands(bot *tele.Bot, reg *Registry) {
	if err := bot.SetCommands(reg.ListCommands(true)); err != nil {
		logger.Error(context.Background(), "tg", "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
	}
}
