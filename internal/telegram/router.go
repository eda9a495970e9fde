package telegram

import (
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/Tytandoteth/magbot-test-mode/internal/logger"
)

const (
	// failureReplyText covers collaborator failures the handlers could not
	// map to anything more specific.
	failureReplyText = "😕 Something went wrong on our side. Please try again in a moment."
	// panicReplyText is the apology sent when a handler panics.
	panicReplyText = "😔 Sorry, something unexpected happened. Please try again."
)

// Route binds a telebot endpoint to a handler.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RouteOptions configures route construction.
type RouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes wraps every registered command with recover and logging
// middleware, plus the admin guard where required.
func CommandRoutes(reg *Registry, opts RouteOptions) []Route {
	routes := make([]Route, 0, len(reg.Commands()))
	for name, cmd := range reg.Commands() {
		handlerName := "command." + normalizeHandlerName(name)
		h := summarized(handlerName, cmd.Handler)
		h = Logger(h)
		h = Recover(h)
		if cmd.AdminOnly {
			h = AdminOnly(opts.AdminID, opts.OnAdminReject)(h)
		}
		routes = append(routes, Route{Endpoint: name, Handler: h})
	}

	logger.Info(logger.Background(), "tg", "wire.complete",
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.CallbackKeys())),
	)
	return routes
}

// CallbackRoute routes all callbacks through the registry by key.
func CallbackRoute(reg *Registry) Route {
	handler := func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		key, _ := ParseCallback(cb)
		_ = c.Respond()

		h, ok := reg.Callback(key)
		if !ok || h == nil {
			h = reg.CallbackNotFound()
		}
		name := "callback." + normalizeHandlerName(key)
		return summarized(name, h, slog.String("cb_key", key))(c)
	}
	return Route{
		Endpoint: tele.OnCallback,
		Handler:  Recover(Logger(handler)),
	}
}

// summarized emits one handler.handled line per invocation with status and
// duration. An error the handler could not map to user guidance becomes a
// generic retry prompt here, so the user is never left staring at nothing.
func summarized(name string, fn tele.HandlerFunc, extras ...slog.Attr) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		ctx := WithHandler(c, name)
		err := fn(c)

		status := "ok"
		attrs := []slog.Attr{
			slog.String("handler", name),
		}
		if err != nil {
			status = "fail"
			attrs = append(attrs,
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}
		attrs = append(attrs,
			slog.String("status", status),
			slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
		)
		attrs = append(attrs, extras...)
		logger.Info(ctx, "tg", "handler.handled", attrs...)

		if err != nil {
			_ = SendText(c, failureReplyText)
		}
		return nil
	}
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}
