package telegram

import (
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/Tytandoteth/magbot-test-mode/internal/logger"
)

// Recover catches handler panics so one bad update cannot take the bot down.
// The user still gets an apology instead of silence.
func Recover(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(BuildContext(c), "tg", "handler.panic",
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				_ = SendText(c, panicReplyText)
			}
		}()
		return next(c)
	}
}

// SingleFlight serializes update handling per user. Handlers run in their own
// goroutines, so without this two quick taps on the same button would load
// two session snapshots and both could pass the no-active-loan guard.
func SingleFlight() tele.MiddlewareFunc {
	type entry struct {
		mu   sync.Mutex
		refs int
	}
	var (
		mu       sync.Mutex
		inflight = make(map[int64]*entry)
	)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return next(c)
			}

			mu.Lock()
			e := inflight[user.ID]
			if e == nil {
				e = &entry{}
				inflight[user.ID] = e
			}
			e.refs++
			mu.Unlock()

			e.mu.Lock()
			defer func() {
				e.mu.Unlock()
				mu.Lock()
				e.refs--
				if e.refs == 0 {
					delete(inflight, user.ID)
				}
				mu.Unlock()
			}()
			return next(c)
		}
	}
}

type dedupKey struct {
	userID   int64
	updateID int
}

// Dedup drops updates already seen for the same (user, update id) pair.
// Telegram redelivers updates after timeouts; processing one twice could
// double-issue a loan, so duplicates are swallowed at the transport edge.
func Dedup(window time.Duration) tele.MiddlewareFunc {
	if window <= 0 {
		window = 30 * time.Second
	}
	var (
		mu   sync.Mutex
		seen = make(map[dedupKey]time.Time)
	)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			var userID int64
			if user := c.Sender(); user != nil {
				userID = user.ID
			}
			key := dedupKey{userID: userID, updateID: c.Update().ID}
			now := time.Now()

			mu.Lock()
			for k, ts := range seen {
				if now.Sub(ts) > window {
					delete(seen, k)
				}
			}
			if _, dup := seen[key]; dup {
				mu.Unlock()
				logger.Debug(BuildContext(c), "tg", "update.duplicate",
					slog.Int("update_id", key.updateID),
					slog.Int64("user_id", userID),
				)
				return nil
			}
			seen[key] = now
			mu.Unlock()
			return next(c)
		}
	}
}

// RateLimitOptions configures the per-user rate limiter.
type RateLimitOptions struct {
	Interval  time.Duration
	OnLimited tele.HandlerFunc
}

// RateLimit enforces a minimum interval between updates from the same user.
func RateLimit(opts RateLimitOptions) tele.MiddlewareFunc {
	var (
		mu       sync.Mutex
		lastSeen = make(map[int64]time.Time)
	)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			now := time.Now()

			mu.Lock()
			if last, ok := lastSeen[user.ID]; ok && now.Sub(last) < opts.Interval {
				mu.Unlock()
				logger.Warn(BuildContext(c), "tg", "rate.limited",
					slog.Int64("user_id", user.ID),
				)
				if opts.OnLimited != nil {
					_ = opts.OnLimited(c)
				}
				return nil
			}
			lastSeen[user.ID] = now
			mu.Unlock()
			return next(c)
		}
	}
}

// Logger sets the RID context on the update and emits a sampled receipt line.
func Logger(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		var chatID, userID int64
		if chat := c.Chat(); chat != nil {
			chatID = chat.ID
		}
		if user := c.Sender(); user != nil {
			userID = user.ID
		}

		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)

		ctx := logger.WithRID(logger.Background(), rid)
		ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.Component("tg"))
		StoreContext(c, ctx)

		if logger.ShouldSampleDebug() {
			attrs := []slog.Attr{
				slog.String("rid", rid),
				slog.Int("update_id", upd.ID),
			}
			if userID != 0 {
				attrs = append(attrs, slog.Int64("user_id", userID))
			}
			switch {
			case upd.Callback != nil:
				key, payload := ParseCallback(upd.Callback)
				attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
				if payload != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
				}
			case upd.Message != nil:
				if t := c.Text(); t != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
				}
			}
			logger.Debug(ctx, "tg", "update.received", attrs...)
		}
		return next(c)
	}
}

// AdminOnly rejects updates from anyone but the configured admin.
func AdminOnly(adminID int64, onReject tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || adminID == 0 || user.ID != adminID {
				if onReject != nil {
					return onReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}

// ParseCallback extracts the routing key and payload from a callback. Inline
// buttons built with markup.Data arrive as "\f<unique>|<payload>".
func ParseCallback(cb *tele.Callback) (key, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	parts := strings.SplitN(raw, "|", 2)
	key = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		payload = parts[1]
	}
	return key, payload
}
