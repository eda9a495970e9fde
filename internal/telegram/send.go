package telegram

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/Tytandoteth/magbot-test-mode/internal/logger"
	"github.com/Tytandoteth/magbot-test-mode/internal/telegram/sender"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by the send helpers.
// Pass nil to fall back to synchronous sends.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func sendAsync(c tele.Context, action string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}
	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, action, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// SendText sends plain text to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	return sendAsync(c, "send.text", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// SendMD sends Markdown text with an optional inline keyboard.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return SendText(c, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: rm})
}

// EditMD edits the current message in place with Markdown.
func EditMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return c.Edit(text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: rm})
}

// EditOrSendMD edits the current message or sends a new one if editing is
// not possible (e.g. the update was a command, not a callback).
func EditOrSendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return c.EditOrSend(text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: rm})
}

// WithLoading shows an interim message while work runs, then replaces it
// with the result text. The pacing is cosmetic and capped at minDuration so
// near-instant mock operations still feel like real work is happening.
func WithLoading(c tele.Context, loadingText string, minDuration time.Duration, work func() (string, *tele.ReplyMarkup, error)) error {
	start := time.Now()
	loading, sendErr := c.Bot().Send(c.Recipient(), loadingText, &tele.SendOptions{ParseMode: tele.ModeMarkdown})

	text, markup, err := work()
	if err != nil {
		if loading != nil {
			_ = c.Bot().Delete(loading)
		}
		return err
	}

	if remaining := minDuration - time.Since(start); remaining > 0 {
		time.Sleep(remaining)
	}

	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup}
	if sendErr == nil && loading != nil {
		_, editErr := c.Bot().Edit(loading, text, opts)
		if editErr == nil {
			return nil
		}
	}
	return c.Send(text, opts)
}

// SendSelfDestruct sends a message and deletes it after ttl. Used for
// wallet credentials, which must not linger in the chat history.
func SendSelfDestruct(c tele.Context, text string, ttl time.Duration, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	msg, err := c.Bot().Send(c.Recipient(), text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: rm})
	if err != nil {
		return err
	}
	ctx := BuildContext(c)
	bot := c.Bot()
	time.AfterFunc(ttl, func() {
		if delErr := bot.Delete(msg); delErr != nil {
			logger.Warn(ctx, "tg", "selfdestruct.delete_failed",
				slog.String("err", delErr.Error()),
			)
		}
	})
	return nil
}
