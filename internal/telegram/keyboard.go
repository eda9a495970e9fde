package telegram

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// InlineBtn is a declarative inline button: Unique routes the callback,
// Data carries the payload.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
	URL    string
}

// BtnFromToken builds an inline button from a "key|payload" token, keeping
// button construction and token decoding symmetrical.
func BtnFromToken(text, token string) InlineBtn {
	key, payload, _ := strings.Cut(token, "|")
	return InlineBtn{Text: text, Unique: key, Data: payload}
}

// URLBtn builds an inline button that opens a link.
func URLBtn(text, url string) InlineBtn {
	return InlineBtn{Text: text, URL: url}
}

// InlineRows builds an inline keyboard from rows of buttons.
func InlineRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			if btn.URL != "" {
				r[j] = *markup.URL(btn.Text, btn.URL).Inline()
				continue
			}
			r[j] = *markup.Data(btn.Text, btn.Unique, btn.Data).Inline()
		}
		inline[i] = r
	}
	markup.InlineKeyboard = inline
	return markup
}

// InlineColumn places each button on its own row.
func InlineColumn(buttons ...InlineBtn) *tele.ReplyMarkup {
	rows := make([][]InlineBtn, len(buttons))
	for i, b := range buttons {
		rows[i] = []InlineBtn{b}
	}
	return InlineRows(rows...)
}

// InlineGrid splits buttons into rows of up to n.
func InlineGrid(buttons []InlineBtn, n int) *tele.ReplyMarkup {
	if n <= 1 {
		return InlineColumn(buttons...)
	}
	var rows [][]InlineBtn
	for i := 0; i < len(buttons); i += n {
		end := i + n
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, buttons[i:end])
	}
	return InlineRows(rows...)
}
