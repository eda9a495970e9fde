package telegram

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

// offlineBot builds a bot without network access. Outbound calls point at a
// closed local port so best-effort sends fail fast instead of dialing out.
func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{
		Offline: true,
		URL:     "http://127.0.0.1:1",
		Client:  &http.Client{Timeout: 250 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	return b
}

func userUpdate(id int, userID int64) tele.Update {
	return tele.Update{
		ID: id,
		Message: &tele.Message{
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID},
		},
	}
}

func TestSingleFlightSerializesPerUser(t *testing.T) {
	b := offlineBot(t)
	mw := SingleFlight()

	var active, overlaps int32
	h := mw(func(c tele.Context) error {
		if atomic.AddInt32(&active, 1) != 1 {
			atomic.AddInt32(&overlaps, 1)
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_ = h(b.NewContext(userUpdate(id, 7)))
		}(i)
	}
	wg.Wait()

	if n := atomic.LoadInt32(&overlaps); n != 0 {
		t.Fatalf("handlers for one user ran concurrently %d times", n)
	}
}

func TestSingleFlightAllowsDistinctUsers(t *testing.T) {
	b := offlineBot(t)
	mw := SingleFlight()

	entered := make(chan int64, 2)
	release := make(chan struct{})
	h := mw(func(c tele.Context) error {
		entered <- c.Sender().ID
		<-release
		return nil
	})

	go func() { _ = h(b.NewContext(userUpdate(1, 1))) }()
	go func() { _ = h(b.NewContext(userUpdate(2, 2))) }()

	for i := 0; i < 2; i++ {
		select {
		case <-entered:
		case <-time.After(time.Second):
			t.Fatal("users blocked each other")
		}
	}
	close(release)
}

func TestRecoverSwallowsPanic(t *testing.T) {
	b := offlineBot(t)
	h := Recover(func(c tele.Context) error { panic("boom") })
	if err := h(b.NewContext(userUpdate(1, 1))); err != nil {
		t.Fatalf("panic leaked as error: %v", err)
	}
}

func TestSummarizedConvertsErrorToReply(t *testing.T) {
	b := offlineBot(t)
	h := summarized("test", func(c tele.Context) error {
		return errors.New("backend down")
	})
	if err := h(b.NewContext(userUpdate(1, 1))); err != nil {
		t.Fatalf("handler error leaked to transport: %v", err)
	}
}

func TestParseCallbackUnique(t *testing.T) {
	key, payload := ParseCallback(&tele.Callback{Unique: "loan_select", Data: "10"})
	if key != "loan_select" || payload != "10" {
		t.Fatalf("got (%q, %q), want (loan_select, 10)", key, payload)
	}
}

func TestParseCallbackRawData(t *testing.T) {
	key, payload := ParseCallback(&tele.Callback{Data: "\floan_confirm|10|14"})
	if key != "loan_confirm" || payload != "10|14" {
		t.Fatalf("got (%q, %q), want (loan_confirm, 10|14)", key, payload)
	}
}

func TestParseCallbackNoPayload(t *testing.T) {
	key, payload := ParseCallback(&tele.Callback{Data: "\fcancel"})
	if key != "cancel" || payload != "" {
		t.Fatalf("got (%q, %q), want (cancel, empty)", key, payload)
	}
}

func TestBtnFromToken(t *testing.T) {
	btn := BtnFromToken("$10", "loan_select|10")
	if btn.Unique != "loan_select" || btn.Data != "10" {
		t.Fatalf("btn = %+v", btn)
	}
	confirm := BtnFromToken("14 days", "loan_confirm|10|14")
	if confirm.Unique != "loan_confirm" || confirm.Data != "10|14" {
		t.Fatalf("btn = %+v", confirm)
	}
}
