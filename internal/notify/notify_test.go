package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingSender) Send(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func TestCronScheduleCancelAndList(t *testing.T) {
	ctx := context.Background()
	sender := &recordingSender{}
	c := NewCron(time.UTC, sender, nil)
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.ScheduleAt(ctx, Notification{ID: "past", At: now}); !errors.Is(err, ErrPastTrigger) {
		t.Fatalf("expected ErrPastTrigger, got %v", err)
	}
	for i, id := range []string{"b", "a"} {
		n := Notification{ID: id, Title: id, At: now.Add(time.Duration(2-i) * time.Hour)}
		if err := c.ScheduleAt(ctx, n); err != nil {
			t.Fatalf("schedule %s: %v", id, err)
		}
	}
	// Rescheduling an id replaces it.
	if err := c.ScheduleAt(ctx, Notification{ID: "a", At: now.Add(3 * time.Hour)}); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	list, err := c.Scheduled(ctx)
	if err != nil {
		t.Fatalf("scheduled: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 notifications, got %+v", list)
	}
	if list[0].ID != "b" || list[1].ID != "a" {
		t.Fatalf("unexpected order: %+v", list)
	}

	if err := c.Cancel(ctx, "b"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := c.Cancel(ctx, "missing"); err != nil {
		t.Fatalf("cancel missing: %v", err)
	}
	if list, _ := c.Scheduled(ctx); len(list) != 1 {
		t.Fatalf("expected 1 notification, got %+v", list)
	}
	if err := c.CancelAll(ctx); err != nil {
		t.Fatalf("cancel all: %v", err)
	}
	if list, _ := c.Scheduled(ctx); len(list) != 0 {
		t.Fatalf("expected no notifications, got %+v", list)
	}
}

func TestCronFireDelivers(t *testing.T) {
	ctx := context.Background()
	sender := &recordingSender{}
	c := NewCron(time.UTC, sender, nil)
	now := time.Now()
	if err := c.ScheduleAt(ctx, Notification{ID: "once", Title: "t", At: now.Add(time.Hour)}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	c.fire("once")
	c.fire("once")
	c.fire("unknown")

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 delivery, got %+v", sender.sent)
	}
	if list, _ := c.Scheduled(ctx); len(list) != 0 {
		t.Fatalf("fired notification should be consumed: %+v", list)
	}
}

func TestCronPermission(t *testing.T) {
	ctx := context.Background()
	if p, _ := NewCron(nil, nil, nil).RequestPermission(ctx); p != PermissionDenied {
		t.Fatalf("expected denied without sender, got %s", p)
	}
	if p, _ := NewCron(nil, NewConsole(io.Discard), nil).Permission(ctx); p != PermissionGranted {
		t.Fatalf("expected granted, got %s", p)
	}
}

func TestConsoleSend(t *testing.T) {
	var buf bytes.Buffer
	if err := NewConsole(&buf).Send(context.Background(), Notification{Title: "Başlık", Body: "Gövde"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(buf.String(), "Başlık") || !strings.Contains(buf.String(), "Gövde") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestTelegramSend(t *testing.T) {
	var mu sync.Mutex
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"ritim","username":"ritim_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if err := r.ParseForm(); err == nil {
				mu.Lock()
				texts = append(texts, r.FormValue("text"))
				mu.Unlock()
			}
			_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tg, err := NewTelegramWithClient("token", srv.URL+"/bot%s/%s", srv.Client(), 42)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := tg.Send(context.Background(), Notification{Title: "Hatırlatma", Body: "Kayıt ekle"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(texts) != 1 || !strings.Contains(texts[0], "Hatırlatma") {
		t.Fatalf("unexpected messages: %v", texts)
	}
}
