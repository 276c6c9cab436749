package reminder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ritimapp/ritim/internal/logx"
	"github.com/ritimapp/ritim/internal/model"
	"github.com/ritimapp/ritim/internal/notify"
)

// DefaultPollInterval is how often a Watcher rereads the store.
const DefaultPollInterval = time.Minute

// Source is the persisted state a Watcher follows.
type Source interface {
	LoadRecords(ctx context.Context) map[string]model.DailyRecord
	LoadExams(ctx context.Context) map[string]model.ExamRecord
	LoadSettings(ctx context.Context) model.AppSettings
	SaveSettings(ctx context.Context, settings model.AppSettings) error
}

// Watcher reschedules reminders whenever the recorded days, the reminder
// settings, the notification permission or the current day change. Other processes write the store, so
// it polls.
type Watcher struct {
	source   Source
	resched  *Rescheduler
	log      logx.Logger
	interval time.Duration
	last     string
}

// NewWatcher returns a watcher polling at DefaultPollInterval.
func NewWatcher(source Source, resched *Rescheduler, log logx.Logger) *Watcher {
	if log == nil {
		log = logx.Discard{}
	}
	return &Watcher{source: source, resched: resched, log: log, interval: DefaultPollInterval}
}

// SetInterval overrides the poll interval. Non-positive values are ignored.
func (w *Watcher) SetInterval(d time.Duration) {
	if d > 0 {
		w.interval = d
	}
}

// fingerprint identifies the inputs of a reschedule pass.
func fingerprint(recorded map[string]bool, settings model.AppSettings, perm notify.Permission, today string) string {
	dates := make([]string, 0, len(recorded))
	for d := range recorded {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return fmt.Sprintf("%s|%s|%t|%02d:%02d|%s", today, perm, settings.ReminderEnabled,
		settings.ReminderHour, settings.ReminderMinute, strings.Join(dates, ","))
}

// Check reschedules when anything relevant changed since the last pass and
// reports whether it did.
func (w *Watcher) Check(ctx context.Context) bool {
	settings := w.source.LoadSettings(ctx)
	recorded := RecordedDates(w.source.LoadRecords(ctx), w.source.LoadExams(ctx))
	perm := w.resched.permission(ctx)
	key := fingerprint(recorded, settings, perm, model.FormatDate(w.resched.now()))
	if key == w.last {
		return false
	}
	// An unreadable permission is retried on the next tick.
	if perm != "" {
		w.last = key
	} else {
		w.last = ""
	}
	res := w.resched.Reschedule(ctx, recorded, settings)
	if res.LastID != settings.LastNotificationID {
		settings.LastNotificationID = res.LastID
		if err := w.source.SaveSettings(ctx, settings); err != nil {
			w.log.Warnf("failed to save last notification id: %v", err)
		}
	}
	return true
}

// Run checks immediately and then on every tick until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	w.Check(ctx)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}
