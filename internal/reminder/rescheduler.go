package reminder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ritimapp/ritim/internal/logx"
	"github.com/ritimapp/ritim/internal/model"
	"github.com/ritimapp/ritim/internal/notify"
)

// ErrPermissionDenied is returned when reminders are enabled without
// notification permission.
var ErrPermissionDenied = errors.New("bildirim izni verilmedi, hatırlatıcılar gönderilemeyecek")

// Platform is the local notification surface the rescheduler drives.
type Platform interface {
	ScheduleAt(ctx context.Context, n notify.Notification) error
	Cancel(ctx context.Context, id string) error
	CancelAll(ctx context.Context) error
	Scheduled(ctx context.Context) ([]notify.Notification, error)
	Permission(ctx context.Context) (notify.Permission, error)
	RequestPermission(ctx context.Context) (notify.Permission, error)
}

// Rescheduler replaces the platform's scheduled reminders with a freshly
// computed set.
type Rescheduler struct {
	mu         sync.Mutex
	platform   Platform
	log        logx.Logger
	now        func() time.Time
	windowDays int
}

// NewRescheduler returns a rescheduler using the default window.
func NewRescheduler(platform Platform, log logx.Logger) *Rescheduler {
	if log == nil {
		log = logx.Discard{}
	}
	return &Rescheduler{
		platform:   platform,
		log:        log,
		now:        time.Now,
		windowDays: DefaultWindowDays,
	}
}

// SetWindowDays overrides the lookahead. Non-positive values are ignored.
func (r *Rescheduler) SetWindowDays(days int) {
	if days > 0 {
		r.windowDays = days
	}
}

// Result summarizes one reschedule pass.
type Result struct {
	Scheduled []Entry
	// LastID is the id of the last notification scheduled, or empty.
	LastID string
}

// Reschedule cancels every scheduled reminder and schedules the current
// set. Platform failures are logged and never returned.
func (r *Rescheduler) Reschedule(ctx context.Context, recorded map[string]bool, settings model.AppSettings) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !settings.ReminderEnabled {
		if err := r.platform.CancelAll(ctx); err != nil {
			r.log.Warnf("failed to cancel reminders: %v", err)
		}
		return Result{}
	}
	perm, err := r.platform.Permission(ctx)
	if err != nil {
		r.log.Warnf("failed to query notification permission: %v", err)
		return Result{}
	}
	if perm != notify.PermissionGranted {
		r.log.Infof("notification permission is %s; skipping reminders", perm)
		return Result{}
	}
	if err := r.platform.CancelAll(ctx); err != nil {
		r.log.Warnf("failed to cancel reminders: %v", err)
		return Result{}
	}

	at := TimeOfDay{Hour: settings.ReminderHour, Minute: settings.ReminderMinute}
	var res Result
	for _, entry := range ComputeSchedule(recorded, r.windowDays, r.now(), at) {
		if err := r.platform.ScheduleAt(ctx, entry.Notification()); err != nil {
			r.log.Warnf("failed to schedule reminder for %s: %v", entry.Date, err)
			continue
		}
		res.Scheduled = append(res.Scheduled, entry)
		res.LastID = entry.ID()
	}
	r.log.Debugf("scheduled %d reminders", len(res.Scheduled))
	return res
}

// Check is a single-day evaluation such as Tonight or TwoDaysMissing.
type Check func(recorded map[string]bool, now time.Time, at TimeOfDay) (Entry, bool)

// ScheduleToday schedules today's reminder when check selects one. It uses
// the same id as the full pass, so it never adds a duplicate.
func (r *Rescheduler) ScheduleToday(ctx context.Context, recorded map[string]bool, settings model.AppSettings, check Check) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !settings.ReminderEnabled {
		return Entry{}, false
	}
	if perm, err := r.platform.Permission(ctx); err != nil || perm != notify.PermissionGranted {
		r.log.Infof("notification permission unavailable (%s, %v); skipping reminder", perm, err)
		return Entry{}, false
	}
	at := TimeOfDay{Hour: settings.ReminderHour, Minute: settings.ReminderMinute}
	entry, ok := check(recorded, r.now(), at)
	if !ok {
		return Entry{}, false
	}
	if err := r.platform.ScheduleAt(ctx, entry.Notification()); err != nil {
		r.log.Warnf("failed to schedule reminder for %s: %v", entry.Date, err)
		return Entry{}, false
	}
	return entry, true
}

// permission reports the platform permission, or "" when it cannot be read.
func (r *Rescheduler) permission(ctx context.Context) notify.Permission {
	perm, err := r.platform.Permission(ctx)
	if err != nil {
		return ""
	}
	return perm
}

// Enable asks for notification permission when the user turns reminders
// on. ErrPermissionDenied carries the advisory shown to the user.
func (r *Rescheduler) Enable(ctx context.Context) error {
	perm, err := r.platform.RequestPermission(ctx)
	if err != nil {
		r.log.Warnf("failed to request notification permission: %v", err)
		return ErrPermissionDenied
	}
	if perm != notify.PermissionGranted {
		return ErrPermissionDenied
	}
	return nil
}
