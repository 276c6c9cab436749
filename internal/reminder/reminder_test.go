package reminder

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/ritimapp/ritim/internal/model"
	"github.com/ritimapp/ritim/internal/notify"
)

type fakePlatform struct {
	perm       notify.Permission
	permErr    error
	failID     string
	scheduled  map[string]notify.Notification
	cancelAlls int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{perm: notify.PermissionGranted, scheduled: map[string]notify.Notification{}}
}

func (f *fakePlatform) ScheduleAt(_ context.Context, n notify.Notification) error {
	if n.ID == f.failID {
		return errors.New("boom")
	}
	f.scheduled[n.ID] = n
	return nil
}

func (f *fakePlatform) Cancel(_ context.Context, id string) error {
	delete(f.scheduled, id)
	return nil
}

func (f *fakePlatform) CancelAll(context.Context) error {
	f.cancelAlls++
	f.scheduled = map[string]notify.Notification{}
	return nil
}

func (f *fakePlatform) Scheduled(context.Context) ([]notify.Notification, error) {
	out := make([]notify.Notification, 0, len(f.scheduled))
	for _, n := range f.scheduled {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePlatform) Permission(context.Context) (notify.Permission, error) {
	return f.perm, f.permErr
}

func (f *fakePlatform) RequestPermission(context.Context) (notify.Permission, error) {
	return f.perm, nil
}

var testNow = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

func TestComputeScheduleSkipsRecordedToday(t *testing.T) {
	recorded := map[string]bool{"2024-03-05": true}
	entries := ComputeSchedule(recorded, DefaultWindowDays, testNow, DefaultTime)
	if len(entries) != DefaultWindowDays-1 {
		t.Fatalf("expected %d entries, got %d", DefaultWindowDays-1, len(entries))
	}
	for _, e := range entries {
		if e.Date == "2024-03-05" {
			t.Fatalf("today is recorded and must not be scheduled")
		}
	}
	if entries[0].Date != "2024-03-06" || entries[0].MissingStreak != 0 || entries[0].Tier != TierStandard {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].MissingStreak != 1 || entries[1].Tier != TierStandard {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
	if entries[2].Date != "2024-03-08" || entries[2].MissingStreak != 2 || entries[2].Tier != TierStreak {
		t.Fatalf("expected streak tier with two missing days: %+v", entries[2])
	}
	want := time.Date(2024, 3, 6, 20, 30, 0, 0, time.UTC)
	if !entries[0].TriggerAt.Equal(want) {
		t.Fatalf("unexpected trigger: %v", entries[0].TriggerAt)
	}
}

func TestComputeScheduleStreakTier(t *testing.T) {
	recorded := map[string]bool{"2024-03-02": true}
	entry, ok := Tonight(recorded, testNow, DefaultTime)
	if !ok {
		t.Fatalf("expected a reminder tonight")
	}
	if entry.MissingStreak != 2 || entry.Tier != TierStreak {
		t.Fatalf("unexpected tonight entry: %+v", entry)
	}
	n := entry.Notification()
	if n.ID != "ritim-reminder-2024-03-05" || n.Title != "2 gündür kayıt yok" {
		t.Fatalf("unexpected notification: %+v", n)
	}
	if _, ok := TwoDaysMissing(recorded, testNow, DefaultTime); !ok {
		t.Fatalf("expected two-days-missing reminder")
	}
	if _, ok := TwoDaysMissing(map[string]bool{"2024-03-04": true}, testNow, DefaultTime); ok {
		t.Fatalf("yesterday recorded: no two-days-missing reminder")
	}
}

func TestComputeScheduleSkipsPastTriggers(t *testing.T) {
	late := time.Date(2024, 3, 5, 20, 30, 0, 0, time.UTC)
	entries := ComputeSchedule(nil, 2, late, DefaultTime)
	if len(entries) != 1 || entries[0].Date != "2024-03-06" {
		t.Fatalf("trigger equal to now must be skipped: %+v", entries)
	}
	if entries[0].MissingStreak != MaxStreakLookback {
		t.Fatalf("expected capped streak, got %d", entries[0].MissingStreak)
	}
}

func TestRecordedDatesIgnoresTombstones(t *testing.T) {
	records := map[string]model.DailyRecord{"TYT__2024-03-01": {Date: "2024-03-01", TrackID: model.TrackTYT}}
	exams := map[string]model.ExamRecord{
		"a": {ID: "a", Date: "2024-03-02"},
		"b": {ID: "b", Date: "2024-03-03", IsDeleted: true},
	}
	got := RecordedDates(records, exams)
	want := map[string]bool{"2024-03-01": true, "2024-03-02": true}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected dates: %v", got)
	}
}

func TestRescheduleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p := newFakePlatform()
	r := NewRescheduler(p, nil)
	r.now = func() time.Time { return testNow }
	settings := model.DefaultSettings()
	recorded := map[string]bool{"2024-03-05": true}

	first := r.Reschedule(ctx, recorded, settings)
	snapshot, _ := p.Scheduled(ctx)
	second := r.Reschedule(ctx, recorded, settings)
	again, _ := p.Scheduled(ctx)

	if len(first.Scheduled) != DefaultWindowDays-1 || len(again) != DefaultWindowDays-1 {
		t.Fatalf("unexpected counts: %d %d", len(first.Scheduled), len(again))
	}
	if !reflect.DeepEqual(snapshot, again) {
		t.Fatalf("reschedule is not idempotent")
	}
	if first.LastID != second.LastID || first.LastID != "ritim-reminder-2024-03-18" {
		t.Fatalf("unexpected last id: %q %q", first.LastID, second.LastID)
	}
	if p.cancelAlls != 2 {
		t.Fatalf("expected cancel-all per pass, got %d", p.cancelAlls)
	}
}

func TestRescheduleDisabledAndDenied(t *testing.T) {
	ctx := context.Background()
	p := newFakePlatform()
	p.scheduled["stale"] = notify.Notification{ID: "stale"}
	r := NewRescheduler(p, nil)
	r.now = func() time.Time { return testNow }

	settings := model.DefaultSettings()
	settings.ReminderEnabled = false
	if res := r.Reschedule(ctx, nil, settings); len(res.Scheduled) != 0 {
		t.Fatalf("expected nothing scheduled when disabled")
	}
	if len(p.scheduled) != 0 {
		t.Fatalf("disabled reminders must cancel everything")
	}

	p.perm = notify.PermissionDenied
	if res := r.Reschedule(ctx, nil, model.DefaultSettings()); len(res.Scheduled) != 0 {
		t.Fatalf("expected nothing scheduled without permission")
	}
	if err := r.Enable(ctx); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestRescheduleSkipsFailedEntries(t *testing.T) {
	ctx := context.Background()
	p := newFakePlatform()
	p.failID = "ritim-reminder-2024-03-06"
	r := NewRescheduler(p, nil)
	r.now = func() time.Time { return testNow }
	r.SetWindowDays(3)

	res := r.Reschedule(ctx, nil, model.DefaultSettings())
	if len(res.Scheduled) != 2 {
		t.Fatalf("expected failed entry to be skipped, got %+v", res.Scheduled)
	}
	if _, ok := p.scheduled[p.failID]; ok {
		t.Fatalf("failed entry must not be scheduled")
	}
}

type fakeSource struct {
	records  map[string]model.DailyRecord
	settings model.AppSettings
	saves    int
}

func (f *fakeSource) LoadRecords(context.Context) map[string]model.DailyRecord { return f.records }

func (f *fakeSource) LoadExams(context.Context) map[string]model.ExamRecord { return nil }

func (f *fakeSource) LoadSettings(context.Context) model.AppSettings { return f.settings }

func (f *fakeSource) SaveSettings(_ context.Context, s model.AppSettings) error {
	f.saves++
	f.settings = s
	return nil
}

func TestWatcherReschedulesOnChange(t *testing.T) {
	ctx := context.Background()
	p := newFakePlatform()
	r := NewRescheduler(p, nil)
	now := testNow
	r.now = func() time.Time { return now }
	src := &fakeSource{records: map[string]model.DailyRecord{}, settings: model.DefaultSettings()}
	w := NewWatcher(src, r, nil)

	if !w.Check(ctx) {
		t.Fatalf("first check must reschedule")
	}
	if src.settings.LastNotificationID != "ritim-reminder-2024-03-18" || src.saves != 1 {
		t.Fatalf("expected last id saved, got %q (%d saves)", src.settings.LastNotificationID, src.saves)
	}
	if w.Check(ctx) {
		t.Fatalf("unchanged state must not reschedule")
	}

	src.records["TYT__2024-03-05"] = model.DailyRecord{Date: "2024-03-05", TrackID: model.TrackTYT}
	if !w.Check(ctx) {
		t.Fatalf("new record must reschedule")
	}
	if _, ok := p.scheduled["ritim-reminder-2024-03-05"]; ok {
		t.Fatalf("recorded day must not be scheduled")
	}

	now = now.Add(24 * time.Hour)
	if !w.Check(ctx) {
		t.Fatalf("day rollover must reschedule")
	}
	if p.cancelAlls != 3 {
		t.Fatalf("expected 3 passes, got %d", p.cancelAlls)
	}
}

func TestWatcherRetriesWhenPermissionChanges(t *testing.T) {
	ctx := context.Background()
	p := newFakePlatform()
	p.perm = notify.PermissionDenied
	r := NewRescheduler(p, nil)
	r.now = func() time.Time { return testNow }
	src := &fakeSource{records: map[string]model.DailyRecord{}, settings: model.DefaultSettings()}
	w := NewWatcher(src, r, nil)

	if !w.Check(ctx) || len(p.scheduled) != 0 {
		t.Fatalf("denied permission must schedule nothing")
	}
	if w.Check(ctx) {
		t.Fatalf("unchanged denied state must not reschedule")
	}

	p.perm = notify.PermissionGranted
	p.permErr = errors.New("unavailable")
	if !w.Check(ctx) || !w.Check(ctx) {
		t.Fatalf("unreadable permission must be retried on every check")
	}

	p.permErr = nil
	if !w.Check(ctx) {
		t.Fatalf("granted permission must reschedule")
	}
	if len(p.scheduled) != DefaultWindowDays {
		t.Fatalf("expected %d reminders, got %d", DefaultWindowDays, len(p.scheduled))
	}
}

func TestScheduleTodayChecks(t *testing.T) {
	ctx := context.Background()
	p := newFakePlatform()
	r := NewRescheduler(p, nil)
	r.now = func() time.Time { return testNow }
	settings := model.DefaultSettings()

	entry, ok := r.ScheduleToday(ctx, map[string]bool{"2024-03-04": true}, settings, Tonight)
	if !ok || entry.Date != "2024-03-05" || entry.Tier != TierStandard {
		t.Fatalf("unexpected tonight entry: %+v %t", entry, ok)
	}
	if _, ok := p.scheduled[entry.ID()]; !ok {
		t.Fatalf("tonight reminder not scheduled")
	}

	p.scheduled = map[string]notify.Notification{}
	if _, ok := r.ScheduleToday(ctx, map[string]bool{"2024-03-04": true}, settings, TwoDaysMissing); ok {
		t.Fatalf("one missed day must not trigger the two-days check")
	}
	entry, ok = r.ScheduleToday(ctx, nil, settings, TwoDaysMissing)
	if !ok || entry.Tier != TierStreak || len(p.scheduled) != 1 {
		t.Fatalf("expected streak reminder, got %+v %t", entry, ok)
	}

	if _, ok := r.ScheduleToday(ctx, map[string]bool{"2024-03-05": true}, settings, Tonight); ok {
		t.Fatalf("recorded today must not schedule")
	}
	settings.ReminderEnabled = false
	if _, ok := r.ScheduleToday(ctx, nil, settings, Tonight); ok {
		t.Fatalf("disabled reminders must not schedule")
	}
}
