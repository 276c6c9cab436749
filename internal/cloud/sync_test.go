package cloud

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ritimapp/ritim/internal/model"
	"github.com/ritimapp/ritim/internal/remote"
)

type fakeRemote struct {
	mu       sync.Mutex
	err      error
	records  []remote.RecordRow
	exams    []remote.ExamRow
	profiles []remote.Profile
}

func (f *fakeRemote) UpsertRecords(_ context.Context, rows []remote.RecordRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rows...)
	return nil
}

func (f *fakeRemote) UpsertExams(_ context.Context, rows []remote.ExamRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.exams = append(f.exams, rows...)
	return nil
}

func (f *fakeRemote) UpsertProfile(_ context.Context, p remote.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.profiles = append(f.profiles, p)
	return nil
}

var testNow = time.Date(2024, 3, 31, 15, 0, 0, 0, time.UTC)

func newTestSyncer(r Remote) *Syncer {
	s := NewSyncer(r, &Session{UserID: "u1"}, nil)
	s.now = func() time.Time { return testNow }
	return s
}

func TestShouldSync(t *testing.T) {
	session := &Session{UserID: "u1"}
	tests := []struct {
		name      string
		date      string
		connected bool
		session   *Session
		want      bool
	}{
		{"today", "2024-03-31", true, session, true},
		{"thirty days ago", "2024-03-01", true, session, true},
		{"thirty-one days ago", "2024-02-29", true, session, false},
		{"future", "2024-04-10", true, session, true},
		{"not connected", "2024-03-31", false, session, false},
		{"no session", "2024-03-31", true, nil, false},
		{"bad date", "31.03.2024", true, session, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldSync(tt.date, tt.connected, tt.session, testNow); got != tt.want {
				t.Fatalf("ShouldSync(%s) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestSyncRecordRespectsPolicy(t *testing.T) {
	ctx := context.Background()
	r := &fakeRemote{}
	s := newTestSyncer(r)
	rec := model.DailyRecord{Date: "2024-03-30", TrackID: model.TrackTYT, FocusMinutes: 25, ActivityType: model.ActivityTopicStudy}

	if err := s.SyncRecord(ctx, rec, false); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(r.records) != 0 {
		t.Fatalf("disconnected coach must not sync")
	}
	if err := s.SyncRecord(ctx, rec, true); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := s.DeleteRecord(ctx, model.TrackTYT, "2024-03-30", true); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(r.records) != 2 || r.records[0].IsDeleted || !r.records[1].IsDeleted {
		t.Fatalf("unexpected rows: %+v", r.records)
	}
	if r.records[1].UserID != "u1" || r.records[1].UpdatedAtMs != testNow.UnixMilli() {
		t.Fatalf("unexpected tombstone: %+v", r.records[1])
	}
}

func TestSyncErrorsAreReturnedAndBackgroundDrains(t *testing.T) {
	r := &fakeRemote{err: errors.New("offline")}
	s := newTestSyncer(r)
	e := model.ExamRecord{ID: "x", Date: "2024-03-30", TrackID: model.TrackTYT, Type: model.ExamFull}
	if err := s.SyncExam(context.Background(), e, true); err == nil {
		t.Fatalf("expected remote error")
	}

	r.err = nil
	s.GoSyncExam(e, true)
	s.GoSyncRecord(model.DailyRecord{Date: "2024-03-30", TrackID: model.TrackTYT}, true)
	s.GoDeleteRecord(model.TrackTYT, "2024-03-29", true)
	s.Wait()
	if len(r.exams) != 1 || len(r.records) != 2 {
		t.Fatalf("background syncs did not finish: %d exams, %d records", len(r.exams), len(r.records))
	}
}

func TestInitialSyncFiltersWindow(t *testing.T) {
	ctx := context.Background()
	r := &fakeRemote{}
	s := newTestSyncer(r)
	records := map[string]model.DailyRecord{
		"TYT__2024-03-30": {Date: "2024-03-30", TrackID: model.TrackTYT},
		"TYT__2024-01-01": {Date: "2024-01-01", TrackID: model.TrackTYT},
	}
	exams := map[string]model.ExamRecord{
		"a": {ID: "a", Date: "2024-03-20", TrackID: model.TrackTYT},
		"b": {ID: "b", Date: "2023-12-20", TrackID: model.TrackTYT},
	}
	if err := s.SyncInitialLast30Days(ctx, records); err != nil {
		t.Fatalf("records: %v", err)
	}
	if err := s.SyncInitialExamsLast30Days(ctx, exams); err != nil {
		t.Fatalf("exams: %v", err)
	}
	if len(r.records) != 1 || r.records[0].Date != "2024-03-30" {
		t.Fatalf("unexpected records: %+v", r.records)
	}
	if len(r.exams) != 1 || r.exams[0].ID != "a" {
		t.Fatalf("unexpected exams: %+v", r.exams)
	}

	r.err = errors.New("offline")
	if err := s.SyncInitialLast30Days(ctx, records); err == nil {
		t.Fatalf("expected initial sync failure")
	}
	noSession := NewSyncer(r, nil, nil)
	if err := noSession.SyncInitialLast30Days(ctx, records); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestPushProfile(t *testing.T) {
	r := &fakeRemote{}
	s := newTestSyncer(r)
	settings := model.DefaultSettings()
	settings.ActiveTrack = model.TrackAYT
	settings.DisplayName = "Ada"
	if err := s.PushProfile(context.Background(), settings); err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(r.profiles) != 1 || r.profiles[0].ActiveTrack != "AYT" || r.profiles[0].DisplayName != "Ada" {
		t.Fatalf("unexpected profiles: %+v", r.profiles)
	}
}
