package remote

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/ritimapp/ritim/internal/model"
)

var testNow = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

func openTestClient(t *testing.T) *Client {
	t.Helper()
	db, err := sqlx.Open("sqlite", filepath.Join(t.TempDir(), "remote.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	c := New(db, nil)
	c.now = func() time.Time { return testNow }
	t.Cleanup(func() { _ = c.Close() })
	if err := c.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return c
}

func intp(n int) *int { return &n }

func TestUpsertRecordsLastWriteWins(t *testing.T) {
	ctx := context.Background()
	c := openTestClient(t)
	rec := model.DailyRecord{
		Date:             "2024-03-04",
		TrackID:          model.TrackTYT,
		FocusMinutes:     90,
		ActivityType:     model.ActivityMixed,
		QuestionCount:    intp(40),
		SubjectBreakdown: map[string]int{"matematik": 40},
	}
	if err := c.UpsertRecords(ctx, []RecordRow{RecordRowFrom("u1", rec, false, 200)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	stale := rec
	stale.FocusMinutes = 10
	if err := c.UpsertRecords(ctx, []RecordRow{RecordRowFrom("u1", stale, false, 100)}); err != nil {
		t.Fatalf("stale upsert: %v", err)
	}
	got, err := c.StudentRecords(ctx, "u1", "2024-03-01")
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(got) != 1 || got[0].FocusMinutes != 90 {
		t.Fatalf("stale write must not win: %+v", got)
	}
	if got[0].Questions() != 40 || got[0].SubjectBreakdown["matematik"] != 40 {
		t.Fatalf("unexpected round-trip: %+v", got[0])
	}

	if err := c.UpsertRecords(ctx, []RecordRow{RecordRowFrom("u1", rec, true, 300)}); err != nil {
		t.Fatalf("tombstone upsert: %v", err)
	}
	got, err = c.StudentRecords(ctx, "u1", "2024-03-01")
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("tombstoned record must be hidden: %+v", got)
	}
}

func TestUpsertExamsAndProfile(t *testing.T) {
	ctx := context.Background()
	c := openTestClient(t)
	exam := model.ExamRecord{
		ID:            "1-abc",
		TrackID:       model.TrackTYT,
		Date:          "2024-03-03",
		Type:          model.ExamFull,
		CorrectTotal:  60,
		WrongTotal:    20,
		BlankTotal:    10,
		SubjectScores: map[string]model.SubjectScore{"turkce": {Correct: 30, Wrong: 8, Blank: 2}},
		CreatedAtMs:   1,
		UpdatedAtMs:   1,
	}
	if err := c.UpsertExams(ctx, []ExamRow{ExamRowFrom("u1", exam)}); err != nil {
		t.Fatalf("upsert exam: %v", err)
	}
	exams, err := c.StudentExams(ctx, "u1", "2024-03-01")
	if err != nil {
		t.Fatalf("exams: %v", err)
	}
	if len(exams) != 1 || exams[0].Net() != 55 || exams[0].SubjectScores["turkce"].Wrong != 8 {
		t.Fatalf("unexpected exams: %+v", exams)
	}

	if err := c.UpsertProfile(ctx, Profile{UserID: "u1", ActiveTrack: "TYT", DisplayName: "Ada", UpdatedAtMs: 5}); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if err := c.UpsertProfile(ctx, Profile{UserID: "u1", ActiveTrack: "AYT", DisplayName: "Ada", UpdatedAtMs: 3}); err != nil {
		t.Fatalf("stale profile: %v", err)
	}
	p, ok, err := c.Profile(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("get profile: %v %v", ok, err)
	}
	if p.ActiveTrack != "TYT" {
		t.Fatalf("stale profile must not win: %+v", p)
	}
}

func TestInviteLifecycle(t *testing.T) {
	ctx := context.Background()
	c := openTestClient(t)
	if err := c.CreateInvite(ctx, Invite{Code: "ABC123", CoachID: "coach", CoachName: "Ece Hoca"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.VerifyInvite(ctx, "NOPE"); !errors.Is(err, ErrInviteNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	inv, err := c.VerifyInvite(ctx, "ABC123")
	if err != nil || inv.CoachName != "Ece Hoca" {
		t.Fatalf("verify: %+v %v", inv, err)
	}
	if _, err := c.ConsumeInvite(ctx, "ABC123", "u1"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, err := c.ConsumeInvite(ctx, "ABC123", "u2"); !errors.Is(err, ErrInviteUsed) {
		t.Fatalf("expected used, got %v", err)
	}
	if err := c.ReleaseInvite(ctx, "ABC123", "coach", "u1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if students, err := c.Students(ctx, "coach", "2000-01-01"); err != nil || len(students) != 0 {
		t.Fatalf("release must drop the link: %+v %v", students, err)
	}
	if _, err := c.ConsumeInvite(ctx, "ABC123", "u1"); err != nil {
		t.Fatalf("released code must be usable again: %v", err)
	}

	if err := c.CreateInvite(ctx, Invite{Code: "TEAM", CoachID: "coach", MaxUses: 2}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.ConsumeInvite(ctx, "TEAM", "u1"); !errors.Is(err, ErrAlreadyLinked) {
		t.Fatalf("expected already linked, got %v", err)
	}
	for _, student := range []string{"u2", "u3"} {
		if _, err := c.ConsumeInvite(ctx, "TEAM", student); err != nil {
			t.Fatalf("consume %s: %v", student, err)
		}
	}
	if _, err := c.ConsumeInvite(ctx, "TEAM", "u4"); !errors.Is(err, ErrInviteLimit) {
		t.Fatalf("expected limit, got %v", err)
	}

	expired := Invite{Code: "OLD", CoachID: "coach", ExpiresAtMs: sql.NullInt64{Int64: testNow.Add(-time.Hour).UnixMilli(), Valid: true}}
	if err := c.CreateInvite(ctx, expired); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.VerifyInvite(ctx, "OLD"); !errors.Is(err, ErrInviteExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if err := c.CreateInvite(ctx, Invite{Code: "GONE", CoachID: "coach"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := c.RevokeInvite(ctx, "GONE"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := c.VerifyInvite(ctx, "GONE"); !errors.Is(err, ErrInviteRevoked) {
		t.Fatalf("expected revoked, got %v", err)
	}
}

func TestStudentsSummary(t *testing.T) {
	ctx := context.Background()
	c := openTestClient(t)
	if err := c.CreateInvite(ctx, Invite{Code: "TEAM", CoachID: "coach", MaxUses: 5}); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, student := range []string{"u1", "u2"} {
		if _, err := c.ConsumeInvite(ctx, "TEAM", student); err != nil {
			t.Fatalf("consume: %v", err)
		}
	}
	rows := []RecordRow{
		RecordRowFrom("u1", model.DailyRecord{Date: "2024-03-01", TrackID: model.TrackTYT, FocusMinutes: 30, QuestionCount: intp(10)}, false, 1),
		RecordRowFrom("u1", model.DailyRecord{Date: "2024-03-02", TrackID: model.TrackTYT, FocusMinutes: 45}, false, 1),
		RecordRowFrom("u1", model.DailyRecord{Date: "2024-01-02", TrackID: model.TrackTYT, FocusMinutes: 500}, false, 1),
	}
	if err := c.UpsertRecords(ctx, rows); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := c.UpsertProfile(ctx, Profile{UserID: "u1", ActiveTrack: "TYT", DisplayName: "Ada", UpdatedAtMs: 1}); err != nil {
		t.Fatalf("profile: %v", err)
	}

	students, err := c.Students(ctx, "coach", "2024-02-04")
	if err != nil {
		t.Fatalf("students: %v", err)
	}
	if len(students) != 2 {
		t.Fatalf("expected 2 students, got %+v", students)
	}
	first := students[0]
	if first.ID != "u1" || first.DisplayName != "Ada" || first.DaysRecorded != 2 || first.FocusMinutes != 75 || first.Questions != 10 {
		t.Fatalf("unexpected summary: %+v", first)
	}
	if first.LastDate != "2024-03-02" {
		t.Fatalf("unexpected last date %q", first.LastDate)
	}
	if students[1].ID != "u2" || students[1].DaysRecorded != 0 || students[1].LastDate != "" {
		t.Fatalf("unexpected empty summary: %+v", students[1])
	}

	if err := c.Unlink(ctx, "coach", "u2"); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	students, err = c.Students(ctx, "coach", "2024-02-04")
	if err != nil || len(students) != 1 {
		t.Fatalf("expected one student after unlink: %+v %v", students, err)
	}
}
