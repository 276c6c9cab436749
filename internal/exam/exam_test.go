package exam

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ritimapp/ritim/internal/model"
)

func TestDisplayNamesCollisions(t *testing.T) {
	exams := []model.ExamRecord{
		{ID: "c", TrackID: model.TrackTYT, Date: "2024-03-05", Type: model.ExamFull, CreatedAtMs: 3},
		{ID: "a", TrackID: model.TrackTYT, Date: "2024-03-05", Type: model.ExamFull, CreatedAtMs: 1},
		{ID: "b", TrackID: model.TrackTYT, Date: "2024-03-05", Type: model.ExamFull, CreatedAtMs: 2},
	}
	names := DisplayNames(exams)
	want := map[string]string{
		"a": "TYT Genel Deneme – 5 Mar",
		"b": "TYT Genel Deneme – 5 Mar (2)",
		"c": "TYT Genel Deneme – 5 Mar (3)",
	}
	for id, name := range want {
		if names[id] != name {
			t.Fatalf("name of %s = %q, want %q", id, names[id], name)
		}
	}
}

func TestDisplayNameUserNameAndBranch(t *testing.T) {
	named := model.ExamRecord{Name: "Özdebir 3", Type: model.ExamFull, Date: "2024-03-05"}
	if got := DisplayName(named, model.TrackTYT, []string{"Özdebir 3"}); got != "Özdebir 3" {
		t.Fatalf("user name must win, got %q", got)
	}
	branch := model.ExamRecord{Type: model.ExamBranch, SubjectKey: "fen", Date: "2024-08-14"}
	if got := DisplayName(branch, model.TrackLGS8, nil); got != "Fen Bilimleri Denemesi – 14 Ağu" {
		t.Fatalf("unexpected branch name %q", got)
	}
	preceding := []string{"Fen Bilimleri Denemesi – 14 Ağu", "Fen Bilimleri Denemesi – 14 Ağu (3)"}
	if got := DisplayName(branch, model.TrackLGS8, preceding); got != "Fen Bilimleri Denemesi – 14 Ağu (2)" {
		t.Fatalf("expected first unused suffix, got %q", got)
	}
}

func TestBuildFullExamSumsSubjects(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	e, err := Build(Input{
		TrackID: model.TrackTYT,
		Date:    "2024-03-05",
		Type:    model.ExamFull,
		SubjectScores: map[string]model.SubjectScore{
			"turkce":    {Correct: 30, Wrong: 8, Blank: 2},
			"matematik": {Correct: 30, Wrong: 12, Blank: 8},
		},
		DurationMinutes: 165,
	}, now)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if e.CorrectTotal != 60 || e.WrongTotal != 20 || e.BlankTotal != 10 {
		t.Fatalf("unexpected totals: %+v", e)
	}
	if e.Net() != 55 {
		t.Fatalf("unexpected net %v", e.Net())
	}
	if e.CreatedAtMs != now.UnixMilli() || e.UpdatedAtMs != now.UnixMilli() {
		t.Fatalf("unexpected timestamps: %+v", e)
	}
	if !strings.HasPrefix(e.ID, "1700000000000-") || len(e.ID) != len("1700000000000-")+8 {
		t.Fatalf("unexpected id %q", e.ID)
	}
	if e.DurationMinutes == nil || *e.DurationMinutes != 165 {
		t.Fatalf("unexpected duration: %v", e.DurationMinutes)
	}
}

func TestApplyValidation(t *testing.T) {
	now := time.Now()
	if _, err := Build(Input{TrackID: "X", Date: "2024-03-05"}, now); !errors.Is(err, ErrInvalidTrack) {
		t.Fatalf("expected ErrInvalidTrack, got %v", err)
	}
	if _, err := Build(Input{TrackID: model.TrackTYT, Date: "5 Mar"}, now); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := Build(Input{TrackID: model.TrackTYT, Date: "2024-03-05", Type: model.ExamBranch, SubjectKey: "fizik"}, now); !errors.Is(err, ErrUnknownSubject) {
		t.Fatalf("expected ErrUnknownSubject, got %v", err)
	}
	if _, err := Build(Input{TrackID: model.TrackTYT, Date: "2024-03-05", Correct: -1}, now); !errors.Is(err, ErrNegativeCount) {
		t.Fatalf("expected ErrNegativeCount, got %v", err)
	}

	e, err := Build(Input{TrackID: model.TrackAYT, Date: "2024-03-05", Type: model.ExamBranch, SubjectKey: "fizik", Correct: 10, Wrong: 4}, now)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	before := e
	if err := Apply(&e, Input{TrackID: model.TrackAYT, Date: "bad"}, now.Add(time.Minute)); err == nil {
		t.Fatalf("expected validation error")
	}
	if e.UpdatedAtMs != before.UpdatedAtMs || e.Date != before.Date {
		t.Fatalf("failed apply must not mutate the exam")
	}
}

func TestTombstone(t *testing.T) {
	e := model.ExamRecord{ID: "x"}
	now := time.UnixMilli(42)
	Tombstone(&e, now)
	if !e.IsDeleted || e.DeletedAtMs == nil || *e.DeletedAtMs != 42 || e.UpdatedAtMs != 42 {
		t.Fatalf("unexpected tombstone: %+v", e)
	}
}
