package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ritimapp/ritim/internal/model"
)

var testNow = time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

func intp(n int) *int { return &n }

func sampleRecords() map[string]model.DailyRecord {
	recs := []model.DailyRecord{
		{Date: "2024-03-10", TrackID: model.TrackTYT, FocusMinutes: 60, QuestionCount: intp(30), SubjectBreakdown: map[string]int{"matematik": 30}},
		{Date: "2024-03-09", TrackID: model.TrackTYT, FocusMinutes: 30},
		{Date: "2024-03-08", TrackID: model.TrackTYT, FocusMinutes: 45, QuestionCount: intp(10)},
		{Date: "2024-03-05", TrackID: model.TrackTYT, FocusMinutes: 20},
		{Date: "2024-03-04", TrackID: model.TrackTYT, FocusMinutes: 20},
		{Date: "2024-03-03", TrackID: model.TrackTYT, FocusMinutes: 20},
		{Date: "2024-03-02", TrackID: model.TrackTYT, FocusMinutes: 20},
		{Date: "2024-03-10", TrackID: model.TrackAYT, FocusMinutes: 500},
		{Date: "2023-12-01", TrackID: model.TrackTYT, FocusMinutes: 500},
	}
	out := map[string]model.DailyRecord{}
	for _, r := range recs {
		out[r.Key()] = r
	}
	return out
}

func sampleExams() map[string]model.ExamRecord {
	return map[string]model.ExamRecord{
		"a": {ID: "a", TrackID: model.TrackTYT, Date: "2024-03-03", Type: model.ExamFull, CorrectTotal: 60, WrongTotal: 20, BlankTotal: 0, CreatedAtMs: 1,
			SubjectScores: map[string]model.SubjectScore{
				"turkce":    {Correct: 30, Wrong: 4},
				"matematik": {Correct: 30, Wrong: 16},
			}},
		"b": {ID: "b", TrackID: model.TrackTYT, Date: "2024-03-07", Type: model.ExamFull, CorrectTotal: 50, WrongTotal: 10, CreatedAtMs: 2,
			SubjectScores: map[string]model.SubjectScore{
				"turkce":    {Correct: 34, Wrong: 2},
				"matematik": {Correct: 16, Wrong: 8},
			}},
		"c": {ID: "c", TrackID: model.TrackTYT, Date: "2024-03-08", Type: model.ExamBranch, SubjectKey: "fen", CorrectTotal: 12, WrongTotal: 4, CreatedAtMs: 3},
		"d": {ID: "d", TrackID: model.TrackTYT, Date: "2024-03-08", Type: model.ExamFull, IsDeleted: true, CreatedAtMs: 4},
	}
}

func TestSummarize(t *testing.T) {
	report := BuildReport(sampleRecords(), sampleExams(), model.TrackTYT, 30, testNow)
	s := report.Summary
	if s.DaysRecorded != 7 || s.FocusMinutes != 215 || s.Questions != 40 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if s.CurrentStreak != 3 || s.LongestStreak != 4 {
		t.Fatalf("unexpected streaks: %+v", s)
	}
	if math.Abs(s.AvgFocus-215.0/7) > 1e-9 {
		t.Fatalf("unexpected average: %v", s.AvgFocus)
	}

	yesterday := []model.DailyRecord{{Date: "2024-03-09"}, {Date: "2024-03-08"}}
	if got := Summarize(yesterday, testNow).CurrentStreak; got != 2 {
		t.Fatalf("streak must survive an unrecorded today, got %d", got)
	}
	if got := Summarize([]model.DailyRecord{{Date: "2024-03-07"}}, testNow).CurrentStreak; got != 0 {
		t.Fatalf("expected broken streak, got %d", got)
	}
}

func TestDailyFocus(t *testing.T) {
	report := BuildReport(sampleRecords(), nil, model.TrackTYT, 3, testNow)
	want := []float64{45, 30, 60}
	if len(report.Focus) != len(want) {
		t.Fatalf("unexpected focus series: %v", report.Focus)
	}
	for i := range want {
		if report.Focus[i] != want[i] {
			t.Fatalf("unexpected focus series: %v", report.Focus)
		}
	}
	if got := Sparkline(report.Focus); len(got) != 3 || got[2] != '@' {
		t.Fatalf("unexpected sparkline %q", got)
	}
}

func TestBuildReportExams(t *testing.T) {
	report := BuildReport(sampleRecords(), sampleExams(), model.TrackTYT, 30, testNow)
	if len(report.Exams) != 3 {
		t.Fatalf("expected 3 live exams, got %d", len(report.Exams))
	}
	if report.Exams[0].ID != "a" || report.Exams[2].ID != "c" {
		t.Fatalf("exams must be in creation order: %+v", report.Exams)
	}
	if report.Names["a"] != "TYT Genel Deneme – 3 Mar" || report.Names["c"] != "Fen Bilimleri Denemesi – 8 Mar" {
		t.Fatalf("unexpected names: %v", report.Names)
	}
	if _, ok := report.Names["d"]; ok {
		t.Fatalf("tombstoned exams must not be named")
	}

	if len(report.Subjects) != 2 || report.Subjects[0].Key != "turkce" {
		t.Fatalf("unexpected subject averages: %+v", report.Subjects)
	}
	mat := report.Subjects[1]
	if mat.Exams != 2 || mat.Correct != 23 || mat.Net != (46-6.0)/2 {
		t.Fatalf("unexpected matematik average: %+v", mat)
	}
	weak := WeakSubjects(report.Subjects, 1)
	if len(weak) != 1 || weak[0].Key != "matematik" {
		t.Fatalf("unexpected weak subjects: %+v", weak)
	}
}

func TestRender(t *testing.T) {
	report := BuildReport(sampleRecords(), sampleExams(), model.TrackTYT, 30, testNow)
	var buf bytes.Buffer
	if err := Render(&buf, report, 7); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Kayıtlı gün: 7",
		"Seri: 3 gün (en uzun 4)",
		"Temel Matematik: 30",
		"TYT Genel Deneme – 7 Mar",
		"Geliştirilecek dersler: Temel Matematik Türkçe",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := Render(&buf, BuildReport(nil, nil, model.TrackLGS8, 30, testNow), 7); err != nil {
		t.Fatalf("render empty: %v", err)
	}
	if !strings.Contains(buf.String(), "Henüz kayıt yok.") {
		t.Fatalf("unexpected empty output: %q", buf.String())
	}
}

func TestExportXLSX(t *testing.T) {
	records := sampleRecords()
	exams := sampleExams()
	list := make([]model.DailyRecord, 0, len(records))
	for _, r := range records {
		list = append(list, r)
	}
	examList := make([]model.ExamRecord, 0, len(exams))
	for _, e := range exams {
		examList = append(examList, e)
	}
	report := BuildReport(records, exams, model.TrackTYT, 30, testNow)

	var buf bytes.Buffer
	if err := ExportXLSX(&buf, list, examList, report.Names); err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(RecordsSheet)
	if err != nil {
		t.Fatalf("records sheet: %v", err)
	}
	if len(rows) != len(records)+1 || rows[0][0] != "Tarih" || rows[1][0] != "2023-12-01" {
		t.Fatalf("unexpected record rows: %v", rows)
	}
	examRows, err := f.GetRows(ExamsSheet)
	if err != nil {
		t.Fatalf("exams sheet: %v", err)
	}
	if len(examRows) != 4 {
		t.Fatalf("expected header and 3 live exams, got %d rows", len(examRows))
	}
	if examRows[1][0] != "a" || examRows[1][3] != "TYT Genel Deneme – 3 Mar" || examRows[1][9] != "55" {
		t.Fatalf("unexpected exam row: %v", examRows[1])
	}
	if got := ExportFileName(model.TrackTYT, "2024-03-10"); got != "ritim-tyt-2024-03-10.xlsx" {
		t.Fatalf("unexpected file name %q", got)
	}
}
