package stats

import (
	"fmt"
	"io"
	"time"

	"github.com/ritimapp/ritim/internal/exam"
	"github.com/ritimapp/ritim/internal/model"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Track    model.TrackID
	Days     int
	Records  []model.DailyRecord
	Exams    []model.ExamRecord
	Names    map[string]string
	Summary  Summary
	Focus    []float64
	Subjects []SubjectAverage
}

// BuildReport selects the track's records and live exams of the last days
// and prepares them for rendering. Exam names are computed over every exam
// so they match the exam list.
func BuildReport(records map[string]model.DailyRecord, exams map[string]model.ExamRecord, track model.TrackID, days int, now time.Time) Report {
	if days <= 0 {
		days = 30
	}
	since := model.FormatDate(model.AddDays(model.StartOfDay(now), -(days - 1)))
	r := Report{Track: track, Days: days}
	for _, rec := range records {
		if rec.TrackID == track && rec.Date >= since {
			r.Records = append(r.Records, rec)
		}
	}
	live := make([]model.ExamRecord, 0, len(exams))
	for _, e := range exams {
		if e.IsDeleted {
			continue
		}
		live = append(live, e)
		if e.TrackID == track && e.Date >= since {
			r.Exams = append(r.Exams, e)
		}
	}
	exam.SortByCreation(r.Exams)
	r.Names = exam.DisplayNames(live)
	r.Summary = Summarize(r.Records, now)
	r.Focus = DailyFocus(r.Records, days, now)
	r.Subjects = SubjectAverages(r.Exams, track)
	return r
}

// RenderExamTable prints exams with their nets, oldest first.
func RenderExamTable(w io.Writer, exams []model.ExamRecord, names map[string]string) error {
	if len(exams) == 0 {
		_, err := fmt.Fprintln(w, "Deneme bulunamadı.")
		return err
	}
	headers := []string{"Tarih", "Deneme", "Tür", "D", "Y", "B", "Net", "Süre", "ID"}
	rows := make([][]string, 0, len(exams))
	for _, e := range exams {
		name := names[e.ID]
		if name == "" {
			name = exam.BaseName(e, e.TrackID)
		}
		kind := "Genel"
		if e.Type == model.ExamBranch {
			kind = "Branş"
		}
		duration := "-"
		if e.DurationMinutes != nil {
			duration = fmt.Sprintf("%d dk", *e.DurationMinutes)
		}
		rows = append(rows, []string{
			e.Date,
			name,
			kind,
			fmt.Sprintf("%d", e.CorrectTotal),
			fmt.Sprintf("%d", e.WrongTotal),
			fmt.Sprintf("%d", e.BlankTotal),
			fmt.Sprintf("%.2f", e.Net()),
			duration,
			e.ID,
		})
	}
	return WriteTable(w, headers, rows, map[int]bool{3: true, 4: true, 5: true, 6: true, 7: true})
}

// Render prints the whole report.
func Render(w io.Writer, r Report, window int) error {
	if err := RenderSummary(w, r); err != nil {
		return err
	}
	if len(r.Records) > 0 {
		if err := RenderFocusCurve(w, r, window); err != nil {
			return err
		}
		if top := TopSubjectsByQuestions(r.Records, r.Track, 3); len(top) > 0 {
			if _, err := fmt.Fprintln(w, "En çok soru çözülen dersler"); err != nil {
				return err
			}
			for _, s := range top {
				if _, err := fmt.Fprintf(w, "  %s: %d\n", s.Label, s.Count); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintln(w, ""); err != nil {
				return err
			}
		}
	}
	if len(r.Exams) == 0 {
		return nil
	}
	if err := RenderExamTable(w, r.Exams, r.Names); err != nil {
		return err
	}
	if err := RenderSubjectTable(w, r.Subjects); err != nil {
		return err
	}
	if weak := WeakSubjects(r.Subjects, 2); len(weak) > 0 {
		if _, err := fmt.Fprint(w, "Geliştirilecek dersler:"); err != nil {
			return err
		}
		for _, s := range weak {
			if _, err := fmt.Fprintf(w, " %s", s.Label); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, ""); err != nil {
			return err
		}
	}
	return nil
}
