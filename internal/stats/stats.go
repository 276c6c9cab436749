// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ritimapp/ritim/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Summary aggregates a set of daily records.
type Summary struct {
	DaysRecorded  int
	FocusMinutes  int
	Questions     int
	AvgFocus      float64
	CurrentStreak int
	LongestStreak int
}

// Summarize computes totals and streaks for records as of now. The current
// streak still counts when today has no record yet.
func Summarize(records []model.DailyRecord, now time.Time) Summary {
	var s Summary
	dates := map[string]bool{}
	for _, rec := range records {
		dates[rec.Date] = true
		s.FocusMinutes += rec.FocusMinutes
		s.Questions += rec.Questions()
	}
	s.DaysRecorded = len(dates)
	if s.DaysRecorded > 0 {
		s.AvgFocus = float64(s.FocusMinutes) / float64(s.DaysRecorded)
	}
	s.CurrentStreak = currentStreak(dates, now)
	s.LongestStreak = longestStreak(dates)
	return s
}

func currentStreak(dates map[string]bool, now time.Time) int {
	day := model.StartOfDay(now)
	if !dates[model.FormatDate(day)] {
		day = model.AddDays(day, -1)
	}
	streak := 0
	for dates[model.FormatDate(day)] {
		streak++
		day = model.AddDays(day, -1)
	}
	return streak
}

func longestStreak(dates map[string]bool) int {
	sorted := make([]string, 0, len(dates))
	for d := range dates {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)
	best, run := 0, 0
	prev := ""
	for _, d := range sorted {
		if prev != "" && model.ShiftDate(prev, 1) == d {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
		prev = d
	}
	return best
}

// DailyFocus returns focus minutes for each of the days ending at now,
// oldest first. Missing days are zero.
func DailyFocus(records []model.DailyRecord, days int, now time.Time) []float64 {
	if days <= 0 {
		return nil
	}
	byDate := map[string]float64{}
	for _, rec := range records {
		byDate[rec.Date] += float64(rec.FocusMinutes)
	}
	start := model.AddDays(model.StartOfDay(now), -(days - 1))
	out := make([]float64, days)
	for i := range out {
		out[i] = byDate[model.FormatDate(model.AddDays(start, i))]
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints the summary block of a report.
func RenderSummary(w io.Writer, r Report) error {
	if len(r.Records) == 0 {
		_, err := fmt.Fprintln(w, "Henüz kayıt yok.")
		return err
	}
	s := r.Summary
	lines := []string{
		fmt.Sprintf("Özet (%s, son %d gün)", r.Track.Label(), r.Days),
		fmt.Sprintf("Kayıtlı gün: %d", s.DaysRecorded),
		fmt.Sprintf("Toplam odak: %d dk", s.FocusMinutes),
		fmt.Sprintf("Ortalama odak: %.1f dk/gün", s.AvgFocus),
		fmt.Sprintf("Çözülen soru: %d", s.Questions),
		fmt.Sprintf("Seri: %d gün (en uzun %d)", s.CurrentStreak, s.LongestStreak),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderFocusCurve prints the daily focus sparkline with its moving average.
func RenderFocusCurve(w io.Writer, r Report, window int) error {
	if len(r.Focus) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Odak (dk/gün)"); err != nil {
		return err
	}
	avg := MovingAverage(r.Focus, window)
	if _, err := fmt.Fprintf(w, "  günlük   |%s|\n", Sparkline(r.Focus)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  ort. %-3d |%s|\n", window, Sparkline(avg)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderRecordTable prints records newest first.
func RenderRecordTable(w io.Writer, records []model.DailyRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "Kayıt bulunamadı.")
		return err
	}
	sorted := make([]model.DailyRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date > sorted[j].Date })

	headers := []string{"Tarih", "Alan", "Odak (dk)", "Etkinlik", "Soru", "Dersler"}
	rows := make([][]string, 0, len(sorted))
	for _, rec := range sorted {
		rows = append(rows, []string{
			rec.Date,
			string(rec.TrackID),
			fmt.Sprintf("%d", rec.FocusMinutes),
			activityLabel(rec.ActivityType),
			questionsCell(rec),
			breakdownCell(rec),
		})
	}
	return WriteTable(w, headers, rows, map[int]bool{2: true, 4: true})
}

func activityLabel(a model.ActivityType) string {
	switch a {
	case model.ActivityQuestionPractice:
		return "Soru çözümü"
	case model.ActivityMixed:
		return "Karma"
	default:
		return "Konu çalışması"
	}
}

func questionsCell(rec model.DailyRecord) string {
	if rec.QuestionCount == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *rec.QuestionCount)
}

func breakdownCell(rec model.DailyRecord) string {
	if len(rec.SubjectBreakdown) == 0 {
		return ""
	}
	parts := make([]string, 0, len(rec.SubjectBreakdown))
	for _, s := range rec.TrackID.Subjects() {
		if n, ok := rec.SubjectBreakdown[s.Key]; ok {
			parts = append(parts, fmt.Sprintf("%s %d", s.Label, n))
		}
	}
	return strings.Join(parts, ", ")
}

// WriteTable prints an aligned table followed by a blank line.
func WriteTable(w io.Writer, headers []string, rows [][]string, rightAlign map[int]bool) error {
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
