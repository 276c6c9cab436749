package stats

import (
	"fmt"
	"io"
	"sort"

	"github.com/ritimapp/ritim/internal/model"
)

// SubjectAverage is a subject's mean result over full exams.
type SubjectAverage struct {
	Key      string
	Label    string
	Exams    int
	Correct  float64
	Wrong    float64
	Blank    float64
	Net      float64
	Accuracy float64
}

// SubjectAverages averages per-subject scores of the live full exams of a
// track, in the track's subject order.
func SubjectAverages(exams []model.ExamRecord, track model.TrackID) []SubjectAverage {
	type sum struct {
		n                     int
		correct, wrong, blank int
	}
	sums := map[string]*sum{}
	for _, e := range exams {
		if e.IsDeleted || e.Type != model.ExamFull || e.TrackID != track {
			continue
		}
		for key, s := range e.SubjectScores {
			acc := sums[key]
			if acc == nil {
				acc = &sum{}
				sums[key] = acc
			}
			acc.n++
			acc.correct += s.Correct
			acc.wrong += s.Wrong
			acc.blank += s.Blank
		}
	}
	out := make([]SubjectAverage, 0, len(sums))
	for _, subject := range track.Subjects() {
		acc, ok := sums[subject.Key]
		if !ok {
			continue
		}
		n := float64(acc.n)
		avg := SubjectAverage{
			Key:     subject.Key,
			Label:   subject.Label,
			Exams:   acc.n,
			Correct: float64(acc.correct) / n,
			Wrong:   float64(acc.wrong) / n,
			Blank:   float64(acc.blank) / n,
			Net:     model.CalculateNet(track, acc.correct, acc.wrong) / n,
		}
		if total := acc.correct + acc.wrong + acc.blank; total > 0 {
			avg.Accuracy = float64(acc.correct) / float64(total)
		}
		out = append(out, avg)
	}
	return out
}

// WeakSubjects returns the top lowest-accuracy subjects.
func WeakSubjects(avgs []SubjectAverage, top int) []SubjectAverage {
	candidates := make([]SubjectAverage, len(avgs))
	copy(candidates, avgs)
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Accuracy == candidates[j].Accuracy {
			return candidates[i].Key < candidates[j].Key
		}
		return candidates[i].Accuracy < candidates[j].Accuracy
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	return candidates[:top]
}

// RenderSubjectTable prints per-subject averages.
func RenderSubjectTable(w io.Writer, avgs []SubjectAverage) error {
	if len(avgs) == 0 {
		_, err := fmt.Fprintln(w, "Ders bazında sonuç yok.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Ders ortalamaları (genel denemeler)"); err != nil {
		return err
	}
	headers := []string{"Ders", "Deneme", "D", "Y", "B", "Net", "Başarı"}
	rows := make([][]string, 0, len(avgs))
	for _, a := range avgs {
		rows = append(rows, []string{
			a.Label,
			fmt.Sprintf("%d", a.Exams),
			fmt.Sprintf("%.1f", a.Correct),
			fmt.Sprintf("%.1f", a.Wrong),
			fmt.Sprintf("%.1f", a.Blank),
			fmt.Sprintf("%.2f", a.Net),
			fmt.Sprintf("%.0f%%", a.Accuracy*100),
		})
	}
	return WriteTable(w, headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true})
}
