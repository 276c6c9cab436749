package stats

import (
	"sort"

	"github.com/ritimapp/ritim/internal/model"
)

// SubjectCount is the number of questions solved in one subject.
type SubjectCount struct {
	Key   string
	Label string
	Count int
}

// TopSubjectsByQuestions returns the top n subjects of a track by questions
// solved across records.
func TopSubjectsByQuestions(records []model.DailyRecord, track model.TrackID, n int) []SubjectCount {
	if n <= 0 || len(records) == 0 {
		return nil
	}
	totals := map[string]int{}
	for _, rec := range records {
		if rec.TrackID != track {
			continue
		}
		for key, count := range rec.SubjectBreakdown {
			totals[key] += count
		}
	}
	items := make([]SubjectCount, 0, len(totals))
	for key, total := range totals {
		items = append(items, SubjectCount{Key: key, Label: track.SubjectLabel(key), Count: total})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Key < items[j].Key
		}
		return items[i].Count > items[j].Count
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}
