// Package exam builds and names practice exam records.
package exam

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ritimapp/ritim/internal/model"
)

var monthAbbr = [...]string{"Oca", "Şub", "Mar", "Nis", "May", "Haz", "Tem", "Ağu", "Eyl", "Eki", "Kas", "Ara"}

// NewID returns a unique exam id made of a millisecond timestamp and a
// random suffix.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}

// ShortDate formats a calendar date as "5 Mar".
func ShortDate(date string) string {
	t, ok := model.ParseDate(date, time.UTC)
	if !ok {
		return date
	}
	return fmt.Sprintf("%d %s", t.Day(), monthAbbr[t.Month()-1])
}

// BaseName is the generated name of an exam before collision handling.
func BaseName(e model.ExamRecord, track model.TrackID) string {
	if e.Type == model.ExamBranch {
		return fmt.Sprintf("%s Denemesi – %s", track.SubjectLabel(e.SubjectKey), ShortDate(e.Date))
	}
	return fmt.Sprintf("%s Genel Deneme – %s", track.ShortLabel(), ShortDate(e.Date))
}

// DisplayName returns the user-supplied name, or a generated one that does
// not collide with any of the names preceding it in the list.
func DisplayName(e model.ExamRecord, track model.TrackID, preceding []string) string {
	if name := strings.TrimSpace(e.Name); name != "" {
		return name
	}
	base := BaseName(e, track)
	taken := make(map[string]bool, len(preceding))
	for _, name := range preceding {
		taken[name] = true
	}
	if !taken[base] {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// DisplayNames names exams in creation order and returns the names by id.
// Each generated name depends only on the exams created before it.
func DisplayNames(exams []model.ExamRecord) map[string]string {
	ordered := make([]model.ExamRecord, len(exams))
	copy(ordered, exams)
	SortByCreation(ordered)
	names := make(map[string]string, len(ordered))
	preceding := make([]string, 0, len(ordered))
	for _, e := range ordered {
		name := DisplayName(e, e.TrackID, preceding)
		names[e.ID] = name
		preceding = append(preceding, name)
	}
	return names
}

// SortByCreation orders exams by creation time, then id.
func SortByCreation(exams []model.ExamRecord) {
	sort.SliceStable(exams, func(i, j int) bool {
		if exams[i].CreatedAtMs == exams[j].CreatedAtMs {
			return exams[i].ID < exams[j].ID
		}
		return exams[i].CreatedAtMs < exams[j].CreatedAtMs
	})
}

// Input describes an exam entered by the user.
type Input struct {
	TrackID         model.TrackID
	Date            string
	Type            model.ExamType
	SubjectKey      string
	Name            string
	Correct         int
	Wrong           int
	Blank           int
	SubjectScores   map[string]model.SubjectScore
	DurationMinutes int
}

// Input validation errors.
var (
	ErrInvalidDate    = errors.New("geçersiz tarih")
	ErrInvalidTrack   = errors.New("geçersiz alan")
	ErrUnknownSubject = errors.New("bu alanda olmayan ders")
	ErrNegativeCount  = errors.New("doğru, yanlış ve boş sayıları negatif olamaz")
)

// Build validates in and returns a new record created at now.
func Build(in Input, now time.Time) (model.ExamRecord, error) {
	e := model.ExamRecord{ID: NewID(now), CreatedAtMs: now.UnixMilli()}
	if err := Apply(&e, in, now); err != nil {
		return model.ExamRecord{}, err
	}
	return e, nil
}

// Apply validates in and writes it onto e, bumping its update time.
func Apply(e *model.ExamRecord, in Input, now time.Time) error {
	if !in.TrackID.Valid() {
		return ErrInvalidTrack
	}
	if !model.IsDate(in.Date) {
		return ErrInvalidDate
	}
	if !in.Type.Valid() {
		in.Type = model.ExamFull
	}
	next := *e
	next.TrackID = in.TrackID
	next.Date = in.Date
	next.Type = in.Type
	next.Name = strings.TrimSpace(in.Name)
	next.DurationMinutes = nil
	if in.DurationMinutes > 0 {
		d := in.DurationMinutes
		next.DurationMinutes = &d
	}

	switch in.Type {
	case model.ExamBranch:
		if !in.TrackID.HasSubject(in.SubjectKey) {
			return fmt.Errorf("%w: %s", ErrUnknownSubject, in.SubjectKey)
		}
		if in.Correct < 0 || in.Wrong < 0 || in.Blank < 0 {
			return ErrNegativeCount
		}
		next.SubjectKey = in.SubjectKey
		next.SubjectScores = nil
		next.CorrectTotal, next.WrongTotal, next.BlankTotal = in.Correct, in.Wrong, in.Blank
	default:
		scores := map[string]model.SubjectScore{}
		var correct, wrong, blank int
		for key, s := range in.SubjectScores {
			if !in.TrackID.HasSubject(key) {
				return fmt.Errorf("%w: %s", ErrUnknownSubject, key)
			}
			if s.Correct < 0 || s.Wrong < 0 || s.Blank < 0 {
				return ErrNegativeCount
			}
			scores[key] = s
			correct += s.Correct
			wrong += s.Wrong
			blank += s.Blank
		}
		next.SubjectKey = ""
		if len(scores) == 0 {
			if in.Correct < 0 || in.Wrong < 0 || in.Blank < 0 {
				return ErrNegativeCount
			}
			next.SubjectScores = nil
			correct, wrong, blank = in.Correct, in.Wrong, in.Blank
		} else {
			next.SubjectScores = scores
		}
		next.CorrectTotal, next.WrongTotal, next.BlankTotal = correct, wrong, blank
	}
	next.UpdatedAtMs = now.UnixMilli()
	*e = next
	return nil
}

// Tombstone marks e deleted at now.
func Tombstone(e *model.ExamRecord, now time.Time) {
	ms := now.UnixMilli()
	e.IsDeleted = true
	e.DeletedAtMs = &ms
	e.UpdatedAtMs = ms
}
