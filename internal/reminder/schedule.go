// Package reminder decides which days need a study reminder and keeps the
// notification platform in sync with that decision.
package reminder

import (
	"fmt"
	"time"

	"github.com/ritimapp/ritim/internal/model"
	"github.com/ritimapp/ritim/internal/notify"
)

const (
	// DefaultWindowDays is the lookahead of a full reschedule.
	DefaultWindowDays = 14
	// MaxStreakLookback caps how far back a missing streak is counted.
	MaxStreakLookback = 30
	// StreakThreshold is the missing streak that switches to the streak tier.
	StreakThreshold = 2
)

// Tier selects the reminder message.
type Tier int

// Message tiers.
const (
	TierStandard Tier = iota
	TierStreak
)

func (t Tier) String() string {
	if t == TierStreak {
		return "streak"
	}
	return "standard"
}

// TimeOfDay is a local hour and minute.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// DefaultTime is the reminder time used when none is configured.
var DefaultTime = TimeOfDay{Hour: model.DefaultReminderHour, Minute: model.DefaultReminderMinute}

// Entry is one reminder to schedule.
type Entry struct {
	Date          string
	Tier          Tier
	MissingStreak int
	TriggerAt     time.Time
}

// ID returns the notification id used for the entry.
func (e Entry) ID() string {
	return "ritim-reminder-" + e.Date
}

// Notification builds the platform notification for the entry.
func (e Entry) Notification() notify.Notification {
	n := notify.Notification{ID: e.ID(), At: e.TriggerAt}
	if e.Tier == TierStreak {
		n.Title = fmt.Sprintf("%d gündür kayıt yok", e.MissingStreak)
		n.Body = "Ritmini kaybetme. Kısa bir oturumla bugün geri dön."
		return n
	}
	n.Title = "Bugünü kaydetmeyi unutma"
	n.Body = "Çalışmanı ve çözdüğün soruları birkaç saniyede ekle."
	return n
}

// ComputeSchedule returns the reminders for the windowDays days starting at
// local midnight of now. Days present in recorded are skipped, as are
// trigger times not strictly after now.
func ComputeSchedule(recorded map[string]bool, windowDays int, now time.Time, at TimeOfDay) []Entry {
	start := model.StartOfDay(now)
	entries := make([]Entry, 0, windowDays)
	for i := 0; i < windowDays; i++ {
		day := model.AddDays(start, i)
		date := model.FormatDate(day)
		if recorded[date] {
			continue
		}
		trigger := time.Date(day.Year(), day.Month(), day.Day(), at.Hour, at.Minute, 0, 0, day.Location())
		if !trigger.After(now) {
			continue
		}
		streak := MissingStreak(recorded, day)
		tier := TierStandard
		if streak >= StreakThreshold {
			tier = TierStreak
		}
		entries = append(entries, Entry{
			Date:          date,
			Tier:          tier,
			MissingStreak: streak,
			TriggerAt:     trigger,
		})
	}
	return entries
}

// MissingStreak counts consecutive unrecorded days before day, up to
// MaxStreakLookback.
func MissingStreak(recorded map[string]bool, day time.Time) int {
	streak := 0
	for i := 1; i <= MaxStreakLookback; i++ {
		if recorded[model.FormatDate(model.AddDays(day, -i))] {
			break
		}
		streak++
	}
	return streak
}

// Tonight returns today's reminder when today has no record yet.
func Tonight(recorded map[string]bool, now time.Time, at TimeOfDay) (Entry, bool) {
	entries := ComputeSchedule(recorded, 1, now, at)
	if len(entries) == 0 {
		return Entry{}, false
	}
	return entries[0], true
}

// TwoDaysMissing returns today's reminder only when today is unrecorded and
// the previous days are missing too.
func TwoDaysMissing(recorded map[string]bool, now time.Time, at TimeOfDay) (Entry, bool) {
	entry, ok := Tonight(recorded, now, at)
	if !ok || entry.Tier != TierStreak {
		return Entry{}, false
	}
	return entry, true
}

// RecordedDates collects the days with any study or exam activity.
func RecordedDates(records map[string]model.DailyRecord, exams map[string]model.ExamRecord) map[string]bool {
	out := make(map[string]bool, len(records)+len(exams))
	for _, rec := range records {
		out[rec.Date] = true
	}
	for _, exam := range exams {
		if !exam.IsDeleted {
			out[exam.Date] = true
		}
	}
	return out
}
