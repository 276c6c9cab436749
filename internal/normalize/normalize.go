// Package normalize validates persisted JSON values coming from older or
// corrupted local state.
//
// Every function accepts the result of decoding JSON into an interface{}
// and either returns a typed value or rejects it. Nothing here trusts field
// presence or field types.
package normalize

import (
	"fmt"
	"math"
	"strings"

	"github.com/ritimapp/ritim/internal/model"
)

// RejectError explains why a persisted value could not be used.
type RejectError struct {
	Reason string
}

func (e *RejectError) Error() string {
	return "rejected: " + e.Reason
}

func reject(format string, args ...any) error {
	return &RejectError{Reason: fmt.Sprintf(format, args...)}
}

// NormalizeRecord coerces raw into a daily record. keyHint is the mapping
// key the value was stored under and may be empty.
func NormalizeRecord(raw any, keyHint string) (model.DailyRecord, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return model.DailyRecord{}, reject("record is not an object")
	}
	hintTrack, hintDate := model.ParseRecordKey(keyHint)

	date, _ := obj["date"].(string)
	if !model.IsDate(date) {
		date = hintDate
	}
	if !model.IsDate(date) {
		return model.DailyRecord{}, reject("record %q has no valid date", keyHint)
	}

	rec := model.DailyRecord{
		Date:         date,
		TrackID:      resolveTrack(obj["trackId"], hintTrack),
		FocusMinutes: nonNegative(obj["focusMinutes"]),
		ActivityType: model.ActivityTopicStudy,
	}
	if s, ok := obj["activityType"].(string); ok && model.ActivityType(s).Valid() {
		rec.ActivityType = model.ActivityType(s)
	}
	if n, ok := finite(obj["questionCount"]); ok && n >= 0 {
		count := int(math.Floor(n))
		rec.QuestionCount = &count
	}
	rec.SubjectBreakdown = positiveCounts(obj["subjectBreakdown"])
	return rec, nil
}

// NormalizeExam coerces raw into an exam record.
func NormalizeExam(raw any) (model.ExamRecord, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return model.ExamRecord{}, reject("exam is not an object")
	}
	id, _ := obj["id"].(string)
	id = strings.TrimSpace(id)
	if id == "" {
		return model.ExamRecord{}, reject("exam has no id")
	}
	date, _ := obj["date"].(string)
	if !model.IsDate(date) {
		return model.ExamRecord{}, reject("exam %q has no valid date", id)
	}

	exam := model.ExamRecord{
		ID:           id,
		TrackID:      resolveTrack(obj["trackId"], ""),
		Date:         date,
		Type:         model.ExamFull,
		CorrectTotal: nonNegative(obj["correctTotal"]),
		WrongTotal:   nonNegative(obj["wrongTotal"]),
		BlankTotal:   nonNegative(obj["blankTotal"]),
		IsDeleted:    obj["isDeleted"] == true,
		CreatedAtMs:  timestamp(obj["createdAtMs"]),
		UpdatedAtMs:  timestamp(obj["updatedAtMs"]),
	}
	if s, ok := obj["type"].(string); ok && model.ExamType(s).Valid() {
		exam.Type = model.ExamType(s)
	}
	if name, ok := obj["name"].(string); ok {
		exam.Name = strings.TrimSpace(name)
	}
	if exam.Type == model.ExamBranch {
		if key, ok := obj["subjectKey"].(string); ok {
			exam.SubjectKey = strings.TrimSpace(key)
		}
	} else {
		exam.SubjectScores = subjectScores(obj["subjectScores"])
	}
	if n, ok := finite(obj["durationMinutes"]); ok && n >= 1 {
		minutes := int(math.Floor(n))
		exam.DurationMinutes = &minutes
	}
	if n, ok := finite(obj["deletedAtMs"]); ok && n >= 0 {
		ms := int64(n)
		exam.DeletedAtMs = &ms
	}
	return exam, nil
}

// NormalizeSettings overlays every usable field of raw on the defaults.
func NormalizeSettings(raw any) model.AppSettings {
	settings := model.DefaultSettings()
	obj, ok := raw.(map[string]any)
	if !ok {
		return settings
	}
	if v, ok := obj["reminderEnabled"].(bool); ok {
		settings.ReminderEnabled = v
	}
	if n, ok := finite(obj["reminderHour"]); ok && n >= 0 && n <= 23 {
		settings.ReminderHour = int(n)
	}
	if n, ok := finite(obj["reminderMinute"]); ok && n >= 0 && n <= 59 {
		settings.ReminderMinute = int(n)
	}
	if v, ok := obj["coachConnected"].(bool); ok {
		settings.CoachConnected = v
	}
	settings.LastNotificationID = stringField(obj, "lastNotificationId")
	settings.CoachID = stringField(obj, "coachId")
	settings.CoachName = stringField(obj, "coachName")
	settings.DisplayName = stringField(obj, "displayName")
	settings.AccountEmail = stringField(obj, "accountEmail")
	settings.ActiveTrack = resolveTrack(obj["activeTrack"], "")
	if settings.CoachConnected && settings.CoachID == "" {
		settings.CoachConnected = false
	}
	return settings
}

// NormalizeTopicMoods keeps the entries whose mood is known.
func NormalizeTopicMoods(raw any) map[string]model.Mood {
	out := map[string]model.Mood{}
	obj, ok := raw.(map[string]any)
	if !ok {
		return out
	}
	for topic, v := range obj {
		s, ok := v.(string)
		if !ok || strings.TrimSpace(topic) == "" {
			continue
		}
		if mood := model.Mood(s); mood.Valid() {
			out[topic] = mood
		}
	}
	return out
}

// NormalizeOnboarding reads the onboarding answers.
func NormalizeOnboarding(raw any) model.Onboarding {
	obj, ok := raw.(map[string]any)
	if !ok {
		return model.Onboarding{}
	}
	completed, _ := obj["completed"].(bool)
	return model.Onboarding{Completed: completed, Grade: stringField(obj, "grade")}
}

// NormalizeFavorites reads a set of ids stored as a JSON array.
func NormalizeFavorites(raw any) map[string]bool {
	out := map[string]bool{}
	items, ok := raw.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out[strings.TrimSpace(s)] = true
		}
	}
	return out
}

func resolveTrack(v any, hint model.TrackID) model.TrackID {
	if s, ok := v.(string); ok && model.TrackID(s).Valid() {
		return model.TrackID(s)
	}
	if hint.Valid() {
		return hint
	}
	return model.DefaultTrack
}

func finite(v any) (float64, bool) {
	n, ok := v.(float64)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func nonNegative(v any) int {
	n, ok := finite(v)
	if !ok || n < 0 {
		return 0
	}
	return int(math.Floor(n))
}

func timestamp(v any) int64 {
	n, ok := finite(v)
	if !ok || n < 0 {
		return 0
	}
	return int64(n)
}

func positiveCounts(v any) map[string]int {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := map[string]int{}
	for key, raw := range obj {
		n, ok := finite(raw)
		if !ok || n <= 0 {
			continue
		}
		if count := int(math.Floor(n)); count > 0 {
			out[key] = count
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func subjectScores(v any) map[string]model.SubjectScore {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := map[string]model.SubjectScore{}
	for key, raw := range obj {
		score, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		out[key] = model.SubjectScore{
			Correct: nonNegative(score["correct"]),
			Wrong:   nonNegative(score["wrong"]),
			Blank:   nonNegative(score["blank"]),
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}
