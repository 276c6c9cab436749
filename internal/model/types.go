// Package model defines shared data structures.
package model

// ActivityType describes what kind of study a daily record captures.
type ActivityType string

// Activity types.
const (
	ActivityTopicStudy       ActivityType = "TOPIC_STUDY"
	ActivityQuestionPractice ActivityType = "QUESTION_PRACTICE"
	ActivityMixed            ActivityType = "MIXED"
)

// Valid reports whether a is one of the known activity types.
func (a ActivityType) Valid() bool {
	switch a {
	case ActivityTopicStudy, ActivityQuestionPractice, ActivityMixed:
		return true
	}
	return false
}

// ActivityFromToggles derives the activity type from the entry toggles.
func ActivityFromToggles(topics, questions bool) ActivityType {
	switch {
	case topics && questions:
		return ActivityMixed
	case questions:
		return ActivityQuestionPractice
	default:
		return ActivityTopicStudy
	}
}

// DailyRecord captures one day of study on one track.
type DailyRecord struct {
	Date             string         `json:"date"`
	TrackID          TrackID        `json:"trackId"`
	FocusMinutes     int            `json:"focusMinutes"`
	ActivityType     ActivityType   `json:"activityType"`
	QuestionCount    *int           `json:"questionCount,omitempty"`
	SubjectBreakdown map[string]int `json:"subjectBreakdown,omitempty"`
}

// Key returns the composite storage key of the record.
func (r DailyRecord) Key() string {
	return RecordKey(r.TrackID, r.Date)
}

// Questions returns the question count, or zero when unset.
func (r DailyRecord) Questions() int {
	if r.QuestionCount == nil {
		return 0
	}
	return *r.QuestionCount
}

// ExamType distinguishes full mock exams from single-subject ones.
type ExamType string

// Exam types.
const (
	ExamFull   ExamType = "FULL"
	ExamBranch ExamType = "BRANCH"
)

// Valid reports whether t is a known exam type.
func (t ExamType) Valid() bool {
	return t == ExamFull || t == ExamBranch
}

// SubjectScore holds per-subject answer counts of a full exam.
type SubjectScore struct {
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
	Blank   int `json:"blank"`
}

// ExamRecord is a single practice exam result.
type ExamRecord struct {
	ID              string                  `json:"id"`
	TrackID         TrackID                 `json:"trackId"`
	Date            string                  `json:"date"`
	Type            ExamType                `json:"type"`
	SubjectKey      string                  `json:"subjectKey,omitempty"`
	Name            string                  `json:"name,omitempty"`
	CorrectTotal    int                     `json:"correctTotal"`
	WrongTotal      int                     `json:"wrongTotal"`
	BlankTotal      int                     `json:"blankTotal"`
	SubjectScores   map[string]SubjectScore `json:"subjectScores,omitempty"`
	DurationMinutes *int                    `json:"durationMinutes,omitempty"`
	IsDeleted       bool                    `json:"isDeleted"`
	DeletedAtMs     *int64                  `json:"deletedAtMs"`
	CreatedAtMs     int64                   `json:"createdAtMs"`
	UpdatedAtMs     int64                   `json:"updatedAtMs"`
}

// Net returns the net score of the exam for its track.
func (e ExamRecord) Net() float64 {
	return CalculateNet(e.TrackID, e.CorrectTotal, e.WrongTotal)
}

// AppSettings is the process-wide user configuration.
type AppSettings struct {
	ReminderEnabled    bool    `json:"reminderEnabled"`
	ReminderHour       int     `json:"reminderHour" validate:"min=0,max=23"`
	ReminderMinute     int     `json:"reminderMinute" validate:"min=0,max=59"`
	LastNotificationID string  `json:"lastNotificationId,omitempty"`
	CoachConnected     bool    `json:"coachConnected"`
	CoachID            string  `json:"coachId,omitempty" validate:"required_if=CoachConnected true"`
	CoachName          string  `json:"coachName,omitempty"`
	DisplayName        string  `json:"displayName,omitempty" validate:"max=60"`
	AccountEmail       string  `json:"accountEmail,omitempty" validate:"omitempty,email"`
	ActiveTrack        TrackID `json:"activeTrack" validate:"oneof=LGS7 LGS8 TYT AYT"`
}

// Default reminder time of day.
const (
	DefaultReminderHour   = 20
	DefaultReminderMinute = 30
)

// DefaultSettings returns settings for a fresh install.
func DefaultSettings() AppSettings {
	return AppSettings{
		ReminderEnabled: true,
		ReminderHour:    DefaultReminderHour,
		ReminderMinute:  DefaultReminderMinute,
		ActiveTrack:     DefaultTrack,
	}
}

// Mood is how a student feels about a topic.
type Mood string

// Topic moods.
const (
	MoodGood   Mood = "good"
	MoodMedium Mood = "medium"
	MoodHard   Mood = "hard"
)

// Valid reports whether m is a known mood.
func (m Mood) Valid() bool {
	switch m {
	case MoodGood, MoodMedium, MoodHard:
		return true
	}
	return false
}

// Onboarding stores first-run answers.
type Onboarding struct {
	Completed bool   `json:"completed"`
	Grade     string `json:"grade,omitempty"`
}
