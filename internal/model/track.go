package model

import "strings"

// TrackID identifies an exam-preparation curriculum.
type TrackID string

// Known tracks.
const (
	TrackLGS7 TrackID = "LGS7"
	TrackLGS8 TrackID = "LGS8"
	TrackTYT  TrackID = "TYT"
	TrackAYT  TrackID = "AYT"
)

// DefaultTrack is used when a record carries no usable track.
const DefaultTrack = TrackTYT

// Subject is a track subject with its display label.
type Subject struct {
	Key   string
	Label string
}

type trackInfo struct {
	shortLabel   string
	label        string
	middleSchool bool
	subjects     []Subject
}

var lgsSubjects = []Subject{
	{Key: "turkce", Label: "Türkçe"},
	{Key: "matematik", Label: "Matematik"},
	{Key: "fen", Label: "Fen Bilimleri"},
	{Key: "inkilap", Label: "İnkılap Tarihi"},
	{Key: "din", Label: "Din Kültürü"},
	{Key: "ingilizce", Label: "İngilizce"},
}

var tracks = map[TrackID]trackInfo{
	TrackLGS7: {shortLabel: "LGS", label: "LGS 7. Sınıf", middleSchool: true, subjects: lgsSubjects},
	TrackLGS8: {shortLabel: "LGS", label: "LGS 8. Sınıf", middleSchool: true, subjects: lgsSubjects},
	TrackTYT: {shortLabel: "TYT", label: "YKS TYT", subjects: []Subject{
		{Key: "turkce", Label: "Türkçe"},
		{Key: "matematik", Label: "Temel Matematik"},
		{Key: "sosyal", Label: "Sosyal Bilimler"},
		{Key: "fen", Label: "Fen Bilimleri"},
	}},
	TrackAYT: {shortLabel: "AYT", label: "YKS AYT", subjects: []Subject{
		{Key: "matematik", Label: "Matematik"},
		{Key: "fizik", Label: "Fizik"},
		{Key: "kimya", Label: "Kimya"},
		{Key: "biyoloji", Label: "Biyoloji"},
		{Key: "edebiyat", Label: "Türk Dili ve Edebiyatı"},
		{Key: "tarih", Label: "Tarih"},
		{Key: "cografya", Label: "Coğrafya"},
	}},
}

// Tracks returns all tracks in display order.
func Tracks() []TrackID {
	return []TrackID{TrackLGS7, TrackLGS8, TrackTYT, TrackAYT}
}

// Valid reports whether t is a known track.
func (t TrackID) Valid() bool {
	_, ok := tracks[t]
	return ok
}

// ParseTrack resolves a case-insensitive track name.
func ParseTrack(s string) (TrackID, bool) {
	t := TrackID(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.Valid()
}

// IsMiddleSchool reports whether the track is an LGS track.
func (t TrackID) IsMiddleSchool() bool {
	return tracks[t].middleSchool
}

// ShortLabel is the label used in generated exam names.
func (t TrackID) ShortLabel() string {
	if info, ok := tracks[t]; ok {
		return info.shortLabel
	}
	return string(t)
}

// Label is the long display label of the track.
func (t TrackID) Label() string {
	if info, ok := tracks[t]; ok {
		return info.label
	}
	return string(t)
}

// Subjects returns the ordered subject set of the track.
func (t TrackID) Subjects() []Subject {
	subjects := tracks[t].subjects
	out := make([]Subject, len(subjects))
	copy(out, subjects)
	return out
}

// HasSubject reports whether key belongs to the track.
func (t TrackID) HasSubject(key string) bool {
	for _, s := range tracks[t].subjects {
		if s.Key == key {
			return true
		}
	}
	return false
}

// SubjectLabel returns the display label of a subject key on the track.
// Unknown keys are returned unchanged.
func (t TrackID) SubjectLabel(key string) string {
	for _, s := range tracks[t].subjects {
		if s.Key == key {
			return s.Label
		}
	}
	return key
}

// NetDivisor is the number of wrong answers that cancel one correct answer.
func (t TrackID) NetDivisor() float64 {
	if t.IsMiddleSchool() {
		return 3
	}
	return 4
}

// CalculateNet returns correct - wrong/divisor for the track.
func CalculateNet(t TrackID, correct, wrong int) float64 {
	return float64(correct) - float64(wrong)/t.NetDivisor()
}

// TrackForGrade suggests a track for an onboarding grade answer.
func TrackForGrade(grade string) TrackID {
	switch strings.TrimSpace(grade) {
	case "7":
		return TrackLGS7
	case "8":
		return TrackLGS8
	default:
		return TrackTYT
	}
}
