package store

import (
	"context"
	"sort"

	"github.com/ritimapp/ritim/internal/model"
	"github.com/ritimapp/ritim/internal/normalize"
)

// LoadExams returns every valid exam keyed by id, tombstones included.
func (s *Store) LoadExams(ctx context.Context) map[string]model.ExamRecord {
	out := map[string]model.ExamRecord{}
	value, present, _ := s.loadJSON(ctx, KeyExams)
	if !present {
		return out
	}
	entries, ok := value.(map[string]any)
	if !ok {
		s.log.Warnf("ignoring %s: not an object", KeyExams)
		return out
	}
	for key, raw := range entries {
		exam, err := normalize.NormalizeExam(raw)
		if err != nil {
			s.log.Warnf("dropping exam %q: %v", key, err)
			continue
		}
		out[exam.ID] = exam
	}
	return out
}

// SaveExams replaces the persisted exam mapping.
func (s *Store) SaveExams(ctx context.Context, exams map[string]model.ExamRecord) error {
	if exams == nil {
		exams = map[string]model.ExamRecord{}
	}
	return s.saveJSON(ctx, KeyExams, exams)
}

// LoadSettings returns persisted settings over the defaults.
func (s *Store) LoadSettings(ctx context.Context) model.AppSettings {
	value, _, _ := s.loadJSON(ctx, KeySettings)
	return normalize.NormalizeSettings(value)
}

// SaveSettings persists settings.
func (s *Store) SaveSettings(ctx context.Context, settings model.AppSettings) error {
	return s.saveJSON(ctx, KeySettings, settings)
}

// LoadTopicMoods returns the topic mood mapping.
func (s *Store) LoadTopicMoods(ctx context.Context) map[string]model.Mood {
	value, _, _ := s.loadJSON(ctx, KeyTopicMoods)
	return normalize.NormalizeTopicMoods(value)
}

// SaveTopicMoods persists the topic mood mapping.
func (s *Store) SaveTopicMoods(ctx context.Context, moods map[string]model.Mood) error {
	if moods == nil {
		moods = map[string]model.Mood{}
	}
	return s.saveJSON(ctx, KeyTopicMoods, moods)
}

// LoadOnboarding returns the onboarding answers.
func (s *Store) LoadOnboarding(ctx context.Context) model.Onboarding {
	value, _, _ := s.loadJSON(ctx, KeyOnboarding)
	return normalize.NormalizeOnboarding(value)
}

// SaveOnboarding persists the onboarding answers.
func (s *Store) SaveOnboarding(ctx context.Context, ob model.Onboarding) error {
	return s.saveJSON(ctx, KeyOnboarding, ob)
}

// LoadFavorites returns the coach's favorite student ids.
func (s *Store) LoadFavorites(ctx context.Context) map[string]bool {
	value, _, _ := s.loadJSON(ctx, KeyFavorites)
	return normalize.NormalizeFavorites(value)
}

// SaveFavorites persists the favorite set as a sorted array.
func (s *Store) SaveFavorites(ctx context.Context, favorites map[string]bool) error {
	ids := make([]string, 0, len(favorites))
	for id, ok := range favorites {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return s.saveJSON(ctx, KeyFavorites, ids)
}

// PendingInitialSync reports whether the first bulk sync still has to run.
func (s *Store) PendingInitialSync(ctx context.Context) bool {
	value, _, _ := s.loadJSON(ctx, KeyPendingInitial)
	pending, _ := value.(bool)
	return pending
}

// SetPendingInitialSync records the advisory pending flag.
func (s *Store) SetPendingInitialSync(ctx context.Context, pending bool) error {
	return s.saveJSON(ctx, KeyPendingInitial, pending)
}
