package state

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ritimapp/ritim/internal/logx"
	"github.com/ritimapp/ritim/internal/model"
)

// ErrInvalidMood is returned for moods outside good, medium and hard.
var ErrInvalidMood = errors.New("geçersiz durum: good, medium veya hard olmalı")

// TopicStore persists topic moods.
type TopicStore interface {
	LoadTopicMoods(ctx context.Context) map[string]model.Mood
	SaveTopicMoods(ctx context.Context, moods map[string]model.Mood) error
}

// Topics owns the topic mood mapping.
type Topics struct {
	mu      sync.RWMutex
	store   TopicStore
	log     logx.Logger
	moods   map[string]model.Mood
	flusher *Flusher
}

// LoadTopics reads the persisted moods into a new container.
func LoadTopics(ctx context.Context, st TopicStore, log logx.Logger) *Topics {
	if log == nil {
		log = logx.Discard{}
	}
	t := &Topics{store: st, log: log, moods: st.LoadTopicMoods(ctx)}
	t.flusher = NewFlusher(TopicsDelay, t.persist)
	return t
}

func (t *Topics) persist() {
	if err := t.store.SaveTopicMoods(context.Background(), t.All()); err != nil {
		t.log.Errorf("failed to save topics: %v", err)
	}
}

// All returns a copy of the moods.
func (t *Topics) All() map[string]model.Mood {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]model.Mood, len(t.moods))
	for k, v := range t.moods {
		out[k] = v
	}
	return out
}

// Mood returns the mood of a topic.
func (t *Topics) Mood(topicID string) (model.Mood, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.moods[topicID]
	return m, ok
}

// SetMood records how the student feels about a topic.
func (t *Topics) SetMood(topicID string, mood model.Mood) error {
	topicID = strings.TrimSpace(topicID)
	if topicID == "" {
		return errors.New("konu boş olamaz")
	}
	if !mood.Valid() {
		return ErrInvalidMood
	}
	t.mu.Lock()
	t.moods[topicID] = mood
	t.mu.Unlock()
	t.flusher.Mark()
	return nil
}

// Clear forgets the mood of a topic.
func (t *Topics) Clear(topicID string) bool {
	t.mu.Lock()
	_, ok := t.moods[topicID]
	delete(t.moods, topicID)
	t.mu.Unlock()
	if ok {
		t.flusher.Mark()
	}
	return ok
}

// Close flushes pending changes.
func (t *Topics) Close() {
	t.flusher.Close()
}

// OnboardingStore persists first-run answers.
type OnboardingStore interface {
	LoadOnboarding(ctx context.Context) model.Onboarding
	SaveOnboarding(ctx context.Context, ob model.Onboarding) error
}

// Onboarding owns the first-run answers.
type Onboarding struct {
	mu      sync.RWMutex
	store   OnboardingStore
	log     logx.Logger
	value   model.Onboarding
	flusher *Flusher
}

// LoadOnboarding reads the persisted answers into a new container.
func LoadOnboarding(ctx context.Context, st OnboardingStore, log logx.Logger) *Onboarding {
	if log == nil {
		log = logx.Discard{}
	}
	o := &Onboarding{store: st, log: log, value: st.LoadOnboarding(ctx)}
	o.flusher = NewFlusher(OnboardingDelay, o.persist)
	return o
}

func (o *Onboarding) persist() {
	if err := o.store.SaveOnboarding(context.Background(), o.Get()); err != nil {
		o.log.Errorf("failed to save onboarding: %v", err)
	}
}

// Get returns the current answers.
func (o *Onboarding) Get() model.Onboarding {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

var grades = map[string]bool{"7": true, "8": true, "9": true, "10": true, "11": true, "12": true, "mezun": true}

// ErrInvalidGrade is returned for grades outside 7-12 and mezun.
var ErrInvalidGrade = errors.New("geçersiz sınıf: 7-12 veya mezun olmalı")

// Complete stores the selected grade and returns the suggested track.
func (o *Onboarding) Complete(grade string) (model.TrackID, error) {
	grade = strings.ToLower(strings.TrimSpace(grade))
	if !grades[grade] {
		return "", ErrInvalidGrade
	}
	o.mu.Lock()
	o.value = model.Onboarding{Completed: true, Grade: grade}
	o.mu.Unlock()
	o.flusher.Mark()
	return model.TrackForGrade(grade), nil
}

// Reset clears the answers so onboarding runs again.
func (o *Onboarding) Reset() {
	o.mu.Lock()
	o.value = model.Onboarding{}
	o.mu.Unlock()
	o.flusher.Mark()
}

// Close flushes pending changes.
func (o *Onboarding) Close() {
	o.flusher.Close()
}
