package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ritimapp/ritim/internal/logx"
	"github.com/ritimapp/ritim/internal/model"
)

// SettingsStore persists settings.
type SettingsStore interface {
	LoadSettings(ctx context.Context) model.AppSettings
	SaveSettings(ctx context.Context, settings model.AppSettings) error
}

var validate = validator.New()

// ValidateSettings checks settings field constraints.
func ValidateSettings(s model.AppSettings) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// repairSettings resets every field that fails validation to its default
// and keeps the rest.
func repairSettings(s model.AppSettings, log logx.Logger) model.AppSettings {
	var verrs validator.ValidationErrors
	if err := validate.Struct(s); !errors.As(err, &verrs) {
		if err != nil {
			log.Warnf("resetting settings: %v", err)
			return model.DefaultSettings()
		}
		return s
	}
	def := model.DefaultSettings()
	for _, fe := range verrs {
		log.Warnf("dropping invalid setting %s", fe.StructField())
		switch fe.StructField() {
		case "ReminderHour":
			s.ReminderHour = def.ReminderHour
		case "ReminderMinute":
			s.ReminderMinute = def.ReminderMinute
		case "CoachID":
			s.CoachConnected = false
			s.CoachName = ""
		case "DisplayName":
			s.DisplayName = ""
		case "AccountEmail":
			s.AccountEmail = ""
		case "ActiveTrack":
			s.ActiveTrack = def.ActiveTrack
		default:
			return def
		}
	}
	if err := ValidateSettings(s); err != nil {
		log.Warnf("resetting settings: %v", err)
		return def
	}
	return s
}

// Settings owns the app settings.
type Settings struct {
	mu      sync.RWMutex
	store   SettingsStore
	log     logx.Logger
	value   model.AppSettings
	flusher *Flusher
	hooks   []func(old, updated model.AppSettings)
}

// LoadSettings reads the persisted settings into a new container.
func LoadSettings(ctx context.Context, st SettingsStore, log logx.Logger) *Settings {
	if log == nil {
		log = logx.Discard{}
	}
	value := repairSettings(st.LoadSettings(ctx), log)
	s := &Settings{store: st, log: log, value: value}
	s.flusher = NewFlusher(SettingsDelay, s.persist)
	return s
}

func (s *Settings) persist() {
	if err := s.store.SaveSettings(context.Background(), s.Get()); err != nil {
		s.log.Errorf("failed to save settings: %v", err)
	}
}

// Get returns the current settings.
func (s *Settings) Get() model.AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// OnChange registers a hook called after every accepted update.
func (s *Settings) OnChange(fn func(old, updated model.AppSettings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Update applies fn to a copy of the settings and keeps the result when it
// validates.
func (s *Settings) Update(fn func(*model.AppSettings)) error {
	s.mu.Lock()
	old := s.value
	next := old
	fn(&next)
	if err := ValidateSettings(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.value = next
	hooks := append([]func(old, updated model.AppSettings){}, s.hooks...)
	s.mu.Unlock()

	s.flusher.Mark()
	for _, h := range hooks {
		h(old, next)
	}
	return nil
}

// FlushState reports the persistence state.
func (s *Settings) FlushState() FlushState {
	return s.flusher.State()
}

// Close flushes pending changes.
func (s *Settings) Close() {
	s.flusher.Close()
}
