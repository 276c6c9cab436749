package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ritimapp/ritim/internal/cloud"
	"github.com/ritimapp/ritim/internal/coach"
	"github.com/ritimapp/ritim/internal/config"
	"github.com/ritimapp/ritim/internal/logx"
	"github.com/ritimapp/ritim/internal/model"
	"github.com/ritimapp/ritim/internal/remote"
	"github.com/ritimapp/ritim/internal/state"
	"github.com/ritimapp/ritim/internal/store"
)

const profilePushTimeout = 10 * time.Second

// app holds the components of one CLI invocation.
type app struct {
	log        logx.Logger
	rollbar    *logx.Rollbar
	store      *store.Store
	records    *state.Records
	exams      *state.Exams
	settings   *state.Settings
	topics     *state.Topics
	onboarding *state.Onboarding
	remote     *remote.Client
	syncer     *cloud.Syncer
	coach      *coach.Service
}

func newLogger(cfg config.FileConfig) (logx.Logger, *logx.Rollbar) {
	std := logx.New(os.Stderr, logx.ParseLevel(strings.ToLower(rootLogLevel)))
	if cfg.Log.RollbarToken == nil || *cfg.Log.RollbarToken == "" {
		return std, nil
	}
	env := "production"
	if cfg.Log.Environment != nil && *cfg.Log.Environment != "" {
		env = *cfg.Log.Environment
	}
	rb := logx.NewRollbar(std, logx.RollbarConfig{Token: *cfg.Log.RollbarToken, Environment: env})
	return rb, rb
}

func sessionFromConfig(cfg config.FileConfig, settings model.AppSettings) *cloud.Session {
	if cfg.Sync.UserID == nil || strings.TrimSpace(*cfg.Sync.UserID) == "" {
		return nil
	}
	session := &cloud.Session{UserID: strings.TrimSpace(*cfg.Sync.UserID), Email: settings.AccountEmail}
	if cfg.Sync.Email != nil && *cfg.Sync.Email != "" {
		session.Email = *cfg.Sync.Email
	}
	return session
}

// openApp opens the local store, loads every state container and connects
// to the coach backend when one is configured. A backend that cannot be
// reached is logged and leaves syncing disabled.
func openApp(ctx context.Context) (*app, error) {
	cfg := loadedConfig
	log, rb := newLogger(cfg)

	dbPath := rootDBPath
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}
	st, err := store.Open(dbPath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	a := &app{
		log:        log,
		rollbar:    rb,
		store:      st,
		records:    state.LoadRecords(ctx, st, log),
		exams:      state.LoadExams(ctx, st, log),
		settings:   state.LoadSettings(ctx, st, log),
		topics:     state.LoadTopics(ctx, st, log),
		onboarding: state.LoadOnboarding(ctx, st, log),
	}

	var backend cloud.Remote
	var coachBackend coach.Backend
	if cfg.Sync.DSN != nil && strings.TrimSpace(*cfg.Sync.DSN) != "" {
		driver := defaultSyncDriver
		if cfg.Sync.Driver != nil && *cfg.Sync.Driver != "" {
			driver = *cfg.Sync.Driver
		}
		client, err := remote.Open(ctx, driver, *cfg.Sync.DSN, log)
		if err != nil {
			log.Warnf("coach backend unavailable: %v", err)
		} else {
			a.remote = client
			backend = client
			coachBackend = client
		}
	}
	a.syncer = cloud.NewSyncer(backend, sessionFromConfig(cfg, a.settings.Get()), log)
	a.coach = coach.New(coach.Deps{
		Backend:  coachBackend,
		Syncer:   a.syncer,
		Settings: a.settings,
		Local:    st,
		Records:  a.records,
		Exams:    a.exams,
		Log:      log,
	})
	a.wire()
	return a, nil
}

// wire connects container changes to the sync policy.
func (a *app) wire() {
	a.records.OnChange(func(change state.RecordChange) {
		connected := a.settings.Get().CoachConnected
		if change.Deleted {
			a.syncer.GoDeleteRecord(change.Record.TrackID, change.Record.Date, connected)
			return
		}
		a.syncer.GoSyncRecord(change.Record, connected)
	})
	a.exams.OnChange(func(e model.ExamRecord) {
		a.syncer.GoSyncExam(e, a.settings.Get().CoachConnected)
	})
	a.settings.OnChange(func(old, updated model.AppSettings) {
		if !updated.CoachConnected || a.syncer.Session() == nil {
			return
		}
		if old.ActiveTrack == updated.ActiveTrack && old.DisplayName == updated.DisplayName {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), profilePushTimeout)
		defer cancel()
		if err := a.syncer.PushProfile(ctx, updated); err != nil {
			a.log.Debugf("profile not pushed: %v", err)
		}
	})
}

// track resolves the track a command works on.
func (a *app) track() model.TrackID {
	if t, ok := model.ParseTrack(rootTrack); ok {
		return t
	}
	return a.settings.Get().ActiveTrack
}

// close flushes every container, drains background syncs and releases
// connections.
func (a *app) close() {
	a.records.Close()
	a.exams.Close()
	a.settings.Close()
	a.topics.Close()
	a.onboarding.Close()
	a.syncer.Wait()
	if a.remote != nil {
		if err := a.remote.Close(); err != nil {
			a.log.Warnf("failed to close backend: %v", err)
		}
	}
	if err := a.store.Close(); err != nil {
		logErrf("failed to close db: %v\n", err)
	}
	if a.rollbar != nil {
		a.rollbar.Close()
	}
}

// withApp runs fn with an opened app and closes it afterwards.
func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}
