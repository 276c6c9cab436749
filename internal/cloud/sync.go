// Package cloud decides which local changes reach the coach backend and
// pushes them there without blocking local writes.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ritimapp/ritim/internal/logx"
	"github.com/ritimapp/ritim/internal/model"
	"github.com/ritimapp/ritim/internal/remote"
)

// WindowDays is how far back records are mirrored to the backend.
const WindowDays = 30

// ErrNoSession is returned by bulk syncs when no account is signed in.
var ErrNoSession = errors.New("cloud: no session")

// Session identifies the signed-in account.
type Session struct {
	UserID string
	Email  string
}

// ShouldSync reports whether a record dated date is mirrored: a session
// exists, a coach is connected and date is at most WindowDays days old.
// Future dates pass.
func ShouldSync(date string, coachConnected bool, session *Session, now time.Time) bool {
	if session == nil || session.UserID == "" || !coachConnected {
		return false
	}
	day, ok := model.ParseDate(date, now.Location())
	if !ok {
		return false
	}
	return model.DaysBetween(day, model.StartOfDay(now)) <= WindowDays
}

// Remote is the backend the syncer writes to.
type Remote interface {
	UpsertRecords(ctx context.Context, rows []remote.RecordRow) error
	UpsertExams(ctx context.Context, rows []remote.ExamRow) error
	UpsertProfile(ctx context.Context, p remote.Profile) error
}

// Syncer pushes local records and exams to the backend.
type Syncer struct {
	remote  Remote
	session *Session
	log     logx.Logger
	now     func() time.Time
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewSyncer returns a syncer. A nil remote or session disables syncing.
func NewSyncer(r Remote, session *Session, log logx.Logger) *Syncer {
	if log == nil {
		log = logx.Discard{}
	}
	return &Syncer{remote: r, session: session, log: log, now: time.Now, timeout: 30 * time.Second}
}

// Session returns the signed-in session, or nil.
func (s *Syncer) Session() *Session {
	if s == nil || s.remote == nil {
		return nil
	}
	return s.session
}

// ShouldSync applies ShouldSync with the syncer's session and clock.
func (s *Syncer) ShouldSync(date string, coachConnected bool) bool {
	return ShouldSync(date, coachConnected, s.Session(), s.now())
}

// SyncRecord mirrors one record when it falls in the sync window.
func (s *Syncer) SyncRecord(ctx context.Context, rec model.DailyRecord, coachConnected bool) error {
	return s.pushRecord(ctx, rec, false, coachConnected)
}

// DeleteRecord mirrors a local delete as a tombstone.
func (s *Syncer) DeleteRecord(ctx context.Context, track model.TrackID, date string, coachConnected bool) error {
	return s.pushRecord(ctx, model.DailyRecord{TrackID: track, Date: date, ActivityType: model.ActivityTopicStudy}, true, coachConnected)
}

func (s *Syncer) pushRecord(ctx context.Context, rec model.DailyRecord, deleted, coachConnected bool) error {
	if !s.ShouldSync(rec.Date, coachConnected) {
		return nil
	}
	row := remote.RecordRowFrom(s.session.UserID, rec, deleted, s.now().UnixMilli())
	if err := s.remote.UpsertRecords(ctx, []remote.RecordRow{row}); err != nil {
		s.log.Warnf("failed to sync record %s: %v", rec.Key(), err)
		return err
	}
	return nil
}

// SyncExam mirrors one exam, tombstones included, when it falls in the
// sync window.
func (s *Syncer) SyncExam(ctx context.Context, e model.ExamRecord, coachConnected bool) error {
	if !s.ShouldSync(e.Date, coachConnected) {
		return nil
	}
	if err := s.remote.UpsertExams(ctx, []remote.ExamRow{remote.ExamRowFrom(s.session.UserID, e)}); err != nil {
		s.log.Warnf("failed to sync exam %s: %v", e.ID, err)
		return err
	}
	return nil
}

// GoSyncRecord runs SyncRecord in the background.
func (s *Syncer) GoSyncRecord(rec model.DailyRecord, coachConnected bool) {
	s.spawn(func(ctx context.Context) { _ = s.SyncRecord(ctx, rec, coachConnected) })
}

// GoDeleteRecord runs DeleteRecord in the background.
func (s *Syncer) GoDeleteRecord(track model.TrackID, date string, coachConnected bool) {
	s.spawn(func(ctx context.Context) { _ = s.DeleteRecord(ctx, track, date, coachConnected) })
}

// GoSyncExam runs SyncExam in the background.
func (s *Syncer) GoSyncExam(e model.ExamRecord, coachConnected bool) {
	s.spawn(func(ctx context.Context) { _ = s.SyncExam(ctx, e, coachConnected) })
}

func (s *Syncer) spawn(fn func(ctx context.Context)) {
	if s.Session() == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		fn(ctx)
	}()
}

// Wait blocks until background syncs finish.
func (s *Syncer) Wait() {
	s.wg.Wait()
}

// SyncInitialLast30Days mirrors every record in the sync window.
func (s *Syncer) SyncInitialLast30Days(ctx context.Context, records map[string]model.DailyRecord) error {
	if s.Session() == nil {
		return ErrNoSession
	}
	nowMs := s.now().UnixMilli()
	rows := make([]remote.RecordRow, 0, len(records))
	for _, rec := range records {
		if s.ShouldSync(rec.Date, true) {
			rows = append(rows, remote.RecordRowFrom(s.session.UserID, rec, false, nowMs))
		}
	}
	if err := s.remote.UpsertRecords(ctx, rows); err != nil {
		return fmt.Errorf("initial record sync: %w", err)
	}
	s.log.Infof("synced %d records", len(rows))
	return nil
}

// SyncInitialExamsLast30Days mirrors every exam in the sync window.
func (s *Syncer) SyncInitialExamsLast30Days(ctx context.Context, exams map[string]model.ExamRecord) error {
	if s.Session() == nil {
		return ErrNoSession
	}
	rows := make([]remote.ExamRow, 0, len(exams))
	for _, e := range exams {
		if s.ShouldSync(e.Date, true) {
			rows = append(rows, remote.ExamRowFrom(s.session.UserID, e))
		}
	}
	if err := s.remote.UpsertExams(ctx, rows); err != nil {
		return fmt.Errorf("initial exam sync: %w", err)
	}
	s.log.Infof("synced %d exams", len(rows))
	return nil
}

// PushProfile mirrors the active track and display name.
func (s *Syncer) PushProfile(ctx context.Context, settings model.AppSettings) error {
	if s.Session() == nil {
		return ErrNoSession
	}
	p := remote.Profile{
		UserID:      s.session.UserID,
		ActiveTrack: string(settings.ActiveTrack),
		DisplayName: settings.DisplayName,
		UpdatedAtMs: s.now().UnixMilli(),
	}
	if err := s.remote.UpsertProfile(ctx, p); err != nil {
		s.log.Warnf("failed to push profile: %v", err)
		return err
	}
	return nil
}
