// Package coach links students to coaches through invite codes and gives
// coaches an overview of their students.
package coach

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ritimapp/ritim/internal/cloud"
	"github.com/ritimapp/ritim/internal/logx"
	"github.com/ritimapp/ritim/internal/model"
	"github.com/ritimapp/ritim/internal/remote"
)

// Backend is the remote side of the coach relationship.
type Backend interface {
	VerifyInvite(ctx context.Context, code string) (remote.Invite, error)
	ConsumeInvite(ctx context.Context, code, studentID string) (remote.Invite, error)
	ReleaseInvite(ctx context.Context, code, coachID, studentID string) error
	Unlink(ctx context.Context, coachID, studentID string) error
	Students(ctx context.Context, coachID, since string) ([]remote.StudentSummary, error)
	StudentRecords(ctx context.Context, studentID, since string) ([]model.DailyRecord, error)
	StudentExams(ctx context.Context, studentID, since string) ([]model.ExamRecord, error)
}

// Settings is the settings container.
type Settings interface {
	Get() model.AppSettings
	Update(fn func(*model.AppSettings)) error
}

// Local holds the coach state kept on the device.
type Local interface {
	PendingInitialSync(ctx context.Context) bool
	SetPendingInitialSync(ctx context.Context, pending bool) error
	LoadFavorites(ctx context.Context) map[string]bool
	SaveFavorites(ctx context.Context, favorites map[string]bool) error
}

// RecordSource lists local records.
type RecordSource interface {
	All() map[string]model.DailyRecord
}

// ExamSource lists local exams.
type ExamSource interface {
	All() map[string]model.ExamRecord
}

// Deps wires a Service.
type Deps struct {
	Backend  Backend
	Syncer   *cloud.Syncer
	Settings Settings
	Local    Local
	Records  RecordSource
	Exams    ExamSource
	Log      logx.Logger
}

// Service runs the coach flows.
type Service struct {
	backend  Backend
	syncer   *cloud.Syncer
	settings Settings
	local    Local
	records  RecordSource
	exams    ExamSource
	log      logx.Logger
	now      func() time.Time
}

// New returns a Service.
func New(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = logx.Discard{}
	}
	return &Service{
		backend:  d.Backend,
		syncer:   d.Syncer,
		settings: d.Settings,
		local:    d.Local,
		records:  d.Records,
		exams:    d.Exams,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) session() *cloud.Session {
	if s.backend == nil || s.syncer == nil {
		return nil
	}
	return s.syncer.Session()
}

// ConnectResult describes an established coach link.
type ConnectResult struct {
	CoachID     string
	CoachName   string
	PendingSync bool
}

// NormalizeCode trims and upper-cases an invite code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Connect links the signed-in student to the coach owning code and mirrors
// the last 30 days. Invite failures are returned as *InviteError.
func (s *Service) Connect(ctx context.Context, code string) (ConnectResult, error) {
	session := s.session()
	if session == nil {
		return ConnectResult{}, &InviteError{Kind: InviteAuthRequired}
	}
	code = NormalizeCode(code)
	if code == "" {
		return ConnectResult{}, &InviteError{Kind: InviteInvalid}
	}
	if s.settings.Get().CoachConnected {
		return ConnectResult{}, &InviteError{Kind: InviteAlreadyConnected}
	}
	if _, err := s.backend.VerifyInvite(ctx, code); err != nil {
		return ConnectResult{}, classify(err)
	}
	inv, err := s.backend.ConsumeInvite(ctx, code, session.UserID)
	if err != nil {
		return ConnectResult{}, classify(err)
	}
	if err := s.settings.Update(func(st *model.AppSettings) {
		st.CoachConnected = true
		st.CoachID = inv.CoachID
		st.CoachName = inv.CoachName
	}); err != nil {
		if uerr := s.backend.ReleaseInvite(ctx, code, inv.CoachID, session.UserID); uerr != nil {
			s.log.Errorf("failed to undo coach link %s: %v", inv.CoachID, uerr)
		}
		return ConnectResult{}, fmt.Errorf("save coach: %w", err)
	}
	s.log.Infof("connected to coach %s", inv.CoachID)

	if err := s.syncer.PushProfile(ctx, s.settings.Get()); err != nil {
		s.log.Warnf("profile push failed: %v", err)
	}
	res := ConnectResult{CoachID: inv.CoachID, CoachName: inv.CoachName}
	res.PendingSync = !s.initialSync(ctx)
	return res, nil
}

// initialSync mirrors the sync window and records the outcome in the
// pending flag. It reports whether both syncs succeeded.
func (s *Service) initialSync(ctx context.Context) bool {
	recErr := s.syncer.SyncInitialLast30Days(ctx, s.records.All())
	examErr := s.syncer.SyncInitialExamsLast30Days(ctx, s.exams.All())
	if err := errors.Join(recErr, examErr); err != nil {
		s.log.Warnf("initial sync failed, will retry later: %v", err)
		if err := s.local.SetPendingInitialSync(ctx, true); err != nil {
			s.log.Errorf("failed to save pending sync flag: %v", err)
		}
		return false
	}
	if err := s.local.SetPendingInitialSync(ctx, false); err != nil {
		s.log.Errorf("failed to clear pending sync flag: %v", err)
	}
	return true
}

// RetryPendingSync reruns a failed initial sync. It reports whether a retry
// ran and whether it succeeded.
func (s *Service) RetryPendingSync(ctx context.Context) (ran, ok bool) {
	if !s.local.PendingInitialSync(ctx) {
		return false, false
	}
	if !s.settings.Get().CoachConnected {
		if err := s.local.SetPendingInitialSync(ctx, false); err != nil {
			s.log.Errorf("failed to clear pending sync flag: %v", err)
		}
		return false, false
	}
	if s.session() == nil {
		return false, false
	}
	return true, s.initialSync(ctx)
}

// Disconnect removes the coach link. The local state is cleared even when
// the backend cannot be reached.
func (s *Service) Disconnect(ctx context.Context) error {
	current := s.settings.Get()
	if !current.CoachConnected {
		return nil
	}
	if session := s.session(); session != nil {
		if err := s.backend.Unlink(ctx, current.CoachID, session.UserID); err != nil {
			s.log.Warnf("failed to unlink coach remotely: %v", err)
		}
	}
	if err := s.settings.Update(func(st *model.AppSettings) {
		st.CoachConnected = false
		st.CoachID = ""
		st.CoachName = ""
	}); err != nil {
		return fmt.Errorf("clear coach: %w", err)
	}
	if err := s.local.SetPendingInitialSync(ctx, false); err != nil {
		s.log.Errorf("failed to clear pending sync flag: %v", err)
	}
	return nil
}

// Student is one row of the coach overview.
type Student struct {
	remote.StudentSummary
	Favorite bool
}

// since returns the first date of the coach window.
func (s *Service) since() string {
	return model.FormatDate(model.AddDays(model.StartOfDay(s.now()), -cloud.WindowDays))
}

// Students lists the signed-in coach's students with their last 30 days,
// favorites first.
func (s *Service) Students(ctx context.Context) ([]Student, error) {
	session := s.session()
	if session == nil {
		return nil, &InviteError{Kind: InviteAuthRequired}
	}
	summaries, err := s.backend.Students(ctx, session.UserID, s.since())
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	favorites := s.local.LoadFavorites(ctx)
	out := make([]Student, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, Student{StudentSummary: sum, Favorite: favorites[sum.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Favorite != out[j].Favorite {
			return out[i].Favorite
		}
		return strings.ToLower(out[i].label()) < strings.ToLower(out[j].label())
	})
	return out, nil
}

func (st Student) label() string {
	if st.DisplayName != "" {
		return st.DisplayName
	}
	return st.ID
}

// Label returns the display name, or the id when none is set.
func (st Student) Label() string {
	return st.label()
}

// StudentDetail is a coach's view of one student's recent activity.
type StudentDetail struct {
	Records []model.DailyRecord
	Exams   []model.ExamRecord
}

// Student returns one student's last 30 days.
func (s *Service) Student(ctx context.Context, studentID string) (StudentDetail, error) {
	if s.session() == nil {
		return StudentDetail{}, &InviteError{Kind: InviteAuthRequired}
	}
	since := s.since()
	records, err := s.backend.StudentRecords(ctx, studentID, since)
	if err != nil {
		return StudentDetail{}, fmt.Errorf("student records: %w", err)
	}
	exams, err := s.backend.StudentExams(ctx, studentID, since)
	if err != nil {
		return StudentDetail{}, fmt.Errorf("student exams: %w", err)
	}
	return StudentDetail{Records: records, Exams: exams}, nil
}

// ToggleFavorite flips a student's favorite mark and returns the new value.
func (s *Service) ToggleFavorite(ctx context.Context, studentID string) (bool, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return false, errors.New("öğrenci kimliği boş olamaz")
	}
	favorites := s.local.LoadFavorites(ctx)
	now := !favorites[studentID]
	if now {
		favorites[studentID] = true
	} else {
		delete(favorites, studentID)
	}
	if err := s.local.SaveFavorites(ctx, favorites); err != nil {
		return !now, fmt.Errorf("save favorites: %w", err)
	}
	return now, nil
}
