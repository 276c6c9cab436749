package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ritimapp/ritim/internal/model"
)

// RecordRow is a daily record as stored in the backend.
type RecordRow struct {
	UserID           string         `db:"user_id"`
	TrackID          string         `db:"track_id"`
	Date             string         `db:"date"`
	FocusMinutes     int            `db:"focus_minutes"`
	ActivityType     string         `db:"activity_type"`
	QuestionCount    sql.NullInt64  `db:"question_count"`
	SubjectBreakdown sql.NullString `db:"subject_breakdown"`
	IsDeleted        bool           `db:"is_deleted"`
	UpdatedAtMs      int64          `db:"updated_at_ms"`
}

// RecordRowFrom maps a local record to its backend row.
func RecordRowFrom(userID string, rec model.DailyRecord, deleted bool, updatedAtMs int64) RecordRow {
	row := RecordRow{
		UserID:        userID,
		TrackID:       string(rec.TrackID),
		Date:          rec.Date,
		FocusMinutes:  rec.FocusMinutes,
		ActivityType:  string(rec.ActivityType),
		QuestionCount: nullInt(rec.QuestionCount),
		IsDeleted:     deleted,
		UpdatedAtMs:   updatedAtMs,
	}
	if len(rec.SubjectBreakdown) > 0 {
		if data, err := json.Marshal(rec.SubjectBreakdown); err == nil {
			row.SubjectBreakdown = sql.NullString{String: string(data), Valid: true}
		}
	}
	if row.ActivityType == "" {
		row.ActivityType = string(model.ActivityTopicStudy)
	}
	return row
}

// Record converts the row back into a local record.
func (r RecordRow) Record() model.DailyRecord {
	rec := model.DailyRecord{
		Date:          r.Date,
		TrackID:       model.TrackID(r.TrackID),
		FocusMinutes:  r.FocusMinutes,
		ActivityType:  model.ActivityType(r.ActivityType),
		QuestionCount: intPtr(r.QuestionCount),
	}
	if r.SubjectBreakdown.Valid {
		var breakdown map[string]int
		if err := json.Unmarshal([]byte(r.SubjectBreakdown.String), &breakdown); err == nil && len(breakdown) > 0 {
			rec.SubjectBreakdown = breakdown
		}
	}
	return rec
}

// ExamRow is an exam as stored in the backend.
type ExamRow struct {
	ID              string         `db:"id"`
	UserID          string         `db:"user_id"`
	TrackID         string         `db:"track_id"`
	Date            string         `db:"date"`
	Type            string         `db:"type"`
	SubjectKey      string         `db:"subject_key"`
	Name            string         `db:"name"`
	CorrectTotal    int            `db:"correct_total"`
	WrongTotal      int            `db:"wrong_total"`
	BlankTotal      int            `db:"blank_total"`
	SubjectScores   sql.NullString `db:"subject_scores"`
	DurationMinutes sql.NullInt64  `db:"duration_minutes"`
	IsDeleted       bool           `db:"is_deleted"`
	DeletedAtMs     sql.NullInt64  `db:"deleted_at_ms"`
	CreatedAtMs     int64          `db:"created_at_ms"`
	UpdatedAtMs     int64          `db:"updated_at_ms"`
}

// ExamRowFrom maps a local exam to its backend row.
func ExamRowFrom(userID string, e model.ExamRecord) ExamRow {
	row := ExamRow{
		ID:              e.ID,
		UserID:          userID,
		TrackID:         string(e.TrackID),
		Date:            e.Date,
		Type:            string(e.Type),
		SubjectKey:      e.SubjectKey,
		Name:            e.Name,
		CorrectTotal:    e.CorrectTotal,
		WrongTotal:      e.WrongTotal,
		BlankTotal:      e.BlankTotal,
		DurationMinutes: nullInt(e.DurationMinutes),
		IsDeleted:       e.IsDeleted,
		DeletedAtMs:     nullInt64(e.DeletedAtMs),
		CreatedAtMs:     e.CreatedAtMs,
		UpdatedAtMs:     e.UpdatedAtMs,
	}
	if len(e.SubjectScores) > 0 {
		if data, err := json.Marshal(e.SubjectScores); err == nil {
			row.SubjectScores = sql.NullString{String: string(data), Valid: true}
		}
	}
	return row
}

// Exam converts the row back into a local exam.
func (r ExamRow) Exam() model.ExamRecord {
	e := model.ExamRecord{
		ID:              r.ID,
		TrackID:         model.TrackID(r.TrackID),
		Date:            r.Date,
		Type:            model.ExamType(r.Type),
		SubjectKey:      r.SubjectKey,
		Name:            r.Name,
		CorrectTotal:    r.CorrectTotal,
		WrongTotal:      r.WrongTotal,
		BlankTotal:      r.BlankTotal,
		DurationMinutes: intPtr(r.DurationMinutes),
		IsDeleted:       r.IsDeleted,
		DeletedAtMs:     int64Ptr(r.DeletedAtMs),
		CreatedAtMs:     r.CreatedAtMs,
		UpdatedAtMs:     r.UpdatedAtMs,
	}
	if r.SubjectScores.Valid {
		var scores map[string]model.SubjectScore
		if err := json.Unmarshal([]byte(r.SubjectScores.String), &scores); err == nil && len(scores) > 0 {
			e.SubjectScores = scores
		}
	}
	return e
}

// Profile is the public part of a student's settings.
type Profile struct {
	UserID      string `db:"user_id"`
	ActiveTrack string `db:"active_track"`
	DisplayName string `db:"display_name"`
	UpdatedAtMs int64  `db:"updated_at_ms"`
}

// Upserts keep the newest version of a row by updated_at_ms.
const upsertRecordSQL = `INSERT INTO daily_records
	(user_id, track_id, date, focus_minutes, activity_type, question_count, subject_breakdown, is_deleted, updated_at_ms)
	VALUES (:user_id, :track_id, :date, :focus_minutes, :activity_type, :question_count, :subject_breakdown, :is_deleted, :updated_at_ms)
	ON CONFLICT (user_id, track_id, date) DO UPDATE SET
		focus_minutes = excluded.focus_minutes,
		activity_type = excluded.activity_type,
		question_count = excluded.question_count,
		subject_breakdown = excluded.subject_breakdown,
		is_deleted = excluded.is_deleted,
		updated_at_ms = excluded.updated_at_ms
	WHERE daily_records.updated_at_ms <= excluded.updated_at_ms`

const upsertExamSQL = `INSERT INTO exam_records
	(id, user_id, track_id, date, type, subject_key, name, correct_total, wrong_total, blank_total,
	 subject_scores, duration_minutes, is_deleted, deleted_at_ms, created_at_ms, updated_at_ms)
	VALUES (:id, :user_id, :track_id, :date, :type, :subject_key, :name, :correct_total, :wrong_total, :blank_total,
	 :subject_scores, :duration_minutes, :is_deleted, :deleted_at_ms, :created_at_ms, :updated_at_ms)
	ON CONFLICT (id) DO UPDATE SET
		track_id = excluded.track_id,
		date = excluded.date,
		type = excluded.type,
		subject_key = excluded.subject_key,
		name = excluded.name,
		correct_total = excluded.correct_total,
		wrong_total = excluded.wrong_total,
		blank_total = excluded.blank_total,
		subject_scores = excluded.subject_scores,
		duration_minutes = excluded.duration_minutes,
		is_deleted = excluded.is_deleted,
		deleted_at_ms = excluded.deleted_at_ms,
		updated_at_ms = excluded.updated_at_ms
	WHERE exam_records.updated_at_ms <= excluded.updated_at_ms
		AND exam_records.user_id = excluded.user_id`

const upsertProfileSQL = `INSERT INTO profiles (user_id, active_track, display_name, updated_at_ms)
	VALUES (:user_id, :active_track, :display_name, :updated_at_ms)
	ON CONFLICT (user_id) DO UPDATE SET
		active_track = excluded.active_track,
		display_name = excluded.display_name,
		updated_at_ms = excluded.updated_at_ms
	WHERE profiles.updated_at_ms <= excluded.updated_at_ms`

// UpsertRecords writes record rows in one transaction.
func (c *Client) UpsertRecords(ctx context.Context, rows []RecordRow) error {
	if len(rows) == 0 {
		return nil
	}
	return c.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, row := range rows {
			if _, err := tx.NamedExecContext(ctx, upsertRecordSQL, row); err != nil {
				return fmt.Errorf("upsert record %s/%s: %w", row.TrackID, row.Date, err)
			}
		}
		return nil
	})
}

// UpsertExams writes exam rows in one transaction.
func (c *Client) UpsertExams(ctx context.Context, rows []ExamRow) error {
	if len(rows) == 0 {
		return nil
	}
	return c.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, row := range rows {
			if _, err := tx.NamedExecContext(ctx, upsertExamSQL, row); err != nil {
				return fmt.Errorf("upsert exam %s: %w", row.ID, err)
			}
		}
		return nil
	})
}

// UpsertProfile writes the student's profile.
func (c *Client) UpsertProfile(ctx context.Context, p Profile) error {
	if _, err := c.db.NamedExecContext(ctx, upsertProfileSQL, p); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Profile returns a stored profile.
func (c *Client) Profile(ctx context.Context, userID string) (Profile, bool, error) {
	var p Profile
	query := c.db.Rebind(`SELECT user_id, active_track, display_name, updated_at_ms FROM profiles WHERE user_id = ?`)
	err := c.db.GetContext(ctx, &p, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, false, nil
	}
	if err != nil {
		return Profile{}, false, fmt.Errorf("get profile: %w", err)
	}
	return p, true, nil
}

// StudentRecords returns a student's live records on or after since,
// newest first.
func (c *Client) StudentRecords(ctx context.Context, studentID, since string) ([]model.DailyRecord, error) {
	var rows []RecordRow
	query := c.db.Rebind(`SELECT user_id, track_id, date, focus_minutes, activity_type, question_count,
		subject_breakdown, is_deleted, updated_at_ms
		FROM daily_records WHERE user_id = ? AND date >= ? AND is_deleted = ?
		ORDER BY date DESC, track_id`)
	if err := c.db.SelectContext(ctx, &rows, query, studentID, since, false); err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	out := make([]model.DailyRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Record())
	}
	return out, nil
}

// StudentExams returns a student's live exams on or after since, newest
// first.
func (c *Client) StudentExams(ctx context.Context, studentID, since string) ([]model.ExamRecord, error) {
	var rows []ExamRow
	query := c.db.Rebind(`SELECT id, user_id, track_id, date, type, subject_key, name, correct_total, wrong_total,
		blank_total, subject_scores, duration_minutes, is_deleted, deleted_at_ms, created_at_ms, updated_at_ms
		FROM exam_records WHERE user_id = ? AND date >= ? AND is_deleted = ?
		ORDER BY date DESC, created_at_ms DESC`)
	if err := c.db.SelectContext(ctx, &rows, query, studentID, since, false); err != nil {
		return nil, fmt.Errorf("select exams: %w", err)
	}
	out := make([]model.ExamRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Exam())
	}
	return out, nil
}
