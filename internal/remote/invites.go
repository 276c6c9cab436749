package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Invite code failures reported by the backend.
var (
	ErrInviteNotFound = errors.New("remote: invite code not found")
	ErrInviteExpired  = errors.New("remote: invite code expired")
	ErrInviteUsed     = errors.New("remote: invite code already used")
	ErrInviteRevoked  = errors.New("remote: invite code revoked")
	ErrInviteLimit    = errors.New("remote: invite code use limit reached")
	ErrAlreadyLinked  = errors.New("remote: student already linked to coach")
)

// Invite is a coach's invite code.
type Invite struct {
	Code        string        `db:"code"`
	CoachID     string        `db:"coach_id"`
	CoachName   string        `db:"coach_name"`
	ExpiresAtMs sql.NullInt64 `db:"expires_at_ms"`
	MaxUses     int           `db:"max_uses"`
	Uses        int           `db:"uses"`
	Revoked     bool          `db:"revoked"`
}

// check reports why the invite cannot be used at nowMs, or nil.
func (inv Invite) check(nowMs int64) error {
	switch {
	case inv.Revoked:
		return ErrInviteRevoked
	case inv.ExpiresAtMs.Valid && inv.ExpiresAtMs.Int64 <= nowMs:
		return ErrInviteExpired
	case inv.Uses >= inv.MaxUses && inv.MaxUses <= 1:
		return ErrInviteUsed
	case inv.Uses >= inv.MaxUses:
		return ErrInviteLimit
	}
	return nil
}

const selectInviteSQL = `SELECT code, coach_id, coach_name, expires_at_ms, max_uses, uses, revoked
	FROM invite_codes WHERE code = ?`

// getter is implemented by both *sqlx.DB and *sqlx.Tx.
type getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	Rebind(query string) string
}

func getInvite(ctx context.Context, q getter, code string) (Invite, error) {
	var inv Invite
	err := q.GetContext(ctx, &inv, q.Rebind(selectInviteSQL), code)
	if errors.Is(err, sql.ErrNoRows) {
		return Invite{}, ErrInviteNotFound
	}
	if err != nil {
		return Invite{}, fmt.Errorf("get invite: %w", err)
	}
	return inv, nil
}

// CreateInvite stores a new invite code.
func (c *Client) CreateInvite(ctx context.Context, inv Invite) error {
	if inv.MaxUses <= 0 {
		inv.MaxUses = 1
	}
	_, err := c.db.NamedExecContext(ctx, `INSERT INTO invite_codes
		(code, coach_id, coach_name, expires_at_ms, max_uses, uses, revoked)
		VALUES (:code, :coach_id, :coach_name, :expires_at_ms, :max_uses, :uses, :revoked)`, inv)
	if err != nil {
		return fmt.Errorf("create invite: %w", err)
	}
	return nil
}

// RevokeInvite disables a code.
func (c *Client) RevokeInvite(ctx context.Context, code string) error {
	res, err := c.db.ExecContext(ctx, c.db.Rebind(`UPDATE invite_codes SET revoked = ? WHERE code = ?`), true, code)
	if err != nil {
		return fmt.Errorf("revoke invite: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrInviteNotFound
	}
	return nil
}

// VerifyInvite checks that a code can be used without consuming it.
func (c *Client) VerifyInvite(ctx context.Context, code string) (Invite, error) {
	inv, err := getInvite(ctx, c.db, code)
	if err != nil {
		return Invite{}, err
	}
	if err := inv.check(c.now().UnixMilli()); err != nil {
		return inv, err
	}
	return inv, nil
}

// ConsumeInvite uses a code and links the student to its coach.
func (c *Client) ConsumeInvite(ctx context.Context, code, studentID string) (Invite, error) {
	var inv Invite
	err := c.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		inv, err = getInvite(ctx, tx, code)
		if err != nil {
			return err
		}
		nowMs := c.now().UnixMilli()
		if err := inv.check(nowMs); err != nil {
			return err
		}
		var linked int
		if err := tx.GetContext(ctx, &linked, tx.Rebind(`SELECT COUNT(*) FROM coach_links WHERE coach_id = ? AND student_id = ?`),
			inv.CoachID, studentID); err != nil {
			return fmt.Errorf("check link: %w", err)
		}
		if linked > 0 {
			return ErrAlreadyLinked
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE invite_codes SET uses = uses + 1 WHERE code = ? AND uses < max_uses`), code)
		if err != nil {
			return fmt.Errorf("consume invite: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrInviteLimit
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO coach_links (coach_id, student_id, created_at_ms) VALUES (?, ?, ?)`),
			inv.CoachID, studentID, nowMs); err != nil {
			return fmt.Errorf("link student: %w", err)
		}
		inv.Uses++
		return nil
	})
	if err != nil {
		return Invite{}, err
	}
	return inv, nil
}

// ReleaseInvite undoes ConsumeInvite: the link is removed and the code gets
// its use back.
func (c *Client) ReleaseInvite(ctx context.Context, code, coachID, studentID string) error {
	return c.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM coach_links WHERE coach_id = ? AND student_id = ?`),
			coachID, studentID)
		if err != nil {
			return fmt.Errorf("unlink: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE invite_codes SET uses = uses - 1 WHERE code = ? AND uses > 0`), code); err != nil {
			return fmt.Errorf("release invite: %w", err)
		}
		return nil
	})
}

// Unlink removes a coach-student link.
func (c *Client) Unlink(ctx context.Context, coachID, studentID string) error {
	if _, err := c.db.ExecContext(ctx, c.db.Rebind(`DELETE FROM coach_links WHERE coach_id = ? AND student_id = ?`),
		coachID, studentID); err != nil {
		return fmt.Errorf("unlink: %w", err)
	}
	return nil
}

// StudentSummary is a coach's view of one linked student.
type StudentSummary struct {
	ID           string `db:"student_id"`
	DisplayName  string `db:"display_name"`
	ActiveTrack  string `db:"active_track"`
	DaysRecorded int    `db:"days_recorded"`
	FocusMinutes int    `db:"focus_minutes"`
	Questions    int    `db:"questions"`
	Exams        int    `db:"exams"`
	LastDate     string `db:"last_date"`
}

// Students lists a coach's students with their activity on or after since.
func (c *Client) Students(ctx context.Context, coachID, since string) ([]StudentSummary, error) {
	var out []StudentSummary
	query := c.db.Rebind(`SELECT l.student_id AS student_id,
		COALESCE(p.display_name, '') AS display_name,
		COALESCE(p.active_track, '') AS active_track,
		(SELECT COUNT(DISTINCT r.date) FROM daily_records r
			WHERE r.user_id = l.student_id AND r.date >= ? AND r.is_deleted = ?) AS days_recorded,
		(SELECT COALESCE(SUM(r.focus_minutes), 0) FROM daily_records r
			WHERE r.user_id = l.student_id AND r.date >= ? AND r.is_deleted = ?) AS focus_minutes,
		(SELECT COALESCE(SUM(r.question_count), 0) FROM daily_records r
			WHERE r.user_id = l.student_id AND r.date >= ? AND r.is_deleted = ?) AS questions,
		(SELECT COUNT(*) FROM exam_records e
			WHERE e.user_id = l.student_id AND e.date >= ? AND e.is_deleted = ?) AS exams,
		(SELECT COALESCE(MAX(r.date), '') FROM daily_records r
			WHERE r.user_id = l.student_id AND r.is_deleted = ?) AS last_date
		FROM coach_links l
		LEFT JOIN profiles p ON p.user_id = l.student_id
		WHERE l.coach_id = ?
		ORDER BY l.created_at_ms, l.student_id`)
	err := c.db.SelectContext(ctx, &out, query,
		since, false, since, false, since, false, since, false, false, coachID)
	if err != nil {
		return nil, fmt.Errorf("select students: %w", err)
	}
	return out, nil
}
