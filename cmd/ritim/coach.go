package main

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ritimapp/ritim/internal/coach"
	"github.com/ritimapp/ritim/internal/config"
	"github.com/ritimapp/ritim/internal/exam"
	"github.com/ritimapp/ritim/internal/model"
	"github.com/ritimapp/ritim/internal/remote"
	"github.com/ritimapp/ritim/internal/stats"
)

var (
	inviteMaxUses    int
	inviteExpireDays int
	inviteCoachName  string

	syncMigrate bool
)

var errNoBackend = errors.New("coach backend is not configured (set sync.dsn or " + config.EnvSyncDSN + ")")

func newCoachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coach",
		Short: "Connect to a coach or review students",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "connect CODE",
		Short: "Connect to a coach with an invite code",
		Args:  cobra.ExactArgs(1),
		RunE:  runCoachConnectCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "disconnect",
		Short: "Disconnect from the coach",
		Args:  cobra.NoArgs,
		RunE:  runCoachDisconnectCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "students",
		Short: "List your students (coach accounts)",
		Args:  cobra.NoArgs,
		RunE:  runCoachStudentsCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "student ID",
		Short: "Show a student's last 30 days",
		Args:  cobra.ExactArgs(1),
		RunE:  runCoachStudentCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "fav ID",
		Short: "Toggle a student's favorite mark",
		Args:  cobra.ExactArgs(1),
		RunE:  runCoachFavCmd,
	})
	invite := &cobra.Command{
		Use:   "invite",
		Short: "Create an invite code (coach accounts)",
		Args:  cobra.NoArgs,
		RunE:  runCoachInviteCmd,
	}
	invite.Flags().IntVar(&inviteMaxUses, "max-uses", 1, "number of students that may use the code")
	invite.Flags().IntVar(&inviteExpireDays, "expires-days", 7, "days until the code expires (0: never)")
	invite.Flags().StringVar(&inviteCoachName, "name", "", "coach name shown to students")
	cmd.AddCommand(invite)
	cmd.AddCommand(&cobra.Command{
		Use:   "revoke CODE",
		Short: "Revoke an invite code",
		Args:  cobra.ExactArgs(1),
		RunE:  runCoachRevokeCmd,
	})
	return cmd
}

// printInviteError writes invite failures as their user-facing message and
// reports whether err was one.
func printInviteError(cmd *cobra.Command, err error) bool {
	if _, ok := coach.KindOf(err); !ok {
		return false
	}
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return true
}

func runCoachConnectCmd(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		res, err := a.coach.Connect(cmd.Context(), args[0])
		if err != nil {
			if printInviteError(cmd, err) {
				return errors.New("connect failed")
			}
			return err
		}
		name := res.CoachName
		if name == "" {
			name = res.CoachID
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Koçuna bağlandın: %s\n", name); err != nil {
			return err
		}
		if res.PendingSync {
			logErrln("Son 30 gün aktarılamadı; `ritim sync` ile tekrar dene.")
		}
		return nil
	})
}

func runCoachDisconnectCmd(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		if !a.settings.Get().CoachConnected {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Bağlı bir koç yok.")
			return err
		}
		if err := a.coach.Disconnect(cmd.Context()); err != nil {
			return err
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "Koç bağlantısı kaldırıldı.")
		return err
	})
}

func runCoachStudentsCmd(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		students, err := a.coach.Students(cmd.Context())
		if err != nil {
			if printInviteError(cmd, err) {
				return errors.New("list students failed")
			}
			return err
		}
		if err := printHeading(cmd, "Öğrenciler (son 30 gün)"); err != nil {
			return err
		}
		if len(students) == 0 {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Henüz öğrenci yok.")
			return err
		}
		headers := []string{"", "Öğrenci", "Alan", "Gün", "Odak (dk)", "Soru", "Deneme", "Son kayıt", "ID"}
		rows := make([][]string, 0, len(students))
		for _, s := range students {
			fav := ""
			if s.Favorite {
				fav = "★"
			}
			track := s.ActiveTrack
			if t, ok := model.ParseTrack(track); ok {
				track = t.ShortLabel()
			}
			rows = append(rows, []string{
				fav,
				s.Label(),
				track,
				fmt.Sprintf("%d", s.DaysRecorded),
				fmt.Sprintf("%d", s.FocusMinutes),
				fmt.Sprintf("%d", s.Questions),
				fmt.Sprintf("%d", s.Exams),
				s.LastDate,
				s.ID,
			})
		}
		return stats.WriteTable(cmd.OutOrStdout(), headers, rows, map[int]bool{3: true, 4: true, 5: true, 6: true})
	})
}

func runCoachStudentCmd(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		detail, err := a.coach.Student(cmd.Context(), args[0])
		if err != nil {
			if printInviteError(cmd, err) {
				return errors.New("load student failed")
			}
			return err
		}
		out := cmd.OutOrStdout()
		if err := printHeading(cmd, "Kayıtlar"); err != nil {
			return err
		}
		if err := stats.RenderRecordTable(out, detail.Records); err != nil {
			return err
		}
		if err := printHeading(cmd, "Denemeler"); err != nil {
			return err
		}
		exam.SortByCreation(detail.Exams)
		return stats.RenderExamTable(out, detail.Exams, exam.DisplayNames(detail.Exams))
	})
}

func runCoachFavCmd(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		fav, err := a.coach.ToggleFavorite(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		msg := "Favorilerden çıkarıldı"
		if fav {
			msg = "Favorilere eklendi"
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", msg, args[0])
		return err
	})
}

// newInviteCode returns an eight character code.
func newInviteCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:8])
}

func runCoachInviteCmd(cmd *cobra.Command, _ []string) error {
	if inviteMaxUses <= 0 {
		return fmt.Errorf("--max-uses must be > 0")
	}
	if inviteExpireDays < 0 {
		return fmt.Errorf("--expires-days must be >= 0")
	}
	return withApp(cmd.Context(), func(a *app) error {
		session := a.syncer.Session()
		if a.remote == nil || session == nil {
			return errNoBackend
		}
		inv := remote.Invite{
			Code:      newInviteCode(),
			CoachID:   session.UserID,
			CoachName: inviteCoachName,
			MaxUses:   inviteMaxUses,
		}
		if inv.CoachName == "" {
			inv.CoachName = a.settings.Get().DisplayName
		}
		if inviteExpireDays > 0 {
			expires := time.Now().Add(time.Duration(inviteExpireDays) * 24 * time.Hour)
			inv.ExpiresAtMs = sql.NullInt64{Int64: expires.UnixMilli(), Valid: true}
		}
		if err := a.remote.CreateInvite(cmd.Context(), inv); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Davet kodu: %s\n", inv.Code)
		return err
	})
}

func runCoachRevokeCmd(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		if a.remote == nil {
			return errNoBackend
		}
		code := coach.NormalizeCode(args[0])
		if err := a.remote.RevokeInvite(cmd.Context(), code); err != nil {
			if errors.Is(err, remote.ErrInviteNotFound) {
				return fmt.Errorf("%s: %s", code, coach.InviteInvalid.Message())
			}
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "İptal edildi: %s\n", code)
		return err
	})
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Retry a failed initial sync with the coach backend",
		Args:  cobra.NoArgs,
		RunE:  runSyncCmd,
	}
	cmd.Flags().BoolVar(&syncMigrate, "migrate", false, "create the backend tables first")
	return cmd
}

func runSyncCmd(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		if a.remote == nil {
			return errNoBackend
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		if syncMigrate {
			if err := a.remote.Migrate(ctx); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(out, "Backend tables ready."); err != nil {
				return err
			}
		}
		ran, ok := a.coach.RetryPendingSync(ctx)
		switch {
		case !ran:
			_, err := fmt.Fprintln(out, "Bekleyen senkronizasyon yok.")
			return err
		case !ok:
			return errors.New("senkronizasyon yine başarısız oldu, daha sonra tekrar dene")
		}
		_, err := fmt.Fprintln(out, "Son 30 gün koçuna aktarıldı.")
		return err
	})
}
