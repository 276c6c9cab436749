package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritimapp/ritim/internal/model"
	"github.com/ritimapp/ritim/internal/state"
	"github.com/ritimapp/ritim/internal/stats"
)

var (
	logDate      string
	logFocus     int
	logTopics    bool
	logQuestions bool
	logCount     int
	logSubjects  map[string]int

	recordsLast int
)

// parseDateArg accepts YYYY-MM-DD, "today" and "yesterday".
func parseDateArg(s string, now time.Time) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today", "bugun", "bugün":
		return model.FormatDate(now), nil
	case "yesterday", "dun", "dün":
		return model.FormatDate(model.AddDays(model.StartOfDay(now), -1)), nil
	}
	if !model.IsDate(s) {
		return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return s, nil
}

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record a day of study",
		Args:  cobra.NoArgs,
		RunE:  runLogCmd,
	}
	cmd.Flags().StringVar(&logDate, "date", "today", "day to record (YYYY-MM-DD, today, yesterday)")
	cmd.Flags().IntVar(&logFocus, "focus", 0, "focus minutes")
	cmd.Flags().BoolVar(&logTopics, "topics", false, "studied topics")
	cmd.Flags().BoolVar(&logQuestions, "questions", false, "solved questions")
	cmd.Flags().IntVar(&logCount, "count", 0, "total questions solved")
	cmd.Flags().StringToIntVar(&logSubjects, "subject", nil, "questions per subject, e.g. matematik=20,fen=10")
	return cmd
}

func runLogCmd(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		date, err := parseDateArg(logDate, time.Now())
		if err != nil {
			return err
		}
		questions := logQuestions || logCount > 0 || len(logSubjects) > 0
		rec, err := state.NewRecord(state.RecordInput{
			TrackID:       a.track(),
			Date:          date,
			FocusMinutes:  logFocus,
			Topics:        logTopics,
			Questions:     questions,
			QuestionCount: logCount,
			Breakdown:     logSubjects,
		})
		if err != nil {
			if errors.Is(err, state.ErrUnknownSubject) {
				return fmt.Errorf("%w (dersler: %s)", err, subjectKeys(a.track()))
			}
			return err
		}
		_, existed := a.records.Get(rec.TrackID, rec.Date)
		a.records.Upsert(rec)
		verb := "Kaydedildi"
		if existed {
			verb = "Güncellendi"
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s %s, %d dk\n", verb, rec.TrackID.Label(), rec.Date, rec.FocusMinutes)
		return err
	})
}

func subjectKeys(track model.TrackID) string {
	subjects := track.Subjects()
	keys := make([]string, 0, len(subjects))
	for _, s := range subjects {
		keys = append(keys, s.Key)
	}
	return strings.Join(keys, ", ")
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete DATE",
		Short: "Delete the record of a day",
		Args:  cobra.ExactArgs(1),
		RunE:  runDeleteCmd,
	}
}

func runDeleteCmd(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		date, err := parseDateArg(args[0], time.Now())
		if err != nil {
			return err
		}
		track := a.track()
		if !a.records.Delete(track, date) {
			return fmt.Errorf("no %s record on %s", track, date)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Silindi: %s %s\n", track.Label(), date)
		return err
	})
}

func newRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List daily records",
		Args:  cobra.NoArgs,
		RunE:  runRecordsCmd,
	}
	cmd.Flags().IntVar(&recordsLast, "last", 0, "limit to last N records")
	return cmd
}

func runRecordsCmd(cmd *cobra.Command, _ []string) error {
	if recordsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	return withApp(cmd.Context(), func(a *app) error {
		track := a.track()
		records := a.records.ByTrack(track)
		if recordsLast > 0 && len(records) > recordsLast {
			records = records[:recordsLast]
		}
		if err := printHeading(cmd, fmt.Sprintf("%s kayıtları", track.Label())); err != nil {
			return err
		}
		return stats.RenderRecordTable(cmd.OutOrStdout(), records)
	})
}
