package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritimapp/ritim/internal/exam"
	"github.com/ritimapp/ritim/internal/model"
	"github.com/ritimapp/ritim/internal/state"
	"github.com/ritimapp/ritim/internal/stats"
)

var (
	examDate     string
	examType     string
	examSubject  string
	examName     string
	examCorrect  int
	examWrong    int
	examBlank    int
	examScores   map[string]string
	examDuration int

	examListAll bool
)

func newExamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exam",
		Short: "Manage practice exams",
	}
	add := &cobra.Command{
		Use:   "add",
		Short: "Add an exam result",
		Args:  cobra.NoArgs,
		RunE:  runExamAddCmd,
	}
	addExamFlags(add)
	edit := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit an exam result",
		Args:  cobra.ExactArgs(1),
		RunE:  runExamEditCmd,
	}
	addExamFlags(edit)
	list := &cobra.Command{
		Use:   "list",
		Short: "List exams",
		Args:  cobra.NoArgs,
		RunE:  runExamListCmd,
	}
	list.Flags().BoolVar(&examListAll, "all", false, "list every track")
	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete an exam",
		Args:  cobra.ExactArgs(1),
		RunE:  runExamRmCmd,
	}
	cmd.AddCommand(add, edit, list, rm)
	return cmd
}

func addExamFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&examDate, "date", "today", "exam date (YYYY-MM-DD, today, yesterday)")
	cmd.Flags().StringVar(&examType, "type", "full", "exam type (full, branch)")
	cmd.Flags().StringVar(&examSubject, "subject", "", "subject key of a branch exam")
	cmd.Flags().StringVar(&examName, "name", "", "optional exam name")
	cmd.Flags().IntVar(&examCorrect, "correct", 0, "correct answers")
	cmd.Flags().IntVar(&examWrong, "wrong", 0, "wrong answers")
	cmd.Flags().IntVar(&examBlank, "blank", 0, "blank answers")
	cmd.Flags().StringToStringVar(&examScores, "score", nil, "per-subject results of a full exam, e.g. matematik=30/5/5")
	cmd.Flags().IntVar(&examDuration, "duration", 0, "duration in minutes")
}

func parseExamType(s string) (model.ExamType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full", "genel":
		return model.ExamFull, nil
	case "branch", "brans", "branş":
		return model.ExamBranch, nil
	}
	return "", fmt.Errorf("--type must be full or branch")
}

// parseScore parses "correct/wrong/blank"; blank may be omitted.
func parseScore(s string) (model.SubjectScore, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) < 2 || len(parts) > 3 {
		return model.SubjectScore{}, fmt.Errorf("invalid score %q (want correct/wrong[/blank])", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return model.SubjectScore{}, fmt.Errorf("invalid score %q: %w", s, err)
		}
		nums[i] = n
	}
	return model.SubjectScore{Correct: nums[0], Wrong: nums[1], Blank: nums[2]}, nil
}

func parseScores(raw map[string]string) (map[string]model.SubjectScore, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]model.SubjectScore, len(raw))
	for key, value := range raw {
		score, err := parseScore(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[strings.ToLower(strings.TrimSpace(key))] = score
	}
	return out, nil
}

func runExamAddCmd(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		date, err := parseDateArg(examDate, time.Now())
		if err != nil {
			return err
		}
		typ, err := parseExamType(examType)
		if err != nil {
			return err
		}
		scores, err := parseScores(examScores)
		if err != nil {
			return err
		}
		e, err := a.exams.Add(exam.Input{
			TrackID:         a.track(),
			Date:            date,
			Type:            typ,
			SubjectKey:      examSubject,
			Name:            examName,
			Correct:         examCorrect,
			Wrong:           examWrong,
			Blank:           examBlank,
			SubjectScores:   scores,
			DurationMinutes: examDuration,
		})
		if err != nil {
			return err
		}
		name := a.exams.DisplayNames()[e.ID]
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Eklendi: %s (net %.2f, id %s)\n", name, e.Net(), e.ID)
		return err
	})
}

// inputFrom returns the input that reproduces e.
func inputFrom(e model.ExamRecord) exam.Input {
	in := exam.Input{
		TrackID:       e.TrackID,
		Date:          e.Date,
		Type:          e.Type,
		SubjectKey:    e.SubjectKey,
		Name:          e.Name,
		Correct:       e.CorrectTotal,
		Wrong:         e.WrongTotal,
		Blank:         e.BlankTotal,
		SubjectScores: e.SubjectScores,
	}
	if e.DurationMinutes != nil {
		in.DurationMinutes = *e.DurationMinutes
	}
	return in
}

func runExamEditCmd(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		current, ok := a.exams.Get(args[0])
		if !ok || current.IsDeleted {
			return fmt.Errorf("%s: %w", args[0], state.ErrExamNotFound)
		}
		in := inputFrom(current)
		flags := cmd.Flags()
		if flags.Changed("date") {
			date, err := parseDateArg(examDate, time.Now())
			if err != nil {
				return err
			}
			in.Date = date
		}
		if flags.Changed("type") {
			typ, err := parseExamType(examType)
			if err != nil {
				return err
			}
			in.Type = typ
		}
		if flags.Changed("subject") {
			in.SubjectKey = examSubject
		}
		if flags.Changed("name") {
			in.Name = examName
		}
		if flags.Changed("correct") || flags.Changed("wrong") || flags.Changed("blank") {
			in.SubjectScores = nil
		}
		if flags.Changed("correct") {
			in.Correct = examCorrect
		}
		if flags.Changed("wrong") {
			in.Wrong = examWrong
		}
		if flags.Changed("blank") {
			in.Blank = examBlank
		}
		if flags.Changed("score") {
			scores, err := parseScores(examScores)
			if err != nil {
				return err
			}
			in.SubjectScores = scores
		}
		if flags.Changed("duration") {
			in.DurationMinutes = examDuration
		}
		if flags.Changed("track") {
			in.TrackID = a.track()
		}
		e, err := a.exams.Update(current.ID, in)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Güncellendi: %s (net %.2f)\n", a.exams.DisplayNames()[e.ID], e.Net())
		return err
	})
}

func runExamListCmd(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		var track model.TrackID
		title := "Tüm denemeler"
		if !examListAll {
			track = a.track()
			title = fmt.Sprintf("%s denemeleri", track.Label())
		}
		exams := a.exams.List(track)
		sort.Slice(exams, func(i, j int) bool {
			if exams[i].Date != exams[j].Date {
				return exams[i].Date < exams[j].Date
			}
			return exams[i].CreatedAtMs < exams[j].CreatedAtMs
		})
		if err := printHeading(cmd, title); err != nil {
			return err
		}
		return stats.RenderExamTable(cmd.OutOrStdout(), exams, a.exams.DisplayNames())
	})
}

func runExamRmCmd(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		names := a.exams.DisplayNames()
		e, err := a.exams.Remove(args[0])
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Silindi: %s\n", names[e.ID])
		return err
	})
}
