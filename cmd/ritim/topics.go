package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ritimapp/ritim/internal/model"
)

var onboardReset bool

var moodLabels = map[model.Mood]string{
	model.MoodGood:   "iyi",
	model.MoodMedium: "orta",
	model.MoodHard:   "zor",
}

func newTopicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List how you feel about topics",
		Args:  cobra.NoArgs,
		RunE:  runTopicsListCmd,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set TOPIC good|medium|hard",
		Short: "Mark a topic",
		Args:  cobra.ExactArgs(2),
		RunE:  runTopicsSetCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear TOPIC",
		Short: "Remove a topic mark",
		Args:  cobra.ExactArgs(1),
		RunE:  runTopicsClearCmd,
	})
	return cmd
}

func runTopicsListCmd(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		moods := a.topics.All()
		if len(moods) == 0 {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "İşaretli konu yok.")
			return err
		}
		ids := make([]string, 0, len(moods))
		for id := range moods {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, moodLabels[moods[id]]); err != nil {
				return err
			}
		}
		return nil
	})
}

func runTopicsSetCmd(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		return a.topics.SetMood(args[0], model.Mood(args[1]))
	})
}

func runTopicsClearCmd(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		if !a.topics.Clear(args[0]) {
			return fmt.Errorf("topic %q is not marked", args[0])
		}
		return nil
	})
}

func newOnboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "onboard [GRADE]",
		Short: "Answer the first-run question (grade 7-12 or mezun)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runOnboardCmd,
	}
	cmd.Flags().BoolVar(&onboardReset, "reset", false, "forget the onboarding answer")
	return cmd
}

func runOnboardCmd(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		out := cmd.OutOrStdout()
		if onboardReset {
			a.onboarding.Reset()
			_, err := fmt.Fprintln(out, "Başlangıç sıfırlandı.")
			return err
		}
		if len(args) == 0 {
			ob := a.onboarding.Get()
			if !ob.Completed {
				_, err := fmt.Fprintln(out, "Henüz tamamlanmadı. Kullanım: ritim onboard <sınıf>")
				return err
			}
			_, err := fmt.Fprintf(out, "Sınıf: %s\n", ob.Grade)
			return err
		}
		track, err := a.onboarding.Complete(args[0])
		if err != nil {
			return err
		}
		if err := a.settings.Update(func(s *model.AppSettings) { s.ActiveTrack = track }); err != nil {
			return fmt.Errorf("invalid settings: %w", err)
		}
		_, err = fmt.Fprintf(out, "Alan: %s\n", track.Label())
		return err
	})
}
