package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritimapp/ritim/internal/logx"
	"github.com/ritimapp/ritim/internal/model"
	"github.com/ritimapp/ritim/internal/notify"
	"github.com/ritimapp/ritim/internal/reminder"
)

var (
	remindChannel    string
	remindWindowDays int
	remindList       bool
	remindTonight    bool
	remindTwoDays    bool
	remindPoll       time.Duration
	telegramToken    string
	telegramChatID   int64
)

func newRemindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run the reminder daemon",
		Long: "Keeps study reminders scheduled for the coming days and delivers them\n" +
			"to the console or a Telegram chat. Changes made by other ritim commands\n" +
			"are picked up on the next poll.",
		Args: cobra.NoArgs,
		RunE: runRemindCmd,
	}
	cmd.Flags().StringVar(&remindChannel, "channel", "auto", "delivery channel (auto, console, telegram, none)")
	cmd.Flags().IntVar(&remindWindowDays, "window-days", reminder.DefaultWindowDays, "days scheduled ahead")
	cmd.Flags().BoolVar(&remindList, "list", false, "run one scheduling pass, print what was scheduled and exit")
	cmd.Flags().BoolVar(&remindTonight, "tonight", false, "only remind tonight if today has no record, then exit")
	cmd.Flags().BoolVar(&remindTwoDays, "two-days", false, "only remind tonight if the last days are missing too, then exit")
	cmd.MarkFlagsMutuallyExclusive("list", "tonight", "two-days")
	cmd.Flags().DurationVar(&remindPoll, "poll", reminder.DefaultPollInterval, "store poll interval")
	addTelegramFlags(cmd)
	return cmd
}

func addTelegramFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&telegramToken, "telegram-token", "", "Telegram bot token")
	cmd.Flags().Int64Var(&telegramChatID, "telegram-chat", 0, "Telegram chat id")
}

func applyTelegramConfig(cmd *cobra.Command) {
	applyStringConfig(cmd, "telegram-token", &telegramToken, loadedConfig.Telegram.Token)
	applyInt64Config(cmd, "telegram-chat", &telegramChatID, loadedConfig.Telegram.ChatID)
}

// newSender picks the delivery channel. A nil sender leaves the platform
// without permission.
func newSender(channel string, out io.Writer) (notify.Sender, error) {
	telegramReady := telegramToken != "" && telegramChatID != 0
	switch strings.ToLower(strings.TrimSpace(channel)) {
	case "auto", "":
		if telegramReady {
			return newTelegramSender()
		}
		return notify.NewConsole(out), nil
	case "console":
		return notify.NewConsole(out), nil
	case "telegram":
		if !telegramReady {
			return nil, fmt.Errorf("telegram channel needs --telegram-token and --telegram-chat")
		}
		return newTelegramSender()
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("--channel must be auto, console, telegram or none")
}

func newTelegramSender() (notify.Sender, error) {
	tg, err := notify.NewTelegram(telegramToken, telegramChatID)
	if err != nil {
		return nil, err
	}
	return tg, nil
}

func newPlatform(channel string, out io.Writer, log logx.Logger) (*notify.Cron, error) {
	sender, err := newSender(channel, out)
	if err != nil {
		return nil, err
	}
	return notify.NewCron(time.Local, sender, log), nil
}

func runRemindCmd(cmd *cobra.Command, _ []string) error {
	applyIntConfig(cmd, "window-days", &remindWindowDays, loadedConfig.Reminder.WindowDays)
	applyTelegramConfig(cmd)
	if remindWindowDays <= 0 {
		return fmt.Errorf("--window-days must be > 0")
	}
	ctx := cmd.Context()
	return withApp(ctx, func(a *app) error {
		platform, err := newPlatform(remindChannel, cmd.OutOrStdout(), a.log)
		if err != nil {
			return err
		}
		resched := reminder.NewRescheduler(platform, a.log)
		resched.SetWindowDays(remindWindowDays)
		switch {
		case remindList:
			return printSchedule(cmd, a, platform, resched)
		case remindTonight:
			return remindToday(cmd, a, platform, resched, reminder.Tonight)
		case remindTwoDays:
			return remindToday(cmd, a, platform, resched, reminder.TwoDaysMissing)
		}
		if err := resched.Enable(ctx); err != nil {
			logErrln(err)
		}
		platform.Start()
		defer platform.Stop()

		watcher := reminder.NewWatcher(a.store, resched, a.log)
		watcher.SetInterval(remindPoll)
		logErrf("Reminder daemon running (channel %s, %d days ahead). Ctrl+C to stop.\n", remindChannel, remindWindowDays)
		watcher.Run(ctx)
		return nil
	})
}

// remindToday schedules today's reminder when check selects one and waits
// until it is delivered.
func remindToday(cmd *cobra.Command, a *app, platform *notify.Cron, resched *reminder.Rescheduler, check reminder.Check) error {
	ctx := cmd.Context()
	recorded := reminder.RecordedDates(a.records.All(), a.exams.All())
	entry, ok := resched.ScheduleToday(ctx, recorded, a.settings.Get(), check)
	if !ok {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "Bugün için hatırlatıcı gerekmiyor.")
		return err
	}
	logErrf("Reminder scheduled for %s. Waiting to deliver it.\n", entry.TriggerAt.Format("15:04"))
	platform.Start()
	defer platform.Stop()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		pending, err := platform.Scheduled(ctx)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// printSchedule runs one pass against the platform and lists what it holds.
func printSchedule(cmd *cobra.Command, a *app, platform *notify.Cron, resched *reminder.Rescheduler) error {
	ctx := cmd.Context()
	settings := a.settings.Get()
	out := cmd.OutOrStdout()
	if !settings.ReminderEnabled {
		_, err := fmt.Fprintln(out, "Hatırlatıcılar kapalı.")
		return err
	}
	if err := resched.Enable(ctx); err != nil {
		logErrln(err)
	}
	resched.Reschedule(ctx, reminder.RecordedDates(a.records.All(), a.exams.All()), settings)
	pending, err := platform.Scheduled(ctx)
	if err != nil {
		return err
	}
	if err := printHeading(cmd, "Planlanan hatırlatıcılar"); err != nil {
		return err
	}
	if len(pending) == 0 {
		_, err := fmt.Fprintln(out, "Planlanacak hatırlatıcı yok.")
		return err
	}
	for _, n := range pending {
		if _, err := fmt.Fprintf(out, "%s  %s\n", n.At.Format("2006-01-02 15:04"), n.Title); err != nil {
			return err
		}
	}
	return nil
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change settings",
		Args:  cobra.NoArgs,
		RunE:  runSettingsShowCmd,
	}
	reminderCmd := &cobra.Command{
		Use:       "reminder on|off|HH:MM",
		Short:     "Turn reminders on or off, or set their time",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE:      runSettingsReminderCmd,
	}
	addTelegramFlags(reminderCmd)
	cmd.AddCommand(reminderCmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "track TRACK",
		Short: "Set the active track",
		Args:  cobra.ExactArgs(1),
		RunE:  runSettingsTrackCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "name NAME",
		Short: "Set the display name shown to your coach",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateSettings(cmd, func(s *model.AppSettings) { s.DisplayName = strings.TrimSpace(args[0]) })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "email EMAIL",
		Short: "Set the account email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateSettings(cmd, func(s *model.AppSettings) { s.AccountEmail = strings.TrimSpace(args[0]) })
		},
	})
	return cmd
}

func onOff(b bool) string {
	if b {
		return "açık"
	}
	return "kapalı"
}

func runSettingsShowCmd(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		s := a.settings.Get()
		coachLine := "bağlı değil"
		if s.CoachConnected {
			coachLine = s.CoachName
			if coachLine == "" {
				coachLine = s.CoachID
			}
		}
		lines := []string{
			fmt.Sprintf("Alan:          %s", s.ActiveTrack.Label()),
			fmt.Sprintf("Hatırlatıcı:   %s, %02d:%02d", onOff(s.ReminderEnabled), s.ReminderHour, s.ReminderMinute),
			fmt.Sprintf("Ad:            %s", s.DisplayName),
			fmt.Sprintf("E-posta:       %s", s.AccountEmail),
			fmt.Sprintf("Koç:           %s", coachLine),
		}
		if err := printHeading(cmd, "Ayarlar"); err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
				return err
			}
		}
		return nil
	})
}

func updateSettings(cmd *cobra.Command, fn func(*model.AppSettings)) error {
	return withApp(cmd.Context(), func(a *app) error {
		if err := a.settings.Update(fn); err != nil {
			return fmt.Errorf("invalid settings: %w", err)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "Kaydedildi.")
		return err
	})
}

// parseClock parses HH:MM.
func parseClock(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q (want HH:MM)", s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

func runSettingsReminderCmd(cmd *cobra.Command, args []string) error {
	applyTelegramConfig(cmd)
	arg := strings.ToLower(strings.TrimSpace(args[0]))
	return withApp(cmd.Context(), func(a *app) error {
		var fn func(*model.AppSettings)
		switch arg {
		case "on":
			fn = func(s *model.AppSettings) { s.ReminderEnabled = true }
		case "off":
			fn = func(s *model.AppSettings) { s.ReminderEnabled = false }
		default:
			hour, minute, err := parseClock(arg)
			if err != nil {
				return err
			}
			fn = func(s *model.AppSettings) { s.ReminderHour, s.ReminderMinute = hour, minute }
		}
		if err := a.settings.Update(fn); err != nil {
			return fmt.Errorf("invalid settings: %w", err)
		}
		s := a.settings.Get()
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Hatırlatıcı %s, %02d:%02d\n", onOff(s.ReminderEnabled), s.ReminderHour, s.ReminderMinute); err != nil {
			return err
		}
		if arg != "on" {
			return nil
		}
		platform, err := newPlatform("auto", cmd.OutOrStdout(), a.log)
		if err != nil {
			return err
		}
		if err := reminder.NewRescheduler(platform, a.log).Enable(cmd.Context()); errors.Is(err, reminder.ErrPermissionDenied) {
			logErrln(err)
		}
		return nil
	})
}

func runSettingsTrackCmd(cmd *cobra.Command, args []string) error {
	track, ok := model.ParseTrack(args[0])
	if !ok {
		return fmt.Errorf("track must be one of LGS7, LGS8, TYT, AYT")
	}
	return updateSettings(cmd, func(s *model.AppSettings) { s.ActiveTrack = track })
}
