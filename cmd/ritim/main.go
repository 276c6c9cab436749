package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ritimapp/ritim/internal/config"
	"github.com/ritimapp/ritim/internal/model"
)

const (
	defaultLogLevel   = "warn"
	defaultStatsDays  = 30
	defaultCurveWin   = 7
	defaultSyncDriver = "postgres"
)

var (
	rootTrack    string
	rootDBPath   string
	rootLogLevel string
)

var headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	rootCmd := newRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logErrf("Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ritim",
		Short:         "Daily study tracker for LGS and YKS students",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return applyRootConfig(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVar(&rootTrack, "track", "", "track (LGS7, LGS8, TYT, AYT); defaults to the active track")
	rootCmd.PersistentFlags().StringVar(&rootDBPath, "db", "", "database path (default: XDG data home)")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newLogCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newRecordsCmd())
	rootCmd.AddCommand(newExamCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newRemindCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newCoachCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newTopicsCmd())
	rootCmd.AddCommand(newOnboardCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

// loadedConfig is the file config merged with the environment, read once
// per invocation.
var loadedConfig config.FileConfig

func applyRootConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(config.DefaultConfigPath(), config.DefaultEnvPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	loadedConfig = cfg
	applyStringConfig(cmd, "track", &rootTrack, cfg.Study.Track)
	applyStringConfig(cmd, "log-level", &rootLogLevel, cfg.Log.Level)
	if rootTrack != "" {
		if _, ok := model.ParseTrack(rootTrack); !ok {
			return fmt.Errorf("--track must be one of LGS7, LGS8, TYT, AYT")
		}
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# ritim configuration
# Uncomment a value to enable it. CLI flags override config values.
# Secrets may also live in %s or the environment
# (%s, %s, %s, %s).

[study]
# track = %q            # Default track (LGS7, LGS8, TYT, AYT)
# days = %d               # Stats window in days

[reminder]
# window-days = 14        # Days scheduled ahead by the reminder daemon

[sync]
# driver = %q      # database/sql driver of the coach backend
# dsn = ""                # Backend connection string
# user-id = ""            # Signed-in account id
# email = ""

[telegram]
# token = ""              # Bot token for reminder delivery
# chat-id = 0

[log]
# level = %q            # debug, info, warn, error
# rollbar-token = ""
# environment = "production"
`,
		config.DefaultEnvPath(),
		config.EnvSyncDSN,
		config.EnvTelegramToken,
		config.EnvTelegramChatID,
		config.EnvRollbarToken,
		model.DefaultTrack,
		defaultStatsDays,
		defaultSyncDriver,
		defaultLogLevel,
	)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// heading renders a section title, styled only on a terminal.
func heading(title string) string {
	if !isTerminal() {
		return title
	}
	return headingStyle.Render(title)
}

func printHeading(cmd *cobra.Command, title string) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), heading(title))
	return err
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
