package logx

import (
	"fmt"

	"github.com/rollbar/rollbar-go"
)

// RollbarConfig configures error forwarding.
type RollbarConfig struct {
	Token       string
	Environment string
	CodeVersion string
}

// Rollbar forwards warnings and errors to Rollbar and mirrors every message
// to the wrapped logger.
type Rollbar struct {
	next Logger
}

var _ Logger = (*Rollbar)(nil)

// NewRollbar configures the global Rollbar client and wraps next.
func NewRollbar(next Logger, cfg RollbarConfig) *Rollbar {
	rollbar.SetToken(cfg.Token)
	rollbar.SetEnvironment(cfg.Environment)
	if cfg.CodeVersion != "" {
		rollbar.SetCodeVersion(cfg.CodeVersion)
	}
	rollbar.SetEnabled(cfg.Token != "")
	return &Rollbar{next: next}
}

// Debugf logs locally only.
func (l *Rollbar) Debugf(format string, args ...any) { l.next.Debugf(format, args...) }

// Infof logs locally only.
func (l *Rollbar) Infof(format string, args ...any) { l.next.Infof(format, args...) }

// Warnf logs locally and reports a warning.
func (l *Rollbar) Warnf(format string, args ...any) {
	l.next.Warnf(format, args...)
	rollbar.Warning(fmt.Sprintf(format, args...))
}

// Errorf logs locally and reports an error.
func (l *Rollbar) Errorf(format string, args ...any) {
	l.next.Errorf(format, args...)
	rollbar.Error(fmt.Errorf(format, args...))
}

// Close flushes queued reports.
func (l *Rollbar) Close() {
	rollbar.Wait()
}
