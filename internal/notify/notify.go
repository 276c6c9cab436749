// Package notify implements the local notification platform used for
// study reminders.
package notify

import (
	"context"
	"errors"
	"time"
)

// Notification is a scheduled reminder.
type Notification struct {
	ID    string
	Title string
	Body  string
	// At is the trigger time.
	At time.Time
}

// Permission is the delivery permission state.
type Permission string

// Permission states.
const (
	PermissionGranted      Permission = "granted"
	PermissionDenied       Permission = "denied"
	PermissionUndetermined Permission = "undetermined"
)

// ErrNoSender is returned when a platform has nowhere to deliver to.
var ErrNoSender = errors.New("notify: no delivery channel configured")

// Sender delivers a fired notification to the user.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}
