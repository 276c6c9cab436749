package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/ritimapp/ritim/internal/logx"
)

// ErrPastTrigger is returned for one-shot notifications not in the future.
var ErrPastTrigger = errors.New("notify: trigger time is not in the future")

// Cron is a notification platform backed by an in-process gocron scheduler.
// Fired notifications are handed to the configured Sender.
type Cron struct {
	mu      sync.Mutex
	sched   *gocron.Scheduler
	sender  Sender
	log     logx.Logger
	now     func() time.Time
	pending map[string]Notification
}

// NewCron creates a platform scheduling in loc. The scheduler is idle until Start.
func NewCron(loc *time.Location, sender Sender, log logx.Logger) *Cron {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logx.Discard{}
	}
	s := gocron.NewScheduler(loc)
	s.TagsUnique()
	return &Cron{
		sched:   s,
		sender:  sender,
		log:     log,
		now:     time.Now,
		pending: map[string]Notification{},
	}
}

// Start begins firing scheduled jobs in the background.
func (c *Cron) Start() {
	c.sched.StartAsync()
}

// Stop halts the scheduler.
func (c *Cron) Stop() {
	c.sched.Stop()
}

// ScheduleAt schedules a notification at n.At, replacing any
// notification with the same id.
func (c *Cron) ScheduleAt(_ context.Context, n Notification) error {
	if !n.At.After(c.now()) {
		return ErrPastTrigger
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked(n.ID)
	_, err := c.sched.Every(1).Day().StartAt(n.At).LimitRunsTo(1).Tag(n.ID).Do(c.fire, n.ID)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", n.ID, err)
	}
	c.pending[n.ID] = n
	return nil
}

// Cancel removes a scheduled notification. Unknown ids are ignored.
func (c *Cron) Cancel(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked(id)
	return nil
}

func (c *Cron) cancelLocked(id string) {
	if _, ok := c.pending[id]; !ok {
		return
	}
	delete(c.pending, id)
	if err := c.sched.RemoveByTag(id); err != nil {
		// Already fired and removed by the scheduler.
		_ = err
	}
}

// CancelAll removes every scheduled notification.
func (c *Cron) CancelAll(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sched.Clear()
	c.pending = map[string]Notification{}
	return nil
}

// Scheduled lists pending notifications ordered by trigger time.
func (c *Cron) Scheduled(_ context.Context) ([]Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, 0, len(c.pending))
	for _, n := range c.pending {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].ID < out[j].ID
		}
		return out[i].At.Before(out[j].At)
	})
	return out, nil
}

// Permission reports granted when a delivery channel exists.
func (c *Cron) Permission(_ context.Context) (Permission, error) {
	if c.sender == nil {
		return PermissionDenied, nil
	}
	return PermissionGranted, nil
}

// RequestPermission cannot prompt anyone; it reports the current state.
func (c *Cron) RequestPermission(ctx context.Context) (Permission, error) {
	return c.Permission(ctx)
}

func (c *Cron) fire(id string) {
	c.mu.Lock()
	n, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if !ok {
		return
	}
	if c.sender == nil {
		c.log.Warnf("dropping reminder %s: %v", id, ErrNoSender)
		return
	}
	if err := c.sender.Send(context.Background(), n); err != nil {
		c.log.Warnf("failed to deliver reminder %s: %v", id, err)
		return
	}
	c.log.Infof("delivered reminder %s", id)
}
