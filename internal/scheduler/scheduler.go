// Package scheduler runs the periodic overdue and reminder sweeps.
package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/erazemk/storekeeper/internal/notify"
	"github.com/erazemk/storekeeper/internal/store"
)

// Default job schedules.
const (
	DefaultOverdueSpec  = "@every 1m"
	DefaultReminderSpec = "@every 30s"
)

// Config selects when each job runs. Empty specs use the defaults.
type Config struct {
	OverdueSpec  string
	ReminderSpec string
}

// Scheduler owns the cron runner and the jobs registered on it.
type Scheduler struct {
	db       *sql.DB
	notifier *notify.Notifier
	cron     *cron.Cron
	now      func() time.Time
}

// New registers the jobs without starting them.
func New(db *sql.DB, notifier *notify.Notifier, cfg Config) (*Scheduler, error) {
	s := &Scheduler{
		db:       db,
		notifier: notifier,
		cron:     cron.New(),
		now:      time.Now,
	}

	jobs := []struct {
		name, spec string
		run        func(context.Context) (int, error)
	}{
		{"overdue", orDefault(cfg.OverdueSpec, DefaultOverdueSpec), s.CheckOverdue},
		{"reminders", orDefault(cfg.ReminderSpec, DefaultReminderSpec), s.SendReminders},
		{"revoked-tokens", "@daily", s.purgeRevokedTokens},
	}
	for _, j := range jobs {
		name, run := j.name, j.run
		if _, err := s.cron.AddFunc(j.spec, func() { s.runJob(name, run) }); err != nil {
			return nil, fmt.Errorf("registering job %s: %w", name, err)
		}
	}
	return s, nil
}

// Start runs the jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// CheckOverdue notifies once about every release that has passed its due
// date with units outstanding.
func (s *Scheduler) CheckOverdue(ctx context.Context) (int, error) {
	created, err := store.ClaimOverdueReleases(ctx, s.db, s.now())
	if err != nil {
		return 0, err
	}
	s.notifier.Publish(ctx, created)
	return len(created), nil
}

// SendReminders notifies once about every schedule whose reminder is due.
func (s *Scheduler) SendReminders(ctx context.Context) (int, error) {
	created, err := store.ClaimDueReminders(ctx, s.db, s.now())
	if err != nil {
		return 0, err
	}
	s.notifier.Publish(ctx, created)
	return len(created), nil
}

func (s *Scheduler) purgeRevokedTokens(ctx context.Context) (int, error) {
	n, err := store.PurgeRevokedTokens(ctx, s.db)
	return int(n), err
}

// runJob logs failures and swallows them; the next tick tries again.
func (s *Scheduler) runJob(name string, run func(context.Context) (int, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := run(ctx)
	if err != nil {
		slog.Error("scheduled job failed", "job", name, "error", err)
		return
	}
	if n > 0 {
		slog.Info("scheduled job done", "job", name, "count", n)
	}
}

func orDefault(spec, def string) string {
	if spec == "" {
		return def
	}
	return spec
}
