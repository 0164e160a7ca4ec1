package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/amoylab/hydrowatch/internal/apiserver/database"
	"github.com/amoylab/hydrowatch/internal/apiserver/feed"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/config"
	"github.com/amoylab/hydrowatch/internal/i18n"
	"github.com/amoylab/hydrowatch/internal/mailer"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = 5 * time.Minute

// Scheduler runs the periodic maintenance jobs
type Scheduler struct {
	cfg    config.SchedulerConfig
	db     database.Database
	outbox *mailer.Outbox
	tr     *i18n.I18n
	logger *zap.Logger
	loc    *time.Location
	now    func() time.Time

	cron *cron.Cron
}

// New creates a scheduler. Job times are interpreted in loc; tr may be nil,
// in which case reminder titles are the bare event titles.
func New(cfg config.SchedulerConfig, db database.Database, outbox *mailer.Outbox, tr *i18n.I18n, loc *time.Location, lg *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if cfg.ReminderLayout == "" {
		cfg.ReminderLayout = "Today at %s: %s"
	}
	lg = lg.Named("scheduler")
	cl := cronLogger{lg.Sugar()}
	return &Scheduler{
		cfg:    cfg,
		db:     db,
		outbox: outbox,
		tr:     tr,
		logger: lg,
		loc:    loc,
		now:    time.Now,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		fn   func(context.Context) error
	}{
		{"outbox", s.cfg.OutboxSpec, s.FlushOutbox},
		{"otp_purge", s.cfg.OTPPurgeSpec, s.PurgeOTPs},
		{"reminders", s.cfg.ReminderSpec, func(ctx context.Context) error {
			_, err := s.SendReminders(ctx)
			return err
		}},
	}
	for _, j := range jobs {
		j := j
		if _, err := s.cron.AddFunc(j.spec, func() { s.run(j.name, j.fn) }); err != nil {
			return fmt.Errorf("schedule %s job %q: %w", j.name, j.spec, err)
		}
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
	return nil
}

// Stop waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) run(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	start := time.Now()
	if err := fn(ctx); err != nil {
		s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.logger.Debug("scheduled job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

// FlushOutbox retries queued mail
func (s *Scheduler) FlushOutbox(ctx context.Context) error {
	if s.outbox == nil {
		return nil
	}
	sent, failed, err := s.outbox.Flush(ctx, s.cfg.OutboxBatch)
	if sent+failed > 0 {
		s.logger.Info("mail outbox flushed", zap.Int("sent", sent), zap.Int("failed", failed))
	}
	return err
}

// PurgeOTPs clears verification and reset codes past their expiry
func (s *Scheduler) PurgeOTPs(ctx context.Context) error {
	n, err := s.db.ClearExpiredOTPs(ctx, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("expired codes cleared", zap.Int64("users", n))
	}
	return nil
}

// SendReminders inserts one schedule notification per event dated today.
// Events that already have a reminder are skipped.
func (s *Scheduler) SendReminders(ctx context.Context) (int, error) {
	today := s.now().In(s.loc).Format(feed.DateLayout)
	created := 0
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		events, err := s.db.ListEventsOn(ctx, today)
		if err != nil || len(events) == 0 {
			return err
		}
		existing, err := s.db.ListNotifications(ctx, database.NotificationFilter{Type: cnst.NotificationSchedule})
		if err != nil {
			return err
		}
		reminded := make(map[uint]bool, len(existing))
		for _, n := range existing {
			if n.RelatedID != nil {
				reminded[*n.RelatedID] = true
			}
		}
		for _, e := range events {
			if reminded[e.ID] {
				continue
			}
			id := e.ID
			n := &database.Notification{
				Type:      cnst.NotificationSchedule,
				Title:     s.reminderTitle(e),
				Message:   fmt.Sprintf(s.cfg.ReminderLayout, e.Time, e.Title),
				RelatedID: &id,
				Priority:  cnst.PriorityMedium,
				Status:    cnst.StatusActive,
			}
			if err := s.db.CreateNotification(ctx, n); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if created > 0 {
		s.logger.Info("event reminders created", zap.String("date", today), zap.Int("count", created))
	}
	return created, nil
}

func (s *Scheduler) reminderTitle(e *database.Event) string {
	if s.tr == nil {
		return e.Title
	}
	return s.tr.Translate("ReminderTitle", s.tr.DefaultLanguage(), map[string]any{"Title": e.Title})
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	*zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.Errorw(msg, append(keysAndValues, "error", err)...)
}
