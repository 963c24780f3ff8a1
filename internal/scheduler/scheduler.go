// Package scheduler runs the recurring jobs: the alert sweep and the per-user portfolio reports.
package scheduler

import (
	"context"
	"sync"
	"time"

	"crypto-portfolio-bot/internal/types"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type Sweeper interface {
	CheckAlerts(ctx context.Context) int
}

type ReportSender interface {
	SendReport(ctx context.Context, userID int64) error
}

type ReportSource interface {
	GetAllReports(ctx context.Context) ([]types.ReportSubscription, error)
}

type Scheduler struct {
	cron     *cron.Cron
	loc      *time.Location
	reporter ReportSender
	now      func() time.Time

	ctx     context.Context
	sweepID cron.EntryID

	mu      sync.Mutex
	entries map[int64]cron.EntryID
}

// New registers the alert sweep every interval. Report jobs are added by Reconfigure.
func New(loc *time.Location, interval time.Duration, sweeper Sweeper, reporter ReportSender) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	logger := cron.PrintfLogger(log.StandardLogger())

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(logger)),
		),
		loc:      loc,
		reporter: reporter,
		now:      time.Now,
		ctx:      context.Background(),
		entries:  make(map[int64]cron.EntryID),
	}

	sweep := cron.NewChain(cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(func() {
		if fired := sweeper.CheckAlerts(s.ctx); fired > 0 {
			log.Infof("🔔 %d price alerts fired", fired)
		}
	}))
	s.sweepID = s.cron.Schedule(cron.Every(interval), sweep)
	return s
}

// Reconfigure replaces every report job with one per subscription. Schedules are validated first;
// on error the running set is left untouched. The alert sweep is never affected.
func (s *Scheduler) Reconfigure(subs []types.ReportSubscription) error {
	schedules := make(map[int64]*ReportSchedule, len(subs))
	for _, sub := range subs {
		sched, err := NewReportSchedule(sub, s.loc)
		if err != nil {
			return errors.Wrapf(err, "report of user %d", sub.UserID)
		}
		schedules[sub.UserID] = sched
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make(map[int64]cron.EntryID, len(schedules))
	for userID, sched := range schedules {
		entries[userID] = s.cron.Schedule(sched, s.reportJob(userID))
	}
	for _, id := range s.entries {
		s.cron.Remove(id)
	}
	s.entries = entries

	log.Infof("📅 %d scheduled reports active", len(entries))
	return nil
}

// Rebuild reloads every subscription from source.
func (s *Scheduler) Rebuild(ctx context.Context, source ReportSource) error {
	subs, err := source.GetAllReports(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load report subscriptions")
	}
	return s.Reconfigure(subs)
}

func (s *Scheduler) reportJob(userID int64) cron.Job {
	return cron.FuncJob(func() {
		logger := log.WithField("user_id", userID)
		if err := s.reporter.SendReport(s.ctx, userID); err != nil {
			logger.Errorf("❌ Scheduled report failed: %v", err)
			return
		}
		logger.Info("✅ Scheduled report sent")
	})
}

// NextRun reports when the user's report fires next.
func (s *Scheduler) NextRun(userID int64) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[userID]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}

	entry := s.cron.Entry(id)
	if !entry.Valid() {
		return time.Time{}, false
	}
	return entry.Schedule.Next(s.now().In(s.loc)), true
}

func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
