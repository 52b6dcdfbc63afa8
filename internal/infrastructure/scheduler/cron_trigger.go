package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobSchedule describes when one job type fires. Weekday and DayOfMonth are
// optional constraints; a nil value means the job runs every day.
type JobSchedule struct {
	JobType    JobType
	Hour       int
	Minute     int
	Weekday    *time.Weekday
	DayOfMonth *int
}

// matches reports whether the schedule fires at the given instant
func (s JobSchedule) matches(now time.Time) bool {
	if now.Hour() != s.Hour || now.Minute() != s.Minute {
		return false
	}
	if s.Weekday != nil && now.Weekday() != *s.Weekday {
		return false
	}
	if s.DayOfMonth != nil && now.Day() != *s.DayOfMonth {
		return false
	}
	return true
}

// CronTriggerConfig holds configuration for the cron trigger
type CronTriggerConfig struct {
	Schedules []JobSchedule

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// weekday and dayOfMonth exist so schedule literals stay on one line
func weekdayPtr(d time.Weekday) *time.Weekday { return &d }
func dayPtr(d int) *int                       { return &d }

// DefaultCronTriggerConfig returns the default billing calendar: invoicing
// just after midnight, sweeps in the morning, the expiry notice on Mondays,
// and the report on the first of the month.
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		Schedules: []JobSchedule{
			{JobType: JobTypeMonthlyBilling, Hour: 0, Minute: 30},
			{JobType: JobTypeOverdueSweep, Hour: 6, Minute: 0},
			{JobType: JobTypeDelinquencySweep, Hour: 7, Minute: 0},
			{JobType: JobTypeCreditExpiryNotice, Hour: 8, Minute: 0, Weekday: weekdayPtr(time.Monday)},
			{JobType: JobTypeMonthlyReport, Hour: 1, Minute: 0, DayOfMonth: dayPtr(1)},
		},
		CheckInterval: time.Minute,
	}
}

// CronTrigger fires billing jobs on their schedules. A minute ticker checks
// each schedule; a per-job last-run date keeps a slow run from being
// re-triggered within the same day.
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler *Scheduler
	logger    *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate map[JobType]string
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(
	config CronTriggerConfig,
	scheduler *Scheduler,
	logger *zap.Logger,
) *CronTrigger {
	return &CronTrigger{
		config:      config,
		scheduler:   scheduler,
		logger:      logger,
		lastRunDate: make(map[JobType]string),
	}
}

// Start starts the cron trigger
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Cron trigger started",
		zap.Int("schedules", len(c.config.Schedules)),
		zap.Duration("check_interval", c.config.CheckInterval),
	)

	return nil
}

// Stop stops the cron trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop checks periodically whether any schedule fires
func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(time.Now())
		}
	}
}

// checkAndTrigger fires every schedule that matches the given instant
func (c *CronTrigger) checkAndTrigger(now time.Time) {
	currentDate := now.Format("2006-01-02")

	for _, schedule := range c.config.Schedules {
		if !schedule.matches(now) {
			continue
		}

		// Skip if this job already ran today
		c.mu.Lock()
		if c.lastRunDate[schedule.JobType] == currentDate {
			c.mu.Unlock()
			continue
		}
		c.lastRunDate[schedule.JobType] = currentDate
		c.mu.Unlock()

		c.logger.Info("Triggering scheduled job",
			zap.String("job_type", string(schedule.JobType)),
		)

		if err := c.scheduler.ScheduleJob(schedule.JobType, now); err != nil {
			c.logger.Error("Failed to submit scheduled job",
				zap.String("job_type", string(schedule.JobType)),
				zap.Error(err),
			)
		}
	}
}

// TriggerManual submits a job of the given type immediately
func (c *CronTrigger) TriggerManual(jobType JobType) error {
	return c.scheduler.ScheduleJob(jobType, time.Now())
}
