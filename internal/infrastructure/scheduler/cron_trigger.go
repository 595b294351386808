package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SchoolProvider lists the schools a daily run covers
type SchoolProvider interface {
	ActiveSchoolIDs(ctx context.Context) ([]uuid.UUID, error)
}

// CronTriggerConfig holds configuration for the cron trigger
type CronTriggerConfig struct {
	// DailyHour and DailyMinute are the local time of the daily run
	DailyHour   int
	DailyMinute int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// DefaultCronTriggerConfig returns default cron trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		DailyHour:     1, // 1am, after the due dates of the previous day have passed
		DailyMinute:   0,
		CheckInterval: time.Minute,
	}
}

// ParseDailySchedule reads the minute and hour fields of a cron expression
// such as "30 1 * * *". An empty expression yields the default 01:00.
func ParseDailySchedule(cronExpr string) (hour, minute int, err error) {
	defaults := DefaultCronTriggerConfig()
	hour, minute = defaults.DailyHour, defaults.DailyMinute

	parts := strings.Fields(cronExpr)
	if len(parts) == 0 {
		return hour, minute, nil
	}
	if len(parts) < 2 {
		return hour, minute, fmt.Errorf("%w: %q", ErrInvalidSchedule, cronExpr)
	}

	if parts[0] != "*" {
		if minute, err = strconv.Atoi(parts[0]); err != nil {
			return defaults.DailyHour, defaults.DailyMinute, fmt.Errorf("%w: minute %q", ErrInvalidSchedule, parts[0])
		}
	}
	if parts[1] != "*" {
		if hour, err = strconv.Atoi(parts[1]); err != nil {
			return defaults.DailyHour, defaults.DailyMinute, fmt.Errorf("%w: hour %q", ErrInvalidSchedule, parts[1])
		}
	}

	if minute < 0 || minute > 59 {
		return defaults.DailyHour, defaults.DailyMinute, fmt.Errorf("%w: minute must be 0-59, got %d", ErrInvalidSchedule, minute)
	}
	if hour < 0 || hour > 23 {
		return defaults.DailyHour, defaults.DailyMinute, fmt.Errorf("%w: hour must be 0-23, got %d", ErrInvalidSchedule, hour)
	}
	return hour, minute, nil
}

// CronTrigger submits one job per active school once a day
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler *Scheduler
	schools   SchoolProvider
	clock     shared.Clock
	logger    *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(
	config CronTriggerConfig,
	scheduler *Scheduler,
	schools SchoolProvider,
	clock shared.Clock,
	logger *zap.Logger,
) *CronTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultCronTriggerConfig().CheckInterval
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronTrigger{
		config:    config,
		scheduler: scheduler,
		schools:   schools,
		clock:     clock,
		logger:    logger,
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
		zap.Int("daily_hour", c.config.DailyHour),
		zap.Int("daily_minute", c.config.DailyMinute),
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

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs the daily sweep at most once per calendar date. It
// returns true when a sweep was triggered.
func (c *CronTrigger) checkAndTrigger(ctx context.Context) bool {
	now := c.clock.Now()
	currentDate := now.Format("2006-01-02")

	c.mu.Lock()
	if c.lastRunDate == currentDate {
		c.mu.Unlock()
		return false
	}
	if now.Hour() != c.config.DailyHour || now.Minute() != c.config.DailyMinute {
		c.mu.Unlock()
		return false
	}
	c.lastRunDate = currentDate
	c.mu.Unlock()

	c.logger.Info("Triggering daily ledger sweep", zap.String("date", currentDate))
	if _, err := c.TriggerNow(ctx); err != nil {
		c.logger.Error("Daily ledger sweep failed", zap.Error(err))
	}
	return true
}

// TriggerNow submits a job for every active school right away and returns the
// number of schools scheduled. Schools that could not be queued are logged
// and skipped.
func (c *CronTrigger) TriggerNow(ctx context.Context) (int, error) {
	schoolIDs, err := c.schools.ActiveSchoolIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active schools: %w", err)
	}

	scheduled := 0
	for _, schoolID := range schoolIDs {
		if err := c.scheduler.ScheduleSchool(schoolID); err != nil {
			c.logger.Error("Failed to schedule school",
				zap.String("school_id", schoolID.String()),
				zap.Error(err),
			)
			continue
		}
		scheduled++
	}

	c.logger.Info("Scheduled ledger sweep",
		zap.Int("school_count", len(schoolIDs)),
		zap.Int("scheduled", scheduled),
	)
	return scheduled, nil
}
