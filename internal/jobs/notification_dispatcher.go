package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/forgo/cityquest/internal/service"

	"github.com/robfig/cron/v3"
)

// NotificationSource delivers the notifications that are due
type NotificationSource interface {
	DispatchDue(ctx context.Context) (service.DispatchReport, error)
}

// NotificationDispatcher sends due reminders on a cron schedule
type NotificationDispatcher struct {
	source   NotificationSource
	schedule cron.Schedule
	expr     string
	timeout  time.Duration
	cron     *cron.Cron
	running  bool
	mu       sync.Mutex

	// dispatching serializes scheduled and manual runs
	dispatching sync.Mutex
}

// NewNotificationDispatcher creates the dispatcher job. expr is a standard
// cron expression or a descriptor such as "@every 1m".
func NewNotificationDispatcher(source NotificationSource, expr string) (*NotificationDispatcher, error) {
	if expr == "" {
		expr = "@every 1m"
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid notification schedule %q: %w", expr, err)
	}
	return &NotificationDispatcher{
		source:   source,
		schedule: schedule,
		expr:     expr,
		timeout:  time.Minute,
	}, nil
}

// Start begins dispatching. A run that is still going when the next tick
// fires is skipped.
func (d *NotificationDispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}

	logger := cronLogger{}
	d.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	d.cron.Schedule(d.schedule, cron.FuncJob(d.tick))
	d.cron.Start()
	d.running = true

	slog.Info("notification dispatcher started", "schedule", d.expr)
}

// Stop halts the schedule and waits for a running dispatch to finish
func (d *NotificationDispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	c := d.cron
	d.mu.Unlock()

	<-c.Stop().Done()
	slog.Info("notification dispatcher stopped")
}

// RunOnce dispatches due notifications immediately. It returns
// service.ErrDispatchRunning while another run is in progress.
func (d *NotificationDispatcher) RunOnce(ctx context.Context) (service.DispatchReport, error) {
	if !d.dispatching.TryLock() {
		return service.DispatchReport{}, service.ErrDispatchRunning
	}
	defer d.dispatching.Unlock()
	return d.source.DispatchDue(ctx)
}

// IsRunning returns whether the schedule is active
func (d *NotificationDispatcher) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *NotificationDispatcher) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	report, err := d.RunOnce(ctx)
	if errors.Is(err, service.ErrDispatchRunning) {
		slog.Debug("notification dispatch skipped, previous run still going")
		return
	}
	if err != nil {
		slog.Error("notification dispatch failed", "error", err)
		return
	}
	if report.Processed > 0 {
		slog.Info("notifications dispatched",
			"processed", report.Processed,
			"sent", report.Sent,
			"retrying", report.Retrying,
			"gave_up", report.GaveUp,
		)
	}
}

// cronLogger routes cron's own messages to slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
