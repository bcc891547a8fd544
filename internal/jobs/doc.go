// Package jobs implements background work that runs outside HTTP requests.
//
// NotificationDispatcher delivers quest reminders and game notifications on
// a robfig/cron schedule (NOTIFICATIONS_SCHEDULE, "@every 1m" by default).
// Overlapping runs are skipped, and RunOnce lets the admin panel trigger a
// dispatch immediately.
//
//	d, err := jobs.NewNotificationDispatcher(notificationService, cfg.Notifications.Schedule)
//	if err != nil {
//	    return err
//	}
//	d.Start()
//	defer d.Stop()
package jobs
