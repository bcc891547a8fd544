package service

import "time"

// Metrics receives domain counters from the services. The Prometheus
// recorder in internal/metrics implements it.
type Metrics interface {
	ParticipationStarted()
	ParticipationFinished(status string, score int, elapsed time.Duration)
	SampleRecorded()
	SpeedViolation()
	AnswerSubmitted(correct, ai bool)
	QuestionGenerated(source string)
	PaymentProcessed(status string)
	NotificationDelivered(channel string, ok bool)
}

type nopMetrics struct{}

func (nopMetrics) ParticipationStarted()                            {}
func (nopMetrics) ParticipationFinished(string, int, time.Duration) {}
func (nopMetrics) SampleRecorded()                                  {}
func (nopMetrics) SpeedViolation()                                  {}
func (nopMetrics) AnswerSubmitted(bool, bool)                       {}
func (nopMetrics) QuestionGenerated(string)                         {}
func (nopMetrics) PaymentProcessed(string)                          {}
func (nopMetrics) NotificationDelivered(string, bool)               {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
