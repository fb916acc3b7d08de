package repository

import (
	"context"
	"time"

	domrepo "TradeCore/internal/domain/repository"
	applogger "TradeCore/pkg/logger"
	pkgqueue "TradeCore/pkg/queue"
)

// AlertMessage is the payload pushed onto the alert queue. A separate notifier
// process drains it and fans out to operators.
type AlertMessage struct {
	Level   string    `json:"level"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// RedisAlertSink pushes alerts onto a Redis queue. Fire-and-forget: enqueue
// failures are logged and dropped, never surfaced to the pipeline.
type RedisAlertSink struct {
	queue *pkgqueue.RedisQueue
	l     *applogger.Logger
}

func NewRedisAlertSink(queue *pkgqueue.RedisQueue, l *applogger.Logger) *RedisAlertSink {
	return &RedisAlertSink{queue: queue, l: l}
}

func (s *RedisAlertSink) Notify(ctx context.Context, level domrepo.AlertLevel, code, message string) {
	err := s.queue.Enqueue(ctx, "alert", AlertMessage{
		Level:   string(level),
		Code:    code,
		Message: message,
		At:      time.Now(),
	})
	if err != nil && s.l != nil {
		s.l.Warn("alert enqueue failed",
			applogger.String("code", code),
			applogger.Error(err),
		)
	}
}

func (s *RedisAlertSink) Close() error {
	return s.queue.Stop(context.Background())
}

// LogAlertSink writes alerts to the structured log. Fallback when Redis is
// not configured.
type LogAlertSink struct {
	l *applogger.Logger
}

func NewLogAlertSink(l *applogger.Logger) *LogAlertSink {
	return &LogAlertSink{l: l}
}

func (s *LogAlertSink) Notify(_ context.Context, level domrepo.AlertLevel, code, message string) {
	if s.l == nil {
		return
	}
	fields := []applogger.Field{
		applogger.String("code", code),
		applogger.String("message", message),
	}
	switch level {
	case domrepo.AlertCritical:
		s.l.Error("alert", fields...)
	case domrepo.AlertWarning:
		s.l.Warn("alert", fields...)
	default:
		s.l.Info("alert", fields...)
	}
}

func (s *LogAlertSink) Close() error { return nil }

var (
	_ domrepo.AlertSink = (*RedisAlertSink)(nil)
	_ domrepo.AlertSink = (*LogAlertSink)(nil)
)
