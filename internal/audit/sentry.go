package audit

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// SentrySink forwards audit events to Sentry. Failed events go out at
// warning level so they surface in alerting; the rest are informational.
type SentrySink struct {
	hub *sentry.Hub
}

// NewSentrySink creates a sink on the given hub, falling back to the
// current global hub when nil. sentry.Init must have run before events
// arrive.
func NewSentrySink(hub *sentry.Hub) *SentrySink {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &SentrySink{hub: hub}
}

func (s *SentrySink) Emit(ctx context.Context, event Event) {
	if s == nil || s.hub == nil {
		return
	}

	s.hub.WithScope(func(scope *sentry.Scope) {
		level := sentry.LevelInfo
		if !event.Success {
			level = sentry.LevelWarning
		}
		scope.SetLevel(level)
		scope.SetTag("event_type", event.EventType)
		if event.AccountID != "" {
			scope.SetTag("account_id", event.AccountID)
		}
		if event.SessionID != "" {
			scope.SetExtra("session_id", event.SessionID)
		}
		if event.IP != "" {
			scope.SetExtra("ip", event.IP)
		}
		if event.UserAgent != "" {
			scope.SetExtra("user_agent", event.UserAgent)
		}
		if event.Error != "" {
			scope.SetExtra("error", event.Error)
		}
		for k, v := range event.Metadata {
			scope.SetExtra(k, v)
		}
		s.hub.CaptureMessage(event.EventType)
	})
}
