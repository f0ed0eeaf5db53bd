package authcore

import (
	"io"

	"github.com/getsentry/sentry-go"

	"github.com/nightscribe/authcore/internal/audit"
)

// Audit event types emitted by the engine.
const (
	eventRegister       = "register"
	eventLogin          = "login"
	eventRefresh        = "refresh"
	eventRefreshReuse   = "refresh_reuse"
	eventLogout         = "logout"
	eventLogoutAll      = "logout_all"
	eventPasswordChange = "password_change"
	eventSessionRevoke  = "session_revoke"
	eventStatusChange   = "account_status_change"
)

// AuditEvent is the event model delivered to audit sinks.
type AuditEvent = audit.Event

// AuditSink receives audit events. Implementations must be safe for
// concurrent use; delivery happens on the dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events on a channel for in-process consumers.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = audit.JSONWriterSink

// SentrySink forwards audit events to Sentry.
type SentrySink = audit.SentrySink

// NewChannelSink creates a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewSentrySink creates a [SentrySink] on the given hub, or the global hub
// when nil.
func NewSentrySink(hub *sentry.Hub) *SentrySink {
	return audit.NewSentrySink(hub)
}
