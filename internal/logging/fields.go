package logging

import "log/slog"

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. broker_call_failed).
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator-facing next step for a failure.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldOperation names the broker operation (invoke, list, context).
	FieldOperation = "operation"
	// FieldSessionID is the agent session a call is scoped to.
	FieldSessionID = "session_id"
	// FieldInvocationID is the skill invocation a call is scoped to.
	FieldInvocationID = "invocation_id"
	// FieldRequestID correlates a request envelope with its response.
	FieldRequestID = "request_id"
	// FieldSocket is the broker socket path.
	FieldSocket = "socket"
	// FieldState is the per-call state machine state.
	FieldState = "state"
)

// CallAttrs builds the standard attributes describing one broker call.
// Empty identifiers are omitted.
func CallAttrs(operation, sessionID, invocationID, requestID string) []slog.Attr {
	attrs := make([]slog.Attr, 0, 4)
	if operation != "" {
		attrs = append(attrs, slog.String(FieldOperation, operation))
	}
	if sessionID != "" {
		attrs = append(attrs, slog.String(FieldSessionID, sessionID))
	}
	if invocationID != "" {
		attrs = append(attrs, slog.String(FieldInvocationID, invocationID))
	}
	if requestID != "" {
		attrs = append(attrs, slog.String(FieldRequestID, requestID))
	}
	return attrs
}
