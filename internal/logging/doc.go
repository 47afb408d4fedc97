// Package logging assembles structured slog loggers and formatting helpers used
// by the broker client and its test broker.
//
// It owns the console and JSON handlers, resolves the "auto" format by checking
// whether the output is a terminal, and exposes the standard field keys
// (operation, session_id, invocation_id, request_id) so every call is logged
// with the same shape. The package also provides a no-op logger, which is the
// client's default: a library must stay silent unless its caller opts in.
package logging
