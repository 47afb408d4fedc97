package logging

import "strings"

// FormatSubject builds the operation/session/invocation subject shown in
// console output, e.g. "invoke · session 3f2a… (inv-7)".
func FormatSubject(operation, sessionID, invocationID string) string {
	operation = strings.TrimSpace(operation)
	sessionID = shortID(sessionID)
	invocationID = shortID(invocationID)
	parts := make([]string, 0, 2)
	if operation != "" {
		parts = append(parts, operation)
	}
	switch {
	case sessionID != "" && invocationID != "":
		parts = append(parts, "session "+sessionID+" ("+invocationID+")")
	case sessionID != "":
		parts = append(parts, "session "+sessionID)
	case invocationID != "":
		parts = append(parts, "invocation "+invocationID)
	}
	return strings.Join(parts, " · ")
}

// shortID truncates UUID-shaped identifiers to their first group.
func shortID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) == 36 && strings.Count(id, "-") == 4 {
		return id[:8] + "…"
	}
	return id
}
