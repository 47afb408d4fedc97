// Package skillset lets a running skill call back into the broker that
// launched it over the broker's Unix domain socket.
//
// A Client exposes three operations, each one synchronous request/response
// exchange:
//
//   - InvokeSkill runs another named skill inside the caller's session and
//     invocation.
//   - GetTools (alias GetSkills) lists the tools the session may use.
//   - GetContext fetches a named, read-only context value for the invocation.
//
// Requests and responses are newline-delimited JSON envelopes. Required
// identifiers are checked before any socket I/O. Every failure is an *Error
// whose Kind tells validation, transport, timeout, protocol, skill and
// not-found failures apart; errors.Is works against the Err* sentinels. The
// client never retries.
//
// Options can be built in code or loaded from a TOML file with LoadOptions.
package skillset
