// Package wire defines the broker protocol spoken over the Unix domain socket:
// request and response envelopes, per-operation payloads, and framing.
//
// Framing is newline-delimited JSON. Each message is a single JSON object on
// one line; encoding/json never emits a raw newline inside a document, so the
// terminator is unambiguous. A connection carries at most one outstanding
// request at a time.
//
// Request:
//
//	{"request_id":"<uuid>","operation":"invoke|list|context","session_id":"...",
//	 "invocation_id":"...","payload":{...}}
//
// Response:
//
//	{"request_id":"<uuid>","ok":true,"payload":...}
//	{"request_id":"<uuid>","ok":false,"error":{"kind":"...","message":"...","detail":...}}
package wire
