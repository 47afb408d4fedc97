package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"skillset/jsonvalue"
)

// Operation discriminates request envelopes.
type Operation string

const (
	OpInvoke  Operation = "invoke"
	OpList    Operation = "list"
	OpContext Operation = "context"
)

// Valid reports whether op is one of the operations the broker understands.
func (op Operation) Valid() bool {
	switch op {
	case OpInvoke, OpList, OpContext:
		return true
	default:
		return false
	}
}

// InvocationScoped reports whether requests for op must carry an invocation id.
func (op Operation) InvocationScoped() bool {
	return op == OpInvoke || op == OpContext
}

// Broker-reported error kinds.
const (
	KindSkillFailed  = "skill_failed"
	KindNotFound     = "not_found"
	KindValidation   = "validation"
	KindUnknownSkill = "unknown_skill"
	KindBadRequest   = "bad_request"
	KindInternal     = "internal"
)

var (
	ErrMissingField      = errors.New("missing required field")
	ErrUnknownOperation  = errors.New("unknown operation")
	ErrMalformedEnvelope = errors.New("malformed envelope")
)

// Request is the envelope the client sends for every call.
type Request struct {
	RequestID    string          `json:"request_id"`
	Operation    Operation       `json:"operation"`
	SessionID    string          `json:"session_id"`
	InvocationID string          `json:"invocation_id,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// InvokePayload is the payload of an invoke request.
type InvokePayload struct {
	SkillName string                     `json:"skill_name"`
	Args      map[string]jsonvalue.Value `json:"args"`
}

// ContextPayload is the payload of a context request.
type ContextPayload struct {
	Name string `json:"name"`
}

// ErrorBody is the structured error carried by failure responses and by
// in-band skill failures.
type ErrorBody struct {
	Kind    string          `json:"kind"`
	Message string          `json:"message"`
	Detail  jsonvalue.Value `json:"detail,omitzero"`
}

// Response is the envelope the broker sends back for every request.
type Response struct {
	RequestID string          `json:"request_id,omitempty"`
	OK        bool            `json:"ok"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     *ErrorBody      `json:"error,omitempty"`
}

// InvokeResult is the success payload of an invoke request.
type InvokeResult struct {
	InvocationID string          `json:"invocation_id,omitempty"`
	Output       jsonvalue.Value `json:"output"`
	Error        *ErrorBody      `json:"error,omitempty"`
}

// ToolEntry is one element of the list payload.
type ToolEntry struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema jsonvalue.Value `json:"input_schema,omitzero"`
}

// NewInvokeRequest builds and validates an invoke envelope. Nil args encode as
// an empty object.
func NewInvokeRequest(sessionID, invocationID, skillName string, args map[string]jsonvalue.Value) (Request, error) {
	if skillName == "" {
		return Request{}, fmt.Errorf("%w: skill_name", ErrMissingField)
	}
	if args == nil {
		args = map[string]jsonvalue.Value{}
	}
	payload, err := json.Marshal(InvokePayload{SkillName: skillName, Args: args})
	if err != nil {
		return Request{}, fmt.Errorf("encode invoke payload: %w", err)
	}
	return newRequest(OpInvoke, sessionID, invocationID, payload)
}

// NewListRequest builds and validates a list envelope.
func NewListRequest(sessionID string) (Request, error) {
	return newRequest(OpList, sessionID, "", nil)
}

// NewContextRequest builds and validates a context envelope.
func NewContextRequest(sessionID, invocationID, name string) (Request, error) {
	if name == "" {
		return Request{}, fmt.Errorf("%w: name", ErrMissingField)
	}
	payload, err := json.Marshal(ContextPayload{Name: name})
	if err != nil {
		return Request{}, fmt.Errorf("encode context payload: %w", err)
	}
	return newRequest(OpContext, sessionID, invocationID, payload)
}

func newRequest(op Operation, sessionID, invocationID string, payload json.RawMessage) (Request, error) {
	req := Request{
		RequestID:    uuid.NewString(),
		Operation:    op,
		SessionID:    sessionID,
		InvocationID: invocationID,
		Payload:      payload,
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate enforces the envelope invariants: a known operation, a non-empty
// session id, and an invocation id for invocation-scoped operations.
func (r Request) Validate() error {
	if !r.Operation.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, r.Operation)
	}
	if r.SessionID == "" {
		return fmt.Errorf("%w: session_id", ErrMissingField)
	}
	if r.Operation.InvocationScoped() && r.InvocationID == "" {
		return fmt.Errorf("%w: invocation_id", ErrMissingField)
	}
	return nil
}

// InvokePayload decodes the payload of an invoke request.
func (r Request) InvokePayload() (InvokePayload, error) {
	var p InvokePayload
	if err := decodeStrict(r.Payload, &p); err != nil {
		return InvokePayload{}, fmt.Errorf("%w: invoke payload: %w", ErrMalformedEnvelope, err)
	}
	if p.SkillName == "" {
		return InvokePayload{}, fmt.Errorf("%w: skill_name", ErrMissingField)
	}
	return p, nil
}

// ContextPayload decodes the payload of a context request.
func (r Request) ContextPayload() (ContextPayload, error) {
	var p ContextPayload
	if err := decodeStrict(r.Payload, &p); err != nil {
		return ContextPayload{}, fmt.Errorf("%w: context payload: %w", ErrMalformedEnvelope, err)
	}
	if p.Name == "" {
		return ContextPayload{}, fmt.Errorf("%w: name", ErrMissingField)
	}
	return p, nil
}

// DecodeRequest parses a request frame and validates it.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}
	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

// DecodeResponse parses a response frame. The ok discriminator is mandatory
// and a failure response must carry an error with a kind.
func DecodeResponse(data []byte) (Response, error) {
	var raw struct {
		RequestID string          `json:"request_id"`
		OK        *bool           `json:"ok"`
		Payload   json.RawMessage `json:"payload"`
		Error     *ErrorBody      `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}
	if raw.OK == nil {
		return Response{}, fmt.Errorf("%w: missing ok discriminator", ErrMalformedEnvelope)
	}
	resp := Response{
		RequestID: raw.RequestID,
		OK:        *raw.OK,
		Payload:   raw.Payload,
		Error:     raw.Error,
	}
	if !resp.OK {
		if resp.Error == nil || strings.TrimSpace(resp.Error.Kind) == "" {
			return Response{}, fmt.Errorf("%w: failure response without error kind", ErrMalformedEnvelope)
		}
	}
	return resp, nil
}

// Success builds a success response for req carrying payload.
func Success(req Request, payload any) (Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("encode payload: %w", err)
	}
	return Response{RequestID: req.RequestID, OK: true, Payload: raw}, nil
}

// Failure builds a failure response for req.
func Failure(req Request, kind, message string) Response {
	return Response{
		RequestID: req.RequestID,
		OK:        false,
		Error:     &ErrorBody{Kind: kind, Message: message},
	}
}

// HasPayload reports whether the response carries a non-null payload.
func (r Response) HasPayload() bool {
	trimmed := bytes.TrimSpace(r.Payload)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func decodeStrict(data json.RawMessage, target any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return errors.New("payload missing")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}
