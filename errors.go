package skillset

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"skillset/internal/wire"
	"skillset/jsonvalue"
)

// Sentinel markers matched with errors.Is against any *Error.
var (
	ErrValidation  = errors.New("validation error")
	ErrTransport   = errors.New("transport error")
	ErrTimeout     = errors.New("timeout")
	ErrProtocol    = errors.New("protocol error")
	ErrSkillFailed = errors.New("skill failed")
	ErrNotFound    = errors.New("not found")
)

// Kind classifies a failed call.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation: a required parameter was empty; no I/O happened.
	KindValidation
	// KindTransport: connect, write or read on the socket failed.
	KindTransport
	// KindTimeout: a dial, call or context deadline expired. Timeouts are
	// transport failures and also match ErrTransport.
	KindTimeout
	// KindProtocol: the broker answered with something the client cannot use,
	// or rejected the request for a reason unrelated to the invoked skill.
	KindProtocol
	// KindSkill: the invoked skill ran and reported failure.
	KindSkill
	// KindNotFound: the requested context entry does not exist.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindProtocol:
		return "protocol"
	case KindSkill:
		return "skill"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindTransport:
		return ErrTransport
	case KindTimeout:
		return ErrTimeout
	case KindProtocol:
		return ErrProtocol
	case KindSkill:
		return ErrSkillFailed
	case KindNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// Error is the single error type returned by Client operations.
type Error struct {
	// Op is the client operation that failed (invoke, list, context).
	Op   string
	Kind Kind
	// Code is the broker-reported error kind, verbatim, when the failure came
	// from a response envelope.
	Code string
	// Message is the human-readable reason. For broker failures it is the
	// broker's message unchanged.
	Message string
	Detail  jsonvalue.Value
	Err     error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 4)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	label := e.Kind.String()
	if sentinel := e.Kind.sentinel(); sentinel != nil {
		label = sentinel.Error()
	}
	if e.Code != "" {
		label = fmt.Sprintf("%s (%s)", label, e.Code)
	}
	parts = append(parts, label)
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil && (e.Message == "" || !strings.Contains(e.Message, e.Err.Error())) {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind. Timeouts also match ErrTransport.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if target == e.Kind.sentinel() {
		return true
	}
	return e.Kind == KindTimeout && target == ErrTransport
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryableSkill reports whether err is a skill execution failure. The
// channel is healthy in that case, so the caller may retry the skill itself.
func IsRetryableSkill(err error) bool {
	return KindOf(err) == KindSkill
}

func validationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindValidation, Message: err.Error(), Err: err}
}

// brokerError maps a failure envelope to an *Error, keeping the broker's
// message verbatim and its kind in Code. Only skill failures and missing
// context entries get their own kind; a request the broker rejects, including
// one it deems invalid, is a protocol error.
func brokerError(op string, body *wire.ErrorBody) *Error {
	kind := KindProtocol
	switch {
	case body.Kind == wire.KindSkillFailed:
		kind = KindSkill
	case body.Kind == wire.KindNotFound && op == string(wire.OpContext):
		kind = KindNotFound
	}
	return &Error{
		Op:      op,
		Kind:    kind,
		Code:    body.Kind,
		Message: body.Message,
		Detail:  body.Detail,
	}
}

func protocolError(op, message string, err error) *Error {
	return &Error{Op: op, Kind: KindProtocol, Message: message, Err: err}
}

// transportError classifies an I/O failure as a timeout or a plain transport
// error.
func transportError(op, message string, err error) *Error {
	kind := KindTransport
	if isTimeout(err) {
		kind = KindTimeout
	}
	return &Error{Op: op, Kind: kind, Message: message, Err: err}
}

// dialError attaches an operator hint derived from the connect errno.
func dialError(op, socket string, err error) *Error {
	message := "connect to broker"
	switch {
	case errors.Is(err, unix.ENOENT):
		message = fmt.Sprintf("connect to broker: socket %s not found; verify the broker is running and the socket path is correct", socket)
	case errors.Is(err, unix.ECONNREFUSED):
		message = fmt.Sprintf("connect to broker: socket %s refused the connection; the broker may have exited", socket)
	case errors.Is(err, unix.EACCES):
		message = fmt.Sprintf("connect to broker: permission denied on socket %s; check the socket owner and mode", socket)
	}
	return transportError(op, message, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
