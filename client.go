package skillset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"skillset/internal/logging"
	"skillset/internal/wire"
	"skillset/jsonvalue"
)

// callState names the per-call state machine positions in debug logs.
type callState string

const (
	stateIdle             callState = "idle"
	stateConnecting       callState = "connecting"
	stateSending          callState = "sending"
	stateAwaitingResponse callState = "awaiting_response"
	stateDecoding         callState = "decoding"
	stateCompleted        callState = "completed"
	stateFailed           callState = "failed"
)

// Client talks to the broker over its Unix domain socket. Every operation is
// one synchronous request/response exchange.
//
// With ReuseConnection off (the default) each call dials and closes its own
// connection and a Client is safe for concurrent use. With it on, calls are
// serialized over the held connection.
type Client struct {
	opts   Options
	logger *slog.Logger
	dialer net.Dialer

	mu   sync.Mutex
	held *brokerConn
}

type brokerConn struct {
	net.Conn
	codec *wire.Codec
}

// New validates opts and returns a Client. No connection is opened until the
// first call.
func New(opts Options) (*Client, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, validationError("new client", err)
	}
	return &Client{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "skillset").With(logging.String(logging.FieldSocket, opts.SocketPath)),
		dialer: net.Dialer{Timeout: opts.DialTimeout},
	}, nil
}

// SocketPath returns the configured broker socket.
func (c *Client) SocketPath() string { return c.opts.SocketPath }

// Close discards any held connection. It is safe to call more than once; a
// later call simply dials again.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held == nil {
		return nil
	}
	err := c.held.Close()
	c.held = nil
	return err
}

// InvokeSkill asks the broker to run skillName with args inside the given
// session and invocation. Nil args are sent as an empty object.
//
// A failure envelope of kind skill_failed yields a KindSkill *Error carrying
// the broker's message verbatim. A skill failure reported in-band next to the
// output is returned in InvocationResult.Error with a nil error.
func (c *Client) InvokeSkill(ctx context.Context, sessionID, invocationID, skillName string, args map[string]jsonvalue.Value) (*InvocationResult, error) {
	op := string(wire.OpInvoke)
	req, err := wire.NewInvokeRequest(sessionID, invocationID, skillName, args)
	if err != nil {
		return nil, validationError(op, err)
	}

	var result *InvocationResult
	err = c.call(ctx, req, func(resp wire.Response) *Error {
		var payload wire.InvokeResult
		if derr := decodePayload(resp, &payload); derr != nil {
			return protocolError(op, "decode invoke result", derr)
		}
		result = invocationResultFromWire(payload)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetTools lists the tools available to the session, in broker order. Every
// call fetches a fresh listing.
func (c *Client) GetTools(ctx context.Context, sessionID string) ([]ToolDescriptor, error) {
	return c.listTools(ctx, sessionID)
}

// GetSkills is an alias for GetTools; both send identical requests.
func (c *Client) GetSkills(ctx context.Context, sessionID string) ([]ToolDescriptor, error) {
	return c.listTools(ctx, sessionID)
}

func (c *Client) listTools(ctx context.Context, sessionID string) ([]ToolDescriptor, error) {
	op := string(wire.OpList)
	req, err := wire.NewListRequest(sessionID)
	if err != nil {
		return nil, validationError(op, err)
	}

	var tools []ToolDescriptor
	err = c.call(ctx, req, func(resp wire.Response) *Error {
		// A broker that encodes an empty listing as null still means "no tools".
		var entries []wire.ToolEntry
		if !resp.HasPayload() {
			tools = []ToolDescriptor{}
			return nil
		}
		if derr := decodePayload(resp, &entries); derr != nil {
			return protocolError(op, "decode tool listing", derr)
		}
		tools = toolsFromWire(entries)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tools, nil
}

// GetContext fetches the context entry called name for the invocation. A
// missing entry fails with KindNotFound.
func (c *Client) GetContext(ctx context.Context, sessionID, invocationID, name string) (jsonvalue.Value, error) {
	op := string(wire.OpContext)
	req, err := wire.NewContextRequest(sessionID, invocationID, name)
	if err != nil {
		return jsonvalue.Null(), validationError(op, err)
	}

	var value jsonvalue.Value
	err = c.call(ctx, req, func(resp wire.Response) *Error {
		var entries map[string]jsonvalue.Value
		if derr := decodePayload(resp, &entries); derr != nil {
			return protocolError(op, "decode context payload", derr)
		}
		entry, ok := entries[name]
		if !ok {
			return &Error{Op: op, Kind: KindNotFound, Code: wire.KindNotFound, Message: fmt.Sprintf("context %q not found", name)}
		}
		value = entry
		return nil
	})
	if err != nil {
		return jsonvalue.Null(), err
	}
	return value, nil
}

// call runs one exchange for req. decode runs in the decoding state against a
// success envelope; a failure envelope is mapped to the broker-reported kind
// without calling decode.
func (c *Client) call(ctx context.Context, req wire.Request, decode func(wire.Response) *Error) error {
	op := string(req.Operation)
	logger := c.logger.With(logging.Args(logging.CallAttrs(op, req.SessionID, req.InvocationID, req.RequestID)...)...)
	started := time.Now()
	enter(logger, stateIdle)

	if err := ctx.Err(); err != nil {
		return fail(logger, transportError(op, "call abandoned before start", err))
	}

	if c.opts.ReuseConnection {
		c.mu.Lock()
		defer c.mu.Unlock()
	}

	conn, callErr := c.acquire(ctx, logger, op)
	if callErr != nil {
		return fail(logger, callErr)
	}
	healthy := false
	defer func() { c.release(conn, healthy) }()

	if err := conn.SetDeadline(c.deadline(ctx)); err != nil {
		return fail(logger, transportError(op, "set connection deadline", err))
	}

	enter(logger, stateSending)
	if err := conn.codec.WriteRequest(req); err != nil {
		return fail(logger, transportError(op, "send request", err))
	}

	enter(logger, stateAwaitingResponse)
	frame, err := conn.codec.ReadFrame()
	if err != nil {
		return fail(logger, readError(op, err))
	}

	logger.Debug("broker call state",
		logging.String(logging.FieldState, string(stateDecoding)),
		logging.Int("frame_bytes", len(frame)))
	resp, err := wire.DecodeResponse(frame)
	if err != nil {
		return fail(logger, protocolError(op, "decode response", err))
	}
	if resp.RequestID != "" && resp.RequestID != req.RequestID {
		return fail(logger, protocolError(op, fmt.Sprintf("response request_id %q does not match request %q", resp.RequestID, req.RequestID), nil))
	}

	// The exchange itself succeeded; the connection may serve another call
	// regardless of what the envelope says.
	if !resp.OK {
		healthy = true
		return fail(logger, brokerError(op, resp.Error))
	}
	if derr := decode(resp); derr != nil {
		if derr.Kind == KindNotFound {
			healthy = true
		}
		return fail(logger, derr)
	}
	healthy = true
	logger.Debug("broker call state",
		logging.String(logging.FieldState, string(stateCompleted)),
		logging.Duration("elapsed", time.Since(started)))
	return nil
}

// acquire returns the held connection when reuse is on and one is live, and
// dials otherwise. Callers hold c.mu when reuse is on.
func (c *Client) acquire(ctx context.Context, logger *slog.Logger, op string) (*brokerConn, *Error) {
	if c.opts.ReuseConnection && c.held != nil {
		logger.Debug("reusing broker connection")
		conn := c.held
		c.held = nil
		return conn, nil
	}
	enter(logger, stateConnecting)
	nc, err := c.dialer.DialContext(ctx, "unix", c.opts.SocketPath)
	if err != nil {
		return nil, dialError(op, c.opts.SocketPath, err)
	}
	return &brokerConn{Conn: nc, codec: wire.NewCodec(nc, c.opts.MaxFrameBytes)}, nil
}

// release keeps a healthy connection when reuse is on and closes it
// otherwise.
func (c *Client) release(conn *brokerConn, healthy bool) {
	if c.opts.ReuseConnection && healthy {
		c.held = conn
		return
	}
	_ = conn.Close()
}

// deadline combines the call timeout with the context deadline; the earlier
// one wins. The zero time means no deadline.
func (c *Client) deadline(ctx context.Context) time.Time {
	var deadline time.Time
	if c.opts.CallTimeout > 0 {
		deadline = time.Now().Add(c.opts.CallTimeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (deadline.IsZero() || ctxDeadline.Before(deadline)) {
		deadline = ctxDeadline
	}
	return deadline
}

func readError(op string, err error) *Error {
	switch {
	case errors.Is(err, wire.ErrFrameTooLarge):
		return protocolError(op, "read response", err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return transportError(op, "broker closed the connection before responding", err)
	default:
		return transportError(op, "read response", err)
	}
}

func decodePayload(resp wire.Response, target any) error {
	if !resp.HasPayload() {
		return errors.New("response has no payload")
	}
	return json.Unmarshal(resp.Payload, target)
}

func enter(logger *slog.Logger, state callState) {
	logger.Debug("broker call state", logging.String(logging.FieldState, string(state)))
}

func fail(logger *slog.Logger, err *Error) *Error {
	logger.Debug("broker call state",
		logging.String(logging.FieldState, string(stateFailed)),
		logging.String("error_kind", err.Kind.String()),
		logging.String("error_code", err.Code))
	return err
}
