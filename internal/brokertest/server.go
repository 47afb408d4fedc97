package brokertest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"skillset/internal/logging"
	"skillset/internal/wire"
)

// Reply tells the server how to answer one request.
type Reply struct {
	Response wire.Response
	// Raw, when non-nil, is written verbatim followed by a newline instead
	// of Response.
	Raw []byte
	// Hangup closes the connection without answering.
	Hangup bool
	// Delay postpones the answer. Close interrupts it.
	Delay time.Duration
}

// HandlerFunc answers one decoded request.
type HandlerFunc func(req wire.Request) Reply

// OK answers req with a success envelope carrying payload.
func OK(req wire.Request, payload any) Reply {
	resp, err := wire.Success(req, payload)
	if err != nil {
		return Fail(req, wire.KindInternal, err.Error())
	}
	return Reply{Response: resp}
}

// Fail answers req with a failure envelope.
func Fail(req wire.Request, kind, message string) Reply {
	return Reply{Response: wire.Failure(req, kind, message)}
}

// Raw answers with a literal frame.
func Raw(frame string) Reply {
	return Reply{Raw: []byte(frame)}
}

// Hangup drops the connection without answering.
func Hangup() Reply {
	return Reply{Hangup: true}
}

// Server serves the broker wire protocol on a Unix domain socket. A sibling
// lock file keeps two servers from claiming the same socket.
type Server struct {
	path     string
	handler  HandlerFunc
	logger   *slog.Logger
	listener net.Listener
	lock     *flock.Flock

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	accepts atomic.Int64

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	requests []wire.Request
	closed   bool
}

// NewServer claims path and starts listening. Call Serve to accept
// connections.
func NewServer(ctx context.Context, path string, handler HandlerFunc, logger *slog.Logger) (*Server, error) {
	if handler == nil {
		return nil, errors.New("broker server requires a handler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire socket lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("socket %s is already served by another broker", path)
	}

	if err := os.RemoveAll(path); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:     path,
		handler:  handler,
		logger:   logging.NewComponentLogger(logger, "brokertest"),
		listener: listener,
		lock:     lock,
		ctx:      serverCtx,
		cancel:   cancel,
		conns:    make(map[net.Conn]struct{}),
	}, nil
}

// Path returns the socket path.
func (s *Server) Path() string { return s.path }

// Serve starts accepting connections until Close or the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("broker listening", logging.String(logging.FieldSocket, s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "broker_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "clients may fail to connect"))
				continue
			}
			if !s.track(conn) {
				_ = conn.Close()
				return
			}
			s.accepts.Add(1)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.untrack(c)
				s.serveConn(c)
			}(conn)
		}
	}()
}

// Close stops the server, drops open connections, and removes the socket and
// lock files.
func (s *Server) Close() {
	s.cancel()
	_ = s.listener.Close()

	s.mu.Lock()
	s.closed = true
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Debug("broker stopped",
		logging.String(logging.FieldSocket, s.path),
		logging.Int64("accepted_connections", s.accepts.Load()))
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "broker_socket_cleanup_failed",
			logging.String(logging.FieldSocket, s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
	_ = s.lock.Unlock()
	_ = os.Remove(s.lock.Path())
}

// Accepts returns how many connections the server has accepted.
func (s *Server) Accepts() int {
	return int(s.accepts.Load())
}

// Requests returns a copy of every decoded request, in arrival order.
func (s *Server) Requests() []wire.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]wire.Request(nil), s.requests...)
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	_ = conn.Close()
}

func (s *Server) record(req wire.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
}

// serveConn answers requests on conn one at a time until the peer hangs up.
func (s *Server) serveConn(conn net.Conn) {
	codec := wire.NewCodec(conn, 0)
	for {
		req, err := codec.ReadRequest()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			if errors.Is(err, wire.ErrMissingField) || errors.Is(err, wire.ErrUnknownOperation) || errors.Is(err, wire.ErrMalformedEnvelope) {
				s.logger.Debug("rejecting request", logging.Error(err))
				if werr := codec.WriteResponse(wire.Failure(req, wire.KindBadRequest, err.Error())); werr != nil {
					return
				}
				continue
			}
			s.logger.Debug("connection read failed", logging.Error(err))
			return
		}
		s.record(req)

		reply := s.handler(req)
		if reply.Delay > 0 {
			timer := time.NewTimer(reply.Delay)
			select {
			case <-s.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		switch {
		case reply.Hangup:
			return
		case reply.Raw != nil:
			if _, err := conn.Write(append(append([]byte(nil), reply.Raw...), '\n')); err != nil {
				return
			}
		default:
			if err := codec.WriteResponse(reply.Response); err != nil {
				return
			}
		}
	}
}
