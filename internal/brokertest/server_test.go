package brokertest_test

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"skillset/internal/brokertest"
	"skillset/internal/testsupport"
	"skillset/internal/wire"
	"skillset/jsonvalue"
)

func dial(t *testing.T, path string) (net.Conn, *wire.Codec) {
	t.Helper()
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn, wire.NewCodec(conn, 0)
}

func TestBrokerAnswersAllOperations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	broker := brokertest.NewBroker()
	broker.AddSkill("example.echo", "echo args", jsonvalue.MustOf(map[string]any{"type": "object"}),
		func(args map[string]jsonvalue.Value) (jsonvalue.Value, error) {
			return jsonvalue.FromObject(args), nil
		})
	broker.AddSkill("example.fail", "always fails", jsonvalue.Null(),
		func(map[string]jsonvalue.Value) (jsonvalue.Value, error) {
			return jsonvalue.Null(), errors.New("boom")
		})
	broker.SetContext("model", jsonvalue.FromString("tiny"))
	srv := testsupport.StartBroker(t, cfg, broker.Handle)

	_, codec := dial(t, srv.Path())

	invoke, err := wire.NewInvokeRequest("s", "i", "example.echo", map[string]jsonvalue.Value{"x": jsonvalue.FromInt(1)})
	if err != nil {
		t.Fatalf("NewInvokeRequest: %v", err)
	}
	if err := codec.WriteRequest(invoke); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := codec.ReadResponse()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !resp.OK || resp.RequestID != invoke.RequestID {
		t.Fatalf("unexpected invoke response: %+v", resp)
	}

	failing, _ := wire.NewInvokeRequest("s", "i", "example.fail", nil)
	_ = codec.WriteRequest(failing)
	resp, err = codec.ReadResponse()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.OK || resp.Error.Kind != wire.KindSkillFailed || resp.Error.Message != "boom" {
		t.Fatalf("unexpected failure response: %+v", resp)
	}

	unknown, _ := wire.NewInvokeRequest("s", "i", "example.missing", nil)
	_ = codec.WriteRequest(unknown)
	resp, _ = codec.ReadResponse()
	if resp.OK || resp.Error.Kind != wire.KindUnknownSkill {
		t.Fatalf("expected unknown_skill, got %+v", resp)
	}

	missingCtx, _ := wire.NewContextRequest("s", "i", "absent")
	_ = codec.WriteRequest(missingCtx)
	resp, _ = codec.ReadResponse()
	if resp.OK || resp.Error.Kind != wire.KindNotFound {
		t.Fatalf("expected not_found, got %+v", resp)
	}

	if got := len(srv.Requests()); got != 4 {
		t.Fatalf("recorded %d requests, want 4", got)
	}
	if srv.Accepts() != 1 {
		t.Fatalf("accepts = %d, want 1", srv.Accepts())
	}
}

func TestServerRejectsInvalidEnvelope(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv := testsupport.StartBroker(t, cfg, func(req wire.Request) brokertest.Reply {
		return brokertest.OK(req, nil)
	})

	conn, codec := dial(t, srv.Path())
	if _, err := conn.Write([]byte(`{"request_id":"r1","operation":"list","session_id":""}` + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := codec.ReadResponse()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.OK || resp.Error.Kind != wire.KindBadRequest || resp.RequestID != "r1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(srv.Requests()) != 0 {
		t.Fatal("invalid requests must not reach the handler")
	}
}

func TestServerHangupClosesConnection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv := testsupport.StartBroker(t, cfg, func(wire.Request) brokertest.Reply {
		return brokertest.Hangup()
	})

	conn, codec := dial(t, srv.Path())
	req, _ := wire.NewListRequest("s")
	if err := codec.WriteRequest(req); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := bufio.NewReader(conn).ReadByte(); err == nil {
		t.Fatal("expected connection to be closed")
	}
}

func TestSecondServerOnSameSocketIsRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv := testsupport.StartBroker(t, cfg, func(req wire.Request) brokertest.Reply {
		return brokertest.OK(req, nil)
	})

	if _, err := brokertest.NewServer(context.Background(), srv.Path(), func(req wire.Request) brokertest.Reply {
		return brokertest.OK(req, nil)
	}, nil); err == nil {
		t.Fatal("expected second server to fail while the lock is held")
	}
}

func TestCloseRemovesSocket(t *testing.T) {
	path := testsupport.SocketPath(t)
	srv, err := brokertest.NewServer(context.Background(), path, func(req wire.Request) brokertest.Reply {
		return brokertest.OK(req, nil)
	}, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.Serve()
	srv.Close()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected socket removed, stat err = %v", err)
	}
	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("expected lock file removed, stat err = %v", err)
	}
}
