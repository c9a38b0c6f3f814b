package streamkit

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func TestServerRunListenerEchoesOverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	srv := NewServer[testData, testData, testData, echoHandler](0).
		Workers(2, NewWorker[testData, testData, testData, echoHandler](echoBuilder{}, echoParser{}, 8))

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- srv.RunListener(ctx, addr) }()

	conn := dialRetry(t, addr)
	defer conn.Close()

	conn.Write([]byte("hello"))
	buf := make([]byte, len("hello"))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != "hello" {
		t.Fatalf("got %q, want %q", buf, "hello")
	}

	cancel()
	select {
	case err := <-runErr:
		if !errors.Is(err, ErrServerClosed) {
			t.Fatalf("RunListener returned %v, want ErrServerClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("RunListener did not return within 2s of ctx cancellation")
	}
}

func TestServerRunReturnsErrNoWorkersWithoutWorkers(t *testing.T) {
	srv := NewServer[testData, testData, testData, echoHandler](0)
	if err := srv.RunListener(context.Background(), "127.0.0.1:19999"); !errors.Is(err, ErrNoWorkers) {
		t.Fatalf("RunListener() = %v, want ErrNoWorkers", err)
	}
}

func TestServerShutdownClosesListenerAndWorkers(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	srv := NewServer[testData, testData, testData, echoHandler](0).
		Workers(1, NewWorker[testData, testData, testData, echoHandler](echoBuilder{}, echoParser{}, 8))

	runErr := make(chan error, 1)
	go func() { runErr <- srv.RunListener(context.Background(), addr) }()

	// Establish a live connection before shutting down, to exercise the
	// force-close path alongside the accept loop teardown.
	conn := dialRetry(t, addr)
	defer conn.Close()
	conn.Write([]byte("x"))
	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read: %v", err)
	}

	srv.Shutdown()

	select {
	case err := <-runErr:
		if !errors.Is(err, ErrServerClosed) {
			t.Fatalf("RunListener returned %v, want ErrServerClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("RunListener did not return within 2s of Shutdown")
	}
}

// TestServerRunManyIsolatesIndependentListenerFailure guards against the
// teardown-ordering bug where one listener's accept loop erroring on its
// own (independent of ctx cancellation) fired the shared Notify and drained
// the worker pool immediately, leaving a still-accepting sibling listener
// dispatching into dead workers: its Submit would then block forever once
// the worker's channel backlog filled. Closing one of two listeners
// directly must not stop the other from accepting and being served.
func TestServerRunManyIsolatesIndependentListenerFailure(t *testing.T) {
	ln1, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	ln2, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	addr1, addr2 := ln1.Addr().String(), ln2.Addr().String()
	listeners := map[string]net.Listener{addr1: ln1, addr2: ln2}
	open := func(a string) (net.Listener, error) { return listeners[a], nil }

	srv := NewServer[testData, testData, testData, echoHandler](0).
		Workers(2, NewWorker[testData, testData, testData, echoHandler](echoBuilder{}, echoParser{}, 8))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- srv.runMany(ctx, []string{addr1, addr2}, open) }()

	// Independently fail ln1 -- not via ctx or Shutdown -- while ln2 is
	// still serving. With the bug, this tears down the shared worker pool
	// and wedges ln2's dispatch.
	ln1.Close()

	conn := dialRetry(t, addr2)
	defer conn.Close()
	conn.Write([]byte("still alive"))
	buf := make([]byte, len("still alive"))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("ln2 failed to serve after ln1's independent failure: %v", err)
	}
	if string(buf) != "still alive" {
		t.Fatalf("got %q, want %q", buf, "still alive")
	}

	cancel()
	select {
	case <-runErr:
	case <-time.After(2 * time.Second):
		t.Fatalf("runMany did not return within 2s of ctx cancellation")
	}
}

// dialRetry dials addr, retrying briefly to absorb the race between a
// freshly-chosen ephemeral port being closed (to hand its address to
// RunListener) and the new listener actually being bound.
func dialRetry(t *testing.T, addr string) net.Conn {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			return conn
		}
		lastErr = err
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("net.Dial %s: %v", addr, lastErr)
	return nil
}
