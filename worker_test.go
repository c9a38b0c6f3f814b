package streamkit

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"
)

// Test fixtures below mirror spec.md's worked examples (echo, PING/PONG)
// and original_source/examples/{echo,ping}.rs; streamkitd's protocols.go
// is the same shape, just in package main.

type testData []byte

func (d testData) Compose(dst ByteSink) { dst.Write(d) }
func (d testData) ShouldClose() bool    { return false }

type echoParser struct{}

func (echoParser) Parse(data []byte) (ParseOk[testData], *ParseError[testData]) {
	return ParseOk[testData]{Value: testData(data), Consumed: len(data)}, nil
}
func (p echoParser) Clone() Parser[testData, testData] { return p }

type echoHandler struct{}

func (echoHandler) Execute(_ context.Context, req testData) testData { return req }

type echoBuilder struct{}

func (echoBuilder) Build() echoHandler { return echoHandler{} }

type testPing struct{}
type testPong struct{}

func (testPong) Compose(dst ByteSink) { dst.Write([]byte("PONG\r\n")) }
func (testPong) ShouldClose() bool    { return false }

type testBadRequest struct{}

func (testBadRequest) Compose(dst ByteSink) { dst.Write([]byte("BAD\r\n")) }
func (testBadRequest) ShouldClose() bool    { return true }

type pingParser struct{}

func (pingParser) Parse(data []byte) (ParseOk[testPing], *ParseError[testBadRequest]) {
	want := []byte("PING\r\n")
	if len(data) < len(want) {
		if bytes.HasPrefix(want, data) {
			return ParseOk[testPing]{}, IncompleteErr[testBadRequest]()
		}
		return ParseOk[testPing]{}, NewParseErr(testBadRequest{}, 0)
	}
	if !bytes.Equal(data[:len(want)], want) {
		return ParseOk[testPing]{}, NewParseErr(testBadRequest{}, 0)
	}
	return ParseOk[testPing]{Value: testPing{}, Consumed: len(want)}, nil
}
func (p pingParser) Clone() Parser[testPing, testBadRequest] { return p }

type pingHandler struct{}

func (pingHandler) Execute(_ context.Context, _ testPing) testPong { return testPong{} }

type pingBuilder struct{}

func (pingBuilder) Build() pingHandler { return pingHandler{} }

// fixedParser demands exactly n bytes before producing a request, to
// exercise the Incomplete -> more bytes -> Ok path explicitly.
type fixedParser struct{ n int }

func (p fixedParser) Parse(data []byte) (ParseOk[testData], *ParseError[testData]) {
	if len(data) < p.n {
		return ParseOk[testData]{}, IncompleteErr[testData]()
	}
	return ParseOk[testData]{Value: testData(data[:p.n]), Consumed: p.n}, nil
}
func (p fixedParser) Clone() Parser[testData, testData] { return p }

// fatalParser always reports the stream as unrecoverable.
type fatalParser struct{}

func (fatalParser) Parse(data []byte) (ParseOk[testData], *ParseError[testData]) {
	return ParseOk[testData]{}, FatalErr[testData]()
}
func (p fatalParser) Clone() Parser[testData, testData] { return p }

func readWithTimeout(t *testing.T, r net.Conn, n int) []byte {
	t.Helper()
	r.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	return buf
}

func TestWorkerEcho(t *testing.T) {
	w := NewWorker[testData, testData, testData, echoHandler](echoBuilder{}, echoParser{}, 4)
	notify := NewNotify()
	_, done := w.Launch(notify.Watch())

	client, server := net.Pipe()
	w.Submit(server)

	client.Write([]byte("hello"))
	if got := readWithTimeout(t, client, len("hello")); string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}

	client.Write([]byte(" world"))
	if got := readWithTimeout(t, client, len(" world")); string(got) != " world" {
		t.Fatalf("got %q, want %q", got, " world")
	}

	client.Close()
	notify.Fire()
	<-done
}

func TestWorkerPingPongThenBadCloses(t *testing.T) {
	w := NewWorker[testPing, testPong, testBadRequest, pingHandler](pingBuilder{}, pingParser{}, 4)
	notify := NewNotify()
	_, done := w.Launch(notify.Watch())

	client, server := net.Pipe()
	w.Submit(server)

	client.Write([]byte("PING\r\n"))
	if got := readWithTimeout(t, client, 6); string(got) != "PONG\r\n" {
		t.Fatalf("got %q, want PONG", got)
	}

	client.Write([]byte("XYZZ\r\n"))
	if got := readWithTimeout(t, client, 5); string(got) != "BAD\r\n" {
		t.Fatalf("got %q, want BAD", got)
	}

	// ShouldClose() == true on BadRequest: the worker should close its end,
	// which surfaces here as a read error (EOF-ish) rather than more data.
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := client.Read(buf); err == nil {
		t.Fatalf("expected connection to be closed after BAD response")
	}

	notify.Fire()
	<-done
}

func TestWorkerIncompleteThenComplete(t *testing.T) {
	w := NewWorker[testData, testData, testData, echoHandler](echoBuilder{}, fixedParser{n: 4}, 4)
	notify := NewNotify()
	_, done := w.Launch(notify.Watch())

	client, server := net.Pipe()
	w.Submit(server)

	// Two bytes: not enough, no response should arrive yet.
	client.Write([]byte("ab"))

	readDone := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 4)
		if _, err := io.ReadFull(client, buf); err == nil {
			readDone <- buf
		}
	}()

	select {
	case <-readDone:
		t.Fatalf("handler executed before the request was complete")
	case <-time.After(50 * time.Millisecond):
	}

	// Remaining two bytes complete the 4-byte request.
	client.Write([]byte("cd"))

	select {
	case got := <-readDone:
		if string(got) != "abcd" {
			t.Fatalf("got %q, want %q", got, "abcd")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no response within 2s of completing the request")
	}

	client.Close()
	notify.Fire()
	<-done
}

func TestWorkerFatalParseClosesWithoutResponse(t *testing.T) {
	w := NewWorker[testData, testData, testData, echoHandler](echoBuilder{}, fatalParser{}, 4)
	notify := NewNotify()
	_, done := w.Launch(notify.Watch())

	client, server := net.Pipe()
	w.Submit(server)

	client.Write([]byte("whatever"))

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := client.Read(buf); err == nil {
		t.Fatalf("expected the connection to close with no response on a fatal parse")
	}

	notify.Fire()
	<-done
}

func TestWorkerMultipleRequestsPerConnection(t *testing.T) {
	w := NewWorker[testData, testData, testData, echoHandler](echoBuilder{}, fixedParser{n: 3}, 4)
	notify := NewNotify()
	_, done := w.Launch(notify.Watch())

	client, server := net.Pipe()
	w.Submit(server)

	for i := 0; i < 3; i++ {
		client.Write([]byte("xyz"))
		if got := readWithTimeout(t, client, 3); string(got) != "xyz" {
			t.Fatalf("request %d: got %q, want %q", i, got, "xyz")
		}
	}

	client.Close()
	notify.Fire()
	<-done
}

func TestWorkerShutdownForceClosesLiveConnections(t *testing.T) {
	w := NewWorker[testData, testData, testData, echoHandler](echoBuilder{}, echoParser{}, 16)
	notify := NewNotify()
	_, done := w.Launch(notify.Watch())

	const numConns = 10
	clients := make([]net.Conn, numConns)
	for i := 0; i < numConns; i++ {
		client, server := net.Pipe()
		clients[i] = client
		w.Submit(server)
	}

	notify.Fire()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not finish shutting down within 2s with live connections")
	}

	for i, c := range clients {
		c.SetReadDeadline(time.Now().Add(time.Second))
		buf := make([]byte, 1)
		if _, err := c.Read(buf); err == nil {
			t.Fatalf("client %d: expected connection to be force-closed on shutdown", i)
		}
	}
}
