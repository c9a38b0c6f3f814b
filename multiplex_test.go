package streamkit

import (
	"net"
	"testing"
	"time"

	"github.com/xtaci/smux"
)

func TestBuildSmuxConfigRejectsInvalidVersion(t *testing.T) {
	if _, err := BuildSmuxConfig(99, 4*1024*1024, 2*1024*1024, 4096, 30*time.Second); err == nil {
		t.Fatalf("expected an error for an unsupported smux version")
	}
}

func TestBuildSmuxConfigAccepted(t *testing.T) {
	cfg, err := BuildSmuxConfig(1, 4*1024*1024, 2*1024*1024, 4096, 30*time.Second)
	if err != nil {
		t.Fatalf("BuildSmuxConfig: %v", err)
	}
	if cfg.Version != 1 {
		t.Fatalf("cfg.Version = %d, want 1", cfg.Version)
	}
}

func TestServeMuxSessionDispatchesStreams(t *testing.T) {
	client, server := net.Pipe()
	cfg := smux.DefaultConfig()
	cfg.KeepAliveDisabled = true

	dispatched := make(chan net.Conn, 1)
	go serveMuxSession(server, cfg, func(c net.Conn) { dispatched <- c })

	session, err := smux.Client(client, cfg)
	if err != nil {
		t.Fatalf("smux.Client: %v", err)
	}
	defer session.Close()

	stream, err := session.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer stream.Close()

	msg := []byte("ping")
	if _, err := stream.Write(msg); err != nil {
		t.Fatalf("stream.Write: %v", err)
	}

	select {
	case conn := <-dispatched:
		buf := make([]byte, len(msg))
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, err := conn.Read(buf); err != nil {
			t.Fatalf("read from dispatched stream: %v", err)
		}
		if string(buf) != string(msg) {
			t.Fatalf("got %q, want %q", buf, msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("serveMuxSession did not dispatch the opened stream within 2s")
	}
}
