// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Command streamkitd is a demo server binary exercising the streamkit
// connection loop, ported in spirit from kcptun's server/main.go: an
// urfave/cli app, a choice of underlying transport (plain TCP or KCP/UDP,
// optionally raw-socket emulated on linux), and optional snappy
// compression and smux multiplexing layered in front of it.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"github.com/xtaci/smux"
	"github.com/xtaci/streamkit"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	app := cli.NewApp()
	app.Name = "streamkitd"
	app.Usage = "demo byte-stream request/response server"
	app.Version = VERSION
	app.Flags = flags()
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Fatalln("streamkitd:", err)
	}
}

func run(c *cli.Context) error {
	cfg, err := configFromContext(c)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}
		log.SetOutput(f)
	}

	switch cfg.Proto {
	case "echo":
		return serveEcho(cfg)
	case "ping":
		return servePing(cfg)
	default:
		return errors.Errorf("unknown -proto %q: want echo or ping", cfg.Proto)
	}
}

func serveEcho(cfg config) error {
	srv := streamkit.NewServer[Data, Data, Data, echoHandler](0).
		Workers(cfg.Workers, newEchoWorker(cfg.Backlog))
	return runServer(cfg, srv)
}

func servePing(cfg config) error {
	srv := streamkit.NewServer[Ping, Pong, BadRequest, pingHandler](0).
		Workers(cfg.Workers, newPingWorker(cfg.Backlog))
	return runServer(cfg, srv)
}

// runServer wires transport, compression, multiplexing, the signal
// handler, and the optional stats logger around an already-configured
// Server, then blocks on RunListener (or ListenKCP). It is generic so both demo protocols share
// one copy of this plumbing, matching how kcptun's main.go has a single
// handleClient/handleMux path regardless of which target backend is
// configured.
func runServer[Req any, Resp streamkit.Compose, ErrResp streamkit.Compose, H streamkit.Handler[Req, Resp]](
	cfg config, srv *streamkit.Server[Req, Resp, ErrResp, H],
) error {
	srv.Compress(cfg.Compress)

	if cfg.Pprof {
		go http.ListenAndServe(":6060", nil)
	}

	if cfg.Mux {
		defaults := smux.DefaultConfig()
		muxCfg, err := streamkit.BuildSmuxConfig(cfg.MuxVer, defaults.MaxReceiveBuffer, defaults.MaxStreamBuffer, defaults.MaxFrameSize, defaults.KeepAliveInterval)
		if err != nil {
			return errors.Wrap(err, "smux config")
		}
		srv.Multiplex(muxCfg)
	}

	if cfg.StatsFile != "" {
		logger := &streamkit.StatsLogger{Stats: srv.Stats(), Path: cfg.StatsFile, Interval: cfg.StatsInterval}
		stop := make(chan struct{})
		defer close(stop)
		go logger.Run(stop)
	}

	go watchSignals(srv, srv.Stats())

	ctx := context.Background()
	var err error
	if cfg.Transport == "kcp" {
		opts := streamkit.KCPOptions{DataShard: cfg.DataShard, ParityShard: cfg.ParityShard, TCPEmulation: cfg.TCPEmulation}
		log.Println("streamkitd: listening on", cfg.Listen, "(kcp)")
		err = srv.ListenKCP(ctx, cfg.Listen, cfg.Crypt, streamkit.DeriveKey(cfg.Key), opts)
	} else {
		log.Println("streamkitd: listening on", cfg.Listen, "(tcp)")
		err = srv.RunListener(ctx, cfg.Listen)
	}

	if errors.Is(err, streamkit.ErrServerClosed) {
		fmt.Println("streamkitd: shut down cleanly")
		return nil
	}
	return err
}
