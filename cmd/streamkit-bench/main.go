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

// Command streamkit-bench is a small load-probe client, ported in spirit
// from kcptun's client/main.go and client/dial.go: it dials a streamkitd
// demo protocol some number of times (optionally over a persistent
// connection) and reports round-trip latency. It is a test/demo tool, not
// part of the importable streamkit package.
package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	kcp "github.com/xtaci/kcp-go/v5"
	"github.com/xtaci/streamkit"
)

func main() {
	app := cli.NewApp()
	app.Name = "streamkit-bench"
	app.Usage = "round-trip latency probe for a streamkitd demo protocol"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "addr,a", Value: "127.0.0.1:8000", Usage: "server address to dial"},
		cli.StringFlag{Name: "proto", Value: "echo", Usage: "echo or ping, must match the server's -proto"},
		cli.StringFlag{Name: "transport", Value: "tcp", Usage: "tcp or kcp"},
		cli.IntFlag{Name: "n", Value: 100, Usage: "number of requests to send"},
		cli.BoolFlag{Name: "persistent", Usage: "reuse one connection for every request instead of dialing fresh each time"},
		cli.StringFlag{Name: "crypt", Value: "aes", Usage: "kcp transport cipher, must match the server"},
		cli.StringFlag{Name: "key", Value: "it's a secret", Usage: "kcp pre-shared secret, must match the server", EnvVar: "STREAMKIT_KEY"},
		cli.IntFlag{Name: "datashard,ds", Value: 10, Usage: "kcp reed-solomon erasure coding data shard count"},
		cli.IntFlag{Name: "parityshard,ps", Value: 3, Usage: "kcp reed-solomon erasure coding parity shard count"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Fatalln("streamkit-bench:", err)
	}
}

// probe is one demo protocol's request and the length of its response.
// roundTrip sends the request and reads back that many bytes; it does not
// validate response contents beyond length, since the point is latency,
// not correctness (correctness is streamkit's own test suite).
type probe interface {
	request() []byte
	responseLen() int
}

type echoProbe struct{}

func (echoProbe) request() []byte  { return []byte("hello world") }
func (echoProbe) responseLen() int { return len("hello world") }

type pingProbe struct{}

func (pingProbe) request() []byte  { return []byte("PING\r\n") }
func (pingProbe) responseLen() int { return len("PONG\r\n") }

func probeFor(name string) (probe, error) {
	switch name {
	case "echo":
		return echoProbe{}, nil
	case "ping":
		return pingProbe{}, nil
	default:
		return nil, errors.Errorf("unknown -proto %q: want echo or ping", name)
	}
}

func run(c *cli.Context) error {
	p, err := probeFor(c.String("proto"))
	if err != nil {
		return err
	}

	dial := func() (net.Conn, error) { return net.Dial("tcp", c.String("addr")) }
	if c.String("transport") == "kcp" {
		block, _ := streamkit.SelectBlockCrypt(c.String("crypt"), streamkit.DeriveKey(c.String("key")))
		dial = func() (net.Conn, error) {
			return kcp.DialWithOptions(c.String("addr"), block, c.Int("datashard"), c.Int("parityshard"))
		}
	}

	n := c.Int("n")
	persistent := c.Bool("persistent")

	var conn net.Conn
	if persistent {
		var err error
		conn, err = dial()
		if err != nil {
			return errors.Wrap(err, "dial")
		}
		defer conn.Close()
	}

	var total time.Duration
	var worst time.Duration
	for i := 0; i < n; i++ {
		if !persistent {
			var err error
			conn, err = dial()
			if err != nil {
				return errors.Wrap(err, "dial")
			}
		}

		start := time.Now()
		if err := roundTrip(conn, p); err != nil {
			if !persistent {
				conn.Close()
			}
			return errors.Wrapf(err, "request %d", i)
		}
		elapsed := time.Since(start)
		total += elapsed
		if elapsed > worst {
			worst = elapsed
		}

		if !persistent {
			conn.Close()
		}
	}

	fmt.Printf("streamkit-bench: %d requests, avg %v, worst %v\n", n, total/time.Duration(n), worst)
	return nil
}

func roundTrip(conn net.Conn, p probe) error {
	if _, err := conn.Write(p.request()); err != nil {
		return errors.Wrap(err, "write")
	}

	want := p.responseLen()
	buf := make([]byte, want)
	read := 0
	for read < want {
		n, err := conn.Read(buf[read:])
		if err != nil {
			return errors.Wrap(err, "read")
		}
		read += n
	}
	return nil
}
