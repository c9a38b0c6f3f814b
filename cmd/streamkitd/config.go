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

package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/urfave/cli"
)

// config collects every flag streamkitd reads, mirroring the layout of
// kcptun's server/config.go Config struct -- including its json tags, since
// the same struct doubles as the -c config.json override target.
type config struct {
	Proto    string `json:"proto"`
	Listen   string `json:"listen"`
	Workers  int    `json:"workers"`
	Backlog  int    `json:"backlog"`
	LogFile  string `json:"log"`

	Transport string `json:"transport"` // "tcp" or "kcp"

	Compress bool `json:"compress"`
	Mux      bool `json:"mux"`
	MuxVer   int  `json:"muxver"`

	Crypt        string `json:"crypt"`
	Key          string `json:"key"`
	DataShard    int    `json:"datashard"`
	ParityShard  int    `json:"parityshard"`
	TCPEmulation bool   `json:"tcpemulation"`

	StatsFile     string        `json:"statsfile"`
	StatsInterval time.Duration `json:"statsinterval"`

	Pprof bool `json:"pprof"`
}

// parseJSONConfig decodes the JSON file at path into cfg, ported from
// kcptun's server/config.go parseJSONConfig. Called after the CLI flags
// have already populated cfg, so any field the JSON file omits keeps its
// flag-derived value -- only fields actually present in the file override.
func parseJSONConfig(cfg *config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cfg)
}

// flags mirrors kcptun's server/main.go cli.Flag table: the same flag
// names and defaults for the pieces streamkitd shares with kcptun
// (listen, crypt, key, datashard, parityshard), plus streamkitd-specific
// ones for protocol and worker count.
func flags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: "proto", Value: "echo", Usage: "demo protocol to serve: echo, ping"},
		cli.StringFlag{Name: "listen,l", Value: ":8000", Usage: `listen address, eg "0.0.0.0:8000" or "0.0.0.0:8000-8010" for a port range`},
		cli.IntFlag{Name: "workers,w", Value: 4, Usage: "number of worker goroutine-pools to spread connections across"},
		cli.IntFlag{Name: "backlog", Value: 128, Usage: "per-worker channel capacity for accepted-but-undispatched connections"},
		cli.StringFlag{Name: "log", Value: "", Usage: "redirect logging to this file instead of stderr"},

		cli.StringFlag{Name: "transport", Value: "tcp", Usage: "tcp or kcp"},

		cli.BoolFlag{Name: "compress", Usage: "wrap every accepted connection in snappy compression"},
		cli.BoolFlag{Name: "mux", Usage: "terminate every accepted connection as an smux session and dispatch each stream independently"},
		cli.IntFlag{Name: "muxver", Value: 1, Usage: "smux protocol version, 1 or 2"},

		cli.StringFlag{Name: "crypt", Value: "aes", Usage: "kcp transport cipher: aes, aes-128, aes-192, aes-128-gcm, salsa20, blowfish, twofish, cast5, 3des, tea, xtea, xor, sm4, none, null"},
		cli.StringFlag{Name: "key", Value: "it's a secret", Usage: "pre-shared secret the kcp transport derives its cipher key from", EnvVar: "STREAMKIT_KEY"},
		cli.IntFlag{Name: "datashard,ds", Value: 10, Usage: "kcp reed-solomon erasure coding data shard count"},
		cli.IntFlag{Name: "parityshard,ps", Value: 3, Usage: "kcp reed-solomon erasure coding parity shard count"},
		cli.BoolFlag{Name: "tcpemulation", Usage: "linux only: carry kcp over a tcpraw raw socket instead of plain UDP"},

		cli.StringFlag{Name: "statsfile", Value: "", Usage: "periodically append connection/byte/request counters to this rotating CSV path"},
		cli.DurationFlag{Name: "statsinterval", Value: 5 * time.Second, Usage: "interval between stats rows"},

		cli.BoolFlag{Name: "pprof", Usage: "start profiling server on :6060"},

		cli.StringFlag{Name: "c", Value: "", Usage: "config from json file, which will override the command from shell"},
	}
}

// configFromContext builds a config from the CLI flags, then -- if -c names
// a file -- decodes that file over it, exactly as kcptun's server/main.go
// layers parseJSONConfig on top of its flag-derived Config.
func configFromContext(c *cli.Context) (config, error) {
	cfg := config{
		Proto:         c.String("proto"),
		Listen:        c.String("listen"),
		Workers:       c.Int("workers"),
		Backlog:       c.Int("backlog"),
		LogFile:       c.String("log"),
		Transport:     c.String("transport"),
		Compress:      c.Bool("compress"),
		Mux:           c.Bool("mux"),
		MuxVer:        c.Int("muxver"),
		Crypt:         c.String("crypt"),
		Key:           c.String("key"),
		DataShard:     c.Int("datashard"),
		ParityShard:   c.Int("parityshard"),
		TCPEmulation:  c.Bool("tcpemulation"),
		StatsFile:     c.String("statsfile"),
		StatsInterval: c.Duration("statsinterval"),
		Pprof:         c.Bool("pprof"),
	}

	if path := c.String("c"); path != "" {
		if err := parseJSONConfig(&cfg, path); err != nil {
			return config{}, err
		}
	}

	return cfg, nil
}
