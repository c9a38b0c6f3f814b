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

//go:build linux || darwin || freebsd

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/xtaci/streamkit"
)

// shutdowner is the subset of Server's lifecycle methods the signal
// handler needs; both protocol instantiations of Server satisfy it.
type shutdowner interface {
	Shutdown()
}

// watchSignals blocks the calling goroutine, logging a snapshot of stats
// (if non-nil) on SIGUSR1 and calling srv.Shutdown on SIGINT/SIGTERM.
// Ported from kcptun/client/signal.go's use of os/signal, generalized to
// also handle the stats dump kcptun leaves to a separate CSV rotation.
func watchSignals(srv shutdowner, stats *streamkit.Stats) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	for sig := range sigCh {
		switch sig {
		case syscall.SIGUSR1:
			if stats != nil {
				dumpStats(stats)
			}
		default:
			log.Println("streamkitd: received", sig, "shutting down")
			srv.Shutdown()
			return
		}
	}
}

func dumpStats(stats *streamkit.Stats) {
	header := stats.Header()
	row := stats.ToSlice()
	for i := range header {
		log.Printf("streamkitd: stat %s=%s", header[i], row[i])
	}
}
