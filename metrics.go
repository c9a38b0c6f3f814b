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

package streamkit

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// Stats holds the atomic counters a Server and its Workers update as they
// run. It is ambient observability furniture -- handlers and parsers never
// see it, and nothing in the connection loop depends on it being attached.
type Stats struct {
	connections uint64
	bytesRd     uint64
	bytesWr     uint64
	requests    uint64
	parseErrors uint64
	fatalParses uint64
}

func (s *Stats) connectionAccepted()  { atomic.AddUint64(&s.connections, 1) }
func (s *Stats) bytesRead(n int)      { atomic.AddUint64(&s.bytesRd, uint64(n)) }
func (s *Stats) bytesWritten(n int)   { atomic.AddUint64(&s.bytesWr, uint64(n)) }
func (s *Stats) requestHandled()      { atomic.AddUint64(&s.requests, 1) }
func (s *Stats) parseError()          { atomic.AddUint64(&s.parseErrors, 1) }
func (s *Stats) fatalParse()          { atomic.AddUint64(&s.fatalParses, 1) }

// Header names the columns ToSlice fills in, for use as a CSV header.
func (s *Stats) Header() []string {
	return []string{"connections", "bytes_read", "bytes_written", "requests", "parse_errors", "fatal_parses"}
}

// ToSlice renders the current counter values as strings, in Header order.
func (s *Stats) ToSlice() []string {
	return []string{
		fmt.Sprint(atomic.LoadUint64(&s.connections)),
		fmt.Sprint(atomic.LoadUint64(&s.bytesRd)),
		fmt.Sprint(atomic.LoadUint64(&s.bytesWr)),
		fmt.Sprint(atomic.LoadUint64(&s.requests)),
		fmt.Sprint(atomic.LoadUint64(&s.parseErrors)),
		fmt.Sprint(atomic.LoadUint64(&s.fatalParses)),
	}
}

// StatsLogger periodically snapshots a Stats into a rotating CSV file,
// ported from kcptun's std/snmp.go SnmpLogger. path's filename component is
// interpreted as a time.Format layout, so a new file is opened whenever the
// formatted name changes (e.g. "./stats-20060102.csv" rotates daily).
type StatsLogger struct {
	Stats    *Stats
	Path     string
	Interval time.Duration
}

// Run blocks, writing one row every Interval, until stop is closed. It
// returns immediately if Path is empty or Interval is not positive.
func (l *StatsLogger) Run(stop <-chan struct{}) {
	if l.Path == "" || l.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.writeRow()
		case <-stop:
			return
		}
	}
}

func (l *StatsLogger) writeRow() {
	dir, pattern := filepath.Split(l.Path)
	name := dir + time.Now().Format(pattern)

	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Println("streamkit: statslog:", err)
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
		if err := w.Write(append([]string{"unix"}, l.Stats.Header()...)); err != nil {
			log.Println("streamkit: statslog:", err)
		}
	}
	if err := w.Write(append([]string{fmt.Sprint(time.Now().Unix())}, l.Stats.ToSlice()...)); err != nil {
		log.Println("streamkit: statslog:", err)
	}
	w.Flush()
}
