package streamkit

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStatsToSliceMatchesHeader(t *testing.T) {
	s := &Stats{}
	s.connectionAccepted()
	s.bytesRead(10)
	s.bytesWritten(4)
	s.requestHandled()
	s.parseError()
	s.fatalParse()

	header := s.Header()
	row := s.ToSlice()
	if len(header) != len(row) {
		t.Fatalf("Header() has %d columns, ToSlice() has %d", len(header), len(row))
	}

	want := []string{"1", "10", "4", "1", "1", "1"}
	for i, v := range row {
		if v != want[i] {
			t.Fatalf("column %s (%d) = %q, want %q", header[i], i, v, want[i])
		}
	}
}

func TestStatsLoggerWritesRotatingCSV(t *testing.T) {
	dir := t.TempDir()
	s := &Stats{}
	s.connectionAccepted()

	logger := &StatsLogger{Stats: s, Path: filepath.Join(dir, "stats.csv"), Interval: time.Hour}
	logger.writeRow()

	data, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	if err != nil {
		t.Fatalf("read stats file: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected a non-empty stats file")
	}

	logger.writeRow()
	data2, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	if err != nil {
		t.Fatalf("read stats file: %v", err)
	}
	if len(data2) <= len(data) {
		t.Fatalf("second writeRow did not append a new row")
	}
}

func TestStatsLoggerRunStopsOnSignal(t *testing.T) {
	s := &Stats{}
	logger := &StatsLogger{Stats: s, Path: filepath.Join(t.TempDir(), "stats.csv"), Interval: time.Millisecond}
	stop := make(chan struct{})

	done := make(chan struct{})
	go func() {
		logger.Run(stop)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	close(stop)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return within 1s of stop being closed")
	}
}
