package streamkit

import (
	"sync"
	"testing"
	"time"
)

func TestNotifyFireWakesExistingWatcher(t *testing.T) {
	n := NewNotify()
	w := n.Watch()

	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("watcher woke before Fire")
	case <-time.After(20 * time.Millisecond):
	}

	n.Fire()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("watcher did not wake within 1s of Fire")
	}
}

func TestNotifyWatchAfterFireIsAlreadyDone(t *testing.T) {
	n := NewNotify()
	n.Fire()

	w := n.Watch()
	select {
	case <-w.Done():
	default:
		t.Fatalf("Watcher obtained after Fire should already be done")
	}
}

func TestNotifyFireIsIdempotent(t *testing.T) {
	n := NewNotify()
	n.Fire()
	n.Fire() // must not panic on double-close
	if !n.IsTerminated() {
		t.Fatalf("IsTerminated() = false after Fire")
	}
}

func TestNotifyBroadcastsToManyWatchers(t *testing.T) {
	n := NewNotify()
	const numWatchers = 50

	var wg sync.WaitGroup
	wg.Add(numWatchers)
	for i := 0; i < numWatchers; i++ {
		w := n.Watch()
		go func() {
			defer wg.Done()
			w.Wait()
		}()
	}

	n.Fire()

	waited := make(chan struct{})
	go func() {
		wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatalf("not every watcher woke within 1s")
	}
}

func TestNotifyIsTerminatedBeforeFire(t *testing.T) {
	n := NewNotify()
	if n.IsTerminated() {
		t.Fatalf("IsTerminated() = true before Fire")
	}
}
