package pin

import (
	"sync"
	"testing"
	"time"
)

func TestPinUnpinRoundTrip(t *testing.T) {
	c := New()
	if c.IsPinned(7) {
		t.Fatalf("7 should not be pinned yet")
	}
	c.Pin(7)
	if !c.IsPinned(7) {
		t.Fatalf("7 should be pinned")
	}
	if !c.HasAnyPins() {
		t.Fatalf("HasAnyPins should be true")
	}
	c.Unpin(7)
	if c.IsPinned(7) {
		t.Fatalf("7 should be unpinned")
	}
	if c.HasAnyPins() {
		t.Fatalf("HasAnyPins should be false")
	}
}

// Mirrors the pin-blocks-erase scenario: a sector at or below the highest
// pinned id is never safe to move while the pin is outstanding.
func TestCanMoveSectorRespectsHighestPinned(t *testing.T) {
	c := New()
	c.Pin(10)

	if c.CanMoveSector(5) {
		t.Fatalf("id 5 should be unsafe while 10 is pinned")
	}
	if c.CanMoveSector(10) {
		t.Fatalf("id 10 itself should be unsafe while pinned")
	}
	if !c.CanMoveSector(11) {
		t.Fatalf("id 11 should be safe, above the highest pinned id")
	}

	c.Unpin(10)
	if !c.CanMoveSector(5) {
		t.Fatalf("id 5 should become safe once 10 is unpinned")
	}
}

// Mirrors the watermark scenario: pinning a high id blocks a structural
// mutation targeting a lower id until the high pin is released, even though
// the lower id itself was never pinned.
func TestWaitUntilChangeableBlocksOnWatermark(t *testing.T) {
	c := New()
	c.Pin(100)

	done := make(chan struct{})
	go func() {
		c.WaitUntilChangeable(3)
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("WaitUntilChangeable(3) returned early while 100 is pinned")
	case <-time.After(20 * time.Millisecond):
	}

	c.Unpin(100)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("WaitUntilChangeable(3) did not unblock after unpinning 100")
	}
}

func TestConcurrentPinUnpinConvergesToIdle(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Pin(id)
				c.Unpin(id)
			}
		}(uint32(i))
	}
	wg.Wait()

	if c.HasAnyPins() {
		t.Fatalf("expected no outstanding pins after convergence")
	}
	if got := c.HighestPinned(); got != -1 {
		t.Fatalf("HighestPinned = %d, want -1", got)
	}
}
