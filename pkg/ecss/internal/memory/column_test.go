package memory

import (
	"testing"

	"github.com/ecss-go/ecss/pkg/ecss/internal/retire"
)

type widget struct {
	Name string
	N    int
}

func TestTypedCloneIsIndependentCopy(t *testing.T) {
	c := NewTyped[widget](4, &retire.Bin{}, nil)
	c.Allocate(4)

	*c.At(0) = widget{Name: "a", N: 1}
	c.Clone(1, 0)

	c.At(1).N = 99
	c.At(1).Name = "b"

	if got := c.At(0); got.N != 1 || got.Name != "a" {
		t.Fatalf("source mutated by clone-then-modify: %+v", got)
	}
}

func TestTypedDestroyInvokesHook(t *testing.T) {
	var destroyed []string
	c := NewTyped[widget](4, &retire.Bin{}, func(w *widget) { destroyed = append(destroyed, w.Name) })
	c.Allocate(2)

	*c.At(0) = widget{Name: "x"}
	c.Destroy(0)

	if len(destroyed) != 1 || destroyed[0] != "x" {
		t.Fatalf("destroy hook not invoked correctly: %v", destroyed)
	}
	if got := *c.At(0); got != (widget{}) {
		t.Fatalf("slot not zeroed after destroy: %+v", got)
	}
}

type selfDestroying struct{ closed *bool }

func (s selfDestroying) Destroy() { *s.closed = true }

func TestTypedTrivialityReflectsDestroyerInterface(t *testing.T) {
	trivial := NewTyped[widget](4, &retire.Bin{}, nil)
	if !trivial.Trivial() {
		t.Fatalf("widget column without hooks should be trivial")
	}

	nontrivial := NewTyped[selfDestroying](4, &retire.Bin{}, nil)
	if nontrivial.Trivial() {
		t.Fatalf("selfDestroying column should not be trivial")
	}

	nontrivial.Allocate(1)
	closed := false
	*nontrivial.At(0) = selfDestroying{closed: &closed}
	nontrivial.Destroy(0)
	if !closed {
		t.Fatalf("expected Destroyer.Destroy to run via automatic detection")
	}
}

func TestTypedMoveRangeLeavesSourceZeroed(t *testing.T) {
	c := NewTyped[widget](4, &retire.Bin{}, nil)
	c.Allocate(4)
	*c.At(0) = widget{Name: "moved", N: 5}

	c.MoveRange(2, 0, 1)

	if got := *c.At(2); got.Name != "moved" || got.N != 5 {
		t.Fatalf("destination after move = %+v, want moved/5", got)
	}
	if got := *c.At(0); got != (widget{}) {
		t.Fatalf("source after move = %+v, want zero value", got)
	}
}
