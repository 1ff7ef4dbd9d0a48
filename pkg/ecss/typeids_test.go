package ecss

import "testing"

func TestTypeIDAssignsDenseIdsInReferenceOrder(t *testing.T) {
	reg := NewRegistry(Options{ThreadSafe: false})

	id0 := TypeID[pos](reg)
	id1 := TypeID[vel](reg)
	again := TypeID[pos](reg)

	if id0 != 0 {
		t.Fatalf("first type id = %d, want 0", id0)
	}
	if id1 != 1 {
		t.Fatalf("second type id = %d, want 1", id1)
	}
	if again != id0 {
		t.Fatalf("repeated TypeID call = %d, want %d", again, id0)
	}
}
