package ecss

import (
	"context"
	"testing"
)

func TestRegistryTakeAndDestroyEntityRemovesFromAllArrays(t *testing.T) {
	reg := NewRegistry(Options{ThreadSafe: false})
	positions := RegisterArray1[pos](reg, Options{ChunkCapacity: 8}, nil)
	velocities := RegisterArray1[vel](reg, Options{ChunkCapacity: 8}, nil)

	id := reg.TakeEntity()
	positions.Insert(id, pos{X: 1})
	velocities.Insert(id, vel{X: 2})

	if !reg.Contains(id) {
		t.Fatalf("expected registry to contain freshly taken id")
	}

	reg.DestroyEntity(id)

	if reg.Contains(id) {
		t.Fatalf("expected registry to no longer contain destroyed id")
	}
	if positions.Get(id) != nil || velocities.Get(id) != nil {
		t.Fatalf("expected both arrays to have dropped id %d", id)
	}
}

func TestRegistryUpdateDefragmentsAcrossArrays(t *testing.T) {
	reg := NewRegistry(Options{ThreadSafe: true})
	positions := RegisterArray1[pos](reg, Options{ThreadSafe: true, ChunkCapacity: 8, DefragmentThreshold: 0.1}, nil)

	var ids []EntityID
	for i := 0; i < 100; i++ {
		id := reg.TakeEntity()
		ids = append(ids, id)
		positions.Insert(id, pos{X: i})
	}
	for i := 0; i < 100; i += 2 {
		reg.DestroyEntity(ids[i])
	}

	if err := reg.Update(context.Background(), true); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if got := positions.Arr().DefragmentSize(); got != 0 {
		t.Fatalf("defragSize after Update = %d, want 0", got)
	}
	if got := positions.Arr().Size(); got != 50 {
		t.Fatalf("size after Update = %d, want 50", got)
	}
}

func TestRegisterArray2CoLocatesBothComponents(t *testing.T) {
	reg := NewRegistry(Options{ThreadSafe: false})
	both := RegisterArray2[pos, vel](reg, Options{ChunkCapacity: 8}, nil, nil)

	id := reg.TakeEntity()
	both.Insert0(id, pos{X: 7})
	both.Insert1(id, vel{X: 9})

	if p := both.Get0(id); p == nil || p.X != 7 {
		t.Fatalf("Get0 = %v, want X=7", p)
	}
	if v := both.Get1(id); v == nil || v.X != 9 {
		t.Fatalf("Get1 = %v, want X=9", v)
	}

	both.Destroy0(id)
	if both.Get0(id) != nil {
		t.Fatalf("Get0 should be nil after Destroy0")
	}
	if v := both.Get1(id); v == nil || v.X != 9 {
		t.Fatalf("Destroy0 should not disturb component 1: got %v", v)
	}
}
