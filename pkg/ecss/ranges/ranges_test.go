package ranges

import (
	"reflect"
	"testing"
)

func TestTakeGrowsFirstRange(t *testing.T) {
	s := &Set[uint32]{}
	var got []uint32
	for i := 0; i < 5; i++ {
		got = append(got, s.Take())
	}
	want := []uint32{0, 1, 2, 3, 4}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Take sequence = %v, want %v", got, want)
	}
	if s.Size() != 1 {
		t.Fatalf("expected a single merged range, got %d ranges: %v", s.Size(), s.Ranges())
	}
}

func TestInsertMergesAdjacentAndOverlapping(t *testing.T) {
	s := &Set[uint32]{}
	s.Insert(5)
	s.Insert(7)
	s.Insert(6) // should merge 5,6,7 into one range
	if !reflect.DeepEqual(s.Ranges(), []Range[uint32]{{5, 8}}) {
		t.Fatalf("got %v", s.Ranges())
	}

	s.Insert(4) // extend left
	s.Insert(8) // extend right
	if !reflect.DeepEqual(s.Ranges(), []Range[uint32]{{4, 9}}) {
		t.Fatalf("got %v", s.Ranges())
	}

	s.Insert(4) // duplicate, no-op
	if !reflect.DeepEqual(s.Ranges(), []Range[uint32]{{4, 9}}) {
		t.Fatalf("duplicate insert changed state: %v", s.Ranges())
	}
}

func TestInsertBridgesTwoRanges(t *testing.T) {
	s := New(Range[uint32]{0, 3}, Range[uint32]{4, 6})
	s.Insert(3)
	if !reflect.DeepEqual(s.Ranges(), []Range[uint32]{{0, 6}}) {
		t.Fatalf("got %v", s.Ranges())
	}
}

func TestEraseSplitsMidRange(t *testing.T) {
	s := New(Range[uint32]{0, 10})
	s.Erase(5)
	want := []Range[uint32]{{0, 5}, {6, 10}}
	if !reflect.DeepEqual(s.Ranges(), want) {
		t.Fatalf("got %v, want %v", s.Ranges(), want)
	}
}

func TestEraseDropsEmptyRange(t *testing.T) {
	s := New(Range[uint32]{5, 6})
	s.Erase(5)
	if !s.Empty() {
		t.Fatalf("expected empty set after erasing the only member, got %v", s.Ranges())
	}
}

func TestEraseNonMemberIsNoop(t *testing.T) {
	s := New(Range[uint32]{0, 10})
	before := append([]Range[uint32](nil), s.Ranges()...)
	s.Erase(20)
	if !reflect.DeepEqual(s.Ranges(), before) {
		t.Fatalf("erase of absent value mutated set: %v", s.Ranges())
	}
}

func TestInsertEraseRoundTrip(t *testing.T) {
	s := New(Range[uint32]{0, 100})
	s.Erase(42) // present: round trip is a no-op overall relative to presence
	s.Insert(42)
	if !reflect.DeepEqual(s.Ranges(), []Range[uint32]{{0, 100}}) {
		t.Fatalf("round trip on a present value changed shape: %v", s.Ranges())
	}

	s2 := New(Range[uint32]{0, 100})
	s2.Erase(200) // absent: insert;erase is identity
	s2.Insert(200)
	s2.Erase(200)
	if !reflect.DeepEqual(s2.Ranges(), []Range[uint32]{{0, 100}}) {
		t.Fatalf("round trip on an absent value changed shape: %v", s2.Ranges())
	}
}

func TestContainsAndGetAll(t *testing.T) {
	s := New(Range[uint32]{0, 3}, Range[uint32]{10, 12})
	for _, id := range []uint32{0, 1, 2, 10, 11} {
		if !s.Contains(id) {
			t.Errorf("expected Contains(%d) == true", id)
		}
	}
	for _, id := range []uint32{3, 9, 12, 100} {
		if s.Contains(id) {
			t.Errorf("expected Contains(%d) == false", id)
		}
	}
	want := []uint32{0, 1, 2, 10, 11}
	if got := s.GetAll(); !reflect.DeepEqual(got, want) {
		t.Fatalf("GetAll = %v, want %v", got, want)
	}
}

func TestCanonicityIsMaintainedAcrossRandomizedOps(t *testing.T) {
	s := &Set[uint32]{}
	present := map[uint32]bool{}

	// deterministic pseudo-random sequence (no math/rand seed dependence on
	// wall clock), exercising insert/erase interleaving.
	seq := []uint32{5, 1, 3, 4, 2, 9, 100, 99, 101, 3, 1, 5, 50, 10, 11, 12}
	for i, v := range seq {
		if i%3 == 0 {
			s.Erase(v)
			delete(present, v)
		} else {
			s.Insert(v)
			present[v] = true
		}
		checkCanonical(t, s)
		for id := range present {
			if !s.Contains(id) {
				t.Fatalf("after op %d, expected member %d missing from %v", i, id, s.Ranges())
			}
		}
	}
}

func checkCanonical(t *testing.T, s *Set[uint32]) {
	t.Helper()
	rs := s.Ranges()
	for i, r := range rs {
		if r.Lo >= r.Hi {
			t.Fatalf("empty or inverted range at %d: %v", i, rs)
		}
		if i > 0 && rs[i-1].Hi >= r.Lo {
			t.Fatalf("ranges not strictly sorted/non-adjacent at %d: %v", i, rs)
		}
	}
}
