package race

import "testing"

func twoSlots() []SpawnPoint {
	return []SpawnPoint{{X: 296, Y: 32}, {X: 296, Y: 96}}
}

func TestSpawnAcquireDistinctSlots(t *testing.T) {
	a := NewSpawnAllocator(twoSlots())

	s0, degraded := a.Acquire(10)
	if degraded || s0 != 0 {
		t.Fatalf("Acquire(10) = %d, %v; want 0, false", s0, degraded)
	}
	s1, degraded := a.Acquire(11)
	if degraded || s1 != 1 {
		t.Fatalf("Acquire(11) = %d, %v; want 1, false", s1, degraded)
	}
	if a.Free() != 0 {
		t.Errorf("Free() = %d, want 0", a.Free())
	}

	again, _ := a.Acquire(10)
	if again != s0 {
		t.Errorf("re-Acquire(10) = %d, want %d", again, s0)
	}
}

func TestSpawnExhaustedFallsBackToZero(t *testing.T) {
	a := NewSpawnAllocator(twoSlots())
	a.Acquire(1)
	a.Acquire(2)

	slot, degraded := a.Acquire(3)
	if slot != 0 || !degraded {
		t.Fatalf("Acquire(3) = %d, %v; want 0, true", slot, degraded)
	}
	if holder, _ := a.Holder(0); holder != 1 {
		t.Errorf("Holder(0) = %d, want 1 (fallback must not steal the slot)", holder)
	}

	// Releasing the overflow racer leaves the real holder in place.
	a.Release(3)
	if holder, ok := a.Holder(0); !ok || holder != 1 {
		t.Errorf("Holder(0) after overflow release = %d, %v", holder, ok)
	}
}

func TestSpawnReleaseAndReset(t *testing.T) {
	a := NewSpawnAllocator(twoSlots())
	a.Acquire(1)
	a.Acquire(2)

	a.Release(1)
	if a.Free() != 1 {
		t.Fatalf("Free() = %d, want 1", a.Free())
	}
	slot, _ := a.Acquire(5)
	if slot != 0 {
		t.Errorf("Acquire after release = %d, want 0", slot)
	}

	a.Reset()
	if a.Free() != a.Size() {
		t.Errorf("Free() after Reset = %d, want %d", a.Free(), a.Size())
	}
	if _, ok := a.Holder(1); ok {
		t.Error("Holder(1) should be empty after Reset")
	}
}

func TestSpawnPointOutOfRange(t *testing.T) {
	a := NewSpawnAllocator(twoSlots())
	if got := a.Point(1); got.Y != 96 {
		t.Errorf("Point(1).Y = %v, want 96", got.Y)
	}
	if got := a.Point(5); got != (SpawnPoint{}) {
		t.Errorf("Point(5) = %+v, want zero", got)
	}
}
