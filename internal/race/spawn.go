package race

// SpawnAllocator hands out starting slots from a fixed pool.
// Not safe for concurrent use.
type SpawnAllocator struct {
	points []SpawnPoint
	holder map[int]ParticipantID
	slotOf map[ParticipantID]int
}

// NewSpawnAllocator creates an allocator over points. The slice is copied.
func NewSpawnAllocator(points []SpawnPoint) *SpawnAllocator {
	return &SpawnAllocator{
		points: append([]SpawnPoint(nil), points...),
		holder: make(map[int]ParticipantID),
		slotOf: make(map[ParticipantID]int),
	}
}

// Size returns the number of slots in the pool.
func (a *SpawnAllocator) Size() int {
	return len(a.points)
}

// Point returns the position of slot i.
func (a *SpawnAllocator) Point(i int) SpawnPoint {
	if i < 0 || i >= len(a.points) {
		return SpawnPoint{}
	}
	return a.points[i]
}

// Free returns the number of unoccupied slots.
func (a *SpawnAllocator) Free() int {
	return len(a.points) - len(a.holder)
}

// Acquire binds id to the first free slot in index order. When the pool is
// exhausted it falls back to slot 0 and reports degraded; the fallback slot is
// shared and not recorded as held by id.
func (a *SpawnAllocator) Acquire(id ParticipantID) (slot int, degraded bool) {
	if s, ok := a.slotOf[id]; ok {
		return s, false
	}
	for i := range a.points {
		if _, taken := a.holder[i]; !taken {
			a.holder[i] = id
			a.slotOf[id] = i
			return i, false
		}
	}
	return 0, true
}

// Release frees whatever slot id holds.
func (a *SpawnAllocator) Release(id ParticipantID) {
	s, ok := a.slotOf[id]
	if !ok {
		return
	}
	delete(a.slotOf, id)
	if a.holder[s] == id {
		delete(a.holder, s)
	}
}

// Holder returns the participant occupying slot i.
func (a *SpawnAllocator) Holder(i int) (ParticipantID, bool) {
	id, ok := a.holder[i]
	return id, ok
}

// Reset frees every slot.
func (a *SpawnAllocator) Reset() {
	clear(a.holder)
	clear(a.slotOf)
}
