package race

import "testing"

func TestRegistryAssignsMonotonicIDs(t *testing.T) {
	r := NewRegistry()

	a := r.Register(nil)
	b := r.Register(nil)
	if a.ID != 0 || b.ID != 1 {
		t.Fatalf("ids = %d, %d; want 0, 1", a.ID, b.ID)
	}
	if a.Name != "Player 0" {
		t.Errorf("Name = %q, want %q", a.Name, "Player 0")
	}

	if _, ok := r.Unregister(a.ID, nil); !ok {
		t.Fatal("Unregister() reported missing participant")
	}
	c := r.Register(nil)
	if c.ID != 2 {
		t.Errorf("id after removal = %d, want 2 (ids are never reused)", c.ID)
	}
}

func TestRegistryUnregisterReportsRoles(t *testing.T) {
	r := NewRegistry()
	host := r.Register(nil)
	racer := r.Register(nil)
	slot := 1
	racer.Slot = &slot

	removal, ok := r.Unregister(host.ID, &host.ID)
	if !ok {
		t.Fatal("Unregister() failed")
	}
	if !removal.WasHost || removal.HadSlot {
		t.Errorf("host removal = %+v, want WasHost and no slot", removal)
	}

	removal, ok = r.Unregister(racer.ID, &host.ID)
	if !ok {
		t.Fatal("Unregister() failed")
	}
	if removal.WasHost || !removal.HadSlot {
		t.Errorf("racer removal = %+v, want HadSlot only", removal)
	}

	if _, ok := r.Unregister(racer.ID, nil); ok {
		t.Error("second Unregister() should report missing")
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}

func TestRegistryListActiveIsOrdered(t *testing.T) {
	r := NewRegistry()
	for range 4 {
		r.Register(nil)
	}
	r.Unregister(1, nil)

	roster := r.ListActive()
	want := []ParticipantID{0, 2, 3}
	if len(roster) != len(want) {
		t.Fatalf("roster len = %d, want %d", len(roster), len(want))
	}
	for i, p := range roster {
		if p.ID != want[i] {
			t.Errorf("roster[%d].ID = %d, want %d", i, p.ID, want[i])
		}
		if p.Name != DisplayName(p.ID) {
			t.Errorf("roster[%d].Name = %q", i, p.Name)
		}
	}
}
