package trace

import "testing"

func TestRingDrainsInOrder(t *testing.T) {
	r := NewRing(4)
	for i := 0; i < 3; i++ {
		r.Push(Record{PC: uint32(i), Opcode: uint16(i), Cycles: 1})
	}
	got := r.Drain()
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, rec := range got {
		if rec.PC != uint32(i) {
			t.Fatalf("record %d out of order: %+v", i, rec)
		}
	}
	if r.Len() != 0 {
		t.Fatalf("expected ring empty after drain")
	}
}

func TestRingWrapsAtCapacity(t *testing.T) {
	r := NewRing(2)
	r.Push(Record{PC: 1})
	r.Push(Record{PC: 2})
	r.Push(Record{PC: 3}) // overwrites PC:1
	got := r.Drain()
	if len(got) != 2 || got[0].PC != 2 || got[1].PC != 3 {
		t.Fatalf("unexpected ring contents after wrap: %+v", got)
	}
}
