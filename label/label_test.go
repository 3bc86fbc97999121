package label

import "testing"

func TestReaderReusesIDForSameOffset(t *testing.T) {
	r := NewReader()
	a := r.Label(10)
	b := r.Label(20)
	c := r.Label(10)
	if a != c {
		t.Fatalf("same offset must yield same label: got %d and %d", a, c)
	}
	if a == b {
		t.Fatalf("different offsets must yield different labels")
	}
}

func TestReaderOffsets(t *testing.T) {
	r := NewReader()
	id := r.Label(42)
	offsets := r.Offsets()
	if offsets[id] != 42 {
		t.Fatalf("got = %d; want = 42", offsets[id])
	}
}

func TestWriterResolve(t *testing.T) {
	w := NewWriter()
	w.Mark(ID(5), 2, 17)
	pos, ok := w.Resolve(5)
	if !ok {
		t.Fatal("expected label to resolve")
	}
	if pos.Segment != 2 || pos.Offset != 17 {
		t.Fatalf("got = %+v", pos)
	}
	if _, ok := w.Resolve(6); ok {
		t.Fatal("unmarked label must not resolve")
	}
}

func TestAllocatorMintsUniqueIDs(t *testing.T) {
	var a Allocator
	seen := map[ID]bool{}
	for i := 0; i < 5; i++ {
		id := a.Next()
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
}
