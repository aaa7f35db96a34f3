package ringbuf

import (
	"testing"
)

func TestRing_BasicPushOrder(t *testing.T) {
	r := New[string](4)

	r.Push("A")
	r.Push("B")

	if r.Len() != 2 {
		t.Fatalf("expected len=2, got %d", r.Len())
	}
	if got := r.At(0); got != "A" {
		t.Fatalf("expected oldest A, got %s", got)
	}
	last, ok := r.Last()
	if !ok || last != "B" {
		t.Fatalf("expected newest B, got %v ok=%v", last, ok)
	}
}

func TestRing_EvictsOldestWhenFull(t *testing.T) {
	r := New[int](3)
	for i := 1; i <= 3; i++ {
		if _, ev := r.Push(i); ev {
			t.Fatalf("push %d should not evict", i)
		}
	}
	if !r.Full() {
		t.Fatal("ring should be full")
	}

	old, ev := r.Push(4)
	if !ev || old != 1 {
		t.Fatalf("expected eviction of 1, got old=%d evicted=%v", old, ev)
	}
	if r.Len() != 3 {
		t.Fatalf("len must stay at capacity, got %d", r.Len())
	}

	want := []int{2, 3, 4}
	got := r.Items()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("items = %v, want %v", got, want)
		}
	}
}

func TestRing_Wraparound(t *testing.T) {
	r := New[int](4)

	// Push well past capacity; the window must always be the last 4 values
	for i := 0; i < 50; i++ {
		r.Push(i)
		if i >= 3 {
			items := r.Items()
			for j, v := range items {
				if v != i-3+j {
					t.Fatalf("after push %d: items=%v", i, items)
				}
			}
		}
	}
}

func TestRing_EmptyLast(t *testing.T) {
	r := New[int](2)
	if _, ok := r.Last(); ok {
		t.Fatal("Last on empty ring should return false")
	}
	if len(r.Items()) != 0 {
		t.Fatal("Items on empty ring should be empty")
	}
}

func TestRing_ItemsIsCopy(t *testing.T) {
	r := New[int](2)
	r.Push(1)
	items := r.Items()
	items[0] = 99
	if r.At(0) != 1 {
		t.Fatal("mutating Items() result changed the ring")
	}
}

func TestRing_FromSliceAndReset(t *testing.T) {
	r := FromSlice(3, []int{1, 2, 3, 4, 5})
	got := r.Items()
	if len(got) != 3 || got[0] != 3 || got[2] != 5 {
		t.Fatalf("FromSlice kept %v, want [3 4 5]", got)
	}

	r.Reset()
	if r.Len() != 0 || r.Cap() != 3 {
		t.Fatalf("after reset len=%d cap=%d", r.Len(), r.Cap())
	}
}

func TestRing_MinimumCapacity(t *testing.T) {
	cases := []struct{ in, want int }{
		{-1, 1}, {0, 1}, {1, 1}, {200, 200},
	}
	for _, tc := range cases {
		if got := New[int](tc.in).Cap(); got != tc.want {
			t.Errorf("New(%d).Cap() = %d, want %d", tc.in, got, tc.want)
		}
	}
}
