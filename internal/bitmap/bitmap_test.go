package bitmap

import (
	"reflect"
	"testing"
)

func TestNew_ZeroOrNegative(t *testing.T) {
	for _, n := range []int{0, -5} {
		b := New(n)
		if b.Len() != 0 || b.Count() != 0 {
			t.Fatalf("New(%d): len=%d count=%d; want 0/0", n, b.Len(), b.Count())
		}
		b.Add(0)
		if b.Has(0) {
			t.Fatalf("New(%d): Has(0) after Add = true; want false", n)
		}
	}
}

func TestAddHasRemove(t *testing.T) {
	b := New(130)
	for _, id := range []int{0, 63, 64, 129} {
		b.Add(id)
	}
	for _, id := range []int{0, 63, 64, 129} {
		if !b.Has(id) {
			t.Fatalf("Has(%d)=false; want true", id)
		}
	}
	if b.Has(1) || b.Has(128) {
		t.Fatalf("unexpected bits set")
	}
	// Out of range is ignored.
	b.Add(130)
	b.Add(-1)
	if b.Count() != 4 {
		t.Fatalf("Count=%d; want 4", b.Count())
	}

	b.Remove(63)
	if b.Has(63) || b.Count() != 3 {
		t.Fatalf("Remove(63) did not clear bit; count=%d", b.Count())
	}
}

func TestFullAndRows(t *testing.T) {
	b := Full(5)
	if got, want := b.Rows(), []int{0, 1, 2, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Rows=%v; want %v", got, want)
	}
	b.Remove(2)
	if got, want := b.Rows(), []int{0, 1, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Rows=%v; want %v", got, want)
	}
}

func TestRows_Empty(t *testing.T) {
	if got := New(70).Rows(); len(got) != 0 {
		t.Fatalf("Rows on empty mask = %v; want empty", got)
	}
}
