package ecs

import "testing"

func TestMaskMarkAndTest(t *testing.T) {
	var m Mask
	m.Mark(3)
	m.Mark(70) // crosses a word boundary, exercising the growable word array

	if !m.Test(3) || !m.Test(70) {
		t.Fatalf("expected bits 3 and 70 set")
	}
	if m.Test(4) {
		t.Fatalf("expected bit 4 unset")
	}
}

func TestMaskUnmark(t *testing.T) {
	m := NewMask(1, 2, 3)
	m.Unmark(2)
	if m.Test(2) {
		t.Fatalf("bit 2 should be unmarked")
	}
	if !m.Test(1) || !m.Test(3) {
		t.Fatalf("bits 1 and 3 should remain set")
	}
}

func TestMaskContainsAll(t *testing.T) {
	a := NewMask(1, 2, 3)
	b := NewMask(1, 2)
	c := NewMask(1, 9)

	if !a.ContainsAll(&b) {
		t.Fatalf("a should contain all of b")
	}
	if a.ContainsAll(&c) {
		t.Fatalf("a should not contain all of c")
	}
}

func TestMaskContainsAnyNone(t *testing.T) {
	a := NewMask(1, 2, 3)
	b := NewMask(3, 4)
	c := NewMask(5, 6)

	if !a.ContainsAny(&b) {
		t.Fatalf("a should contain at least one of b")
	}
	if !a.ContainsNone(&c) {
		t.Fatalf("a should contain none of c")
	}
	if a.ContainsNone(&b) {
		t.Fatalf("a should not be disjoint from b")
	}
}

func TestMaskUnionIntersectionDifference(t *testing.T) {
	a := NewMask(1, 2, 3)
	b := NewMask(2, 3, 4)

	union := a.Union(&b)
	for _, id := range []uint32{1, 2, 3, 4} {
		if !union.Test(id) {
			t.Fatalf("union missing bit %d", id)
		}
	}

	inter := a.Intersection(&b)
	if inter.PopCount() != 2 || !inter.Test(2) || !inter.Test(3) {
		t.Fatalf("unexpected intersection: %v", inter.IDs())
	}

	diff := a.Difference(&b)
	if diff.PopCount() != 1 || !diff.Test(1) {
		t.Fatalf("unexpected difference: %v", diff.IDs())
	}
}

func TestMaskKeyStability(t *testing.T) {
	a := NewMask(5, 200, 1)
	b := NewMask(1, 200, 5)

	if a.Key() != b.Key() {
		t.Fatalf("masks with the same bits in different insertion order should share a key")
	}

	c := NewMask(1, 200)
	if a.Key() == c.Key() {
		t.Fatalf("masks with different bits should not share a key")
	}
}

func TestMaskUnlimitedWidth(t *testing.T) {
	// §9: the mask is explicitly not fixed-width. A bit far beyond any
	// plausible fixed-size bitset (e.g. 256) must still round-trip.
	var m Mask
	m.Mark(10000)
	if !m.Test(10000) {
		t.Fatalf("expected bit 10000 to be set")
	}
	if m.PopCount() != 1 {
		t.Fatalf("expected exactly one bit set, got %d", m.PopCount())
	}
}

func TestMaskEmptyAndClone(t *testing.T) {
	var m Mask
	if !m.IsEmpty() {
		t.Fatalf("fresh mask should be empty")
	}
	m.Mark(1)
	clone := m.Clone()
	m.Mark(2)
	if clone.Test(2) {
		t.Fatalf("clone should not observe mutations made after cloning")
	}
}
