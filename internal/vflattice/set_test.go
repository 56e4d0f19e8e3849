package vflattice

import "testing"

func TestAddDeduplicates(t *testing.T) {
	vs := NewValueSet(8, KnownValue(1), KnownValue(1), KnownValue(2))
	if vs.Len() != 2 {
		t.Fatalf("expected 2 distinct values, got %d", vs.Len())
	}
}

func TestWideningDegradesToTop(t *testing.T) {
	vs := ValueSet{}
	for i := int64(0); i < 3; i++ {
		vs = vs.Add(2, KnownValue(i))
	}
	if !vs.IsTop() {
		t.Fatalf("expected set to widen to Top once bound exceeded")
	}
	if vs.Len() != 1 {
		t.Fatalf("widened set must report cardinality 1 (the Top marker), got %d", vs.Len())
	}
}

func TestJoinUnion(t *testing.T) {
	a := NewValueSet(8, NullValue(false))
	b := NewValueSet(8, NonNullValue())
	j := Join(8, a, b)
	if !j.Contains(Null) || !j.Contains(NonNull) {
		t.Fatalf("expected join to contain both Null and NonNull")
	}
}

func TestJoinWithTopIsTop(t *testing.T) {
	j := Join(8, TopSet(), NewValueSet(8, NullValue(false)))
	if !j.IsTop() {
		t.Fatalf("joining with Top must produce Top")
	}
}

func TestMeetIntersection(t *testing.T) {
	a := NewValueSet(8, NullValue(false), NonNullValue())
	b := NewValueSet(8, NonNullValue())
	m := Meet(a, b)
	if m.Contains(Null) || !m.Contains(NonNull) {
		t.Fatalf("expected meet to keep only NonNull")
	}
}

func TestRefineMarksImpossible(t *testing.T) {
	vs := NewValueSet(8, NullValue(false))
	refined := vs.Refine(Null, true)
	if refined.Contains(Null) {
		t.Fatalf("expected Null to be refined to impossible")
	}
}

func TestImpliesBound(t *testing.T) {
	v := KnownValue(16)
	if !v.ImpliesBound(8) {
		t.Fatalf("expected a copy length of 16 to overflow an 8-byte destination")
	}
	if v.ImpliesBound(32) {
		t.Fatalf("did not expect a copy length of 16 to overflow a 32-byte destination")
	}
}
