package osm

import "testing"

func TestStringTableDedup(t *testing.T) {
	st := NewStringTable()
	a := st.Add("highway")
	b := st.Add("highway")
	c := st.Add("primary")

	if a != b {
		t.Errorf("Add same string twice returned different indexes: %d != %d", a, b)
	}
	if a == c {
		t.Errorf("Add distinct strings returned the same index: %d", a)
	}
	if got := st.Get(a); got != "highway" {
		t.Errorf("Get(%d) = %q, want highway", a, got)
	}
}

func TestStringTableFind(t *testing.T) {
	st := NewStringTable()
	st.Add("highway")
	if idx := st.Find("highway"); idx == -1 {
		t.Error("Find(highway) = -1, want a valid index")
	}
	if idx := st.Find("missing"); idx != -1 {
		t.Errorf("Find(missing) = %d, want -1", idx)
	}
}

func TestStringTableFromValuesRebuildsForward(t *testing.T) {
	st := NewStringTableFromValues([]string{"a", "b", "c"})
	if idx := st.Find("b"); idx != 1 {
		t.Errorf("Find(b) = %d, want 1", idx)
	}
	if idx := st.Find("z"); idx != -1 {
		t.Errorf("Find(z) = %d, want -1", idx)
	}
}

func TestStringTableGetOutOfRangePanics(t *testing.T) {
	st := NewStringTable()
	defer func() {
		if recover() == nil {
			t.Error("expected panic on out of range Get")
		}
	}()
	st.Get(0)
}
