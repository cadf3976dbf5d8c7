package osm

import "testing"

func TestIdsGetIndexFromID(t *testing.T) {
	t.Run("sorted insertion", func(t *testing.T) {
		ids := NewIds()
		for _, id := range []int64{10, 20, 30, 40} {
			ids.Add(id)
		}
		ids.Finalize()
		for i, id := range []int64{10, 20, 30, 40} {
			if got := ids.GetIndexFromID(id); got != int32(i) {
				t.Errorf("GetIndexFromID(%d) = %d, want %d", id, got, i)
			}
		}
		if got := ids.GetIndexFromID(99); got != -1 {
			t.Errorf("GetIndexFromID(99) = %d, want -1", got)
		}
	})

	t.Run("unsorted insertion", func(t *testing.T) {
		ids := NewIds()
		inserted := []int64{40, 10, 30, 20}
		for _, id := range inserted {
			ids.Add(id)
		}
		ids.Finalize()
		for i, id := range inserted {
			idx := ids.GetIndexFromID(id)
			if idx == -1 {
				t.Fatalf("GetIndexFromID(%d) = -1", id)
			}
			if ids.At(idx) != id {
				t.Errorf("At(%d) = %d, want %d", idx, ids.At(idx), id)
			}
			if int(idx) != i {
				t.Errorf("At(%d) index = %d, want original insertion index %d", idx, idx, i)
			}
		}
	})

	t.Run("many ids spanning multiple anchor blocks", func(t *testing.T) {
		ids := NewIds()
		n := idsBlockSize*3 + 17
		for i := 0; i < n; i++ {
			ids.Add(int64(i * 2))
		}
		ids.Finalize()
		for i := 0; i < n; i++ {
			if got := ids.GetIndexFromID(int64(i * 2)); got != int32(i) {
				t.Fatalf("GetIndexFromID(%d) = %d, want %d", i*2, got, i)
			}
		}
		if got := ids.GetIndexFromID(1); got != -1 {
			t.Errorf("GetIndexFromID(1) = %d, want -1", got)
		}
	})
}

func TestIdsFinalizeIdempotent(t *testing.T) {
	ids := NewIds()
	ids.Add(5)
	ids.Add(1)
	ids.Finalize()
	first := ids.GetIndexFromID(1)
	ids.Finalize()
	second := ids.GetIndexFromID(1)
	if first != second {
		t.Errorf("second Finalize changed lookup result: %d != %d", first, second)
	}
}

func TestIdsAddAfterFinalizePanics(t *testing.T) {
	ids := NewIds()
	ids.Add(1)
	ids.Finalize()
	defer func() {
		if recover() == nil {
			t.Error("expected panic adding after finalize")
		}
	}()
	ids.Add(2)
}
