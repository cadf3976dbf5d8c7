package osm

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagsRoundTrip(t *testing.T) {
	strs := NewStringTable()
	tags := NewTags(strs)

	tags.AddTags(0, map[string]string{"highway": "primary", "name": "Main St"})
	tags.AddTags(1, nil)
	tags.AddTags(2, map[string]string{"highway": "secondary"})
	tags.Finalize()

	require.Equal(t, 2, tags.Cardinality(0))
	require.Equal(t, 0, tags.Cardinality(1))
	require.Equal(t, 1, tags.Cardinality(2))

	got := tags.GetTags(0)
	assert.Equal(t, map[string]string{"highway": "primary", "name": "Main St"}, got)
	assert.Nil(t, tags.GetTags(1))
}

func TestTagsHasKey(t *testing.T) {
	strs := NewStringTable()
	tags := NewTags(strs)
	tags.AddTags(0, map[string]string{"highway": "primary"})
	tags.AddTags(1, map[string]string{"highway": "secondary"})
	tags.AddTags(2, map[string]string{"name": "Main St"})
	tags.Finalize()

	hwKey := strs.Find("highway")
	require.NotEqual(t, int32(-1), hwKey)

	entities := tags.HasKey(hwKey)
	sort.Slice(entities, func(i, j int) bool { return entities[i] < entities[j] })
	assert.Equal(t, []int32{0, 1}, entities)

	assert.Nil(t, tags.HasKey(-1))
	assert.Nil(t, tags.HasKey(9999))
}

func TestTagsTooManyPanics(t *testing.T) {
	strs := NewStringTable()
	tags := NewTags(strs)
	big := make(map[string]string, 256)
	for i := 0; i < 256; i++ {
		big[string(rune('a'+i%26))+string(rune(i))] = "v"
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic adding more than 255 tags")
		}
	}()
	tags.AddTags(0, big)
}
