package osc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/conveyal/osmix/internal/osm"
	"github.com/conveyal/osmix/internal/osm/changeset"
	"github.com/stretchr/testify/require"
)

func TestWriteEscapesTagValues(t *testing.T) {
	base := osm.NewStore("base")
	base.Finalize()
	base.BuildSpatialIndexes()

	cs := changeset.New(base, 1)
	cs.Create(changeset.Entity{
		Type: changeset.EntityNode,
		ID:   1,
		Lon:  0, Lat: 0,
		Tags: map[string]string{"name": `Tom & Jerry's "Diner" <2>`},
	}, "")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cs))

	out := buf.String()
	require.True(t, strings.Contains(out, "&amp;"))
	require.True(t, strings.Contains(out, "&lt;2&gt;"))
	require.True(t, strings.Contains(out, "&#34;Diner&#34;") || strings.Contains(out, "&#34;"))
	require.True(t, strings.Contains(out, `<osmChange version="0.6">`))
}

func TestWriteDeleteStubHasIDOnly(t *testing.T) {
	base := osm.NewStore("base")
	base.Nodes.AddNode(5, 0, 0, map[string]string{"amenity": "cafe"})
	base.Finalize()
	base.BuildSpatialIndexes()

	cs := changeset.New(base, 100)
	cs.Delete(changeset.EntityNode, 5)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cs))
	require.Contains(t, buf.String(), `<node id="5"/>`)
	require.False(t, strings.Contains(buf.String(), "amenity"))
}
