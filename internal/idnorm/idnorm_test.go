package idnorm

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damischa1/plc-textconv/internal/tree"
)

const (
	idA = "0b7e5b8c-2f4e-4a7b-9d8a-1c2e3f4a5b6c"
	idB = "f3c1d2e4-aaaa-4bbb-8ccc-0123456789ab"
)

func TestLabel(t *testing.T) {
	assert.Equal(t, "==0001==", Label(1))
	assert.Equal(t, "==0042==", Label(42))
	assert.Equal(t, "==12345==", Label(12345))
}

func TestReplace(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		changed bool
	}{
		{"whole value", idA, "==0001==", true},
		{"braced", "{" + idA + "}", "{==0001==}", true},
		{"in text", "ref " + idA + ", " + idB, "ref ==0001==, ==0002==", true},
		{"uppercase shares label", idA + " " + "0B7E5B8C-2F4E-4A7B-9D8A-1C2E3F4A5B6C", "==0001== ==0001==", true},
		{"glued prefix", "x" + idA, "x" + idA, false},
		{"glued suffix", idA + "_1", idA + "_1", false},
		{"inside longer hex", "a-" + idA, "a-" + idA, false},
		{"short", "1234-5678", "1234-5678", false},
		{"no identifier", "a := b; (* nothing here at all, really *)", "a := b; (* nothing here at all, really *)", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New()
			got, changed := n.Replace(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestNormalizeDocumentOrder(t *testing.T) {
	src := `<Project Id="` + idB + `">` +
		`<Pou Ref="` + idA + `" Other="` + idB + `">` + idA + `</Pou>` +
		`<Link From="` + idA + `"/>` +
		`</Project>`
	doc, err := tree.Parse([]byte(src))
	require.NoError(t, err)

	stats := Normalize(doc, nil)
	assert.Equal(t, Stats{Distinct: 2, Replaced: 5}, stats)

	root := doc.Root()
	pou := doc.Child(root, "Pou")
	assert.Equal(t, "==0001==", doc.AttrValue(root, "Id"))
	assert.Equal(t, "==0002==", doc.AttrValue(pou, "Ref"))
	assert.Equal(t, "==0001==", doc.AttrValue(pou, "Other"))
	assert.Equal(t, "==0002==", doc.Text(pou))
	assert.Equal(t, "==0002==", doc.AttrValue(doc.Child(root, "Link"), "From"))
}

func TestNormalizeSkip(t *testing.T) {
	src := `<r><LadderElements Id="` + idB + `"/><Rung Id="` + idA + `"/></r>`
	doc, err := tree.Parse([]byte(src))
	require.NoError(t, err)

	Normalize(doc, func(d *tree.Document, id tree.NodeID) bool {
		return d.Name(id) == "LadderElements"
	})

	root := doc.Root()
	assert.Equal(t, idB, doc.AttrValue(doc.Child(root, "LadderElements"), "Id"))
	assert.Equal(t, "==0001==", doc.AttrValue(doc.Child(root, "Rung"), "Id"))
}

func TestNormalizeStableUnderRegeneration(t *testing.T) {
	render := func(a, b string) string {
		return `<r x="` + a + `"><s y="` + b + `">` + a + `</s></r>`
	}
	run := func(src string) *tree.Document {
		doc, err := tree.Parse([]byte(src))
		require.NoError(t, err)
		Normalize(doc, nil)
		return doc
	}

	first := run(render(idA, idB))
	second := run(render(uuid.NewString(), uuid.NewString()))

	assert.Equal(t, first.AttrValue(first.Root(), "x"), second.AttrValue(second.Root(), "x"))
	s1 := first.Child(first.Root(), "s")
	s2 := second.Child(second.Root(), "s")
	assert.Equal(t, first.AttrValue(s1, "y"), second.AttrValue(s2, "y"))
	assert.Equal(t, first.Text(s1), second.Text(s2))
}
