package cart

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/rosilias-store/internal/catalog"
)

var (
	p1 = catalog.Package{ID: 1, Slug: "rio", Title: "Rio", PriceCents: 10000}
	p2 = catalog.Package{ID: 2, Slug: "salvador", Title: "Salvador", PriceCents: 5000}
	p3 = catalog.Package{ID: 3, Slug: "bonito", Title: "Bonito", PriceCents: 1500}
)

func qtyByID(c Cart) map[int64]int {
	out := map[int64]int{}
	for _, l := range c.Lines {
		out[l.Pkg.ID] = l.Qty
	}
	return out
}

func TestMerge_UnionSumsQuantities(t *testing.T) {
	user := Cart{Lines: []Line{{Pkg: p1, Qty: 1}, {Pkg: p2, Qty: 2}}}
	guest := Cart{Lines: []Line{{Pkg: p2, Qty: 1}, {Pkg: p3, Qty: 4}}}

	merged := Merge(user, guest)

	require.Len(t, merged.Lines, 3)
	assert.Equal(t, map[int64]int{1: 1, 2: 3, 3: 4}, qtyByID(merged))
	assert.Equal(t, []int64{1, 2, 3}, []int64{merged.Lines[0].Pkg.ID, merged.Lines[1].Pkg.ID, merged.Lines[2].Pkg.ID})
}

func TestMerge_IsCommutativeOnQuantities(t *testing.T) {
	a := Cart{Lines: []Line{{Pkg: p1, Qty: 2}, {Pkg: p3, Qty: 1}}}
	b := Cart{Lines: []Line{{Pkg: p3, Qty: 5}, {Pkg: p2, Qty: 1}}}

	assert.Equal(t, qtyByID(Merge(a, b)), qtyByID(Merge(b, a)))
	assert.Equal(t, Merge(a, b).Total(), Merge(b, a).Total())
}

func TestMerge_EmptyGuestKeepsUserCart(t *testing.T) {
	user := Cart{Lines: []Line{{Pkg: p1, Qty: 3}, {Pkg: p2, Qty: 1}}}

	merged := Merge(user, Cart{})

	assert.Equal(t, map[int64]int{1: 3, 2: 1}, qtyByID(merged))
}

func TestMerge_CollapsesDuplicatesAndDropsEmptyLines(t *testing.T) {
	c := Cart{Lines: []Line{{Pkg: p1, Qty: 1}, {Pkg: p1, Qty: 2}, {Pkg: p2, Qty: 0}}}

	merged := Merge(Cart{}, c)

	require.Len(t, merged.Lines, 1)
	assert.Equal(t, 3, merged.Lines[0].Qty)
}

func TestCart_JSONShape(t *testing.T) {
	c := Cart{Lines: []Line{{Pkg: p1, Qty: 2}}}

	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"pkg":{"id":1`)
	assert.Contains(t, string(b), `"qty":2`)

	empty, err := json.Marshal(Cart{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))

	var back Cart
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, int64(20000), back.Total())
}
