package region_test

import (
	"fmt"

	"github.com/example/regionkit/pkg/region"
)

func ExampleGraph_Link() {
	g := region.NewGraph("a cluttered workbench")
	lamp, _ := g.Insert("r-lamp", g.RootID())

	// Attach the region to a paint layer. A layer belongs to at most
	// one region, so the reverse lookup is unambiguous.
	_ = g.Link(lamp.ID, "lamp-layer")

	fmt.Println("owner:", g.RegionForLayer("lamp-layer"))
	fmt.Println("attached:", lamp.Attached())

	// Linking the same layer to a second region is rejected.
	other, _ := g.Insert("r-other", g.RootID())
	err := g.Link(other.ID, "lamp-layer")
	fmt.Println("relink:", err)
	// Output:
	// owner: r-lamp
	// attached: true
	// relink: layer node already linked to another region
}

func ExampleGraph_SetParent() {
	g := region.NewGraph("")
	table, _ := g.Insert("r-table", g.RootID())
	vase, _ := g.Insert("r-vase", g.RootID())

	// Move the vase under the table region.
	_ = g.SetParent(vase.ID, table.ID)
	fmt.Println("children of r-table:", table.Children())

	// Reparenting under a descendant would form a cycle.
	err := g.SetParent(table.ID, vase.ID)
	fmt.Println("cycle:", err)
	// Output:
	// children of r-table: [r-vase]
	// cycle: region re-parenting would create a cycle
}
