package cortex

import (
	"errors"

	"github.com/cortexgraph/cortex/internal/bitfield"
)

// ErrPendingGroupSealed is returned by AddElement once any in-bit is set.
var ErrPendingGroupSealed = errors.New("cortex: dual pending group is sealed after the first SetPending")

const (
	groupIn  = bitfield.Flag(1 << 0)
	groupOut = bitfield.Flag(1 << 1)

	// two bits per element reserved for future flags
)

// DualPendingGroup tracks N elements with an in-bit and an out-bit each,
// packed four bits per element. The out-bit of element i is raised as soon as
// the in-bit of every other element is set, which lets resolvers building
// product accumulators detect "everyone but me arrived" in O(1) amortized
// per SetPending.
type DualPendingGroup struct {
	props   bitfield.PropVector
	inCount int
}

// NewDualPendingGroup creates an empty group.
func NewDualPendingGroup() *DualPendingGroup {
	return &DualPendingGroup{}
}

// Len returns the number of elements.
func (g *DualPendingGroup) Len() int {
	return g.props.Len()
}

// AddElement appends an element and returns its index. Elements cannot be
// added once any in-bit is set.
func (g *DualPendingGroup) AddElement() (int, error) {
	if g.inCount > 0 {
		return -1, ErrPendingGroupSealed
	}

	i := g.props.Append(0)

	switch g.props.Len() {
	case 1:
		// "all others are in" holds vacuously for a single element
		g.props.Set(0, groupOut)
	case 2:
		g.props.Clear(0, groupOut)
	}

	return i, nil
}

// SetPending raises the in-bit of element i.
func (g *DualPendingGroup) SetPending(i int) {
	if g.props.Has(i, groupIn) {
		return
	}
	g.props.Set(i, groupIn)
	g.inCount++

	n := g.props.Len()
	switch g.inCount {
	case n - 1:
		for j := 0; j < n; j++ {
			if !g.props.Has(j, groupIn) {
				g.props.Set(j, groupOut)
				break
			}
		}
	case n:
		g.props.SetAll(groupOut)
	}
}

// IsPendingIn reports whether the in-bit of element i is set.
func (g *DualPendingGroup) IsPendingIn(i int) bool {
	return g.props.Has(i, groupIn)
}

// IsPendingOut reports whether every other element's in-bit is set.
func (g *DualPendingGroup) IsPendingOut(i int) bool {
	return g.props.Has(i, groupOut)
}

// IsPendingInAll reports whether every in-bit is set.
func (g *DualPendingGroup) IsPendingInAll() bool {
	return g.props.Len() > 0 && g.inCount == g.props.Len()
}
