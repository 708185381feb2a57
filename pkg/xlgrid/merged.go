package xlgrid

import (
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
)

// RegionID is a stable handle of a merged region. It stays valid while the
// region exists, across removals of other regions and row shifts.
type RegionID int

// mergedTable keeps merged regions in an arena keyed by handle plus the
// insertion order used for positional access.
type mergedTable struct {
	byID  map[RegionID]cellref.Range
	order []RegionID
	next  RegionID
}

func newMergedTable() *mergedTable {
	return &mergedTable{byID: map[RegionID]cellref.Range{}, next: 1}
}

func (t *mergedTable) add(rng cellref.Range) RegionID {
	id := t.next
	t.next++
	t.byID[id] = rng
	t.order = append(t.order, id)
	return id
}

func (t *mergedTable) remove(id RegionID) bool {
	if _, ok := t.byID[id]; !ok {
		return false
	}
	delete(t.byID, id)
	for i, x := range t.order {
		if x == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// clone returns an independent copy keeping the handles.
func (t *mergedTable) clone() *mergedTable {
	c := &mergedTable{byID: make(map[RegionID]cellref.Range, len(t.byID)), order: append([]RegionID(nil), t.order...), next: t.next}
	for id, r := range t.byID {
		c.byID[id] = r
	}
	return c
}

// AddMergedRegion merges rng and returns its handle. It fails with
// ErrArgument when rng crosses the grid limits, is a single cell or
// overlaps another merged region, and with ErrArrayFormula when it overlaps
// a multi-cell array formula.
func (sh *Sheet) AddMergedRegion(rng cellref.Range) (RegionID, error) {
	const op = "addMergedRegion"
	if err := sh.checkRange(op, rng); err != nil {
		return 0, err
	}
	if rng.IsSingleCell() {
		return 0, newOpError(sh.name, op, ErrArgument, "merged region %s must contain at least two cells", rng)
	}
	if err := sh.checkArrayOverlap(op, rng); err != nil {
		return 0, err
	}
	for _, id := range sh.merged.order {
		if other := sh.merged.byID[id]; other.Intersects(rng) {
			return 0, newOpError(sh.name, op, ErrArgument, "%s overlaps merged region %s", rng, other)
		}
	}
	return sh.merged.add(rng), nil
}

// MergedRegion returns the range of the region with handle id.
func (sh *Sheet) MergedRegion(id RegionID) (cellref.Range, error) {
	rng, ok := sh.merged.byID[id]
	if !ok {
		return cellref.Range{}, newOpError(sh.name, "mergedRegion", ErrNotFound, "merged region %d", id)
	}
	return rng, nil
}

// MergedRegionAt returns the handle and range of the i-th region in
// insertion order.
func (sh *Sheet) MergedRegionAt(i int) (RegionID, cellref.Range, error) {
	if i < 0 || i >= len(sh.merged.order) {
		return 0, cellref.Range{}, newOpError(sh.name, "mergedRegionAt", ErrNotFound, "merged region #%d", i)
	}
	id := sh.merged.order[i]
	return id, sh.merged.byID[id], nil
}

// NumMergedRegions returns the number of merged regions.
func (sh *Sheet) NumMergedRegions() int { return len(sh.merged.order) }

// MergedRegions returns the merged ranges in insertion order.
func (sh *Sheet) MergedRegions() []cellref.Range {
	out := make([]cellref.Range, len(sh.merged.order))
	for i, id := range sh.merged.order {
		out[i] = sh.merged.byID[id]
	}
	return out
}

// MergedRegionIDs returns the handles in insertion order.
func (sh *Sheet) MergedRegionIDs() []RegionID {
	return append([]RegionID(nil), sh.merged.order...)
}

// RemoveMergedRegion unmerges the region with handle id. Other handles
// stay valid.
func (sh *Sheet) RemoveMergedRegion(id RegionID) error {
	if !sh.merged.remove(id) {
		return newOpError(sh.name, "removeMergedRegion", ErrNotFound, "merged region %d", id)
	}
	return nil
}

// RemoveMergedRegionAt unmerges the i-th region in insertion order.
func (sh *Sheet) RemoveMergedRegionAt(i int) error {
	if i < 0 || i >= len(sh.merged.order) {
		return newOpError(sh.name, "removeMergedRegion", ErrNotFound, "merged region #%d", i)
	}
	sh.merged.remove(sh.merged.order[i])
	return nil
}

// mergedRegionAt returns the merged range containing (row, col).
func (sh *Sheet) mergedRegionAt(row, col int) (cellref.Range, bool) {
	for _, id := range sh.merged.order {
		if rng := sh.merged.byID[id]; rng.Contains(row, col) {
			return rng, true
		}
	}
	return cellref.Range{}, false
}
