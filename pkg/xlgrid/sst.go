package xlgrid

// SharedStringTable deduplicates the text of string cells. Entries are never
// removed; a string no cell uses any more keeps its slot until the file is
// written.
type SharedStringTable struct {
	strs  []string
	index map[string]int
}

func newSharedStringTable(strs []string) *SharedStringTable {
	t := &SharedStringTable{index: make(map[string]int, len(strs))}
	for _, s := range strs {
		t.strs = append(t.strs, s)
		if _, ok := t.index[s]; !ok {
			t.index[s] = len(t.strs) - 1
		}
	}
	return t
}

// Add returns the index of s, appending it when new.
func (t *SharedStringTable) Add(s string) int {
	if i, ok := t.index[s]; ok {
		return i
	}
	t.strs = append(t.strs, s)
	t.index[s] = len(t.strs) - 1
	return len(t.strs) - 1
}

// String returns entry i, or "" when out of range.
func (t *SharedStringTable) String(i int) string {
	if i < 0 || i >= len(t.strs) {
		return ""
	}
	return t.strs[i]
}

// Len returns the number of entries.
func (t *SharedStringTable) Len() int {
	return len(t.strs)
}

// Strings returns the entries in index order.
func (t *SharedStringTable) Strings() []string {
	return append([]string(nil), t.strs...)
}
