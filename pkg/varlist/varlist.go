// Package varlist implements the compiler's symbol table: an insertion-ordered,
// deduplicated set of interned strings with a secondary hash-sorted index for
// fast lookup. Identifier and literal nodes in pkg/ast store the index this
// package hands back rather than a copy of the string itself.
package varlist

import "sort"

// NPOS is the sentinel returned when a name has no entry in the table.
const NPOS = -1

// entry pairs an interned string's index with the hash used to order the secondary index.
type entry struct {
	hash uint64
	idx  int
}

// VarList is an insertion-ordered, deduplicated table of interned strings.
//
// names holds the strings themselves in the order they were first added (the order
// Identifier/Literal nodes' indices refer to); sorted holds one entry per string,
// kept sorted by hash so FindIndex can binary-search instead of scanning names linearly.
type VarList struct {
	names  []string
	sorted []entry
}

// New returns an empty symbol table ready for use.
func New() *VarList {
	return &VarList{}
}

// fnv1a64 hashes s with the FNV-1a algorithm. The zero hash is reserved as the
// poison value for "no hash computed yet", so a zero result is replaced by the
// offset basis before it is returned.
func fnv1a64(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211

	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	if h == 0 {
		h = offset64 // never hand back the poison hash
	}
	return h
}

// lowerBound returns the first index in sorted whose hash is >= h.
func (v *VarList) lowerBound(h uint64) int {
	return sort.Search(len(v.sorted), func(i int) bool { return v.sorted[i].hash >= h })
}

// FindIndex returns the index of name if already interned, or NPOS otherwise.
// Equal-hash collisions are disambiguated by scanning the run of entries sharing
// that hash and comparing strings.
func (v *VarList) FindIndex(name string) int {
	h := fnv1a64(name)
	i := v.lowerBound(h)
	for ; i < len(v.sorted) && v.sorted[i].hash == h; i++ {
		if v.names[v.sorted[i].idx] == name {
			return v.sorted[i].idx
		}
	}
	return NPOS
}

// Contains reports whether name has already been interned.
func (v *VarList) Contains(name string) bool { return v.FindIndex(name) != NPOS }

// Add interns name, returning its stable index. A second Add of the same string
// is idempotent: it returns the same index without growing the table.
func (v *VarList) Add(name string) int {
	if idx := v.FindIndex(name); idx != NPOS {
		return idx
	}

	idx := len(v.names)
	v.names = append(v.names, name)

	h := fnv1a64(name)
	pos := v.lowerBound(h)
	v.sorted = append(v.sorted, entry{})
	copy(v.sorted[pos+1:], v.sorted[pos:])
	v.sorted[pos] = entry{hash: h, idx: idx}

	return idx
}

// Get returns the string at idx and whether idx was in range.
func (v *VarList) Get(idx int) (string, bool) {
	if idx < 0 || idx >= len(v.names) {
		return "", false
	}
	return v.names[idx], true
}

// Size returns the number of distinct interned strings.
func (v *VarList) Size() int { return len(v.names) }

// Clone returns a deep copy of the table, independent of further mutation to v.
func (v *VarList) Clone() *VarList {
	clone := &VarList{
		names:  make([]string, len(v.names)),
		sorted: make([]entry, len(v.sorted)),
	}
	copy(clone.names, v.names)
	copy(clone.sorted, v.sorted)
	return clone
}
