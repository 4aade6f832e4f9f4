package types

import (
	"encoding/json"
	"sort"
)

// TIDSet is a set of entry identifiers. The zero value is not usable; use
// NewTIDSet.
type TIDSet map[string]struct{}

// NewTIDSet returns a set holding the given tids.
func NewTIDSet(tids ...string) TIDSet {
	s := make(TIDSet, len(tids))
	for _, tid := range tids {
		s[tid] = struct{}{}
	}
	return s
}

// Add inserts tid and reports whether it was absent.
func (s TIDSet) Add(tid string) bool {
	if _, ok := s[tid]; ok {
		return false
	}
	s[tid] = struct{}{}
	return true
}

// Has reports whether tid is in the set.
func (s TIDSet) Has(tid string) bool {
	_, ok := s[tid]
	return ok
}

// Len returns the number of tids.
func (s TIDSet) Len() int { return len(s) }

// Union adds every tid of other to s.
func (s TIDSet) Union(other TIDSet) {
	for tid := range other {
		s[tid] = struct{}{}
	}
}

// Clone returns an independent copy. Cloning a nil set yields an empty set.
func (s TIDSet) Clone() TIDSet {
	out := make(TIDSet, len(s))
	for tid := range s {
		out[tid] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same tids.
func (s TIDSet) Equal(other TIDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for tid := range s {
		if !other.Has(tid) {
			return false
		}
	}
	return true
}

// Sorted returns the tids in lexical order.
func (s TIDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for tid := range s {
		out = append(out, tid)
	}
	sort.Strings(out)
	return out
}

// appendNew appends each tid of src not yet in s to dst, keeping src order.
func (s TIDSet) appendNew(dst, src []string) []string {
	for _, tid := range src {
		if s.Add(tid) {
			dst = append(dst, tid)
		}
	}
	return dst
}

// MarshalJSON encodes the set as a sorted array.
func (s TIDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of tids.
func (s *TIDSet) UnmarshalJSON(data []byte) error {
	var tids []string
	if err := json.Unmarshal(data, &tids); err != nil {
		return err
	}
	*s = NewTIDSet(tids...)
	return nil
}
