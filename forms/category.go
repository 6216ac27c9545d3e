package forms

import (
	"sort"
	"strconv"
)

// Category is one entry of the backend category list.
type Category struct {
	ID    string
	Label string
}

// Categories builds the ordered category list from the backend id -> label
// mapping. Integer ids come first in ascending numeric order, the rest follow
// sorted by id, which is the order a browser enumerates object keys in.
func Categories(m map[string]string) []Category {
	out := make([]Category, 0, len(m))
	for id, label := range m {
		out = append(out, Category{ID: id, Label: label})
	}
	sort.Slice(out, func(i, j int) bool {
		ni, iNum := arrayIndex(out[i].ID)
		nj, jNum := arrayIndex(out[j].ID)
		switch {
		case iNum && jNum:
			return ni < nj
		case iNum != jNum:
			return iNum
		default:
			return out[i].ID < out[j].ID
		}
	})
	return out
}

// arrayIndex reports whether id is a canonical non-negative integer.
func arrayIndex(id string) (uint64, bool) {
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return 0, false
	}
	if strconv.FormatUint(n, 10) != id {
		return 0, false
	}
	return n, true
}
