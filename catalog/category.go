package catalog

import "sort"

// Category is a storefront product category. Parent is 0 for top-level categories.
type Category struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Parent int64  `json:"parent"`
	Count  int    `json:"count"`
}

// Tree indexes categories by parent.
type Tree struct {
	byID     map[int64]Category
	children map[int64][]Category
}

// NewTree builds a tree. Children are ordered by name. Categories whose
// parent is unknown are treated as roots.
func NewTree(categories []Category) *Tree {
	t := &Tree{
		byID:     make(map[int64]Category, len(categories)),
		children: make(map[int64][]Category),
	}
	for _, c := range categories {
		t.byID[c.ID] = c
	}
	for _, c := range categories {
		parent := c.Parent
		if _, ok := t.byID[parent]; !ok {
			parent = 0
		}
		t.children[parent] = append(t.children[parent], c)
	}
	for _, list := range t.children {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	}
	return t
}

// Get returns the category with id.
func (t *Tree) Get(id int64) (Category, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// Roots returns the top-level categories.
func (t *Tree) Roots() []Category {
	return t.children[0]
}

// Children returns the direct children of id.
func (t *Tree) Children(id int64) []Category {
	return t.children[id]
}

// WithDescendants returns ids plus every descendant of each, depth first,
// without duplicates. Unknown ids are kept as given.
func (t *Tree) WithDescendants(ids ...int64) []int64 {
	seen := make(map[int64]bool)
	var out []int64

	var visit func(id int64)
	visit = func(id int64) {
		if seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
		for _, child := range t.children[id] {
			visit(child.ID)
		}
	}

	for _, id := range ids {
		visit(id)
	}
	return out
}

// Walk visits every category depth first, roots first, passing its depth.
// Each category is visited once even if the parent links form a cycle.
func (t *Tree) Walk(fn func(depth int, c Category)) {
	seen := make(map[int64]bool)
	var walk func(parent int64, depth int)
	walk = func(parent int64, depth int) {
		for _, c := range t.children[parent] {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			fn(depth, c)
			walk(c.ID, depth+1)
		}
	}
	walk(0, 0)
}
