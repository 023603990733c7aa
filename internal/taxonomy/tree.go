// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package taxonomy maintains an indexed, read-through cached snapshot
// of the category tree. The tree is fetched from an upstream provider,
// validated (cycles and orphaned parents excluded, not fatal) and
// indexed for the parent/children/sibling lookups the exploration
// strategies need.
package taxonomy

import (
	"sort"

	"github.com/tomtom215/folio/internal/models"
)

// Tree is an immutable indexed snapshot of the category taxonomy.
// Build returns a fully-populated tree; all lookups are read-only and
// safe for concurrent use.
type Tree struct {
	byID     map[string]*models.CategoryNode
	children map[string][]string

	// excluded lists node IDs dropped during validation (cycles,
	// missing parents, bad levels) with the reason.
	excluded map[string]string
}

// Build indexes a flat node list into a Tree. Nodes participating in a
// parent cycle, pointing at a missing parent, or carrying an invalid
// level are excluded rather than failing the build: a partially valid
// taxonomy still serves feeds.
func Build(nodes []models.CategoryNode) *Tree {
	t := &Tree{
		byID:     make(map[string]*models.CategoryNode, len(nodes)),
		children: make(map[string][]string),
		excluded: make(map[string]string),
	}

	for i := range nodes {
		n := nodes[i]
		if n.Level < 1 || n.Level > 3 {
			t.excluded[n.ID] = "invalid level"
			continue
		}
		t.byID[n.ID] = &n
	}

	// Drop nodes whose parent is absent from the candidate set.
	for id, n := range t.byID {
		if n.ParentID != "" {
			if _, ok := t.byID[n.ParentID]; !ok {
				t.excluded[id] = "missing parent"
			}
		}
	}
	for id := range t.excluded {
		delete(t.byID, id)
	}

	t.excludeCycles()

	for id, n := range t.byID {
		if n.ParentID != "" {
			t.children[n.ParentID] = append(t.children[n.ParentID], id)
		}
	}
	for parent := range t.children {
		sort.Strings(t.children[parent])
	}

	return t
}

// excludeCycles walks parent chains and removes every node on or below
// a parent cycle, so one corrupted branch cannot poison lookups.
func (t *Tree) excludeCycles() {
	const (
		stateVisiting = 1
		stateOK       = 2
		stateBad      = 3
	)
	state := make(map[string]int, len(t.byID))

	var walk func(id string) int
	walk = func(id string) int {
		if s, ok := state[id]; ok {
			return s
		}
		n, ok := t.byID[id]
		if !ok {
			return stateBad
		}
		if n.ParentID == "" {
			state[id] = stateOK
			return stateOK
		}

		state[id] = stateVisiting
		parentState := walk(n.ParentID)
		if parentState != stateOK {
			state[id] = stateBad
			return stateBad
		}
		state[id] = stateOK
		return stateOK
	}

	for id := range t.byID {
		walk(id)
	}
	for id, s := range state {
		if s != stateOK {
			if _, exists := t.byID[id]; exists {
				t.excluded[id] = "parent cycle"
				delete(t.byID, id)
			}
		}
	}
}

// Node returns a category node by ID.
func (t *Tree) Node(id string) (*models.CategoryNode, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// Parent returns the parent node of a category, if any.
func (t *Tree) Parent(id string) (*models.CategoryNode, bool) {
	n, ok := t.byID[id]
	if !ok || n.ParentID == "" {
		return nil, false
	}
	return t.Node(n.ParentID)
}

// Children returns the IDs of a category's direct children.
func (t *Tree) Children(id string) []string {
	return t.children[id]
}

// Siblings returns the IDs of categories sharing the given category's
// parent, excluding the category itself. Root categories have no
// siblings.
func (t *Tree) Siblings(id string) []string {
	n, ok := t.byID[id]
	if !ok || n.ParentID == "" {
		return nil
	}
	sibs := make([]string, 0, len(t.children[n.ParentID]))
	for _, cid := range t.children[n.ParentID] {
		if cid != id {
			sibs = append(sibs, cid)
		}
	}
	return sibs
}

// Ancestors returns the parent chain of a category, nearest first.
func (t *Tree) Ancestors(id string) []string {
	var chain []string
	cur, ok := t.byID[id]
	for ok && cur.ParentID != "" {
		chain = append(chain, cur.ParentID)
		cur, ok = t.byID[cur.ParentID]
	}
	return chain
}

// Level returns the hierarchy level (1-3) of a category, or 0 when
// the category is unknown.
func (t *Tree) Level(id string) int {
	if n, ok := t.byID[id]; ok {
		return n.Level
	}
	return 0
}

// Len returns the number of valid nodes.
func (t *Tree) Len() int {
	return len(t.byID)
}

// Excluded returns the IDs dropped during validation and why.
func (t *Tree) Excluded() map[string]string {
	return t.excluded
}

// IDs returns all valid node IDs in sorted order.
func (t *Tree) IDs() []string {
	ids := make([]string, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
