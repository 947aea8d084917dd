// Package tree implements the in-memory section tree algorithms: forest
// assembly from flat rows, depth-first flattening, and ancestor walks.
// All functions are pure; persistence stays in the store package.
package tree

import (
	"sort"

	"github.com/docomatic/docomatic/internal/models"
)

// BuildForest assembles nested section nodes from a flat slice using an
// adjacency map (parent id to ordered children). Children are sorted by
// order_index with id as tiebreak, so repeated calls over the same rows
// yield an identical structure. Sections whose parent is missing from the
// input are treated as roots rather than dropped.
func BuildForest(sections []models.Section) []*models.SectionNode {
	nodes := make(map[string]*models.SectionNode, len(sections))
	for _, s := range sections {
		nodes[s.ID] = &models.SectionNode{Section: s}
	}

	var roots []*models.SectionNode
	for _, s := range sections {
		n := nodes[s.ID]
		if s.ParentID != nil {
			if parent, ok := nodes[*s.ParentID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	sortNodes(roots)
	for _, n := range nodes {
		sortNodes(n.Children)
	}
	return roots
}

func sortNodes(nodes []*models.SectionNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].OrderIndex != nodes[j].OrderIndex {
			return nodes[i].OrderIndex < nodes[j].OrderIndex
		}
		return nodes[i].ID < nodes[j].ID
	})
}

// Flatten walks a forest depth-first in sibling order and annotates each
// section with its depth. The resulting id sequence matches a manual DFS
// of BuildForest output over the same rows.
func Flatten(forest []*models.SectionNode) []models.FlatSection {
	var out []models.FlatSection
	var walk func(nodes []*models.SectionNode, depth int)
	walk = func(nodes []*models.SectionNode, depth int) {
		for _, n := range nodes {
			out = append(out, models.FlatSection{Section: n.Section, Depth: depth})
			walk(n.Children, depth+1)
		}
	}
	walk(forest, 0)
	return out
}

// Subtree returns the node with the given id from a forest, or nil.
func Subtree(forest []*models.SectionNode, id string) *models.SectionNode {
	for _, n := range forest {
		if n.ID == id {
			return n
		}
		if found := Subtree(n.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// SubtreeIDs collects the ids of a node and all its descendants.
func SubtreeIDs(node *models.SectionNode) []string {
	if node == nil {
		return nil
	}
	ids := []string{node.ID}
	for _, c := range node.Children {
		ids = append(ids, SubtreeIDs(c)...)
	}
	return ids
}
