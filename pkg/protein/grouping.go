// Package protein assigns PSMs to proteins with the razor rule: shared peptides go to
// the protein with the most supporting evidence.
package protein

import (
	"sort"
	"strings"

	"github.com/ChrisMcGann/pepkey/pkg/core"
	"github.com/ChrisMcGann/pepkey/pkg/psm"
)

// Database resolves peptides to proteins.
type Database struct {
	Peptides map[string][]int // sequence -> protein indices
	Proteins []core.Protein   // indexed by protein index
}

// name returns the protein name at index i.
func (db *Database) name(i int) string {
	if i < 0 || i >= len(db.Proteins) {
		return ""
	}
	return db.Proteins[i].Name
}

// graph is the bipartite PSM/protein graph of shared peptides. PSM nodes are row
// indices, protein nodes are protein indices; the two never share a namespace.
type graph struct {
	psmAdj     map[int][]int
	proteinAdj map[int][]int
	psmOrder   []int
}

func newGraph() *graph {
	return &graph{psmAdj: make(map[int][]int), proteinAdj: make(map[int][]int)}
}

func (g *graph) addEdge(row, protein int) {
	if _, ok := g.psmAdj[row]; !ok {
		g.psmOrder = append(g.psmOrder, row)
	}
	g.psmAdj[row] = append(g.psmAdj[row], protein)
	g.proteinAdj[protein] = append(g.proteinAdj[protein], row)
}

// component is one connected set of PSMs and proteins.
type component struct {
	rows     []int
	proteins []int // ascending
}

func (c component) size() int {
	return len(c.rows) + len(c.proteins)
}

// components returns the connected components, largest first. Equal sizes keep the
// order in which their first PSM was added.
func (g *graph) components() []component {
	seenRow := make(map[int]bool)
	seenProtein := make(map[int]bool)
	var out []component

	for _, start := range g.psmOrder {
		if seenRow[start] {
			continue
		}
		var c component
		queue := []int{start}
		seenRow[start] = true
		for len(queue) > 0 {
			row := queue[0]
			queue = queue[1:]
			c.rows = append(c.rows, row)
			for _, p := range g.psmAdj[row] {
				if seenProtein[p] {
					continue
				}
				seenProtein[p] = true
				c.proteins = append(c.proteins, p)
				for _, r := range g.proteinAdj[p] {
					if !seenRow[r] {
						seenRow[r] = true
						queue = append(queue, r)
					}
				}
			}
		}
		sort.Ints(c.rows)
		sort.Ints(c.proteins)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].size() > out[j].size()
	})
	return out
}

// Groups annotates every row of t whose sequence is in db with its protein.
// Rows whose peptide maps to one protein get that protein directly. Rows whose peptide
// is shared are resolved per connected component: the protein with the most PSMs
// (shared plus unique, ties to the lowest index) claims all its unclaimed PSMs, and so
// on until every protein of the component is used. Shared rows also receive the
// comma-joined names of all proteins in their component.
func Groups(t psm.Table, db *Database, progress core.Progress) {
	g := newGraph()
	unique := make(map[int][]int)

	for i := range t {
		proteins := db.Peptides[t[i].Sequence]
		switch {
		case len(proteins) == 1:
			unique[proteins[0]] = append(unique[proteins[0]], i)
		case len(proteins) > 1:
			for _, p := range proteins {
				g.addEdge(i, p)
			}
		}
		progress.Report(float64(i+1) / float64(len(t)))
	}

	for p, rows := range unique {
		for _, i := range rows {
			t[i].Protein = db.name(p)
			t[i].ProteinGroup = ""
			t[i].Razor = false
		}
	}

	for _, c := range g.components() {
		names := make([]string, len(c.proteins))
		for k, p := range c.proteins {
			names[k] = db.name(p)
		}
		group := strings.Join(names, ",")
		for _, i := range c.rows {
			t[i].ProteinGroup = group
		}

		claimed := make(map[int]bool)
		remaining := append([]int(nil), c.proteins...)
		for len(remaining) > 0 {
			best, bestCount := 0, -1
			for k, p := range remaining {
				count := len(g.proteinAdj[p]) + len(unique[p])
				if count > bestCount {
					best, bestCount = k, count
				}
			}
			p := remaining[best]
			remaining = append(remaining[:best], remaining[best+1:]...)

			for _, i := range g.proteinAdj[p] {
				if claimed[i] {
					continue
				}
				claimed[i] = true
				t[i].Protein = db.name(p)
				t[i].Razor = true
			}
		}
	}
}

type peptideKey struct {
	sequence string
	decoy    bool
}

// PerformGrouping collapses t to the best-scoring row per (sequence, decoy), groups
// targets and decoys separately, and copies protein, protein_group and razor back onto
// every row of t. Rows are returned in input order.
func PerformGrouping(t psm.Table, db *Database) psm.Table {
	best := make(map[peptideKey]int) // key -> position in targets or decoys
	var targets, decoys psm.Table
	for i := range t {
		key := peptideKey{t[i].Sequence, t[i].Decoy}
		sub := &targets
		if key.decoy {
			sub = &decoys
		}
		if k, ok := best[key]; ok {
			if t[i].Score > (*sub)[k].Score {
				(*sub)[k].Score = t[i].Score
			}
			continue
		}
		best[key] = len(*sub)
		*sub = append(*sub, psm.PSM{Sequence: key.sequence, Decoy: key.decoy, Score: t[i].Score})
	}

	Groups(targets, db, nil)
	Groups(decoys, db, nil)

	out := t.Clone()
	for i := range out {
		key := peptideKey{out[i].Sequence, out[i].Decoy}
		var r *psm.PSM
		if key.decoy {
			r = &decoys[best[key]]
		} else {
			r = &targets[best[key]]
		}
		out[i].Protein = r.Protein
		out[i].ProteinGroup = r.ProteinGroup
		out[i].Razor = r.Razor
	}
	return out
}
