// Package fdr estimates target-decoy false discovery rates and cuts PSM tables at a
// requested level.
package fdr

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/ChrisMcGann/pepkey/pkg/psm"
	"gonum.org/v1/gonum/floats"
)

// ErrAnalyteLevel is returned by CutGlobalFDR for unsupported analyte levels.
var ErrAnalyteLevel = psm.ErrAnalyteLevel

// Cutoff describes where a table was cut.
type Cutoff struct {
	Score   float64 // inclusive score threshold; +Inf when nothing passes
	Targets int     // cumulative targets at the cutoff row
	Decoys  int     // cumulative decoys at the cutoff row
	FDR     float64 // fdr at the cutoff row
}

// QValues returns the running minimum of fdr taken from the last element backwards.
func QValues(fdr []float64) []float64 {
	q := make([]float64, len(fdr))
	lowest := math.Inf(1)
	for i := len(fdr) - 1; i >= 0; i-- {
		if fdr[i] < lowest {
			lowest = fdr[i]
		}
		q[i] = lowest
	}
	return q
}

// scored is the minimal view of a row needed to compute FDR.
type scored struct {
	score float64
	decoy bool
}

// stats holds per-row FDR columns in sorted order.
type stats struct {
	order     []int
	targetCum []float64
	decoysCum []float64
	fdr       []float64
	q         []float64
}

// compute sorts rows by descending score with targets ahead of decoys on ties and
// derives the cumulative counts, fdr and q-values.
func compute(rows []scored) stats {
	n := len(rows)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := rows[order[a]], rows[order[b]]
		if ra.score != rb.score {
			return ra.score > rb.score
		}
		return !ra.decoy && rb.decoy
	})

	targets := make([]float64, n)
	decoys := make([]float64, n)
	for k, i := range order {
		if rows[i].decoy {
			decoys[k] = 1
		} else {
			targets[k] = 1
		}
	}
	floats.CumSum(targets, targets)
	floats.CumSum(decoys, decoys)

	fdr := make([]float64, n)
	for k := range fdr {
		fdr[k] = decoys[k] / math.Max(targets[k], 1)
	}
	return stats{order: order, targetCum: targets, decoysCum: decoys, fdr: fdr, q: QValues(fdr)}
}

// cutIndex returns the last sorted position to keep, or -1 to keep nothing.
func (s stats) cutIndex(level float64) int {
	n := len(s.q)
	switch {
	case n == 0:
		return -1
	case s.q[n-1] <= level:
		return n - 1
	case s.q[0] > level:
		return -1
	}
	for k, q := range s.q {
		if q > level {
			return k - 1
		}
	}
	return n - 1
}

// cut applies the level and returns the cutoff and the kept sorted positions.
// Every row scoring at least the cutoff row's score is kept, so rows tied with the
// cutoff may carry q-values above level.
func (s stats) cut(rows []scored, level float64) (Cutoff, []int) {
	c := s.cutIndex(level)
	if c < 0 {
		return Cutoff{Score: math.Inf(1)}, nil
	}
	cutoff := Cutoff{
		Score:   rows[s.order[c]].score,
		Targets: int(s.targetCum[c]),
		Decoys:  int(s.decoysCum[c]),
		FDR:     s.fdr[c],
	}
	var keep []int
	for k, i := range s.order {
		if rows[i].score >= cutoff.Score {
			keep = append(keep, k)
		}
	}
	return cutoff, keep
}

func (s stats) annotate(p *psm.PSM, k int) {
	p.Target = !p.Decoy
	p.TargetCum = int(s.targetCum[k])
	p.DecoysCum = int(s.decoysCum[k])
	p.FDR = s.fdr[k]
	p.QValue = s.q[k]
}

// CutFDR sorts t by descending score, annotates target/decoy running counts, fdr and
// q-values, and returns the rows at or above the score where q-values first exceed
// level. The returned rows are in sorted order. If no row meets level the result is
// empty and the cutoff score is +Inf.
func CutFDR(t psm.Table, level float64) (Cutoff, psm.Table) {
	rows := make([]scored, len(t))
	for i := range t {
		rows[i] = scored{score: t[i].Score, decoy: t[i].Decoy}
	}
	s := compute(rows)
	cutoff, keep := s.cut(rows, level)

	out := make(psm.Table, 0, len(keep))
	for _, k := range keep {
		p := t[s.order[k]]
		s.annotate(&p, k)
		out = append(out, p)
	}
	return cutoff, out
}

type analyteKey struct {
	analyte string
	decoy   bool
}

// CutGlobalFDR aggregates t to the best score of every (analyte, decoy) pair at the
// given level, cuts the aggregate at fdrLevel, and returns the rows of t whose pair
// passed, in input order. Rows carry the FDR columns of their aggregate.
func CutGlobalFDR(t psm.Table, level string, fdrLevel float64) (Cutoff, psm.Table, error) {
	if !slices.Contains(psm.Levels, level) {
		return Cutoff{}, nil, fmt.Errorf("%w '%s', must be one of %v", ErrAnalyteLevel, level, psm.Levels)
	}
	index := make(map[analyteKey]int)
	var rows []scored
	rowKeys := make([]analyteKey, len(t))
	for i := range t {
		a, err := t[i].Analyte(level)
		if err != nil {
			return Cutoff{}, nil, err
		}
		key := analyteKey{analyte: a, decoy: t[i].Decoy}
		rowKeys[i] = key
		j, ok := index[key]
		if !ok {
			index[key] = len(rows)
			rows = append(rows, scored{score: t[i].Score, decoy: t[i].Decoy})
			continue
		}
		if t[i].Score > rows[j].score {
			rows[j].score = t[i].Score
		}
	}

	s := compute(rows)
	cutoff, keep := s.cut(rows, fdrLevel)

	// aggregate index -> sorted position of passing aggregates
	passed := make(map[int]int, len(keep))
	for _, k := range keep {
		passed[s.order[k]] = k
	}

	out := make(psm.Table, 0, len(t))
	for i := range t {
		k, ok := passed[index[rowKeys[i]]]
		if !ok {
			continue
		}
		p := t[i]
		s.annotate(&p, k)
		out = append(out, p)
	}
	return cutoff, out, nil
}
