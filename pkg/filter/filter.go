// Package filter reduces PSM tables to the best candidates per query, feature and precursor
package filter

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ChrisMcGann/pepkey/pkg/psm"
)

// Filter modes
const (
	// ModeSingle keeps one PSM per raw spectrum
	ModeSingle = "single"
	// ModeMultiple allows several PSMs per raw spectrum (chimeric spectra)
	ModeMultiple = "multiple"
)

// ErrMode is returned for filter modes other than ModeSingle and ModeMultiple.
var ErrMode = errors.New("unknown filter mode")

// Config holds filtering configuration
type Config struct {
	Mode string // ModeSingle or ModeMultiple; empty means ModeMultiple
}

// Validate checks the configured mode
func (c *Config) Validate() error {
	switch c.mode() {
	case ModeSingle, ModeMultiple:
		return nil
	}
	return fmt.Errorf("%w '%s', must be %s or %s", ErrMode, c.Mode, ModeSingle, ModeMultiple)
}

func (c *Config) mode() string {
	if c.Mode == "" {
		return ModeMultiple
	}
	return c.Mode
}

// FilterScore keeps the best-scoring row of every query. When the table carries feature
// assignments, a row must also have the smallest distance within its feature; in
// single mode it must further be the best-scoring row of its raw spectrum among the
// per-query survivors. Both conditions are evaluated on the same rows, so a raw
// spectrum whose best row loses its feature contributes nothing.
//
// Ties on score are broken by lowest db_idx, then smallest sequence, then input order.
// Surviving rows keep their input order.
func (c *Config) FilterScore(t psm.Table) (psm.Table, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	keep := bestPerGroup(t, allRows(len(t)), func(p *psm.PSM) int { return p.QueryIdx })

	if t.HasFeatures() {
		perQuery := keep
		keep = minDistPerFeature(t, perQuery)
		if c.mode() == ModeSingle {
			keep = intersect(keep, bestPerGroup(t, perQuery, func(p *psm.PSM) int { return p.RawIdx }))
		}
	}
	return subset(t, keep), nil
}

// FilterPrecursor keeps every row whose score equals the best score of its precursor.
func FilterPrecursor(t psm.Table) psm.Table {
	best := make(map[string]float64)
	for i := range t {
		p := &t[i]
		if s, ok := best[p.Precursor]; !ok || p.Score > s {
			best[p.Precursor] = p.Score
		}
	}
	out := make(psm.Table, 0, len(t))
	for i := range t {
		if t[i].Score == best[t[i].Precursor] {
			out = append(out, t[i])
		}
	}
	return out
}

// better orders two rows for score ranking.
func better(t psm.Table, i, j int) bool {
	a, b := &t[i], &t[j]
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.DBIdx != b.DBIdx {
		return a.DBIdx < b.DBIdx
	}
	if a.Sequence != b.Sequence {
		return a.Sequence < b.Sequence
	}
	return i < j
}

// bestPerGroup keeps the single best row among rows of each group.
func bestPerGroup(t psm.Table, rows []int, key func(*psm.PSM) int) []int {
	best := make(map[int]int)
	for _, i := range rows {
		k := key(&t[i])
		if cur, ok := best[k]; !ok || better(t, i, cur) {
			best[k] = i
		}
	}
	out := make([]int, 0, len(best))
	for _, i := range best {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// minDistPerFeature keeps rows tied at the smallest distance of their feature.
// Rows without a feature are kept.
func minDistPerFeature(t psm.Table, rows []int) []int {
	minDist := make(map[int]float64)
	for _, i := range rows {
		p := &t[i]
		if !p.HasFeature() {
			continue
		}
		if d, ok := minDist[p.FeatureIdx]; !ok || p.Dist < d {
			minDist[p.FeatureIdx] = p.Dist
		}
	}
	out := make([]int, 0, len(rows))
	for _, i := range rows {
		p := &t[i]
		if !p.HasFeature() || p.Dist == minDist[p.FeatureIdx] {
			out = append(out, i)
		}
	}
	return out
}

// intersect returns the rows present in both ascending slices.
func intersect(a, b []int) []int {
	out := make([]int, 0, len(a))
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

func subset(t psm.Table, rows []int) psm.Table {
	out := make(psm.Table, len(rows))
	for k, i := range rows {
		out[k] = t[i]
	}
	return out
}
