// Package score assigns scores to PSMs and reduces them to the best candidate per
// query and precursor.
package score

import (
	"errors"
	"fmt"
	"math"

	"github.com/ChrisMcGann/pepkey/pkg/decoy"
	"github.com/ChrisMcGann/pepkey/pkg/filter"
	"github.com/ChrisMcGann/pepkey/pkg/psm"
)

// Score methods accepted in settings.
const (
	MethodXTandem = "x_tandem"
	MethodML      = "ml"
)

// ErrEmptyResult is returned when no PSM survives filtering.
var ErrEmptyResult = errors.New("no PSMs left after filtering")

// XTandem returns ln(b_hits! * y_hits! * matched_int), or 0 when matched_int is not positive.
func XTandem(p *psm.PSM) float64 {
	if p.MatchedInt <= 0 {
		return 0
	}
	lb, _ := math.Lgamma(float64(p.BHits) + 1)
	ly, _ := math.Lgamma(float64(p.YHits) + 1)
	return lb + ly + math.Log(p.MatchedInt)
}

// FilterWithXTandem scores every row with XTandem and keeps the best row per query and
// precursor.
func FilterWithXTandem(t psm.Table, cfg filter.Config) (psm.Table, error) {
	out := t.Clone()
	for i := range out {
		out[i].Score = XTandem(&out[i])
		out[i].Decoy = decoy.IsDecoy(out[i].Sequence)
	}
	return reduce(out, cfg, MethodXTandem)
}

// FilterWithML scores every row with the classifier's target probability and keeps the
// best row per query and precursor.
func FilterWithML(t psm.Table, clf Classifier, cfg filter.Config) (psm.Table, error) {
	out := t.Clone()
	x, err := Matrix(out, clf.Features())
	if err != nil {
		return nil, err
	}
	proba, err := clf.PredictProba(x)
	if err != nil {
		return nil, fmt.Errorf("classifier failed: %w", err)
	}
	if len(proba) != len(out) {
		return nil, fmt.Errorf("classifier returned %d scores for %d rows", len(proba), len(out))
	}
	for i := range out {
		out[i].Score = proba[i]
		out[i].Decoy = decoy.IsDecoy(out[i].Sequence)
	}
	return reduce(out, cfg, MethodML)
}

func reduce(t psm.Table, cfg filter.Config, method string) (psm.Table, error) {
	n := len(t)
	t, err := cfg.FilterScore(t)
	if err != nil {
		return nil, err
	}
	t = filter.FilterPrecursor(t)
	if len(t) == 0 {
		return nil, fmt.Errorf("%w: %s scoring of %d rows", ErrEmptyResult, method, n)
	}
	return t, nil
}

// Matrix extracts the named columns of every row.
func Matrix(t psm.Table, features []string) ([][]float64, error) {
	x := make([][]float64, len(t))
	for i := range t {
		row := make([]float64, len(features))
		for j, name := range features {
			v, ok := t[i].Value(name)
			if !ok {
				return nil, fmt.Errorf("row %d has no feature '%s'", i, name)
			}
			row[j] = v
		}
		x[i] = row
	}
	return x, nil
}
