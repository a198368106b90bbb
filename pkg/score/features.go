package score

import (
	"fmt"
	"math"

	"github.com/ChrisMcGann/pepkey/pkg/decoy"
	"github.com/ChrisMcGann/pepkey/pkg/digest"
	"github.com/ChrisMcGann/pepkey/pkg/psm"
)

// Charges given a one-hot column even when absent from a table.
var oneHotCharges = []int{2, 3, 4, 5}

// DefaultFeatures are the columns a classifier sees unless configured otherwise.
var DefaultFeatures = []string{
	"y_hits", "b_hits", "matched_int",
	"delta_m_ppm", "abs_delta_m_ppm",
	"charge_2.0", "charge_3.0", "charge_4.0", "charge_5.0",
	"n_AA", "n_missed", "n_internal", "ln_sequence", "x_tandem",
	"hits", "matched_ion_fraction", "ln_mz_range",
}

// ChargeColumn names the one-hot column of a charge state.
func ChargeColumn(charge int) string {
	return fmt.Sprintf("charge_%d.0", charge)
}

// AddFeatures derives the classifier columns for every row in place and sets the
// decoy flag.
func AddFeatures(t psm.Table, protease *digest.Protease) {
	naked := make([]string, len(t))
	seqCount := make(map[string]int)
	mzCount := make(map[float64]int)
	for i := range t {
		naked[i] = psm.NakedSequence(t[i].Sequence)
		seqCount[naked[i]]++
		mzCount[math.Floor(t[i].MZ/100)]++
	}

	for i := range t {
		p := &t[i]
		p.Decoy = decoy.IsDecoy(p.Sequence)

		nAA := float64(len(naked[i]))
		p.SetFeature("abs_delta_m_ppm", math.Abs(p.DeltaMPPM))
		p.SetFeature("n_AA", nAA)
		if nAA > 0 {
			p.SetFeature("matched_ion_fraction", float64(p.Hits)/(2*nAA))
		} else {
			p.SetFeature("matched_ion_fraction", 0)
		}
		p.SetFeature("n_missed", float64(protease.CountMissedCleavages(naked[i])))
		p.SetFeature("n_internal", float64(protease.CountInternalCleavages(naked[i])))
		p.SetFeature("ln_mz_range", math.Log(float64(mzCount[math.Floor(p.MZ/100)])))

		for _, c := range oneHotCharges {
			p.SetFeature(ChargeColumn(c), 0)
		}
		p.SetFeature(ChargeColumn(p.Charge), 1)

		p.SetFeature("ln_sequence", math.Log(float64(seqCount[naked[i]])))
		p.SetFeature("x_tandem", XTandem(p))
	}
}
