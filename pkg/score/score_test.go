package score

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ChrisMcGann/pepkey/pkg/digest"
	"github.com/ChrisMcGann/pepkey/pkg/filter"
	"github.com/ChrisMcGann/pepkey/pkg/psm"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestXTandem(t *testing.T) {
	tests := []struct {
		name string
		p    psm.PSM
		want float64
	}{
		{"factorials", psm.PSM{BHits: 2, YHits: 3, MatchedInt: 10}, math.Log(120)},
		{"no hits", psm.PSM{MatchedInt: 5}, math.Log(5)},
		{"no intensity", psm.PSM{BHits: 4, YHits: 4}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := XTandem(&tt.p); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("XTandem() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterWithXTandem(t *testing.T) {
	tbl := psm.Table{
		{QueryIdx: 0, FeatureIdx: psm.NoFeature, Sequence: "PEPK", Precursor: "PEPK2", BHits: 1, YHits: 1, MatchedInt: 10},
		{QueryIdx: 0, FeatureIdx: psm.NoFeature, Sequence: "PEPR", Precursor: "PEPR2", BHits: 3, YHits: 3, MatchedInt: 10},
		{QueryIdx: 1, FeatureIdx: psm.NoFeature, Sequence: "KPEP_decoy", Precursor: "KPEP_decoy2", BHits: 2, YHits: 2, MatchedInt: 10},
	}

	got, err := FilterWithXTandem(tbl, filter.Config{})
	if err != nil {
		t.Fatalf("FilterWithXTandem() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].Sequence != "PEPR" || got[1].Sequence != "KPEP_decoy" {
		t.Errorf("kept %q and %q, want PEPR and KPEP_decoy", got[0].Sequence, got[1].Sequence)
	}
	if !got[1].Decoy {
		t.Error("decoy flag not derived from sequence")
	}
	if tbl[0].Score != 0 {
		t.Error("input table was modified")
	}

	if _, err := FilterWithXTandem(psm.Table{}, filter.Config{}); !errors.Is(err, ErrEmptyResult) {
		t.Errorf("empty input: error = %v, want ErrEmptyResult", err)
	}
}

func TestAddFeatures(t *testing.T) {
	protease, err := digest.Lookup("trypsin")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	tbl := psm.Table{
		{Sequence: "oxMPEPK", Charge: 2, MZ: 450, Hits: 6, DeltaMPPM: -3, BHits: 1, YHits: 2, MatchedInt: 1},
		{Sequence: "KPEPM_decoy", Charge: 3, MZ: 480, Hits: 2, DeltaMPPM: 1},
	}
	AddFeatures(tbl, protease)

	want := map[string]float64{
		"abs_delta_m_ppm":      3,
		"n_AA":                 5,
		"matched_ion_fraction": 0.6,
		"n_missed":             0,
		"n_internal":           0,
		"ln_mz_range":          math.Log(2),
		"charge_2.0":           1,
		"charge_3.0":           0,
		"charge_4.0":           0,
		"charge_5.0":           0,
		"ln_sequence":          0,
		"x_tandem":             math.Log(2),
	}
	if diff := cmp.Diff(want, tbl[0].Features, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}
	if !tbl[1].Decoy {
		t.Error("decoy flag not set")
	}
	if tbl[1].Features["charge_3.0"] != 1 {
		t.Error("charge_3.0 not set on charge 3 row")
	}
	if tbl[1].Features["n_internal"] != 1 {
		t.Errorf("n_internal = %v, want 1 for a peptide ending in M", tbl[1].Features["n_internal"])
	}
}

func TestLinearClassifier(t *testing.T) {
	clf := &LinearClassifier{
		FeatureNames: []string{"y_hits"},
		Mean:         []float64{2},
		Scale:        []float64{1},
		Weights:      []float64{1},
	}
	got, err := clf.PredictProba([][]float64{{2}, {100}, {-100}})
	if err != nil {
		t.Fatalf("PredictProba() error = %v", err)
	}
	if got[0] != 0.5 || got[1] < 0.99 || got[2] > 0.01 {
		t.Errorf("PredictProba() = %v", got)
	}

	if _, err := ReadLinearClassifier(strings.NewReader(`{"features":["a","b"],"mean":[0],"scale":[1,1],"weights":[1,1]}`)); err == nil {
		t.Error("ReadLinearClassifier() accepted mismatched vectors")
	}
}

func TestLinearClassifierRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	clf := &LinearClassifier{
		FeatureNames: []string{"x_tandem", "n_AA"},
		Mean:         []float64{1, 10},
		Scale:        []float64{0.5, 3},
		Weights:      []float64{2, -1},
		Bias:         0.25,
	}
	if err := clf.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := LoadLinearClassifier(path)
	if err != nil {
		t.Fatalf("LoadLinearClassifier() error = %v", err)
	}
	if diff := cmp.Diff(clf, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func trainingTable() psm.Table {
	var tbl psm.Table
	for i := 0; i < 60; i++ {
		tbl = append(tbl, psm.PSM{
			QueryIdx:   i,
			FeatureIdx: psm.NoFeature,
			DBIdx:      i,
			Sequence:   fmt.Sprintf("PEP%dK", i),
			Charge:     2,
			YHits:      10 + i%5,
		})
	}
	for i := 0; i < 60; i++ {
		tbl = append(tbl, psm.PSM{
			QueryIdx:   100 + i,
			FeatureIdx: psm.NoFeature,
			DBIdx:      100 + i,
			Sequence:   fmt.Sprintf("KPEP%d_decoy", i),
			Charge:     2,
			YHits:      1 + i%3,
		})
	}
	tbl.Prepare()
	return tbl
}

func TestTrainLogistic(t *testing.T) {
	tbl := trainingTable()
	cfg := DefaultTrainConfig()
	cfg.Features = []string{"y_hits"}
	cfg.MinTrain = 10

	clf, err := TrainLogistic(tbl, cfg)
	if err != nil {
		t.Fatalf("TrainLogistic() error = %v", err)
	}
	if clf.Weights[0] <= 0 {
		t.Errorf("weight on y_hits = %v, want positive", clf.Weights[0])
	}

	got, err := FilterWithML(tbl, clf, filter.Config{})
	if err != nil {
		t.Fatalf("FilterWithML() error = %v", err)
	}
	for _, p := range got {
		if p.Decoy && p.Score > 0.5 {
			t.Errorf("decoy %s scored %v", p.Sequence, p.Score)
		}
		if !p.Decoy && p.Score < 0.5 {
			t.Errorf("target %s scored %v", p.Sequence, p.Score)
		}
	}

	cfg.MinTrain = 1000
	if _, err := TrainLogistic(tbl, cfg); !errors.Is(err, ErrTooFewTraining) {
		t.Errorf("TrainLogistic() error = %v, want ErrTooFewTraining", err)
	}
}
