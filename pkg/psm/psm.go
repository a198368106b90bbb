// Package psm defines peptide-spectrum match rows and the tables the scoring stage
// operates on.
package psm

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/ChrisMcGann/pepkey/pkg/decoy"
)

// Analyte levels accepted by global FDR.
const (
	LevelPrecursor = "precursor"
	LevelSequence  = "sequence"
	LevelProtein   = "protein"
)

// Levels lists the supported analyte levels.
var Levels = []string{LevelPrecursor, LevelSequence, LevelProtein}

// ErrAnalyteLevel is returned for analyte levels other than those in Levels.
var ErrAnalyteLevel = errors.New("unsupported analyte level")

// NoFeature marks a row without a feature assignment.
const NoFeature = -1

// PSM is one peptide-spectrum match. Search output fills the identification and
// hit columns; scoring, FDR and grouping fill the rest.
type PSM struct {
	QueryIdx   int     `json:"query_idx"`
	FeatureIdx int     `json:"feature_idx"`
	RawIdx     int     `json:"raw_idx"`
	DBIdx      int     `json:"db_idx"`
	Sequence   string  `json:"sequence"`
	Precursor  string  `json:"precursor"`
	Charge     int     `json:"charge"`
	MZ         float64 `json:"mz"`
	DeltaMPPM  float64 `json:"delta_m_ppm"`
	BHits      int     `json:"b_hits"`
	YHits      int     `json:"y_hits"`
	Hits       int     `json:"hits"`
	MatchedInt float64 `json:"matched_int"`
	Dist       float64 `json:"dist"`

	Score float64 `json:"score"`
	Decoy bool    `json:"decoy"`

	Target    bool    `json:"target"`
	TargetCum int     `json:"target_cum"`
	DecoysCum int     `json:"decoys_cum"`
	FDR       float64 `json:"fdr"`
	QValue    float64 `json:"q_value"`

	Protein      string `json:"protein"`
	ProteinGroup string `json:"protein_group"`
	Razor        bool   `json:"razor"`

	Features map[string]float64 `json:"features,omitempty"`
}

// Table is an ordered set of PSM rows.
type Table []PSM

var modTags = regexp.MustCompile(`[a-z]|_`)

// NakedSequence strips modification tags and the decoy suffix from a sequence.
func NakedSequence(sequence string) string {
	return modTags.ReplaceAllString(sequence, "")
}

// HasFeature reports whether the row is assigned to a feature.
func (p *PSM) HasFeature() bool {
	return p.FeatureIdx != NoFeature
}

// Analyte returns the row's key at the given analyte level.
func (p *PSM) Analyte(level string) (string, error) {
	switch level {
	case LevelPrecursor:
		if p.Precursor == "" {
			return PrecursorKey(p.Sequence, p.Charge), nil
		}
		return p.Precursor, nil
	case LevelSequence:
		return p.Sequence, nil
	case LevelProtein:
		return p.Protein, nil
	}
	return "", fmt.Errorf("%w '%s', must be one of %v", ErrAnalyteLevel, level, Levels)
}

// PrecursorKey joins a sequence and charge into a precursor identifier.
func PrecursorKey(sequence string, charge int) string {
	return sequence + strconv.Itoa(charge)
}

// Prepare derives the decoy flag from each sequence and fills missing precursor keys.
func (t Table) Prepare() {
	for i := range t {
		t[i].Decoy = decoy.IsDecoy(t[i].Sequence)
		if t[i].Precursor == "" {
			t[i].Precursor = PrecursorKey(t[i].Sequence, t[i].Charge)
		}
	}
}

// HasFeatures reports whether any row carries a feature assignment.
func (t Table) HasFeatures() bool {
	for i := range t {
		if t[i].HasFeature() {
			return true
		}
	}
	return false
}

// Counts returns the number of target and decoy rows.
func (t Table) Counts() (targets, decoys int) {
	for i := range t {
		if t[i].Decoy {
			decoys++
		} else {
			targets++
		}
	}
	return targets, decoys
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	copy(out, t)
	for i := range out {
		if t[i].Features != nil {
			f := make(map[string]float64, len(t[i].Features))
			for k, v := range t[i].Features {
				f[k] = v
			}
			out[i].Features = f
		}
	}
	return out
}

// Value returns a named numeric column: a fixed column or an entry of Features.
func (p *PSM) Value(name string) (float64, bool) {
	switch name {
	case "query_idx":
		return float64(p.QueryIdx), true
	case "feature_idx":
		return float64(p.FeatureIdx), true
	case "raw_idx":
		return float64(p.RawIdx), true
	case "db_idx":
		return float64(p.DBIdx), true
	case "charge":
		return float64(p.Charge), true
	case "mz":
		return p.MZ, true
	case "delta_m_ppm":
		return p.DeltaMPPM, true
	case "b_hits":
		return float64(p.BHits), true
	case "y_hits":
		return float64(p.YHits), true
	case "hits":
		return float64(p.Hits), true
	case "matched_int":
		return p.MatchedInt, true
	case "dist":
		return p.Dist, true
	case "score":
		return p.Score, true
	}
	v, ok := p.Features[name]
	return v, ok
}

// SetFeature stores a derived numeric column.
func (p *PSM) SetFeature(name string, v float64) {
	if p.Features == nil {
		p.Features = make(map[string]float64)
	}
	p.Features[name] = v
}
