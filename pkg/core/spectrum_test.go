package core

import (
	"math"
	"testing"
)

func TestSpectrumValidation(t *testing.T) {
	tests := []struct {
		name    string
		spec    *TheoreticalSpectrum
		wantErr bool
	}{
		{
			name: "valid spectrum",
			spec: &TheoreticalSpectrum{
				Sequence:      "PEPTIDE",
				PrecursorMass: 799.36,
				FragMasses:    []float64{98.06, 227.10},
				FragTypes:     []int8{IonB, IonB},
			},
			wantErr: false,
		},
		{
			name: "missing sequence",
			spec: &TheoreticalSpectrum{
				PrecursorMass: 799.36,
				FragMasses:    []float64{98.06},
				FragTypes:     []int8{IonB},
			},
			wantErr: true,
		},
		{
			name: "zero precursor",
			spec: &TheoreticalSpectrum{
				Sequence:   "PEPTIDE",
				FragMasses: []float64{98.06},
				FragTypes:  []int8{IonB},
			},
			wantErr: true,
		},
		{
			name: "mismatched arrays",
			spec: &TheoreticalSpectrum{
				Sequence:      "PEPTIDE",
				PrecursorMass: 799.36,
				FragMasses:    []float64{98.06, 227.10},
				FragTypes:     []int8{IonB},
			},
			wantErr: true,
		},
		{
			name: "unsorted fragments",
			spec: &TheoreticalSpectrum{
				Sequence:      "PEPTIDE",
				PrecursorMass: 799.36,
				FragMasses:    []float64{227.10, 98.06},
				FragTypes:     []int8{IonB, IonB},
			},
			wantErr: true,
		},
		{
			name: "NaN mass",
			spec: &TheoreticalSpectrum{
				Sequence:      "PEPTIDE",
				PrecursorMass: 799.36,
				FragMasses:    []float64{math.NaN()},
				FragTypes:     []int8{IonY},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSortFragments(t *testing.T) {
	spec := &TheoreticalSpectrum{
		FragMasses: []float64{300.0, 100.0, 200.0},
		FragTypes:  []int8{IonY, IonB, IonY},
	}

	spec.SortFragments()

	expected := []float64{100.0, 200.0, 300.0}
	expectedTypes := []int8{IonB, IonY, IonY}
	for i := range spec.FragMasses {
		if spec.FragMasses[i] != expected[i] || spec.FragTypes[i] != expectedTypes[i] {
			t.Errorf("Fragment %d: expected (%.1f, %d), got (%.1f, %d)", i, expected[i], expectedTypes[i], spec.FragMasses[i], spec.FragTypes[i])
		}
	}
}

func TestSortFragmentsEqualMass(t *testing.T) {
	spec := &TheoreticalSpectrum{
		FragMasses: []float64{200.0, 100.0, 200.0, 50.0, 200.0},
		FragTypes:  []int8{IonY, IonB, IonB, IonY, IonY},
	}

	spec.SortFragments()

	expectedTypes := []int8{IonY, IonB, IonY, IonB, IonY}
	for i := range spec.FragTypes {
		if spec.FragTypes[i] != expectedTypes[i] {
			t.Errorf("Fragment %d: expected type %d, got %d", i, expectedTypes[i], spec.FragTypes[i])
		}
	}
}

func TestComputeSpectrum(t *testing.T) {
	table := NewMassTable(nil)

	spec, err := table.ComputeSpectrum("PEPTIDE", []string{"P", "E", "P", "T", "I", "D", "E"})
	if err != nil {
		t.Fatalf("ComputeSpectrum() error = %v", err)
	}

	// PEPTIDE neutral monoisotopic mass
	if math.Abs(spec.PrecursorMass-799.35997) > 0.001 {
		t.Errorf("PrecursorMass = %.5f, want 799.35997", spec.PrecursorMass)
	}
	if len(spec.FragMasses) != 12 || len(spec.FragTypes) != 12 {
		t.Fatalf("expected 2*(7-1) = 12 fragments, got %d masses and %d types", len(spec.FragMasses), len(spec.FragTypes))
	}
	if err := spec.Validate(); err != nil {
		t.Errorf("computed spectrum invalid: %v", err)
	}

	// b1 of PEPTIDE is P + proton
	if math.Abs(spec.FragMasses[0]-98.06004) > 0.001 || spec.FragTypes[0] != IonB {
		t.Errorf("lightest fragment = (%.5f, %d), want b1 98.06004", spec.FragMasses[0], spec.FragTypes[0])
	}
}

func TestComputeSpectrumModified(t *testing.T) {
	table := NewMassTable(nil)

	plain, err := table.ComputeSpectrum("AMK", []string{"A", "M", "K"})
	if err != nil {
		t.Fatal(err)
	}
	oxidised, err := table.ComputeSpectrum("AoxMK", []string{"A", "oxM", "K"})
	if err != nil {
		t.Fatal(err)
	}

	if diff := oxidised.PrecursorMass - plain.PrecursorMass; math.Abs(diff-15.994915) > 1e-6 {
		t.Errorf("oxidation shift = %.6f, want 15.994915", diff)
	}

	if _, err := table.ComputeSpectrum("AzzMK", []string{"A", "zzM", "K"}); err == nil {
		t.Error("expected error for unknown modification tag")
	}
}

func TestIsDecoy(t *testing.T) {
	if !(&TheoreticalSpectrum{Sequence: "KEDITPEP_decoy"}).IsDecoy() {
		t.Error("expected decoy")
	}
	if (&TheoreticalSpectrum{Sequence: "PEPTIDEK"}).IsDecoy() {
		t.Error("expected target")
	}
}
