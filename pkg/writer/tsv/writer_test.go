package tsv

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ChrisMcGann/pepkey/pkg/psm"
	tsvreader "github.com/ChrisMcGann/pepkey/pkg/reader/tsv"
	"github.com/google/go-cmp/cmp"
)

func sampleTable() psm.Table {
	t := psm.Table{
		{
			QueryIdx: 4, FeatureIdx: psm.NoFeature, RawIdx: 1, DBIdx: 10, Sequence: "oxMPEPTIDEK", Charge: 2,
			MZ: 512.25, DeltaMPPM: -1.5, BHits: 3, YHits: 4, Hits: 7, MatchedInt: 1234.5, Dist: 0.125,
			Score: 0.9, Target: true, TargetCum: 1, FDR: 0, QValue: 0,
			Protein: "sp|P1|A_HUMAN", ProteinGroup: "sp|P1|A_HUMAN,sp|P2|B_HUMAN", Razor: true,
			Features: map[string]float64{"x_tandem": 12.75, "n_AA": 10},
		},
		{
			QueryIdx: 5, FeatureIdx: 2, Sequence: "KEDITPEPM_decoy", Charge: 3, Score: 0.1,
			DecoysCum: 1, FDR: 1, QValue: 1,
			Features: map[string]float64{"x_tandem": 1.0 / 3},
		},
	}
	t.Prepare()
	return t
}

func TestWriteHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleTable()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	header := strings.SplitN(buf.String(), "\n", 2)[0]
	want := strings.Join(append(append([]string(nil), Columns...), "n_AA", "x_tandem"), "\t")
	if header != want {
		t.Errorf("header = %q, want %q", header, want)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 3 {
		t.Errorf("wrote %d lines, want 3", lines)
	}
}

func TestRoundTrip(t *testing.T) {
	want := sampleTable()
	path := filepath.Join(t.TempDir(), "psms.tsv.gz")

	if err := WriteFile(path, want); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	got, err := tsvreader.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFeatureColumns(t *testing.T) {
	got := FeatureColumns(sampleTable())
	if diff := cmp.Diff([]string{"n_AA", "x_tandem"}, got); diff != "" {
		t.Errorf("FeatureColumns() mismatch (-want +got):\n%s", diff)
	}
	if got := FeatureColumns(nil); got != nil {
		t.Errorf("FeatureColumns(nil) = %v, want nil", got)
	}
}
