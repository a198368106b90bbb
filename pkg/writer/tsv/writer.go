// Package tsv writes PSM tables as tab-separated text
package tsv

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/pepkey/pkg/psm"
	"github.com/shenwei356/xopen"
)

// Columns is the fixed column order; feature columns follow in sorted order
var Columns = []string{
	"query_idx", "feature_idx", "raw_idx", "db_idx", "sequence", "precursor", "charge",
	"mz", "delta_m_ppm", "b_hits", "y_hits", "hits", "matched_int", "dist", "score",
	"decoy", "target", "target_cum", "decoys_cum", "fdr", "q_value",
	"protein", "protein_group", "razor",
}

// FeatureColumns returns the sorted union of feature names in t
func FeatureColumns(t psm.Table) []string {
	seen := make(map[string]bool)
	var names []string
	for i := range t {
		for name := range t[i].Features {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Write writes the header and every row of t to w
func Write(w io.Writer, t psm.Table) error {
	features := FeatureColumns(t)
	header := append(append([]string(nil), Columns...), features...)
	if _, err := fmt.Fprintln(w, strings.Join(header, "\t")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	fields := make([]string, 0, len(header))
	for i := range t {
		fields = appendRow(fields[:0], &t[i], features)
		if _, err := fmt.Fprintln(w, strings.Join(fields, "\t")); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	return nil
}

func appendRow(fields []string, p *psm.PSM, features []string) []string {
	fields = append(fields,
		strconv.Itoa(p.QueryIdx),
		strconv.Itoa(p.FeatureIdx),
		strconv.Itoa(p.RawIdx),
		strconv.Itoa(p.DBIdx),
		p.Sequence,
		p.Precursor,
		strconv.Itoa(p.Charge),
		formatFloat(p.MZ),
		formatFloat(p.DeltaMPPM),
		strconv.Itoa(p.BHits),
		strconv.Itoa(p.YHits),
		strconv.Itoa(p.Hits),
		formatFloat(p.MatchedInt),
		formatFloat(p.Dist),
		formatFloat(p.Score),
		strconv.FormatBool(p.Decoy),
		strconv.FormatBool(p.Target),
		strconv.Itoa(p.TargetCum),
		strconv.Itoa(p.DecoysCum),
		formatFloat(p.FDR),
		formatFloat(p.QValue),
		p.Protein,
		p.ProteinGroup,
		strconv.FormatBool(p.Razor),
	)
	for _, name := range features {
		v, ok := p.Features[name]
		if !ok {
			fields = append(fields, "")
			continue
		}
		fields = append(fields, formatFloat(v))
	}
	return fields
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// WriteFile writes t to path; a compression suffix such as .gz is honoured
func WriteFile(path string, t psm.Table) error {
	fh, err := xopen.Wopen(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Write(fh, t); err != nil {
		fh.Close()
		return err
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
