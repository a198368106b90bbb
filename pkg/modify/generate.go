package modify

import (
	"fmt"

	"github.com/ChrisMcGann/pepkey/pkg/decoy"
	"github.com/ChrisMcGann/pepkey/pkg/digest"
)

// Config holds the digestion and modification settings used to generate peptides.
type Config struct {
	Protease             string
	MissedCleavages      int
	MinLength            int
	MaxLength            int
	Fixed                []string // e.g. "cC"
	Variable             []string // e.g. "oxM"
	FixedTerminal        []string // applied to every cleaved peptide
	VariableTerminal     []string
	FixedTerminalProt    []string // applied to the protein sequence before cleavage
	VariableTerminalProt []string
	MaxIsoforms          int
	Decoy                decoy.Options
}

// DefaultConfig mirrors the default settings file.
func DefaultConfig() Config {
	return Config{
		Protease:             "trypsin",
		MissedCleavages:      2,
		MinLength:            7,
		MaxLength:            27,
		Fixed:                []string{"cC"},
		Variable:             []string{"oxM"},
		VariableTerminalProt: []string{"a<^"},
		MaxIsoforms:          1024,
		Decoy:                decoy.DefaultOptions,
	}
}

// Generator turns protein sequences into target and decoy peptides.
// It is immutable after construction and safe for concurrent use.
type Generator struct {
	protease             *digest.Protease
	cfg                  Config
	fixed                []Mod
	variable             []Mod
	fixedTerminal        []Mod
	variableTerminal     []Mod
	fixedTerminalProt    []Mod
	variableTerminalProt []Mod
}

// NewGenerator validates cfg and parses its modification strings.
func NewGenerator(cfg Config) (*Generator, error) {
	protease, err := digest.Lookup(cfg.Protease)
	if err != nil {
		return nil, err
	}
	if cfg.MinLength > cfg.MaxLength {
		return nil, fmt.Errorf("minimum peptide length %d exceeds maximum %d", cfg.MinLength, cfg.MaxLength)
	}
	if cfg.MissedCleavages < 0 {
		return nil, fmt.Errorf("missed cleavages must be non-negative, got %d", cfg.MissedCleavages)
	}

	g := &Generator{protease: protease, cfg: cfg}
	lists := []struct {
		specs    []string
		terminal bool
		dst      *[]Mod
	}{
		{cfg.Fixed, false, &g.fixed},
		{cfg.Variable, false, &g.variable},
		{cfg.FixedTerminal, true, &g.fixedTerminal},
		{cfg.VariableTerminal, true, &g.variableTerminal},
		{cfg.FixedTerminalProt, true, &g.fixedTerminalProt},
		{cfg.VariableTerminalProt, true, &g.variableTerminalProt},
	}
	for _, l := range lists {
		mods, err := ParseMods(l.specs, l.terminal)
		if err != nil {
			return nil, err
		}
		*l.dst = mods
	}
	return g, nil
}

// Protease returns the configured protease.
func (g *Generator) Protease() *digest.Protease {
	return g.protease
}

// Config returns the configuration the generator was built from.
func (g *Generator) Config() Config {
	return g.cfg
}

// Generate returns the modified target peptides of sequence followed by their decoys.
// Decoys carry core.DecoySuffix.
func (g *Generator) Generate(sequence string) []string {
	proteins := AddFixedTerminal([]string{sequence}, g.fixedTerminalProt)
	proteins = AddVariableTerminal(proteins, g.variableTerminalProt)

	var cleaved []string
	for _, p := range proteins {
		cleaved = append(cleaved, g.protease.Cleave(p, g.cfg.MissedCleavages, g.cfg.MinLength, g.cfg.MaxLength)...)
	}

	targets := g.modify(cleaved)
	decoys := decoy.Tag(g.modify(decoy.Sequences(cleaved, g.cfg.Decoy)))
	return append(targets, decoys...)
}

func (g *Generator) modify(peptides []string) []string {
	peptides = AddFixed(peptides, g.fixed)
	peptides = AddFixedTerminal(peptides, g.fixedTerminal)
	peptides = AddVariableTerminal(peptides, g.variableTerminal)
	return AddVariable(peptides, g.variable, g.cfg.MaxIsoforms)
}

// GeneratePeptides is a convenience wrapper around NewGenerator and Generate.
func GeneratePeptides(sequence string, cfg Config) ([]string, error) {
	g, err := NewGenerator(cfg)
	if err != nil {
		return nil, err
	}
	return g.Generate(sequence), nil
}
