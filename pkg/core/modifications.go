// Package core provides modification parsing and management
package core

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ModDatabase stores modification definitions keyed by their sequence tag.
// Tags are the lowercase prefixes written in front of a residue, e.g. "ox" in "oxM".
type ModDatabase struct {
	mods map[string]float64 // tag -> mass shift
}

// NewModDatabase creates an empty modification database
func NewModDatabase() *ModDatabase {
	return &ModDatabase{
		mods: make(map[string]float64),
	}
}

// LoadFromCSV loads modifications from a CSV file (format: tag,massshift[,description])
func (db *ModDatabase) LoadFromCSV(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	// Skip header line
	if scanner.Scan() {
		// header line
	}

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			return fmt.Errorf("line %d: invalid format, expected at least 2 comma-separated fields", lineNum)
		}

		tag := strings.TrimSpace(parts[0])
		massStr := strings.TrimSpace(parts[1])

		if !IsModTag(tag) {
			return fmt.Errorf("line %d: modification tag '%s' must be lowercase letters", lineNum, tag)
		}

		mass, err := strconv.ParseFloat(massStr, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid mass value '%s': %w", lineNum, massStr, err)
		}

		db.mods[tag] = mass
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading CSV: %w", err)
	}

	return nil
}

// GetMass returns the mass shift for a modification tag
func (db *ModDatabase) GetMass(tag string) (float64, bool) {
	mass, ok := db.mods[tag]
	return mass, ok
}

// Add adds or updates a modification
func (db *ModDatabase) Add(tag string, mass float64) {
	db.mods[tag] = mass
}

// Len returns the number of registered modifications
func (db *ModDatabase) Len() int {
	return len(db.mods)
}

// longestTag finds the longest registered tag that prefixes s
func (db *ModDatabase) longestTag(s string) (string, float64, bool) {
	for n := len(s); n > 0; n-- {
		if mass, ok := db.mods[s[:n]]; ok {
			return s[:n], mass, true
		}
	}
	return "", 0, false
}

// IsModTag reports whether s is a usable modification tag (non-empty, lowercase a-z)
func IsModTag(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// DefaultModDatabase returns a ModDatabase pre-loaded with common modifications
func DefaultModDatabase() *ModDatabase {
	db := NewModDatabase()

	// Common modifications from unimod, tagged the way peptides are written
	db.Add("a", 42.010565)       // Acetyl
	db.Add("am", -0.984016)      // Amidated
	db.Add("c", 57.021464)       // Carbamidomethyl
	db.Add("cm", 58.005479)      // Carboxymethyl
	db.Add("cam", 43.005814)     // Carbamyl
	db.Add("deam", 0.984016)     // Deamidated
	db.Add("ox", 15.994915)      // Oxidation
	db.Add("p", 79.966331)       // Phospho
	db.Add("pg", -17.026549)     // Gln->pyro-Glu
	db.Add("pge", -18.010565)    // Glu->pyro-Glu
	db.Add("me", 14.01565)       // Methyl
	db.Add("dime", 28.0313)      // Dimethyl
	db.Add("trime", 42.04695)    // Trimethyl
	db.Add("hex", 162.052824)    // Hex
	db.Add("hexnac", 203.079373) // HexNAc
	db.Add("prop", 56.026215)    // Propionyl
	db.Add("tmt", 229.162932)    // TMT6plex
	db.Add("tmtpro", 304.207146) // TMTPro
	db.Add("itraq", 144.102063)  // iTRAQ4plex
	db.Add("gg", 114.042927)     // GlyGly

	return db
}
