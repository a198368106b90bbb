// Package digest cleaves protein sequences into peptides under a protease rule.
package digest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dlclark/regexp2"
)

// ErrUnknownProtease is returned when a protease name is not in the table.
var ErrUnknownProtease = errors.New("unknown protease")

// Patterns maps protease names to cleavage regular expressions. A match marks the residue
// after which the sequence is cut. Patterns use look-around, so they are compiled with regexp2.
var Patterns = map[string]string{
	"arg-c":                         `R`,
	"asp-n":                         `\w(?=D)`,
	"bnps-skatole":                  `W`,
	"caspase 1":                     `(?<=[FWYL]\w[HAT])D(?=[^PEDQKR])`,
	"caspase 2":                     `(?<=DVA)D(?=[^PEDQKR])`,
	"caspase 3":                     `(?<=DMQ)D(?=[^PEDQKR])`,
	"caspase 4":                     `(?<=LEV)D(?=[^PEDQKR])`,
	"caspase 5":                     `(?<=[LW]EH)D`,
	"caspase 6":                     `(?<=VE[HI])D(?=[^PEDQKR])`,
	"caspase 7":                     `(?<=DEV)D(?=[^PEDQKR])`,
	"caspase 8":                     `(?<=[IL]ET)D(?=[^PEDQKR])`,
	"caspase 9":                     `(?<=LEH)D`,
	"caspase 10":                    `(?<=IEA)D`,
	"chymotrypsin high specificity": `([FY](?=[^P]))|(W(?=[^MP]))`,
	"chymotrypsin low specificity":  `([FLY](?=[^P]))|(W(?=[^MP]))|(M(?=[^PY]))|(H(?=[^DMPW]))`,
	"clostripain":                   `R`,
	"cnbr":                          `M`,
	"enterokinase":                  `(?<=[DE]{3})K`,
	"factor xa":                     `(?<=[AFGILTVM][DE]G)R`,
	"formic acid":                   `D`,
	"glutamyl endopeptidase":        `E`,
	"granzyme b":                    `(?<=IEP)D`,
	"hydroxylamine":                 `N(?=G)`,
	"iodosobenzoic acid":            `W`,
	"lysc":                          `K`,
	"lys-c":                         `K`,
	"ntcb":                          `\w(?=C)`,
	"proline endopeptidase":         `(?<=[HKR])P(?=[^P])`,
	"staphylococcal peptidase i":    `(?<=[^E])E`,
	"thermolysin":                   `[^DE](?=[AFILMV])`,
	"thrombin":                      `((?<=G)R(?=G))|((?<=[AFGILTVM][AFGILTVWA]P)R(?=[^DE][^DE]))`,
	"trypsin_full":                  `([KR](?=[^P]))|((?<=W)K(?=P))|((?<=M)R(?=P))`,
	"trypsin_exception":             `((?<=[CD])K(?=D))|((?<=C)K(?=[HY]))|((?<=C)R(?=K))|((?<=R)R(?=[HR]))`,
	"non-specific":                  `()`,
	"trypsin":                       `([KR](?=[^P]))`,
	"trypsin/p":                     `([KR])`,
}

// Protease is a compiled cleavage rule.
type Protease struct {
	Name    string
	Pattern string
	re      *regexp2.Regexp
}

var (
	compiledMu sync.Mutex
	compiled   = map[string]*Protease{}
)

// Lookup returns the compiled protease for name (case-insensitive).
func Lookup(name string) (*Protease, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	compiledMu.Lock()
	defer compiledMu.Unlock()

	if p, ok := compiled[key]; ok {
		return p, nil
	}
	pattern, ok := Patterns[key]
	if !ok {
		return nil, fmt.Errorf("%w '%s', must be one of: %s", ErrUnknownProtease, name, strings.Join(Names(), ", "))
	}
	p, err := NewProtease(key, pattern)
	if err != nil {
		return nil, err
	}
	compiled[key] = p
	return p, nil
}

// NewProtease compiles a custom cleavage pattern.
func NewProtease(name, pattern string) (*Protease, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("invalid cleavage pattern for %s: %w", name, err)
	}
	return &Protease{Name: name, Pattern: pattern, re: re}, nil
}

// Names returns the known protease names in sorted order.
func Names() []string {
	names := make([]string, 0, len(Patterns))
	for n := range Patterns {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// sites returns the start index of every pattern match in s.
func (p *Protease) sites(s string) []int {
	var starts []int
	m, err := p.re.FindStringMatch(s)
	for err == nil && m != nil {
		starts = append(starts, m.Index)
		m, err = p.re.FindNextMatch(m)
	}
	return starts
}
