// Package catalog matches inexact product identifiers against case studies using
// a declarative table of product-family aliases.
package catalog

import (
	"sort"
	"strings"
)

// AliasPair names two substring tokens that designate the same product family.
type AliasPair struct {
	A string
	B string
}

// DefaultProductFamilies are the shipped product-family synonyms. Adding a family
// is a data change here, not a code change.
var DefaultProductFamilies = []AliasPair{
	{A: "ot-series", B: "shoebox-ot"},
	{A: "ufo-high-bay", B: "ufo-hb"},
	{A: "wall-pack", B: "wallpack"},
	{A: "linear-high-bay", B: "lhb"},
	{A: "corn-bulb", B: "corn-lamp"},
}

// AliasTable maps a token to every token in its family, itself included.
// Registration is symmetric. The zero value is not usable; call NewAliasTable.
type AliasTable struct {
	families map[string]map[string]struct{}
}

// NewAliasTable builds a table from pairs.
func NewAliasTable(pairs ...AliasPair) *AliasTable {
	t := &AliasTable{families: make(map[string]map[string]struct{})}
	for _, p := range pairs {
		t.Add(p.A, p.B)
	}
	return t
}

// Add registers a and b as synonyms in both directions.
func (t *AliasTable) Add(a, b string) {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" {
		return
	}
	for _, tok := range []string{a, b} {
		if t.families[tok] == nil {
			t.families[tok] = map[string]struct{}{tok: {}}
		}
	}
	t.families[a][b] = struct{}{}
	t.families[b][a] = struct{}{}
}

// Aliases returns the tokens registered for token, sorted, including token itself.
func (t *AliasTable) Aliases(token string) []string {
	family := t.families[normalize(token)]
	out := make([]string, 0, len(family))
	for tok := range family {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Match reports whether candidate answers a request for requested. Identifiers
// match when equal ignoring case, or when requested contains a registered token
// and candidate contains one of that token's aliases. Nothing else matches:
// there is no partial similarity.
func (t *AliasTable) Match(requested, candidate string) bool {
	requested, candidate = normalize(requested), normalize(candidate)
	if requested == "" || candidate == "" {
		return false
	}
	if requested == candidate {
		return true
	}
	for source, targets := range t.families {
		if !strings.Contains(requested, source) {
			continue
		}
		for target := range targets {
			if strings.Contains(candidate, target) {
				return true
			}
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
