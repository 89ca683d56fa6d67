// Package birdnet holds the acoustic model glue: frame windowing, the
// sensitivity transform, species label handling and the TensorFlow Lite
// interpreters for the acoustic and geographic models.
package birdnet

import "strings"

// Species is one model output class. Identity fields are immutable after
// label load; GeoScore is the only field mutated afterwards, by the geo
// fusion path, and defaults to the neutral prior 1.0.
type Species struct {
	Index               int
	ScientificName      string
	CommonName          string
	CommonNameLocalized string
	GeoScore            float64
}

// SplitSpeciesLabel splits a "ScientificName_CommonName" label line. Lines
// without a separator yield the whole line as scientific name.
func SplitSpeciesLabel(label string) (scientific, common string) {
	before, after, found := strings.Cut(label, "_")
	if !found {
		return strings.TrimSpace(label), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}

// BuildSpeciesTable builds a fresh species table from a label set. When prev
// has the same class count, geoscores carry over by index identity so a
// language change does not lose the current geographic priors; otherwise
// every class starts at the neutral prior.
func BuildSpeciesTable(labels *LabelSet, prev []Species) []Species {
	table := make([]Species, len(labels.Default))
	carry := len(prev) == len(labels.Default)
	for i, line := range labels.Default {
		sci, common := SplitSpeciesLabel(line)
		localized := common
		if i < len(labels.Localized) && labels.Localized[i] != "" {
			_, loc := SplitSpeciesLabel(labels.Localized[i])
			if loc != "" {
				localized = loc
			}
		}
		geo := 1.0
		if carry {
			geo = prev[i].GeoScore
		}
		table[i] = Species{
			Index:               i,
			ScientificName:      sci,
			CommonName:          common,
			CommonNameLocalized: localized,
			GeoScore:            geo,
		}
	}
	return table
}
