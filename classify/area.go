package classify

import (
	"regexp"
	"strings"

	"cluster-dashboard-go/models"
	"github.com/agnivade/levenshtein"
)

// Upland municipalities of Ilocos Sur
var ilocosSurUpland = []string{
	"Alilem", "Banayoyo", "Burgos", "Cervantes", "Galimuyod", "Gregorio del Pilar", "Lidlidda",
	"Nagbukel", "Quirino", "Salcedo", "San Emilio", "Sigay", "Sugpon", "Suyo",
}

// Upland municipalities of Ilocos Norte
var ilocosNorteUpland = []string{
	"Adams", "Banna", "Burgos", "Carasi", "Dumalneg", "Nueva Era", "Solsona",
}

// uplandSet holds normalized names; Burgos appears in both provinces and collapses to one entry.
var uplandSet = func() map[string]string {
	set := make(map[string]string, len(ilocosSurUpland)+len(ilocosNorteUpland))
	for _, list := range [][]string{ilocosSurUpland, ilocosNorteUpland} {
		for _, name := range list {
			set[NormalizeMunicipality(name)] = name
		}
	}
	return set
}()

var (
	santaPrefix = regexp.MustCompile(`^sta\b\.?\s*`)
	santoPrefix = regexp.MustCompile(`^sto\b\.?\s*`)
	spaces      = regexp.MustCompile(`\s+`)
)

// NormalizeMunicipality lowercases, trims, collapses inner whitespace and expands
// the "Sta."/"Sto." abbreviations to "santa "/"santo ".
func NormalizeMunicipality(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = spaces.ReplaceAllString(n, " ")
	n = santaPrefix.ReplaceAllString(n, "santa ")
	n = santoPrefix.ReplaceAllString(n, "santo ")
	return strings.TrimSpace(n)
}

// ClassifyArea maps a municipality name to Upland, Lowland or NoMunicipalityEntered.
func ClassifyArea(municipality string) models.AreaType {
	n := NormalizeMunicipality(municipality)
	if n == "" {
		return models.AreaNoMunicipalityEntered
	}
	if _, ok := uplandSet[n]; ok {
		return models.AreaUpland
	}
	return models.AreaLowland
}

// UplandMunicipalities returns the distinct upland reference names in listing order.
func UplandMunicipalities() []string {
	seen := make(map[string]bool, len(uplandSet))
	out := make([]string, 0, len(uplandSet))
	for _, list := range [][]string{ilocosSurUpland, ilocosNorteUpland} {
		for _, name := range list {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

const maxSuggestDistance = 1

// SuggestUpland returns the closest upland reference name when municipality is not
// itself upland but lies within a small edit distance of one. It never changes the
// classification and returns "" when there is nothing worth suggesting.
func SuggestUpland(municipality string) string {
	n := NormalizeMunicipality(municipality)
	if n == "" {
		return ""
	}
	if _, ok := uplandSet[n]; ok {
		return ""
	}
	best, bestDist := "", maxSuggestDistance+1
	for _, name := range UplandMunicipalities() {
		d := levenshtein.ComputeDistance(n, NormalizeMunicipality(name))
		if d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}
