package cluster

import (
	"fmt"

	"cluster-dashboard-go/classify"
)

const (
	// UnclassifiedLabel is the label of a cluster with no students.
	UnclassifiedLabel = "Unclassified Cluster"

	// EmptySummary is the narrative summary of a cluster with no students.
	EmptySummary = "No students in this cluster."

	unknownValue = "N/A"
)

// Generator produces labels and narratives using one rule table.
type Generator struct {
	Rules classify.RuleTable
}

// NewGenerator creates a Generator bound to rules.
func NewGenerator(rules classify.RuleTable) *Generator {
	return &Generator{Rules: rules}
}

var defaultGenerator = NewGenerator(classify.DefaultRules)

// Label is Generator.Label with the default rule table.
func Label(stats Stats, clusterID *int) string {
	return defaultGenerator.Label(stats, clusterID)
}

// AreaDescriptor describes the upland share of a cluster.
func AreaDescriptor(ratio float64) string {
	switch {
	case ratio > 0.6:
		return "mostly upland"
	case ratio < 0.4:
		return "mostly lowland"
	default:
		return "mixed upland and lowland"
	}
}

// Label composes the one-line cluster name. Tiers come from the averaged GWA
// and income, not from the most common per-student tier. A nil clusterID drops
// the "(Cluster n)" suffix.
func (g *Generator) Label(stats Stats, clusterID *int) string {
	if stats.Empty() {
		return UnclassifiedLabel
	}
	label := fmt.Sprintf("%s %s students from %s areas (e.g., %s) — %d %s",
		g.Rules.HonorsTier(stats.AvgGWA),
		g.Rules.IncomeTier(stats.AvgIncome),
		AreaDescriptor(stats.AreaRatio),
		orUnknown(stats.Municipality.Mode()),
		stats.Count,
		plural(stats.Count, "student", "students"),
	)
	if clusterID != nil {
		label += fmt.Sprintf(" (Cluster %d)", *clusterID)
	}
	return label
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func orUnknown(v string) string {
	if v == "" {
		return unknownValue
	}
	return v
}
