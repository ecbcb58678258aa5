package cluster

import (
	"fmt"
	"math"
	"strconv"

	"cluster-dashboard-go/models"
	"github.com/dustin/go-humanize"
)

// Narrative is the summary and recommendation shown under a cluster.
type Narrative struct {
	Summary        string `json:"summary"`
	Recommendation string `json:"recommendation"`
}

// NarrativeInput is either DefaultInput or PairwiseInput.
type NarrativeInput interface {
	students() []models.Student
}

// DefaultInput describes a cluster on the GWA and income features.
type DefaultInput struct {
	Students []models.Student
}

// PairwiseInput describes a cluster on two caller-chosen features.
type PairwiseInput struct {
	Students []models.Student
	XFeature string
	YFeature string
}

func (in DefaultInput) students() []models.Student { return in.Students }
func (in PairwiseInput) students() []models.Student { return in.Students }

// InputFor picks the narrative variant. Pairwise is used only when requested
// and both feature names are set.
func InputFor(students []models.Student, xFeature, yFeature string, pairwise bool) NarrativeInput {
	if pairwise && xFeature != "" && yFeature != "" {
		return PairwiseInput{Students: students, XFeature: xFeature, YFeature: yFeature}
	}
	return DefaultInput{Students: students}
}

// Describe is Generator.Describe with the default rule table.
func Describe(in NarrativeInput) Narrative {
	return defaultGenerator.Describe(in)
}

// Describe renders the summary and recommendation for a cluster.
func (g *Generator) Describe(in NarrativeInput) Narrative {
	if in == nil || len(in.students()) == 0 {
		return Narrative{Summary: EmptySummary}
	}
	switch in := in.(type) {
	case PairwiseInput:
		return describePairwise(in)
	case DefaultInput:
		return describeDefault(Aggregate(in.Students))
	}
	return Narrative{Summary: EmptySummary}
}

func describeDefault(stats Stats) Narrative {
	count := fmt.Sprintf("%d %s", stats.Count, plural(stats.Count, "student", "students"))
	income := FormatIncome(stats.AvgIncome)
	program := orUnknown(stats.Program.Mode())
	municipality := orUnknown(stats.Municipality.Mode())
	sex := orUnknown(stats.Sex.Mode())

	summary := fmt.Sprintf(
		"This cluster has %s with an average GWA of %.2f and an average household income of %s. "+
			"Most are enrolled in %s, come from %s, and are predominantly %s. "+
			"The dominant honors classification is %s and the most common income bracket is %s.",
		count, stats.AvgGWA, income,
		program, municipality, sex,
		orUnknown(stats.Honors.Mode()), orUnknown(stats.IncomeCategory.Mode()),
	)
	recommendation := fmt.Sprintf(
		"Consider targeted interventions for %s students from %s: with an average household income of %s "+
			"and an average GWA of %.2f, pair financial assistance with academic support designed for the predominantly %s learners in this group.",
		program, municipality, income, stats.AvgGWA, sex,
	)
	return Narrative{Summary: summary, Recommendation: recommendation}
}

func describePairwise(in PairwiseInput) Narrative {
	n := len(in.Students)
	var sumX, sumY float64
	xLabels := make([]string, 0, n)
	yLabels := make([]string, 0, n)
	for _, s := range in.Students {
		x, xl := Projection(s, in.XFeature, s.PairX, s.PairXLabel)
		y, yl := Projection(s, in.YFeature, s.PairY, s.PairYLabel)
		sumX += x
		sumY += y
		xLabels = append(xLabels, xl)
		yLabels = append(yLabels, yl)
	}
	xName := models.FeatureDisplayName(in.XFeature)
	yName := models.FeatureDisplayName(in.YFeature)

	summary := fmt.Sprintf(
		"This cluster has %d %s. Average %s: %.2f; average %s: %.2f. Most common %s: %s; most common %s: %s.",
		n, plural(n, "student", "students"),
		xName, sumX/float64(n), yName, sumY/float64(n),
		xName, orUnknown(Tally(xLabels).Mode()), yName, orUnknown(Tally(yLabels).Mode()),
	)
	recommendation := fmt.Sprintf(
		"Try comparing %s and %s against other feature pairs to see whether this grouping holds or reveals new patterns.",
		xName, yName,
	)
	return Narrative{Summary: summary, Recommendation: recommendation}
}

// Projection returns the plotted value and display label of a student on one
// pairwise axis, falling back to the raw attribute when the service sent no projection.
func Projection(s models.Student, feature string, projected *float64, label string) (float64, string) {
	value, raw := rawFeature(s, feature)
	if projected != nil && !math.IsNaN(*projected) {
		value = *projected
	}
	if label == "" {
		label = raw
	}
	return value, label
}

// rawFeature returns a student's numeric value (0 for categorical or missing
// attributes) and display string for a feature.
func rawFeature(s models.Student, feature string) (float64, string) {
	switch feature {
	case models.FeatureGWA:
		v, ok := s.GWAValue()
		return v, formatOptional(v, ok)
	case models.FeatureIncome:
		v, ok := s.IncomeValue()
		return v, formatOptional(v, ok)
	case models.FeatureSex:
		return 0, s.Sex
	case models.FeatureProgram:
		return 0, s.Program
	case models.FeatureMunicipality:
		return 0, s.Municipality
	case models.FeatureSHSType:
		return 0, s.SHSType
	}
	return 0, ""
}

func formatOptional(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatIncome renders a peso amount with thousands separators.
func FormatIncome(v float64) string {
	if math.IsNaN(v) {
		v = 0
	}
	return "₱" + humanize.Comma(int64(math.Round(v)))
}
