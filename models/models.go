package models

import "math"

// Mode selects which clustering run a dataset belongs to
type Mode string

const (
	ModeOfficial   Mode = "official"
	ModePlayground Mode = "playground"
	ModePairwise   Mode = "pairwise"
)

// Valid reports whether m is one of the three analysis modes
func (m Mode) Valid() bool {
	switch m {
	case ModeOfficial, ModePlayground, ModePairwise:
		return true
	}
	return false
}

// AreaType is the geographic classification of a municipality
type AreaType string

const (
	AreaUpland                AreaType = "Upland"
	AreaLowland               AreaType = "Lowland"
	AreaNoMunicipalityEntered AreaType = "No Municipality Entered"
)

// Honors tiers, highest first
const (
	HonorsHighest = "With Highest Honors"
	HonorsHigh    = "With High Honors"
	HonorsWith    = "With Honors"
	HonorsAverage = "Average"
	HonorsUnknown = "Unknown" // per-student only, GWA not entered
)

// Income tiers, lowest first
const (
	IncomePoor         = "Poor"
	IncomeLow          = "Low-Income"
	IncomeLowerMiddle  = "Lower-Middle"
	IncomeMiddleMiddle = "Middle-Middle"
	IncomeUpperMiddle  = "Upper-Middle"
	IncomeUpper        = "Upper-Income"
	IncomeRich         = "Rich"
	IncomeNotEntered   = "No Income Entered"
)

// Student represents one learner as returned by the clustering service.
// GWA and Income are nil (or negative) when the value was never entered.
type Student struct {
	ID             string   `json:"id"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	Sex            string   `json:"sex"`
	Program        string   `json:"program"`
	Municipality   string   `json:"municipality"`
	SHSType        string   `json:"shs_type"`
	GWA            *float64 `json:"GWA"`
	Income         *float64 `json:"income"`
	Honors         string   `json:"Honors"`
	IncomeCategory string   `json:"IncomeCategory"`
	Cluster        *int     `json:"Cluster,omitempty"`

	// Pairwise projections
	PairX      *float64 `json:"pair_x,omitempty"`
	PairY      *float64 `json:"pair_y,omitempty"`
	PairXLabel string   `json:"pair_x_label,omitempty"`
	PairYLabel string   `json:"pair_y_label,omitempty"`
}

// FullName joins first and last name
func (s Student) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// GWAValue returns the GWA and whether it was entered
func (s Student) GWAValue() (float64, bool) {
	return present(s.GWA)
}

// IncomeValue returns the household income and whether it was entered
func (s Student) IncomeValue() (float64, bool) {
	return present(s.Income)
}

func present(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || *v < 0 {
		return 0, false
	}
	return *v, true
}

// Point is a coordinate pair on the plot
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlotPoint is one student on the scatter plot
type PlotPoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Cluster   int     `json:"cluster"`
	StudentID string  `json:"studentId"`
	Hover     string  `json:"hover"`
}

// Axis describes one plotted dimension
type Axis struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories,omitempty"` // tick labels for categorical axes
}

// ClusterDataset is the result of one clustering run
type ClusterDataset struct {
	RunID     string            `json:"runId"`
	Mode      Mode              `json:"mode"`
	K         int               `json:"k"`
	Clusters  map[int][]Student `json:"clusters"`
	Order     []int             `json:"order"` // cluster ids ascending
	Centroids []Point           `json:"centroids"`
	Points    []PlotPoint       `json:"points"`
	XAxis     Axis              `json:"xAxis"`
	YAxis     Axis              `json:"yAxis"`
	XFeature  string            `json:"xFeature,omitempty"`
	YFeature  string            `json:"yFeature,omitempty"`
}

// Empty reports whether the run produced no clusters
func (d *ClusterDataset) Empty() bool {
	return d == nil || len(d.Clusters) == 0
}

// Centroid returns the centroid for a cluster id when the service emitted one
func (d *ClusterDataset) Centroid(id int) (Point, bool) {
	if d == nil || id < 0 || id >= len(d.Centroids) {
		return Point{}, false
	}
	return d.Centroids[id], true
}

// Pairwise feature names accepted by the clustering service
const (
	FeatureGWA          = "GWA"
	FeatureIncome       = "income"
	FeatureSex          = "sex"
	FeatureProgram      = "program"
	FeatureMunicipality = "municipality"
	FeatureSHSType      = "shs_type"
)

// Features lists the allowed pairwise features in display order
var Features = []string{FeatureGWA, FeatureIncome, FeatureSex, FeatureProgram, FeatureMunicipality, FeatureSHSType}

// ValidFeature reports whether name is an allowed pairwise feature
func ValidFeature(name string) bool {
	for _, f := range Features {
		if f == name {
			return true
		}
	}
	return false
}

// FeatureDisplayName returns the human-readable axis name for a feature
func FeatureDisplayName(name string) string {
	switch name {
	case FeatureGWA:
		return "GWA"
	case FeatureIncome:
		return "Income"
	case FeatureSex:
		return "Sex"
	case FeatureProgram:
		return "Program"
	case FeatureMunicipality:
		return "Municipality"
	case FeatureSHSType:
		return "SHS Type"
	}
	return name
}
