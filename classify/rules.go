package classify

import (
	"errors"
	"fmt"
	"math"
	"os"

	"cluster-dashboard-go/models"
	"gopkg.in/yaml.v3"
)

// Threshold pairs a bound with the tier it selects.
type Threshold struct {
	Bound float64 `yaml:"bound" json:"bound"`
	Tier  string  `yaml:"tier" json:"tier"`
}

// RuleTable is the versioned threshold table shared with the clustering service.
//
// Honors entries are inclusive lower bounds in descending order; the first bound
// the GWA reaches wins, otherwise HonorsDefault applies. Income entries are
// exclusive upper bounds in ascending order; the first bound the income stays
// below wins, otherwise IncomeTop applies.
type RuleTable struct {
	Version       string      `yaml:"version" json:"version"`
	Honors        []Threshold `yaml:"honors" json:"honors"`
	HonorsDefault string      `yaml:"honors_default" json:"honorsDefault"`
	Income        []Threshold `yaml:"income" json:"income"`
	IncomeTop     string      `yaml:"income_top" json:"incomeTop"`
}

// DefaultRules mirrors the server-side classifier.
var DefaultRules = RuleTable{
	Version: "2024.1",
	Honors: []Threshold{
		{Bound: 98, Tier: models.HonorsHighest},
		{Bound: 95, Tier: models.HonorsHigh},
		{Bound: 90, Tier: models.HonorsWith},
	},
	HonorsDefault: models.HonorsAverage,
	Income: []Threshold{
		{Bound: 12030, Tier: models.IncomePoor},
		{Bound: 24060, Tier: models.IncomeLow},
		{Bound: 48120, Tier: models.IncomeLowerMiddle},
		{Bound: 84210, Tier: models.IncomeMiddleMiddle},
		{Bound: 144360, Tier: models.IncomeUpperMiddle},
		{Bound: 240600, Tier: models.IncomeUpper},
	},
	IncomeTop: models.IncomeRich,
}

// Validate checks that both threshold lists are non-empty and strictly ordered.
func (t RuleTable) Validate() error {
	if len(t.Honors) == 0 || len(t.Income) == 0 {
		return errors.New("rule table needs at least one honors and one income threshold")
	}
	if t.HonorsDefault == "" || t.IncomeTop == "" {
		return errors.New("rule table needs honors_default and income_top")
	}
	for i := 1; i < len(t.Honors); i++ {
		if t.Honors[i].Bound >= t.Honors[i-1].Bound {
			return fmt.Errorf("honors thresholds must descend: %v after %v", t.Honors[i].Bound, t.Honors[i-1].Bound)
		}
	}
	for i := 1; i < len(t.Income); i++ {
		if t.Income[i].Bound <= t.Income[i-1].Bound {
			return fmt.Errorf("income thresholds must ascend: %v after %v", t.Income[i].Bound, t.Income[i-1].Bound)
		}
	}
	return nil
}

// LoadRuleTable reads a rule table from a YAML file and validates it.
func LoadRuleTable(filename string) (RuleTable, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return RuleTable{}, fmt.Errorf("failed to read rule table: %w", err)
	}
	var t RuleTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return RuleTable{}, fmt.Errorf("failed to parse rule table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return RuleTable{}, fmt.Errorf("invalid rule table %s: %w", filename, err)
	}
	return t, nil
}

// HonorsTier buckets an average GWA. NaN counts as 0.
func (t RuleTable) HonorsTier(gwa float64) string {
	gwa = sanitize(gwa)
	for _, th := range t.Honors {
		if gwa >= th.Bound {
			return th.Tier
		}
	}
	return t.HonorsDefault
}

// IncomeTier buckets an average household income. NaN counts as 0.
func (t RuleTable) IncomeTier(income float64) string {
	income = sanitize(income)
	for _, th := range t.Income {
		if income < th.Bound {
			return th.Tier
		}
	}
	return t.IncomeTop
}

// ClassifyHonors applies DefaultRules.
func ClassifyHonors(gwa float64) string {
	return DefaultRules.HonorsTier(gwa)
}

// ClassifyIncome applies DefaultRules.
func ClassifyIncome(income float64) string {
	return DefaultRules.IncomeTier(income)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
