package classify

import "cluster-dashboard-go/models"

// Row is the display classification of a single student.
type Row struct {
	Area       models.AreaType `json:"area"`
	Honors     string          `json:"honors"`
	Income     string          `json:"income"`
	Suggestion string          `json:"suggestion,omitempty"`
}

// ClassifyStudent derives the row-level classification. Missing GWA yields
// Unknown and missing income yields No Income Entered instead of the lowest tier.
func (t RuleTable) ClassifyStudent(s models.Student) Row {
	row := Row{
		Area:       ClassifyArea(s.Municipality),
		Honors:     models.HonorsUnknown,
		Income:     models.IncomeNotEntered,
		Suggestion: SuggestUpland(s.Municipality),
	}
	if gwa, ok := s.GWAValue(); ok {
		row.Honors = t.HonorsTier(gwa)
	}
	if income, ok := s.IncomeValue(); ok {
		row.Income = t.IncomeTier(income)
	}
	return row
}
