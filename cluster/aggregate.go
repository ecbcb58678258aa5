package cluster

import (
	"sort"
	"strings"

	"cluster-dashboard-go/classify"
	"cluster-dashboard-go/models"
)

// Frequency is one category and how often it occurred.
type Frequency struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// FrequencyTable lists categories in order of first occurrence.
type FrequencyTable []Frequency

// Tally counts values, skipping blanks. Entry order is first occurrence.
func Tally(values []string) FrequencyTable {
	return TallyBy(values, func(v string) string { return v })
}

// TallyBy counts values that share a key as one category, shown with the
// first spelling seen. Blank values are skipped.
func TallyBy(values []string, key func(string) string) FrequencyTable {
	index := make(map[string]int)
	var table FrequencyTable
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		k := key(v)
		if i, ok := index[k]; ok {
			table[i].Count++
			continue
		}
		index[k] = len(table)
		table = append(table, Frequency{Value: v, Count: 1})
	}
	return table
}

// Mode returns the most frequent value, or "" for an empty table. The entries
// are stably sorted by descending count, so a tie goes to the value seen first.
func (t FrequencyTable) Mode() string {
	if len(t) == 0 {
		return ""
	}
	sorted := make(FrequencyTable, len(t))
	copy(sorted, t)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})
	return sorted[0].Value
}

// Stats are the descriptive statistics of one cluster.
type Stats struct {
	Count          int            `json:"count"`
	AvgGWA         float64        `json:"avgGwa"`
	AvgIncome      float64        `json:"avgIncome"`
	Sex            FrequencyTable `json:"sex"`
	Program        FrequencyTable `json:"program"`
	Municipality   FrequencyTable `json:"municipality"`
	SHSType        FrequencyTable `json:"shsType"`
	Honors         FrequencyTable `json:"honors"`
	IncomeCategory FrequencyTable `json:"incomeCategory"`
	UplandCount    int            `json:"uplandCount"`
	LowlandCount   int            `json:"lowlandCount"`
	AreaRatio      float64        `json:"areaRatio"`
}

// Empty reports whether the cluster had no students.
func (s Stats) Empty() bool {
	return s.Count == 0
}

// Aggregate computes averages, frequency tables and upland/lowland counts.
// Missing or NaN GWA and income contribute 0 to the sum and 1 to the count.
func Aggregate(students []models.Student) Stats {
	if len(students) == 0 {
		return Stats{}
	}

	n := len(students)
	stats := Stats{Count: n}
	var sumGWA, sumIncome float64
	sex := make([]string, 0, n)
	program := make([]string, 0, n)
	municipality := make([]string, 0, n)
	shs := make([]string, 0, n)
	honors := make([]string, 0, n)
	incomeCats := make([]string, 0, n)
	for _, s := range students {
		gwa, _ := s.GWAValue()
		income, _ := s.IncomeValue()
		sumGWA += gwa
		sumIncome += income

		sex = append(sex, s.Sex)
		program = append(program, s.Program)
		municipality = append(municipality, s.Municipality)
		shs = append(shs, s.SHSType)
		honors = append(honors, s.Honors)
		incomeCats = append(incomeCats, s.IncomeCategory)

		switch classify.ClassifyArea(s.Municipality) {
		case models.AreaUpland:
			stats.UplandCount++
		case models.AreaLowland:
			stats.LowlandCount++
		}
	}

	stats.AvgGWA = sumGWA / float64(n)
	stats.AvgIncome = sumIncome / float64(n)
	stats.Sex = Tally(sex)
	stats.Program = Tally(program)
	stats.Municipality = TallyBy(municipality, classify.NormalizeMunicipality)
	stats.SHSType = Tally(shs)
	stats.Honors = Tally(honors)
	stats.IncomeCategory = Tally(incomeCats)
	stats.AreaRatio = areaRatio(stats.UplandCount, stats.LowlandCount)
	return stats
}

func areaRatio(upland, lowland int) float64 {
	total := upland + lowland
	if total == 0 {
		return 0
	}
	return float64(upland) / float64(total)
}
