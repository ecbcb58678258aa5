package orchestrator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cluster-dashboard-go/cluster"
	"cluster-dashboard-go/clustering"
	"cluster-dashboard-go/models"
)

func fromOfficial(resp *clustering.OfficialResponse) (*models.ClusterDataset, error) {
	clusters := make(map[int][]models.Student, len(resp.Clusters))
	for key, students := range resp.Clusters {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || id < 0 {
			return nil, fmt.Errorf("invalid cluster id %q in official response", key)
		}
		clusters[id] = students
	}
	ds := &models.ClusterDataset{
		Mode:      models.ModeOfficial,
		K:         resp.K,
		Clusters:  clusters,
		Order:     sortedIDs(clusters),
		Centroids: toPoints(resp.Centroids),
		XAxis:     models.Axis{Name: models.FeatureDisplayName(models.FeatureGWA)},
		YAxis:     models.Axis{Name: models.FeatureDisplayName(models.FeatureIncome)},
		XFeature:  models.FeatureGWA,
		YFeature:  models.FeatureIncome,
	}
	if ds.K == 0 {
		ds.K = len(clusters)
	}
	for _, id := range ds.Order {
		for _, s := range clusters[id] {
			ds.Points = append(ds.Points, gwaIncomePoint(s, id))
		}
	}
	return ds, nil
}

func fromPlayground(resp *clustering.PlaygroundResponse, k int) *models.ClusterDataset {
	ds := &models.ClusterDataset{
		Mode:      models.ModePlayground,
		K:         k,
		Clusters:  groupByCluster(resp.Students),
		Centroids: toPoints(resp.Centroids),
		XAxis:     models.Axis{Name: models.FeatureDisplayName(models.FeatureGWA)},
		YAxis:     models.Axis{Name: models.FeatureDisplayName(models.FeatureIncome)},
		XFeature:  models.FeatureGWA,
		YFeature:  models.FeatureIncome,
	}
	ds.Order = sortedIDs(ds.Clusters)
	for _, s := range resp.Students {
		if s.Cluster == nil || *s.Cluster < 0 {
			continue
		}
		ds.Points = append(ds.Points, gwaIncomePoint(s, *s.Cluster))
	}
	return ds
}

func fromPairwise(resp *clustering.PairwiseResponse, x, y string, k int) *models.ClusterDataset {
	ds := &models.ClusterDataset{
		Mode:      models.ModePairwise,
		K:         resp.K,
		Clusters:  groupByCluster(resp.Students),
		Centroids: toPoints(resp.Centroids),
		XAxis:     models.Axis{Name: firstNonEmpty(resp.XName, models.FeatureDisplayName(x)), Categories: resp.XCategories},
		YAxis:     models.Axis{Name: firstNonEmpty(resp.YName, models.FeatureDisplayName(y)), Categories: resp.YCategories},
		XFeature:  x,
		YFeature:  y,
	}
	if ds.K == 0 {
		ds.K = k
	}
	ds.Order = sortedIDs(ds.Clusters)
	for _, s := range resp.Students {
		if s.Cluster == nil || *s.Cluster < 0 {
			continue
		}
		xv, xl := cluster.Projection(s, x, s.PairX, s.PairXLabel)
		yv, yl := cluster.Projection(s, y, s.PairY, s.PairYLabel)
		ds.Points = append(ds.Points, models.PlotPoint{
			X:         xv,
			Y:         yv,
			Cluster:   *s.Cluster,
			StudentID: s.ID,
			Hover:     hoverText(s, ds.XAxis.Name, orDash(xl), ds.YAxis.Name, orDash(yl)),
		})
	}
	return ds
}

// groupByCluster keeps response order within each cluster. Students without
// a cluster assignment are left out.
func groupByCluster(students []models.Student) map[int][]models.Student {
	clusters := make(map[int][]models.Student)
	for _, s := range students {
		if s.Cluster == nil || *s.Cluster < 0 {
			continue
		}
		clusters[*s.Cluster] = append(clusters[*s.Cluster], s)
	}
	return clusters
}

func sortedIDs(clusters map[int][]models.Student) []int {
	ids := make([]int, 0, len(clusters))
	for id := range clusters {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// toPoints keeps centroid indices aligned with cluster ids; short entries fill with 0.
func toPoints(raw [][]float64) []models.Point {
	points := make([]models.Point, len(raw))
	for i, c := range raw {
		if len(c) > 0 {
			points[i].X = c[0]
		}
		if len(c) > 1 {
			points[i].Y = c[1]
		}
	}
	return points
}

func gwaIncomePoint(s models.Student, id int) models.PlotPoint {
	gwa, gwaOK := s.GWAValue()
	income, incomeOK := s.IncomeValue()
	gwaText, incomeText := "not entered", "not entered"
	if gwaOK {
		gwaText = strconv.FormatFloat(gwa, 'f', 2, 64)
	}
	if incomeOK {
		incomeText = cluster.FormatIncome(income)
	}
	return models.PlotPoint{
		X:         gwa,
		Y:         income,
		Cluster:   id,
		StudentID: s.ID,
		Hover:     hoverText(s, "GWA", gwaText, "Income", incomeText),
	}
}

func hoverText(s models.Student, xName, xValue, yName, yValue string) string {
	return fmt.Sprintf("%s<br>Program: %s<br>Municipality: %s<br>%s: %s<br>%s: %s",
		orDash(s.FullName()), orDash(s.Program), orDash(s.Municipality), xName, xValue, yName, yValue)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
