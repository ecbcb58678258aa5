package orchestrator

import (
	"cluster-dashboard-go/cluster"
	"cluster-dashboard-go/models"
)

// ClusterView is everything the dashboard shows for one cluster.
type ClusterView struct {
	ID        int               `json:"id"`
	Label     string            `json:"label"`
	Narrative cluster.Narrative `json:"narrative"`
	Stats     cluster.Stats     `json:"stats"`
	Centroid  *models.Point     `json:"centroid,omitempty"`
	Students  []models.Student  `json:"students"`
}

// BuildViews labels and describes every cluster of ds in ascending id order.
// A cluster without a centroid gets a nil Centroid; labelling does not depend
// on centroids. Playground labels carry no "(Cluster n)" suffix.
func BuildViews(gen *cluster.Generator, ds *models.ClusterDataset) []ClusterView {
	if ds.Empty() {
		return []ClusterView{}
	}
	order := ds.Order
	if len(order) != len(ds.Clusters) {
		order = sortedIDs(ds.Clusters)
	}
	views := make([]ClusterView, 0, len(order))
	for _, id := range order {
		students := ds.Clusters[id]
		stats := cluster.Aggregate(students)

		var labelID *int
		if ds.Mode != models.ModePlayground {
			id := id
			labelID = &id
		}

		view := ClusterView{
			ID:        id,
			Label:     gen.Label(stats, labelID),
			Narrative: gen.Describe(cluster.InputFor(students, ds.XFeature, ds.YFeature, ds.Mode == models.ModePairwise)),
			Stats:     stats,
			Students:  students,
		}
		if c, ok := ds.Centroid(id); ok {
			view.Centroid = &c
		}
		views = append(views, view)
	}
	return views
}
