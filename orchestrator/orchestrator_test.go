package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cluster-dashboard-go/classify"
	"cluster-dashboard-go/cluster"
	"cluster-dashboard-go/clustering"
	"cluster-dashboard-go/db"
	"cluster-dashboard-go/models"
	"cluster-dashboard-go/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestReduce(t *testing.T) {
	start := DefaultViewState()

	tr, err := Reduce(start, SetMode{Mode: models.ModeOfficial})
	require.NoError(t, err)
	assert.False(t, tr.Fetch)
	assert.Equal(t, models.Mode(""), tr.Discard)

	tr, err = Reduce(start, SetMode{Mode: models.ModePairwise})
	require.NoError(t, err)
	assert.True(t, tr.Fetch)
	assert.Equal(t, models.ModeOfficial, tr.Discard)
	assert.Equal(t, models.ModePairwise, tr.State.Mode)
	assert.Equal(t, models.ModeOfficial, start.Mode, "reducers never mutate their input")

	pairwise := tr.State
	tr, err = Reduce(pairwise, SetK{K: 5})
	require.NoError(t, err)
	assert.True(t, tr.Fetch)
	assert.True(t, tr.State.KOverridden)

	tr, err = Reduce(tr.State, SetK{K: 5})
	require.NoError(t, err)
	assert.False(t, tr.Fetch, "unchanged k does not re-run")

	tr, err = Reduce(pairwise, SetFeatures{X: models.FeatureSex, Y: models.FeatureProgram})
	require.NoError(t, err)
	assert.True(t, tr.Fetch)
	tr, err = Reduce(tr.State, SetFeatures{X: models.FeatureSex, Y: models.FeatureProgram})
	require.NoError(t, err)
	assert.False(t, tr.Fetch)

	tr, err = Reduce(start, SetK{K: 7})
	require.NoError(t, err)
	assert.False(t, tr.Fetch, "official mode does not re-run on k change")
	assert.Equal(t, 7, tr.State.K)
}

func TestReduceRejectsInvalidActions(t *testing.T) {
	start := DefaultViewState()
	for _, action := range []Action{
		SetK{K: 1},
		SetK{K: 11},
		SetMode{Mode: "sandbox"},
		SetFeatures{X: "height", Y: models.FeatureGWA},
		SetFeatures{X: models.FeatureGWA, Y: models.FeatureGWA},
	} {
		tr, err := Reduce(start, action)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValidation), "%#v", action)
		assert.Equal(t, start, tr.State)
	}
}

func TestAdoptK(t *testing.T) {
	s := DefaultViewState()
	tr, _ := Reduce(s, adoptK{K: 4})
	assert.Equal(t, 4, tr.State.K)

	s.KOverridden = true
	tr, _ = Reduce(s, adoptK{K: 4})
	assert.Equal(t, DefaultK, tr.State.K)
}

func officialResponse() *clustering.OfficialResponse {
	return &clustering.OfficialResponse{
		Clusters: map[string][]models.Student{
			"0": {testutil.Student("a", "Vigan", 91, 20000, 0), testutil.Student("b", "Vigan", 93, 30000, 0)},
			"1": {testutil.Student("c", "Alilem", 85, 9000, 1)},
		},
		Centroids: [][]float64{{92, 25000}, {85, 9000}},
		K:         4,
	}
}

func TestRunOfficialAdoptsServerK(t *testing.T) {
	svc := &testutil.FakeService{OfficialFunc: func(ctx context.Context) (*clustering.OfficialResponse, error) {
		return officialResponse(), nil
	}}
	o := New(svc, db.NewMemoryStore(), nil)

	res, err := o.Refresh(context.Background())
	require.NoError(t, err)
	require.True(t, res.Applied)
	assert.Equal(t, 4, o.State().K)

	ds := res.Dataset
	assert.NotEmpty(t, ds.RunID)
	assert.Equal(t, []int{0, 1}, ds.Order)
	assert.Len(t, ds.Points, 3)
	assert.Equal(t, "a", ds.Clusters[0][0].ID)
	assert.Equal(t, models.Point{X: 85, Y: 9000}, ds.Centroids[1])
	assert.Contains(t, ds.Points[0].Hover, "Student a")
	assert.Contains(t, ds.Points[0].Hover, "Income: ₱20,000")
}

func TestRunOfficialKeepsOverriddenK(t *testing.T) {
	svc := &testutil.FakeService{OfficialFunc: func(ctx context.Context) (*clustering.OfficialResponse, error) {
		return officialResponse(), nil
	}}
	o := New(svc, db.NewMemoryStore(), nil)
	_, _, err := o.Dispatch(context.Background(), SetK{K: 6})
	require.NoError(t, err)

	_, err = o.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, o.State().K)
}

func TestRunPlaygroundReshapes(t *testing.T) {
	svc := &testutil.FakeService{PlaygroundFunc: func(ctx context.Context, k int) (*clustering.PlaygroundResponse, error) {
		assert.Equal(t, 3, k)
		return &clustering.PlaygroundResponse{
			Students: []models.Student{
				testutil.Student("a", "Vigan", 91, 20000, 1),
				testutil.Student("b", "Suyo", 88, 10000, 0),
				testutil.Student("c", "Vigan", 95, 60000, 1),
				{ID: "unassigned"},
			},
			Centroids: [][]float64{{88, 10000}},
		}, nil
	}}
	o := New(svc, db.NewMemoryStore(), nil)
	state := DefaultViewState()
	state.Mode = models.ModePlayground

	res, err := o.Run(context.Background(), state)
	require.NoError(t, err)
	ds := res.Dataset
	assert.Equal(t, 3, ds.K)
	assert.Equal(t, []int{0, 1}, ds.Order)
	require.Len(t, ds.Clusters[1], 2)
	assert.Equal(t, "a", ds.Clusters[1][0].ID)
	assert.Equal(t, "c", ds.Clusters[1][1].ID)
	require.Len(t, ds.Points, 3)
	assert.Equal(t, 91.0, ds.Points[0].X)
	assert.Equal(t, 20000.0, ds.Points[0].Y)
}

func TestRunPairwiseUsesProjections(t *testing.T) {
	svc := &testutil.FakeService{PairwiseFunc: func(ctx context.Context, x, y string, k int) (*clustering.PairwiseResponse, error) {
		s := testutil.Student("a", "Vigan", 91, 20000, 0)
		s.PairX, s.PairY = testutil.Float(1), testutil.Float(2)
		s.PairXLabel, s.PairYLabel = "Female", "BSIT"
		return &clustering.PairwiseResponse{
			Students:    []models.Student{s},
			Centroids:   [][]float64{{1, 2}},
			XName:       "Sex",
			YName:       "Program",
			XCategories: []string{"Male", "Female"},
			YCategories: []string{"BSCS", "BSIT"},
		}, nil
	}}
	o := New(svc, db.NewMemoryStore(), nil)
	state := DefaultViewState()
	state.Mode, state.XFeature, state.YFeature = models.ModePairwise, models.FeatureSex, models.FeatureProgram

	res, err := o.Run(context.Background(), state)
	require.NoError(t, err)
	ds := res.Dataset
	assert.Equal(t, DefaultK, ds.K)
	assert.Equal(t, models.Axis{Name: "Sex", Categories: []string{"Male", "Female"}}, ds.XAxis)
	require.Len(t, ds.Points, 1)
	assert.Equal(t, 1.0, ds.Points[0].X)
	assert.Equal(t, 2.0, ds.Points[0].Y)
	assert.Contains(t, ds.Points[0].Hover, "Sex: Female")

	views := BuildViews(cluster.NewGenerator(classify.DefaultRules), ds)
	require.Len(t, views, 1)
	assert.Contains(t, views[0].Narrative.Summary, "Most common Sex: Female")
}

func TestRunLocalValidation(t *testing.T) {
	svc := &testutil.FakeService{}
	o := New(svc, db.NewMemoryStore(), nil)
	state := DefaultViewState()
	state.Mode, state.K = models.ModePlayground, 11

	_, err := o.Run(context.Background(), state)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, 0, svc.CallCount())
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    error
		message string
	}{
		{"server validation", &clustering.StatusError{StatusCode: 400, Message: "k too large"}, ErrValidation, "k too large"},
		{"server failure", &clustering.StatusError{StatusCode: 503}, ErrTransport, "clustering service returned 503"},
		{"network", errors.New("connection refused"), ErrTransport, "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &testutil.FakeService{PlaygroundFunc: func(ctx context.Context, k int) (*clustering.PlaygroundResponse, error) {
				return nil, tt.err
			}}
			o := New(svc, db.NewMemoryStore(), nil)
			state := DefaultViewState()
			state.Mode = models.ModePlayground

			_, err := o.Run(context.Background(), state)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind))
			var re *RunError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.message, re.Message())

			slot, ok, err := o.Current(context.Background(), models.ModePlayground)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.message, slot.Error)
			assert.Nil(t, slot.Dataset)
		})
	}
}

func TestOfficialFailureKeepsPreviousDataset(t *testing.T) {
	fail := false
	svc := &testutil.FakeService{OfficialFunc: func(ctx context.Context) (*clustering.OfficialResponse, error) {
		if fail {
			return nil, errors.New("timeout")
		}
		return officialResponse(), nil
	}}
	o := New(svc, db.NewMemoryStore(), nil)
	first, err := o.Refresh(context.Background())
	require.NoError(t, err)

	fail = true
	_, err = o.Refresh(context.Background())
	require.Error(t, err)

	slot, ok, err := o.Current(context.Background(), models.ModeOfficial)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "timeout", slot.Error)
	require.NotNil(t, slot.Dataset)
	assert.Equal(t, first.Dataset.RunID, slot.Dataset.RunID)
}

func TestEmptyResultIsNotAnError(t *testing.T) {
	o := New(&testutil.FakeService{}, db.NewMemoryStore(), nil)
	res, err := o.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Dataset.Empty())
	assert.Empty(t, BuildViews(cluster.NewGenerator(classify.DefaultRules), res.Dataset))
}

func TestInvalidOfficialClusterID(t *testing.T) {
	svc := &testutil.FakeService{OfficialFunc: func(ctx context.Context) (*clustering.OfficialResponse, error) {
		return &clustering.OfficialResponse{Clusters: map[string][]models.Student{"zero": nil}}, nil
	}}
	o := New(svc, db.NewMemoryStore(), nil)
	_, err := o.Refresh(context.Background())
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestSlowerEarlierRunIsFenced(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	started := make(chan struct{})
	svc := &testutil.FakeService{PairwiseFunc: func(ctx context.Context, x, y string, k int) (*clustering.PairwiseResponse, error) {
		s := testutil.Student(x+"-"+y, "Vigan", 90, 10000, 0)
		if x == models.FeatureGWA {
			close(started)
			<-release
		}
		return &clustering.PairwiseResponse{Students: []models.Student{s}}, nil
	}}
	o := New(svc, db.NewMemoryStore(), nil)
	state := DefaultViewState()
	state.Mode = models.ModePairwise

	var wg sync.WaitGroup
	var slow *RunResult
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		slow, slowErr = o.Run(context.Background(), state)
	}()
	<-started

	slot, ok, err := o.Current(context.Background(), models.ModePairwise)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, slot.Pending, "pairwise clears its slot when a run starts")
	assert.Nil(t, slot.Dataset)

	fresh := state
	fresh.XFeature, fresh.YFeature = models.FeatureSex, models.FeatureProgram
	fast, err := o.Run(context.Background(), fresh)
	require.NoError(t, err)
	assert.True(t, fast.Applied)

	close(release)
	wg.Wait()
	require.NoError(t, slowErr)
	assert.False(t, slow.Applied)

	slot, _, err = o.Current(context.Background(), models.ModePairwise)
	require.NoError(t, err)
	assert.Equal(t, fast.Dataset.RunID, slot.Dataset.RunID)
	assert.Equal(t, "sex-program", slot.Dataset.Clusters[0][0].ID)
}

func TestDispatchModeSwitchDiscardsPreviousMode(t *testing.T) {
	svc := &testutil.FakeService{
		OfficialFunc: func(ctx context.Context) (*clustering.OfficialResponse, error) { return officialResponse(), nil },
	}
	o := New(svc, db.NewMemoryStore(), nil)
	_, err := o.Refresh(context.Background())
	require.NoError(t, err)

	state, res, err := o.Dispatch(context.Background(), SetMode{Mode: models.ModePlayground})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, models.ModePlayground, state.Mode)

	_, ok, err := o.Current(context.Background(), models.ModeOfficial)
	require.NoError(t, err)
	assert.False(t, ok)

	state, res, err = o.Dispatch(context.Background(), SetK{K: 4})
	require.NoError(t, err)
	assert.Nil(t, res, "playground runs only on request")
	assert.Equal(t, 4, state.K)
}

func TestBuildViewsWithMissingCentroids(t *testing.T) {
	ds := &models.ClusterDataset{
		Mode: models.ModeOfficial,
		Clusters: map[int][]models.Student{
			0: {testutil.Student("a", "Vigan", 91, 20000, 0)},
			2: {testutil.Student("b", "Alilem", 96, 5000, 2)},
			5: {},
		},
		Centroids: []models.Point{{X: 91, Y: 20000}},
	}
	gen := cluster.NewGenerator(classify.DefaultRules)
	views := BuildViews(gen, ds)
	require.Len(t, views, 3)
	assert.Equal(t, []int{0, 2, 5}, []int{views[0].ID, views[1].ID, views[2].ID})
	require.NotNil(t, views[0].Centroid)
	assert.Nil(t, views[1].Centroid)
	assert.Equal(t,
		"With High Honors Poor students from mostly upland areas (e.g., Alilem) — 1 student (Cluster 2)",
		views[1].Label)
	assert.Equal(t, cluster.UnclassifiedLabel, views[2].Label)
	assert.Equal(t, cluster.EmptySummary, views[2].Narrative.Summary)
}

func TestBuildViewsPlaygroundOmitsClusterID(t *testing.T) {
	ds := &models.ClusterDataset{
		Mode:     models.ModePlayground,
		Clusters: map[int][]models.Student{1: {testutil.Student("a", "Vigan", 91, 20000, 1)}},
	}
	gen := cluster.NewGenerator(classify.DefaultRules)
	views := BuildViews(gen, ds)
	require.Len(t, views, 1)
	assert.NotContains(t, views[0].Label, "(Cluster")
}
