package export

import (
	"bytes"
	"testing"

	"cluster-dashboard-go/classify"
	"cluster-dashboard-go/cluster"
	"cluster-dashboard-go/models"
	"cluster-dashboard-go/orchestrator"
	"cluster-dashboard-go/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteWorkbook(t *testing.T) {
	missing := testutil.Student("b", "", 0, 0, 0)
	missing.GWA, missing.Income = nil, nil
	ds := &models.ClusterDataset{
		Mode: models.ModeOfficial,
		Clusters: map[int][]models.Student{
			0: {testutil.Student("a", "Suyo", 96, 30000, 0), missing},
			1: {testutil.Student("c", "Vigan", 88, 90000, 1)},
		},
		Order: []int{0, 1},
	}
	views := orchestrator.BuildViews(cluster.NewGenerator(classify.DefaultRules), ds)

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, ds, views, classify.DefaultRules))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Cluster 0", "Cluster 1"}, f.GetSheetList())

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Label", rows[0][1])
	assert.Equal(t, views[0].Label, rows[1][1])
	assert.Equal(t, "2", rows[1][2])

	rows, err = f.GetRows(SheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"a", "Student a", "Female", "BSIT", "Suyo", "Upland", "", "96", "30000", models.HonorsHigh, models.IncomeLowerMiddle}, rows[1])
	assert.Equal(t, "No Municipality Entered", rows[2][5])
	assert.Equal(t, models.HonorsUnknown, rows[2][9])
	assert.Equal(t, models.IncomeNotEntered, rows[2][10])
}

func TestWriteWorkbookEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, &models.ClusterDataset{}, nil, classify.DefaultRules))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "No data", rows[1][0])
}
