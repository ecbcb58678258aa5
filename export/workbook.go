package export

import (
	"fmt"
	"io"
	"math"

	"cluster-dashboard-go/classify"
	"cluster-dashboard-go/models"
	"cluster-dashboard-go/orchestrator"
	"github.com/xuri/excelize/v2"
)

const summarySheet = "Summary"

var (
	summaryHeader = []interface{}{"Cluster", "Label", "Students", "Avg GWA", "Avg Income", "Upland", "Lowland", "Summary", "Recommendation"}
	studentHeader = []interface{}{"ID", "Name", "Sex", "Program", "Municipality", "Area", "SHS Type", "GWA", "Income", "Honors", "Income Category"}
)

// WriteWorkbook writes a Summary sheet plus one sheet per cluster to w.
func WriteWorkbook(w io.Writer, ds *models.ClusterDataset, views []orchestrator.ClusterView, rules classify.RuleTable) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if err := setRow(f, summarySheet, 1, summaryHeader); err != nil {
		return err
	}
	if ds.Empty() {
		if err := setRow(f, summarySheet, 2, []interface{}{"No data"}); err != nil {
			return err
		}
		return write(f, w)
	}

	for i, v := range views {
		row := []interface{}{
			v.ID, v.Label, v.Stats.Count, round2(v.Stats.AvgGWA), round2(v.Stats.AvgIncome),
			v.Stats.UplandCount, v.Stats.LowlandCount, v.Narrative.Summary, v.Narrative.Recommendation,
		}
		if err := setRow(f, summarySheet, i+2, row); err != nil {
			return err
		}
		if err := writeClusterSheet(f, v, rules); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(summarySheet, "B", "B", 60)
	_ = f.SetColWidth(summarySheet, "H", "I", 80)
	return write(f, w)
}

// SheetName is the name of the per-cluster sheet.
func SheetName(id int) string {
	return fmt.Sprintf("Cluster %d", id)
}

func writeClusterSheet(f *excelize.File, v orchestrator.ClusterView, rules classify.RuleTable) error {
	sheet := SheetName(v.ID)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	if err := setRow(f, sheet, 1, studentHeader); err != nil {
		return err
	}
	for i, s := range v.Students {
		c := rules.ClassifyStudent(s)
		row := []interface{}{
			s.ID, s.FullName(), s.Sex, s.Program, s.Municipality, string(c.Area), s.SHSType,
			optional(s.GWAValue()), optional(s.IncomeValue()), c.Honors, c.Income,
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("invalid row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func write(f *excelize.File, w io.Writer) error {
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// optional leaves the cell blank for values that were never entered.
func optional(v float64, ok bool) interface{} {
	if !ok {
		return ""
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
