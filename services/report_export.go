package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"ain_oman_legal/models"

	"github.com/xuri/excelize/v2"
)

const (
	sheetCases     = "Cases"
	sheetExpenses  = "Expenses"
	sheetAnalytics = "Analytics"
)

// ReportService builds spreadsheet exports of a tenant's records
type ReportService struct {
	store *RecordStore
}

func NewReportService(store *RecordStore) *ReportService {
	return &ReportService{store: store}
}

// ExportWorkbook writes Cases, Expenses and Analytics sheets for the tenant.
// Analytics are computed fresh from the same snapshot, so the sheets agree.
func (r *ReportService) ExportWorkbook(ctx context.Context, tenantID string) (*bytes.Buffer, error) {
	var cases []models.LegalCase
	var expenses []models.Expense
	err := r.store.View(ctx, tenantID, func(snap *Snapshot) error {
		cases = snap.CasesWhere(func(*models.LegalCase) bool { return true })
		expenses = selectWhere(snap.Expenses, func(*models.Expense) bool { return true })
		return nil
	})
	if err != nil {
		return nil, err
	}
	analytics := ComputeAnalytics(tenantID, cases, expenses, r.store.Now())
	return BuildWorkbook(cases, expenses, &analytics)
}

// BuildWorkbook renders the given records into an xlsx document
func BuildWorkbook(cases []models.LegalCase, expenses []models.Expense, analytics *models.LegalAnalytics) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// Sheet 1: Cases
	if err := f.SetSheetName("Sheet1", sheetCases); err != nil {
		return nil, err
	}
	sort.SliceStable(cases, func(i, j int) bool { return cases[i].ID < cases[j].ID })
	caseRows := make([][]interface{}, 0, len(cases))
	for _, c := range cases {
		closed := ""
		if c.ClosedAt != nil {
			closed = c.ClosedAt.Format(time.DateOnly)
		}
		caseRows = append(caseRows, []interface{}{
			c.ID, c.Title, c.Type, c.Status, c.Stage, c.Priority, c.Outcome,
			c.ClientID, c.LawyerID, c.ClaimAmount, c.Currency,
			c.CreatedAt.Format(time.DateOnly), closed,
		})
	}
	if err := writeSheet(f, sheetCases, headerStyle, []string{
		"ID", "Title", "Type", "Status", "Stage", "Priority", "Outcome",
		"Client", "Lawyer", "Claim Amount", "Currency", "Opened", "Closed",
	}, caseRows); err != nil {
		return nil, err
	}

	// Sheet 2: Expenses
	if _, err := f.NewSheet(sheetExpenses); err != nil {
		return nil, err
	}
	expenseRows := make([][]interface{}, 0, len(expenses))
	for _, e := range expenses {
		expenseRows = append(expenseRows, []interface{}{
			e.ID, e.CaseID, e.Category, e.Description, e.Amount, e.Currency,
			e.Status, e.IncurredAt.Format(time.DateOnly), e.Voided,
		})
	}
	if err := writeSheet(f, sheetExpenses, headerStyle, []string{
		"ID", "Case", "Category", "Description", "Amount", "Currency", "Status", "Incurred", "Voided",
	}, expenseRows); err != nil {
		return nil, err
	}

	// Sheet 3: Analytics
	if _, err := f.NewSheet(sheetAnalytics); err != nil {
		return nil, err
	}
	if analytics != nil {
		if err := writeAnalyticsSheet(f, headerStyle, analytics); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, headers []string, rows [][]interface{}) error {
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return err
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, r+2, err)
		}
	}
	return nil
}

func writeAnalyticsSheet(f *excelize.File, headerStyle int, a *models.LegalAnalytics) error {
	summary := [][]interface{}{
		{"Generated", a.GeneratedAt.Format(time.RFC3339)},
		{"Total Cases", a.TotalCases},
		{"Open Cases", a.OpenCases},
		{"Resolved Cases", a.ResolvedCases},
		{"Closed Cases", a.ClosedCases},
		{"Archived Cases", a.ArchivedCases},
		{"Total Revenue", a.TotalRevenue},
		{"Total Expenses", a.TotalExpenses},
		{"Net Profit", a.NetProfit},
		{"Average Resolution Days", a.AverageResolutionDays},
		{"Success Rate (%)", a.SuccessRate},
	}
	if err := writeSheet(f, sheetAnalytics, headerStyle, []string{"Metric", "Value"}, summary); err != nil {
		return err
	}

	row := len(summary) + 3
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheetAnalytics, cell, &[]interface{}{"Month", "Opened", "Closed", "Revenue", "Expenses"}); err != nil {
		return err
	}
	end, _ := excelize.CoordinatesToCellName(5, row)
	if err := f.SetCellStyle(sheetAnalytics, cell, end, headerStyle); err != nil {
		return err
	}
	for _, m := range a.MonthlyTrend {
		row++
		cell, _ = excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetAnalytics, cell, &[]interface{}{m.Month, m.CasesOpened, m.CasesClosed, m.Revenue, m.Expenses}); err != nil {
			return err
		}
	}

	row += 2
	cell, _ = excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheetAnalytics, cell, &[]interface{}{"Lawyer", "Cases", "Wins", "Success Rate (%)", "Revenue"}); err != nil {
		return err
	}
	end, _ = excelize.CoordinatesToCellName(5, row)
	if err := f.SetCellStyle(sheetAnalytics, cell, end, headerStyle); err != nil {
		return err
	}
	for _, l := range a.TopLawyers {
		row++
		cell, _ = excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetAnalytics, cell, &[]interface{}{l.LawyerID, l.TotalCases, l.Wins, l.SuccessRate, l.Revenue}); err != nil {
			return err
		}
	}
	return nil
}
