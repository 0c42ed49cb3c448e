package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"stockreport/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportService_Workbook(t *testing.T) {
	f := newReportFixture(t)
	w := f.create(t, "Widget", 5, "2024-05-10", alice)
	f.clock.Advance(time.Minute)
	f.create(t, "Gadget", 2, "2024-05-09", bob)
	_, err := f.svc.Update(context.Background(), w.ID, UpdateReportRequest{Quantity: qty(6)}, bob)
	require.NoError(t, err)

	exp := NewExportService(f.svc, time.UTC).(*exportService)
	exp.now = f.clock.Now

	file, err := exp.Export(context.Background(), ReportQuery{})
	require.NoError(t, err)
	assert.Equal(t, "reports_2024_05_10.xlsx", file.Name)

	wb, err := excelize.OpenReader(bytes.NewReader(file.Content))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	rows, err := wb.GetRows(ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Product Name", "Quantity", "Entry Date", "Submitted By", "Original Entry Timestamp", "Modification Count"}, rows[0])
	assert.Equal(t, []string{"Widget", "6", "2024-05-10", "alice", "2024-05-10 12:00:00", "1"}, rows[1])
	assert.Equal(t, []string{"Gadget", "2", "2024-05-09", "bob", "2024-05-10 12:01:00", "0"}, rows[2])

	styleID, err := wb.GetCellStyle(ExportSheet, "A1")
	require.NoError(t, err)
	style, err := wb.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
}

func TestExportService_AppliesFilters(t *testing.T) {
	f := newReportFixture(t)
	f.create(t, "Widget", 5, "2024-05-10", alice)
	f.create(t, "Gadget", 2, "2024-05-10", alice)

	file, err := NewExportService(f.svc, time.UTC).Export(context.Background(), ReportQuery{Product: "Gadget"})
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(file.Content))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	rows, err := wb.GetRows(ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Gadget", rows[1][0])

	_, err = NewExportService(f.svc, time.UTC).Export(context.Background(), ReportQuery{StartDate: "bogus"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
