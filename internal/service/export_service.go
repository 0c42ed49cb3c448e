package service

import (
	"context"
	"fmt"
	"time"

	"stockreport/internal/apperror"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

const (
	ExportSheet       = "Reports"
	ExportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportColumns = []struct {
	header string
	width  float64
}{
	{"Product Name", 30},
	{"Quantity", 15},
	{"Entry Date", 15},
	{"Submitted By", 20},
	{"Original Entry Timestamp", 25},
	{"Modification Count", 18},
}

type ExportFile struct {
	Name    string
	Content []byte
}

// ExportService renders the filtered report list as an xlsx workbook.
type ExportService interface {
	Export(ctx context.Context, q ReportQuery) (*ExportFile, error)
}

type exportService struct {
	reports ReportService
	loc     *time.Location
	now     func() time.Time
}

func NewExportService(reports ReportService, loc *time.Location) ExportService {
	if loc == nil {
		loc = time.Local
	}
	return &exportService{reports: reports, loc: loc, now: time.Now}
}

func (s *exportService) Export(ctx context.Context, q ReportQuery) (*ExportFile, error) {
	reports, err := s.reports.List(ctx, q)
	if err != nil {
		return nil, err
	}

	content, err := s.render(reports)
	if err != nil {
		log.Error().Err(err).Msg("failed to render report export")
		return nil, apperror.Store("Failed to export data.", err)
	}

	return &ExportFile{
		Name:    fmt.Sprintf("reports_%s.xlsx", s.now().In(s.loc).Format("2006_01_02")),
		Content: content,
	}, nil
}

func (s *exportService) render(reports []ReportResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return nil, err
	}

	header := make([]interface{}, 0, len(exportColumns))
	for i, c := range exportColumns {
		header = append(header, c.header)
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(ExportSheet, col, col, c.width); err != nil {
			return nil, err
		}
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &header); err != nil {
		return nil, err
	}

	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDDDDD"}},
	})
	if err != nil {
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportColumns))
	if err := f.SetCellStyle(ExportSheet, "A1", lastCol+"1", style); err != nil {
		return nil, err
	}

	for i, r := range reports {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			r.ProductName,
			r.Quantity,
			r.EntryDate,
			r.SubmittedByUsername,
			r.CreatedAt.In(s.loc).Format("2006-01-02 15:04:05"),
			len(r.History),
		}
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
