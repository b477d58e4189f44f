package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"calibration-backend/repository"
	"calibration-backend/utils"

	"github.com/xuri/excelize/v2"
)

const (
	ExportCertificates = "certificates"
	ExportCustomers    = "customers"
	ExportRenewals     = "renewals"

	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// table is an export before serialization; cells are strings, int64 or float64.
type table struct {
	sheet   string
	headers []string
	widths  []float64
	rows    [][]any
}

const timestampLayout = "2006-01-02 15:04:05"

// Export builds the named export in the requested format. An export with no rows is a
// NotFoundError rather than an empty file.
func (s *ReportService) Export(ctx context.Context, kind, format string, f repository.ReportFilter) (*ExportFile, error) {
	var v validator
	switch kind {
	case ExportCertificates, ExportCustomers, ExportRenewals:
	default:
		v.add("type", "must be certificates, customers or renewals")
	}
	if format == "" {
		format = FormatCSV
	}
	v.check(format == FormatCSV || format == FormatXLSX, "format", "must be csv or xlsx")
	if err := v.err(); err != nil {
		return nil, err
	}

	t, err := s.exportTable(ctx, kind, f)
	if err != nil {
		return nil, err
	}
	if len(t.rows) == 0 {
		return nil, &NotFoundError{Missing: []Missing{{Entity: "data for export"}}}
	}

	out := &ExportFile{FileName: kind + "_export." + format}
	if format == FormatXLSX {
		out.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		out.Data, err = writeXLSX(t)
	} else {
		out.ContentType = "text/csv"
		out.Data = writeCSV(t)
	}
	if err != nil {
		return nil, fmt.Errorf("write %s export: %w", format, err)
	}
	return out, nil
}

func (s *ReportService) exportTable(ctx context.Context, kind string, f repository.ReportFilter) (*table, error) {
	switch kind {
	case ExportCertificates:
		rows, err := s.store.ExportCertificates(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("export certificates: %w", err)
		}
		t := &table{
			sheet: "Certificates",
			headers: []string{"Certificate Number", "Calibration Date", "Due Date", "Status",
				"Company Name", "Contact Person", "Email", "Phone",
				"Instrument", "Model Number", "Serial Number", "Manufacturer",
				"Prepared By", "Signed By"},
			widths: []float64{22, 16, 14, 12, 28, 20, 26, 16, 24, 16, 18, 18, 20, 20},
		}
		for _, r := range rows {
			preparedBy := strings.TrimSpace(r.PreparedByFirstName + " " + r.PreparedByLastName)
			t.rows = append(t.rows, []any{
				r.CertificateNumber, utils.FormatDate(r.CalibrationDate), utils.FormatDate(r.DueDate), r.Status,
				r.CompanyName, r.ContactPerson, r.Email, r.Phone,
				r.InstrumentName, r.ModelNumber, r.SerialNumber, r.Manufacturer,
				preparedBy, r.SignatureStaff,
			})
		}
		return t, nil

	case ExportCustomers:
		rows, err := s.store.ExportCustomers(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("export customers: %w", err)
		}
		t := &table{
			sheet: "Customers",
			headers: []string{"Company Name", "Contact Person", "Email", "Phone", "Mobile", "Website",
				"GST Number", "PAN Number", "Created At", "Certificate Count"},
			widths: []float64{28, 20, 26, 16, 16, 24, 18, 14, 20, 18},
		}
		for _, r := range rows {
			t.rows = append(t.rows, []any{
				r.CompanyName, r.ContactPerson, r.Email, r.Phone, r.Mobile, r.Website,
				r.GSTNumber, r.PANNumber, r.CreatedAt.UTC().Format(timestampLayout), r.CertificateCount,
			})
		}
		return t, nil

	default:
		rows, err := s.store.RenewalRows(ctx, f, 0)
		if err != nil {
			return nil, fmt.Errorf("export renewals: %w", err)
		}
		rows = s.withDaysRemaining(rows, s.today())
		t := &table{
			sheet: "Renewals",
			headers: []string{"Certificate Number", "Due Date", "Company Name", "Contact Person", "Email", "Phone",
				"Instrument", "Model Number", "Serial Number", "Days Remaining"},
			widths: []float64{22, 14, 28, 20, 26, 16, 24, 16, 18, 16},
		}
		for _, r := range rows {
			t.rows = append(t.rows, []any{
				r.CertificateNumber, utils.FormatDate(r.DueDate), r.CompanyName, r.ContactPerson, r.Email, r.Phone,
				r.InstrumentName, r.ModelNumber, r.SerialNumber, int64(r.DaysRemaining),
			})
		}
		return t, nil
	}
}

// writeCSV quotes every field, header included, doubling embedded quotes.
func writeCSV(t *table) []byte {
	var buf bytes.Buffer
	writeLine := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(cell, `"`, `""`))
			buf.WriteByte('"')
		}
		buf.WriteString("\r\n")
	}

	writeLine(t.headers)
	cells := make([]string, len(t.headers))
	for _, row := range t.rows {
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		writeLine(cells)
	}
	return buf.Bytes()
}

func writeXLSX(t *table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(t.sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, header := range t.headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(t.sheet, cell, header); err != nil {
			return nil, fmt.Errorf("set header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(t.sheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("style header %s: %w", cell, err)
		}
		if col < len(t.widths) {
			name, err := excelize.ColumnNumberToName(col + 1)
			if err != nil {
				return nil, err
			}
			if err := f.SetColWidth(t.sheet, name, name, t.widths[col]); err != nil {
				return nil, fmt.Errorf("set column width: %w", err)
			}
		}
	}

	for r, row := range t.rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(t.sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	if err := f.SetPanes(t.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
