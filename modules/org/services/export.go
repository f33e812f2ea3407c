package services

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/organi-flow/modules/org/domain/orgtree"
)

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

const exportSheet = "Employees"

var exportHeader = []string{"id", "name", "title", "manager_id", "depth"}

func ParseExportFormat(v string) (ExportFormat, bool) {
	switch ExportFormat(v) {
	case "", ExportCSV:
		return ExportCSV, true
	case ExportXLSX:
		return ExportXLSX, true
	default:
		return "", false
	}
}

func (f ExportFormat) ContentType() string {
	if f == ExportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

func (f ExportFormat) Filename() string {
	return "employees." + string(f)
}

type exportRow struct {
	member orgtree.Member
	depth  int
}

func exportRows(root *orgtree.Employee) []exportRow {
	rows := make([]exportRow, 0, root.Size())
	root.Walk(func(n *orgtree.Employee, depth int) bool {
		rows = append(rows, exportRow{
			member: orgtree.Member{ID: n.ID, Name: n.Name, Title: n.Title, ManagerID: n.ManagerID},
			depth:  depth,
		})
		return true
	})
	return rows
}

// Export writes the roster of root, one employee per row in tree order.
func Export(w io.Writer, root *orgtree.Employee, format ExportFormat) error {
	switch format {
	case ExportXLSX:
		return exportXLSX(w, exportRows(root))
	case ExportCSV:
		return exportCSV(w, exportRows(root))
	default:
		return errors.Errorf("unsupported export format %q", format)
	}
}

func exportCSV(w io.Writer, rows []exportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.member.ID),
			r.member.Name,
			r.member.Title,
			strconv.Itoa(r.member.ManagerID),
			strconv.Itoa(r.depth),
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "flush csv")
	}
	return nil
}

func exportXLSX(w io.Writer, rows []exportRow) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close workbook")
		}
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "write xlsx header")
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "cell name")
		}
		values := []any{r.member.ID, r.member.Name, r.member.Title, r.member.ManagerID, r.depth}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return errors.Wrap(err, "write xlsx row")
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}
