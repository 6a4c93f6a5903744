package releasexlsx

import (
	"context"
	"fmt"
	"io"

	"github.com/goliatone/go-release-order/releaseorder"
	"github.com/xuri/excelize/v2"
)

const (
	defaultOrderSheet    = "Order"
	defaultScheduleSheet = "Schedule"
	displayDateFormat    = "dd.mm.yyyy"
	excelMaxRows         = 1048576
)

// DefaultMaxBytes bounds the written workbook.
const DefaultMaxBytes int64 = 16 * 1024 * 1024

// Workbook renders a snapshot as two sheets: the order header fields and the
// line item schedule.
type Workbook struct {
	OrderSheet    string
	ScheduleSheet string
	MaxBytes      int64
}

// Stats describes a written workbook.
type Stats struct {
	Rows  int64
	Bytes int64
}

// Write streams the workbook for snapshot into w.
func (b Workbook) Write(ctx context.Context, snapshot releaseorder.Snapshot, w io.Writer) (Stats, error) {
	if w == nil {
		return Stats{}, releaseorder.NewError(releaseorder.KindValidation, "output writer is required", nil)
	}

	file := excelize.NewFile()
	defer func() {
		_ = file.Close()
	}()

	orderSheet := pick(b.OrderSheet, defaultOrderSheet)
	scheduleSheet := pick(b.ScheduleSheet, defaultScheduleSheet)
	if orderSheet == scheduleSheet {
		return Stats{}, releaseorder.NewError(releaseorder.KindValidation, "order and schedule sheets must differ", nil)
	}
	if current := file.GetSheetName(0); current != orderSheet {
		if err := file.SetSheetName(current, orderSheet); err != nil {
			return Stats{}, internal("rename order sheet", err)
		}
	}
	if _, err := file.NewSheet(scheduleSheet); err != nil {
		return Stats{}, internal("create schedule sheet", err)
	}

	styles, err := buildStyles(file)
	if err != nil {
		return Stats{}, err
	}
	if err := writeOrder(file, orderSheet, snapshot.Fields, styles); err != nil {
		return Stats{}, err
	}

	stream, err := file.NewStreamWriter(scheduleSheet)
	if err != nil {
		return Stats{}, internal("open schedule stream", err)
	}

	columns := releaseorder.DefaultColumns()
	headers := make([]any, len(columns))
	for i, col := range columns {
		headers[i] = excelize.Cell{StyleID: styles.headerID, Value: col.Label}
	}
	if err := stream.SetRow("A1", headers); err != nil {
		return Stats{}, internal("write schedule header", err)
	}

	stats := Stats{}
	rowIndex := 2
	for _, item := range snapshot.Items {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if rowIndex > excelMaxRows {
			return stats, releaseorder.NewError(releaseorder.KindValidation, "xlsx row limit exceeded", nil)
		}

		cells := make([]any, len(columns))
		for i, col := range columns {
			value, _ := item.Get(col.Field)
			cells[i] = scheduleCell(col.Field, value, styles)
		}
		if err := stream.SetRow(fmt.Sprintf("A%d", rowIndex), cells); err != nil {
			return stats, internal("write schedule row", err)
		}
		stats.Rows++
		rowIndex++
	}
	if err := stream.Flush(); err != nil {
		return stats, internal("flush schedule", err)
	}

	lw := &limitedWriter{w: w, max: b.maxBytes()}
	if _, err := file.WriteTo(lw); err != nil {
		if releaseorder.KindFromError(err) == releaseorder.KindValidation {
			return stats, err
		}
		return stats, internal("write workbook", err)
	}
	stats.Bytes = lw.count
	return stats, nil
}

func (b Workbook) maxBytes() int64 {
	if b.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return b.MaxBytes
}

type styles struct {
	headerID int
	dateID   int
	wrapID   int
}

func buildStyles(file *excelize.File) (styles, error) {
	headerID, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return styles{}, internal("create header style", err)
	}
	format := displayDateFormat
	dateID, err := file.NewStyle(&excelize.Style{
		CustomNumFmt: &format,
		Alignment:    &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return styles{}, internal("create date style", err)
	}
	wrapID, err := file.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return styles{}, internal("create wrap style", err)
	}
	return styles{headerID: headerID, dateID: dateID, wrapID: wrapID}, nil
}

func writeOrder(file *excelize.File, sheet string, fields releaseorder.FormFields, st styles) error {
	for i, field := range releaseorder.Fields {
		row := i + 1
		value, _ := fields.Get(field)

		labelCell := fmt.Sprintf("A%d", row)
		valueCell := fmt.Sprintf("B%d", row)
		if err := file.SetCellValue(sheet, labelCell, releaseorder.FieldLabel(field)); err != nil {
			return internal("write order label", err)
		}
		if err := file.SetCellStyle(sheet, labelCell, labelCell, st.headerID); err != nil {
			return internal("style order label", err)
		}

		if field == releaseorder.FieldOrderDate {
			if date, ok := releaseorder.ParseDate(value); ok {
				if err := file.SetCellValue(sheet, valueCell, date); err != nil {
					return internal("write order date", err)
				}
				if err := file.SetCellStyle(sheet, valueCell, valueCell, st.dateID); err != nil {
					return internal("style order date", err)
				}
				continue
			}
		}
		if err := file.SetCellValue(sheet, valueCell, value); err != nil {
			return internal("write order value", err)
		}
		if err := file.SetCellStyle(sheet, valueCell, valueCell, st.wrapID); err != nil {
			return internal("style order value", err)
		}
	}
	return file.SetColWidth(sheet, "B", "B", 60)
}

// scheduleCell writes parseable dates as real dates shown dd.mm.yyyy; text
// columns keep their line breaks.
func scheduleCell(field releaseorder.CellField, value string, st styles) excelize.Cell {
	if !field.IsText() {
		if date, ok := releaseorder.ParseDate(value); ok {
			return excelize.Cell{Value: date, StyleID: st.dateID}
		}
		return excelize.Cell{Value: value}
	}
	return excelize.Cell{Value: value, StyleID: st.wrapID}
}

func pick(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func internal(msg string, err error) error {
	return releaseorder.NewError(releaseorder.KindInternal, msg, err)
}

type limitedWriter struct {
	w     io.Writer
	max   int64
	count int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if lw.max > 0 && lw.count+int64(len(p)) > lw.max {
		return 0, releaseorder.NewError(releaseorder.KindValidation, "xlsx max bytes exceeded", nil)
	}
	n, err := lw.w.Write(p)
	lw.count += int64(n)
	return n, err
}
