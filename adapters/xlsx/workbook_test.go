package releasexlsx

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/goliatone/go-release-order/releaseorder"
	"github.com/xuri/excelize/v2"
)

func TestWorkbook_WritesOrderAndSchedule(t *testing.T) {
	snapshot := releaseorder.Snapshot{
		Fields: releaseorder.FormFields{
			OrderNumber: "RO-7",
			OrderDate:   "2024-03-05",
			ClientName:  "Acme Foods",
		},
		Items: []releaseorder.LineItem{
			{KeyNumber: "K1", Publication: "Times of India", ScheduledDate: "2024-03-09"},
			{Publication: "Daily Herald", Edition: "Evening\nCity"},
		},
	}

	buf := &bytes.Buffer{}
	stats, err := Workbook{}.Write(context.Background(), snapshot, buf)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if stats.Rows != 2 {
		t.Fatalf("expected 2 rows, got %d", stats.Rows)
	}
	if stats.Bytes != int64(buf.Len()) {
		t.Fatalf("expected bytes %d, got %d", buf.Len(), stats.Bytes)
	}

	file, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer func() {
		_ = file.Close()
	}()

	schedule, err := file.GetRows(defaultScheduleSheet)
	if err != nil {
		t.Fatalf("get schedule rows: %v", err)
	}
	if len(schedule) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(schedule))
	}
	if schedule[0][1] != "Publication" {
		t.Fatalf("expected column labels, got %v", schedule[0])
	}
	if schedule[1][1] != "Times of India" {
		t.Fatalf("unexpected row %v", schedule[1])
	}
	if schedule[1][5] != "09.03.2024" {
		t.Fatalf("expected formatted date, got %q", schedule[1][5])
	}
	if schedule[2][2] != "Evening\nCity" {
		t.Fatalf("expected line breaks kept, got %q", schedule[2][2])
	}

	orderNumber, err := file.GetCellValue(defaultOrderSheet, "B1")
	if err != nil {
		t.Fatalf("get order number: %v", err)
	}
	if orderNumber != "RO-7" {
		t.Fatalf("unexpected order number %q", orderNumber)
	}
	orderDate, err := file.GetCellValue(defaultOrderSheet, "B2")
	if err != nil {
		t.Fatalf("get order date: %v", err)
	}
	if orderDate != "05.03.2024" {
		t.Fatalf("unexpected order date %q", orderDate)
	}
}

func TestWorkbook_MaxBytes(t *testing.T) {
	_, err := Workbook{MaxBytes: 10}.Write(context.Background(), releaseorder.Snapshot{Items: []releaseorder.LineItem{{}}}, io.Discard)
	if releaseorder.KindFromError(err) != releaseorder.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWorkbook_RejectsSameSheetNames(t *testing.T) {
	_, err := Workbook{OrderSheet: "Data", ScheduleSheet: "Data"}.Write(context.Background(), releaseorder.Snapshot{}, io.Discard)
	if releaseorder.KindFromError(err) != releaseorder.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
