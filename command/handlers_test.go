package command

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-release-order/releaseorder"
)

func newTestHandlers() (*Handlers, *releaseorder.Pipeline, *releaseorder.MemoryAssetStore) {
	store := releaseorder.NewMemoryAssetStore()
	pipeline := releaseorder.NewPipeline(releaseorder.NewForm(), releaseorder.NewImageService(store))
	return NewHandlers(pipeline), pipeline, store
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDirectDispatch_RowScenario(t *testing.T) {
	handlers, pipeline, _ := newTestHandlers()
	bus := Direct{Handlers: handlers}
	ctx := context.Background()

	var count int
	for i := 0; i < 2; i++ {
		if err := bus.Dispatch(ctx, AddRow{Result: &count}); err != nil {
			t.Fatalf("add row: %v", err)
		}
	}
	if count != 3 {
		t.Fatalf("expected 3 rows, got %d", count)
	}
	if err := bus.Dispatch(ctx, SetCellValue{Index: 1, Column: "publication", Value: "Times of India"}); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := bus.Dispatch(ctx, DeleteRow{Index: 0}); err != nil {
		t.Fatalf("delete row: %v", err)
	}

	rows := pipeline.Form.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Publication != "Times of India" {
		t.Fatalf("expected modified row at index 0, got %+v", rows[0])
	}
}

func TestDirectDispatch_FieldsAndDates(t *testing.T) {
	handlers, pipeline, _ := newTestHandlers()
	bus := Direct{Handlers: handlers}
	ctx := context.Background()

	if err := bus.Dispatch(ctx, SetField{Field: "clientName", Value: "Acme Ltd"}); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if err := bus.Dispatch(ctx, SetCellDate{Index: 0, Date: "2024-03-09"}); err != nil {
		t.Fatalf("set date: %v", err)
	}

	if got := pipeline.Form.Fields().ClientName; got != "Acme Ltd" {
		t.Fatalf("expected client name, got %q", got)
	}
	if got := pipeline.Form.Rows()[0].ScheduledDate; got != "2024-03-09" {
		t.Fatalf("expected scheduled date, got %q", got)
	}

	if err := bus.Dispatch(ctx, SetCellDate{Index: 0}); err != nil {
		t.Fatalf("clear date: %v", err)
	}
	if got := pipeline.Form.Rows()[0].ScheduledDate; got != "" {
		t.Fatalf("expected cleared date, got %q", got)
	}
}

func TestDirectDispatch_ValidationErrors(t *testing.T) {
	handlers, _, _ := newTestHandlers()
	bus := Direct{Handlers: handlers}
	ctx := context.Background()

	cases := []struct {
		name string
		msg  Message
	}{
		{name: "unknown field", msg: SetField{Field: "nope"}},
		{name: "negative index", msg: DeleteRow{Index: -1}},
		{name: "date column as text", msg: SetCellValue{Index: 0, Column: "scheduled_date", Value: "x"}},
		{name: "bad date", msg: SetCellDate{Index: 0, Date: "09/03/2024"}},
		{name: "unknown slot", msg: RemoveImage{Slot: "banner"}},
		{name: "missing data", msg: UploadImage{Slot: "stamp"}},
		{name: "out of range", msg: DeleteRow{Index: 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := bus.Dispatch(ctx, tc.msg)
			if err == nil {
				t.Fatalf("expected error")
			}
			if kind := releaseorder.KindFromError(err); kind != releaseorder.KindValidation {
				t.Fatalf("expected validation kind, got %q (%v)", kind, err)
			}
		})
	}
}

func TestUploadAndRemoveImage(t *testing.T) {
	handlers, pipeline, store := newTestHandlers()
	bus := Direct{Handlers: handlers}
	ctx := context.Background()

	var asset releaseorder.ImageAsset
	err := bus.Dispatch(ctx, UploadImage{Slot: "logo", Filename: "logo.png", Data: bytes.NewReader(pngBytes(t)), Result: &asset})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(asset.URL, "data:image/png;base64,") {
		t.Fatalf("expected png data URL, got %q", asset.URL)
	}
	if _, ok, _ := store.Get(ctx, releaseorder.StorageKeyCompanyLogo); !ok {
		t.Fatalf("expected persisted logo")
	}

	if err := bus.Dispatch(ctx, RemoveImage{Slot: "company_logo"}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !pipeline.Images.Asset(releaseorder.SlotCompanyLogo).IsPlaceholder() {
		t.Fatalf("expected placeholder after removal")
	}
	if _, ok, _ := store.Get(ctx, releaseorder.StorageKeyCompanyLogo); ok {
		t.Fatalf("expected persisted logo to be cleared")
	}
}

func TestLoadSnapshotStoresImages(t *testing.T) {
	handlers, pipeline, store := newTestHandlers()
	bus := Direct{Handlers: handlers}
	ctx := context.Background()

	snapshot := releaseorder.Snapshot{
		Fields: releaseorder.FormFields{OrderNumber: "RO-7"},
		Items:  []releaseorder.LineItem{{Publication: "Daily"}, {Publication: "Weekly"}},
		Stamp:  releaseorder.ImageAsset{Slot: releaseorder.SlotStamp, URL: releaseorder.EncodeDataURL("image/png", pngBytes(t))},
	}
	if err := bus.Dispatch(ctx, LoadSnapshot{Snapshot: snapshot}); err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if pipeline.Form.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", pipeline.Form.Len())
	}
	if pipeline.Form.Fields().OrderNumber != "RO-7" {
		t.Fatalf("expected order number to load")
	}
	if pipeline.Images.Asset(releaseorder.SlotStamp).IsPlaceholder() {
		t.Fatalf("expected stamp image")
	}
	if _, ok, _ := store.Get(ctx, releaseorder.StorageKeyStamp); !ok {
		t.Fatalf("expected persisted stamp")
	}
	if !pipeline.Images.Asset(releaseorder.SlotCompanyLogo).IsPlaceholder() {
		t.Fatalf("expected logo placeholder")
	}
}

func TestLoadSnapshotRejectedImageKeepsForm(t *testing.T) {
	handlers, pipeline, _ := newTestHandlers()
	bus := Direct{Handlers: handlers}
	ctx := context.Background()

	logo := releaseorder.EncodeDataURL("image/png", pngBytes(t))
	if err := bus.Dispatch(ctx, LoadSnapshot{Snapshot: releaseorder.Snapshot{
		Fields:      releaseorder.FormFields{ClientName: "Before"},
		Items:       []releaseorder.LineItem{{Publication: "Daily"}},
		CompanyLogo: releaseorder.ImageAsset{Slot: releaseorder.SlotCompanyLogo, URL: logo},
	}}); err != nil {
		t.Fatalf("load initial snapshot: %v", err)
	}

	rejected := releaseorder.Snapshot{
		Fields: releaseorder.FormFields{ClientName: "After"},
		Items:  []releaseorder.LineItem{{Publication: "A"}, {Publication: "B"}},
		Stamp:  releaseorder.ImageAsset{Slot: releaseorder.SlotStamp, URL: releaseorder.EncodeDataURL("text/plain", []byte("not an image"))},
	}
	err := bus.Dispatch(ctx, LoadSnapshot{Snapshot: rejected})
	if releaseorder.KindFromError(err) != releaseorder.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := pipeline.Form.Fields().ClientName; got != "Before" {
		t.Fatalf("expected form untouched, client=%q", got)
	}
	if pipeline.Form.Len() != 1 {
		t.Fatalf("expected rows untouched, got %d", pipeline.Form.Len())
	}
	if pipeline.Images.Asset(releaseorder.SlotCompanyLogo).URL != logo {
		t.Fatalf("expected logo untouched")
	}
}

func TestLoadSnapshotResetsPlaceholderSlots(t *testing.T) {
	handlers, pipeline, store := newTestHandlers()
	bus := Direct{Handlers: handlers}
	ctx := context.Background()

	if err := bus.Dispatch(ctx, UploadImage{Slot: "stamp", Filename: "stamp.png", Data: bytes.NewReader(pngBytes(t))}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	snapshot := releaseorder.Snapshot{
		Fields: releaseorder.FormFields{OrderNumber: "RO-8"},
		Stamp:  releaseorder.ImageAsset{Slot: releaseorder.SlotStamp, URL: releaseorder.PlaceholderURL(releaseorder.SlotStamp)},
	}
	if err := bus.Dispatch(ctx, LoadSnapshot{Snapshot: snapshot}); err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if !pipeline.Images.Asset(releaseorder.SlotStamp).IsPlaceholder() {
		t.Fatalf("expected stamp reset to placeholder")
	}
	if _, ok, _ := store.Get(ctx, releaseorder.StorageKeyStamp); ok {
		t.Fatalf("expected persisted stamp cleared")
	}
}

func TestExportPDFWithoutEngineIsUnavailable(t *testing.T) {
	handlers, pipeline, _ := newTestHandlers()
	bus := Direct{Handlers: handlers}

	var out bytes.Buffer
	err := bus.Dispatch(context.Background(), ExportPDF{Output: &out})
	if releaseorder.KindFromError(err) != releaseorder.KindUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if pipeline.Exporting() {
		t.Fatalf("expected no residual exporting flag")
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output")
	}
}

func TestAddRowHandler_StoresContextResult(t *testing.T) {
	handlers, _, _ := newTestHandlers()
	result := gcmd.NewResult[int]()
	ctx := gcmd.ContextWithResult(context.Background(), result)

	if err := handlers.AddRow.Execute(ctx, AddRow{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	stored, ok := result.Load()
	if !ok {
		t.Fatalf("expected context result")
	}
	if stored != 2 {
		t.Fatalf("expected 2 rows, got %d", stored)
	}
}

func TestBusDispatchesThroughSubscriptions(t *testing.T) {
	handlers, pipeline, _ := newTestHandlers()
	subs, err := Register(nil, handlers)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()

	count, err := dispatcher.DispatchWithResult[AddRow, int](context.Background(), AddRow{})
	if err != nil {
		t.Fatalf("dispatch add row: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows, got %d", count)
	}

	if err := (Bus{}).Dispatch(context.Background(), SetField{Field: "matter", Value: "Full page"}); err != nil {
		t.Fatalf("dispatch set field: %v", err)
	}
	if pipeline.Form.Fields().Matter != "Full page" {
		t.Fatalf("expected matter to be set")
	}
}

func TestReadSnapshotFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "order.json")
	content := `{"fields":{"order_number":"RO-1"},"items":[{"publication":"Daily"}]}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	snapshot, err := ReadSnapshotFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if snapshot.Fields.OrderNumber != "RO-1" || len(snapshot.Items) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadSnapshotFile(bad); releaseorder.KindFromError(err) != releaseorder.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
