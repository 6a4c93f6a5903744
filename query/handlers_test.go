package query

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-release-order/releaseorder"
)

func TestExportHistoryHandler_ListsNewestFirst(t *testing.T) {
	history := releaseorder.NewMemoryExportHistory()
	base := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"exp-1", "exp-2", "exp-3"} {
		if err := history.Record(context.Background(), releaseorder.ExportRecord{
			ID:        id,
			State:     releaseorder.ExportCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	handler := NewExportHistoryHandler(history)
	records, err := handler.Query(context.Background(), ExportHistory{Limit: 2})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "exp-3" {
		t.Fatalf("expected newest first, got %q", records[0].ID)
	}
}

func TestExportHistoryHandler_Validation(t *testing.T) {
	handler := NewExportHistoryHandler(releaseorder.NewMemoryExportHistory())
	_, err := handler.Query(context.Background(), ExportHistory{Limit: MaxHistoryLimit + 1})
	if releaseorder.KindFromError(err) != releaseorder.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	var missing *ExportHistoryHandler
	if _, err := missing.Query(context.Background(), ExportHistory{}); releaseorder.KindFromError(err) != releaseorder.KindNotImpl {
		t.Fatalf("expected not implemented, got %v", err)
	}
}

func TestFormStateQueryThroughDispatcher(t *testing.T) {
	form := releaseorder.NewForm()
	if err := form.SetField(releaseorder.FieldCaption, "Launch"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	pipeline := releaseorder.NewPipeline(form, releaseorder.NewImageService(nil))

	subs, err := Register(nil, NewFormStateHandler(pipeline), nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()

	snapshot, err := dispatcher.Query[FormState, releaseorder.Snapshot](context.Background(), FormState{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if snapshot.Fields.Caption != "Launch" {
		t.Fatalf("expected caption, got %q", snapshot.Fields.Caption)
	}
	if len(snapshot.Items) != 1 {
		t.Fatalf("expected one row, got %d", len(snapshot.Items))
	}
	if !snapshot.Stamp.IsPlaceholder() {
		t.Fatalf("expected stamp placeholder")
	}
}
