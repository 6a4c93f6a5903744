package releasestorebun

import (
	"context"
	"time"

	"github.com/goliatone/go-release-order/releaseorder"
	"github.com/uptrace/bun"
)

// History stores export attempts in a Bun-backed database.
type History struct {
	DB *bun.DB
}

var _ releaseorder.ExportHistory = (*History)(nil)

// NewHistory creates a Bun-backed export history.
func NewHistory(db *bun.DB) *History {
	return &History{DB: db}
}

// Record inserts an export record.
func (h *History) Record(ctx context.Context, record releaseorder.ExportRecord) error {
	if h == nil || h.DB == nil {
		return releaseorder.NewError(releaseorder.KindNotImpl, "history database not configured", nil)
	}
	if record.ID == "" {
		return releaseorder.NewError(releaseorder.KindValidation, "export ID is required", nil)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	model := modelFromRecord(record)
	if _, err := h.DB.NewInsert().Model(&model).Exec(ctx); err != nil {
		return releaseorder.NewError(releaseorder.KindInternal, "insert export record", err)
	}
	return nil
}

// List returns up to limit records, newest first. A limit of zero or less
// returns everything.
func (h *History) List(ctx context.Context, limit int) ([]releaseorder.ExportRecord, error) {
	if h == nil || h.DB == nil {
		return nil, releaseorder.NewError(releaseorder.KindNotImpl, "history database not configured", nil)
	}

	models := make([]exportModel, 0)
	query := h.DB.NewSelect().Model(&models).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, releaseorder.NewError(releaseorder.KindInternal, "list export records", err)
	}

	records := make([]releaseorder.ExportRecord, 0, len(models))
	for _, model := range models {
		records = append(records, model.toRecord())
	}
	return records, nil
}

type exportModel struct {
	bun.BaseModel `bun:"table:release_order_exports,alias:roe"`

	ID         string    `bun:",pk"`
	State      string    `bun:",notnull"`
	Filename   string    `bun:"filename"`
	Bytes      int64     `bun:"bytes"`
	Pages      int       `bun:"pages"`
	DurationMS int64     `bun:"duration_ms"`
	Kind       string    `bun:"kind"`
	Error      string    `bun:"error"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func modelFromRecord(record releaseorder.ExportRecord) exportModel {
	return exportModel{
		ID:         record.ID,
		State:      string(record.State),
		Filename:   record.Filename,
		Bytes:      record.Bytes,
		Pages:      record.Pages,
		DurationMS: record.Duration.Milliseconds(),
		Kind:       string(record.Kind),
		Error:      record.Error,
		CreatedAt:  record.CreatedAt,
	}
}

func (m exportModel) toRecord() releaseorder.ExportRecord {
	return releaseorder.ExportRecord{
		ID:        m.ID,
		State:     releaseorder.ExportState(m.State),
		Filename:  m.Filename,
		Bytes:     m.Bytes,
		Pages:     m.Pages,
		Duration:  time.Duration(m.DurationMS) * time.Millisecond,
		Kind:      releaseorder.ErrorKind(m.Kind),
		Error:     m.Error,
		CreatedAt: m.CreatedAt,
	}
}
