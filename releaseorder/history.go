package releaseorder

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ExportState is the outcome of one export attempt.
type ExportState string

const (
	ExportCompleted ExportState = "completed"
	ExportFailed    ExportState = "failed"
)

// ExportRecord is one entry of the export history.
type ExportRecord struct {
	ID        string        `json:"id"`
	State     ExportState   `json:"state"`
	Filename  string        `json:"filename,omitempty"`
	Bytes     int64         `json:"bytes"`
	Pages     int           `json:"pages"`
	Duration  time.Duration `json:"duration"`
	Kind      ErrorKind     `json:"kind,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// ExportHistory keeps a log of export attempts.
type ExportHistory interface {
	Record(ctx context.Context, record ExportRecord) error
	List(ctx context.Context, limit int) ([]ExportRecord, error)
}

// MemoryExportHistory keeps export records in memory (test/dev only).
type MemoryExportHistory struct {
	mu      sync.RWMutex
	records []ExportRecord
}

// NewMemoryExportHistory creates an in-memory export history.
func NewMemoryExportHistory() *MemoryExportHistory {
	return &MemoryExportHistory{}
}

// Record appends record.
func (h *MemoryExportHistory) Record(ctx context.Context, record ExportRecord) error {
	_ = ctx
	if record.ID == "" {
		return NewError(KindValidation, "export ID is required", nil)
	}
	h.mu.Lock()
	h.records = append(h.records, record)
	h.mu.Unlock()
	return nil
}

// List returns up to limit records, newest first. A limit of zero or less
// returns everything.
func (h *MemoryExportHistory) List(ctx context.Context, limit int) ([]ExportRecord, error) {
	_ = ctx
	h.mu.RLock()
	records := append([]ExportRecord(nil), h.records...)
	h.mu.RUnlock()

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
