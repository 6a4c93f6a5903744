package releasestorebun

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-release-order/releaseorder"
	"github.com/uptrace/bun"
)

// Store persists image data URLs in a key/value table.
type Store struct {
	DB  *bun.DB
	Now func() time.Time
}

var _ releaseorder.AssetStore = (*Store)(nil)

// NewStore creates a Bun-backed asset store.
func NewStore(db *bun.DB) *Store {
	return &Store{DB: db, Now: time.Now}
}

// CreateSchema creates the asset and export history tables when missing.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{(*assetModel)(nil), (*exportModel)(nil)}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return releaseorder.NewError(releaseorder.KindInternal, "create release order tables", err)
		}
	}
	return nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := s.check(key); err != nil {
		return "", false, err
	}

	model := new(assetModel)
	err := s.DB.NewSelect().Model(model).Where("asset_key = ?", key).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, releaseorder.NewError(releaseorder.KindInternal, fmt.Sprintf("read asset %q", key), err)
	}
	return model.Value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.check(key); err != nil {
		return err
	}
	contentType := ""
	if mimeType, _, err := releaseorder.DecodeDataURL(value); err == nil {
		contentType = mimeType
	}

	model := &assetModel{
		Key:         key,
		Value:       value,
		ContentType: contentType,
		Size:        int64(len(value)),
		UpdatedAt:   s.now(),
	}
	_, err := s.DB.NewInsert().Model(model).
		On("CONFLICT (asset_key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("content_type = EXCLUDED.content_type").
		Set("size = EXCLUDED.size").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return releaseorder.NewError(releaseorder.KindInternal, fmt.Sprintf("write asset %q", key), err)
	}
	return nil
}

// Delete removes key. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.check(key); err != nil {
		return err
	}
	if _, err := s.DB.NewDelete().Model((*assetModel)(nil)).Where("asset_key = ?", key).Exec(ctx); err != nil {
		return releaseorder.NewError(releaseorder.KindInternal, fmt.Sprintf("delete asset %q", key), err)
	}
	return nil
}

func (s *Store) check(key string) error {
	if s == nil || s.DB == nil {
		return releaseorder.NewError(releaseorder.KindNotImpl, "asset database not configured", nil)
	}
	if key == "" {
		return releaseorder.NewError(releaseorder.KindValidation, "asset key is required", nil)
	}
	return nil
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type assetModel struct {
	bun.BaseModel `bun:"table:release_order_assets,alias:roa"`

	Key         string    `bun:"asset_key,pk"`
	Value       string    `bun:",notnull"`
	ContentType string    `bun:"content_type"`
	Size        int64     `bun:"size"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}
