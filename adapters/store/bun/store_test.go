package releasestorebun

import (
	"context"
	"testing"

	"github.com/goliatone/go-release-order/releaseorder"
)

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t))

	if _, ok, err := store.Get(ctx, releaseorder.StorageKeyStamp); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}

	first := releaseorder.EncodeDataURL("image/png", []byte("first"))
	second := releaseorder.EncodeDataURL("image/jpeg", []byte("second"))
	if err := store.Set(ctx, releaseorder.StorageKeyStamp, first); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, releaseorder.StorageKeyStamp, second); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, ok, err := store.Get(ctx, releaseorder.StorageKeyStamp)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got != second {
		t.Fatalf("expected last write to win, got %q", got)
	}

	if err := store.Delete(ctx, releaseorder.StorageKeyStamp); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, releaseorder.StorageKeyStamp); ok {
		t.Fatalf("expected key removed")
	}
	if err := store.Delete(ctx, releaseorder.StorageKeyStamp); err != nil {
		t.Fatalf("expected delete of missing key to succeed: %v", err)
	}
}

func TestStore_Validation(t *testing.T) {
	store := NewStore(newTestDB(t))
	if err := store.Set(context.Background(), "", "x"); releaseorder.KindFromError(err) != releaseorder.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, _, err := (*Store)(nil).Get(context.Background(), "k"); releaseorder.KindFromError(err) != releaseorder.KindNotImpl {
		t.Fatalf("expected not implemented error, got %v", err)
	}
}

func TestStore_ImageServiceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t))
	value := releaseorder.EncodeDataURL("image/png", []byte("logo"))
	if err := store.Set(ctx, releaseorder.StorageKeyCompanyLogo, value); err != nil {
		t.Fatalf("set: %v", err)
	}

	images := releaseorder.NewImageService(store)
	if err := images.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := images.Asset(releaseorder.SlotCompanyLogo).URL; got != value {
		t.Fatalf("expected restored logo, got %q", got)
	}
	if err := images.Remove(ctx, releaseorder.SlotCompanyLogo); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := store.Get(ctx, releaseorder.StorageKeyCompanyLogo); ok {
		t.Fatalf("expected removal to clear persistence")
	}
}
