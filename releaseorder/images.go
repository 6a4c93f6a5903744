package releaseorder

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DefaultMaxImageBytes bounds a single uploaded image.
const DefaultMaxImageBytes int64 = 5 * 1024 * 1024

// PlaceholderURL returns the image shown when nothing was uploaded.
func PlaceholderURL(slot ImageSlot) string {
	switch slot {
	case SlotStamp:
		return "/placeholder.svg?height=100&width=100"
	default:
		return "/placeholder.svg?height=80&width=200"
	}
}

// ImageService holds the two image assets and persists them to an AssetStore.
type ImageService struct {
	Store    AssetStore
	Logger   Logger
	MaxBytes int64

	mu     sync.RWMutex
	assets map[ImageSlot]string
}

// NewImageService creates an image service backed by store.
func NewImageService(store AssetStore) *ImageService {
	return &ImageService{Store: store, Logger: NopLogger{}, MaxBytes: DefaultMaxImageBytes}
}

// Restore loads persisted images. Missing keys keep the placeholder.
func (s *ImageService) Restore(ctx context.Context) error {
	if s.Store == nil {
		return nil
	}
	for _, slot := range ImageSlots {
		value, ok, err := s.Store.Get(ctx, slot.StorageKey())
		if err != nil {
			return NewError(KindInternal, fmt.Sprintf("restore %s", slot), err)
		}
		if !ok || !strings.HasPrefix(value, "data:image/") {
			continue
		}
		s.setURL(slot, value)
		s.logger().Debugf("restored %s from %s", slot, slot.StorageKey())
	}
	return nil
}

// Asset returns the current asset for slot.
func (s *ImageService) Asset(slot ImageSlot) ImageAsset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if url, ok := s.assets[slot]; ok {
		return ImageAsset{Slot: slot, URL: url}
	}
	return ImageAsset{Slot: slot, URL: PlaceholderURL(slot)}
}

// Upload reads an image and stores it as a data URL. Unreadable or non-image
// input returns a validation error and keeps the previous asset.
func (s *ImageService) Upload(ctx context.Context, slot ImageSlot, filename string, r io.Reader) (ImageAsset, error) {
	if slot.StorageKey() == "" {
		return ImageAsset{}, NewError(KindValidation, fmt.Sprintf("unknown image slot %q", slot), nil)
	}
	if r == nil {
		return ImageAsset{}, NewError(KindValidation, "image upload is empty", nil)
	}

	data, err := readLimited(r, s.maxBytes())
	if err != nil {
		return ImageAsset{}, err
	}

	mimeType, err := sniffImage(data)
	if err != nil {
		s.logger().Infof("rejected %s upload %q: %v", slot, filename, err)
		return ImageAsset{}, err
	}
	return s.store(ctx, slot, filename, mimeType, data)
}

// Validate checks data the way Upload does without storing it and returns
// the detected MIME type.
func (s *ImageService) Validate(data []byte) (string, error) {
	if len(data) == 0 {
		return "", NewError(KindValidation, "image upload is empty", nil)
	}
	if limit := s.maxBytes(); int64(len(data)) > limit {
		return "", NewError(KindValidation, fmt.Sprintf("image exceeds %d bytes", limit), nil)
	}
	return sniffImage(data)
}

func (s *ImageService) store(ctx context.Context, slot ImageSlot, filename, mimeType string, data []byte) (ImageAsset, error) {
	if err := ctx.Err(); err != nil {
		return ImageAsset{}, err
	}

	url := EncodeDataURL(mimeType, data)
	if s.Store != nil {
		if err := s.Store.Set(ctx, slot.StorageKey(), url); err != nil {
			return ImageAsset{}, NewError(KindInternal, fmt.Sprintf("persist %s", slot), err)
		}
	}
	s.setURL(slot, url)
	s.logger().Infof("stored %s upload %q (%s, %d bytes)", slot, filename, mimeType, len(data))
	return ImageAsset{Slot: slot, URL: url}, nil
}

// Remove resets slot to its placeholder and clears the persisted value.
func (s *ImageService) Remove(ctx context.Context, slot ImageSlot) error {
	if slot.StorageKey() == "" {
		return NewError(KindValidation, fmt.Sprintf("unknown image slot %q", slot), nil)
	}
	if s.Store != nil {
		if err := s.Store.Delete(ctx, slot.StorageKey()); err != nil {
			return NewError(KindInternal, fmt.Sprintf("clear %s", slot), err)
		}
	}
	s.mu.Lock()
	delete(s.assets, slot)
	s.mu.Unlock()
	return nil
}

// Fill copies the current assets into snapshot.
func (s *ImageService) Fill(snapshot Snapshot) Snapshot {
	if s == nil {
		snapshot.CompanyLogo = ImageAsset{Slot: SlotCompanyLogo, URL: PlaceholderURL(SlotCompanyLogo)}
		snapshot.Stamp = ImageAsset{Slot: SlotStamp, URL: PlaceholderURL(SlotStamp)}
		return snapshot
	}
	snapshot.CompanyLogo = s.Asset(SlotCompanyLogo)
	snapshot.Stamp = s.Asset(SlotStamp)
	return snapshot
}

func (s *ImageService) setURL(slot ImageSlot, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assets == nil {
		s.assets = make(map[ImageSlot]string, len(ImageSlots))
	}
	s.assets[slot] = url
}

func (s *ImageService) maxBytes() int64 {
	if s.MaxBytes <= 0 {
		return DefaultMaxImageBytes
	}
	return s.MaxBytes
}

func (s *ImageService) logger() Logger {
	if s.Logger == nil {
		return NopLogger{}
	}
	return s.Logger
}

const svgMIMEType = "image/svg+xml"

// isSVG reports whether data is an XML document whose root element is svg.
func isSVG(mimeType string, data []byte) bool {
	if !strings.HasPrefix(mimeType, "text/xml") && !strings.HasPrefix(mimeType, "text/plain") {
		return false
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return false
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local == "svg"
		}
	}
}

// EncodeDataURL builds a base64 data URL.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a base64 data URL into its MIME type and payload.
func DecodeDataURL(url string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return "", nil, NewError(KindValidation, "not a data URL", nil)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, NewError(KindValidation, "malformed data URL", nil)
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, NewError(KindValidation, "data URL is not base64 encoded", nil)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, NewError(KindValidation, "malformed data URL payload", err)
	}
	return mimeType, data, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, NewError(KindValidation, "image could not be read", err)
	}
	if int64(len(data)) > limit {
		return nil, NewError(KindValidation, fmt.Sprintf("image exceeds %d bytes", limit), nil)
	}
	if len(data) == 0 {
		return nil, NewError(KindValidation, "image upload is empty", nil)
	}
	return data, nil
}

func sniffImage(data []byte) (string, error) {
	mimeType := http.DetectContentType(data)
	if isSVG(mimeType, data) {
		return svgMIMEType, nil
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", NewError(KindValidation, fmt.Sprintf("unsupported file type %s", mimeType), nil)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", NewError(KindValidation, "image data is corrupt", err)
	}
	return mimeType, nil
}
