package releasestorefs

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-release-order/releaseorder"
)

// AssetMeta is written next to every stored image.
type AssetMeta struct {
	Key         string    `json:"key"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store persists uploaded images as plain files under Root. Values are
// data URLs on the way in and out; on disk they are the decoded image plus
// a JSON sidecar.
type Store struct {
	Root string
	Now  func() time.Time
}

var _ releaseorder.AssetStore = (*Store)(nil)

// NewStore creates a filesystem-backed asset store.
func NewStore(root string) *Store {
	return &Store{Root: root, Now: time.Now}
}

// Get returns the data URL stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	if err := s.check(key); err != nil {
		return "", false, err
	}
	base, err := s.resolvePath(key)
	if err != nil {
		return "", false, err
	}

	meta, ok, err := s.readMeta(base)
	if err != nil || !ok {
		return "", false, err
	}
	dataPath, err := s.resolvePath(path.Join(path.Dir(key), meta.Filename))
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(dataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, releaseorder.NewError(releaseorder.KindInternal, fmt.Sprintf("read asset %q", key), err)
	}

	contentType := meta.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(dataPath))
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return releaseorder.EncodeDataURL(contentType, data), true, nil
}

// Set decodes the data URL and writes it atomically, replacing any previous
// file stored under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_ = ctx
	if err := s.check(key); err != nil {
		return err
	}
	contentType, data, err := releaseorder.DecodeDataURL(value)
	if err != nil {
		return err
	}
	base, err := s.resolvePath(key)
	if err != nil {
		return err
	}

	previous, hadPrevious, _ := s.readMeta(base)

	filename := path.Base(key) + extensionFor(contentType)
	dataPath := filepath.Join(filepath.Dir(base), filename)
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return releaseorder.NewError(releaseorder.KindInternal, "create asset directory", err)
	}
	if err := writeAtomic(dataPath, data); err != nil {
		return releaseorder.NewError(releaseorder.KindInternal, fmt.Sprintf("write asset %q", key), err)
	}

	meta := AssetMeta{
		Key:         key,
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		UpdatedAt:   s.now(),
	}
	if err := s.writeMeta(base, meta); err != nil {
		return releaseorder.NewError(releaseorder.KindInternal, fmt.Sprintf("write asset %q metadata", key), err)
	}
	if hadPrevious && previous.Filename != "" && previous.Filename != filename {
		_ = os.Remove(filepath.Join(filepath.Dir(base), previous.Filename))
	}
	return nil
}

// Delete removes the file stored under key. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	_ = ctx
	if err := s.check(key); err != nil {
		return err
	}
	base, err := s.resolvePath(key)
	if err != nil {
		return err
	}
	if meta, ok, _ := s.readMeta(base); ok && meta.Filename != "" {
		_ = os.Remove(filepath.Join(filepath.Dir(base), meta.Filename))
	}
	_ = os.Remove(metaPath(base))
	return nil
}

func (s *Store) check(key string) error {
	if s == nil {
		return releaseorder.NewError(releaseorder.KindInternal, "store is nil", nil)
	}
	if s.Root == "" {
		return releaseorder.NewError(releaseorder.KindValidation, "store root is required", nil)
	}
	if key == "" {
		return releaseorder.NewError(releaseorder.KindValidation, "asset key is required", nil)
	}
	return nil
}

func (s *Store) resolvePath(key string) (string, error) {
	clean := path.Clean("/" + key)
	rel := strings.TrimPrefix(clean, "/")
	if rel == "" || rel == "." {
		return "", releaseorder.NewError(releaseorder.KindValidation, "invalid asset key", nil)
	}

	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	target := filepath.Join(root, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) && target != root {
		return "", releaseorder.NewError(releaseorder.KindValidation, "asset key escapes root", nil)
	}
	return target, nil
}

func (s *Store) writeMeta(base string, meta AssetMeta) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return writeAtomic(metaPath(base), payload)
}

func (s *Store) readMeta(base string) (AssetMeta, bool, error) {
	data, err := os.ReadFile(metaPath(base))
	if err != nil {
		if os.IsNotExist(err) {
			return AssetMeta{}, false, nil
		}
		return AssetMeta{}, false, releaseorder.NewError(releaseorder.KindInternal, "read asset metadata", err)
	}
	var meta AssetMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return AssetMeta{}, false, releaseorder.NewError(releaseorder.KindInternal, "decode asset metadata", err)
	}
	return meta, true, nil
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func writeAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".asset-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

var preferredExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

func extensionFor(contentType string) string {
	if ext, ok := preferredExtensions[strings.ToLower(contentType)]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func metaPath(base string) string {
	return base + ".meta.json"
}
