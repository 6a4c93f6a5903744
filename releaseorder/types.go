package releaseorder

import (
	"context"
	"strings"
)

// Field names a scalar form field.
type Field string

const (
	FieldOrderNumber     Field = "order_number"
	FieldOrderDate       Field = "order_date"
	FieldClientName      Field = "client_name"
	FieldManagerAddress1 Field = "manager_address_1"
	FieldManagerAddress2 Field = "manager_address_2"
	FieldCaption         Field = "caption"
	FieldPackageName     Field = "package_name"
	FieldMatter          Field = "matter"
)

// Fields lists scalar fields in display order.
var Fields = []Field{
	FieldOrderNumber,
	FieldOrderDate,
	FieldClientName,
	FieldManagerAddress1,
	FieldManagerAddress2,
	FieldCaption,
	FieldPackageName,
	FieldMatter,
}

// ParseField resolves a field name, accepting camelCase and dashed aliases.
func ParseField(name string) (Field, bool) {
	normalized := normalizeName(name)
	for _, field := range Fields {
		if normalizeName(string(field)) == normalized {
			return field, true
		}
	}
	return "", false
}

// FormFields holds the scalar values of the form.
type FormFields struct {
	OrderNumber     string `json:"order_number"`
	OrderDate       string `json:"order_date"`
	ClientName      string `json:"client_name"`
	ManagerAddress1 string `json:"manager_address_1"`
	ManagerAddress2 string `json:"manager_address_2"`
	Caption         string `json:"caption"`
	PackageName     string `json:"package_name"`
	Matter          string `json:"matter"`
}

// Get returns the value of a field.
func (f FormFields) Get(field Field) (string, bool) {
	switch field {
	case FieldOrderNumber:
		return f.OrderNumber, true
	case FieldOrderDate:
		return f.OrderDate, true
	case FieldClientName:
		return f.ClientName, true
	case FieldManagerAddress1:
		return f.ManagerAddress1, true
	case FieldManagerAddress2:
		return f.ManagerAddress2, true
	case FieldCaption:
		return f.Caption, true
	case FieldPackageName:
		return f.PackageName, true
	case FieldMatter:
		return f.Matter, true
	default:
		return "", false
	}
}

func (f *FormFields) set(field Field, value string) bool {
	switch field {
	case FieldOrderNumber:
		f.OrderNumber = value
	case FieldOrderDate:
		f.OrderDate = value
	case FieldClientName:
		f.ClientName = value
	case FieldManagerAddress1:
		f.ManagerAddress1 = value
	case FieldManagerAddress2:
		f.ManagerAddress2 = value
	case FieldCaption:
		f.Caption = value
	case FieldPackageName:
		f.PackageName = value
	case FieldMatter:
		f.Matter = value
	default:
		return false
	}
	return true
}

// CellField names a line item column.
type CellField string

const (
	CellKeyNumber     CellField = "key_number"
	CellPublication   CellField = "publication"
	CellEdition       CellField = "edition"
	CellSize          CellField = "size"
	CellPosition      CellField = "position"
	CellScheduledDate CellField = "scheduled_date"
)

// CellFields lists line item columns in display order.
var CellFields = []CellField{
	CellKeyNumber,
	CellPublication,
	CellEdition,
	CellSize,
	CellPosition,
	CellScheduledDate,
}

// ParseCellField resolves a column name, accepting camelCase and dashed aliases.
func ParseCellField(name string) (CellField, bool) {
	normalized := normalizeName(name)
	for _, field := range CellFields {
		if normalizeName(string(field)) == normalized {
			return field, true
		}
	}
	return "", false
}

// IsText reports whether the column holds free-form text.
func (c CellField) IsText() bool {
	switch c {
	case CellKeyNumber, CellPublication, CellEdition, CellSize, CellPosition:
		return true
	default:
		return false
	}
}

// LineItem is one row of the schedule table.
type LineItem struct {
	KeyNumber     string `json:"key_number"`
	Publication   string `json:"publication"`
	Edition       string `json:"edition"`
	Size          string `json:"size"`
	Position      string `json:"position"`
	ScheduledDate string `json:"scheduled_date"`
}

// IsBlank reports whether every column is empty.
func (l LineItem) IsBlank() bool {
	return l == LineItem{}
}

// Get returns the value of a column.
func (l LineItem) Get(field CellField) (string, bool) {
	switch field {
	case CellKeyNumber:
		return l.KeyNumber, true
	case CellPublication:
		return l.Publication, true
	case CellEdition:
		return l.Edition, true
	case CellSize:
		return l.Size, true
	case CellPosition:
		return l.Position, true
	case CellScheduledDate:
		return l.ScheduledDate, true
	default:
		return "", false
	}
}

func (l *LineItem) set(field CellField, value string) bool {
	switch field {
	case CellKeyNumber:
		l.KeyNumber = value
	case CellPublication:
		l.Publication = value
	case CellEdition:
		l.Edition = value
	case CellSize:
		l.Size = value
	case CellPosition:
		l.Position = value
	case CellScheduledDate:
		l.ScheduledDate = value
	default:
		return false
	}
	return true
}

// ImageSlot identifies one of the two uploadable images.
type ImageSlot string

const (
	SlotCompanyLogo ImageSlot = "company_logo"
	SlotStamp       ImageSlot = "stamp"
)

// ImageSlots lists the uploadable image slots.
var ImageSlots = []ImageSlot{SlotCompanyLogo, SlotStamp}

// Storage keys for persisted images.
const (
	StorageKeyCompanyLogo = "uploadedCompanyLogo"
	StorageKeyStamp       = "uploadedStampImage"
)

// StorageKey returns the persistence key for the slot.
func (s ImageSlot) StorageKey() string {
	switch s {
	case SlotCompanyLogo:
		return StorageKeyCompanyLogo
	case SlotStamp:
		return StorageKeyStamp
	default:
		return ""
	}
}

// ParseImageSlot resolves a slot name, accepting "logo" as an alias.
func ParseImageSlot(name string) (ImageSlot, bool) {
	switch normalizeName(name) {
	case "companylogo", "logo":
		return SlotCompanyLogo, true
	case "stamp", "stampimage":
		return SlotStamp, true
	default:
		return "", false
	}
}

// ImageAsset holds an image as a data URL or the placeholder URL.
type ImageAsset struct {
	Slot ImageSlot `json:"slot"`
	URL  string    `json:"url"`
}

// IsPlaceholder reports whether no image was uploaded for the slot.
func (a ImageAsset) IsPlaceholder() bool {
	return a.URL == "" || a.URL == PlaceholderURL(a.Slot)
}

// Snapshot is an immutable copy of the form state.
type Snapshot struct {
	Fields      FormFields `json:"fields"`
	Items       []LineItem `json:"items"`
	CompanyLogo ImageAsset `json:"company_logo"`
	Stamp       ImageAsset `json:"stamp"`
}

// Image returns the asset for the slot.
func (s Snapshot) Image(slot ImageSlot) ImageAsset {
	if slot == SlotStamp {
		return s.Stamp
	}
	return s.CompanyLogo
}

// AssetStore persists image data URLs by key.
type AssetStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Logger provides logging hooks.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger is a no-op logger.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(name)
}
