package command

import (
	"io"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-release-order/releaseorder"
)

// SetField replaces a scalar form field.
type SetField struct {
	Field string
	Value string
}

func (SetField) Type() string { return "release_order:set_field" }

func (msg SetField) Validate() error {
	if _, ok := releaseorder.ParseField(msg.Field); !ok {
		return errors.New("unknown form field "+msg.Field, errors.CategoryValidation).
			WithTextCode("FIELD_UNKNOWN")
	}
	return nil
}

// AddRow appends a blank line item. Result receives the new row count.
type AddRow struct {
	Result *int
}

func (AddRow) Type() string { return "release_order:add_row" }

func (AddRow) Validate() error { return nil }

// DeleteRow removes a line item.
type DeleteRow struct {
	Index int
}

func (DeleteRow) Type() string { return "release_order:delete_row" }

func (msg DeleteRow) Validate() error {
	if msg.Index < 0 {
		return errors.New("row index must not be negative", errors.CategoryValidation).
			WithTextCode("ROW_INDEX_INVALID")
	}
	return nil
}

// SetCellValue replaces one text column of a line item.
type SetCellValue struct {
	Index  int
	Column string
	Value  string
}

func (SetCellValue) Type() string { return "release_order:set_cell_value" }

func (msg SetCellValue) Validate() error {
	if msg.Index < 0 {
		return errors.New("row index must not be negative", errors.CategoryValidation).
			WithTextCode("ROW_INDEX_INVALID")
	}
	column, ok := releaseorder.ParseCellField(msg.Column)
	if !ok {
		return errors.New("unknown column "+msg.Column, errors.CategoryValidation).
			WithTextCode("COLUMN_UNKNOWN")
	}
	if !column.IsText() {
		return errors.New("column "+msg.Column+" is not a text column", errors.CategoryValidation).
			WithTextCode("COLUMN_NOT_TEXT")
	}
	return nil
}

// SetCellDate replaces the scheduled date of a line item. An empty date
// clears it.
type SetCellDate struct {
	Index int
	Date  string
}

func (SetCellDate) Type() string { return "release_order:set_cell_date" }

func (msg SetCellDate) Validate() error {
	if msg.Index < 0 {
		return errors.New("row index must not be negative", errors.CategoryValidation).
			WithTextCode("ROW_INDEX_INVALID")
	}
	if msg.Date == "" {
		return nil
	}
	if _, ok := releaseorder.ParseDate(msg.Date); !ok {
		return errors.New("invalid date "+msg.Date, errors.CategoryValidation).
			WithTextCode("DATE_INVALID")
	}
	return nil
}

// UploadImage stores an image for the company logo or stamp slot.
type UploadImage struct {
	Slot     string
	Filename string
	Data     io.Reader
	Result   *releaseorder.ImageAsset
}

func (UploadImage) Type() string { return "release_order:upload_image" }

func (msg UploadImage) Validate() error {
	if _, ok := releaseorder.ParseImageSlot(msg.Slot); !ok {
		return errors.New("unknown image slot "+msg.Slot, errors.CategoryValidation).
			WithTextCode("SLOT_UNKNOWN")
	}
	if msg.Data == nil {
		return errors.New("image data is required", errors.CategoryValidation).
			WithTextCode("IMAGE_REQUIRED")
	}
	return nil
}

// RemoveImage resets an image slot to its placeholder.
type RemoveImage struct {
	Slot string
}

func (RemoveImage) Type() string { return "release_order:remove_image" }

func (msg RemoveImage) Validate() error {
	if _, ok := releaseorder.ParseImageSlot(msg.Slot); !ok {
		return errors.New("unknown image slot "+msg.Slot, errors.CategoryValidation).
			WithTextCode("SLOT_UNKNOWN")
	}
	return nil
}

// LoadSnapshot replaces the form contents. Data URL images in the snapshot
// are stored in their slots.
type LoadSnapshot struct {
	Snapshot releaseorder.Snapshot
}

func (LoadSnapshot) Type() string { return "release_order:load_snapshot" }

func (LoadSnapshot) Validate() error { return nil }

// ExportPDF renders the form to a PDF written to Output.
type ExportPDF struct {
	Output  io.Writer
	Options releaseorder.ExportOptions
	Result  *releaseorder.ExportResult
}

func (ExportPDF) Type() string { return "release_order:export_pdf" }

func (msg ExportPDF) Validate() error {
	if msg.Output == nil {
		return errors.New("output writer is required", errors.CategoryValidation).
			WithTextCode("OUTPUT_REQUIRED")
	}
	return nil
}
