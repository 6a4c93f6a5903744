package releaseorder

import (
	"fmt"
	"sync"
	"time"
)

// Form is the form state store: scalar fields plus the line item sequence.
// The sequence always holds at least one row.
type Form struct {
	mu     sync.RWMutex
	fields FormFields
	items  []LineItem
}

// NewForm creates a form with one blank row.
func NewForm() *Form {
	return &Form{items: []LineItem{{}}}
}

// SetField replaces a scalar field value. Values are stored as given.
func (f *Form) SetField(field Field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.fields.set(field, value) {
		return NewError(KindValidation, fmt.Sprintf("unknown field %q", field), nil)
	}
	return nil
}

// Field returns a scalar field value.
func (f *Form) Field(field Field) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fields.Get(field)
}

// AddRow appends a blank line item and returns the new row count.
func (f *Form) AddRow() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureLocked()
	f.items = append(f.items, LineItem{})
	return len(f.items)
}

// DeleteRow removes the row at index. Removing the last remaining row leaves
// a single blank row.
func (f *Form) DeleteRow(index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkIndex(index); err != nil {
		return err
	}
	if len(f.items) == 1 {
		f.items = []LineItem{{}}
		return nil
	}
	items := make([]LineItem, 0, len(f.items)-1)
	items = append(items, f.items[:index]...)
	items = append(items, f.items[index+1:]...)
	f.items = items
	return nil
}

// SetCellValue replaces one text column of one row.
func (f *Form) SetCellValue(index int, field CellField, value string) error {
	if !field.IsText() {
		return NewError(KindValidation, fmt.Sprintf("column %q is not a text column", field), nil)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkIndex(index); err != nil {
		return err
	}
	f.items[index].set(field, value)
	return nil
}

// SetCellDate replaces the scheduled date of one row. A zero date clears it.
func (f *Form) SetCellDate(index int, date time.Time) error {
	value := ""
	if !date.IsZero() {
		value = date.Format(isoDateLayout)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkIndex(index); err != nil {
		return err
	}
	f.items[index].ScheduledDate = value
	return nil
}

// Rows returns a copy of the line items.
func (f *Form) Rows() []LineItem {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.copyItems()
}

// Len returns the number of line items.
func (f *Form) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return max(len(f.items), 1)
}

// Fields returns a copy of the scalar fields.
func (f *Form) Fields() FormFields {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fields
}

// Snapshot returns a deep copy of the form state. Image assets are filled
// in by ImageService.Fill.
func (f *Form) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return Snapshot{
		Fields: f.fields,
		Items:  f.copyItems(),
	}
}

// Load replaces fields and rows with the snapshot contents.
func (f *Form) Load(snapshot Snapshot) {
	items := append([]LineItem(nil), snapshot.Items...)
	if len(items) == 0 {
		items = []LineItem{{}}
	}
	f.mu.Lock()
	f.fields = snapshot.Fields
	f.items = items
	f.mu.Unlock()
}

func (f *Form) checkIndex(index int) error {
	f.ensureLocked()
	if index < 0 || index >= len(f.items) {
		return NewError(KindValidation, fmt.Sprintf("row index %d out of range [0,%d)", index, len(f.items)), nil)
	}
	return nil
}

func (f *Form) ensureLocked() {
	if len(f.items) == 0 {
		f.items = []LineItem{{}}
	}
}

func (f *Form) copyItems() []LineItem {
	if len(f.items) == 0 {
		return []LineItem{{}}
	}
	return append([]LineItem(nil), f.items...)
}
