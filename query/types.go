package query

import (
	"github.com/goliatone/go-errors"
)

// MaxHistoryLimit caps a single history listing.
const MaxHistoryLimit = 200

// FormState requests a snapshot of the live form.
type FormState struct{}

func (FormState) Type() string { return "release_order:state" }

func (FormState) Validate() error { return nil }

// ExportHistory requests the most recent PDF exports, newest first.
type ExportHistory struct {
	Limit int
}

func (ExportHistory) Type() string { return "release_order:export_history" }

func (msg ExportHistory) Validate() error {
	if msg.Limit < 0 {
		return errors.New("limit must not be negative", errors.CategoryValidation).
			WithTextCode("LIMIT_INVALID")
	}
	if msg.Limit > MaxHistoryLimit {
		return errors.New("limit exceeds maximum", errors.CategoryValidation).
			WithTextCode("LIMIT_TOO_LARGE")
	}
	return nil
}
