package command

import (
	"context"
	"encoding/json"
	"os"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-release-order/releaseorder"
)

// Message is implemented by every release order command.
type Message interface {
	Type() string
	Validate() error
}

// Dispatcher delivers a command to its handler.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// Bus routes commands through the go-command dispatcher. Handlers must be
// subscribed with Register first.
type Bus struct{}

var _ Dispatcher = Bus{}

// Dispatch validates msg and dispatches it by type.
func (Bus) Dispatch(ctx context.Context, msg Message) error {
	if msg == nil {
		return errUnsupported("<nil>")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	switch m := msg.(type) {
	case SetField:
		return dispatcher.Dispatch(ctx, m)
	case AddRow:
		return dispatcher.Dispatch(ctx, m)
	case DeleteRow:
		return dispatcher.Dispatch(ctx, m)
	case SetCellValue:
		return dispatcher.Dispatch(ctx, m)
	case SetCellDate:
		return dispatcher.Dispatch(ctx, m)
	case UploadImage:
		return dispatcher.Dispatch(ctx, m)
	case RemoveImage:
		return dispatcher.Dispatch(ctx, m)
	case LoadSnapshot:
		return dispatcher.Dispatch(ctx, m)
	case ExportPDF:
		return dispatcher.Dispatch(ctx, m)
	default:
		return errUnsupported(msg.Type())
	}
}

// Direct executes handlers in-process without subscriptions.
type Direct struct {
	Handlers *Handlers
}

var _ Dispatcher = Direct{}

// Dispatch validates msg and runs the matching handler.
func (d Direct) Dispatch(ctx context.Context, msg Message) error {
	if d.Handlers == nil {
		return errors.New("command handlers are required", errors.CategoryInternal).
			WithTextCode("HANDLERS_REQUIRED")
	}
	if msg == nil {
		return errUnsupported("<nil>")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	switch m := msg.(type) {
	case SetField:
		return d.Handlers.SetField.Execute(ctx, m)
	case AddRow:
		return d.Handlers.AddRow.Execute(ctx, m)
	case DeleteRow:
		return d.Handlers.DeleteRow.Execute(ctx, m)
	case SetCellValue:
		return d.Handlers.SetCellValue.Execute(ctx, m)
	case SetCellDate:
		return d.Handlers.SetCellDate.Execute(ctx, m)
	case UploadImage:
		return d.Handlers.UploadImage.Execute(ctx, m)
	case RemoveImage:
		return d.Handlers.RemoveImage.Execute(ctx, m)
	case LoadSnapshot:
		return d.Handlers.LoadSnapshot.Execute(ctx, m)
	case ExportPDF:
		return d.Handlers.ExportPDF.Execute(ctx, m)
	default:
		return errUnsupported(msg.Type())
	}
}

// Register subscribes every handler to the go-command dispatcher and adds
// them to reg when one is given.
func Register(reg *gcmd.Registry, h *Handlers) ([]dispatcher.Subscription, error) {
	if h == nil {
		return nil, errors.New("command handlers are required", errors.CategoryValidation).
			WithTextCode("HANDLERS_REQUIRED")
	}

	subscriptions := []dispatcher.Subscription{
		dispatcher.SubscribeCommand(h.SetField),
		dispatcher.SubscribeCommand(h.AddRow),
		dispatcher.SubscribeCommand(h.DeleteRow),
		dispatcher.SubscribeCommand(h.SetCellValue),
		dispatcher.SubscribeCommand(h.SetCellDate),
		dispatcher.SubscribeCommand(h.UploadImage),
		dispatcher.SubscribeCommand(h.RemoveImage),
		dispatcher.SubscribeCommand(h.LoadSnapshot),
		dispatcher.SubscribeCommand(h.ExportPDF),
	}

	if reg != nil {
		handlers := []any{
			h.SetField,
			h.AddRow,
			h.DeleteRow,
			h.SetCellValue,
			h.SetCellDate,
			h.UploadImage,
			h.RemoveImage,
			h.LoadSnapshot,
			h.ExportPDF,
		}
		for _, handler := range handlers {
			if err := reg.RegisterCommand(handler); err != nil {
				return subscriptions, err
			}
		}
	}
	return subscriptions, nil
}

// ReadSnapshotFile loads a form snapshot from a JSON file.
func ReadSnapshotFile(path string) (releaseorder.Snapshot, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return releaseorder.Snapshot{}, errors.Wrap(err, errors.CategoryExternal, "read snapshot file failed").
			WithTextCode("SNAPSHOT_FILE_READ")
	}
	var snapshot releaseorder.Snapshot
	if err := json.Unmarshal(content, &snapshot); err != nil {
		return releaseorder.Snapshot{}, errors.Wrap(err, errors.CategoryValidation, "snapshot file invalid JSON").
			WithTextCode("SNAPSHOT_FILE_INVALID")
	}
	return snapshot, nil
}

func errUnsupported(name string) error {
	return errors.New("unsupported command "+name, errors.CategoryInternal).
		WithTextCode("COMMAND_UNSUPPORTED")
}
