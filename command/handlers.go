package command

import (
	"bytes"
	"context"
	"strings"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-release-order/releaseorder"
)

// SetFieldHandler updates scalar form fields.
type SetFieldHandler struct {
	Form *releaseorder.Form
}

func NewSetFieldHandler(form *releaseorder.Form) *SetFieldHandler {
	return &SetFieldHandler{Form: form}
}

func (h *SetFieldHandler) Execute(ctx context.Context, msg SetField) error {
	if h == nil || h.Form == nil {
		return errFormRequired()
	}
	field, ok := releaseorder.ParseField(msg.Field)
	if !ok {
		return msg.Validate()
	}
	return h.Form.SetField(field, msg.Value)
}

// AddRowHandler appends line items.
type AddRowHandler struct {
	Form *releaseorder.Form
}

func NewAddRowHandler(form *releaseorder.Form) *AddRowHandler {
	return &AddRowHandler{Form: form}
}

func (h *AddRowHandler) Execute(ctx context.Context, msg AddRow) error {
	if h == nil || h.Form == nil {
		return errFormRequired()
	}
	count := h.Form.AddRow()
	if msg.Result != nil {
		*msg.Result = count
	}
	if res := gcmd.ResultFromContext[int](ctx); res != nil {
		res.Store(count)
	}
	return nil
}

// DeleteRowHandler removes line items.
type DeleteRowHandler struct {
	Form *releaseorder.Form
}

func NewDeleteRowHandler(form *releaseorder.Form) *DeleteRowHandler {
	return &DeleteRowHandler{Form: form}
}

func (h *DeleteRowHandler) Execute(ctx context.Context, msg DeleteRow) error {
	if h == nil || h.Form == nil {
		return errFormRequired()
	}
	return h.Form.DeleteRow(msg.Index)
}

// SetCellValueHandler updates text columns.
type SetCellValueHandler struct {
	Form *releaseorder.Form
}

func NewSetCellValueHandler(form *releaseorder.Form) *SetCellValueHandler {
	return &SetCellValueHandler{Form: form}
}

func (h *SetCellValueHandler) Execute(ctx context.Context, msg SetCellValue) error {
	if h == nil || h.Form == nil {
		return errFormRequired()
	}
	column, ok := releaseorder.ParseCellField(msg.Column)
	if !ok {
		return msg.Validate()
	}
	return h.Form.SetCellValue(msg.Index, column, msg.Value)
}

// SetCellDateHandler updates scheduled dates.
type SetCellDateHandler struct {
	Form *releaseorder.Form
}

func NewSetCellDateHandler(form *releaseorder.Form) *SetCellDateHandler {
	return &SetCellDateHandler{Form: form}
}

func (h *SetCellDateHandler) Execute(ctx context.Context, msg SetCellDate) error {
	if h == nil || h.Form == nil {
		return errFormRequired()
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	date, _ := releaseorder.ParseDate(msg.Date)
	return h.Form.SetCellDate(msg.Index, date)
}

// UploadImageHandler stores uploaded images.
type UploadImageHandler struct {
	Images *releaseorder.ImageService
}

func NewUploadImageHandler(images *releaseorder.ImageService) *UploadImageHandler {
	return &UploadImageHandler{Images: images}
}

func (h *UploadImageHandler) Execute(ctx context.Context, msg UploadImage) error {
	if h == nil || h.Images == nil {
		return errImagesRequired()
	}
	slot, ok := releaseorder.ParseImageSlot(msg.Slot)
	if !ok {
		return msg.Validate()
	}
	asset, err := h.Images.Upload(ctx, slot, msg.Filename, msg.Data)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = asset
	}
	if res := gcmd.ResultFromContext[releaseorder.ImageAsset](ctx); res != nil {
		res.Store(asset)
	}
	return nil
}

// RemoveImageHandler clears uploaded images.
type RemoveImageHandler struct {
	Images *releaseorder.ImageService
}

func NewRemoveImageHandler(images *releaseorder.ImageService) *RemoveImageHandler {
	return &RemoveImageHandler{Images: images}
}

func (h *RemoveImageHandler) Execute(ctx context.Context, msg RemoveImage) error {
	if h == nil || h.Images == nil {
		return errImagesRequired()
	}
	slot, ok := releaseorder.ParseImageSlot(msg.Slot)
	if !ok {
		return msg.Validate()
	}
	return h.Images.Remove(ctx, slot)
}

// LoadSnapshotHandler replaces the whole form, e.g. from a snapshot file.
type LoadSnapshotHandler struct {
	Form   *releaseorder.Form
	Images *releaseorder.ImageService
}

func NewLoadSnapshotHandler(form *releaseorder.Form, images *releaseorder.ImageService) *LoadSnapshotHandler {
	return &LoadSnapshotHandler{Form: form, Images: images}
}

func (h *LoadSnapshotHandler) Execute(ctx context.Context, msg LoadSnapshot) error {
	if h == nil || h.Form == nil {
		return errFormRequired()
	}
	if h.Images == nil {
		h.Form.Load(msg.Snapshot)
		return nil
	}

	uploads := make(map[releaseorder.ImageSlot][]byte, len(releaseorder.ImageSlots))
	for _, slot := range releaseorder.ImageSlots {
		url := msg.Snapshot.Image(slot).URL
		if !strings.HasPrefix(url, "data:") {
			continue
		}
		_, data, err := releaseorder.DecodeDataURL(url)
		if err != nil {
			return err
		}
		if _, err := h.Images.Validate(data); err != nil {
			return err
		}
		uploads[slot] = data
	}

	h.Form.Load(msg.Snapshot)
	for _, slot := range releaseorder.ImageSlots {
		data, ok := uploads[slot]
		if !ok {
			if err := h.Images.Remove(ctx, slot); err != nil {
				return err
			}
			continue
		}
		if _, err := h.Images.Upload(ctx, slot, "snapshot", bytes.NewReader(data)); err != nil {
			return err
		}
	}
	return nil
}

// ExportPDFHandler runs PDF exports.
type ExportPDFHandler struct {
	Pipeline *releaseorder.Pipeline
}

func NewExportPDFHandler(pipeline *releaseorder.Pipeline) *ExportPDFHandler {
	return &ExportPDFHandler{Pipeline: pipeline}
}

func (h *ExportPDFHandler) Execute(ctx context.Context, msg ExportPDF) error {
	if h == nil || h.Pipeline == nil {
		return errors.New("export pipeline is required", errors.CategoryInternal).
			WithTextCode("PIPELINE_REQUIRED")
	}
	result, err := h.Pipeline.ExportPDF(ctx, msg.Output, msg.Options)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = result
	}
	if res := gcmd.ResultFromContext[releaseorder.ExportResult](ctx); res != nil {
		res.Store(result)
	}
	return nil
}

// Handlers groups the handlers for one form.
type Handlers struct {
	SetField     *SetFieldHandler
	AddRow       *AddRowHandler
	DeleteRow    *DeleteRowHandler
	SetCellValue *SetCellValueHandler
	SetCellDate  *SetCellDateHandler
	UploadImage  *UploadImageHandler
	RemoveImage  *RemoveImageHandler
	LoadSnapshot *LoadSnapshotHandler
	ExportPDF    *ExportPDFHandler
}

// NewHandlers builds every handler over the pipeline's form and images.
func NewHandlers(pipeline *releaseorder.Pipeline) *Handlers {
	var (
		form   *releaseorder.Form
		images *releaseorder.ImageService
	)
	if pipeline != nil {
		form, images = pipeline.Form, pipeline.Images
	}
	return &Handlers{
		SetField:     NewSetFieldHandler(form),
		AddRow:       NewAddRowHandler(form),
		DeleteRow:    NewDeleteRowHandler(form),
		SetCellValue: NewSetCellValueHandler(form),
		SetCellDate:  NewSetCellDateHandler(form),
		UploadImage:  NewUploadImageHandler(images),
		RemoveImage:  NewRemoveImageHandler(images),
		LoadSnapshot: NewLoadSnapshotHandler(form, images),
		ExportPDF:    NewExportPDFHandler(pipeline),
	}
}

func errFormRequired() error {
	return errors.New("form is required", errors.CategoryInternal).
		WithTextCode("FORM_REQUIRED")
}

func errImagesRequired() error {
	return errors.New("image service is required", errors.CategoryInternal).
		WithTextCode("IMAGES_REQUIRED")
}
