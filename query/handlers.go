package query

import (
	"context"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-release-order/releaseorder"
)

// FormStateHandler returns the live form snapshot.
type FormStateHandler struct {
	Pipeline *releaseorder.Pipeline
}

func NewFormStateHandler(pipeline *releaseorder.Pipeline) *FormStateHandler {
	return &FormStateHandler{Pipeline: pipeline}
}

func (h *FormStateHandler) Query(ctx context.Context, msg FormState) (releaseorder.Snapshot, error) {
	if h == nil || h.Pipeline == nil {
		return releaseorder.Snapshot{}, errors.New("export pipeline is required", errors.CategoryInternal).
			WithTextCode("PIPELINE_REQUIRED")
	}
	return h.Pipeline.Snapshot(), nil
}

// ExportHistoryHandler lists recorded exports.
type ExportHistoryHandler struct {
	History releaseorder.ExportHistory
}

func NewExportHistoryHandler(history releaseorder.ExportHistory) *ExportHistoryHandler {
	return &ExportHistoryHandler{History: history}
}

func (h *ExportHistoryHandler) Query(ctx context.Context, msg ExportHistory) ([]releaseorder.ExportRecord, error) {
	if h == nil || h.History == nil {
		return nil, releaseorder.NewError(releaseorder.KindNotImpl, "export history not configured", nil)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	limit := msg.Limit
	if limit == 0 {
		limit = MaxHistoryLimit
	}
	return h.History.List(ctx, limit)
}

// Register subscribes the query handlers to the go-command dispatcher.
func Register(reg *gcmd.Registry, state *FormStateHandler, history *ExportHistoryHandler) ([]dispatcher.Subscription, error) {
	subscriptions := []dispatcher.Subscription{}
	handlers := []any{}
	if state != nil {
		subscriptions = append(subscriptions, dispatcher.SubscribeQuery(state))
		handlers = append(handlers, state)
	}
	if history != nil {
		subscriptions = append(subscriptions, dispatcher.SubscribeQuery(history))
		handlers = append(handlers, history)
	}
	if reg != nil {
		for _, handler := range handlers {
			if err := reg.RegisterCommand(handler); err != nil {
				return subscriptions, err
			}
		}
	}
	return subscriptions, nil
}
