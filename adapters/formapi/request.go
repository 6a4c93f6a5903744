package formapi

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/goliatone/go-release-order/releaseorder"
)

// DefaultMaxBodyBytes bounds JSON request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// Request provides minimal request access for transport adapters.
type Request interface {
	Context() context.Context
	Method() string
	Path() string
	Header(name string) string
	Query(name string) string
	Body() io.ReadCloser
}

// FieldPayload sets one scalar field or one cell.
type FieldPayload struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func decodeFieldPayload(req Request, limit int64) (FieldPayload, error) {
	body := req.Body()
	if body == nil {
		return FieldPayload{}, releaseorder.NewError(releaseorder.KindValidation, "request body is required", nil)
	}
	defer body.Close()

	var payload FieldPayload
	decoder := json.NewDecoder(io.LimitReader(body, limit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		return FieldPayload{}, releaseorder.NewError(releaseorder.KindValidation, "invalid request payload", err)
	}
	payload.Field = strings.TrimSpace(payload.Field)
	if payload.Field == "" {
		return FieldPayload{}, releaseorder.NewError(releaseorder.KindValidation, "field is required", nil)
	}
	return payload, nil
}
