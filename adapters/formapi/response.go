package formapi

import (
	"io"

	"github.com/goliatone/go-release-order/releaseorder"
)

// Response provides a minimal response interface for transport adapters.
type Response interface {
	SetHeader(name, value string)
	DelHeader(name string)
	WriteHeader(status int)
	Write(data []byte) (int, error)
	WriteJSON(status int, payload any) error
	Writer() (io.Writer, bool)
}

// StateResponse describes the live form.
type StateResponse struct {
	Snapshot  releaseorder.Snapshot `json:"snapshot"`
	Rows      int                   `json:"rows"`
	Exporting bool                  `json:"exporting"`
}

// HistoryResponse lists recorded exports.
type HistoryResponse struct {
	Exports []releaseorder.ExportRecord `json:"exports"`
}

// ErrorResponse describes JSON error responses.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains error details.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
