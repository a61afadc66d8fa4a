package domain

import (
	"encoding/json"
	"net/http"
)

// OperationType is the kind of deferred remote write.
type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
)

func (t OperationType) String() string { return string(t) }

func (t OperationType) IsValid() bool {
	switch t {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// Method returns the HTTP method used to replay an operation of this type.
func (t OperationType) Method() string {
	switch t {
	case OperationCreate:
		return http.MethodPost
	case OperationUpdate:
		return http.MethodPut
	case OperationDelete:
		return http.MethodDelete
	}
	return ""
}

// PendingOperation is a remote write that has not been confirmed yet.
// IDs are assigned by storage and grow monotonically, so ascending ID order
// is enqueue order.
type PendingOperation struct {
	ID        int64           `json:"id"`
	Type      OperationType   `json:"type"`
	Endpoint  string          `json:"endpoint"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// RecordID returns the "id" carried by the operation data, if any.
func (op PendingOperation) RecordID() (string, bool) {
	var ref struct {
		ID string `json:"id"`
	}
	if len(op.Data) == 0 || json.Unmarshal(op.Data, &ref) != nil || ref.ID == "" {
		return "", false
	}
	return ref.ID, true
}
