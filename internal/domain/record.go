package domain

import (
	"encoding/json"
	"time"
)

// LocalRecord is a patient record kept on this workstation. ID is either the
// server-assigned id or a local id (see NewLocalID) for records that were
// captured while the remote API was unreachable.
type LocalRecord struct {
	ID         string          `json:"id"`
	NaturalKey string          `json:"identificacion,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	Timestamp  int64           `json:"timestamp"`
	Synced     bool            `json:"synced"`
}

// StampedAt returns the record's last-write time.
func (r LocalRecord) StampedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// IsLocal reports whether the record carries a locally generated id.
func (r LocalRecord) IsLocal() bool {
	return IsLocalID(r.ID)
}
