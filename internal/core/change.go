package core

import (
	"encoding/json"
	"time"
)

type ChangeOp string

const (
	ChangeCreated ChangeOp = "created"
	ChangeDeleted ChangeOp = "deleted"
)

// Change describes one confirmed mutation of a principal's collection.
type Change struct {
	Op        ChangeOp        `json:"op"`
	Kind      Kind            `json:"kind"`
	ID        string          `json:"id"`
	Principal Principal       `json:"principal"`
	At        time.Time       `json:"at"`
	Record    json.RawMessage `json:"record,omitempty"` // set for creations only
}

// NewChange builds a Change for record, serializing it when op creates it.
func NewChange[T Entity[T]](op ChangeOp, kind Kind, p Principal, id string, record *T) Change {
	c := Change{Op: op, Kind: kind, ID: id, Principal: p, At: time.Now().UTC()}
	if record != nil {
		if b, err := json.Marshal(record); err == nil {
			c.Record = b
		}
	}
	return c
}
