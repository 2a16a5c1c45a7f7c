package messages

import (
	"encoding/json"
	"time"

	"github.com/BearBump/OrderSync/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Envelope types.
const (
	TypeOrderCreated      = "order.created"
	TypeOrderUpdated      = "order.updated"
	TypeAssignmentChanged = "assignment.changed"
	TypeIssueMoved        = "issue.moved"
)

// Envelope carries one inbound webhook delivery from the API to the worker.
// Payload is the body as received.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	StoreID    string          `json:"store_id"`
	ReceivedAt time.Time       `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

func NewEnvelope(typ, storeID string, payload []byte, now time.Time) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Type:       typ,
		StoreID:    storeID,
		ReceivedAt: now.UTC(),
		Payload:    json.RawMessage(payload),
	}
}

// Key partitions by store so a store's events stay ordered.
func (e Envelope) Key() []byte {
	return []byte(e.StoreID)
}

func (e Envelope) Marshal() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "marshal envelope")
	}
	return b, nil
}

func Decode(b []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, errors.Wrap(models.ErrValidation, err.Error())
	}
	if e.Type == "" || e.StoreID == "" {
		return Envelope{}, errors.Wrap(models.ErrValidation, "envelope without type or store")
	}
	return e, nil
}
