package amqp

import (
	"encoding/json"
	"time"
)

// InvoiceSyncMessage is a lightweight message asking the worker to sync one
// invoice to the spreadsheet. It carries only the id; the worker fetches the
// full bundle from the database.
type InvoiceSyncMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewInvoiceSyncMessage creates a new sync message for the given invoice id.
func NewInvoiceSyncMessage(id string) *InvoiceSyncMessage {
	return &InvoiceSyncMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *InvoiceSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InvoiceSyncMessageFromJSON creates a message from JSON bytes
func InvoiceSyncMessageFromJSON(data []byte) (*InvoiceSyncMessage, error) {
	var msg InvoiceSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
