package amqp

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// MaxSyncLimit caps how many Splitwise expenses one request may fetch.
const MaxSyncLimit = 1000

// SyncRequestMessage asks the worker to import recent Splitwise expenses.
// Limit 0 means the worker's configured default.
type SyncRequestMessage struct {
	RequestID string    `json:"request_id"`
	Limit     int       `json:"limit"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSyncRequestMessage(limit int) *SyncRequestMessage {
	return &SyncRequestMessage{
		RequestID: newRequestID(),
		Limit:     limit,
		Timestamp: time.Now(),
	}
}

func (m *SyncRequestMessage) Validate() error {
	if m.RequestID == "" {
		return fmt.Errorf("sync request: missing request id")
	}
	if m.Limit < 0 || m.Limit > MaxSyncLimit {
		return fmt.Errorf("sync request %s: limit %d out of range 0-%d", m.RequestID, m.Limit, MaxSyncLimit)
	}
	return nil
}

func (m *SyncRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncRequestMessageFromJSON decodes and validates a message body.
func SyncRequestMessageFromJSON(data []byte) (*SyncRequestMessage, error) {
	var msg SyncRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

func newRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
