package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrMissingUserID = errors.New("household synced message: missing user id")

// HouseholdSyncedMessage announces that a household document was written.
// It carries only the key and version; consumers read the document from the
// store themselves.
type HouseholdSyncedMessage struct {
	UserID    string    `json:"userId"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewHouseholdSyncedMessage(userID string, version int64) *HouseholdSyncedMessage {
	return &HouseholdSyncedMessage{
		UserID:    userID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *HouseholdSyncedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// HouseholdSyncedMessageFromJSON decodes and validates a message body.
func HouseholdSyncedMessageFromJSON(data []byte) (*HouseholdSyncedMessage, error) {
	var msg HouseholdSyncedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, ErrMissingUserID
	}
	return &msg, nil
}
