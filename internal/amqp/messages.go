package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// SheetImportedMessage announces a stored sheet. Consumers load the rows
// from storage by SheetID.
type SheetImportedMessage struct {
	SheetID   string    `json:"sheet_id"`
	SheetName string    `json:"sheet_name"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSheetImportedMessage creates a message stamped with the current time.
func NewSheetImportedMessage(sheetID, sheetName string, rows int) *SheetImportedMessage {
	return &SheetImportedMessage{
		SheetID:   sheetID,
		SheetName: sheetName,
		Rows:      rows,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SheetImportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SheetImportedMessageFromJSON decodes a message and rejects one without
// a sheet id.
func SheetImportedMessageFromJSON(data []byte) (*SheetImportedMessage, error) {
	var msg SheetImportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.SheetID == "" {
		return nil, errors.New("sheet imported message without sheet_id")
	}
	return &msg, nil
}
